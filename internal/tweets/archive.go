// Package tweets normalizes raw archive tweets and likes into indexed
// collections.
package tweets

import (
	"archivist/internal/index"
	"archivist/internal/models"
	"regexp"

	"github.com/spf13/cast"
)

var retweetPattern = regexp.MustCompile(`(?s)^RT @(\w+): (.*)$`)

// Archive is the tweet collection of one account.
type Archive struct {
	*index.Index[*models.Tweet]
	user *models.User
}

func NewArchive(opts index.Options) *Archive {
	return &Archive{Index: index.New[*models.Tweet](opts)}
}

// SetUser sets the author reference shared by tweets normalized afterwards.
func (a *Archive) SetUser(u *models.User) {
	a.user = u
}

func (a *Archive) User() *models.User {
	return a.user
}

// AddRaw normalizes every record and indexes the batch. The first invalid
// record fails the whole batch and nothing is added.
func (a *Archive) AddRaw(raw []models.RawTweet) error {
	normalized := make([]*models.Tweet, 0, len(raw))
	for i := range raw {
		t, err := a.Normalize(&raw[i])
		if err != nil {
			return err
		}
		normalized = append(normalized, t)
	}
	a.Add(normalized...)
	return nil
}

// Normalize converts one raw record. String counts become integers and a
// leading "RT @handle: " produces a synthesized retweeted status.
func (a *Archive) Normalize(r *models.RawTweet) (*models.Tweet, error) {
	switch {
	case r.ID == "":
		return nil, &models.TweetParseError{Record: r, Field: "id_str"}
	case r.CreatedAt == "":
		return nil, &models.TweetParseError{Record: r, Field: "created_at"}
	case r.Body() == "":
		return nil, &models.TweetParseError{Record: r, Field: "full_text"}
	}

	retweets, err := cast.ToIntE(r.RetweetCount)
	if err != nil {
		return nil, &models.TweetParseError{Record: r, Field: "retweet_count"}
	}
	favorites, err := cast.ToIntE(r.FavoriteCount)
	if err != nil {
		return nil, &models.TweetParseError{Record: r, Field: "favorite_count"}
	}
	var textRange []int
	if len(r.DisplayTextRange) > 0 {
		if textRange, err = cast.ToIntSliceE(r.DisplayTextRange); err != nil {
			return nil, &models.TweetParseError{Record: r, Field: "display_text_range"}
		}
	}

	t := &models.Tweet{
		ID:                  r.ID,
		Text:                r.Body(),
		CreatedAt:           r.CreatedAt,
		Source:              r.Source,
		Lang:                r.Lang,
		User:                a.user,
		Entities:            r.Entities,
		ExtendedEntities:    r.ExtendedEntities,
		DisplayTextRange:    textRange,
		RetweetCount:        retweets,
		FavoriteCount:       favorites,
		Retweeted:           r.Retweeted,
		Favorited:           r.Favorited,
		Truncated:           r.Truncated,
		PossiblySensitive:   r.PossiblySensitive,
		InReplyToStatusID:   r.InReplyToStatusID,
		InReplyToUserID:     r.InReplyToUserID,
		InReplyToScreenName: r.InReplyToScreenName,
		RetweetedStatus:     r.RetweetedStatus,
	}
	if t.RetweetedStatus == nil {
		t.RetweetedStatus = synthesizeRetweet(t)
	}
	t.Date()
	return t, nil
}

// synthesizeRetweet rebuilds the retweeted status that the archive flattens
// into "RT @handle: text".
func synthesizeRetweet(t *models.Tweet) *models.Tweet {
	m := retweetPattern.FindStringSubmatch(t.Text)
	if m == nil {
		return nil
	}
	rt := *t
	rt.Text = m[2]
	rt.Retweeted = true
	rt.RetweetedStatus = nil
	rt.User = &models.User{
		ID:         sourceUserID(t),
		Name:       m[1],
		ScreenName: m[1],
	}
	return &rt
}

func sourceUserID(t *models.Tweet) string {
	for _, media := range t.Medias() {
		if media.SourceUserID != "" {
			return media.SourceUserID
		}
	}
	return ""
}
