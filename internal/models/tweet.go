package models

import (
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// TweetDateLayout is the created_at format used by the archive.
const TweetDateLayout = time.RubyDate

type Hashtag struct {
	Text    string    `json:"text"`
	Indices []FlexInt `json:"indices"`
}

type Mention struct {
	ID         string    `json:"id_str"`
	Name       string    `json:"name"`
	ScreenName string    `json:"screen_name"`
	Indices    []FlexInt `json:"indices"`
}

type URL struct {
	URL         string    `json:"url"`
	ExpandedURL string    `json:"expanded_url"`
	DisplayURL  string    `json:"display_url"`
	Indices     []FlexInt `json:"indices"`
}

type Variant struct {
	Bitrate     FlexInt `json:"bitrate,omitempty"`
	ContentType string  `json:"content_type"`
	URL         string  `json:"url"`
}

type VideoInfo struct {
	AspectRatio    []FlexInt `json:"aspect_ratio,omitempty"`
	DurationMillis FlexInt   `json:"duration_millis,omitempty"`
	Variants       []Variant `json:"variants"`
}

type Media struct {
	ID             string     `json:"id_str"`
	Type           string     `json:"type"`
	URL            string     `json:"url"`
	ExpandedURL    string     `json:"expanded_url"`
	DisplayURL     string     `json:"display_url"`
	MediaURL       string     `json:"media_url"`
	MediaURLHTTPS  string     `json:"media_url_https"`
	Indices        []FlexInt  `json:"indices"`
	SourceStatusID string     `json:"source_status_id_str,omitempty"`
	SourceUserID   string     `json:"source_user_id_str,omitempty"`
	VideoInfo      *VideoInfo `json:"video_info,omitempty"`
}

func (m Media) IsVideo() bool {
	return m.Type == "video" || m.Type == "animated_gif"
}

type Entities struct {
	Hashtags     []Hashtag `json:"hashtags"`
	Symbols      []Hashtag `json:"symbols"`
	UserMentions []Mention `json:"user_mentions"`
	URLs         []URL     `json:"urls"`
	Media        []Media   `json:"media,omitempty"`
}

type ExtendedEntities struct {
	Media []Media `json:"media"`
}

// Tweet is a normalized tweet. The parsed date is cached on first access and
// never serialized.
type Tweet struct {
	ID                  string            `json:"id_str"`
	Text                string            `json:"text"`
	CreatedAt           string            `json:"created_at"`
	Source              string            `json:"source,omitempty"`
	Lang                string            `json:"lang,omitempty"`
	User                *User             `json:"user"`
	Entities            Entities          `json:"entities"`
	ExtendedEntities    *ExtendedEntities `json:"extended_entities,omitempty"`
	DisplayTextRange    []int             `json:"display_text_range,omitempty"`
	RetweetCount        int               `json:"retweet_count"`
	FavoriteCount       int               `json:"favorite_count"`
	Retweeted           bool              `json:"retweeted"`
	Favorited           bool              `json:"favorited"`
	Truncated           bool              `json:"truncated"`
	PossiblySensitive   bool              `json:"possibly_sensitive,omitempty"`
	InReplyToStatusID   string            `json:"in_reply_to_status_id_str,omitempty"`
	InReplyToUserID     string            `json:"in_reply_to_user_id_str,omitempty"`
	InReplyToScreenName string            `json:"in_reply_to_screen_name,omitempty"`
	RetweetedStatus     *Tweet            `json:"retweeted_status,omitempty"`

	date time.Time
}

func (t *Tweet) EntityID() string {
	return t.ID
}

// Date returns created_at parsed in UTC, or the zero time when unparseable.
func (t *Tweet) Date() time.Time {
	if t.date.IsZero() {
		d, err := time.Parse(TweetDateLayout, t.CreatedAt)
		if err != nil {
			return time.Time{}
		}
		t.date = d.UTC()
	}
	return t.date
}

func (t *Tweet) IsRetweet() bool {
	return t.RetweetedStatus != nil
}

// Medias returns extended media when present, the entity media otherwise.
func (t *Tweet) Medias() []Media {
	if t.ExtendedEntities != nil && len(t.ExtendedEntities.Media) > 0 {
		return t.ExtendedEntities.Media
	}
	return t.Entities.Media
}

func (t *Tweet) HasMedia() bool {
	return len(t.Medias()) > 0
}

func (t *Tweet) HasVideo() bool {
	for _, m := range t.Medias() {
		if m.IsVideo() {
			return true
		}
	}
	return false
}

// Mentions reports whether the tweet mentions screenName, case-insensitively.
func (t *Tweet) Mentions(screenName string) bool {
	for _, m := range t.Entities.UserMentions {
		if strings.EqualFold(m.ScreenName, screenName) {
			return true
		}
	}
	return false
}

// RawTweet is a tweet record as exported in tweet.js. Counts and the display
// range may be strings. Records may be wrapped in {"tweet": {...}}.
type RawTweet struct {
	ID                  string            `json:"id_str"`
	CreatedAt           string            `json:"created_at"`
	FullText            string            `json:"full_text"`
	Text                string            `json:"text"`
	Source              string            `json:"source"`
	Lang                string            `json:"lang"`
	Entities            Entities          `json:"entities"`
	ExtendedEntities    *ExtendedEntities `json:"extended_entities"`
	DisplayTextRange    []any             `json:"display_text_range"`
	RetweetCount        any               `json:"retweet_count"`
	FavoriteCount       any               `json:"favorite_count"`
	Retweeted           bool              `json:"retweeted"`
	Favorited           bool              `json:"favorited"`
	Truncated           bool              `json:"truncated"`
	PossiblySensitive   bool              `json:"possibly_sensitive"`
	InReplyToStatusID   string            `json:"in_reply_to_status_id_str"`
	InReplyToUserID     string            `json:"in_reply_to_user_id_str"`
	InReplyToScreenName string            `json:"in_reply_to_screen_name"`
	RetweetedStatus     *Tweet            `json:"retweeted_status"`
}

func (r *RawTweet) UnmarshalJSON(b []byte) error {
	type plain RawTweet
	var wrapper struct {
		Tweet *plain `json:"tweet"`
	}
	if err := json.Unmarshal(b, &wrapper); err != nil {
		return err
	}
	if wrapper.Tweet != nil {
		*r = RawTweet(*wrapper.Tweet)
		return nil
	}
	return json.Unmarshal(b, (*plain)(r))
}

// Body returns full_text, falling back to text.
func (r *RawTweet) Body() string {
	if r.FullText != "" {
		return r.FullText
	}
	return r.Text
}
