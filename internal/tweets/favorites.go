package tweets

import (
	"archivist/internal/index"
	"archivist/internal/models"
	"errors"
	"fmt"
)

var ErrInvalidLike = errors.New("tweets: like record has no tweetId")

// Favorites is the liked-tweets collection.
type Favorites struct {
	*index.Index[*models.Favorite]
}

func NewFavorites(opts index.Options) *Favorites {
	return &Favorites{Index: index.New[*models.Favorite](opts)}
}

func (f *Favorites) AddRaw(raw []models.RawLike) error {
	items := make([]*models.Favorite, 0, len(raw))
	for i, r := range raw {
		if r.TweetID == "" {
			return fmt.Errorf("%w: record %d", ErrInvalidLike, i)
		}
		items = append(items, &models.Favorite{
			TweetID:     r.TweetID,
			FullText:    r.FullText,
			ExpandedURL: r.ExpandedURL,
		})
	}
	f.Add(items...)
	return nil
}
