package models

import (
	"time"

	json "github.com/goccy/go-json"
)

// Favorite is a liked tweet. Its date is derived from the tweet identifier.
type Favorite struct {
	TweetID     string `json:"tweetId"`
	FullText    string `json:"fullText,omitempty"`
	ExpandedURL string `json:"expandedUrl,omitempty"`

	date time.Time
}

func (f *Favorite) EntityID() string {
	return f.TweetID
}

func (f *Favorite) Date() time.Time {
	if f.date.IsZero() {
		if d, ok := SnowflakeTime(f.TweetID); ok {
			f.date = d
		}
	}
	return f.date
}

// RawLike is one record of like.js, optionally wrapped in {"like": {...}}.
type RawLike struct {
	TweetID     string `json:"tweetId"`
	FullText    string `json:"fullText"`
	ExpandedURL string `json:"expandedUrl"`
}

func (r *RawLike) UnmarshalJSON(b []byte) error {
	type plain RawLike
	var wrapper struct {
		Like *plain `json:"like"`
	}
	if err := json.Unmarshal(b, &wrapper); err != nil {
		return err
	}
	if wrapper.Like != nil {
		*r = RawLike(*wrapper.Like)
		return nil
	}
	return json.Unmarshal(b, (*plain)(r))
}
