package models

import (
	"errors"
	"fmt"
)

var ErrTweetParse = errors.New("models: invalid tweet record")

// TweetParseError carries the first raw record that failed normalization.
type TweetParseError struct {
	Record *RawTweet
	Field  string
}

func (e *TweetParseError) Error() string {
	id := ""
	if e.Record != nil {
		id = e.Record.ID
	}
	return fmt.Sprintf("models: tweet record %q is missing %s", id, e.Field)
}

func (e *TweetParseError) Is(target error) bool {
	return target == ErrTweetParse
}
