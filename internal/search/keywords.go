package search

import (
	"archivist/internal/models"
	"errors"
	"regexp"
	"strings"
	"time"
)

var datePattern = regexp.MustCompile(`^\d{4}(-\d{1,2}(-\d{1,2})?)?$`)

var errEmptyValue = errors.New("empty value")

// ParseDate accepts YYYY, YYYY-MM and YYYY-MM-DD and returns the start of
// that period in UTC.
func ParseDate(value string) (time.Time, error) {
	if !datePattern.MatchString(value) {
		return time.Time{}, errors.New("expected YYYY, YYYY-MM or YYYY-MM-DD")
	}
	layout := "2006"
	switch strings.Count(value, "-") {
	case 1:
		layout = "2006-1"
	case 2:
		layout = "2006-1-2"
	}
	return time.Parse(layout, value)
}

func sinceKeyword(value string) (Predicate, error) {
	start, err := ParseDate(value)
	if err != nil {
		return nil, err
	}
	return func(t *models.Tweet) bool { return !t.Date().Before(start) }, nil
}

func untilKeyword(value string) (Predicate, error) {
	end, err := ParseDate(value)
	if err != nil {
		return nil, err
	}
	return func(t *models.Tweet) bool { return t.Date().Before(end) }, nil
}

func screenNames(value string) (map[string]struct{}, error) {
	names := make(map[string]struct{})
	for _, n := range strings.Split(value, ",") {
		n = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(n), "@"))
		if n != "" {
			names[n] = struct{}{}
		}
	}
	if len(names) == 0 {
		return nil, errEmptyValue
	}
	return names, nil
}

func matchUser(u *models.User, names map[string]struct{}) bool {
	if u == nil {
		return false
	}
	_, ok := names[strings.ToLower(u.ScreenName)]
	return ok
}

// fromKeyword matches the effective author: the retweeted user for
// retweets, the tweet author otherwise.
func fromKeyword(value string) (Predicate, error) {
	names, err := screenNames(value)
	if err != nil {
		return nil, err
	}
	return func(t *models.Tweet) bool {
		if t.RetweetedStatus != nil {
			return matchUser(t.RetweetedStatus.User, names)
		}
		return matchUser(t.User, names)
	}, nil
}

func retweetOfKeyword(value string) (Predicate, error) {
	names, err := screenNames(value)
	if err != nil {
		return nil, err
	}
	return func(t *models.Tweet) bool {
		return t.RetweetedStatus != nil && matchUser(t.RetweetedStatus.User, names)
	}, nil
}

func retweetsOnly(t *models.Tweet) bool { return t.IsRetweet() }
func noRetweets(t *models.Tweet) bool   { return !t.IsRetweet() }
func mediasOnly(t *models.Tweet) bool   { return t.HasMedia() }
func videosOnly(t *models.Tweet) bool   { return t.HasVideo() }
