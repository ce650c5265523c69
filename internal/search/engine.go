// Package search filters tweet sequences with a small query language:
// keyword tokens such as since:2016 or from:"name" plus free text.
package search

import (
	"archivist/internal/models"
	"iter"
	"maps"
	"regexp"
	"slices"
	"strings"
)

// Predicate reports whether a tweet is kept.
type Predicate func(*models.Tweet) bool

// KeywordFactory turns the value of a keyword token into a predicate.
type KeywordFactory func(value string) (Predicate, error)

type Field string

const (
	FieldText       Field = "text"
	FieldName       Field = "user.name"
	FieldScreenName Field = "user.screen_name"
)

var DefaultFields = []Field{FieldText, FieldName, FieldScreenName}

const DefaultFlags = "i"

type Options struct {
	Regex   bool
	Flags   string
	Filters []string
	Fields  []Field
}

type Engine struct {
	Keywords     map[string]KeywordFactory
	Filters      map[string]Predicate
	DefaultFlags string
}

func NewEngine() *Engine {
	return &Engine{
		Keywords: map[string]KeywordFactory{
			"since":      sinceKeyword,
			"until":      untilKeyword,
			"from":       fromKeyword,
			"retweet_of": retweetOfKeyword,
		},
		Filters: map[string]Predicate{
			"retweets_only": retweetsOnly,
			"no_retweets":   noRetweets,
			"medias_only":   mediasOnly,
			"videos_only":   videosOnly,
		},
		DefaultFlags: DefaultFlags,
	}
}

func keywordPattern(keyword string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|\s+)` + regexp.QuoteMeta(keyword) + `:(?:"([^"]*)"|(\S*))`)
}

// Compile parses query into predicates and the residual text matcher. A nil
// matcher means no free text remained.
func (e *Engine) Compile(query string, opts Options) ([]Predicate, *regexp.Regexp, error) {
	var predicates []Predicate
	for _, keyword := range slices.Sorted(maps.Keys(e.Keywords)) {
		re := keywordPattern(keyword)
		for {
			loc := re.FindStringSubmatchIndex(query)
			if loc == nil {
				break
			}
			value := ""
			if loc[2] >= 0 {
				value = query[loc[2]:loc[3]]
			} else if loc[4] >= 0 {
				value = query[loc[4]:loc[5]]
			}
			if strings.TrimSpace(value) == "" {
				return nil, nil, &SyntaxError{Keyword: keyword, Value: value, Err: errEmptyValue}
			}
			p, err := e.Keywords[keyword](value)
			if err != nil {
				return nil, nil, &SyntaxError{Keyword: keyword, Value: value, Err: err}
			}
			predicates = append(predicates, p)
			query = query[:loc[0]] + query[loc[1]:]
		}
	}

	for _, name := range opts.Filters {
		p, ok := e.Filters[name]
		if !ok {
			return nil, nil, &ReferenceError{Filter: name}
		}
		predicates = append(predicates, p)
	}

	residual := strings.TrimSpace(query)
	if residual == "" {
		return predicates, nil, nil
	}
	flags := opts.Flags
	if flags == "" {
		flags = e.DefaultFlags
	}
	if strings.Trim(flags, "ims") != "" {
		return nil, nil, &SyntaxError{Keyword: "flags", Value: flags}
	}
	pattern := residual
	if !opts.Regex {
		pattern = regexp.QuoteMeta(residual)
	}
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, nil, &SyntaxError{Keyword: "query", Value: residual, Err: err}
	}
	return predicates, re, nil
}

func fieldValues(t *models.Tweet, fields []Field) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		switch f {
		case FieldText:
			out = append(out, t.Text)
		case FieldName:
			if t.User != nil {
				out = append(out, t.User.Name)
			}
		case FieldScreenName:
			if t.User != nil {
				out = append(out, t.User.ScreenName)
			}
		}
	}
	return out
}

// Search returns the tweets of items that satisfy every predicate and, when
// free text remains, match it in at least one field. The returned sequence
// can be iterated repeatedly when items can.
func (e *Engine) Search(items iter.Seq[*models.Tweet], query string, opts Options) (iter.Seq[*models.Tweet], error) {
	predicates, matcher, err := e.Compile(query, opts)
	if err != nil {
		return nil, err
	}
	fields := opts.Fields
	if len(fields) == 0 {
		fields = DefaultFields
	}

	keep := func(t *models.Tweet) bool {
		for _, p := range predicates {
			if !p(t) {
				return false
			}
		}
		if matcher == nil {
			return true
		}
		for _, v := range fieldValues(t, fields) {
			if matcher.MatchString(v) {
				return true
			}
		}
		return false
	}

	return func(yield func(*models.Tweet) bool) {
		for t := range items {
			if keep(t) && !yield(t) {
				return
			}
		}
	}, nil
}
