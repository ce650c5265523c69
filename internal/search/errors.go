package search

import (
	"errors"
	"fmt"
)

var (
	ErrSyntax        = errors.New("search: syntax error")
	ErrUnknownFilter = errors.New("search: unknown filter")
)

// SyntaxError names the keyword whose value could not be understood.
type SyntaxError struct {
	Keyword string
	Value   string
	Err     error
}

func (e *SyntaxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("search: invalid value %q for %s: %v", e.Value, e.Keyword, e.Err)
	}
	return fmt.Sprintf("search: invalid value %q for %s", e.Value, e.Keyword)
}

func (e *SyntaxError) Is(target error) bool {
	return target == ErrSyntax
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// ReferenceError names a static filter that is not registered.
type ReferenceError struct {
	Filter string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("search: unknown filter %q", e.Filter)
}

func (e *ReferenceError) Is(target error) bool {
	return target == ErrUnknownFilter
}
