// Package container exposes the entries of a ZIP archive as a scoped,
// name-addressable tree with optional auto-parsing of JS-wrapped JSON files.
package container

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound = errors.New("container: entry not found")
	ErrNotReady = errors.New("container: listing not ready")
)

// ParseError reports a text entry whose JSON payload could not be decoded.
type ParseError struct {
	Name string
	Raw  string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("container: cannot parse %s: %v", e.Name, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Entry describes one file or directory. Name is relative to the view that
// returned it, Path is the full name inside the archive.
type Entry struct {
	Name     string
	Path     string
	Size     int64
	Dir      bool
	Modified time.Time
}

type EventKind int

const (
	EventReady EventKind = iota
	EventRead
	EventNotFound
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventReady:
		return "ready"
	case EventRead:
		return "read"
	case EventNotFound:
		return "not-found"
	default:
		return "error"
	}
}

// Event is a diagnostic notification. Count is set on EventReady, Err on
// EventError.
type Event struct {
	Kind  EventKind
	Name  string
	Count int
	Err   error
}

// Reader is a read-only view over an archive. Ready must succeed before any
// other call returns data.
type Reader interface {
	Ready(ctx context.Context) error
	Name() string
	Root() string
	Has(name string) bool
	Search(pattern string) ([]Entry, error)
	SearchDir(pattern string) ([]Entry, error)
	Dir(name string) Reader
	Entries() []Entry
	Raw(ctx context.Context, name string) ([]byte, error)
	Text(ctx context.Context, name string) (string, error)
	Decode(ctx context.Context, name string, v any) error
	FromFile(ctx context.Context, name string) (Reader, error)
	Subscribe(fn func(Event)) (cancel func())
	Close() error
}
