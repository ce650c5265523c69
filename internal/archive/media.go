package archive

import (
	"archivist/internal/container"
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
)

type MediaKind int

const (
	DirectMedia MediaKind = iota
	GroupMedia
	TweetMedia
)

var ErrUnknownMediaKind = errors.New("archive: unknown media kind")

// dirs lists the directory names used by older and newer exports.
func (k MediaKind) dirs() []string {
	switch k {
	case DirectMedia:
		return []string{"direct_message_media", "direct_messages_media"}
	case GroupMedia:
		return []string{"direct_message_group_media", "direct_messages_group_media"}
	case TweetMedia:
		return []string{"tweet_media", "tweets_media"}
	}
	return nil
}

func (k MediaKind) String() string {
	d := k.dirs()
	if d == nil {
		return "unknown"
	}
	return d[0]
}

// Media serves attachment files. A media directory may hold loose entries
// or a single nested archive, or be shipped as an archive named after it.
type Media struct {
	r container.Reader

	mu     sync.Mutex
	nested map[MediaKind]container.Reader
}

func newMedia(r container.Reader) *Media {
	return &Media{r: r, nested: make(map[MediaKind]container.Reader)}
}

func (m *Media) Get(ctx context.Context, kind MediaKind, filename string) ([]byte, error) {
	if m == nil || m.r == nil {
		return nil, fmt.Errorf("%w: %s", container.ErrNotFound, filename)
	}
	dirs := kind.dirs()
	if dirs == nil {
		return nil, ErrUnknownMediaKind
	}
	for _, dir := range dirs {
		if sub := m.r.Dir(dir); m.r.Has(dir) && sub.Has(filename) {
			return sub.Raw(ctx, filename)
		}
	}
	nested, err := m.nestedReader(ctx, kind, dirs)
	if err != nil {
		if errors.Is(err, container.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", container.ErrNotFound, kind, filename)
		}
		return nil, err
	}
	found, err := nested.Search(`(?:.*/)?` + regexp.QuoteMeta(filename))
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", container.ErrNotFound, kind, filename)
	}
	return nested.Raw(ctx, found[0].Path)
}

// nestedArchive names the archive holding a media directory: the single
// .zip inside the directory, or a sibling named after it.
func (m *Media) nestedArchive(dirs []string) (string, error) {
	for _, dir := range dirs {
		if !m.r.Has(dir) {
			continue
		}
		zips, err := m.r.Dir(dir).Search(`[^/]+\.zip`)
		if err != nil {
			return "", err
		}
		if len(zips) == 1 {
			return dir + "/" + zips[0].Name, nil
		}
	}
	for _, dir := range dirs {
		if m.r.Has(dir + ".zip") {
			return dir + ".zip", nil
		}
	}
	return "", container.ErrNotFound
}

func (m *Media) nestedReader(ctx context.Context, kind MediaKind, dirs []string) (container.Reader, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.nested[kind]; ok {
		return r, nil
	}
	name, err := m.nestedArchive(dirs)
	if err != nil {
		return nil, err
	}
	r, err := m.r.FromFile(ctx, name)
	if err != nil {
		return nil, err
	}
	m.nested[kind] = r
	return r, nil
}

func (m *Media) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, r := range m.nested {
		_ = r.Close()
		delete(m.nested, k)
	}
}
