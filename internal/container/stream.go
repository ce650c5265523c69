package container

import (
	"archivist/internal/providers"
	"archivist/internal/zipstream"
	"context"
	"fmt"

	"github.com/google/uuid"
)

// streamBackend parses the central directory only and reads entries on
// demand, optionally keeping decompressed payloads in an entry cache.
type streamBackend struct {
	src     zipstream.Source
	archive *zipstream.Archive
	cache   providers.CacheProviderInterface
	prefix  string
	label   string
}

// NewStreamReader returns a Reader backed by the streaming ZIP parser.
func NewStreamReader(src zipstream.Source, opts ...Option) Reader {
	o := collectOptions(opts)
	label := o.name
	if label == "" {
		if n, ok := src.(zipstream.Named); ok {
			label = n.Name()
		}
	}
	return newView(&streamBackend{
		src:    src,
		cache:  o.cache,
		prefix: uuid.NewString() + ":",
		label:  label,
	})
}

func (b *streamBackend) list(ctx context.Context) ([]Entry, error) {
	a, err := zipstream.Open(ctx, b.src)
	if err != nil {
		return nil, fmt.Errorf("container: open %s: %w", b.label, err)
	}
	b.archive = a

	files := a.Files()
	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		entries = append(entries, Entry{
			Name:     f.Name,
			Path:     f.Name,
			Size:     int64(f.UncompressedSize),
			Dir:      f.IsDir(),
			Modified: f.Modified,
		})
	}
	return entries, nil
}

func (b *streamBackend) read(ctx context.Context, name string) ([]byte, error) {
	if b.archive == nil {
		return nil, ErrNotReady
	}
	f, ok := b.archive.File(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	key := b.prefix + name
	if b.cache != nil {
		if data, ok := b.cache.Get(key); ok {
			return data, nil
		}
	}
	data, err := b.archive.Read(ctx, f)
	if err != nil {
		return nil, err
	}
	if b.cache != nil {
		b.cache.Set(key, data)
	}
	return data, nil
}

func (b *streamBackend) close() error {
	if b.archive != nil {
		return b.archive.Close()
	}
	if c, ok := b.src.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func (b *streamBackend) name() string {
	return b.label
}

func (b *streamBackend) nested(data []byte, name string) Reader {
	return NewStreamReader(zipstream.NewBytesSource(data, name), WithCache(b.cache))
}
