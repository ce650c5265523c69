package container

import (
	"archivist/internal/providers"
	"archivist/internal/zipstream"
	"fmt"
	"os"
)

type options struct {
	cache    providers.CacheProviderInterface
	inMemory bool
	name     string
}

type Option func(*options)

// WithCache keeps decompressed entries of streaming readers in cache.
func WithCache(cache providers.CacheProviderInterface) Option {
	return func(o *options) { o.cache = cache }
}

// InMemory loads and inflates the whole archive instead of streaming it.
func InMemory() Option {
	return func(o *options) { o.inMemory = true }
}

func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

func collectOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// OpenFile returns a reader over the archive at path. Ready still has to be
// awaited before use.
func OpenFile(path string, opts ...Option) (Reader, error) {
	o := collectOptions(opts)
	if o.inMemory {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("container: read %s: %w", path, err)
		}
		return NewMemoryReader(data, path), nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("container: stat %s: %w", path, err)
	}
	return NewStreamReader(zipstream.NewFileSource(path), opts...), nil
}

// OpenBytes returns a reader over an in-memory archive.
func OpenBytes(data []byte, opts ...Option) Reader {
	o := collectOptions(opts)
	if o.inMemory {
		return NewMemoryReader(data, o.name)
	}
	return NewStreamReader(zipstream.NewBytesSource(data, o.name), opts...)
}
