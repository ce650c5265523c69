package container

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// memoryBackend inflates every entry up front.
type memoryBackend struct {
	data  []byte
	label string
	files map[string][]byte
}

// NewMemoryReader returns a Reader holding the whole archive in memory.
func NewMemoryReader(data []byte, name string) Reader {
	return newView(&memoryBackend{data: data, label: name})
}

func (b *memoryBackend) list(ctx context.Context) ([]Entry, error) {
	zr, err := zip.NewReader(bytes.NewReader(b.data), int64(len(b.data)))
	if err != nil {
		return nil, fmt.Errorf("container: open %s: %w", b.label, err)
	}
	zr.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())
	b.files = make(map[string][]byte, len(zr.File))
	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e := Entry{
			Name:     f.Name,
			Path:     f.Name,
			Size:     int64(f.UncompressedSize64),
			Dir:      f.FileInfo().IsDir(),
			Modified: f.Modified,
		}
		entries = append(entries, e)
		if e.Dir {
			continue
		}
		content, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("container: inflate %s: %w", f.Name, err)
		}
		b.files[f.Name] = content
	}
	return entries, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (b *memoryBackend) read(_ context.Context, name string) ([]byte, error) {
	data, ok := b.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return data, nil
}

func (b *memoryBackend) close() error {
	b.files = nil
	return nil
}

func (b *memoryBackend) name() string {
	return b.label
}

func (b *memoryBackend) nested(data []byte, name string) Reader {
	return NewMemoryReader(data, name)
}
