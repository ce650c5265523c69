package zipstream

import (
	"fmt"
	"io"
	"os"
)

// Source is a positioned byte store the parser reads from. Read copies up to
// length bytes found at position into dest[offset:] and reports how many
// bytes were copied; a short read must come with an error.
type Source interface {
	Read(dest []byte, offset, length int, position int64) (int, error)
	Size() int64
}

// Named sources report a display name for diagnostics.
type Named interface {
	Name() string
}

// Opener sources acquire their underlying handle lazily.
type Opener interface {
	Open() error
}

// BytesSource serves reads from an in-memory blob.
type BytesSource struct {
	data []byte
	name string
}

func NewBytesSource(data []byte, name string) *BytesSource {
	return &BytesSource{data: data, name: name}
}

func (s *BytesSource) Read(dest []byte, offset, length int, position int64) (int, error) {
	if position < 0 {
		return 0, fmt.Errorf("zipstream: negative position %d", position)
	}
	if position >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(dest[offset:offset+length], s.data[position:])
	if n < length {
		return n, io.EOF
	}
	return n, nil
}

func (s *BytesSource) Size() int64  { return int64(len(s.data)) }
func (s *BytesSource) Name() string { return s.name }

// FileSource serves positioned reads from a file on disk. The handle is
// opened on Open and released on Close.
type FileSource struct {
	path string
	file *os.File
	size int64
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// OpenFileSource returns a FileSource with its handle already opened.
func OpenFileSource(path string) (*FileSource, error) {
	fs := NewFileSource(path)
	if err := fs.Open(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (s *FileSource) Open() error {
	if s.file != nil {
		return nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	s.file = f
	s.size = info.Size()
	return nil
}

func (s *FileSource) Read(dest []byte, offset, length int, position int64) (int, error) {
	if s.file == nil {
		return 0, fmt.Errorf("zipstream: file source %s is not open", s.path)
	}
	return s.file.ReadAt(dest[offset:offset+length], position)
}

func (s *FileSource) Size() int64  { return s.size }
func (s *FileSource) Name() string { return s.path }

func (s *FileSource) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// ReaderAtSource adapts any io.ReaderAt of known size.
type ReaderAtSource struct {
	r    io.ReaderAt
	size int64
	name string
}

func NewReaderAtSource(r io.ReaderAt, size int64, name string) *ReaderAtSource {
	return &ReaderAtSource{r: r, size: size, name: name}
}

func (s *ReaderAtSource) Read(dest []byte, offset, length int, position int64) (int, error) {
	return s.r.ReadAt(dest[offset:offset+length], position)
}

func (s *ReaderAtSource) Size() int64  { return s.size }
func (s *ReaderAtSource) Name() string { return s.name }

// readAt reads exactly n bytes at position, looping over short reads.
func readAt(src Source, position int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	total := 0
	for total < n {
		r, err := src.Read(buf, total, n-total, position+int64(total))
		total += r
		if total == n {
			break
		}
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("%w: wanted %d bytes at %d, got %d", ErrTruncated, n, position, total)
			}
			return nil, err
		}
		if r == 0 {
			return nil, fmt.Errorf("%w: no progress at %d", ErrTruncated, position+int64(total))
		}
	}
	return buf, nil
}
