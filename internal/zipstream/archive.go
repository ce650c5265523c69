package zipstream

import (
	"context"
	"fmt"
	"hash/crc32"
	"io"
	"math"
)

// Archive is an opened ZIP whose central directory has been parsed.
type Archive struct {
	src     Source
	files   []*File
	byName  map[string]*File
	comment string
}

// Open parses the end record and the central directory of src. Sources that
// implement Opener are opened first.
func Open(ctx context.Context, src Source) (*Archive, error) {
	if o, ok := src.(Opener); ok {
		if err := o.Open(); err != nil {
			return nil, err
		}
	}
	end, err := findDirectoryEnd(src)
	if err != nil {
		return nil, err
	}
	if end.saturated() {
		if err := readZip64End(src, end); err != nil {
			return nil, err
		}
	}
	files, err := readDirectory(ctx, src, end)
	if err != nil {
		return nil, err
	}

	a := &Archive{
		src:     src,
		files:   files,
		byName:  make(map[string]*File, len(files)),
		comment: end.comment,
	}
	for _, f := range files {
		a.byName[f.Name] = f
	}
	return a, nil
}

// Files returns the entries in central directory order.
func (a *Archive) Files() []*File {
	return a.files
}

func (a *Archive) File(name string) (*File, bool) {
	f, ok := a.byName[name]
	return f, ok
}

func (a *Archive) Comment() string {
	return a.comment
}

// Name reports the source name when the source has one.
func (a *Archive) Name() string {
	if n, ok := a.src.(Named); ok {
		return n.Name()
	}
	return ""
}

// Read returns the decompressed payload of f. Errors only concern f; other
// entries remain readable.
func (a *Archive) Read(ctx context.Context, f *File) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dec, err := decompressor(f.Method)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	if f.CompressedSize > math.MaxInt32 || f.LocalHeaderOffset > math.MaxInt64 {
		return nil, fmt.Errorf("%s: %w: entry too large", f.Name, ErrBadArchive)
	}

	header, err := readAt(a.src, int64(f.LocalHeaderOffset), localHeaderLen)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: local header: %w", f.Name, ErrBadArchive, err)
	}
	if byteOrder.Uint32(header) != localSignature {
		return nil, fmt.Errorf("%s: %w: bad local header signature", f.Name, ErrBadArchive)
	}
	nameLen := int64(byteOrder.Uint16(header[26:]))
	extraLen := int64(byteOrder.Uint16(header[28:]))
	dataOffset := int64(f.LocalHeaderOffset) + localHeaderLen + nameLen + extraLen

	raw, err := readAt(a.src, dataOffset, int(f.CompressedSize))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", f.Name, ErrCorrupted, err)
	}
	data, err := dec(raw, f.UncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}

	if !f.HasDataDescriptor() {
		if uint64(len(data)) != f.UncompressedSize {
			return nil, fmt.Errorf("%s: %w: size %d, expected %d", f.Name, ErrCorrupted, len(data), f.UncompressedSize)
		}
		if sum := crc32.ChecksumIEEE(data); sum != f.CRC32 {
			return nil, fmt.Errorf("%s: %w: crc32 %08x, expected %08x", f.Name, ErrCorrupted, sum, f.CRC32)
		}
	}
	return data, nil
}

// Close releases the source when it holds a handle.
func (a *Archive) Close() error {
	if c, ok := a.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
