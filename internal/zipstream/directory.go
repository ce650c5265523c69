package zipstream

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	eocdSignature         = 0x06054b50
	eocdLen               = 22
	zip64LocatorSignature = 0x07064b50
	zip64LocatorLen       = 20
	zip64EOCDSignature    = 0x06064b50
	zip64EOCDLen          = 56
	centralSignature      = 0x02014b50
	centralHeaderLen      = 46
	localSignature        = 0x04034b50
	localHeaderLen        = 30

	maxCommentLen      = 0xffff
	initialEndWindow   = 1024
	directoryChunk     = 64 << 10
	zip64ExtraID       = 0x0001
	uint16max          = 0xffff
	uint32max          = 0xffffffff
	flagDataDescriptor = 0x8
)

// File is one central directory record.
type File struct {
	Name              string
	Comment           string
	Method            uint16
	Flags             uint16
	CRC32             uint32
	CompressedSize    uint64
	UncompressedSize  uint64
	LocalHeaderOffset uint64
	Modified          time.Time
	ExternalAttrs     uint32
}

func (f *File) IsDir() bool {
	return strings.HasSuffix(f.Name, "/")
}

// HasDataDescriptor reports whether sizes and CRC were deferred to a trailing
// descriptor, in which case the payload is not verified.
func (f *File) HasDataDescriptor() bool {
	return f.Flags&flagDataDescriptor != 0
}

type directoryEnd struct {
	entriesOnDisk uint64
	entries       uint64
	size          uint64
	offset        uint64
	comment       string
	position      int64
}

func (d *directoryEnd) saturated() bool {
	return d.entries == uint16max || d.entriesOnDisk == uint16max ||
		d.size == uint32max || d.offset == uint32max
}

// findDirectoryEnd scans backwards for the end-of-central-directory record,
// widening the window while a long archive comment may hide it.
func findDirectoryEnd(src Source) (*directoryEnd, error) {
	size := src.Size()
	if size < eocdLen {
		return nil, fmt.Errorf("%w: %d bytes is too small", ErrBadArchive, size)
	}
	limit := min(size, int64(eocdLen+maxCommentLen))
	window := min(int64(initialEndWindow), limit)

	for {
		start := size - window
		buf, err := readAt(src, start, int(window))
		if err != nil {
			return nil, fmt.Errorf("%w: reading end of directory: %w", ErrBadArchive, err)
		}
		if idx := findSignatureInBlock(buf); idx >= 0 {
			return parseDirectoryEnd(buf[idx:], start+int64(idx)), nil
		}
		if window >= limit {
			return nil, fmt.Errorf("%w: end of central directory not found", ErrBadArchive)
		}
		window = min(window*4, limit)
	}
}

func findSignatureInBlock(b []byte) int {
	for i := len(b) - eocdLen; i >= 0; i-- {
		if b[i] == 'P' && b[i+1] == 'K' && b[i+2] == 0x05 && b[i+3] == 0x06 {
			commentLen := int(b[i+eocdLen-2]) | int(b[i+eocdLen-1])<<8
			if i+eocdLen+commentLen <= len(b) {
				return i
			}
		}
	}
	return -1
}

func parseDirectoryEnd(b []byte, position int64) *directoryEnd {
	buf := readBuf(b[4:])
	buf.uint16() // disk number
	buf.uint16() // disk with directory
	d := &directoryEnd{position: position}
	d.entriesOnDisk = uint64(buf.uint16())
	d.entries = uint64(buf.uint16())
	d.size = uint64(buf.uint32())
	d.offset = uint64(buf.uint32())
	commentLen := int(buf.uint16())
	d.comment = string(buf[:commentLen])
	return d
}

// readZip64End replaces saturated fields with the values of the ZIP64 record.
func readZip64End(src Source, d *directoryEnd) error {
	locPos := d.position - zip64LocatorLen
	if locPos < 0 {
		return fmt.Errorf("%w: no room for zip64 locator", ErrBadArchive)
	}
	loc, err := readAt(src, locPos, zip64LocatorLen)
	if err != nil {
		return fmt.Errorf("%w: zip64 locator: %w", ErrBadArchive, err)
	}
	buf := readBuf(loc)
	if buf.uint32() != zip64LocatorSignature {
		return fmt.Errorf("%w: zip64 locator signature", ErrBadArchive)
	}
	buf.uint32() // disk with zip64 end
	recPos := buf.uint64()
	if recPos > uint64(locPos) || uint64(locPos)-recPos < zip64EOCDLen {
		return fmt.Errorf("%w: zip64 record offset %d out of range", ErrBadArchive, recPos)
	}

	rec, err := readAt(src, int64(recPos), zip64EOCDLen)
	if err != nil {
		return fmt.Errorf("%w: zip64 record: %w", ErrBadArchive, err)
	}
	buf = readBuf(rec)
	if buf.uint32() != zip64EOCDSignature {
		return fmt.Errorf("%w: zip64 record signature", ErrBadArchive)
	}
	buf.uint64() // record size
	buf.uint16() // version made by
	buf.uint16() // version needed
	buf.uint32() // disk number
	buf.uint32() // disk with directory
	d.entriesOnDisk = buf.uint64()
	d.entries = buf.uint64()
	d.size = buf.uint64()
	d.offset = buf.uint64()
	d.position = int64(recPos)
	return nil
}

// directoryWindow serves byte ranges of the central directory from a buffered
// chunk, reloading whenever a header straddles the end of the chunk.
type directoryWindow struct {
	src   Source
	buf   []byte
	start int64
}

func (w *directoryWindow) slice(pos int64, n int) ([]byte, error) {
	if pos >= w.start && pos+int64(n) <= w.start+int64(len(w.buf)) {
		off := pos - w.start
		return w.buf[off : off+int64(n)], nil
	}
	remaining := w.src.Size() - pos
	if remaining < int64(n) {
		return nil, fmt.Errorf("%w: central directory runs past end of archive", ErrBadArchive)
	}
	readLen := min(int64(max(n, directoryChunk)), remaining)
	buf, err := readAt(w.src, pos, int(readLen))
	if err != nil {
		return nil, fmt.Errorf("%w: central directory: %w", ErrBadArchive, err)
	}
	w.buf, w.start = buf, pos
	return buf[:n], nil
}

func readDirectory(ctx context.Context, src Source, d *directoryEnd) ([]*File, error) {
	if d.offset+d.size > uint64(d.position) {
		return nil, fmt.Errorf("%w: central directory overlaps its end record", ErrBadArchive)
	}
	if d.entries > d.size/centralHeaderLen {
		return nil, fmt.Errorf("%w: %d entries cannot fit in %d bytes", ErrBadArchive, d.entries, d.size)
	}

	files := make([]*File, 0, d.entries)
	w := &directoryWindow{src: src}
	pos := int64(d.offset)
	for i := uint64(0); i < d.entries; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		head, err := w.slice(pos, centralHeaderLen)
		if err != nil {
			return nil, err
		}
		if byteOrder.Uint32(head) != centralSignature {
			return nil, fmt.Errorf("%w: bad central header signature at %d", ErrBadArchive, pos)
		}
		nameLen := int(byteOrder.Uint16(head[28:]))
		extraLen := int(byteOrder.Uint16(head[30:]))
		commentLen := int(byteOrder.Uint16(head[32:]))
		total := centralHeaderLen + nameLen + extraLen + commentLen

		record, err := w.slice(pos, total)
		if err != nil {
			return nil, err
		}
		f, err := parseCentralHeader(record, nameLen, extraLen, commentLen)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		files = append(files, f)
		pos += int64(total)
	}
	return files, nil
}

func parseCentralHeader(record []byte, nameLen, extraLen, commentLen int) (*File, error) {
	buf := readBuf(record[4:])
	buf.uint16() // version made by
	buf.uint16() // version needed
	f := &File{}
	f.Flags = buf.uint16()
	f.Method = buf.uint16()
	modTime := buf.uint16()
	modDate := buf.uint16()
	f.CRC32 = buf.uint32()
	f.CompressedSize = uint64(buf.uint32())
	f.UncompressedSize = uint64(buf.uint32())
	buf.sub(6)   // name, extra and comment lengths
	buf.uint16() // disk number start
	buf.uint16() // internal attributes
	f.ExternalAttrs = buf.uint32()
	f.LocalHeaderOffset = uint64(buf.uint32())
	f.Name = string(buf.sub(nameLen))
	extra := buf.sub(extraLen)
	f.Comment = string(buf.sub(commentLen))
	f.Modified = msDosTime(modDate, modTime)

	if err := applyZip64Extra(f, extra); err != nil {
		return nil, err
	}
	return f, nil
}

func applyZip64Extra(f *File, extra readBuf) error {
	needUncompressed := f.UncompressedSize == uint32max
	needCompressed := f.CompressedSize == uint32max
	needOffset := f.LocalHeaderOffset == uint32max

	for len(extra) >= 4 {
		id := extra.uint16()
		size := int(extra.uint16())
		if len(extra) < size {
			return fmt.Errorf("%w: extra field %#04x overruns record", ErrBadArchive, id)
		}
		field := extra.sub(size)
		if id != zip64ExtraID {
			continue
		}
		if needUncompressed {
			if len(field) < 8 {
				return fmt.Errorf("%w: short zip64 extra field", ErrBadArchive)
			}
			f.UncompressedSize = field.uint64()
			needUncompressed = false
		}
		if needCompressed {
			if len(field) < 8 {
				return fmt.Errorf("%w: short zip64 extra field", ErrBadArchive)
			}
			f.CompressedSize = field.uint64()
			needCompressed = false
		}
		if needOffset {
			if len(field) < 8 {
				return fmt.Errorf("%w: short zip64 extra field", ErrBadArchive)
			}
			f.LocalHeaderOffset = field.uint64()
			needOffset = false
		}
	}
	return nil
}
