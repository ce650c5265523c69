package zipstream

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
)

// Compression methods understood by the reader.
const (
	Store           uint16 = 0
	Deflate         uint16 = 8
	EnhancedDeflate uint16 = 9
	Zstd            uint16 = 93
)

// Decompressor expands a raw payload. size is the expected uncompressed
// length taken from the central directory; output beyond size+1 bytes is cut.
type Decompressor func(raw []byte, size uint64) ([]byte, error)

var decompressors = map[uint16]Decompressor{
	Store:           stored,
	Deflate:         inflate,
	EnhancedDeflate: inflate,
	Zstd:            unzstd,
}

func decompressor(method uint16) (Decompressor, error) {
	d, ok := decompressors[method]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, method)
	}
	return d, nil
}

func stored(raw []byte, _ uint64) ([]byte, error) {
	return raw, nil
}

func inflate(raw []byte, size uint64) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(raw))
	defer r.Close()

	out := bytes.NewBuffer(make([]byte, 0, capHint(size)))
	if _, err := io.Copy(out, io.LimitReader(r, int64(size)+1)); err != nil {
		return nil, fmt.Errorf("%w: inflate: %w", ErrCorrupted, err)
	}
	return out.Bytes(), nil
}

var (
	zstdOnce    sync.Once
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

func unzstd(raw []byte, size uint64) ([]byte, error) {
	zstdOnce.Do(func() {
		zstdDecoder, zstdErr = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	})
	if zstdErr != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", zstdErr)
	}
	out, err := zstdDecoder.DecodeAll(raw, make([]byte, 0, capHint(size)))
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %w", ErrCorrupted, err)
	}
	return out, nil
}

func capHint(size uint64) int {
	const maxHint = 64 << 20
	if size > maxHint {
		return maxHint
	}
	return int(size)
}
