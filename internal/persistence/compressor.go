package persistence

import (
	"archivist/internal/persistence/interfaces"
	"archivist/internal/structures"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

type DeflateCompression struct {
	level int
}

func (d *DeflateCompression) Method() uint16 {
	return zip.Deflate
}

func (d *DeflateCompression) Writer(w io.Writer) (io.WriteCloser, error) {
	return flate.NewWriter(w, d.level)
}

type ZstdCompression struct {
	writer func(w io.Writer) (io.WriteCloser, error)
}

func (z *ZstdCompression) Method() uint16 {
	return zstd.ZipMethodWinZip
}

func (z *ZstdCompression) Writer(w io.Writer) (io.WriteCloser, error) {
	return z.writer(w)
}

func NewDeflateCompressor() interfaces.CompressorInterface {
	return &DeflateCompression{level: flate.DefaultCompression}
}

func NewZstdCompressor() interfaces.CompressorInterface {
	return &ZstdCompression{writer: zstd.ZipCompressor(zstd.WithEncoderLevel(zstd.SpeedDefault))}
}

// NewCompressor picks the entry compression configured for save files.
func NewCompressor(conf *structures.Config) (interfaces.CompressorInterface, error) {
	switch conf.Persistence.Compression {
	case "", "deflate":
		return NewDeflateCompressor(), nil
	case "zstd":
		return NewZstdCompressor(), nil
	default:
		return nil, fmt.Errorf("unknown save compression %q", conf.Persistence.Compression)
	}
}
