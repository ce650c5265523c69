package interfaces

import "io"

// CompressorInterface encodes save file entries with one ZIP method.
type CompressorInterface interface {
	Method() uint16
	Writer(w io.Writer) (io.WriteCloser, error)
}
