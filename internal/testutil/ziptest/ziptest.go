// Package ziptest builds ZIP fixtures in memory. Entries are written raw with
// their CRC32 and sizes in the local header so readers can verify them.
package ziptest

import (
	"archive/zip"
	"bytes"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

const MethodZstd uint16 = 93

type Entry struct {
	Name   string
	Body   []byte
	Method uint16
}

// File is shorthand for a deflated entry with a text body.
func File(name, body string) Entry {
	return Entry{Name: name, Body: []byte(body), Method: zip.Deflate}
}

// Stored is shorthand for an uncompressed entry.
func Stored(name, body string) Entry {
	return Entry{Name: name, Body: []byte(body), Method: zip.Store}
}

// Build returns the bytes of a ZIP holding entries in order.
func Build(t testing.TB, entries ...Entry) []byte {
	t.Helper()
	return BuildWithComment(t, "", entries...)
}

func BuildWithComment(t testing.TB, comment string, entries ...Entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		payload := Compress(t, e.Method, e.Body)
		w, err := zw.CreateRaw(&zip.FileHeader{
			Name:               e.Name,
			Method:             e.Method,
			CRC32:              crc32.ChecksumIEEE(e.Body),
			CompressedSize64:   uint64(len(payload)),
			UncompressedSize64: uint64(len(e.Body)),
		})
		require.NoError(t, err)
		_, err = w.Write(payload)
		require.NoError(t, err)
	}
	if comment != "" {
		require.NoError(t, zw.SetComment(comment))
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// Write stores a fixture under dir and returns its path.
func Write(t testing.TB, dir, name string, entries ...Entry) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, Build(t, entries...), 0o644))
	return path
}

// Compress encodes body for method. Unknown methods pass body through.
func Compress(t testing.TB, method uint16, body []byte) []byte {
	t.Helper()
	switch method {
	case zip.Deflate:
		var out bytes.Buffer
		fw, err := flate.NewWriter(&out, flate.DefaultCompression)
		require.NoError(t, err)
		_, err = fw.Write(body)
		require.NoError(t, err)
		require.NoError(t, fw.Close())
		return out.Bytes()
	case MethodZstd:
		enc, err := zstd.NewWriter(nil)
		require.NoError(t, err)
		defer enc.Close()
		return enc.EncodeAll(body, nil)
	default:
		return body
	}
}
