package zipstream

import (
	"archive/zip"
	"archivist/internal/testutil/ziptest"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openBytes(t *testing.T, data []byte) *Archive {
	t.Helper()
	a, err := Open(context.Background(), NewBytesSource(data, "fixture.zip"))
	require.NoError(t, err)
	return a
}

func TestOpen_ReadsAllMethods(t *testing.T) {
	data := ziptest.Build(t,
		ziptest.Stored("data/stored.txt", "plain body"),
		ziptest.File("data/deflated.js", strings.Repeat("window.YTD.tweet.part0 = []\n", 50)),
		ziptest.Entry{Name: "data/zstd.bin", Body: []byte("zstandard payload"), Method: ziptest.MethodZstd},
	)
	a := openBytes(t, data)

	names := make([]string, 0, 3)
	for _, f := range a.Files() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"data/stored.txt", "data/deflated.js", "data/zstd.bin"}, names)
	assert.Equal(t, "fixture.zip", a.Name())

	f, ok := a.File("data/deflated.js")
	require.True(t, ok)
	assert.Equal(t, Deflate, f.Method)
	assert.False(t, f.HasDataDescriptor())

	body, err := a.Read(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("window.YTD.tweet.part0 = []\n", 50), string(body))

	f, _ = a.File("data/stored.txt")
	body, err = a.Read(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, "plain body", string(body))

	f, _ = a.File("data/zstd.bin")
	body, err = a.Read(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, "zstandard payload", string(body))
}

func TestRead_CorruptedEntryIsIsolated(t *testing.T) {
	data := ziptest.Build(t,
		ziptest.Stored("a.txt", "hello world"),
		ziptest.Stored("b.txt", "second entry"),
	)
	idx := bytes.Index(data, []byte("hello world"))
	require.Greater(t, idx, 0)
	data[idx] = 'j'

	a := openBytes(t, data)
	fa, _ := a.File("a.txt")
	_, err := a.Read(context.Background(), fa)
	assert.ErrorIs(t, err, ErrCorrupted)

	fb, _ := a.File("b.txt")
	body, err := a.Read(context.Background(), fb)
	require.NoError(t, err)
	assert.Equal(t, "second entry", string(body))
}

func TestRead_DataDescriptorSkipsVerification(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "streamed.txt", Method: zip.Store})
	require.NoError(t, err)
	_, err = w.Write([]byte("abcdef"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	data := buf.Bytes()
	idx := bytes.Index(data, []byte("abcdef"))
	require.Greater(t, idx, 0)
	data[idx] = 'z'

	a := openBytes(t, data)
	f, _ := a.File("streamed.txt")
	require.True(t, f.HasDataDescriptor())
	body, err := a.Read(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, "zbcdef", string(body))
}

func TestRead_UnknownMethod(t *testing.T) {
	data := ziptest.Build(t, ziptest.Entry{Name: "x.bz2", Body: []byte("raw"), Method: 12})
	a := openBytes(t, data)
	f, _ := a.File("x.bz2")
	_, err := a.Read(context.Background(), f)
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestOpen_NotAnArchive(t *testing.T) {
	_, err := Open(context.Background(), NewBytesSource(bytes.Repeat([]byte("nope"), 1000), ""))
	assert.ErrorIs(t, err, ErrBadArchive)

	_, err = Open(context.Background(), NewBytesSource([]byte("PK"), ""))
	assert.ErrorIs(t, err, ErrBadArchive)
}

func TestOpen_TruncatedEndRecord(t *testing.T) {
	data := ziptest.Build(t, ziptest.File("a.txt", "content"))
	_, err := Open(context.Background(), NewBytesSource(data[:len(data)-10], ""))
	assert.ErrorIs(t, err, ErrBadArchive)
}

func TestOpen_LongCommentWidensWindow(t *testing.T) {
	comment := strings.Repeat("c", 5000)
	data := ziptest.BuildWithComment(t, comment, ziptest.File("a.txt", "content"))

	a := openBytes(t, data)
	assert.Equal(t, comment, a.Comment())
	f, ok := a.File("a.txt")
	require.True(t, ok)
	body, err := a.Read(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, "content", string(body))
}

func TestOpen_DirectoryLargerThanReadChunk(t *testing.T) {
	entries := make([]ziptest.Entry, 0, 600)
	for i := range 600 {
		name := fmt.Sprintf("%s/%04d.txt", strings.Repeat("d", 200), i)
		entries = append(entries, ziptest.Stored(name, fmt.Sprintf("body %d", i)))
	}
	a := openBytes(t, ziptest.Build(t, entries...))
	require.Len(t, a.Files(), 600)

	last := a.Files()[599]
	body, err := a.Read(context.Background(), last)
	require.NoError(t, err)
	assert.Equal(t, "body 599", string(body))
}

func TestOpen_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Open(ctx, NewBytesSource(ziptest.Build(t, ziptest.File("a", "b")), ""))
	assert.ErrorIs(t, err, context.Canceled)
}

// zip64Fixture lays out one stored entry whose central record defers sizes
// and offset to the zip64 extra field, followed by zip64 end records.
func zip64Fixture(name string, body []byte) []byte {
	var buf bytes.Buffer
	le := binary.LittleEndian
	sum := crc32.ChecksumIEEE(body)

	binary.Write(&buf, le, uint32(localSignature))
	binary.Write(&buf, le, []uint16{45, 0, 0, 0, 0x21})
	binary.Write(&buf, le, []uint32{sum, uint32(len(body)), uint32(len(body))})
	binary.Write(&buf, le, []uint16{uint16(len(name)), 0})
	buf.WriteString(name)
	buf.Write(body)

	cdOffset := uint64(buf.Len())
	binary.Write(&buf, le, uint32(centralSignature))
	binary.Write(&buf, le, []uint16{45, 45, 0, 0, 0, 0x21})
	binary.Write(&buf, le, []uint32{sum, uint32max, uint32max})
	binary.Write(&buf, le, []uint16{uint16(len(name)), 28, 0, 0, 0})
	binary.Write(&buf, le, []uint32{0, uint32max})
	buf.WriteString(name)
	binary.Write(&buf, le, []uint16{zip64ExtraID, 24})
	binary.Write(&buf, le, []uint64{uint64(len(body)), uint64(len(body)), 0})
	cdSize := uint64(buf.Len()) - cdOffset

	recPos := uint64(buf.Len())
	binary.Write(&buf, le, uint32(zip64EOCDSignature))
	binary.Write(&buf, le, uint64(44))
	binary.Write(&buf, le, []uint16{45, 45})
	binary.Write(&buf, le, []uint32{0, 0})
	binary.Write(&buf, le, []uint64{1, 1, cdSize, cdOffset})

	binary.Write(&buf, le, uint32(zip64LocatorSignature))
	binary.Write(&buf, le, uint32(0))
	binary.Write(&buf, le, recPos)
	binary.Write(&buf, le, uint32(1))

	binary.Write(&buf, le, uint32(eocdSignature))
	binary.Write(&buf, le, []uint16{0, 0, uint16max, uint16max})
	binary.Write(&buf, le, []uint32{uint32max, uint32max})
	binary.Write(&buf, le, uint16(0))
	return buf.Bytes()
}

func TestOpen_Zip64(t *testing.T) {
	a := openBytes(t, zip64Fixture("big.txt", []byte("zip64 body")))
	require.Len(t, a.Files(), 1)

	f := a.Files()[0]
	assert.Equal(t, "big.txt", f.Name)
	assert.Equal(t, uint64(10), f.UncompressedSize)
	assert.Equal(t, uint64(0), f.LocalHeaderOffset)

	body, err := a.Read(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, "zip64 body", string(body))
}

func TestOpen_Zip64MissingLocator(t *testing.T) {
	data := zip64Fixture("big.txt", []byte("zip64 body"))
	loc := len(data) - eocdLen - zip64LocatorLen
	data[loc] = 0

	_, err := Open(context.Background(), NewBytesSource(data, ""))
	assert.ErrorIs(t, err, ErrBadArchive)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.zip")
	require.NoError(t, os.WriteFile(path, ziptest.Build(t, ziptest.File("a.txt", "on disk")), 0o644))

	src := NewFileSource(path)
	a, err := Open(context.Background(), src)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, path, a.Name())
	f, _ := a.File("a.txt")
	body, err := a.Read(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, "on disk", string(body))

	require.NoError(t, a.Close())
	_, err = src.Read(make([]byte, 1), 0, 1, 0)
	assert.Error(t, err)
}

func TestReaderAtSource(t *testing.T) {
	data := ziptest.Build(t, ziptest.File("a.txt", "reader at"))
	a, err := Open(context.Background(), NewReaderAtSource(bytes.NewReader(data), int64(len(data)), "mem"))
	require.NoError(t, err)

	f, _ := a.File("a.txt")
	body, err := a.Read(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, "reader at", string(body))
}

func TestBytesSource_ShortRead(t *testing.T) {
	src := NewBytesSource([]byte("abc"), "")
	_, err := readAt(src, 1, 5)
	assert.ErrorIs(t, err, ErrTruncated)
}
