// Package zipstream reads ZIP archives through a positioned byte source.
// Only the central directory is parsed up front; entry payloads are read,
// inflated and verified one at a time on request.
package zipstream

import "errors"

var (
	// ErrBadArchive indicates a missing or malformed end-of-central-directory,
	// ZIP64 or central directory record. The whole archive is unusable.
	ErrBadArchive = errors.New("zipstream: bad archive")

	// ErrCorrupted indicates a CRC32 or size mismatch after decompression.
	// Only the affected entry is unusable.
	ErrCorrupted = errors.New("zipstream: corrupted entry")

	// ErrUnknownMethod indicates an unsupported compression method
	ErrUnknownMethod = errors.New("zipstream: unknown compression method")

	// ErrTruncated indicates the source returned fewer bytes than requested
	ErrTruncated = errors.New("zipstream: truncated read")
)
