package asefile

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies the reason Decode or a render operation failed.
type ErrorKind int

const (
	// InvalidFile covers a bad magic number or a truncated header.
	InvalidFile ErrorKind = iota
	// UnsupportedFeature covers a color-profile chunk of a kind this
	// reader does not recognize. Embedded ICC data is kept uninterpreted
	// and its presence is never an error.
	UnsupportedFeature
	// BadChunk covers a malformed chunk payload or an out-of-range
	// reference inside one.
	BadChunk
	// BadCompression covers a deflate failure or a decompressed-size
	// mismatch.
	BadCompression
	// InconsistentModel covers a linked-cel cycle, a layer-count
	// mismatch across frames, or an out-of-range tile index.
	InconsistentModel
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidFile:
		return "invalid file"
	case UnsupportedFeature:
		return "unsupported feature"
	case BadChunk:
		return "bad chunk"
	case BadCompression:
		return "bad compression"
	case InconsistentModel:
		return "inconsistent model"
	default:
		return "unknown error"
	}
}

// ParseError is the concrete error type behind every failure Decode can
// return. ChunkType is -1 when the failure isn't chunk-specific (e.g. a
// truncated file header).
type ParseError struct {
	Kind      ErrorKind
	ChunkType int
	Offset    int64
	Msg       string
}

func (e *ParseError) Error() string {
	if e.ChunkType >= 0 {
		return fmt.Sprintf("%s: chunk 0x%04x at offset %d: %s", e.Kind, e.ChunkType, e.Offset, e.Msg)
	}
	return fmt.Sprintf("%s at offset %d: %s", e.Kind, e.Offset, e.Msg)
}

func newParseError(kind ErrorKind, chunkType int, offset int64, format string, args ...any) error {
	return errors.WithStack(&ParseError{
		Kind:      kind,
		ChunkType: chunkType,
		Offset:    offset,
		Msg:       fmt.Sprintf(format, args...),
	})
}

func errInvalidFile(offset int64, format string, args ...any) error {
	return newParseError(InvalidFile, -1, offset, format, args...)
}

func errUnsupportedFeature(format string, args ...any) error {
	return newParseError(UnsupportedFeature, -1, 0, format, args...)
}

func errBadChunk(chunkType int, offset int64, format string, args ...any) error {
	return newParseError(BadChunk, chunkType, offset, format, args...)
}

func errBadCompression(chunkType int, offset int64, format string, args ...any) error {
	return newParseError(BadCompression, chunkType, offset, format, args...)
}

func errInconsistentModel(format string, args ...any) error {
	return newParseError(InconsistentModel, -1, 0, format, args...)
}

// errShortRead reports a bounds violation while decoding a chunk payload;
// it always surfaces to the caller as a BadChunk.
func errShortRead(offset, want, have int) error {
	return errBadChunk(-1, int64(offset), "short read: need %d bytes, have %d", want, have)
}
