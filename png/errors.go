package png

import (
	"errors"
	"fmt"
)

// Code categorizes a codec error.
type Code int

const (
	// CodeFormat reports that the input is not a valid PNG stream.
	CodeFormat Code = iota + 1
	// CodeRange reports a pixel coordinate outside the image.
	CodeRange
	// CodeCompression reports a malformed zlib/deflate stream.
	CodeCompression
	// CodeChecksum reports a CRC-32 or Adler-32 mismatch.
	CodeChecksum
	// CodeState reports a call that is not valid in the builder's current state.
	CodeState
)

func (c Code) String() string {
	switch c {
	case CodeFormat:
		return "FormatError"
	case CodeRange:
		return "RangeError"
	case CodeCompression:
		return "CompressionError"
	case CodeChecksum:
		return "ChecksumError"
	case CodeState:
		return "StateError"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Error is the error type returned by this package.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("png: %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("png: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by code so that errors.Is(err, ErrSignature) style
// comparisons work against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func formatError(format string, args ...interface{}) error {
	return &Error{Code: CodeFormat, Message: fmt.Sprintf(format, args...)}
}

func wrapFormatError(err error, format string, args ...interface{}) error {
	return &Error{Code: CodeFormat, Message: fmt.Sprintf(format, args...), Err: err}
}

func rangeError(format string, args ...interface{}) error {
	return &Error{Code: CodeRange, Message: fmt.Sprintf(format, args...)}
}

// AsError returns err as an *Error if one is in its chain.
func AsError(err error) (*Error, bool) {
	var pngErr *Error
	if errors.As(err, &pngErr) {
		return pngErr, true
	}
	return nil, false
}

// IsFormatError reports whether err means the input could not be decoded.
// Compression and checksum failures count as format errors.
func IsFormatError(err error) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	return e.Code == CodeFormat || e.Code == CodeCompression || e.Code == CodeChecksum
}

// IsRangeError reports whether err is an out-of-bounds pixel access.
func IsRangeError(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code == CodeRange
}

var (
	ErrSignature = &Error{Code: CodeFormat, Message: "not a PNG file"}
	ErrFinalized = &Error{Code: CodeState, Message: "builder already saved"}
)
