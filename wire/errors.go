package wire

import (
	"errors"
	"fmt"
	"strings"
)

// Wire format decoding errors. Every decode failure unwraps to exactly one
// of these sentinels so callers can branch with errors.Is.
var (
	// ErrTruncated reports a byte source exhausted before the expected
	// bytes or terminator were seen.
	ErrTruncated = errors.New("truncated input")

	// ErrMalformedVarint reports a varint whose encoding never terminates
	// within ten bytes, or whose value is too wide for the target type.
	ErrMalformedVarint = errors.New("malformed varint")

	// ErrMalformedTag reports a field tag carrying illegal wire-type bits.
	ErrMalformedTag = errors.New("malformed tag: illegal wire type")

	// ErrTagOutOfRange reports a field number of zero or >= 2^29.
	ErrTagOutOfRange = errors.New("tag field number out of range")

	// ErrNegativeLength reports a length-delimited field declaring a
	// negative byte count.
	ErrNegativeLength = errors.New("negative length prefix")

	// ErrOverflow reports a narrowing conversion that loses information.
	ErrOverflow = errors.New("integer overflow")
)

// FieldError represents an encoding/decoding error with a field path.
type FieldError struct {
	FieldPath  []string // e.g., ["order", "shipping", "address", "zip_code"]
	Err        error    // underlying error
	IsDecoding bool     // true for decode-side errors
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	op := "encoding"
	if e.IsDecoding {
		op = "decoding"
	}
	if len(e.FieldPath) == 0 {
		return fmt.Sprintf("%s error: %v", op, e.Err)
	}
	return fmt.Sprintf("%s error at field path %s: %v", op, strings.Join(e.FieldPath, "."), e.Err)
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for compatibility.
func (e *FieldError) Is(target error) bool {
	_, ok := target.(*FieldError)
	return ok
}

// newFieldError creates a bare field-level error with no path attached yet.
func newFieldError(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// wrapEncodingFieldError prepends a field name to an encode-side error path.
// Wrapping an existing FieldError extends its path instead of nesting, so
// the final message reads as a single dotted path.
func wrapEncodingFieldError(err error, fieldName string) error {
	return wrapFieldError(err, fieldName, false)
}

// wrapDecodingFieldError prepends a field name to a decode-side error path.
func wrapDecodingFieldError(err error, fieldName string) error {
	return wrapFieldError(err, fieldName, true)
}

func wrapFieldError(err error, fieldName string, decoding bool) error {
	if err == nil {
		return nil
	}

	var fe *FieldError
	if errors.As(err, &fe) {
		return &FieldError{
			FieldPath:  append([]string{fieldName}, fe.FieldPath...),
			Err:        fe.Err,
			IsDecoding: fe.IsDecoding,
		}
	}

	return &FieldError{
		FieldPath:  []string{fieldName},
		Err:        err,
		IsDecoding: decoding,
	}
}
