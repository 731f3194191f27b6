// Package wkt implements well-known protobuf message types that carry
// their own wire and text codecs: Timestamp and Duration.
package wkt

import (
	"errors"
	"fmt"
)

const nanosPerSecond = 1_000_000_000

// Sentinel kinds for text-form failures. ParseError wraps one of these so
// callers can branch with errors.Is while still getting a descriptive
// message.
var (
	ErrInvalidFormat = errors.New("invalid format")
	ErrInvalidDate   = errors.New("invalid calendar date")
	ErrInvalidTime   = errors.New("invalid time of day")
	ErrOutOfRange    = errors.New("value out of range")
)

// ParseError reports why a text form was rejected.
type ParseError struct {
	Input string
	Kind  error
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Input, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Kind }

// atoiFixed parses a run of ASCII digits with no sign, no spaces and no
// length limit beyond what int holds.
func atoiFixed(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// scaleFraction turns one to nine fraction digits into nanoseconds.
func scaleFraction(digits string) (int32, bool) {
	n, ok := atoiFixed(digits)
	if !ok {
		return 0, false
	}
	for i := len(digits); i < 9; i++ {
		n *= 10
	}
	return int32(n), true
}

// formatFraction renders nanos as the shortest of 0, 3, 6 or 9 digits that
// is exact, with the leading dot. Callers pass non-negative nanos.
func formatFraction(nanos int32) string {
	switch {
	case nanos == 0:
		return ""
	case nanos%1_000_000 == 0:
		return fmt.Sprintf(".%03d", nanos/1_000_000)
	case nanos%1_000 == 0:
		return fmt.Sprintf(".%06d", nanos/1_000)
	default:
		return fmt.Sprintf(".%09d", nanos)
	}
}
