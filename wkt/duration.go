package wkt

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/wirelite/wirelite/wire"
)

// Durations stay within ±10000 years.
const maxDurationSeconds = 315576000000

// Duration is the google.protobuf.Duration message: a signed span of time
// as seconds and nanoseconds. Canonical values keep both fields on the
// same sign and Nanos inside (-1e9, 1e9).
type Duration struct {
	Seconds int64
	Nanos   int32
}

// NewDuration builds a Duration from a time.Duration.
func NewDuration(d time.Duration) *Duration {
	nanos := d.Nanoseconds()
	return &Duration{
		Seconds: nanos / nanosPerSecond,
		Nanos:   int32(nanos % nanosPerSecond),
	}
}

// normalized carries whole seconds out of Nanos and restores sign
// agreement. It never folds the span into one nanosecond count, which
// would overflow past ±292 years.
func (d *Duration) normalized() (int64, int32) {
	seconds := d.Seconds + int64(d.Nanos)/nanosPerSecond
	nanos := d.Nanos % nanosPerSecond
	if seconds > 0 && nanos < 0 {
		seconds--
		nanos += nanosPerSecond
	} else if seconds < 0 && nanos > 0 {
		seconds++
		nanos -= nanosPerSecond
	}
	return seconds, nanos
}

// AsDuration converts to time.Duration, saturating at the int64 nanosecond
// bounds for spans time.Duration cannot hold.
func (d *Duration) AsDuration() time.Duration {
	seconds, nanos := d.normalized()
	dur := time.Duration(seconds) * time.Second
	overflow := dur/time.Second != time.Duration(seconds)
	dur += time.Duration(nanos)
	overflow = overflow || (seconds < 0 && nanos < 0 && dur > 0)
	overflow = overflow || (seconds > 0 && nanos > 0 && dur < 0)
	if overflow {
		if seconds < 0 {
			return time.Duration(math.MinInt64)
		}
		return time.Duration(math.MaxInt64)
	}
	return dur
}

// MarshalWire encodes seconds as field 1 and nanos as field 2, both plain
// signed varints with zero fields omitted. The zero duration encodes to
// empty bytes.
func (d *Duration) MarshalWire() []byte {
	seconds, nanos := d.normalized()

	var buf []byte
	if seconds != 0 {
		buf = wire.AppendUvarint(buf, uint64(wire.MakeTag(1, wire.WireVarint)))
		buf = wire.AppendUvarint(buf, uint64(seconds))
	}
	if nanos != 0 {
		buf = wire.AppendUvarint(buf, uint64(wire.MakeTag(2, wire.WireVarint)))
		buf = wire.AppendUvarint(buf, uint64(int64(nanos)))
	}
	return buf
}

// UnmarshalWire decodes protobuf wire bytes, skipping unknown fields and
// restoring sign agreement on the result.
func (d *Duration) UnmarshalWire(data []byte) error {
	var out Duration

	dec := wire.NewDecoder(data)
	for dec.Remaining() > 0 {
		fieldNumber, wireType, err := dec.DecodeTag()
		if err != nil {
			return err
		}
		switch {
		case fieldNumber == 1 && wireType == wire.WireVarint:
			out.Seconds, err = wire.DecodeIvarint[int64](dec)
		case fieldNumber == 2 && wireType == wire.WireVarint:
			out.Nanos, err = wire.DecodeIvarint[int32](dec)
		default:
			err = dec.SkipField(wireType)
		}
		if err != nil {
			return err
		}
	}

	out.Seconds, out.Nanos = out.normalized()
	*d = out
	return nil
}

// Format renders the protobuf JSON text form: signed decimal seconds, an
// optional fraction trimmed to 3, 6 or 9 digits, then 's'.
func (d *Duration) Format() (string, error) {
	seconds, nanos := d.normalized()
	if seconds < -maxDurationSeconds || seconds > maxDurationSeconds {
		return "", fmt.Errorf("%w: %d seconds", ErrOutOfRange, seconds)
	}

	sign := ""
	if seconds < 0 || nanos < 0 {
		sign = "-"
		seconds = -seconds
		if nanos < 0 {
			nanos = -nanos
		}
	}
	return fmt.Sprintf("%s%d%ss", sign, seconds, formatFraction(nanos)), nil
}

// ParseDuration parses the text form: an optional sign, decimal seconds,
// an optional fraction of one to nine digits and the trailing 's'. An
// empty integer part reads as zero, so ".5s" is accepted.
func ParseDuration(s string) (Duration, error) {
	fail := func(kind error, format string, args ...interface{}) (Duration, error) {
		return Duration{}, &ParseError{Input: s, Kind: kind, Msg: fmt.Sprintf(format, args...)}
	}

	if len(s) < 2 || s[len(s)-1] != 's' {
		return fail(ErrInvalidFormat, "missing 's' suffix")
	}
	core := s[:len(s)-1]

	neg := false
	if core[0] == '+' || core[0] == '-' {
		neg = core[0] == '-'
		core = core[1:]
	}
	if core == "" {
		return fail(ErrInvalidFormat, "missing digits")
	}

	secPart := core
	fracPart := ""
	if i := strings.IndexByte(core, '.'); i >= 0 {
		secPart, fracPart = core[:i], core[i+1:]
		if fracPart == "" {
			return fail(ErrInvalidFormat, "empty fraction")
		}
		if len(fracPart) > 9 {
			return fail(ErrInvalidFormat, "fraction finer than nanoseconds")
		}
	}
	if secPart == "" {
		secPart = "0"
	}

	seconds, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return fail(ErrInvalidFormat, "bad seconds %q", secPart)
	}

	var nanos int32
	if fracPart != "" {
		var ok bool
		nanos, ok = scaleFraction(fracPart)
		if !ok {
			return fail(ErrInvalidFormat, "non-digit in fraction")
		}
	}

	if neg {
		seconds = -seconds
		nanos = -nanos
	}
	if seconds < -maxDurationSeconds || seconds > maxDurationSeconds {
		return fail(ErrOutOfRange, "%d seconds", seconds)
	}
	return Duration{Seconds: seconds, Nanos: nanos}, nil
}

// MarshalJSON renders the text form as a JSON string.
func (d *Duration) MarshalJSON() ([]byte, error) {
	text, err := d.Format()
	if err != nil {
		return nil, err
	}
	return []byte(strconv.Quote(text)), nil
}

// UnmarshalJSON parses a JSON string in the text form.
func (d *Duration) UnmarshalJSON(data []byte) error {
	text, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("duration must be a JSON string: %w", err)
	}
	parsed, err := ParseDuration(text)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// String implements fmt.Stringer with the text form, falling back to the
// raw fields when out of range.
func (d *Duration) String() string {
	if text, err := d.Format(); err == nil {
		return text
	}
	return fmt.Sprintf("duration(seconds: %d, nanos: %d)", d.Seconds, d.Nanos)
}
