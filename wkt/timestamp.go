package wkt

import (
	"fmt"
	"strconv"
	"time"

	"github.com/wirelite/wirelite/wire"
)

const (
	ticksPerSecond = 10_000_000
	nanosPerTick   = 100
)

// Timestamps must land between 0001-01-01 and 9999-12-31 to have a text
// form.
const (
	minValidSeconds = -62135596800
	maxValidSeconds = 253402300799
)

// Timestamp is the google.protobuf.Timestamp message: an absolute point in
// time as seconds and nanoseconds since the Unix epoch, nanos always in
// [0, 1e9) regardless of sign. Resolution is one 100ns tick; constructors
// truncate finer precision.
type Timestamp struct {
	Seconds int64
	Nanos   int32
}

// NewTimestamp builds a Timestamp from a time.Time.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{
		Seconds: t.Unix(),
		Nanos:   int32(t.Nanosecond()) / nanosPerTick * nanosPerTick,
	}
}

// TimestampFromTicks builds a Timestamp from a 100ns tick count since the
// Unix epoch. Floor division keeps the remainder non-negative, so Nanos
// lands in [0, 1e9) for either sign of ticks.
func TimestampFromTicks(ticks int64) *Timestamp {
	seconds, nanos := splitTicks(ticks)
	return &Timestamp{Seconds: seconds, Nanos: nanos}
}

func splitTicks(ticks int64) (int64, int32) {
	seconds := ticks / ticksPerSecond
	frac := ticks % ticksPerSecond
	if frac < 0 {
		seconds--
		frac += ticksPerSecond
	}
	return seconds, int32(frac) * nanosPerTick
}

// ticks folds seconds and nanos into one tick delta since the epoch. Nanos
// finer than a tick are dropped here, which makes the fold the common
// renormalization point for every operation below.
func (ts *Timestamp) ticks() int64 {
	return ts.Seconds*ticksPerSecond + int64(ts.Nanos)/nanosPerTick
}

// Time converts to time.Time in UTC.
func (ts *Timestamp) Time() time.Time {
	return time.Unix(ts.Seconds, int64(ts.Nanos)).UTC()
}

// MarshalWire encodes to protobuf wire bytes: seconds as field 1 and nanos
// as field 2, both plain signed varints with zero fields omitted. The epoch
// encodes to empty bytes. Denormal values are renormalized through the
// tick delta first.
func (ts *Timestamp) MarshalWire() []byte {
	seconds, nanos := splitTicks(ts.ticks())

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

// UnmarshalWire decodes protobuf wire bytes. Absent fields read as zero,
// unknown fields are skipped by wire type, and non-canonical
// decompositions are accepted: both fields are recombined into one tick
// delta and split again so Nanos lands back in [0, 1e9).
func (ts *Timestamp) UnmarshalWire(data []byte) error {
	var seconds int64
	var nanos int32

	d := wire.NewDecoder(data)
	for d.Remaining() > 0 {
		fieldNumber, wireType, err := d.DecodeTag()
		if err != nil {
			return err
		}
		switch {
		case fieldNumber == 1 && wireType == wire.WireVarint:
			seconds, err = wire.DecodeIvarint[int64](d)
		case fieldNumber == 2 && wireType == wire.WireVarint:
			nanos, err = wire.DecodeIvarint[int32](d)
		default:
			err = d.SkipField(wireType)
		}
		if err != nil {
			return err
		}
	}

	ts.Seconds, ts.Nanos = splitTicks(seconds*ticksPerSecond + int64(nanos)/nanosPerTick)
	return nil
}

// Format renders RFC 3339 in UTC with the shortest fraction out of 0, 3, 6
// or 9 digits that represents Nanos exactly.
func (ts *Timestamp) Format() (string, error) {
	seconds, nanos := splitTicks(ts.ticks())
	if seconds < minValidSeconds || seconds > maxValidSeconds {
		return "", fmt.Errorf("%w: seconds %d outside years [1, 9999]", ErrOutOfRange, seconds)
	}

	out := time.Unix(seconds, 0).UTC().Format("2006-01-02T15:04:05")
	return out + formatFraction(nanos) + "Z", nil
}

// ParseTimestamp parses strict RFC 3339: a date, 'T', a clock, an optional
// fraction of one to nine digits, then 'Z' or a numeric offset. Fractions
// past nine digits are rejected rather than rounded. Offsets are
// normalized away, the result is always UTC.
func ParseTimestamp(s string) (Timestamp, error) {
	fail := func(kind error, format string, args ...interface{}) (Timestamp, error) {
		return Timestamp{}, &ParseError{Input: s, Kind: kind, Msg: fmt.Sprintf(format, args...)}
	}

	if len(s) < 20 {
		return fail(ErrInvalidFormat, "too short for a timestamp")
	}
	if s[4] != '-' || s[7] != '-' || s[10] != 'T' || s[13] != ':' || s[16] != ':' {
		return fail(ErrInvalidFormat, "expected YYYY-MM-DDTHH:MM:SS")
	}

	year, okY := atoiFixed(s[0:4])
	month, okMo := atoiFixed(s[5:7])
	day, okD := atoiFixed(s[8:10])
	hour, okH := atoiFixed(s[11:13])
	minute, okMi := atoiFixed(s[14:16])
	second, okS := atoiFixed(s[17:19])
	if !okY || !okMo || !okD || !okH || !okMi || !okS {
		return fail(ErrInvalidFormat, "non-digit in date or clock")
	}

	rest := s[19:]
	var nanos int32
	if rest != "" && rest[0] == '.' {
		end := 1
		for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
			end++
		}
		digits := rest[1:end]
		if len(digits) == 0 {
			return fail(ErrInvalidFormat, "empty fraction")
		}
		if len(digits) > 9 {
			return fail(ErrInvalidFormat, "fraction finer than nanoseconds")
		}
		var ok bool
		if nanos, ok = scaleFraction(digits); !ok {
			return fail(ErrInvalidFormat, "non-digit in fraction")
		}
		rest = rest[end:]
	}

	var offsetSeconds int
	switch {
	case rest == "Z":
	case len(rest) == 6 && (rest[0] == '+' || rest[0] == '-') && rest[3] == ':':
		offHour, okOH := atoiFixed(rest[1:3])
		offMinute, okOM := atoiFixed(rest[4:6])
		if !okOH || !okOM {
			return fail(ErrInvalidFormat, "non-digit in offset")
		}
		if offHour > 23 || offMinute > 59 {
			return fail(ErrInvalidTime, "offset %s out of range", rest)
		}
		offsetSeconds = offHour*3600 + offMinute*60
		if rest[0] == '-' {
			offsetSeconds = -offsetSeconds
		}
	default:
		return fail(ErrInvalidFormat, "expected Z or a ±HH:MM offset")
	}

	if year < 1 {
		return fail(ErrInvalidDate, "year must be at least 1")
	}
	if month < 1 || month > 12 {
		return fail(ErrInvalidDate, "month %d out of range", month)
	}
	if day < 1 || day > daysIn(year, month) {
		return fail(ErrInvalidDate, "day %d out of range for %04d-%02d", day, year, month)
	}
	if hour > 23 {
		return fail(ErrInvalidTime, "hour %d out of range", hour)
	}
	if minute > 59 {
		return fail(ErrInvalidTime, "minute %d out of range", minute)
	}
	if second > 59 {
		return fail(ErrInvalidTime, "second %d out of range", second)
	}

	wall := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	seconds := wall.Unix() - int64(offsetSeconds)
	if seconds < minValidSeconds || seconds > maxValidSeconds {
		return fail(ErrOutOfRange, "offset pushes the instant outside years [1, 9999]")
	}

	return Timestamp{Seconds: seconds, Nanos: nanos / nanosPerTick * nanosPerTick}, nil
}

func daysIn(year, month int) int {
	switch month {
	case 4, 6, 9, 11:
		return 30
	case 2:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	default:
		return 31
	}
}

// MarshalJSON renders the RFC 3339 text as a JSON string.
func (ts *Timestamp) MarshalJSON() ([]byte, error) {
	text, err := ts.Format()
	if err != nil {
		return nil, err
	}
	return []byte(strconv.Quote(text)), nil
}

// UnmarshalJSON parses a JSON string in the RFC 3339 text form.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	text, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("timestamp must be a JSON string: %w", err)
	}
	parsed, err := ParseTimestamp(text)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}

// String implements fmt.Stringer with the text form, falling back to the
// raw fields when out of range.
func (ts *Timestamp) String() string {
	if text, err := ts.Format(); err == nil {
		return text
	}
	return fmt.Sprintf("timestamp(seconds: %d, nanos: %d)", ts.Seconds, ts.Nanos)
}
