package wire

import (
	"os"
	"strconv"
)

// Config controls optional decode behaviors. Defaults give strict proto3
// semantics with a bounded nesting depth.
type Config struct {
	// MaxDecodeDepth bounds message nesting during decode. Length-delimited
	// fields can nest arbitrarily deep in hostile payloads; decoding aborts
	// once a nested message would exceed this many levels.
	MaxDecodeDepth int

	// PopulateDefaultsOnDecode: when true, singular primitive and enum
	// fields absent from the wire payload are populated with their zero
	// values in the decoded result. When false (default), absent fields
	// remain missing from the result (proto3 presence semantics).
	PopulateDefaultsOnDecode bool

	// AllowUnknownEnumNumberDecode: when true, enum numbers with no
	// declared name decode to their numeric value (int32) instead of
	// failing. When false (default), unknown enum numbers cause an error
	// during decode.
	AllowUnknownEnumNumberDecode bool
}

// DefaultMaxDecodeDepth matches the recursion limit of protoc-generated
// parsers.
const DefaultMaxDecodeDepth = 100

var config = Config{
	MaxDecodeDepth: DefaultMaxDecodeDepth,
}

// SetConfig sets the global wire configuration. A non-positive
// MaxDecodeDepth is replaced with the default.
func SetConfig(c Config) {
	if c.MaxDecodeDepth <= 0 {
		c.MaxDecodeDepth = DefaultMaxDecodeDepth
	}
	config = c
}

func init() {
	// Optional env toggles for test harnesses; defaults remain unchanged if unset.
	if v := os.Getenv("WIRELITE_POPULATE_DEFAULTS"); v == "1" || v == "true" {
		config.PopulateDefaultsOnDecode = true
	}
	if v := os.Getenv("WIRELITE_ALLOW_UNKNOWN_ENUM_DECODE"); v == "1" || v == "true" {
		config.AllowUnknownEnumNumberDecode = true
	}
	if v := os.Getenv("WIRELITE_MAX_DECODE_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.MaxDecodeDepth = n
		}
	}
}
