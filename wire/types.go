package wire

import (
	"fmt"

	"github.com/wirelite/wirelite/schema"
)

// ===== PROTOBUF WIRE FORMAT TYPES =====

// WireType represents protobuf wire format types
type WireType int32

const (
	WireVarint  WireType = 0 // int32, int64, uint32, uint64, sint32, sint64, bool, enum
	WireFixed64 WireType = 1 // fixed64, sfixed64, double
	WireBytes   WireType = 2 // string, bytes, embedded messages, packed repeated fields
	WireFixed32 WireType = 5 // fixed32, sfixed32, float
)

// String returns the wire type name for diagnostics.
func (wt WireType) String() string {
	switch wt {
	case WireVarint:
		return "varint"
	case WireFixed64:
		return "fixed64"
	case WireBytes:
		return "bytes"
	case WireFixed32:
		return "fixed32"
	default:
		return fmt.Sprintf("invalid(%d)", int32(wt))
	}
}

// IsValid reports whether the wire type is one of the four legal values.
// Wire types 3 and 4 (the deprecated group delimiters) and 6, 7 are not.
func (wt WireType) IsValid() bool {
	switch wt {
	case WireVarint, WireFixed64, WireBytes, WireFixed32:
		return true
	default:
		return false
	}
}

// FieldNumber represents a protobuf field number
type FieldNumber int32

// MaxFieldNumber is the largest legal field number; tags reserve 29 bits
// for the field number and 3 for the wire type.
const MaxFieldNumber FieldNumber = 1<<29 - 1

// Tag represents a protobuf field tag (field number + wire type)
type Tag uint64

// MakeTag creates a tag from field number and wire type
func MakeTag(fieldNumber FieldNumber, wireType WireType) Tag {
	return Tag(uint64(fieldNumber)<<3 | uint64(wireType))
}

// ParseTag parses a tag into field number and wire type
func ParseTag(tag Tag) (FieldNumber, WireType) {
	return FieldNumber(tag >> 3), WireType(tag & 0x7)
}

// CheckTag validates a field number and wire type pair. Violations here are
// schema-authoring mistakes, so the registry rejects them at registration
// time rather than letting them surface during encoding.
func CheckTag(fieldNumber FieldNumber, wireType WireType) error {
	if fieldNumber < 1 || fieldNumber > MaxFieldNumber {
		return fmt.Errorf("%w: %d", ErrTagOutOfRange, fieldNumber)
	}
	if !wireType.IsValid() {
		return fmt.Errorf("%w: %d", ErrMalformedTag, int32(wireType))
	}
	return nil
}

// WireTypeFor returns the wire type a single value of the given field type
// occupies on the wire. Repeated and packed framing is handled by
// DeriveWireType.
func WireTypeFor(fieldType *schema.FieldType) WireType {
	switch fieldType.Kind {
	case schema.KindPrimitive:
		switch fieldType.PrimitiveType {
		case schema.TypeString, schema.TypeBytes:
			return WireBytes
		case schema.TypeFloat, schema.TypeFixed32, schema.TypeSfixed32:
			return WireFixed32
		case schema.TypeDouble, schema.TypeFixed64, schema.TypeSfixed64:
			return WireFixed64
		default:
			return WireVarint
		}
	case schema.KindMessage:
		return WireBytes
	case schema.KindEnum:
		return WireVarint
	case schema.KindMap:
		return WireBytes
	case schema.KindWrapper:
		return WireBytes // wrapper types are encoded as length-delimited messages
	default:
		return WireVarint
	}
}

// DeriveWireType maps a field declaration to its on-wire framing: packed
// repeated scalars collapse to a single length-delimited run, unpacked
// repeated fields use the element's wire type on every occurrence.
func DeriveWireType(field *schema.Field) WireType {
	if field.Label == schema.LabelRepeated && field.Packed && schema.IsPackedType(field.Type.PrimitiveType) {
		return WireBytes
	}
	return WireTypeFor(&field.Type)
}

// Value represents a decoded protobuf value
type Value struct {
	FieldNumber FieldNumber
	WireType    WireType
	Data        interface{} // Actual value
}
