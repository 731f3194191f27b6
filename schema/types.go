package schema

// Message represents a message definition
type Message struct {
	Name        string     `json:"name"`         // "Order"
	Fields      []*Field   `json:"fields"`       // message fields
	NestedTypes []*Message `json:"nested_types"` // nested messages
	NestedEnums []*Enum    `json:"nested_enums"` // nested enums
	OneofGroups []*Oneof   `json:"oneof_groups"` // oneof groups
	MapEntry    bool       `json:"map_entry"`    // is this a map entry?
	IsWrapper   bool       `json:"is_wrapper"`   // is this a wrapper?
}

// Field represents a message field
type Field struct {
	Name       string     `json:"name"`        // "order_id"
	Number     int32      `json:"number"`      // 1
	Label      FieldLabel `json:"label"`       // optional, required, repeated
	Type       FieldType  `json:"type"`        // field type information
	JsonName   string     `json:"json_name"`   // JSON field name
	OneofIndex int32      `json:"oneof_index"` // oneof group index (-1 if not in oneof)
	Packed     bool       `json:"packed"`      // packed encoding for repeated scalars
}

// Oneof represents a oneof group
type Oneof struct {
	Name   string   `json:"name"`   // "payment_method"
	Fields []*Field `json:"fields"` // fields in this oneof
}

// FieldLabel represents field labels
type FieldLabel string

const (
	LabelOptional FieldLabel = "optional"
	LabelRequired FieldLabel = "required"
	LabelRepeated FieldLabel = "repeated"
)

// FieldType represents field type information. For repeated fields the
// type describes the element; the repetition lives on Field.Label.
type FieldType struct {
	Kind          TypeKind      `json:"kind"`                     // primitive, message, enum, map, wrapper
	PrimitiveType PrimitiveType `json:"primitive_type,omitempty"` // for primitive types
	MessageType   string        `json:"message_type,omitempty"`   // for message types: "Order", "Order.LineItem"
	EnumType      string        `json:"enum_type,omitempty"`      // for enum types
	WrapperType   WrapperType   `json:"wrapper_type,omitempty"`   // for wrapper types
	MapKey        *FieldType    `json:"map_key,omitempty"`        // for map key type
	MapValue      *FieldType    `json:"map_value,omitempty"`      // for map value type
}

// TypeKind represents the kind of field type
type TypeKind string

const (
	KindPrimitive TypeKind = "primitive"
	KindMessage   TypeKind = "message"
	KindEnum      TypeKind = "enum"
	KindMap       TypeKind = "map"
	KindWrapper   TypeKind = "wrapper"
)

// PrimitiveType represents protobuf primitive types
type PrimitiveType string

const (
	TypeDouble   PrimitiveType = "double"
	TypeFloat    PrimitiveType = "float"
	TypeInt64    PrimitiveType = "int64"
	TypeUint64   PrimitiveType = "uint64"
	TypeInt32    PrimitiveType = "int32"
	TypeFixed64  PrimitiveType = "fixed64"
	TypeFixed32  PrimitiveType = "fixed32"
	TypeBool     PrimitiveType = "bool"
	TypeString   PrimitiveType = "string"
	TypeBytes    PrimitiveType = "bytes"
	TypeUint32   PrimitiveType = "uint32"
	TypeSfixed32 PrimitiveType = "sfixed32"
	TypeSfixed64 PrimitiveType = "sfixed64"
	TypeSint32   PrimitiveType = "sint32"
	TypeSint64   PrimitiveType = "sint64"
)

var packedEligible = map[PrimitiveType]struct{}{
	TypeDouble:   {},
	TypeFloat:    {},
	TypeInt64:    {},
	TypeUint64:   {},
	TypeInt32:    {},
	TypeFixed64:  {},
	TypeFixed32:  {},
	TypeBool:     {},
	TypeUint32:   {},
	TypeSfixed32: {},
	TypeSfixed64: {},
	TypeSint32:   {},
	TypeSint64:   {},
}

// IsPackedType checks and returns if the Primitive type is packed for repeated label
func IsPackedType(t PrimitiveType) bool {
	_, ok := packedEligible[t]
	return ok
}

// WrapperType represents protobuf wrapper types
type WrapperType string

const (
	WrapperDoubleValue WrapperType = "google.protobuf.DoubleValue"
	WrapperFloatValue  WrapperType = "google.protobuf.FloatValue"
	WrapperInt64Value  WrapperType = "google.protobuf.Int64Value"
	WrapperUInt64Value WrapperType = "google.protobuf.UInt64Value"
	WrapperInt32Value  WrapperType = "google.protobuf.Int32Value"
	WrapperUInt32Value WrapperType = "google.protobuf.UInt32Value"
	WrapperBoolValue   WrapperType = "google.protobuf.BoolValue"
	WrapperStringValue WrapperType = "google.protobuf.StringValue"
	WrapperBytesValue  WrapperType = "google.protobuf.BytesValue"
)

// Enum represents an enum definition
type Enum struct {
	Name       string       `json:"name"`        // "OrderStatus"
	Values     []*EnumValue `json:"values"`      // enum values
	AllowAlias bool         `json:"allow_alias"` // allow_alias option
}

// EnumValue represents an enum value
type EnumValue struct {
	Name     string `json:"name"`      // "SHIPPED"
	Number   int32  `json:"number"`    // 1
	JsonName string `json:"json_name"` // JSON field name
}
