package wire

import (
	"reflect"
	"sort"

	"github.com/wirelite/wirelite/schema"
)

// MessageDecoder handles message decoding operations
type MessageDecoder struct {
	decoder *Decoder
}

// MessageEncoder handles message encoding operations
type MessageEncoder struct {
	encoder *Encoder
}

// NewMessageDecoder creates a new message decoder
func NewMessageDecoder(d *Decoder) *MessageDecoder {
	return &MessageDecoder{decoder: d}
}

// NewMessageEncoder creates a new message encoder
func NewMessageEncoder(e *Encoder) *MessageEncoder {
	return &MessageEncoder{encoder: e}
}

// DECODER METHODS

// DecodeMessage decodes a nested message
func (md *MessageDecoder) DecodeMessage(messageType string) (interface{}, error) {
	// Messages are encoded as length-delimited bytes
	bd := NewBytesDecoder(md.decoder)
	messageBytes, err := bd.DecodeBytes()
	if err != nil {
		return nil, err
	}

	if md.decoder.registry == nil {
		// No registry available, return raw bytes
		return messageBytes, nil
	}

	msg, err := md.decoder.registry.GetMessage(messageType)
	if err != nil {
		// Schema not found, return raw bytes
		return messageBytes, nil
	}

	nestedDecoder := md.decoder.child(messageBytes)
	return nestedDecoder.DecodeWithSchema(msg)
}

// ENCODER METHODS

// EncodeMessage encodes a message with the given data. Fields are emitted
// in increasing field-number order so equal inputs produce equal bytes
// (map-typed fields excepted, their entries follow Go map order).
func (me *MessageEncoder) EncodeMessage(data map[string]interface{}, msg *schema.Message) error {
	messageEncoder := NewEncoder()
	messageEncoder.registry = me.encoder.registry

	type fieldEntry struct {
		name   string
		value  interface{}
		number int32
		field  *schema.Field
	}
	var entries []fieldEntry
	for fieldName, fieldValue := range data {
		if fieldValue == nil {
			continue // nil means absent
		}
		field := findFieldByName(msg, fieldName)
		if field == nil {
			continue // Skip unknown fields
		}
		entries = append(entries, fieldEntry{
			name:   fieldName,
			value:  fieldValue,
			number: field.Number,
			field:  field,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].number < entries[j].number
	})

	for _, entry := range entries {
		field := entry.field

		var err error
		switch {
		case field.Type.Kind == schema.KindMap:
			err = me.encodeMapField(messageEncoder, entry.value, field)
		case field.Label == schema.LabelRepeated:
			// Repeated fields frame each element (or the packed run)
			// themselves.
			err = me.encodeRepeatedField(messageEncoder, entry.value, field)
		default:
			err = messageEncoder.EncodeTag(FieldNumber(field.Number), DeriveWireType(field))
			if err == nil {
				err = me.encodeFieldValue(messageEncoder, entry.value, field)
			}
		}
		if err != nil {
			return wrapEncodingFieldError(err, entry.name)
		}
	}

	me.encoder.buf = append(me.encoder.buf, messageEncoder.buf...)
	return nil
}

// encodeFieldValue encodes a single field value based on its type
func (me *MessageEncoder) encodeFieldValue(encoder *Encoder, value interface{}, field *schema.Field) error {
	switch field.Type.Kind {
	case schema.KindPrimitive:
		return encodePrimitiveValue(encoder, value, field.Type.PrimitiveType)
	case schema.KindMessage:
		return me.encodeMessageField(encoder, value, field.Type.MessageType)
	case schema.KindEnum:
		return encodeEnumValue(encoder, value, field.Type.EnumType)
	case schema.KindWrapper:
		return me.encodeWrapperField(encoder, value, field.Type.WrapperType)
	default:
		return newFieldError("unsupported field type: %s", field.Type.Kind)
	}
}

// encodeRepeatedField encodes a repeated field, packed or per-element.
func (me *MessageEncoder) encodeRepeatedField(encoder *Encoder, value interface{}, field *schema.Field) error {
	slice, err := toInterfaceSlice(value)
	if err != nil {
		return err
	}

	if field.Packed && field.Type.Kind == schema.KindPrimitive && schema.IsPackedType(field.Type.PrimitiveType) {
		return me.encodePackedElements(encoder, slice, field)
	}

	for _, element := range slice {
		if err := encoder.EncodeTag(FieldNumber(field.Number), WireTypeFor(&field.Type)); err != nil {
			return err
		}
		if err := me.encodeFieldValue(encoder, element, field); err != nil {
			return err
		}
	}
	return nil
}

// encodePackedElements encodes scalar elements as one length-delimited run.
// An empty slice emits nothing, matching the omitted-field convention.
func (me *MessageEncoder) encodePackedElements(encoder *Encoder, elements []interface{}, field *schema.Field) error {
	if len(elements) == 0 {
		return nil
	}

	payload := NewEncoder()
	for _, element := range elements {
		if err := encodePrimitiveValue(payload, element, field.Type.PrimitiveType); err != nil {
			return err
		}
	}

	if err := encoder.EncodeTag(FieldNumber(field.Number), WireBytes); err != nil {
		return err
	}
	be := NewBytesEncoder(encoder)
	return be.EncodeBytes(payload.Bytes())
}

// encodeMessageField encodes a nested message field from either a decoded
// map or pre-encoded bytes.
func (me *MessageEncoder) encodeMessageField(encoder *Encoder, value interface{}, messageTypeName string) error {
	if messageBytes, ok := value.([]byte); ok {
		be := NewBytesEncoder(encoder)
		return be.EncodeBytes(messageBytes)
	}

	messageData, ok := value.(map[string]interface{})
	if !ok {
		return newFieldError("message value must be map[string]interface{} or []byte, got %T", value)
	}

	encoded, err := me.encodeNestedMessage(messageData, messageTypeName)
	if err != nil {
		return err
	}

	be := NewBytesEncoder(encoder)
	return be.EncodeBytes(encoded)
}

// encodeNestedMessage encodes a message map to its wire bytes.
func (me *MessageEncoder) encodeNestedMessage(data map[string]interface{}, messageType string) ([]byte, error) {
	if me.encoder.registry == nil {
		return nil, newFieldError("registry is required to encode message fields")
	}
	messageSchema, err := me.encoder.registry.GetMessage(messageType)
	if err != nil {
		return nil, err
	}

	nestedEncoder := NewEncoder()
	nestedEncoder.registry = me.encoder.registry
	nestedMessageEncoder := NewMessageEncoder(nestedEncoder)
	if err := nestedMessageEncoder.EncodeMessage(data, messageSchema); err != nil {
		return nil, err
	}
	return nestedEncoder.Bytes(), nil
}

// encodeWrapperField encodes a wrapper field as a length-delimited message
// whose single value field is number 1.
func (me *MessageEncoder) encodeWrapperField(encoder *Encoder, value interface{}, wrapperType schema.WrapperType) error {
	// Accept either the bare scalar or a {"value": scalar} message map.
	if mapVal, ok := value.(map[string]interface{}); ok {
		inner, exists := mapVal["value"]
		if !exists {
			return newFieldError("wrapper map must contain 'value' field")
		}
		value = inner
	}

	primitiveType, ok := wrapperScalarType(wrapperType)
	if !ok {
		return newFieldError("unsupported wrapper type: %s", wrapperType)
	}

	wrapperEncoder := NewEncoder()
	wrapperEncoder.registry = me.encoder.registry
	if err := wrapperEncoder.EncodeTag(1, wrapperWireType(wrapperType)); err != nil {
		return err
	}
	if err := encodePrimitiveValue(wrapperEncoder, value, primitiveType); err != nil {
		return err
	}

	be := NewBytesEncoder(encoder)
	return be.EncodeBytes(wrapperEncoder.Bytes())
}

// wrapperScalarType maps a wrapper type to the primitive it carries.
func wrapperScalarType(wrapperType schema.WrapperType) (schema.PrimitiveType, bool) {
	switch wrapperType {
	case schema.WrapperDoubleValue:
		return schema.TypeDouble, true
	case schema.WrapperFloatValue:
		return schema.TypeFloat, true
	case schema.WrapperInt64Value:
		return schema.TypeInt64, true
	case schema.WrapperUInt64Value:
		return schema.TypeUint64, true
	case schema.WrapperInt32Value:
		return schema.TypeInt32, true
	case schema.WrapperUInt32Value:
		return schema.TypeUint32, true
	case schema.WrapperBoolValue:
		return schema.TypeBool, true
	case schema.WrapperStringValue:
		return schema.TypeString, true
	case schema.WrapperBytesValue:
		return schema.TypeBytes, true
	default:
		return "", false
	}
}

// encodeMapField encodes a map field entry by entry.
func (me *MessageEncoder) encodeMapField(encoder *Encoder, value interface{}, field *schema.Field) error {
	mapData, err := me.toEntryMap(value, field)
	if err != nil {
		return err
	}

	mapEncoder := NewMapEncoder(encoder)
	return mapEncoder.EncodeMap(mapData, field.Type.MapKey, field.Type.MapValue, field.Number)
}

// toEntryMap normalizes any Go map to generic keys and values, pre-encoding
// message-typed values to bytes so the map encoder only deals in scalars
// and byte blobs.
func (me *MessageEncoder) toEntryMap(value interface{}, field *schema.Field) (map[interface{}]interface{}, error) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map {
		return nil, newFieldError("map field value must be a map, got %T", value)
	}

	mapData := make(map[interface{}]interface{}, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key().Interface()
		v := iter.Value().Interface()

		if field.Type.MapValue != nil && field.Type.MapValue.Kind == schema.KindMessage {
			if messageData, ok := v.(map[string]interface{}); ok {
				encoded, err := me.encodeNestedMessage(messageData, field.Type.MapValue.MessageType)
				if err != nil {
					return nil, err
				}
				v = encoded
			}
		}
		mapData[k] = v
	}
	return mapData, nil
}

// SHARED VALUE ENCODERS

// encodePrimitiveValue encodes one scalar with the framing its declared
// type calls for, checking the dynamic Go type first.
func encodePrimitiveValue(encoder *Encoder, value interface{}, primitiveType schema.PrimitiveType) error {
	switch primitiveType {
	case schema.TypeString:
		v, ok := value.(string)
		if !ok {
			return newFieldError("expected string, got %T", value)
		}
		be := NewBytesEncoder(encoder)
		return be.EncodeString(v)
	case schema.TypeBytes:
		v, ok := value.([]byte)
		if !ok {
			return newFieldError("expected []byte, got %T", value)
		}
		be := NewBytesEncoder(encoder)
		return be.EncodeBytes(v)
	case schema.TypeInt32:
		v, ok := value.(int32)
		if !ok {
			return newFieldError("expected int32, got %T", value)
		}
		NewVarintEncoder(encoder).EncodeInt32(v)
	case schema.TypeInt64:
		v, ok := value.(int64)
		if !ok {
			return newFieldError("expected int64, got %T", value)
		}
		NewVarintEncoder(encoder).EncodeInt64(v)
	case schema.TypeUint32:
		v, ok := value.(uint32)
		if !ok {
			return newFieldError("expected uint32, got %T", value)
		}
		NewVarintEncoder(encoder).EncodeUint32(v)
	case schema.TypeUint64:
		v, ok := value.(uint64)
		if !ok {
			return newFieldError("expected uint64, got %T", value)
		}
		NewVarintEncoder(encoder).EncodeUint64(v)
	case schema.TypeSint32:
		v, ok := value.(int32)
		if !ok {
			return newFieldError("expected int32, got %T", value)
		}
		NewVarintEncoder(encoder).EncodeSint32(v)
	case schema.TypeSint64:
		v, ok := value.(int64)
		if !ok {
			return newFieldError("expected int64, got %T", value)
		}
		NewVarintEncoder(encoder).EncodeSint64(v)
	case schema.TypeBool:
		v, ok := value.(bool)
		if !ok {
			return newFieldError("expected bool, got %T", value)
		}
		NewVarintEncoder(encoder).EncodeBool(v)
	case schema.TypeFloat:
		v, ok := value.(float32)
		if !ok {
			return newFieldError("expected float32, got %T", value)
		}
		return NewFixedEncoder(encoder).EncodeFloat32(v)
	case schema.TypeDouble:
		v, ok := value.(float64)
		if !ok {
			return newFieldError("expected float64, got %T", value)
		}
		return NewFixedEncoder(encoder).EncodeFloat64(v)
	case schema.TypeFixed32:
		v, ok := value.(uint32)
		if !ok {
			return newFieldError("expected uint32, got %T", value)
		}
		return NewFixedEncoder(encoder).EncodeFixed32(v)
	case schema.TypeFixed64:
		v, ok := value.(uint64)
		if !ok {
			return newFieldError("expected uint64, got %T", value)
		}
		return NewFixedEncoder(encoder).EncodeFixed64(v)
	case schema.TypeSfixed32:
		v, ok := value.(int32)
		if !ok {
			return newFieldError("expected int32, got %T", value)
		}
		return NewFixedEncoder(encoder).EncodeSfixed32(v)
	case schema.TypeSfixed64:
		v, ok := value.(int64)
		if !ok {
			return newFieldError("expected int64, got %T", value)
		}
		return NewFixedEncoder(encoder).EncodeSfixed64(v)
	default:
		return newFieldError("unsupported primitive type: %s", primitiveType)
	}
	return nil
}

// encodeEnumValue encodes an enum from its number or its declared name.
func encodeEnumValue(encoder *Encoder, value interface{}, enumType string) error {
	ve := NewVarintEncoder(encoder)
	switch v := value.(type) {
	case int32:
		ve.EncodeEnum(v)
		return nil
	case string:
		if encoder.registry == nil {
			return newFieldError("registry is required to resolve enum name %q", v)
		}
		enum, err := encoder.registry.GetEnum(enumType)
		if err != nil {
			return err
		}
		for _, en := range enum.Values {
			if en.Name == v {
				ve.EncodeEnum(en.Number)
				return nil
			}
		}
		return newFieldError("unknown name %q for enum %s", v, enumType)
	default:
		return newFieldError("enum value must be int32 or string, got %T", value)
	}
}

// toInterfaceSlice widens any slice to []interface{}.
func toInterfaceSlice(value interface{}) ([]interface{}, error) {
	if slice, ok := value.([]interface{}); ok {
		return slice, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice {
		return nil, newFieldError("repeated field value must be a slice, got %T", value)
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// findFieldByName finds a field by name in a message, searching oneof
// groups too.
func findFieldByName(msg *schema.Message, fieldName string) *schema.Field {
	for _, field := range msg.Fields {
		if field.Name == fieldName {
			return field
		}
	}
	for _, oneOf := range msg.OneofGroups {
		for _, field := range oneOf.Fields {
			if field.Name == fieldName {
				return field
			}
		}
	}
	return nil
}

// Convenience methods for direct access (maintains backward compatibility)

// DecodeMessage - convenience method for main decoder
func (d *Decoder) DecodeMessage(messageType string) (interface{}, error) {
	md := NewMessageDecoder(d)
	return md.DecodeMessage(messageType)
}

// EncodeMessage - convenience method for main encoder
func (e *Encoder) EncodeMessage(data map[string]interface{}, msg *schema.Message) error {
	me := NewMessageEncoder(e)
	return me.EncodeMessage(data, msg)
}
