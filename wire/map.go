package wire

import (
	"fmt"

	"github.com/wirelite/wirelite/schema"
)

// MapDecoder handles map decoding operations. On the wire a map field is a
// repeated synthetic entry message with key = field 1 and value = field 2.
type MapDecoder struct {
	decoder *Decoder
}

// MapEncoder handles map encoding operations
type MapEncoder struct {
	encoder *Encoder
}

// NewMapDecoder creates a new map decoder
func NewMapDecoder(d *Decoder) *MapDecoder {
	return &MapDecoder{decoder: d}
}

// NewMapEncoder creates a new map encoder
func NewMapEncoder(e *Encoder) *MapEncoder {
	return &MapEncoder{encoder: e}
}

// DECODER METHODS

// DecodeMapEntry decodes a map entry (key-value pair). Absent key or value
// fields fall back to their zero values.
func (md *MapDecoder) DecodeMapEntry(keyType, valueType *schema.FieldType) (interface{}, interface{}, error) {
	bd := NewBytesDecoder(md.decoder)
	entryBytes, err := bd.DecodeRawBytes()
	if err != nil {
		return nil, nil, err
	}

	entryDecoder := md.decoder.child(entryBytes)

	var key, value interface{}

	for entryDecoder.Remaining() > 0 {
		fieldNumber, wireType, err := entryDecoder.DecodeTag()
		if err != nil {
			return nil, nil, err
		}

		switch fieldNumber {
		case 1:
			key, err = md.decodeMapField(entryDecoder, keyType, wireType)
			if err != nil {
				return nil, nil, wrapDecodingFieldError(err, "key")
			}
		case 2:
			value, err = md.decodeMapField(entryDecoder, valueType, wireType)
			if err != nil {
				return nil, nil, wrapDecodingFieldError(err, "value")
			}
		default:
			if err := entryDecoder.SkipField(wireType); err != nil {
				return nil, nil, err
			}
		}
	}

	if key == nil {
		key = mapFieldDefault(entryDecoder, keyType)
	}
	if value == nil {
		value = mapFieldDefault(entryDecoder, valueType)
	}

	return key, value, nil
}

// mapFieldDefault returns the zero value for an omitted entry field.
func mapFieldDefault(d *Decoder, fieldType *schema.FieldType) interface{} {
	switch fieldType.Kind {
	case schema.KindPrimitive:
		return primitiveDefault(fieldType.PrimitiveType)
	case schema.KindEnum:
		return d.enumDefault(fieldType.EnumType)
	default:
		return nil
	}
}

// decodeMapField decodes a single field within a map entry
func (md *MapDecoder) decodeMapField(decoder *Decoder, fieldType *schema.FieldType, wireType WireType) (interface{}, error) {
	switch fieldType.Kind {
	case schema.KindPrimitive:
		return decoder.decodePrimitive(fieldType.PrimitiveType, wireType)
	case schema.KindMessage:
		return md.decodeMessageValue(decoder, fieldType.MessageType, wireType)
	case schema.KindEnum:
		if wireType != WireVarint {
			return nil, fmt.Errorf("enum must use wire type varint, got %s", wireType)
		}
		return decoder.decodeEnum(fieldType.EnumType)
	default:
		return nil, fmt.Errorf("unsupported map field type: %s", fieldType.Kind)
	}
}

// decodeMessageValue decodes a message-typed map value.
func (md *MapDecoder) decodeMessageValue(decoder *Decoder, messageType string, wireType WireType) (interface{}, error) {
	if wireType != WireBytes {
		return nil, fmt.Errorf("message must use wire type bytes, got %s", wireType)
	}

	bd := NewBytesDecoder(decoder)
	messageBytes, err := bd.DecodeBytes()
	if err != nil {
		return nil, err
	}

	if decoder.registry == nil {
		return messageBytes, nil
	}
	msg, err := decoder.registry.GetMessage(messageType)
	if err != nil {
		// Schema not found, return raw bytes
		return messageBytes, nil
	}

	nested := decoder.child(messageBytes)
	return nested.DecodeWithSchema(msg)
}

// ENCODER METHODS

// EncodeMapEntry encodes a map entry (key-value pair)
func (me *MapEncoder) EncodeMapEntry(key, value interface{}, keyType, valueType *schema.FieldType) error {
	entryEncoder := NewEncoder()
	entryEncoder.registry = me.encoder.registry

	// Key is field number 1, value is field number 2.
	if err := entryEncoder.EncodeTag(1, WireTypeFor(keyType)); err != nil {
		return err
	}
	if err := me.encodeMapField(entryEncoder, key, keyType); err != nil {
		return wrapEncodingFieldError(err, "key")
	}

	if err := entryEncoder.EncodeTag(2, WireTypeFor(valueType)); err != nil {
		return err
	}
	if err := me.encodeMapField(entryEncoder, value, valueType); err != nil {
		return wrapEncodingFieldError(err, "value")
	}

	be := NewBytesEncoder(me.encoder)
	return be.EncodeBytes(entryEncoder.buf)
}

// EncodeMap encodes a complete map, one tagged entry per pair. Iteration
// order follows Go map order, so byte output is not canonical across runs.
func (me *MapEncoder) EncodeMap(mapData map[interface{}]interface{}, keyType, valueType *schema.FieldType, fieldNumber int32) error {
	for key, value := range mapData {
		if err := me.encoder.EncodeTag(FieldNumber(fieldNumber), WireBytes); err != nil {
			return err
		}
		if err := me.EncodeMapEntry(key, value, keyType, valueType); err != nil {
			return err
		}
	}
	return nil
}

// encodeMapField encodes a single field within a map entry
func (me *MapEncoder) encodeMapField(encoder *Encoder, fieldValue interface{}, fieldType *schema.FieldType) error {
	switch fieldType.Kind {
	case schema.KindPrimitive:
		return encodePrimitiveValue(encoder, fieldValue, fieldType.PrimitiveType)
	case schema.KindMessage:
		messageBytes, ok := fieldValue.([]byte)
		if !ok {
			return newFieldError("message value must be pre-encoded []byte, got %T", fieldValue)
		}
		be := NewBytesEncoder(encoder)
		return be.EncodeBytes(messageBytes)
	case schema.KindEnum:
		return encodeEnumValue(encoder, fieldValue, fieldType.EnumType)
	default:
		return newFieldError("unsupported map field type: %s", fieldType.Kind)
	}
}
