package wire

import (
	"fmt"

	"github.com/wirelite/wirelite/registry"
	"github.com/wirelite/wirelite/schema"
)

// Decoder handles low-level protobuf wire format decoding. The position
// advances destructively as bytes are consumed; callers that need to rescan
// must keep their own copy of the input.
type Decoder struct {
	buf      []byte
	pos      int
	depth    int
	registry *registry.Registry
}

// NewDecoder creates a new wire format decoder
func NewDecoder(data []byte) *Decoder {
	return &Decoder{
		buf: data,
		pos: 0,
	}
}

// NewDecoderWithRegistry creates a decoder with schema registry
func NewDecoderWithRegistry(data []byte, registry *registry.Registry) *Decoder {
	return &Decoder{
		buf:      data,
		pos:      0,
		registry: registry,
	}
}

// child creates a decoder for a nested payload, one nesting level deeper.
func (d *Decoder) child(data []byte) *Decoder {
	return &Decoder{
		buf:      data,
		depth:    d.depth + 1,
		registry: d.registry,
	}
}

// Remaining returns the number of unconsumed bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// ReadN returns exactly the next n bytes and advances past them. Fails with
// ErrTruncated if fewer than n bytes remain; never reads beyond n.
func (d *Decoder) ReadN(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeLength, n)
	}
	if d.pos+n > len(d.buf) {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, len(d.buf)-d.pos)
	}
	data := d.buf[d.pos : d.pos+n]
	d.pos += n
	return data, nil
}

// DecodeTag decodes a field tag and validates it: the wire-type bits must
// name one of the four legal framings and the field number must be in
// [1, 1<<29). A bad tag aborts the enclosing message, there is no recovery
// point past a broken framing boundary.
func (d *Decoder) DecodeTag() (FieldNumber, WireType, error) {
	raw, err := d.decodeVarint64()
	if err != nil {
		return 0, 0, err
	}

	wireType := WireType(raw & 0x7)
	if !wireType.IsValid() {
		return 0, 0, fmt.Errorf("%w: %d", ErrMalformedTag, int32(wireType))
	}

	num := raw >> 3
	if num == 0 || num > uint64(MaxFieldNumber) {
		return 0, 0, fmt.Errorf("%w: %d", ErrTagOutOfRange, num)
	}

	return FieldNumber(num), wireType, nil
}

// DecodeMessage decodes protobuf bytes using schema - main entry point
func DecodeMessage(data []byte, msg *schema.Message, registry *registry.Registry) (map[string]interface{}, error) {
	decoder := NewDecoderWithRegistry(data, registry)
	return decoder.DecodeWithSchema(msg)
}

// DecodeWithSchema drives the tag-by-tag decode of one message payload.
func (d *Decoder) DecodeWithSchema(msg *schema.Message) (map[string]interface{}, error) {
	if d.depth > config.MaxDecodeDepth {
		return nil, fmt.Errorf("message nesting deeper than %d levels", config.MaxDecodeDepth)
	}

	result := make(map[string]interface{})
	mapCollector := make(map[string]map[interface{}]interface{})
	repeatedCollector := make(map[string][]interface{})

	for d.pos < len(d.buf) {
		fieldNumber, wireType, err := d.DecodeTag()
		if err != nil {
			return nil, err
		}

		field := findFieldByNumber(msg, int32(fieldNumber))
		if field == nil {
			// Unknown field - skip it
			if err := d.SkipField(wireType); err != nil {
				return nil, err
			}
			continue
		}

		// Packed repeated scalars arrive as one length-delimited run.
		// Both packed and per-element framing are accepted on decode
		// regardless of the schema's packed flag.
		if isPackedRun(field, wireType) {
			elements, err := d.decodePackedElements(field)
			if err != nil {
				return nil, wrapDecodingFieldError(err, field.Name)
			}
			repeatedCollector[field.Name] = append(repeatedCollector[field.Name], elements...)
			continue
		}

		value, err := d.DecodeTypedField(&field.Type, wireType)
		if err != nil {
			return nil, wrapDecodingFieldError(err, field.Name)
		}

		if field.Type.Kind == schema.KindMap {
			if mapCollector[field.Name] == nil {
				mapCollector[field.Name] = make(map[interface{}]interface{})
			}
			if entryMap, ok := value.(map[string]interface{}); ok {
				mapCollector[field.Name][entryMap["key"]] = entryMap["value"]
			}
		} else if field.Label == schema.LabelRepeated {
			repeatedCollector[field.Name] = append(repeatedCollector[field.Name], value)
		} else {
			result[field.Name] = value
		}
	}

	for fieldName, mapData := range mapCollector {
		result[fieldName] = mapData
	}

	for fieldName, repeatedData := range repeatedCollector {
		result[fieldName] = repeatedData
	}

	if config.PopulateDefaultsOnDecode {
		d.populateDefaults(result, msg)
	}

	return result, nil
}

// findFieldByNumber locates a field by number, searching oneof groups too.
func findFieldByNumber(msg *schema.Message, number int32) *schema.Field {
	for _, f := range msg.Fields {
		if f.Number == number {
			return f
		}
	}
	for _, group := range msg.OneofGroups {
		for _, f := range group.Fields {
			if f.Number == number {
				return f
			}
		}
	}
	return nil
}

// isPackedRun reports whether the incoming field occurrence is a packed run
// of scalar elements rather than a single value.
func isPackedRun(field *schema.Field, wireType WireType) bool {
	return field.Label == schema.LabelRepeated &&
		wireType == WireBytes &&
		field.Type.Kind == schema.KindPrimitive &&
		schema.IsPackedType(field.Type.PrimitiveType)
}

// decodePackedElements decodes a length-delimited run of packed scalars.
func (d *Decoder) decodePackedElements(field *schema.Field) ([]interface{}, error) {
	bd := NewBytesDecoder(d)
	payload, err := bd.DecodeRawBytes()
	if err != nil {
		return nil, err
	}

	elementWire := WireTypeFor(&field.Type)
	sub := d.child(payload)

	var elements []interface{}
	for sub.Remaining() > 0 {
		v, err := sub.decodePrimitive(field.Type.PrimitiveType, elementWire)
		if err != nil {
			return nil, err
		}
		elements = append(elements, v)
	}
	return elements, nil
}

// populateDefaults fills absent singular primitive and enum fields with
// their zero values. Oneof members keep presence semantics and are left out.
func (d *Decoder) populateDefaults(result map[string]interface{}, msg *schema.Message) {
	for _, field := range msg.Fields {
		if field.Label == schema.LabelRepeated {
			continue
		}
		if _, present := result[field.Name]; present {
			continue
		}
		switch field.Type.Kind {
		case schema.KindPrimitive:
			result[field.Name] = primitiveDefault(field.Type.PrimitiveType)
		case schema.KindEnum:
			result[field.Name] = d.enumDefault(field.Type.EnumType)
		}
	}
}

func primitiveDefault(primitiveType schema.PrimitiveType) interface{} {
	switch primitiveType {
	case schema.TypeString:
		return ""
	case schema.TypeBytes:
		return []byte{}
	case schema.TypeBool:
		return false
	case schema.TypeFloat:
		return float32(0)
	case schema.TypeDouble:
		return float64(0)
	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32:
		return int32(0)
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		return int64(0)
	case schema.TypeUint32, schema.TypeFixed32:
		return uint32(0)
	default:
		return uint64(0)
	}
}

func (d *Decoder) enumDefault(enumType string) interface{} {
	if d.registry != nil {
		if enum, err := d.registry.GetEnum(enumType); err == nil {
			for _, en := range enum.Values {
				if en.Number == 0 {
					return en.Name
				}
			}
		}
	}
	return int32(0)
}

// DecodeTypedField routes to the appropriate decoder based on field type
func (d *Decoder) DecodeTypedField(fieldType *schema.FieldType, wireType WireType) (interface{}, error) {
	switch fieldType.Kind {
	case schema.KindPrimitive:
		return d.decodePrimitive(fieldType.PrimitiveType, wireType)
	case schema.KindMessage:
		md := NewMessageDecoder(d)
		return md.DecodeMessage(fieldType.MessageType)
	case schema.KindEnum:
		return d.decodeEnum(fieldType.EnumType)
	case schema.KindMap:
		mapDecoder := NewMapDecoder(d)
		key, value, err := mapDecoder.DecodeMapEntry(fieldType.MapKey, fieldType.MapValue)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"key":   key,
			"value": value,
		}, nil
	case schema.KindWrapper:
		return d.decodeWrapper(fieldType.WrapperType, wireType)
	default:
		return d.decodeRawValue(wireType)
	}
}

// decodeEnum decodes an enum number and resolves it to its declared name.
func (d *Decoder) decodeEnum(enumType string) (interface{}, error) {
	vd := NewVarintDecoder(d)
	number, err := vd.DecodeEnum()
	if err != nil {
		return nil, err
	}

	if d.registry == nil {
		return number, nil
	}
	enum, err := d.registry.GetEnum(enumType)
	if err != nil {
		if config.AllowUnknownEnumNumberDecode {
			return number, nil
		}
		return nil, err
	}
	for _, en := range enum.Values {
		if en.Number == number {
			return en.Name, nil
		}
	}
	if config.AllowUnknownEnumNumberDecode {
		return number, nil
	}
	return nil, fmt.Errorf("unknown value %d for enum %s", number, enumType)
}

// decodePrimitive decodes a primitive value by its wire framing, narrowing
// varints to the declared width with overflow checking.
func (d *Decoder) decodePrimitive(primitiveType schema.PrimitiveType, wireType WireType) (interface{}, error) {
	switch wireType {
	case WireVarint:
		switch primitiveType {
		case schema.TypeInt32:
			return DecodeIvarint[int32](d)
		case schema.TypeInt64:
			return DecodeIvarint[int64](d)
		case schema.TypeUint32:
			return DecodeUvarint[uint32](d)
		case schema.TypeUint64:
			return DecodeUvarint[uint64](d)
		case schema.TypeSint32:
			vd := NewVarintDecoder(d)
			return vd.DecodeSint32()
		case schema.TypeSint64:
			vd := NewVarintDecoder(d)
			return vd.DecodeSint64()
		case schema.TypeBool:
			vd := NewVarintDecoder(d)
			return vd.DecodeBool()
		default:
			return d.decodeVarint64()
		}
	case WireFixed32:
		fd := NewFixedDecoder(d)
		switch primitiveType {
		case schema.TypeFloat:
			return fd.DecodeFloat32()
		case schema.TypeSfixed32:
			return fd.DecodeSfixed32()
		default:
			return fd.DecodeFixed32()
		}
	case WireFixed64:
		fd := NewFixedDecoder(d)
		switch primitiveType {
		case schema.TypeDouble:
			return fd.DecodeFloat64()
		case schema.TypeSfixed64:
			return fd.DecodeSfixed64()
		default:
			return fd.DecodeFixed64()
		}
	case WireBytes:
		bd := NewBytesDecoder(d)
		rawValue, err := bd.DecodeBytes()
		if err != nil {
			return nil, err
		}
		if primitiveType == schema.TypeString {
			return string(rawValue), nil
		}
		return rawValue, nil
	default:
		return nil, fmt.Errorf("invalid wire type %d for primitive %s", wireType, primitiveType)
	}
}

// decodeWrapper decodes a wrapper type to its underlying scalar value.
func (d *Decoder) decodeWrapper(wrapperType schema.WrapperType, wireType WireType) (interface{}, error) {
	// Wrapper types are encoded as length-delimited messages
	if wireType != WireBytes {
		return nil, fmt.Errorf("wrapper type must use wire type bytes, got %s", wireType)
	}

	bd := NewBytesDecoder(d)
	wrapperBytes, err := bd.DecodeBytes()
	if err != nil {
		return nil, err
	}

	wrapperDecoder := d.child(wrapperBytes)

	// An empty wrapper message carries the zero value of its scalar.
	if wrapperDecoder.Remaining() == 0 {
		return wrapperZeroValue(wrapperType)
	}

	fieldNumber, valueWireType, err := wrapperDecoder.DecodeTag()
	if err != nil {
		return nil, err
	}
	if fieldNumber != 1 {
		return nil, fmt.Errorf("expected field number 1 in wrapper, got %d", fieldNumber)
	}

	expected := wrapperWireType(wrapperType)
	if valueWireType != expected {
		return nil, fmt.Errorf("expected wire type %s for %s, got %s", expected, wrapperType, valueWireType)
	}

	switch wrapperType {
	case schema.WrapperDoubleValue:
		fd := NewFixedDecoder(wrapperDecoder)
		return fd.DecodeFloat64()
	case schema.WrapperFloatValue:
		fd := NewFixedDecoder(wrapperDecoder)
		return fd.DecodeFloat32()
	case schema.WrapperInt64Value:
		return DecodeIvarint[int64](wrapperDecoder)
	case schema.WrapperUInt64Value:
		return DecodeUvarint[uint64](wrapperDecoder)
	case schema.WrapperInt32Value:
		return DecodeIvarint[int32](wrapperDecoder)
	case schema.WrapperUInt32Value:
		return DecodeUvarint[uint32](wrapperDecoder)
	case schema.WrapperBoolValue:
		vd := NewVarintDecoder(wrapperDecoder)
		return vd.DecodeBool()
	case schema.WrapperStringValue:
		wbd := NewBytesDecoder(wrapperDecoder)
		return wbd.DecodeString()
	case schema.WrapperBytesValue:
		wbd := NewBytesDecoder(wrapperDecoder)
		return wbd.DecodeBytes()
	default:
		return nil, fmt.Errorf("unsupported wrapper type: %s", wrapperType)
	}
}

// wrapperZeroValue returns the scalar zero for an empty wrapper message.
func wrapperZeroValue(wrapperType schema.WrapperType) (interface{}, error) {
	switch wrapperType {
	case schema.WrapperDoubleValue:
		return float64(0), nil
	case schema.WrapperFloatValue:
		return float32(0), nil
	case schema.WrapperInt64Value:
		return int64(0), nil
	case schema.WrapperUInt64Value:
		return uint64(0), nil
	case schema.WrapperInt32Value:
		return int32(0), nil
	case schema.WrapperUInt32Value:
		return uint32(0), nil
	case schema.WrapperBoolValue:
		return false, nil
	case schema.WrapperStringValue:
		return "", nil
	case schema.WrapperBytesValue:
		return []byte{}, nil
	default:
		return nil, fmt.Errorf("unsupported wrapper type: %s", wrapperType)
	}
}

// wrapperWireType returns the wire framing of a wrapper's value field.
func wrapperWireType(wrapperType schema.WrapperType) WireType {
	switch wrapperType {
	case schema.WrapperDoubleValue:
		return WireFixed64
	case schema.WrapperFloatValue:
		return WireFixed32
	case schema.WrapperStringValue, schema.WrapperBytesValue:
		return WireBytes
	default:
		return WireVarint
	}
}

// decodeRawValue decodes without type information
func (d *Decoder) decodeRawValue(wireType WireType) (interface{}, error) {
	switch wireType {
	case WireVarint:
		vd := NewVarintDecoder(d)
		return vd.DecodeVarint()
	case WireFixed64:
		fd := NewFixedDecoder(d)
		return fd.DecodeFixed64()
	case WireBytes:
		bd := NewBytesDecoder(d)
		return bd.DecodeBytes()
	case WireFixed32:
		fd := NewFixedDecoder(d)
		return fd.DecodeFixed32()
	default:
		return nil, fmt.Errorf("%w: %d", ErrMalformedTag, int32(wireType))
	}
}

// SkipField skips a field's payload based on wire type.
func (d *Decoder) SkipField(wireType WireType) error {
	switch wireType {
	case WireVarint:
		vd := NewVarintDecoder(d)
		return vd.SkipVarint()
	case WireFixed64:
		_, err := d.ReadN(8)
		return err
	case WireBytes:
		bd := NewBytesDecoder(d)
		return bd.SkipBytes()
	case WireFixed32:
		_, err := d.ReadN(4)
		return err
	default:
		return fmt.Errorf("%w: %d", ErrMalformedTag, int32(wireType))
	}
}

// DecodeField decodes a single field from the current position; it returns
// nil when the source is exhausted.
func (d *Decoder) DecodeField() (*Value, error) {
	if d.pos >= len(d.buf) {
		return nil, nil
	}

	fieldNumber, wireType, err := d.DecodeTag()
	if err != nil {
		return nil, err
	}

	data, err := d.decodeRawValue(wireType)
	if err != nil {
		return nil, err
	}

	return &Value{
		FieldNumber: fieldNumber,
		WireType:    wireType,
		Data:        data,
	}, nil
}
