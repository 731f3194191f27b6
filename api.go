// Package wirelite encodes and decodes protobuf wire format from runtime
// schema definitions, without generated code.
package wirelite

import (
	"fmt"
	"reflect"

	"github.com/wirelite/wirelite/registry"
	"github.com/wirelite/wirelite/schema"
	"github.com/wirelite/wirelite/typegraph"
	"github.com/wirelite/wirelite/wire"
)

// ===== SCHEMA-AWARE API =====

// Wirelite provides schema-aware protobuf operations without generated
// code. Register every schema first, then share the instance freely:
// Marshal, Unmarshal and TypeGraph never mutate the registry.
type Wirelite struct {
	registry *registry.Registry
	graphs   *typegraph.Analyzer
}

// New creates a new Wirelite instance
func New() *Wirelite {
	r := registry.NewRegistry()
	return &Wirelite{
		registry: r,
		graphs:   typegraph.New(r),
	}
}

// Register validates a message definition and adds it together with its
// nested messages and enums.
func (w *Wirelite) Register(msg *schema.Message) error {
	return w.registry.Register(msg)
}

// RegisterEnum validates a top-level enum definition and adds it.
func (w *Wirelite) RegisterEnum(enum *schema.Enum) error {
	return w.registry.RegisterEnum(enum)
}

// Marshal encodes a map to protobuf bytes using schema information
func (w *Wirelite) Marshal(data map[string]interface{}, messageType string) ([]byte, error) {
	msg, err := w.registry.GetMessage(messageType)
	if err != nil {
		return nil, fmt.Errorf("message type not found: %s", messageType)
	}

	return wire.EncodeMessage(data, msg, w.registry)
}

// Unmarshal decodes protobuf bytes into a field-name map using schema
// information.
func (w *Wirelite) Unmarshal(data []byte, messageType string) (map[string]interface{}, error) {
	msg, err := w.registry.GetMessage(messageType)
	if err != nil {
		return nil, fmt.Errorf("message type not found: %s", messageType)
	}

	return wire.DecodeMessage(data, msg, w.registry)
}

// Parse splits raw protobuf bytes into tagged field values without any
// schema. Varint fields surface as uint64, fixed fields as raw unsigned
// integers and length-delimited fields as byte slices.
func (w *Wirelite) Parse(data []byte) ([]*wire.Value, error) {
	d := wire.NewDecoder(data)

	var values []*wire.Value
	for {
		v, err := d.DecodeField()
		if err != nil {
			return nil, err
		}
		if v == nil {
			return values, nil
		}
		values = append(values, v)
	}
}

// UnmarshalToStruct decodes protobuf bytes into a Go struct using
// reflection. Struct fields match schema fields by exact name, by json
// name or by an underscore-insensitive fold, so UserID binds user_id.
// A message field whose type graph reaches back to itself must be declared
// as a pointer, otherwise the struct type could not close over itself.
func (w *Wirelite) UnmarshalToStruct(data []byte, messageType string, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("unmarshal target must be a non-nil pointer to struct")
	}

	msg, err := w.registry.GetMessage(messageType)
	if err != nil {
		return fmt.Errorf("message type not found: %s", messageType)
	}

	decoded, err := wire.DecodeMessage(data, msg, w.registry)
	if err != nil {
		return err
	}

	return w.bindStruct(decoded, msg, rv.Elem())
}

// bindStruct maps decoded fields onto struct fields.
func (w *Wirelite) bindStruct(data map[string]interface{}, msg *schema.Message, rv reflect.Value) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		structField := rt.Field(i)
		target := rv.Field(i)

		if !target.CanSet() {
			continue
		}

		field := matchSchemaField(msg, structField.Name)
		if field == nil {
			continue
		}
		value, ok := data[field.Name]
		if !ok || value == nil {
			continue
		}

		if err := w.bindValue(target, field, value); err != nil {
			return fmt.Errorf("failed to set field %s: %v", structField.Name, err)
		}
	}
	return nil
}

// bindValue routes one decoded field value into a struct field.
func (w *Wirelite) bindValue(target reflect.Value, field *schema.Field, value interface{}) error {
	if field.Label == schema.LabelRepeated && field.Type.Kind != schema.KindMap {
		return w.bindSlice(target, &field.Type, value)
	}
	return w.bindSingle(target, &field.Type, value)
}

// bindSlice fills a slice field element by element.
func (w *Wirelite) bindSlice(target reflect.Value, elemType *schema.FieldType, value interface{}) error {
	if target.Kind() != reflect.Slice {
		return fmt.Errorf("expected slice target, got %s", target.Kind())
	}
	elements, ok := value.([]interface{})
	if !ok {
		return fmt.Errorf("expected decoded slice, got %T", value)
	}

	out := reflect.MakeSlice(target.Type(), len(elements), len(elements))
	for i, element := range elements {
		if err := w.bindSingle(out.Index(i), elemType, element); err != nil {
			return err
		}
	}
	target.Set(out)
	return nil
}

// bindSingle fills one value, allocating through pointer fields and
// checking that recursive message types only bind through pointers.
func (w *Wirelite) bindSingle(target reflect.Value, fieldType *schema.FieldType, value interface{}) error {
	if target.Kind() == reflect.Ptr {
		elem := reflect.New(target.Type().Elem())
		if err := w.bindBody(elem.Elem(), fieldType, value); err != nil {
			return err
		}
		target.Set(elem)
		return nil
	}

	if fieldType.Kind == schema.KindMessage && w.graphs.Graph(fieldType.MessageType).Recursive() {
		return fmt.Errorf("recursive message type %s requires a pointer field", fieldType.MessageType)
	}
	return w.bindBody(target, fieldType, value)
}

func (w *Wirelite) bindBody(target reflect.Value, fieldType *schema.FieldType, value interface{}) error {
	switch fieldType.Kind {
	case schema.KindMessage:
		nested, ok := value.(map[string]interface{})
		if !ok {
			// Without a registered schema the decoder hands back raw bytes.
			return convertScalar(target, value)
		}
		if target.Kind() != reflect.Struct {
			return fmt.Errorf("expected struct target for message %s, got %s", fieldType.MessageType, target.Kind())
		}
		msg, err := w.registry.GetMessage(fieldType.MessageType)
		if err != nil {
			return err
		}
		return w.bindStruct(nested, msg, target)
	case schema.KindMap:
		return w.bindMap(target, fieldType, value)
	default:
		return convertScalar(target, value)
	}
}

// bindMap fills a map field, converting keys and binding values.
func (w *Wirelite) bindMap(target reflect.Value, fieldType *schema.FieldType, value interface{}) error {
	if target.Kind() != reflect.Map {
		return fmt.Errorf("expected map target, got %s", target.Kind())
	}
	entries, ok := value.(map[interface{}]interface{})
	if !ok {
		return fmt.Errorf("expected decoded map, got %T", value)
	}

	out := reflect.MakeMapWithSize(target.Type(), len(entries))
	for k, v := range entries {
		key := reflect.New(target.Type().Key()).Elem()
		if err := convertScalar(key, k); err != nil {
			return err
		}
		val := reflect.New(target.Type().Elem()).Elem()
		if err := w.bindSingle(val, fieldType.MapValue, v); err != nil {
			return err
		}
		out.SetMapIndex(key, val)
	}
	target.Set(out)
	return nil
}

// convertScalar sets a value with Go assignment and conversion rules.
func convertScalar(target reflect.Value, value interface{}) error {
	if value == nil {
		return nil
	}

	source := reflect.ValueOf(value)
	if source.Type().AssignableTo(target.Type()) {
		target.Set(source)
		return nil
	}
	if source.Type().ConvertibleTo(target.Type()) {
		target.Set(source.Convert(target.Type()))
		return nil
	}
	return fmt.Errorf("cannot convert %T to %s", value, target.Type())
}

// matchSchemaField resolves a Go struct field name to a schema field by
// exact name, json name or underscore-insensitive fold.
func matchSchemaField(msg *schema.Message, goName string) *schema.Field {
	folded := foldName(goName)

	best := func(f *schema.Field) bool {
		if f.Name == goName || f.JsonName == goName {
			return true
		}
		return foldName(f.Name) == folded || foldName(f.JsonName) == folded
	}

	for _, f := range msg.Fields {
		if best(f) {
			return f
		}
	}
	for _, group := range msg.OneofGroups {
		for _, f := range group.Fields {
			if best(f) {
				return f
			}
		}
	}
	return nil
}

// foldName lowercases and strips underscores so user_id, userId and UserID
// all collide.
func foldName(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			continue
		}
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// ===== REGISTRY ACCESS =====

// Registry exposes the underlying schema registry.
func (w *Wirelite) Registry() *registry.Registry { return w.registry }

// TypeGraph returns the reachability graph rooted at the named message.
// Graphs are cached, so register every schema before the first call.
func (w *Wirelite) TypeGraph(messageType string) *typegraph.Graph {
	return w.graphs.Graph(messageType)
}

// ListMessages returns all registered message names, sorted.
func (w *Wirelite) ListMessages() []string { return w.registry.ListMessages() }

// ListEnums returns all registered enum names, sorted.
func (w *Wirelite) ListEnums() []string { return w.registry.ListEnums() }
