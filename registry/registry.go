package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wirelite/wirelite/schema"
)

// Field numbers occupy 29 bits on the wire; 19000-19999 is reserved for
// implementation use and cannot be declared by a schema.
const (
	maxFieldNumber     = 1<<29 - 1
	reservedRangeStart = 19000
	reservedRangeEnd   = 19999
)

// Registry stores the schema of the protobuf messages. We look this up when
// we need to parse or marshal a message. Definitions are registered up front
// and validated once, so the wire codec can trust every descriptor it reads.
// Register everything before sharing a Registry across goroutines; lookups
// never mutate it.
type Registry struct {
	messages map[string]*schema.Message // fully qualified name -> message
	enums    map[string]*schema.Enum    // fully qualified name -> enum
}

func NewRegistry() *Registry {
	return &Registry{
		messages: make(map[string]*schema.Message),
		enums:    make(map[string]*schema.Enum),
	}
}

// Register validates a message definition and adds it together with its
// nested messages and enums, keyed by dot-joined names. Nothing is added
// when any part fails validation. Register completes the definition in
// place: empty JsonName fields are filled with the lowerCamel form of the
// field name.
func (r *Registry) Register(msg *schema.Message) error {
	if msg == nil || msg.Name == "" {
		return fmt.Errorf("message must have a name")
	}

	staged := make(map[string]*schema.Message)
	stagedEnums := make(map[string]*schema.Enum)
	if err := r.stage(msg.Name, msg, staged, stagedEnums); err != nil {
		return err
	}

	for name, m := range staged {
		r.messages[name] = m
	}
	for name, e := range stagedEnums {
		r.enums[name] = e
	}
	return nil
}

// RegisterEnum validates a top-level enum definition and adds it.
func (r *Registry) RegisterEnum(enum *schema.Enum) error {
	if enum == nil || enum.Name == "" {
		return fmt.Errorf("enum must have a name")
	}
	if _, exists := r.enums[enum.Name]; exists {
		return fmt.Errorf("enum already registered: %s", enum.Name)
	}
	if err := validateEnum(enum.Name, enum); err != nil {
		return err
	}
	r.enums[enum.Name] = enum
	return nil
}

// stage validates one message and recurses into its nested definitions,
// collecting everything into the staging maps.
func (r *Registry) stage(fullName string, msg *schema.Message, staged map[string]*schema.Message, stagedEnums map[string]*schema.Enum) error {
	if _, exists := r.messages[fullName]; exists {
		return fmt.Errorf("message already registered: %s", fullName)
	}
	if _, exists := staged[fullName]; exists {
		return fmt.Errorf("duplicate nested message name: %s", fullName)
	}
	if err := r.validateMessage(fullName, msg); err != nil {
		return err
	}
	staged[fullName] = msg

	for _, nested := range msg.NestedTypes {
		if nested == nil || nested.Name == "" {
			return fmt.Errorf("message %s: nested message must have a name", fullName)
		}
		if err := r.stage(fullName+"."+nested.Name, nested, staged, stagedEnums); err != nil {
			return err
		}
	}

	for _, nestedEnum := range msg.NestedEnums {
		if nestedEnum == nil || nestedEnum.Name == "" {
			return fmt.Errorf("message %s: nested enum must have a name", fullName)
		}
		enumName := fullName + "." + nestedEnum.Name
		if _, exists := r.enums[enumName]; exists {
			return fmt.Errorf("enum already registered: %s", enumName)
		}
		if err := validateEnum(enumName, nestedEnum); err != nil {
			return err
		}
		stagedEnums[enumName] = nestedEnum
	}
	return nil
}

// validateMessage checks every field of one message, oneof members included.
// Schema-authoring mistakes surface here rather than as undefined behavior
// inside the codec.
func (r *Registry) validateMessage(fullName string, msg *schema.Message) error {
	seenNumbers := make(map[int32]string)
	seenNames := make(map[string]bool)

	validate := func(field *schema.Field) error {
		if field == nil || field.Name == "" {
			return fmt.Errorf("message %s: field must have a name", fullName)
		}
		if seenNames[field.Name] {
			return fmt.Errorf("message %s: duplicate field name %s", fullName, field.Name)
		}
		seenNames[field.Name] = true

		if field.Number < 1 || field.Number > maxFieldNumber {
			return fmt.Errorf("message %s: field %s number %d outside [1, %d]", fullName, field.Name, field.Number, int32(maxFieldNumber))
		}
		if field.Number >= reservedRangeStart && field.Number <= reservedRangeEnd {
			return fmt.Errorf("message %s: field %s uses reserved number %d", fullName, field.Name, field.Number)
		}
		if prev, dup := seenNumbers[field.Number]; dup {
			return fmt.Errorf("message %s: fields %s and %s share number %d", fullName, prev, field.Name, field.Number)
		}
		seenNumbers[field.Number] = field.Name

		if err := validateFieldType(fullName, field); err != nil {
			return err
		}

		if field.JsonName == "" {
			field.JsonName = toLowerCamel(field.Name)
		}
		return nil
	}

	for _, field := range msg.Fields {
		if err := validate(field); err != nil {
			return err
		}
	}
	for _, group := range msg.OneofGroups {
		for _, field := range group.Fields {
			if field != nil && field.Label == schema.LabelRepeated {
				return fmt.Errorf("message %s: oneof field %s cannot be repeated", fullName, field.Name)
			}
			if err := validate(field); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateFieldType checks that a field's type carries the information its
// kind requires and that the field can be framed on the wire at all.
func validateFieldType(msgName string, field *schema.Field) error {
	ft := &field.Type
	switch ft.Kind {
	case schema.KindPrimitive:
		if ft.PrimitiveType == "" {
			return fmt.Errorf("message %s: field %s has no primitive type", msgName, field.Name)
		}
	case schema.KindMessage:
		if ft.MessageType == "" {
			return fmt.Errorf("message %s: field %s has no message type", msgName, field.Name)
		}
	case schema.KindEnum:
		if ft.EnumType == "" {
			return fmt.Errorf("message %s: field %s has no enum type", msgName, field.Name)
		}
	case schema.KindWrapper:
		if !validWrapperTypes[ft.WrapperType] {
			return fmt.Errorf("message %s: field %s has unknown wrapper type %q", msgName, field.Name, ft.WrapperType)
		}
	case schema.KindMap:
		if field.Label == schema.LabelRepeated {
			return fmt.Errorf("message %s: map field %s cannot be repeated", msgName, field.Name)
		}
		if ft.MapKey == nil || ft.MapValue == nil {
			return fmt.Errorf("message %s: map field %s must declare key and value types", msgName, field.Name)
		}
		if !validMapKey(ft.MapKey) {
			return fmt.Errorf("message %s: map field %s key must be an integral, bool or string scalar", msgName, field.Name)
		}
		if ft.MapValue.Kind == schema.KindMap {
			return fmt.Errorf("message %s: map field %s value cannot be another map", msgName, field.Name)
		}
	default:
		return fmt.Errorf("message %s: field %s has unknown kind %q", msgName, field.Name, ft.Kind)
	}

	if field.Packed && (ft.Kind != schema.KindPrimitive || !schema.IsPackedType(ft.PrimitiveType)) {
		return fmt.Errorf("message %s: field %s cannot be packed", msgName, field.Name)
	}
	return nil
}

// validateEnum checks value names within one enum. Duplicate numbers stay
// legal, proto3 allows aliases.
func validateEnum(fullName string, enum *schema.Enum) error {
	seen := make(map[string]bool)
	for _, value := range enum.Values {
		if value == nil || value.Name == "" {
			return fmt.Errorf("enum %s: value must have a name", fullName)
		}
		if seen[value.Name] {
			return fmt.Errorf("enum %s: duplicate value name %s", fullName, value.Name)
		}
		seen[value.Name] = true
	}
	return nil
}

// GetMessage retrieves a message definition by name
func (r *Registry) GetMessage(name string) (*schema.Message, error) {
	if msg, exists := r.messages[name]; exists {
		return msg, nil
	}

	// Try without package prefix
	for fullName, msg := range r.messages {
		if strings.HasSuffix(fullName, "."+name) {
			return msg, nil
		}
	}

	return nil, fmt.Errorf("message not found: %s", name)
}

// GetEnum retrieves an enum definition by name
func (r *Registry) GetEnum(name string) (*schema.Enum, error) {
	if enum, exists := r.enums[name]; exists {
		return enum, nil
	}

	// Try without package prefix
	for fullName, enum := range r.enums {
		if strings.HasSuffix(fullName, "."+name) {
			return enum, nil
		}
	}

	return nil, fmt.Errorf("enum not found: %s", name)
}

// ListMessages returns all registered message names, sorted.
func (r *Registry) ListMessages() []string {
	names := make([]string, 0, len(r.messages))
	for name := range r.messages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListEnums returns all registered enum names, sorted.
func (r *Registry) ListEnums() []string {
	names := make([]string, 0, len(r.enums))
	for name := range r.enums {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MapEntryMessage synthesizes the implicit two-field entry message a map
// field is encoded as on the wire. The result is not added to the registry.
func (r *Registry) MapEntryMessage(field *schema.Field) (*schema.Message, error) {
	if field == nil || field.Type.Kind != schema.KindMap {
		return nil, fmt.Errorf("field is not a map")
	}
	if field.Type.MapKey == nil || field.Type.MapValue == nil {
		return nil, fmt.Errorf("map field %s must declare key and value types", field.Name)
	}

	return &schema.Message{
		Name:     field.Name + "Entry",
		MapEntry: true,
		Fields: []*schema.Field{
			{
				Name:     "key",
				Number:   1,
				Label:    schema.LabelOptional,
				Type:     *field.Type.MapKey,
				JsonName: "key",
			},
			{
				Name:     "value",
				Number:   2,
				Label:    schema.LabelOptional,
				Type:     *field.Type.MapValue,
				JsonName: "value",
			},
		},
	}, nil
}
