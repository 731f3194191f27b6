package registry

import "github.com/wirelite/wirelite/schema"

// toLowerCamel converts snake_case to lowerCamelCase
func toLowerCamel(s string) string {
	if s == "" {
		return s
	}
	// Fast path: no underscore
	hasUnderscore := false
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			hasUnderscore = true
			break
		}
	}
	if !hasUnderscore {
		// ensure lower first char
		if s[0] >= 'A' && s[0] <= 'Z' {
			return string(s[0]-'A'+'a') + s[1:]
		}
		return s
	}
	out := make([]byte, 0, len(s))
	upperNext := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			upperNext = true
			continue
		}
		if len(out) == 0 {
			// first rune lowercased
			if c >= 'A' && c <= 'Z' {
				c = c - 'A' + 'a'
			}
			out = append(out, c)
			upperNext = false
			continue
		}
		if upperNext {
			if c >= 'a' && c <= 'z' {
				c = c - 'a' + 'A'
			}
			upperNext = false
		}
		out = append(out, c)
	}
	return string(out)
}

// validMapKey reports whether a field type may key a map. Floats, bytes and
// every non-scalar kind are excluded.
func validMapKey(keyType *schema.FieldType) bool {
	if keyType.Kind != schema.KindPrimitive {
		return false
	}
	switch keyType.PrimitiveType {
	case schema.TypeFloat, schema.TypeDouble, schema.TypeBytes:
		return false
	}
	return true
}

var validWrapperTypes = map[schema.WrapperType]bool{
	schema.WrapperDoubleValue: true,
	schema.WrapperFloatValue:  true,
	schema.WrapperInt64Value:  true,
	schema.WrapperUInt64Value: true,
	schema.WrapperInt32Value:  true,
	schema.WrapperUInt32Value: true,
	schema.WrapperBoolValue:   true,
	schema.WrapperStringValue: true,
	schema.WrapperBytesValue:  true,
}
