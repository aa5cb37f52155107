package mapsafe

import (
	"fmt"
	"reflect"

	"go.yaml.in/yaml/v3"
)

// Get retrieves a typed value from a map[string]any.
// If the key is missing or the type cannot be converted, it returns the default value.
func Get[T any](m map[string]any, key string, defaultValue T) T {
	if val, ok := m[key]; ok {
		switch any(defaultValue).(type) {
		case int:
			switch x := val.(type) {
			case int:
				return any(x).(T)
			case float64:
				return any(int(x)).(T)
			}
		case float64:
			switch x := val.(type) {
			case float64:
				return any(x).(T)
			case int:
				return any(float64(x)).(T)
			}
		case string:
			if s, ok := val.(string); ok {
				return any(s).(T)
			}
		case bool:
			if b, ok := val.(bool); ok {
				return any(b).(T)
			}
		default:
			// fallback: if type matches exactly
			if v2, ok := val.(T); ok {
				return v2
			}
		}
	}
	return defaultValue
}

// Convert coerces a decoded value (typically from YAML or JSON, where numbers
// arrive as float64 or int) into the given target type. Numeric kinds convert
// directly; composite values go through a YAML round trip.
func Convert(value any, target reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(target), nil
	}

	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(target) {
		return v, nil
	}

	if isNumeric(v.Kind()) && isNumeric(target.Kind()) {
		return v.Convert(target), nil
	}

	raw, err := yaml.Marshal(value)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("mapsafe: cannot convert %T to %s: %w", value, target, err)
	}

	out := reflect.New(target)
	if err := yaml.Unmarshal(raw, out.Interface()); err != nil {
		return reflect.Value{}, fmt.Errorf("mapsafe: cannot convert %T to %s: %w", value, target, err)
	}

	return out.Elem(), nil
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
