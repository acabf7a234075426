package resolve

import "reflect"

// ConfigKey is the nested sub-record that newer event definitions use for rule fields.
const ConfigKey = "config"

// Resolve returns the first present, non-nil value for field.
// Params: field name, primary record (wins when present), fallback record.
// Returns: value and true, or nil and false when neither record holds the field.
func Resolve(field string, primary, fallback map[string]any) (any, bool) {
	if value, ok := primary[field]; ok && value != nil {
		return value, true
	}
	if value, ok := fallback[field]; ok && value != nil {
		return value, true
	}
	return nil, false
}

// Resolver reads fields from an event definition with top-level precedence over config.*.
type Resolver struct {
	primary  map[string]any
	fallback map[string]any
}

// Definition binds a resolver to an event definition record.
// Params: definition holding rule fields at top level and/or under "config".
// Returns: resolver; a missing or non-map "config" entry leaves the fallback empty.
func Definition(def map[string]any) Resolver {
	return Resolver{primary: def, fallback: Nested(def, ConfigKey)}
}

// Records binds a resolver to explicit primary and fallback records.
func Records(primary, fallback map[string]any) Resolver {
	return Resolver{primary: primary, fallback: fallback}
}

// Nested extracts a sub-record by key.
// Params: parent record and key.
// Returns: nested map or nil when absent or not a map; named map types with string
// keys are copied into a plain map.
func Nested(parent map[string]any, key string) map[string]any {
	switch typed := parent[key].(type) {
	case nil:
		return nil
	case map[string]any:
		return typed
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			if name, ok := k.(string); ok {
				out[name] = v
			}
		}
		return out
	default:
		return stringKeyed(typed)
	}
}

func stringKeyed(value any) map[string]any {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out
}

// Value resolves one field without coercion.
func (r Resolver) Value(field string) (any, bool) {
	return Resolve(field, r.primary, r.fallback)
}

// String resolves a string field; values of other types count as absent.
func (r Resolver) String(field string) (string, bool) {
	value, ok := r.Value(field)
	if !ok {
		return "", false
	}
	text, ok := value.(string)
	return text, ok
}

// StringOr resolves a string field with a caller default for absence.
func (r Resolver) StringOr(field, def string) string {
	if text, ok := r.String(field); ok {
		return text
	}
	return def
}

// Strings resolves a list of strings from []string or []any.
// Params: field name.
// Returns: list and true; nil and false when absent or holding non-string items.
func (r Resolver) Strings(field string) ([]string, bool) {
	value, ok := r.Value(field)
	if !ok {
		return nil, false
	}
	switch typed := value.(type) {
	case []string:
		return typed, true
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			text, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, text)
		}
		return out, true
	default:
		return nil, false
	}
}
