package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"correlationcount/internal/options"
)

// ErrUnsupportedValue indicates a record value that cannot be converted to its canonical type.
var ErrUnsupportedValue = errors.New("unsupported value")

// ToInt64 converts host numeric representations.
// Params: raw value from JSON (float64, json.Number), YAML (int), TOML (int64), or text.
// Returns: integer, presence flag (nil and blank text count as absent), and conversion error.
func ToInt64(value any) (int64, bool, error) {
	switch typed := value.(type) {
	case nil:
		return 0, false, nil
	case int:
		return int64(typed), true, nil
	case int8:
		return int64(typed), true, nil
	case int16:
		return int64(typed), true, nil
	case int32:
		return int64(typed), true, nil
	case int64:
		return typed, true, nil
	case uint:
		return uintToInt64(uint64(typed))
	case uint8:
		return int64(typed), true, nil
	case uint16:
		return int64(typed), true, nil
	case uint32:
		return int64(typed), true, nil
	case uint64:
		return uintToInt64(typed)
	case float32:
		return floatToInt64(float64(typed))
	case float64:
		return floatToInt64(typed)
	case json.Number:
		return stringToInt64(typed.String())
	case string:
		return stringToInt64(typed)
	default:
		return 0, false, fmt.Errorf("%w: %T is not a number", ErrUnsupportedValue, value)
	}
}

func uintToInt64(value uint64) (int64, bool, error) {
	if value > math.MaxInt64 {
		return 0, false, fmt.Errorf("%w: %d overflows int64", ErrUnsupportedValue, value)
	}
	return int64(value), true, nil
}

func floatToInt64(value float64) (int64, bool, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value != math.Trunc(value) {
		return 0, false, fmt.Errorf("%w: %v is not a whole number", ErrUnsupportedValue, value)
	}
	if value >= math.MaxInt64 || value <= math.MinInt64 {
		return 0, false, fmt.Errorf("%w: %v overflows int64", ErrUnsupportedValue, value)
	}
	return int64(value), true, nil
}

func stringToInt64(value string) (int64, bool, error) {
	text := strings.TrimSpace(value)
	if text == "" {
		return 0, false, nil
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, true, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %q is not a number", ErrUnsupportedValue, value)
	}
	return floatToInt64(f)
}

// toBool converts booleans stored as bool or text.
func toBool(value any) (bool, bool, error) {
	switch typed := value.(type) {
	case nil:
		return false, false, nil
	case bool:
		return typed, true, nil
	case string:
		text := strings.TrimSpace(typed)
		if text == "" {
			return false, false, nil
		}
		parsed, err := strconv.ParseBool(text)
		if err != nil {
			return false, false, fmt.Errorf("%w: %q is not a boolean", ErrUnsupportedValue, typed)
		}
		return parsed, true, nil
	default:
		return false, false, fmt.Errorf("%w: %T is not a boolean", ErrUnsupportedValue, value)
	}
}

// toString accepts text only; numbers are rejected to keep identifiers exact.
func toString(value any) (string, bool, error) {
	switch typed := value.(type) {
	case nil:
		return "", false, nil
	case string:
		return typed, true, nil
	default:
		return "", false, fmt.Errorf("%w: %T is not a string", ErrUnsupportedValue, value)
	}
}

// toStrings accepts lists or the comma-joined wire form of the grouping control.
func toStrings(value any) ([]string, bool, error) {
	switch typed := value.(type) {
	case nil:
		return nil, false, nil
	case []string:
		return append([]string{}, typed...), true, nil
	case []any:
		out := make([]string, 0, len(typed))
		for i, item := range typed {
			text, ok := item.(string)
			if !ok {
				return nil, false, fmt.Errorf("%w: item %d is %T, not a string", ErrUnsupportedValue, i, item)
			}
			out = append(out, text)
		}
		return out, true, nil
	case string:
		return options.SplitGroupingFields(typed), true, nil
	default:
		return nil, false, fmt.Errorf("%w: %T is not a list", ErrUnsupportedValue, value)
	}
}
