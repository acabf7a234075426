package recordio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"correlationcount/internal/options"
)

// Output formats accepted by Write.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrUnsupportedFormat indicates an unknown file extension or output format.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ReadRecord decodes one event definition or config record.
// Params: path ending in .json, .yaml, .yml, or .toml.
// Returns: record with nested maps normalized to map[string]any.
func ReadRecord(path string) (map[string]any, error) {
	var record map[string]any
	if err := decodeFile(path, &record); err != nil {
		return nil, fmt.Errorf("decode record %q: %w", path, err)
	}
	if record == nil {
		record = map[string]any{}
	}
	normalized, _ := normalize(record).(map[string]any)
	return normalized, nil
}

// ReadStreams decodes a stream list.
// Params: path holding a list, or a `streams` array of tables for TOML.
// Returns: stream descriptors in file order.
func ReadStreams(path string) ([]options.Stream, error) {
	var doc struct {
		Streams []options.Stream `toml:"streams"`
	}
	if err := decodeList(path, &doc.Streams, &doc); err != nil {
		return nil, fmt.Errorf("decode streams %q: %w", path, err)
	}
	return doc.Streams, nil
}

// ReadFieldTypes decodes known message fields.
// Params: path holding a list, or a `fields` array of tables for TOML.
// Returns: field descriptors in file order; an existing empty file yields an empty, non-nil list.
func ReadFieldTypes(path string) ([]options.FieldType, error) {
	var doc struct {
		Fields []options.FieldType `toml:"fields"`
	}
	if err := decodeList(path, &doc.Fields, &doc); err != nil {
		return nil, fmt.Errorf("decode field types %q: %w", path, err)
	}
	if doc.Fields == nil {
		return []options.FieldType{}, nil
	}
	return doc.Fields, nil
}

// ReadValidation decodes a field→message error map.
func ReadValidation(path string) (map[string]string, error) {
	var errs map[string]string
	if err := decodeFile(path, &errs); err != nil {
		return nil, fmt.Errorf("decode validation %q: %w", path, err)
	}
	return errs, nil
}

// Write encodes v to w.
// Params: writer, format ("json" indented or "yaml"), and value.
// Returns: encode error or ErrUnsupportedFormat.
func Write(w io.Writer, format string, v any) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w %q", ErrUnsupportedFormat, format)
	}
}

// decodeList decodes a root list into list, or a TOML document into doc since TOML has no root arrays.
func decodeList(path string, list, doc any) error {
	if extension(path) == ".toml" {
		return decodeFile(path, doc)
	}
	return decodeFile(path, list)
}

func decodeFile(path string, dst any) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch extension(path) {
	case ".json":
		if len(bytes.TrimSpace(body)) == 0 {
			return nil
		}
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		return dec.Decode(dst)
	case ".yaml", ".yml":
		return yaml.Unmarshal(body, dst)
	case ".toml":
		return toml.Unmarshal(body, dst)
	default:
		return fmt.Errorf("%w %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func extension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// normalize converts map[any]any nodes and json.Number leaves into plain Go values.
func normalize(value any) any {
	switch typed := value.(type) {
	case json.Number:
		if n, err := typed.Int64(); err == nil {
			return n
		}
		if f, err := typed.Float64(); err == nil {
			return f
		}
		return typed.String()
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = normalize(v)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[fmt.Sprint(k)] = normalize(v)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = normalize(v)
		}
		return out
	default:
		return value
	}
}
