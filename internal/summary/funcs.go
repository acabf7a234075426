package summary

import (
	"encoding/json"
	"strings"
	"text/template"

	"correlationcount/internal/duration"
	"correlationcount/internal/schema"
)

// FuncMap returns shared summary template helpers.
// Params: ladder used by fmtDuration.
// Returns: deterministic helper map used by Render and host-supplied templates.
func FuncMap(ladder duration.Ladder) template.FuncMap {
	return template.FuncMap{
		"fmtDuration": func(value any) string { return FormatDuration(value, ladder) },
		"join":        JoinFields,
		"json":        MarshalJSON,
	}
}

// ParseTemplate parses one summary template with shared helpers.
// Params: template name, body, and ladder for duration rendering.
// Returns: compiled template or parse error.
func ParseTemplate(name, body string, ladder duration.Ladder) (*template.Template, error) {
	return template.New(name).Funcs(FuncMap(ladder)).Option("missingkey=error").Parse(body)
}

// FormatDuration renders a millisecond value as a readable pair.
// Params: template value holding milliseconds in any numeric form.
// Returns: text like "5 minutes"; unconvertible values render as zero.
func FormatDuration(value any, ladder duration.Ladder) string {
	ms, ok, err := schema.ToInt64(value)
	if err != nil || !ok {
		ms = 0
	}
	return duration.Format(ms, ladder)
}

// JoinFields renders a grouping field list for humans.
func JoinFields(fields []string) string {
	return strings.Join(fields, ", ")
}

// MarshalJSON renders value into JSON string for template embedding.
// Params: template value of any type.
// Returns: marshaled JSON string or "null" on marshal failure.
func MarshalJSON(value any) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		return "null"
	}
	return string(encoded)
}
