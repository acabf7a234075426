package summary

import (
	"fmt"
	"io"
	"strconv"
	"text/template"

	"correlationcount/internal/duration"
	"correlationcount/internal/schema"
)

// Fallback texts for empty values.
const (
	NoTitle                   = "No title for this notification."
	NoStream                  = "No stream for this notification."
	NoAdditionalStream        = "No additional stream for this notification."
	NoAdditionalThresholdType = "No additional threshold type for this notification."
	NoMainThresholdType       = "No main threshold type for this notification."
	NoMessagesOrder           = "No messages order for this notification."
	NoGroupingFields          = "No grouping fields for this notification."
)

// Row is one labelled line of the summary.
type Row struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Data is what host-supplied summary templates see.
type Data struct {
	schema.Result
	Rows []Row
}

var rowsTemplate = template.Must(template.New("summary").Parse(
	"{{- range . }}{{ printf \"%-28s\" .Label }}{{ .Value }}\n{{ end -}}",
))

// Build normalizes a definition and prepares template data.
// Params: event definition of any known layout, ladder for durations.
// Returns: normalized result with rows, or the normalization error.
func Build(def map[string]any, ladder duration.Ladder) (Data, error) {
	result, err := schema.Normalize(def)
	if err != nil {
		return Data{}, fmt.Errorf("summarize record: %w", err)
	}
	return Data{Result: result, Rows: rowsFor(result, ladder)}, nil
}

// Rows returns the ordered summary lines of a definition.
// Params: event definition of any known layout, ladder for durations.
// Returns: rows with fallback texts for empty values; legacy rows only for legacy records.
func Rows(def map[string]any, ladder duration.Ladder) ([]Row, error) {
	data, err := Build(def, ladder)
	if err != nil {
		return nil, err
	}
	return data.Rows, nil
}

func rowsFor(result schema.Result, ladder duration.Ladder) []Row {
	cfg := result.Config
	rows := make([]Row, 0, 16)
	if result.Legacy != nil {
		rows = append(rows, Row{Label: "Title:", Value: orText(result.Legacy.Title, NoTitle)})
	}
	rows = append(rows,
		Row{Label: "Stream:", Value: orText(cfg.Stream, NoStream)},
		Row{Label: "Additional Stream:", Value: orText(cfg.AdditionalStream, NoAdditionalStream)},
		Row{Label: "Additional Threshold Type:", Value: orText(cfg.AdditionalThresholdType.Label(), NoAdditionalThresholdType)},
		Row{Label: "Additional Threshold:", Value: strconv.FormatInt(cfg.AdditionalThreshold, 10)},
		Row{Label: "Main Threshold Type:", Value: orText(cfg.ThresholdType.Label(), NoMainThresholdType)},
		Row{Label: "Main Threshold:", Value: strconv.FormatInt(cfg.Threshold, 10)},
		Row{Label: "Messages Order:", Value: orText(cfg.MessagesOrder.Label(), NoMessagesOrder)},
		Row{Label: "Time Range:", Value: duration.Format(cfg.SearchWithinMS, ladder)},
		Row{Label: "Execute Every:", Value: duration.Format(cfg.ExecuteEveryMS, ladder)},
	)
	if result.Legacy != nil {
		rows = append(rows,
			Row{Label: "Grace Period:", Value: strconv.FormatInt(result.Legacy.GracePeriod, 10)},
			Row{Label: "Message Backlog:", Value: strconv.FormatInt(result.Legacy.MessageBacklog, 10)},
		)
	}
	grouping := NoGroupingFields
	if len(cfg.GroupingFields) > 0 {
		grouping = JoinFields(cfg.GroupingFields)
	}
	rows = append(rows,
		Row{Label: "Grouping Fields:", Value: grouping},
		Row{Label: "Comment:", Value: cfg.Comment},
		Row{Label: "Search Query:", Value: cfg.SearchQuery},
	)
	return rows
}

func orText(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// Render writes rows as aligned "Label value" lines.
func Render(w io.Writer, rows []Row) error {
	if err := rowsTemplate.Execute(w, rows); err != nil {
		return fmt.Errorf("render summary: %w", err)
	}
	return nil
}

// RenderTemplate writes a definition through a host-supplied template.
// Params: writer, compiled template from ParseTemplate, definition, ladder.
// Returns: normalization or execution error.
func RenderTemplate(w io.Writer, tmpl *template.Template, def map[string]any, ladder duration.Ladder) error {
	data, err := Build(def, ladder)
	if err != nil {
		return err
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render summary template %q: %w", tmpl.Name(), err)
	}
	return nil
}
