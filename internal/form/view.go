package form

import (
	"fmt"

	"correlationcount/internal/duration"
	"correlationcount/internal/options"
	"correlationcount/internal/resolve"
	"correlationcount/internal/rule"
	"correlationcount/internal/schema"
)

// LoadingText is shown while field types are still being fetched.
const LoadingText = "Loading Filter & Correlation Count Information..."

// Control names the input widget of one form field.
type Control string

const (
	ControlSelect      Control = "select"
	ControlNumber      Control = "number"
	ControlDuration    Control = "duration"
	ControlMultiSelect Control = "multiselect"
	ControlText        Control = "text"
)

// Props is everything the host passes to the form.
type Props struct {
	Definition    map[string]any      `json:"definition" yaml:"definition"`
	Validation    map[string]string   `json:"validation,omitempty" yaml:"validation,omitempty"`
	Streams       []options.Stream    `json:"streams" yaml:"streams"`
	FieldTypes    []options.FieldType `json:"field_types" yaml:"field_types"`
	HiddenStreams []string            `json:"hidden_streams,omitempty" yaml:"hidden_streams,omitempty"`
	Ladder        duration.Ladder     `json:"-" yaml:"-"`
}

// View is the rendered form model.
type View struct {
	Loading     bool        `json:"loading" yaml:"loading"`
	LoadingText string      `json:"loading_text,omitempty" yaml:"loading_text,omitempty"`
	Fields      []FieldView `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Field returns the field with the given ID.
func (v View) Field(id string) (FieldView, bool) {
	for _, field := range v.Fields {
		if field.ID == id {
			return field, true
		}
	}
	return FieldView{}, false
}

// FieldView is one labelled control with its current value and error.
type FieldView struct {
	ID          string           `json:"id" yaml:"id"`
	Label       string           `json:"label" yaml:"label"`
	Help        string           `json:"help" yaml:"help"`
	Control     Control          `json:"control" yaml:"control"`
	Required    bool             `json:"required" yaml:"required"`
	Placeholder string           `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Value       any              `json:"value" yaml:"value"`
	Pair        *duration.Pair   `json:"pair,omitempty" yaml:"pair,omitempty"`
	Units       []duration.Unit  `json:"units,omitempty" yaml:"units,omitempty"`
	Options     []options.Option `json:"options,omitempty" yaml:"options,omitempty"`
	AllowCreate bool             `json:"allow_create,omitempty" yaml:"allow_create,omitempty"`
	Error       string           `json:"error,omitempty" yaml:"error,omitempty"`
}

const (
	thresholdTypeHelp = "Select condition to trigger alert: when there are more or less messages in the %s than the threshold"
	thresholdHelp     = "Value which triggers an alert if crossed"
)

// Build renders the form model from host props.
// Params: definition record, validation errors, streams, and field types (nil means still loading).
// Returns: view; validation errors are attached for display only.
func Build(props Props) View {
	if props.FieldTypes == nil {
		return View{Loading: true, LoadingText: LoadingText}
	}
	ladder := props.Ladder
	if len(ladder.Steps()) == 0 {
		ladder = duration.DefaultLadder()
	}
	hidden := props.HiddenStreams
	if hidden == nil {
		hidden = options.DefaultHiddenStreams
	}

	lookup := resolve.Definition(props.Definition)
	defaults := rule.DefaultConfig()
	streams := options.StreamOptions(options.VisibleStreams(props.Streams, hidden))
	thresholdTypes := options.ThresholdTypeOptions()

	fields := []FieldView{
		{
			ID:          rule.FieldStream,
			Label:       "Stream",
			Help:        "Select streams the search should include. Searches in all streams if empty.",
			Control:     ControlSelect,
			Required:    true,
			Placeholder: "Select Stream",
			Value:       lookup.StringOr(rule.FieldStream, ""),
			Options:     streams,
		},
		{
			ID:       rule.FieldThresholdType,
			Label:    "Threshold Type",
			Help:     fmt.Sprintf(thresholdTypeHelp, "main stream"),
			Control:  ControlSelect,
			Required: true,
			Value:    lookup.StringOr(rule.FieldThresholdType, ""),
			Options:  thresholdTypes,
		},
		{
			ID:       rule.FieldThreshold,
			Label:    "Threshold",
			Help:     thresholdHelp,
			Control:  ControlNumber,
			Required: true,
			Value:    rawValue(lookup, rule.FieldThreshold),
		},
		{
			ID:          rule.FieldAdditionalStream,
			Label:       "Additional Stream",
			Help:        "Select the stream to correlate with the main stream",
			Control:     ControlSelect,
			Required:    true,
			Placeholder: "Select Stream",
			Value:       lookup.StringOr(rule.FieldAdditionalStream, ""),
			Options:     streams,
		},
		{
			ID:       rule.FieldAdditionalThresholdType,
			Label:    "Additional Threshold Type",
			Help:     fmt.Sprintf(thresholdTypeHelp, "additional stream"),
			Control:  ControlSelect,
			Required: true,
			Value:    lookup.StringOr(rule.FieldAdditionalThresholdType, ""),
			Options:  thresholdTypes,
		},
		{
			ID:       rule.FieldAdditionalThreshold,
			Label:    "Additional Threshold",
			Help:     thresholdHelp,
			Control:  ControlNumber,
			Required: true,
			Value:    rawValue(lookup, rule.FieldAdditionalThreshold),
		},
		{
			ID:       rule.FieldMessagesOrder,
			Label:    "Messages Order",
			Help:     "Select condition to trigger alert: when the messages of the additional stream come in any order relative to/before/after the messages of the main stream",
			Control:  ControlSelect,
			Required: true,
			Value:    lookup.StringOr(rule.FieldMessagesOrder, ""),
			Options:  options.MessagesOrderOptions(),
		},
		durationField(lookup, ladder, rule.FieldSearchWithinMS, "Search within the last", defaults.SearchWithinMS),
		durationField(lookup, ladder, rule.FieldExecuteEveryMS, "Execute search every", defaults.ExecuteEveryMS),
		{
			ID:          rule.FieldGroupingFields,
			Label:       "Group by Field(s)",
			Help:        "Fields that should be checked to count messages with the same values",
			Control:     ControlMultiSelect,
			Value:       groupingValue(lookup),
			Options:     options.FieldTypeOptions(props.FieldTypes),
			AllowCreate: true,
		},
		{
			ID:      rule.FieldComment,
			Label:   "Comment",
			Help:    "Comment about the configuration",
			Control: ControlText,
			Value:   lookup.StringOr(rule.FieldComment, ""),
		},
		{
			ID:      rule.FieldSearchQuery,
			Label:   "Search Query",
			Help:    "Query string that should be used to filter messages in the stream",
			Control: ControlText,
			Value:   searchQueryValue(lookup),
		},
	}

	for i := range fields {
		fields[i].Error = props.Validation[fields[i].ID]
	}
	return View{Fields: fields}
}

func rawValue(lookup resolve.Resolver, field string) any {
	value, _ := lookup.Value(field)
	return value
}

func durationField(lookup resolve.Resolver, ladder duration.Ladder, field, label string, fallback int64) FieldView {
	ms := fallback
	if value, ok := lookup.Value(field); ok {
		if n, present, err := schema.ToInt64(value); err == nil && present {
			ms = n
		}
	}
	pair := duration.ToPair(ms, ladder)
	return FieldView{
		ID:       field,
		Label:    label,
		Control:  ControlDuration,
		Required: true,
		Value:    ms,
		Pair:     &pair,
		Units:    ladder.Units(),
	}
}

// groupingValue is the comma-joined wire value of the multi-select.
func groupingValue(lookup resolve.Resolver) string {
	fields, ok := lookup.Strings(rule.FieldGroupingFields)
	if !ok {
		return ""
	}
	return options.JoinGroupingFields(fields)
}

func searchQueryValue(lookup resolve.Resolver) string {
	if _, ok := lookup.Value(rule.FieldSearchQuery); !ok {
		return rule.DefaultSearchQuery
	}
	return lookup.StringOr(rule.FieldSearchQuery, "")
}
