package plugin

import (
	"fmt"

	"correlationcount/internal/config"
	"correlationcount/internal/duration"
	"correlationcount/internal/form"
	"correlationcount/internal/rule"
	"correlationcount/internal/summary"
)

const (
	// DisplayName is the registry label of the correlation-count type.
	DisplayName = "Correlation Count Alert Condition"
	// Description explains the rule in the type picker.
	Description = "This condition is triggered when the number of messages in the main stream is higher/lower than a defined threshold and when the number of messages in the additional stream is higher/lower than another defined threshold in a given time range."
	// SortOrder places the type first in the picker.
	SortOrder = 1
)

// FormComponent renders the edit form for host props.
type FormComponent func(props form.Props) form.View

// SummaryComponent renders the read-only summary of a definition.
type SummaryComponent func(def map[string]any) ([]summary.Row, error)

// Descriptor is the registration record handed to the host.
type Descriptor struct {
	Type          string           `json:"type" yaml:"type"`
	DisplayName   string           `json:"display_name" yaml:"display_name"`
	SortOrder     int              `json:"sort_order" yaml:"sort_order"`
	Description   string           `json:"description" yaml:"description"`
	DefaultConfig rule.Record      `json:"default_config" yaml:"default_config"`
	Form          FormComponent    `json:"-" yaml:"-"`
	Summary       SummaryComponent `json:"-" yaml:"-"`
	Ladder        duration.Ladder  `json:"-" yaml:"-"`
}

// Register builds the descriptor for one deployment.
// Params: form presentation settings and rule default overrides.
// Returns: descriptor bound to the configured ladder, or ladder error.
func Register(formCfg config.FormConfig, defaults config.DefaultsConfig) (Descriptor, error) {
	ladder, err := formCfg.Ladder()
	if err != nil {
		return Descriptor{}, fmt.Errorf("register %s: %w", rule.TypeName, err)
	}
	var hidden []string
	if formCfg.HiddenStreams != nil {
		hidden = append([]string{}, formCfg.HiddenStreams...)
	}

	return Descriptor{
		Type:          rule.TypeName,
		DisplayName:   DisplayName,
		SortOrder:     SortOrder,
		Description:   Description,
		DefaultConfig: defaults.Apply(rule.DefaultConfig()).Record(),
		Form: func(props form.Props) form.View {
			if len(props.Ladder.Steps()) == 0 {
				props.Ladder = ladder
			}
			if props.HiddenStreams == nil {
				props.HiddenStreams = hidden
			}
			return form.Build(props)
		},
		Summary: func(def map[string]any) ([]summary.Row, error) {
			return summary.Rows(def, ladder)
		},
		Ladder: ladder,
	}, nil
}

// NewSession opens an edit session on a definition with this descriptor's ladder.
// Params: definition record (an empty one is seeded with DefaultConfig; legacy layouts are upgraded) and change callback.
// Returns: edit session or the upgrade error of a malformed legacy record.
func (d Descriptor) NewSession(def map[string]any, onChange form.ChangeFunc) (*form.Session, error) {
	if len(def) == 0 {
		def = map[string]any{"config": map[string]any(d.DefaultConfig.Clone())}
	}
	return form.NewSession(def, d.Ladder, onChange)
}
