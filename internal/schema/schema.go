package schema

import (
	"fmt"

	"correlationcount/internal/resolve"
	"correlationcount/internal/rule"
)

// Version identifies which historical layout produced a record.
type Version string

const (
	// VersionAlertCondition is the legacy stream alert condition with `parameters.*`,
	// minutes in `time`, and `main_threshold*` keys.
	VersionAlertCondition Version = "alert-condition"
	// VersionProcessorV1 is the first event-processor layout with `title`,
	// `main_threshold*`, `time_range` minutes, `grace_period`, and `message_backlog`.
	VersionProcessorV1 Version = "processor-v1"
	// VersionCurrent is the canonical layout with millisecond windows.
	VersionCurrent Version = "current"
)

const (
	parametersKey = "parameters"

	msPerMinute = int64(60 * 1000)

	defaultAlertConditionMinutes = 5
)

var (
	currentMarkers        = []string{rule.FieldSearchWithinMS, rule.FieldExecuteEveryMS, rule.FieldThresholdType, rule.FieldThreshold}
	processorV1Markers    = []string{"time_range", "grace_period", "message_backlog"}
	alertConditionMarkers = []string{"time", "grace", "backlog", "repeat_notifications"}
)

// Legacy keeps values of older layouts that the canonical config no longer carries.
// Params: title and notification-era knobs folded into the host notification layer.
// Returns: read-only context for summaries of legacy records.
type Legacy struct {
	Title               string `json:"title,omitempty" yaml:"title,omitempty"`
	GracePeriod         int64  `json:"grace_period" yaml:"grace_period"`
	MessageBacklog      int64  `json:"message_backlog" yaml:"message_backlog"`
	RepeatNotifications bool   `json:"repeat_notifications" yaml:"repeat_notifications"`
}

// Result is the outcome of normalizing one record.
type Result struct {
	Version Version     `json:"version" yaml:"version"`
	Config  rule.Config `json:"config" yaml:"config"`
	Legacy  *Legacy     `json:"legacy,omitempty" yaml:"legacy,omitempty"`
}

// IsLegacy reports whether the record came from an older layout.
func (r Result) IsLegacy() bool {
	return r.Version != VersionCurrent
}

// Detect picks the layout of a raw record by key presence.
// Params: event definition or bare config record, possibly with `config`/`parameters` sub-records.
// Returns: detected version; records with no markers are treated as current.
func Detect(raw map[string]any) Version {
	params := resolve.Nested(raw, parametersKey)
	lookup := resolve.Definition(raw)
	if hasAny(lookup, currentMarkers) {
		return VersionCurrent
	}
	if hasAny(lookup, processorV1Markers) {
		return VersionProcessorV1
	}
	if params != nil || hasAny(lookup, alertConditionMarkers) {
		return VersionAlertCondition
	}
	if hasAny(lookup, []string{"main_threshold_type", "main_threshold", "title"}) {
		return VersionProcessorV1
	}
	return VersionCurrent
}

func hasAny(lookup resolve.Resolver, keys []string) bool {
	for _, key := range keys {
		if _, ok := lookup.Value(key); ok {
			return true
		}
	}
	return false
}

// Normalize converts a record of any known layout into the canonical config.
// Params: raw record as decoded from the host.
// Returns: version, canonical config seeded from rule.DefaultConfig, legacy extras, or a field-path error.
func Normalize(raw map[string]any) (Result, error) {
	version := Detect(raw)
	switch version {
	case VersionAlertCondition:
		return normalizeAlertCondition(raw)
	case VersionProcessorV1:
		return normalizeProcessorV1(raw)
	default:
		return normalizeCurrent(raw)
	}
}

// LegacyKeys lists keys that only older layouts carry, including the `parameters` sub-record.
// Params: none.
// Returns: fresh key list; "title" is excluded since current event definitions keep it.
func LegacyKeys() []string {
	keys := []string{parametersKey, "main_threshold_type", "main_threshold", "stream_id"}
	keys = append(keys, processorV1Markers...)
	return append(keys, alertConditionMarkers...)
}

// Upgrade rewrites a record of any layout into a canonical host record.
func Upgrade(raw map[string]any) (rule.Record, Version, error) {
	result, err := Normalize(raw)
	if err != nil {
		return nil, "", err
	}
	return result.Config.Record(), result.Version, nil
}

// reader wraps a resolver with typed, error-reporting getters.
type reader struct {
	lookup resolve.Resolver
	err    error
}

func (r *reader) fail(field string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%s: %w", field, err)
	}
}

func (r *reader) text(field string, dst *string) {
	value, _ := r.lookup.Value(field)
	text, ok, err := toString(value)
	if err != nil {
		r.fail(field, err)
		return
	}
	if ok {
		*dst = text
	}
}

func (r *reader) integer(field string, dst *int64) bool {
	value, _ := r.lookup.Value(field)
	n, ok, err := ToInt64(value)
	if err != nil {
		r.fail(field, err)
		return false
	}
	if ok {
		*dst = n
	}
	return ok
}

func (r *reader) flag(field string, dst *bool) {
	value, _ := r.lookup.Value(field)
	b, ok, err := toBool(value)
	if err != nil {
		r.fail(field, err)
		return
	}
	if ok {
		*dst = b
	}
}

func (r *reader) list(field string, dst *[]string) {
	value, _ := r.lookup.Value(field)
	list, ok, err := toStrings(value)
	if err != nil {
		r.fail(field, err)
		return
	}
	if ok {
		*dst = list
	}
}

func (r *reader) thresholdType(field string, dst *rule.ThresholdType) {
	var text string
	r.text(field, &text)
	if text == "" {
		return
	}
	parsed, err := rule.ParseThresholdType(text)
	if err != nil {
		r.fail(field, fmt.Errorf("%w: %v", ErrUnsupportedValue, err))
		return
	}
	*dst = parsed
}

func (r *reader) messagesOrder(field string, dst *rule.MessagesOrder) {
	var text string
	r.text(field, &text)
	if text == "" {
		return
	}
	parsed, err := rule.ParseMessagesOrder(text)
	if err != nil {
		r.fail(field, fmt.Errorf("%w: %v", ErrUnsupportedValue, err))
		return
	}
	*dst = parsed
}

// minutes reads a minute count into both windows.
func (r *reader) minutes(field string, cfg *rule.Config) {
	var minutes int64
	if !r.integer(field, &minutes) {
		return
	}
	if minutes < 0 {
		minutes = 0
	}
	cfg.SearchWithinMS = minutes * msPerMinute
	cfg.ExecuteEveryMS = minutes * msPerMinute
}

func (r *reader) nonNegative(field string, dst *int64) {
	if r.integer(field, dst) && *dst < 0 {
		*dst = 0
	}
}

func normalizeCurrent(raw map[string]any) (Result, error) {
	cfg := rule.DefaultConfig()
	r := &reader{lookup: resolve.Definition(raw)}

	r.text(rule.FieldStream, &cfg.Stream)
	r.thresholdType(rule.FieldThresholdType, &cfg.ThresholdType)
	r.integer(rule.FieldThreshold, &cfg.Threshold)
	r.text(rule.FieldAdditionalStream, &cfg.AdditionalStream)
	r.thresholdType(rule.FieldAdditionalThresholdType, &cfg.AdditionalThresholdType)
	r.integer(rule.FieldAdditionalThreshold, &cfg.AdditionalThreshold)
	r.messagesOrder(rule.FieldMessagesOrder, &cfg.MessagesOrder)
	r.integer(rule.FieldSearchWithinMS, &cfg.SearchWithinMS)
	r.integer(rule.FieldExecuteEveryMS, &cfg.ExecuteEveryMS)
	r.list(rule.FieldGroupingFields, &cfg.GroupingFields)
	r.text(rule.FieldComment, &cfg.Comment)
	r.text(rule.FieldSearchQuery, &cfg.SearchQuery)
	if r.err != nil {
		return Result{}, fmt.Errorf("normalize %s record: %w", VersionCurrent, r.err)
	}
	return Result{Version: VersionCurrent, Config: cfg}, nil
}

func normalizeProcessorV1(raw map[string]any) (Result, error) {
	cfg := rule.DefaultConfig()
	legacy := &Legacy{}
	r := &reader{lookup: resolve.Definition(raw)}

	r.text("title", &legacy.Title)
	r.text(rule.FieldStream, &cfg.Stream)
	r.thresholdType("main_threshold_type", &cfg.ThresholdType)
	r.integer("main_threshold", &cfg.Threshold)
	r.text(rule.FieldAdditionalStream, &cfg.AdditionalStream)
	r.thresholdType(rule.FieldAdditionalThresholdType, &cfg.AdditionalThresholdType)
	r.integer(rule.FieldAdditionalThreshold, &cfg.AdditionalThreshold)
	r.minutes("time_range", &cfg)
	r.messagesOrder(rule.FieldMessagesOrder, &cfg.MessagesOrder)
	r.nonNegative("grace_period", &legacy.GracePeriod)
	r.nonNegative("message_backlog", &legacy.MessageBacklog)
	r.list(rule.FieldGroupingFields, &cfg.GroupingFields)
	r.text(rule.FieldComment, &cfg.Comment)
	r.text(rule.FieldSearchQuery, &cfg.SearchQuery)
	r.flag("repeat_notifications", &legacy.RepeatNotifications)
	if r.err != nil {
		return Result{}, fmt.Errorf("normalize %s record: %w", VersionProcessorV1, r.err)
	}
	return Result{Version: VersionProcessorV1, Config: cfg, Legacy: legacy}, nil
}

func normalizeAlertCondition(raw map[string]any) (Result, error) {
	cfg := rule.DefaultConfig()
	cfg.SearchWithinMS = defaultAlertConditionMinutes * msPerMinute
	cfg.ExecuteEveryMS = defaultAlertConditionMinutes * msPerMinute
	legacy := &Legacy{}
	r := &reader{lookup: resolve.Records(resolve.Nested(raw, parametersKey), raw)}

	r.text("title", &legacy.Title)
	r.text(rule.FieldStream, &cfg.Stream)
	if cfg.Stream == "" {
		r.text("stream_id", &cfg.Stream)
	}
	r.thresholdType("main_threshold_type", &cfg.ThresholdType)
	r.integer("main_threshold", &cfg.Threshold)
	r.text(rule.FieldAdditionalStream, &cfg.AdditionalStream)
	r.thresholdType(rule.FieldAdditionalThresholdType, &cfg.AdditionalThresholdType)
	r.integer(rule.FieldAdditionalThreshold, &cfg.AdditionalThreshold)
	r.minutes("time", &cfg)
	r.messagesOrder(rule.FieldMessagesOrder, &cfg.MessagesOrder)
	r.nonNegative("grace", &legacy.GracePeriod)
	r.nonNegative("backlog", &legacy.MessageBacklog)
	r.flag("repeat_notifications", &legacy.RepeatNotifications)
	r.list(rule.FieldGroupingFields, &cfg.GroupingFields)
	r.text(rule.FieldComment, &cfg.Comment)
	r.text(rule.FieldSearchQuery, &cfg.SearchQuery)
	if r.err != nil {
		return Result{}, fmt.Errorf("normalize %s record: %w", VersionAlertCondition, r.err)
	}
	return Result{Version: VersionAlertCondition, Config: cfg, Legacy: legacy}, nil
}
