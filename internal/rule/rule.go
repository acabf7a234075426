package rule

import (
	"fmt"
	"strings"
)

// TypeName identifies the correlation-count event definition type in the host registry.
const TypeName = "correlation-count"

// Field names of the canonical configuration record.
const (
	FieldStream                  = "stream"
	FieldThresholdType           = "threshold_type"
	FieldThreshold               = "threshold"
	FieldAdditionalStream        = "additional_stream"
	FieldAdditionalThresholdType = "additional_threshold_type"
	FieldAdditionalThreshold     = "additional_threshold"
	FieldMessagesOrder           = "messages_order"
	FieldSearchWithinMS          = "search_within_ms"
	FieldExecuteEveryMS          = "execute_every_ms"
	FieldGroupingFields          = "grouping_fields"
	FieldComment                 = "comment"
	FieldSearchQuery             = "search_query"
)

// DefaultSearchQuery matches every message.
const DefaultSearchQuery = "*"

// FieldNames lists canonical record keys in form order.
func FieldNames() []string {
	return []string{
		FieldStream,
		FieldThresholdType,
		FieldThreshold,
		FieldAdditionalStream,
		FieldAdditionalThresholdType,
		FieldAdditionalThreshold,
		FieldMessagesOrder,
		FieldSearchWithinMS,
		FieldExecuteEveryMS,
		FieldGroupingFields,
		FieldComment,
		FieldSearchQuery,
	}
}

// Record is the duck-typed configuration mapping exchanged with the host.
type Record map[string]any

// Clone copies the record; string lists are copied too so edits never alias.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		if list, ok := v.([]string); ok {
			v = append([]string{}, list...)
		}
		out[k] = v
	}
	return out
}

// ThresholdType selects whether a stream count must be above or below its threshold.
type ThresholdType string

const (
	// ThresholdMore fires when the count is above the threshold.
	ThresholdMore ThresholdType = "MORE"
	// ThresholdLess fires when the count is below the threshold.
	ThresholdLess ThresholdType = "LESS"
)

// Label returns the human text shown in selectors.
func (t ThresholdType) Label() string {
	switch t {
	case ThresholdMore:
		return "more than"
	case ThresholdLess:
		return "less than"
	default:
		return string(t)
	}
}

// ThresholdTypes returns all threshold types in selector order.
func ThresholdTypes() []ThresholdType {
	return []ThresholdType{ThresholdMore, ThresholdLess}
}

// ParseThresholdType accepts every historical spelling.
// Params: "MORE", "MORE_THAN", "more than", "more" and the LESS equivalents, any case.
// Returns: canonical threshold type or error.
func ParseThresholdType(value string) (ThresholdType, error) {
	switch normalizeToken(value) {
	case "more", "more_than", "higher":
		return ThresholdMore, nil
	case "less", "less_than", "lower":
		return ThresholdLess, nil
	default:
		return "", fmt.Errorf("unknown threshold type %q", value)
	}
}

// MessagesOrder controls the required order between main and additional stream messages.
type MessagesOrder string

const (
	// OrderBefore requires additional messages before main messages.
	OrderBefore MessagesOrder = "BEFORE"
	// OrderAfter requires additional messages after main messages.
	OrderAfter MessagesOrder = "AFTER"
	// OrderAny accepts messages in any order.
	OrderAny MessagesOrder = "ANY"
)

// Label returns the human text shown in selectors.
func (o MessagesOrder) Label() string {
	switch o {
	case OrderBefore:
		return "additional messages before main messages"
	case OrderAfter:
		return "additional messages after main messages"
	case OrderAny:
		return "any order"
	default:
		return string(o)
	}
}

// MessagesOrders returns all orders in selector order.
func MessagesOrders() []MessagesOrder {
	return []MessagesOrder{OrderBefore, OrderAfter, OrderAny}
}

// ParseMessagesOrder accepts every historical spelling.
// Params: enum names, "any order", "before", "after", or the long selector labels.
// Returns: canonical order or error.
func ParseMessagesOrder(value string) (MessagesOrder, error) {
	switch normalizeToken(value) {
	case "before", "additional_messages_before_main_messages":
		return OrderBefore, nil
	case "after", "additional_messages_after_main_messages":
		return OrderAfter, nil
	case "any", "any_order":
		return OrderAny, nil
	default:
		return "", fmt.Errorf("unknown messages order %q", value)
	}
}

func normalizeToken(value string) string {
	fields := strings.Fields(strings.ToLower(value))
	return strings.Join(fields, "_")
}

// Config is the canonical correlation-count rule.
// Params: two streams with independent thresholds, time window, ordering, grouping.
// Returns: typed record converted once at the host boundary.
type Config struct {
	Stream                  string        `json:"stream" yaml:"stream" toml:"stream" validate:"required"`
	ThresholdType           ThresholdType `json:"threshold_type" yaml:"threshold_type" toml:"threshold_type" validate:"required,oneof=MORE LESS"`
	Threshold               int64         `json:"threshold" yaml:"threshold" toml:"threshold" validate:"gte=0"`
	AdditionalStream        string        `json:"additional_stream" yaml:"additional_stream" toml:"additional_stream" validate:"required"`
	AdditionalThresholdType ThresholdType `json:"additional_threshold_type" yaml:"additional_threshold_type" toml:"additional_threshold_type" validate:"required,oneof=MORE LESS"`
	AdditionalThreshold     int64         `json:"additional_threshold" yaml:"additional_threshold" toml:"additional_threshold" validate:"gte=0"`
	MessagesOrder           MessagesOrder `json:"messages_order" yaml:"messages_order" toml:"messages_order" validate:"required,oneof=BEFORE AFTER ANY"`
	SearchWithinMS          int64         `json:"search_within_ms" yaml:"search_within_ms" toml:"search_within_ms" validate:"gt=0"`
	ExecuteEveryMS          int64         `json:"execute_every_ms" yaml:"execute_every_ms" toml:"execute_every_ms" validate:"gt=0"`
	GroupingFields          []string      `json:"grouping_fields" yaml:"grouping_fields" toml:"grouping_fields"`
	Comment                 string        `json:"comment" yaml:"comment" toml:"comment"`
	SearchQuery             string        `json:"search_query" yaml:"search_query" toml:"search_query"`
}

// DefaultConfig returns the zero-edit seed used when a new alert is created.
// Params: none.
// Returns: canonical defaults (MORE/0 thresholds, ANY order, one-minute windows, "*" query).
func DefaultConfig() Config {
	return Config{
		ThresholdType:           ThresholdMore,
		Threshold:               0,
		AdditionalThresholdType: ThresholdMore,
		AdditionalThreshold:     0,
		MessagesOrder:           OrderAny,
		SearchWithinMS:          60 * 1000,
		ExecuteEveryMS:          60 * 1000,
		GroupingFields:          []string{},
		SearchQuery:             DefaultSearchQuery,
	}
}

// Record converts the typed config into the host mapping.
// Params: none.
// Returns: fresh record with every canonical key; grouping_fields is never nil.
func (c Config) Record() Record {
	grouping := append([]string{}, c.GroupingFields...)
	return Record{
		FieldStream:                  c.Stream,
		FieldThresholdType:           string(c.ThresholdType),
		FieldThreshold:               c.Threshold,
		FieldAdditionalStream:        c.AdditionalStream,
		FieldAdditionalThresholdType: string(c.AdditionalThresholdType),
		FieldAdditionalThreshold:     c.AdditionalThreshold,
		FieldMessagesOrder:           string(c.MessagesOrder),
		FieldSearchWithinMS:          c.SearchWithinMS,
		FieldExecuteEveryMS:          c.ExecuteEveryMS,
		FieldGroupingFields:          grouping,
		FieldComment:                 c.Comment,
		FieldSearchQuery:             c.SearchQuery,
	}
}
