package options

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"correlationcount/internal/rule"
)

// GroupingFieldsSeparator is the wire separator of the multi-select control.
const GroupingFieldsSeparator = ","

// DefaultHiddenStreams are system event streams that cannot carry custom message fields.
var DefaultHiddenStreams = []string{
	"000000000000000000000002",
	"000000000000000000000003",
}

// Option is one selectable entry of a form control.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Stream describes one host message stream.
type Stream struct {
	ID    string `json:"id" yaml:"id" toml:"id"`
	Title string `json:"title" yaml:"title" toml:"title"`
}

// FieldType describes one known message field and its storage type.
type FieldType struct {
	Name string `json:"name" yaml:"name" toml:"name"`
	Type string `json:"type" yaml:"type" toml:"type"`
}

// NaturalLess compares strings numeric-aware and case-insensitively.
// Params: two labels.
// Returns: true when a sorts before b; ties fall back to byte order.
func NaturalLess(a, b string) bool {
	return newComparator().less(a, b)
}

type comparator struct {
	collator *collate.Collator
}

// newComparator builds a fresh collator; collate.Collator is not safe for concurrent use.
func newComparator() comparator {
	return comparator{collator: collate.New(language.Und, collate.Numeric, collate.IgnoreCase)}
}

func (c comparator) less(a, b string) bool {
	if cmp := c.collator.CompareString(a, b); cmp != 0 {
		return cmp < 0
	}
	return a < b
}

// SortOptions orders options by label with natural ordering, in place.
func SortOptions(items []Option) {
	cmp := newComparator()
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Label == items[j].Label {
			return items[i].Value < items[j].Value
		}
		return cmp.less(items[i].Label, items[j].Label)
	})
}

// StreamOptions maps streams to options sorted by title.
// Params: stream descriptors; an empty title falls back to the stream ID.
// Returns: new option list; input order and contents are untouched.
func StreamOptions(streams []Stream) []Option {
	out := make([]Option, 0, len(streams))
	for _, stream := range streams {
		label := stream.Title
		if strings.TrimSpace(label) == "" {
			label = stream.ID
		}
		out = append(out, Option{Value: stream.ID, Label: label})
	}
	SortOptions(out)
	return out
}

// VisibleStreams drops streams whose ID is hidden.
// Params: stream descriptors and hidden IDs.
// Returns: filtered copy preserving input order.
func VisibleStreams(streams []Stream, hidden []string) []Stream {
	if len(hidden) == 0 {
		return append([]Stream(nil), streams...)
	}
	skip := make(map[string]struct{}, len(hidden))
	for _, id := range hidden {
		skip[id] = struct{}{}
	}
	out := make([]Stream, 0, len(streams))
	for _, stream := range streams {
		if _, ok := skip[stream.ID]; ok {
			continue
		}
		out = append(out, stream)
	}
	return out
}

// FieldOptions maps field names to options with label equal to value.
// Params: field names, possibly repeated or blank.
// Returns: deduplicated list sorted naturally; blank names are skipped.
func FieldOptions(names []string) []Option {
	seen := make(map[string]struct{}, len(names))
	out := make([]Option, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, Option{Value: name, Label: name})
	}
	SortOptions(out)
	return out
}

// FieldTypeOptions maps typed fields to "name – type" options sorted by name.
// Params: field type descriptors; duplicates by name keep the first entry.
// Returns: option list for the grouping-field selector.
func FieldTypeOptions(types []FieldType) []Option {
	seen := make(map[string]struct{}, len(types))
	unique := make([]FieldType, 0, len(types))
	for _, fieldType := range types {
		if strings.TrimSpace(fieldType.Name) == "" {
			continue
		}
		if _, ok := seen[fieldType.Name]; ok {
			continue
		}
		seen[fieldType.Name] = struct{}{}
		unique = append(unique, fieldType)
	}

	cmp := newComparator()
	sort.SliceStable(unique, func(i, j int) bool {
		return cmp.less(unique[i].Name, unique[j].Name)
	})

	out := make([]Option, 0, len(unique))
	for _, fieldType := range unique {
		label := fieldType.Name
		if fieldType.Type != "" {
			label += " – " + fieldType.Type
		}
		out = append(out, Option{Value: fieldType.Name, Label: label})
	}
	return out
}

// FieldNames extracts names from field type descriptors.
func FieldNames(types []FieldType) []string {
	out := make([]string, 0, len(types))
	for _, fieldType := range types {
		out = append(out, fieldType.Name)
	}
	return out
}

// JoinGroupingFields encodes the multi-select value.
// Params: selected field names in insertion order.
// Returns: comma-joined string; empty input gives "".
func JoinGroupingFields(selected []string) string {
	return strings.Join(selected, GroupingFieldsSeparator)
}

// SplitGroupingFields decodes the multi-select value.
// Params: comma-joined string.
// Returns: field names in order; "" gives an empty, non-nil slice.
func SplitGroupingFields(value string) []string {
	if value == "" {
		return []string{}
	}
	return strings.Split(value, GroupingFieldsSeparator)
}

// ThresholdTypeOptions lists threshold types for selectors.
func ThresholdTypeOptions() []Option {
	types := rule.ThresholdTypes()
	out := make([]Option, 0, len(types))
	for _, t := range types {
		out = append(out, Option{Value: string(t), Label: t.Label()})
	}
	return out
}

// MessagesOrderOptions lists ordering choices for selectors.
func MessagesOrderOptions() []Option {
	orders := rule.MessagesOrders()
	out := make([]Option, 0, len(orders))
	for _, o := range orders {
		out = append(out, Option{Value: string(o), Label: o.Label()})
	}
	return out
}

// LabelFor finds the label of value among options.
// Params: option list and value.
// Returns: label, or value itself when no option matches.
func LabelFor(items []Option, value string) string {
	for _, item := range items {
		if item.Value == value {
			return item.Label
		}
	}
	return value
}
