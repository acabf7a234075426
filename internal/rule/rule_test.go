package rule

import (
	"reflect"
	"testing"
)

func TestParseThresholdTypeAcceptsHistoricalSpellings(t *testing.T) {
	t.Parallel()

	tests := map[string]ThresholdType{
		"MORE":      ThresholdMore,
		"more than": ThresholdMore,
		"MORE_THAN": ThresholdMore,
		"  More ":   ThresholdMore,
		"LESS":      ThresholdLess,
		"less than": ThresholdLess,
		"LESS_THAN": ThresholdLess,
	}
	for input, want := range tests {
		got, err := ParseThresholdType(input)
		if err != nil {
			t.Fatalf("ParseThresholdType(%q): unexpected error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseThresholdType(%q): got %q, want %q", input, got, want)
		}
	}
	if _, err := ParseThresholdType("equal"); err == nil {
		t.Fatalf("expected error for unknown threshold type")
	}
}

func TestParseMessagesOrderAcceptsHistoricalSpellings(t *testing.T) {
	t.Parallel()

	tests := map[string]MessagesOrder{
		"ANY":       OrderAny,
		"any order": OrderAny,
		"before":    OrderBefore,
		"AFTER":     OrderAfter,
		"additional messages before main messages": OrderBefore,
		"additional messages after main messages":  OrderAfter,
	}
	for input, want := range tests {
		got, err := ParseMessagesOrder(input)
		if err != nil {
			t.Fatalf("ParseMessagesOrder(%q): unexpected error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseMessagesOrder(%q): got %q, want %q", input, got, want)
		}
	}
	if _, err := ParseMessagesOrder("sometimes"); err == nil {
		t.Fatalf("expected error for unknown order")
	}
}

func TestDefaultConfigRecordCarriesEveryField(t *testing.T) {
	t.Parallel()

	record := DefaultConfig().Record()
	for _, name := range FieldNames() {
		if _, ok := record[name]; !ok {
			t.Fatalf("default record misses field %q", name)
		}
	}
	if len(record) != len(FieldNames()) {
		t.Fatalf("unexpected record size %d", len(record))
	}
	if record[FieldSearchQuery] != DefaultSearchQuery {
		t.Fatalf("unexpected search query %v", record[FieldSearchQuery])
	}
	grouping, ok := record[FieldGroupingFields].([]string)
	if !ok || grouping == nil || len(grouping) != 0 {
		t.Fatalf("unexpected grouping fields %#v", record[FieldGroupingFields])
	}
}

func TestRecordCopiesGroupingFields(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.GroupingFields = []string{"user"}
	record := cfg.Record()
	record[FieldGroupingFields].([]string)[0] = "changed"
	if cfg.GroupingFields[0] != "user" {
		t.Fatalf("record shares grouping slice with config")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := DefaultConfig()
	valid.Stream = "main"
	valid.AdditionalStream = "extra"

	tests := []struct {
		name   string
		mutate func(*Config)
		want   map[string]string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
			want:   map[string]string{},
		},
		{
			name: "missing streams",
			mutate: func(cfg *Config) {
				cfg.Stream = ""
				cfg.AdditionalStream = ""
			},
			want: map[string]string{
				FieldStream:           "Stream is mandatory",
				FieldAdditionalStream: "Additional stream is mandatory",
			},
		},
		{
			name: "negative thresholds and zero windows",
			mutate: func(cfg *Config) {
				cfg.Threshold = -1
				cfg.AdditionalThreshold = -2
				cfg.SearchWithinMS = 0
				cfg.ExecuteEveryMS = -1
			},
			want: map[string]string{
				FieldThreshold:           "Threshold must be greater than or equal to 0.",
				FieldAdditionalThreshold: "Additional threshold must be greater than or equal to 0.",
				FieldSearchWithinMS:      "Correlation Count Alert Condition search_within_ms must be greater than 0.",
				FieldExecuteEveryMS:      "Correlation Count Alert Condition execute_every_ms must be greater than 0.",
			},
		},
		{
			name: "unknown enum spellings",
			mutate: func(cfg *Config) {
				cfg.ThresholdType = "more than"
				cfg.MessagesOrder = ""
			},
			want: map[string]string{
				FieldThresholdType: "Threshold type must be one of MORE, LESS",
				FieldMessagesOrder: "Messages order is mandatory",
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid
			cfg.GroupingFields = append([]string(nil), valid.GroupingFields...)
			tt.mutate(&cfg)
			got := Validate(cfg)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("unexpected validation result %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLabels(t *testing.T) {
	t.Parallel()

	if ThresholdLess.Label() != "less than" {
		t.Fatalf("unexpected label %q", ThresholdLess.Label())
	}
	if OrderAny.Label() != "any order" {
		t.Fatalf("unexpected label %q", OrderAny.Label())
	}
	if len(MessagesOrders()) != 3 || len(ThresholdTypes()) != 2 {
		t.Fatalf("unexpected enum sizes")
	}
}

func TestRecordCloneDoesNotAlias(t *testing.T) {
	t.Parallel()

	original := Record{FieldGroupingFields: []string{"user"}, FieldComment: "c"}
	clone := original.Clone()
	clone[FieldGroupingFields].([]string)[0] = "host"
	clone[FieldComment] = "changed"

	if original[FieldGroupingFields].([]string)[0] != "user" || original[FieldComment] != "c" {
		t.Fatalf("clone aliases original: %v", original)
	}
}
