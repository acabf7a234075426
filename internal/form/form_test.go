package form

import (
	"reflect"
	"sync"
	"testing"

	"correlationcount/internal/duration"
	"correlationcount/internal/options"
	"correlationcount/internal/rule"
	"correlationcount/internal/schema"
)

func TestApplyChangeReplacesOnlyOneKey(t *testing.T) {
	t.Parallel()

	original := rule.DefaultConfig().Record()
	next := ApplyChange(original, rule.FieldThreshold, "5")

	if original[rule.FieldThreshold] != int64(0) {
		t.Fatalf("original record was mutated: %v", original[rule.FieldThreshold])
	}
	if next[rule.FieldThreshold] != "5" {
		t.Fatalf("unexpected threshold %v", next[rule.FieldThreshold])
	}
	for key, value := range original {
		if key == rule.FieldThreshold {
			continue
		}
		if !reflect.DeepEqual(next[key], value) {
			t.Fatalf("unexpected change of %s: %v -> %v", key, value, next[key])
		}
	}
	if len(next) != len(original) {
		t.Fatalf("unexpected key count %d, want %d", len(next), len(original))
	}
}

func TestApplyChangeOnNilRecord(t *testing.T) {
	t.Parallel()

	next := ApplyChange(nil, rule.FieldComment, "x")
	if len(next) != 1 || next[rule.FieldComment] != "x" {
		t.Fatalf("unexpected record %v", next)
	}
}

func newSession(t *testing.T, def map[string]any, onChange ChangeFunc) *Session {
	t.Helper()
	session, err := NewSession(def, duration.DefaultLadder(), onChange)
	if err != nil {
		t.Fatalf("unexpected session error: %v", err)
	}
	return session
}

type recorder struct {
	mu    sync.Mutex
	keys  []string
	calls []rule.Record
}

func (r *recorder) onChange(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	r.calls = append(r.calls, value.(rule.Record))
}

func TestSessionNotifiesOncePerEdit(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	def := map[string]any{"title": "t", "config": map[string]any(rule.DefaultConfig().Record())}
	session := newSession(t, def, rec.onChange)

	session.SetText(rule.FieldComment, "hello")
	if len(rec.calls) != 1 || rec.keys[0] != "config" {
		t.Fatalf("unexpected notifications %v", rec.keys)
	}
	if rec.calls[0][rule.FieldComment] != "hello" {
		t.Fatalf("unexpected notified config %v", rec.calls[0])
	}
	if session.Revision() != 1 {
		t.Fatalf("unexpected revision %d", session.Revision())
	}
	if session.Definition()["title"] != "t" {
		t.Fatalf("definition lost top-level keys: %v", session.Definition())
	}
	prevConfig := session.Previous()["config"].(map[string]any)
	if prevConfig[rule.FieldComment] != "" {
		t.Fatalf("previous definition was mutated: %v", prevConfig)
	}
}

func TestSessionSetDurationClampsAndRejects(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	session := newSession(t, nil, rec.onChange)

	ms, err := session.SetDuration(rule.FieldSearchWithinMS, 0, duration.Minutes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ms != 60000 || session.Config()[rule.FieldSearchWithinMS] != int64(60000) {
		t.Fatalf("unexpected stored window %d %v", ms, session.Config())
	}

	if _, err := session.SetDuration(rule.FieldSearchWithinMS, 1, duration.Unit("WEEKS")); err == nil {
		t.Fatalf("expected unit error")
	}
	if len(rec.calls) != 1 {
		t.Fatalf("failed edit must not notify, got %d calls", len(rec.calls))
	}
}

func TestSessionSetGroupingFields(t *testing.T) {
	t.Parallel()

	session := newSession(t, nil, nil)
	if got := session.SetGroupingFields("user,host"); !reflect.DeepEqual(got, []string{"user", "host"}) {
		t.Fatalf("unexpected grouping fields %v", got)
	}
	got := session.SetGroupingFields("")
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", got)
	}
}

func TestSessionConcurrentEdits(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	session := newSession(t, nil, rec.onChange)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session.SetText(rule.FieldComment, "c")
		}()
	}
	wg.Wait()

	if session.Revision() != 20 || len(rec.calls) != 20 {
		t.Fatalf("unexpected revision %d calls %d", session.Revision(), len(rec.calls))
	}
}

func TestBuildLoadingWithoutFieldTypes(t *testing.T) {
	t.Parallel()

	view := Build(Props{Definition: map[string]any{}})
	if !view.Loading || view.LoadingText != LoadingText || len(view.Fields) != 0 {
		t.Fatalf("unexpected loading view %+v", view)
	}
}

func TestBuildFormView(t *testing.T) {
	t.Parallel()

	props := Props{
		Definition: map[string]any{
			"config": map[string]any{
				"stream":           "s1",
				"threshold":        int64(3),
				"search_within_ms": int64(7200000),
				"execute_every_ms": int64(90000),
				"grouping_fields":  []any{"user", "host"},
			},
		},
		Validation: map[string]string{"additional_stream": "Additional stream is mandatory"},
		Streams: []options.Stream{
			{ID: "000000000000000000000002", Title: "System events"},
			{ID: "s10", Title: "stream 10"},
			{ID: "s2", Title: "stream 2"},
		},
		FieldTypes: []options.FieldType{{Name: "user", Type: "string"}},
	}

	view := Build(props)
	if view.Loading {
		t.Fatalf("unexpected loading view")
	}
	if len(view.Fields) != len(rule.FieldNames()) {
		t.Fatalf("unexpected field count %d", len(view.Fields))
	}
	for i, name := range rule.FieldNames() {
		if view.Fields[i].ID != name {
			t.Fatalf("unexpected field order at %d: %s", i, view.Fields[i].ID)
		}
	}

	stream, _ := view.Field(rule.FieldStream)
	wantStreams := []options.Option{{Value: "s2", Label: "stream 2"}, {Value: "s10", Label: "stream 10"}}
	if stream.Value != "s1" || !reflect.DeepEqual(stream.Options, wantStreams) {
		t.Fatalf("unexpected stream field %+v", stream)
	}

	within, _ := view.Field(rule.FieldSearchWithinMS)
	if within.Pair == nil || *within.Pair != (duration.Pair{Magnitude: 2, Unit: duration.Hours}) {
		t.Fatalf("unexpected search window pair %+v", within.Pair)
	}
	every, _ := view.Field(rule.FieldExecuteEveryMS)
	if *every.Pair != (duration.Pair{Magnitude: 90, Unit: duration.Seconds}) {
		t.Fatalf("unexpected execute pair %+v", every.Pair)
	}

	grouping, _ := view.Field(rule.FieldGroupingFields)
	if grouping.Value != "user,host" || !grouping.AllowCreate || grouping.Required {
		t.Fatalf("unexpected grouping field %+v", grouping)
	}

	query, _ := view.Field(rule.FieldSearchQuery)
	if query.Value != "*" {
		t.Fatalf("unexpected default search query %v", query.Value)
	}

	additional, _ := view.Field(rule.FieldAdditionalStream)
	if additional.Error != "Additional stream is mandatory" {
		t.Fatalf("unexpected validation error %q", additional.Error)
	}
}

func TestBuildTopLevelValueWins(t *testing.T) {
	t.Parallel()

	view := Build(Props{
		Definition: map[string]any{
			"comment": "top",
			"config":  map[string]any{"comment": "nested", "search_query": ""},
		},
		FieldTypes: []options.FieldType{},
	})
	comment, _ := view.Field(rule.FieldComment)
	if comment.Value != "top" {
		t.Fatalf("unexpected comment %v", comment.Value)
	}
	query, _ := view.Field(rule.FieldSearchQuery)
	if query.Value != "" {
		t.Fatalf("explicit empty query replaced by %v", query.Value)
	}
}

func TestSessionUpgradesLegacyRecord(t *testing.T) {
	t.Parallel()

	session := newSession(t, map[string]any{
		"title": "legacy",
		"parameters": map[string]any{
			"stream":            "main",
			"additional_stream": "add",
			"time":              10,
			"main_threshold":    3,
			"grace":             2,
		},
	}, nil)

	def := session.Definition()
	if _, ok := def["parameters"]; ok {
		t.Fatalf("legacy parameters kept after upgrade: %v", def)
	}
	if def["title"] != "legacy" {
		t.Fatalf("definition lost title: %v", def)
	}

	session.SetText(rule.FieldComment, "hi")
	result, err := schema.Normalize(session.Definition())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Version != schema.VersionCurrent || result.Config.Comment != "hi" {
		t.Fatalf("unexpected result after comment edit %+v", result)
	}

	session.SetText(rule.FieldThreshold, "5")
	result, err = schema.Normalize(session.Definition())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := result.Config
	if cfg.Stream != "main" || cfg.AdditionalStream != "add" || cfg.SearchWithinMS != 600000 || cfg.Threshold != 5 || cfg.Comment != "hi" {
		t.Fatalf("legacy values lost after edit %+v", cfg)
	}
}

func TestSessionRejectsMalformedLegacyRecord(t *testing.T) {
	t.Parallel()

	_, err := NewSession(map[string]any{"parameters": map[string]any{"time": "soon"}}, duration.DefaultLadder(), nil)
	if err == nil {
		t.Fatalf("expected upgrade error")
	}
}

func TestSessionMovesTopLevelFieldsIntoConfig(t *testing.T) {
	t.Parallel()

	session := newSession(t, map[string]any{
		"title":     "t",
		"threshold": 3,
		"config":    map[string]any{"threshold": 1, "stream": "abc"},
	}, nil)
	session.SetText(rule.FieldThreshold, "5")

	def := session.Definition()
	if _, ok := def[rule.FieldThreshold]; ok {
		t.Fatalf("top-level rule field kept: %v", def)
	}
	view := Build(Props{Definition: def, FieldTypes: []options.FieldType{}})
	threshold, _ := view.Field(rule.FieldThreshold)
	stream, _ := view.Field(rule.FieldStream)
	if threshold.Value != "5" || stream.Value != "abc" {
		t.Fatalf("unexpected form values threshold=%v stream=%v", threshold.Value, stream.Value)
	}
}

func TestSessionAcceptsRecordTypedConfig(t *testing.T) {
	t.Parallel()

	cfg := rule.DefaultConfig().Record()
	cfg[rule.FieldStream] = "abc"
	session := newSession(t, map[string]any{"config": cfg}, nil)
	if session.Config()[rule.FieldStream] != "abc" {
		t.Fatalf("config sub-record dropped: %v", session.Config())
	}

	view := Build(Props{Definition: map[string]any{"config": cfg}, FieldTypes: []options.FieldType{}})
	if stream, _ := view.Field(rule.FieldStream); stream.Value != "abc" {
		t.Fatalf("unexpected form stream %v", stream.Value)
	}
}

func TestSessionAccessorsReturnCopies(t *testing.T) {
	t.Parallel()

	session := newSession(t, map[string]any{"config": map[string]any{"stream": "abc", "threshold": 0}}, nil)
	session.Config()[rule.FieldStream] = "mutated"
	session.Definition()["config"].(map[string]any)[rule.FieldStream] = "mutated"
	returned := session.Change(rule.FieldComment, "c")
	returned[rule.FieldComment] = "mutated"

	cfg := session.Config()
	if cfg[rule.FieldStream] != "abc" || cfg[rule.FieldComment] != "c" {
		t.Fatalf("session state mutated outside Change: %v", cfg)
	}
	if session.Revision() != 1 {
		t.Fatalf("unexpected revision %d", session.Revision())
	}
}
