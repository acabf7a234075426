package form

import (
	"fmt"
	"sync"

	"correlationcount/internal/duration"
	"correlationcount/internal/options"
	"correlationcount/internal/resolve"
	"correlationcount/internal/rule"
	"correlationcount/internal/schema"
)

// ChangeFunc receives one notification per discrete edit.
// Params: changed key on the event definition ("config") and the new config record.
// Returns: nothing; the host owns persistence.
type ChangeFunc func(key string, value any)

// Session holds the event definition being edited and publishes edits.
// Params: definition record with rule fields under "config", ladder for time fields, change callback.
// Returns: edit container safe for concurrent use.
type Session struct {
	mu         sync.Mutex
	definition rule.Record
	previous   rule.Record
	revision   uint64
	ladder     duration.Ladder
	onChange   ChangeFunc
}

// NewSession creates an edit session.
// Params: definition (copied; legacy layouts are upgraded into "config" and top-level
// rule fields move into "config"), ladder, and optional change callback.
// Returns: session at revision 0, or the upgrade error of a malformed legacy record.
func NewSession(definition map[string]any, ladder duration.Ladder, onChange ChangeFunc) (*Session, error) {
	def, err := canonicalDefinition(definition)
	if err != nil {
		return nil, err
	}
	return &Session{
		definition: def,
		ladder:     ladder,
		onChange:   onChange,
	}, nil
}

// canonicalDefinition copies a definition so that every rule field lives under "config"
// in the current layout.
func canonicalDefinition(definition map[string]any) (rule.Record, error) {
	def := make(rule.Record, len(definition)+1)
	for k, v := range definition {
		def[k] = v
	}

	if schema.Detect(definition) != schema.VersionCurrent {
		upgraded, _, err := schema.Upgrade(definition)
		if err != nil {
			return nil, fmt.Errorf("open session: %w", err)
		}
		for _, key := range schema.LegacyKeys() {
			delete(def, key)
		}
		for _, key := range rule.FieldNames() {
			delete(def, key)
		}
		def[resolve.ConfigKey] = map[string]any(upgraded)
		return def, nil
	}

	config := rule.Record(resolve.Nested(def, resolve.ConfigKey)).Clone()
	for _, key := range rule.FieldNames() {
		if value, ok := def[key]; ok {
			if value != nil {
				config[key] = value
			}
			delete(def, key)
		}
	}
	def[resolve.ConfigKey] = map[string]any(config)
	return def, nil
}

// Definition returns a copy of the current event definition record.
func (s *Session) Definition() rule.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneDefinition(s.definition)
}

// Previous returns a copy of the definition before the last edit, or nil at revision 0.
func (s *Session) Previous() rule.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.previous == nil {
		return nil
	}
	return cloneDefinition(s.previous)
}

// Config returns a copy of the current rule config sub-record.
func (s *Session) Config() rule.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return rule.Record(resolve.Nested(s.definition, resolve.ConfigKey)).Clone()
}

func cloneDefinition(def rule.Record) rule.Record {
	out := def.Clone()
	if config := resolve.Nested(def, resolve.ConfigKey); config != nil {
		out[resolve.ConfigKey] = map[string]any(rule.Record(config).Clone())
	}
	return out
}

// Revision counts applied edits.
func (s *Session) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Change replaces one config key and notifies the host once.
// Params: config key and value (stored as given, without validation).
// Returns: a copy of the new config record.
func (s *Session) Change(key string, value any) rule.Record {
	s.mu.Lock()
	config := ApplyChange(resolve.Nested(s.definition, resolve.ConfigKey), key, value)
	s.previous = s.definition
	s.definition = ApplyChange(s.definition, resolve.ConfigKey, map[string]any(config))
	s.revision++
	notify := s.onChange
	s.mu.Unlock()

	out := config.Clone()
	if notify != nil {
		notify(resolve.ConfigKey, out)
	}
	return out
}

// SetDuration stores a time field from its editable pair.
// Params: config key, magnitude (clamped to at least 1), and unit.
// Returns: stored milliseconds or codec error; on error nothing is stored.
func (s *Session) SetDuration(key string, magnitude int64, unit duration.Unit) (int64, error) {
	ms, err := duration.ToMilliseconds(magnitude, unit, s.ladder)
	if err != nil {
		return 0, fmt.Errorf("set %s: %w", key, err)
	}
	s.Change(key, ms)
	return ms, nil
}

// SetGroupingFields stores grouping fields from the multi-select wire value.
// Params: comma-joined field names; "" clears the selection.
// Returns: stored field list.
func (s *Session) SetGroupingFields(wire string) []string {
	fields := options.SplitGroupingFields(wire)
	s.Change(rule.FieldGroupingFields, fields)
	return fields
}

// SetText stores a free-text or numeric-text input value as typed.
func (s *Session) SetText(key, value string) {
	s.Change(key, value)
}
