package form

import "correlationcount/internal/rule"

// ApplyChange returns a shallow copy of cfg with one key replaced.
// Params: current record (never mutated), key, and new value.
// Returns: new record; nil cfg yields a one-key record.
func ApplyChange(cfg rule.Record, key string, value any) rule.Record {
	next := make(rule.Record, len(cfg)+1)
	for k, v := range cfg {
		next[k] = v
	}
	next[key] = value
	return next
}
