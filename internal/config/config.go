package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"correlationcount/internal/duration"
	"correlationcount/internal/options"
	"correlationcount/internal/rule"
	"correlationcount/internal/summary"

	"github.com/pelletier/go-toml/v2"
)

const defaultServiceName = "correlationcount"

var (
	legacyPluginTablePattern = regexp.MustCompile(`(?m)^\s*\[\[?\s*plugin(?:\.[^\]\s]+)*\s*\]\]?`)
	legacyTimeRangePattern   = regexp.MustCompile(`(?m)^\s*time_range\s*=`)
)

// Config holds toolkit settings.
// Params: TOML sections from file or merged directory snapshot.
// Returns: validated runtime configuration.
type Config struct {
	Service  ServiceConfig  `toml:"service"`
	Log      LogConfig      `toml:"log"`
	Form     FormConfig     `toml:"form"`
	Defaults DefaultsConfig `toml:"defaults"`
	Summary  SummaryConfig  `toml:"summary"`
}

// ServiceConfig contains process-level settings.
type ServiceConfig struct {
	Name string `toml:"name"`
}

// LogConfig contains console/file logging sinks.
// Params: sink settings for each output target.
// Returns: logger setup options.
type LogConfig struct {
	Console LogSinkConfig `toml:"console"`
	File    LogSinkConfig `toml:"file"`
}

// LogSinkConfig defines one logging sink.
// Params: sink enable flag, level, format, and path.
// Returns: sink-specific behavior.
type LogSinkConfig struct {
	Enabled bool   `toml:"enabled"`
	Level   string `toml:"level"`
	Format  string `toml:"format"`
	Path    string `toml:"path"`
}

// FormConfig controls how the form presents streams and durations.
// Params: hidden stream IDs, time selector units, and rounding for inexact durations.
// Returns: form presentation settings.
type FormConfig struct {
	HiddenStreams []string `toml:"hidden_streams"`
	TimeUnits     []string `toml:"time_units"`
	Rounding      string   `toml:"rounding"`
}

// DefaultsConfig overrides the seed config of newly created rules.
// Params: optional values; zero values keep the built-in default.
// Returns: per-deployment rule defaults.
type DefaultsConfig struct {
	SearchQuery             string `toml:"search_query"`
	SearchWithinMS          int64  `toml:"search_within_ms"`
	ExecuteEveryMS          int64  `toml:"execute_every_ms"`
	ThresholdType           string `toml:"threshold_type"`
	AdditionalThresholdType string `toml:"additional_threshold_type"`
	MessagesOrder           string `toml:"messages_order"`
}

// SummaryConfig holds an optional text/template body for summaries.
type SummaryConfig struct {
	Template string `toml:"template"`
}

// ConfigSource describes where config is loaded from.
// Params: either file path or directory path; both empty selects built-in defaults.
// Returns: source selector for LoadSnapshot.
type ConfigSource struct {
	File string
	Dir  string
}

// IsZero reports whether no source was selected.
func (s ConfigSource) IsZero() bool {
	return s.File == "" && s.Dir == ""
}

// FromCLI validates mutually exclusive config source flags.
// Params: --config-file and --config-dir values.
// Returns: config source or flag validation error.
func FromCLI(filePath, dirPath string) (ConfigSource, error) {
	filePath = strings.TrimSpace(filePath)
	dirPath = strings.TrimSpace(dirPath)

	if filePath != "" && dirPath != "" {
		return ConfigSource{}, errors.New("config source must be either file or dir")
	}
	return ConfigSource{File: filePath, Dir: dirPath}, nil
}

// Default returns the built-in configuration used without a config source.
func Default() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

// LoadSnapshot loads and validates configuration from one source.
// Params: source selects file, directory, or built-in defaults.
// Returns: validated config or load/validation error.
func LoadSnapshot(src ConfigSource) (Config, error) {
	var cfg Config
	var err error
	switch {
	case src.File != "":
		cfg, err = loadFile(src.File)
	case src.Dir != "":
		cfg, err = loadDir(src.Dir)
	}
	if err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Ladder builds the duration ladder selected by the form settings.
// Params: none; empty time_units selects the default ladder units.
// Returns: ladder or unit/rounding error.
func (f FormConfig) Ladder() (duration.Ladder, error) {
	rounding, err := duration.ParseRounding(f.Rounding)
	if err != nil {
		return duration.Ladder{}, fmt.Errorf("form.rounding: %w", err)
	}
	if len(f.TimeUnits) == 0 {
		ladder, err := duration.NewLadder(rounding, duration.DefaultLadder().Units()...)
		if err != nil {
			return duration.Ladder{}, fmt.Errorf("form.time_units: %w", err)
		}
		return ladder, nil
	}
	units := make([]duration.Unit, 0, len(f.TimeUnits))
	for i, name := range f.TimeUnits {
		unit, err := duration.ParseUnit(name)
		if err != nil {
			return duration.Ladder{}, fmt.Errorf("form.time_units[%d]: %w", i, err)
		}
		units = append(units, unit)
	}
	ladder, err := duration.NewLadder(rounding, units...)
	if err != nil {
		return duration.Ladder{}, fmt.Errorf("form.time_units: %w", err)
	}
	return ladder, nil
}

// Apply overlays configured defaults onto a rule config.
// Params: seed config, usually rule.DefaultConfig().
// Returns: config with every non-zero override applied.
func (d DefaultsConfig) Apply(cfg rule.Config) rule.Config {
	if d.SearchQuery != "" {
		cfg.SearchQuery = d.SearchQuery
	}
	if d.SearchWithinMS > 0 {
		cfg.SearchWithinMS = d.SearchWithinMS
	}
	if d.ExecuteEveryMS > 0 {
		cfg.ExecuteEveryMS = d.ExecuteEveryMS
	}
	if t, err := rule.ParseThresholdType(d.ThresholdType); err == nil {
		cfg.ThresholdType = t
	}
	if t, err := rule.ParseThresholdType(d.AdditionalThresholdType); err == nil {
		cfg.AdditionalThresholdType = t
	}
	if o, err := rule.ParseMessagesOrder(d.MessagesOrder); err == nil {
		cfg.MessagesOrder = o
	}
	return cfg
}

// configMergeHints carries explicit bool-presence markers used for directory overlays.
// Params: sparse fields decoded from one TOML fragment.
// Returns: merge behavior hints for zero-value bool overrides.
type configMergeHints struct {
	Log logMergeHints `toml:"log"`
}

type logMergeHints struct {
	Console sinkMergeHints `toml:"console"`
	File    sinkMergeHints `toml:"file"`
}

type sinkMergeHints struct {
	Enabled *bool `toml:"enabled"`
}

// rejectUnsupportedSyntax checks deprecated/forbidden TOML syntax and returns explicit error.
// Params: raw TOML file body.
// Returns: error when unsupported syntax is detected.
func rejectUnsupportedSyntax(body []byte) error {
	if legacyPluginTablePattern.Match(body) {
		return errors.New("legacy [plugin] section is not supported; use [form] and [defaults] tables")
	}
	if legacyTimeRangePattern.Match(body) {
		return errors.New("time_range is not supported; use defaults.search_within_ms and defaults.execute_every_ms in milliseconds")
	}
	return nil
}

// loadFile reads one TOML configuration file.
// Params: file path to config snapshot.
// Returns: decoded config or read/decode error.
func loadFile(path string) (Config, error) {
	cfg, _, err := loadFileForMerge(path)
	return cfg, err
}

// loadFileForMerge reads one TOML file with merge hints.
// Params: file path to config fragment.
// Returns: decoded config plus explicit-bool hints for overlay merge.
func loadFileForMerge(path string) (Config, configMergeHints, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return Config{}, configMergeHints{}, fmt.Errorf("read config file %q: %w", path, err)
	}
	if err := rejectUnsupportedSyntax(body); err != nil {
		return Config{}, configMergeHints{}, fmt.Errorf("decode config file %q: %w", path, err)
	}
	var cfg Config
	if err := toml.Unmarshal(body, &cfg); err != nil {
		return Config{}, configMergeHints{}, fmt.Errorf("decode config file %q: %w", path, err)
	}
	var hints configMergeHints
	if err := toml.Unmarshal(body, &hints); err != nil {
		return Config{}, configMergeHints{}, fmt.Errorf("decode merge hints %q: %w", path, err)
	}
	return cfg, hints, nil
}

// loadDir reads and merges TOML files from one directory.
// Params: directory containing config fragments.
// Returns: merged config snapshot or load/decode error.
func loadDir(dir string) (Config, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Config{}, fmt.Errorf("read config dir %q: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.ToLower(filepath.Ext(name)) != ".toml" {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	if len(files) == 0 {
		return Config{}, fmt.Errorf("no .toml files found in %q", dir)
	}
	sort.Strings(files)

	var merged Config
	for _, file := range files {
		fragment, hints, err := loadFileForMerge(file)
		if err != nil {
			return Config{}, err
		}
		mergeConfig(&merged, fragment, hints)
	}
	return merged, nil
}

// mergeConfig overlays source onto destination.
// Params: destination config, next fragment, and its explicit-bool hints.
// Returns: merged configuration side-effect in dst.
func mergeConfig(dst *Config, src Config, hints configMergeHints) {
	if src.Service.Name != "" {
		dst.Service.Name = src.Service.Name
	}
	mergeLogSink(&dst.Log.Console, src.Log.Console, hints.Log.Console)
	mergeLogSink(&dst.Log.File, src.Log.File, hints.Log.File)

	if src.Form.HiddenStreams != nil {
		dst.Form.HiddenStreams = src.Form.HiddenStreams
	}
	if src.Form.TimeUnits != nil {
		dst.Form.TimeUnits = src.Form.TimeUnits
	}
	if src.Form.Rounding != "" {
		dst.Form.Rounding = src.Form.Rounding
	}

	d := src.Defaults
	if d.SearchQuery != "" {
		dst.Defaults.SearchQuery = d.SearchQuery
	}
	if d.SearchWithinMS != 0 {
		dst.Defaults.SearchWithinMS = d.SearchWithinMS
	}
	if d.ExecuteEveryMS != 0 {
		dst.Defaults.ExecuteEveryMS = d.ExecuteEveryMS
	}
	if d.ThresholdType != "" {
		dst.Defaults.ThresholdType = d.ThresholdType
	}
	if d.AdditionalThresholdType != "" {
		dst.Defaults.AdditionalThresholdType = d.AdditionalThresholdType
	}
	if d.MessagesOrder != "" {
		dst.Defaults.MessagesOrder = d.MessagesOrder
	}

	if src.Summary.Template != "" {
		dst.Summary.Template = src.Summary.Template
	}
}

func mergeLogSink(dst *LogSinkConfig, src LogSinkConfig, hints sinkMergeHints) {
	if hints.Enabled != nil {
		dst.Enabled = *hints.Enabled
	}
	if src.Level != "" {
		dst.Level = src.Level
	}
	if src.Format != "" {
		dst.Format = src.Format
	}
	if src.Path != "" {
		dst.Path = src.Path
	}
}

// applyDefaults fills omitted values.
// Params: decoded config.
// Returns: defaults side-effect in cfg.
func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Service.Name) == "" {
		cfg.Service.Name = defaultServiceName
	}

	if cfg.Log.Console.Level == "" {
		cfg.Log.Console.Level = "info"
	}
	if cfg.Log.Console.Format == "" {
		cfg.Log.Console.Format = "line"
	}
	if cfg.Log.File.Level == "" {
		cfg.Log.File.Level = "info"
	}
	if cfg.Log.File.Format == "" {
		cfg.Log.File.Format = "json"
	}
	if !cfg.Log.Console.Enabled && !cfg.Log.File.Enabled {
		cfg.Log.Console.Enabled = true
	}

	if cfg.Form.HiddenStreams == nil {
		cfg.Form.HiddenStreams = append([]string{}, options.DefaultHiddenStreams...)
	}
	if len(cfg.Form.TimeUnits) == 0 {
		for _, unit := range duration.DefaultLadder().Units() {
			cfg.Form.TimeUnits = append(cfg.Form.TimeUnits, string(unit))
		}
	}
	if cfg.Form.Rounding == "" {
		cfg.Form.Rounding = "floor"
	}
}

// validateConfig validates config after defaults.
// Params: config snapshot.
// Returns: first error with a dotted field path.
func validateConfig(cfg Config) error {
	if err := validateLogSink("log.console", cfg.Log.Console, false); err != nil {
		return err
	}
	if err := validateLogSink("log.file", cfg.Log.File, true); err != nil {
		return err
	}

	for i, id := range cfg.Form.HiddenStreams {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("form.hidden_streams[%d] must not be empty", i)
		}
	}
	ladder, err := cfg.Form.Ladder()
	if err != nil {
		return err
	}

	d := cfg.Defaults
	if d.SearchWithinMS < 0 {
		return errors.New("defaults.search_within_ms must be >=0")
	}
	if d.ExecuteEveryMS < 0 {
		return errors.New("defaults.execute_every_ms must be >=0")
	}
	if d.ThresholdType != "" {
		if _, err := rule.ParseThresholdType(d.ThresholdType); err != nil {
			return fmt.Errorf("defaults.threshold_type: %w", err)
		}
	}
	if d.AdditionalThresholdType != "" {
		if _, err := rule.ParseThresholdType(d.AdditionalThresholdType); err != nil {
			return fmt.Errorf("defaults.additional_threshold_type: %w", err)
		}
	}
	if d.MessagesOrder != "" {
		if _, err := rule.ParseMessagesOrder(d.MessagesOrder); err != nil {
			return fmt.Errorf("defaults.messages_order: %w", err)
		}
	}

	if body := strings.TrimSpace(cfg.Summary.Template); body != "" {
		if _, err := summary.ParseTemplate("summary.template", body, ladder); err != nil {
			return fmt.Errorf("summary.template is invalid: %w", err)
		}
	}
	return nil
}

// validateLogSink validates one log sink configuration.
// Params: sink name, sink values, and whether path is required.
// Returns: sink validation error.
func validateLogSink(name string, sink LogSinkConfig, requirePath bool) error {
	if !sink.Enabled {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(sink.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%s.level has unsupported value %q", name, sink.Level)
	}

	switch strings.ToLower(strings.TrimSpace(sink.Format)) {
	case "line", "json":
	default:
		return fmt.Errorf("%s.format has unsupported value %q", name, sink.Format)
	}

	if requirePath && strings.TrimSpace(sink.Path) == "" {
		return fmt.Errorf("%s.path is required", name)
	}

	return nil
}
