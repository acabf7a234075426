package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func decodeJSON(t *testing.T, body string) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("unexpected output %q: %v", body, err)
	}
	return out
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	code, stdout, stderr := run(t, "describe")
	if code != ExitOK {
		t.Fatalf("unexpected exit %d: %s", code, stderr)
	}
	out := decodeJSON(t, stdout)
	if out["type"] != "correlation-count" || out["display_name"] != "Correlation Count Alert Condition" {
		t.Fatalf("unexpected descriptor %v", out)
	}
	defaults := out["default_config"].(map[string]any)
	if defaults["search_query"] != "*" || defaults["messages_order"] != "ANY" {
		t.Fatalf("unexpected default config %v", defaults)
	}
}

func TestNormalizeLegacyRecord(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFixture(t, dir, "rule.yaml", "title: legacy\nconfig:\n  main_threshold: 4\n  time_range: 5\n")

	code, stdout, stderr := run(t, "normalize", path)
	if code != ExitOK {
		t.Fatalf("unexpected exit %d: %s", code, stderr)
	}
	out := decodeJSON(t, stdout)
	if out["version"] != "processor-v1" {
		t.Fatalf("unexpected version %v", out["version"])
	}
	config := out["config"].(map[string]any)
	if config["threshold"] != float64(4) || config["search_within_ms"] != float64(300000) {
		t.Fatalf("unexpected config %v", config)
	}
}

func TestValidateExitCodes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	invalid := writeFixture(t, dir, "invalid.json", `{"config": {"threshold": 1}}`)
	valid := writeFixture(t, dir, "valid.json", `{"config": {"stream": "a", "additional_stream": "b", "threshold": 1}}`)

	code, stdout, _ := run(t, "validate", invalid)
	if code != ExitFailure {
		t.Fatalf("unexpected exit %d", code)
	}
	errs := decodeJSON(t, stdout)
	if errs["stream"] != "Stream is mandatory" {
		t.Fatalf("unexpected errors %v", errs)
	}

	code, stdout, stderr := run(t, "validate", valid)
	if code != ExitOK || strings.TrimSpace(stdout) != "{}" {
		t.Fatalf("unexpected result %d %q %q", code, stdout, stderr)
	}
}

func TestConfigErrorsExitTwo(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := writeFixture(t, dir, "bad.toml", "[plugin]\nx = 1\n")

	code, _, stderr := run(t, "describe", "--config-file", cfg)
	if code != ExitConfig || !strings.Contains(stderr, "[plugin]") {
		t.Fatalf("unexpected result %d %q", code, stderr)
	}
	code, _, _ = run(t, "describe", "--config-file", cfg, "--config-dir", dir)
	if code != ExitConfig {
		t.Fatalf("unexpected exit %d for conflicting sources", code)
	}
}

func TestFormCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	record := writeFixture(t, dir, "rule.json", `{"config": {"search_within_ms": 120000}}`)
	streams := writeFixture(t, dir, "streams.json", `[{"id": "000000000000000000000003", "title": "Sys"}, {"id": "s", "title": "S"}]`)
	fields := writeFixture(t, dir, "fields.json", `[{"name": "user", "type": "string"}]`)

	code, stdout, stderr := run(t, "form")
	if code != ExitOK || !decodeJSON(t, stdout)["loading"].(bool) {
		t.Fatalf("expected loading form, got %d %q %q", code, stdout, stderr)
	}

	code, stdout, stderr = run(t, "form", "--record", record, "--streams", streams, "--fields", fields, "--output", "yaml")
	if code != ExitOK {
		t.Fatalf("unexpected exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "magnitude: 2") || !strings.Contains(stdout, "unit: MINUTES") {
		t.Fatalf("unexpected duration pair in %q", stdout)
	}
	if strings.Contains(stdout, "000000000000000000000003") {
		t.Fatalf("hidden stream leaked into options: %q", stdout)
	}
}

func TestSummaryCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	record := writeFixture(t, dir, "rule.json", `{"config": {"stream": "main", "search_within_ms": 60000}}`)
	tmpl := writeFixture(t, dir, "summary.tmpl", `{{ .Config.Stream }} every {{ fmtDuration .Config.ExecuteEveryMS }}`)

	code, stdout, stderr := run(t, "summary", record)
	if code != ExitOK {
		t.Fatalf("unexpected exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Time Range:") || !strings.Contains(stdout, "1 minute") || !strings.Contains(stdout, "No additional stream for this notification.") {
		t.Fatalf("unexpected summary %q", stdout)
	}

	code, stdout, stderr = run(t, "summary", record, "--template", tmpl)
	if code != ExitOK || stdout != "main every 1 minute" {
		t.Fatalf("unexpected template summary %d %q %q", code, stdout, stderr)
	}
}

func TestEditCommandNotifiesPerChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	record := writeFixture(t, dir, "rule.json", `{"title": "t", "config": {"threshold": 0, "comment": ""}}`)

	code, stdout, stderr := run(t, "edit", record,
		"--set", "threshold=5",
		"--duration", "search_within_ms=0:minutes",
		"--group-by", "user,host",
	)
	if code != ExitOK {
		t.Fatalf("unexpected exit %d: %s", code, stderr)
	}
	if got := strings.Count(stderr, "config changed"); got != 3 {
		t.Fatalf("expected 3 change notifications, got %d: %q", got, stderr)
	}
	out := decodeJSON(t, stdout)
	config := out["config"].(map[string]any)
	if config["threshold"] != "5" || config["search_within_ms"] != float64(60000) {
		t.Fatalf("unexpected edited config %v", config)
	}
	if out["title"] != "t" {
		t.Fatalf("top-level keys lost: %v", out)
	}
}

func TestEditCommandRejectsBadDuration(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	record := writeFixture(t, dir, "rule.json", `{}`)
	code, _, stderr := run(t, "edit", record, "--duration", "search_within_ms=5")
	if code != ExitFailure || !strings.Contains(stderr, "MAGNITUDE:UNIT") {
		t.Fatalf("unexpected result %d %q", code, stderr)
	}
}

func TestDurationCommands(t *testing.T) {
	t.Parallel()

	code, stdout, stderr := run(t, "duration", "to-pair", "7200000")
	if code != ExitOK {
		t.Fatalf("unexpected exit %d: %s", code, stderr)
	}
	pair := decodeJSON(t, stdout)
	if pair["magnitude"] != float64(2) || pair["unit"] != "HOURS" {
		t.Fatalf("unexpected pair %v", pair)
	}

	code, stdout, _ = run(t, "duration", "to-ms", "3", "m")
	if code != ExitOK || decodeJSON(t, stdout)["ms"] != float64(180000) {
		t.Fatalf("unexpected conversion %d %q", code, stdout)
	}

	code, _, _ = run(t, "duration", "to-ms", "3", "weeks")
	if code != ExitFailure {
		t.Fatalf("unexpected exit %d for unknown unit", code)
	}
}

func TestUnsupportedOutputFormat(t *testing.T) {
	t.Parallel()

	code, _, stderr := run(t, "describe", "--output", "xml")
	if code != ExitFailure || !strings.Contains(stderr, "--output") {
		t.Fatalf("unexpected result %d %q", code, stderr)
	}
}

func TestColorFlagColorsConsoleLogs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	record := writeFixture(t, dir, "rule.json", `{}`)

	code, _, stderr := run(t, "edit", record, "--set", "comment=x", "--color")
	if code != ExitOK {
		t.Fatalf("unexpected exit %d: %s", code, stderr)
	}
	if !strings.Contains(stderr, "\x1b[") || !strings.Contains(stderr, "config changed") {
		t.Fatalf("unexpected console output %q", stderr)
	}
}

func TestEditCommandUpgradesLegacyRecord(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	record := writeFixture(t, dir, "rule.yaml", "title: legacy\nparameters:\n  stream: main\n  additional_stream: add\n  time: 10\n  main_threshold: 3\n")

	code, stdout, stderr := run(t, "edit", record, "--set", "threshold=5")
	if code != ExitOK {
		t.Fatalf("unexpected exit %d: %s", code, stderr)
	}
	out := decodeJSON(t, stdout)
	if _, ok := out["parameters"]; ok {
		t.Fatalf("legacy parameters kept: %v", out)
	}
	config := out["config"].(map[string]any)
	if config["stream"] != "main" || config["additional_stream"] != "add" || config["search_within_ms"] != float64(600000) || config["threshold"] != "5" {
		t.Fatalf("unexpected edited config %v", config)
	}
}
