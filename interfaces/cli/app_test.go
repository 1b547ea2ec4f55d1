package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// run executes args against a filesystem store rooted at dir.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)
	full := append([]string{"--driver", "filesystem", "--dir", dir, "--log-level", "error"}, args...)
	err := app.ExecuteWithArgs(context.Background(), full)
	return stdout.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()

	out, err := run(t, dir, args...)
	if err != nil {
		t.Fatalf("%v failed: %v", args, err)
	}
	return out
}

func TestApp_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"version"})
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "plantkeep version") {
		t.Errorf("version output missing 'plantkeep version', got: %s", output)
	}
}

func TestApp_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"--help"})
	if err != nil {
		t.Fatalf("help command failed: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "plant identification app") {
		t.Errorf("help output missing description, got: %s", output)
	}
	for _, name := range []string{"cache", "limit", "favorites", "history", "profile", "plants", "config"} {
		if !strings.Contains(output, name) {
			t.Errorf("help output missing %q command, got: %s", name, output)
		}
	}
}

func TestApp_ConfigSchema(t *testing.T) {
	out := mustRun(t, t.TempDir(), "config", "schema")
	if !strings.Contains(out, `"storage"`) {
		t.Errorf("schema missing storage section: %s", out)
	}

	file := filepath.Join(t.TempDir(), "schema.json")
	out = mustRun(t, t.TempDir(), "config", "schema", "--file", file)
	if !strings.Contains(out, "Schema written") {
		t.Errorf("unexpected output: %s", out)
	}
	if _, err := os.Stat(file); err != nil {
		t.Errorf("schema file not written: %v", err)
	}
}

func TestApp_ConfigValidate(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "plantkeep.yaml")
	if err := os.WriteFile(valid, []byte("storage:\n  driver: memory\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	var stdout, stderr bytes.Buffer
	err := New().WithOutput(&stdout, &stderr).
		ExecuteWithArgs(context.Background(), []string{"config", "validate", "-c", valid})
	if err != nil {
		t.Fatalf("validate command failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "valid") {
		t.Errorf("validate output missing 'valid', got: %s", stdout.String())
	}

	invalid := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(invalid, []byte("storage:\n  driver: floppy\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	err = New().WithOutput(&stdout, &stderr).
		ExecuteWithArgs(context.Background(), []string{"config", "validate", "-c", invalid})
	if err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestApp_ConfigShowOverrides(t *testing.T) {
	dir := t.TempDir()
	out := mustRun(t, dir, "--user", "u1", "-o", "yaml", "config", "show")
	if !strings.Contains(out, "driver: filesystem") {
		t.Errorf("driver override missing: %s", out)
	}
	if !strings.Contains(out, "id: u1") {
		t.Errorf("user override missing: %s", out)
	}
}

func TestApp_CacheRoundTrip(t *testing.T) {
	dir := t.TempDir()

	mustRun(t, dir, "cache", "save", "weather_cache", `{"temp":21}`)

	out := mustRun(t, dir, "cache", "load", "weather_cache")
	var got map[string]float64
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("load output is not JSON: %v (%s)", err, out)
	}
	if got["temp"] != 21 {
		t.Errorf("load = %v, want temp 21", got)
	}

	out = mustRun(t, dir, "cache", "info")
	if !strings.Contains(out, "weather_cache") {
		t.Errorf("info missing key: %s", out)
	}

	mustRun(t, dir, "cache", "clear", "weather_cache")
	if _, err := run(t, dir, "cache", "stale", "weather_cache"); err == nil {
		t.Error("expected error after clear")
	}
}

func TestApp_CacheSaveRejectsInvalidJSON(t *testing.T) {
	if _, err := run(t, t.TempDir(), "cache", "save", "weather_cache", "{nope"); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestApp_CacheClearNeedsKeys(t *testing.T) {
	if _, err := run(t, t.TempDir(), "cache", "clear"); err == nil {
		t.Error("expected error without keys or --all")
	}
}

func TestApp_LimitExhausts(t *testing.T) {
	dir := t.TempDir()

	for i := 0; i < 10; i++ {
		mustRun(t, dir, "limit", "use")
	}
	_, err := run(t, dir, "limit", "use")
	if !errors.Is(err, errLimitReached) {
		t.Fatalf("11th use error = %v, want errLimitReached", err)
	}

	out := mustRun(t, dir, "limit", "status")
	if !strings.Contains(out, `"remaining": 0`) {
		t.Errorf("status after exhaustion: %s", out)
	}

	mustRun(t, dir, "limit", "reset")
	out = mustRun(t, dir, "limit", "status")
	if !strings.Contains(out, `"remaining": 10`) {
		t.Errorf("status after reset: %s", out)
	}
}

func TestApp_Favorites(t *testing.T) {
	dir := t.TempDir()

	mustRun(t, dir, "--user", "u1", "favorites", "add", "42", "--name", "Fern")
	out := mustRun(t, dir, "--user", "u1", "favorites", "list")
	if !strings.Contains(out, `"common_name": "Fern"`) {
		t.Errorf("list missing favorite: %s", out)
	}

	out = mustRun(t, dir, "favorites", "list")
	if strings.Contains(out, "Fern") {
		t.Errorf("guest sees user favorites: %s", out)
	}

	out = mustRun(t, dir, "--user", "u1", "favorites", "toggle", "42")
	if !strings.Contains(out, "Removed") {
		t.Errorf("toggle output: %s", out)
	}
	if _, err := run(t, dir, "--user", "u1", "favorites", "remove", "42"); err == nil {
		t.Error("expected error removing a non-favorite")
	}
}

func TestApp_HistoryRecordsDetections(t *testing.T) {
	dir := t.TempDir()

	mustRun(t, dir, "--user", "u1", "history", "add", "-p", "leaf_rust:0.92", "-p", "blight:0.4")

	out := mustRun(t, dir, "--user", "u1", "history", "list")
	if !strings.Contains(out, "leaf_rust") {
		t.Errorf("history missing scan: %s", out)
	}

	out = mustRun(t, dir, "--user", "u1", "profile", "stats")
	if !strings.Contains(out, `"total": 2`) || !strings.Contains(out, `"highConfidence": 1`) {
		t.Errorf("stats: %s", out)
	}

	out = mustRun(t, dir, "limit", "status")
	if !strings.Contains(out, `"used": 1`) {
		t.Errorf("scan did not consume budget: %s", out)
	}
}

func TestApp_HistoryBadPrediction(t *testing.T) {
	for _, p := range []string{"rust", "rust:high", ":0.5", "rust:1.5"} {
		if _, err := run(t, t.TempDir(), "history", "add", "-p", p); err == nil {
			t.Errorf("expected error for prediction %q", p)
		}
	}
}

func TestApp_ProfileNeedsUser(t *testing.T) {
	if _, err := run(t, t.TempDir(), "profile", "show"); err == nil {
		t.Error("expected error without a user")
	}
}

func TestApp_ProfileSetupAndDelete(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, dir, "--user", "u1", "profile", "check")
	if !strings.Contains(out, `"needsSetup": true`) {
		t.Errorf("check before setup: %s", out)
	}

	mustRun(t, dir, "--user", "u1", "profile", "setup", "--name", "Ada", "--lat", "52.5", "--lon", "13.4")
	out = mustRun(t, dir, "--user", "u1", "profile", "show")
	if !strings.Contains(out, `"name": "Ada"`) || !strings.Contains(out, `"latitude": 52.5`) {
		t.Errorf("profile after setup: %s", out)
	}

	mustRun(t, dir, "--user", "u1", "favorites", "add", "7")
	mustRun(t, dir, "--user", "u1", "profile", "delete")

	out = mustRun(t, dir, "--user", "u1", "favorites", "list")
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("favorites after delete: %s", out)
	}
}

func TestApp_PlantsLoad(t *testing.T) {
	dir := t.TempDir()
	catalogue := filepath.Join(dir, "plants.json")
	content := `{"data":[{"id":1,"common_name":"European Silver Fir","scientific_name":["Abies alba"]}]}`
	if err := os.WriteFile(catalogue, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write catalogue: %v", err)
	}

	out := mustRun(t, dir, "plants", "load", "--file", catalogue)
	if !strings.Contains(out, `"source": "remote"`) || !strings.Contains(out, "European Silver Fir") {
		t.Errorf("first load: %s", out)
	}

	out = mustRun(t, dir, "plants", "load", "--file", catalogue)
	if !strings.Contains(out, `"source": "fresh"`) {
		t.Errorf("second load should hit cache: %s", out)
	}
}

func TestApp_PlantsLoadNeedsSource(t *testing.T) {
	if _, err := run(t, t.TempDir(), "plants", "load"); err == nil {
		t.Error("expected error without --file or --url")
	}
}

func TestApp_UnsupportedOutput(t *testing.T) {
	if _, err := run(t, t.TempDir(), "-o", "xml", "limit", "status"); err == nil {
		t.Error("expected error for unsupported output format")
	}
}

func TestApp_Flags(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, dir, "flags", "status")
	if !strings.Contains(out, `"firstLaunch": true`) || !strings.Contains(out, `"loggedIn": false`) {
		t.Errorf("initial flags: %s", out)
	}

	mustRun(t, dir, "flags", "launch")
	mustRun(t, dir, "flags", "login")
	out = mustRun(t, dir, "flags", "status")
	if !strings.Contains(out, `"firstLaunch": false`) || !strings.Contains(out, `"loggedIn": true`) {
		t.Errorf("flags after launch and login: %s", out)
	}

	mustRun(t, dir, "flags", "logout")
	out = mustRun(t, dir, "flags", "status")
	if !strings.Contains(out, `"loggedIn": false`) {
		t.Errorf("flags after logout: %s", out)
	}
}

func TestApp_TraceStdout(t *testing.T) {
	dir := t.TempDir()
	catalogue := filepath.Join(dir, "plants.json")
	if err := os.WriteFile(catalogue, []byte(`[{"id":"1","common_name":"Fern"}]`), 0o644); err != nil {
		t.Fatalf("failed to write catalogue: %v", err)
	}

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)
	err := app.ExecuteWithArgs(context.Background(), []string{
		"--driver", "memory", "--log-level", "error", "--trace", "stdout",
		"plants", "load", "--file", catalogue,
	})
	if err != nil {
		t.Fatalf("plants load failed: %v", err)
	}
	if !strings.Contains(stderr.String(), "plantkeep.load") {
		t.Errorf("trace output missing load span: %s", stderr.String())
	}
}

func TestApp_TraceUnknownExporter(t *testing.T) {
	if _, err := run(t, t.TempDir(), "--trace", "pigeon", "limit", "status"); err == nil {
		t.Error("expected error for unknown trace exporter")
	}
}
