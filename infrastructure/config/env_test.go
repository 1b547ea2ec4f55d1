package config

import (
	"errors"
	"testing"

	domainconfig "github.com/felixgeelhaar/plantkeep/domain/config"
)

func fakeEnv(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestEnvExpander_Expand(t *testing.T) {
	t.Parallel()

	env := fakeEnv(map[string]string{
		"PLANTKEEP_DIR": "/data",
		"EMPTY":         "",
	})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bracket syntax", "${PLANTKEEP_DIR}", "/data"},
		{"embedded in text", "dir: ${PLANTKEEP_DIR}/kv", "dir: /data/kv"},
		{"multiple", "${PLANTKEEP_DIR}:${PLANTKEEP_DIR}", "/data:/data"},
		{"unset is empty", "x${UNSET}y", "xy"},
		{"default when unset", "${UNSET:-memory}", "memory"},
		{"default when empty", "${EMPTY:-memory}", "memory"},
		{"set ignores default", "${PLANTKEEP_DIR:-/tmp}", "/data"},
		{"default with colon", "${UNSET:-localhost:6379}", "localhost:6379"},
		{"bare dollar untouched", "pa$$word$HOME", "pa$$word$HOME"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := &envExpander{lookup: env}
			got, err := e.Expand(tt.input)
			if err != nil {
				t.Fatalf("Expand(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Expand(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEnvExpander_Required(t *testing.T) {
	t.Parallel()

	e := &envExpander{lookup: fakeEnv(nil)}
	_, err := e.Expand("${PLANTKEEP_DSN:?dsn must be set}")
	if !errors.Is(err, domainconfig.ErrMissingEnvVar) {
		t.Fatalf("Expand() error = %v, want ErrMissingEnvVar", err)
	}
}

func TestEnvExpander_Strict(t *testing.T) {
	t.Parallel()

	e := &envExpander{strict: true, lookup: fakeEnv(nil)}
	if _, err := e.Expand("${A} ${B:-ok}"); !errors.Is(err, domainconfig.ErrMissingEnvVar) {
		t.Errorf("Expand() error = %v, want ErrMissingEnvVar", err)
	}
	if len(e.missing) != 1 || e.missing[0] != "A" {
		t.Errorf("missing = %v, want [A]", e.missing)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("PLANTKEEP_TEST_USER", "u1")

	if got := ExpandEnv("${PLANTKEEP_TEST_USER}"); got != "u1" {
		t.Errorf("ExpandEnv() = %q, want u1", got)
	}
	if _, err := ExpandEnvStrict("${PLANTKEEP_TEST_UNSET_VAR}"); err == nil {
		t.Error("ExpandEnvStrict() expected error")
	}
}
