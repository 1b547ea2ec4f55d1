package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	domainconfig "github.com/felixgeelhaar/plantkeep/domain/config"
)

// bracketPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
var bracketPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-[^}]*|:\?[^}]*)?\}`)

// envExpander expands environment variables in configuration text.
type envExpander struct {
	strict  bool
	lookup  func(string) (string, bool)
	missing []string
}

func newEnvExpander(strict bool) *envExpander {
	return &envExpander{strict: strict, lookup: os.LookupEnv}
}

// Expand replaces ${VAR} references in input.
//   - ${VAR} expands to VAR, or "" when unset (an error in strict mode)
//   - ${VAR:-default} expands to VAR, or default when unset or empty
//   - ${VAR:?message} fails when VAR is unset or empty
//
// A bare $VAR is left untouched so DSNs and passwords containing '$' survive.
func (e *envExpander) Expand(input string) (string, error) {
	e.missing = nil

	result := bracketPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := bracketPattern.FindStringSubmatch(match)
		name, modifier := groups[1], groups[2]
		value, exists := e.lookup(name)

		switch {
		case strings.HasPrefix(modifier, ":-"):
			if !exists || value == "" {
				return modifier[2:]
			}
		case strings.HasPrefix(modifier, ":?"):
			if !exists || value == "" {
				e.missing = append(e.missing, fmt.Sprintf("%s: %s", name, modifier[2:]))
				return match
			}
		case !exists:
			if e.strict {
				e.missing = append(e.missing, name)
			}
			return ""
		}
		return value
	})

	if len(e.missing) > 0 {
		return "", fmt.Errorf("%w: %s", domainconfig.ErrMissingEnvVar, strings.Join(e.missing, ", "))
	}
	return result, nil
}

// ExpandEnv expands environment variables, treating unset variables as empty.
func ExpandEnv(input string) string {
	result, _ := newEnvExpander(false).Expand(input)
	return result
}

// ExpandEnvStrict expands environment variables and fails on missing ones.
func ExpandEnvStrict(input string) (string, error) {
	return newEnvExpander(true).Expand(input)
}
