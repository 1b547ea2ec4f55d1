package cli

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// print writes v in the selected output format.
func (a *App) print(v any) error {
	switch a.opts.output {
	case "yaml", "yml":
		enc := yaml.NewEncoder(a.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported output format %q", a.opts.output)
	}
}
