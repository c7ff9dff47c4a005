package rules

import (
	"fmt"

	"geoverify/internal/logging"

	"embed"
)

// defaultTables contains the built-in definition and theorem tables baked
// into the binary, so the verifier has no filesystem dependency unless
// table overrides are configured.
//
//go:embed tables/defs.txt tables/rules.txt
var defaultTables embed.FS

// LoadDefault parses the embedded tables.
func LoadDefault() (*Tables, error) {
	timer := logging.StartTimer(logging.CategoryBoot, "rules.LoadDefault")
	defer timer.Stop()

	defsText, err := defaultTables.ReadFile("tables/defs.txt")
	if err != nil {
		return nil, fmt.Errorf("read embedded defs table: %w", err)
	}
	rulesText, err := defaultTables.ReadFile("tables/rules.txt")
	if err != nil {
		return nil, fmt.Errorf("read embedded rules table: %w", err)
	}
	t, err := Load(string(defsText), string(rulesText))
	if err != nil {
		return nil, err
	}
	logging.Boot("Loaded embedded tables: %d theorems, %d definitions", len(t.Theorems), len(t.Defs))
	return t, nil
}

// MustLoadDefault parses the embedded tables and panics on error. The
// embedded tables are part of the binary; failure is unrecoverable.
func MustLoadDefault() *Tables {
	t, err := LoadDefault()
	if err != nil {
		panic(fmt.Sprintf("failed to load embedded tables: %v", err))
	}
	return t
}
