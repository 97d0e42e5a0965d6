package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/slac-epics/streamdevice/internal/convert"
)

var ErrInvalidFieldTable = errors.New("config: invalid field table")

// FieldTable is a named set of record fields and their formats.
type FieldTable struct {
	Name        string        `toml:"name"`
	Description string        `toml:"description"`
	Fields      []FieldConfig `toml:"field"`
}

type FieldConfig struct {
	Name        string `toml:"name"`
	Format      string `toml:"format"`
	Description string `toml:"description"`
}

func LoadFieldTable(path string) (FieldTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FieldTable{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg, err := ParseFieldTable(data)
	if err != nil {
		return FieldTable{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return cfg, nil
}

func ParseFieldTable(data []byte) (FieldTable, error) {
	var cfg FieldTable
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return FieldTable{}, err
	}
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = "default"
	}
	if err := ValidateFieldTable(cfg); err != nil {
		return FieldTable{}, err
	}
	return cfg, nil
}

// ValidateFieldTable checks names and format syntax. Whether a conversion is
// registered is decided when the table is compiled.
func ValidateFieldTable(cfg FieldTable) error {
	seen := make(map[string]struct{}, len(cfg.Fields))
	for i, field := range cfg.Fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			return fmt.Errorf("%w: field[%d] missing name", ErrInvalidFieldTable, i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: field[%d] duplicate name %q", ErrInvalidFieldTable, i, name)
		}
		seen[name] = struct{}{}
		if _, err := convert.ParseFormat(strings.TrimSpace(field.Format)); err != nil {
			return fmt.Errorf("%w: field %q: %w", ErrInvalidFieldTable, name, err)
		}
	}
	return nil
}
