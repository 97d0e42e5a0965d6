package config

import (
	"strings"

	"github.com/slac-epics/streamdevice/internal/stream"
)

// Definitions returns the table in the form the transcoder compiles.
func (t FieldTable) Definitions() []stream.Definition {
	defs := make([]stream.Definition, 0, len(t.Fields))
	for _, field := range t.Fields {
		defs = append(defs, stream.Definition{
			Name:   strings.TrimSpace(field.Name),
			Format: strings.TrimSpace(field.Format),
		})
	}
	return defs
}
