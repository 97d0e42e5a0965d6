package stream

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnknownField   = errors.New("stream: unknown field")
	ErrDuplicateField = errors.New("stream: duplicate field")
	ErrFieldName      = errors.New("stream: field name required")
)

// Definition names a field and its format string.
type Definition struct {
	Name   string
	Format string
}

// Table holds compiled fields by name.
type Table struct {
	fields map[string]Field
}

func NewTable() *Table {
	return &Table{fields: make(map[string]Field)}
}

func (tb *Table) Add(f Field) error {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return ErrFieldName
	}
	if _, exists := tb.fields[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateField, name)
	}
	f.Name = name
	tb.fields[name] = f
	return nil
}

func (tb *Table) Get(name string) (Field, error) {
	f, ok := tb.fields[name]
	if !ok {
		return Field{}, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	return f, nil
}

func (tb *Table) Names() []string {
	out := make([]string, 0, len(tb.fields))
	for name := range tb.fields {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (tb *Table) Len() int {
	return len(tb.fields)
}

// CompileTable compiles every definition; the first failure aborts.
func (t *Transcoder) CompileTable(defs []Definition) (*Table, error) {
	tb := NewTable()
	for _, def := range defs {
		f, err := t.Compile(def.Name, def.Format)
		if err != nil {
			return nil, err
		}
		if err := tb.Add(f); err != nil {
			return nil, err
		}
	}
	return tb, nil
}
