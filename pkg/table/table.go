// Package table loads the entity × quarter value table and answers point
// lookups against it. A Table is read-only once loaded.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mimir-aip/finqa/pkg/models"
)

// ErrUnknownEntity is returned when an entity has no row in the table
var ErrUnknownEntity = errors.New("unknown entity")

// Table is the loaded dataset keyed by canonical entity name
type Table struct {
	entityColumn string
	columns      []string // value columns, lowercased, header order
	entities     []string // load order
	rows         map[string]map[string]models.Value
}

// LoadCSV reads a CSV file whose entityColumn identifies each row
func LoadCSV(path, entityColumn string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	t, err := Parse(file, entityColumn)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return t, nil
}

// Parse reads CSV data. Header names are trimmed and lowercased, entity
// values are trimmed and lowercased, and columns other than the entity
// column become value columns.
func Parse(r io.Reader, entityColumn string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("dataset is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	entityColumn = strings.ToLower(strings.TrimSpace(entityColumn))
	entityIdx := -1
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if names[i] == entityColumn && entityIdx < 0 {
			entityIdx = i
		}
	}
	if entityIdx < 0 {
		return nil, fmt.Errorf("column %q not found, available columns: %v", entityColumn, names)
	}

	t := &Table{
		entityColumn: entityColumn,
		rows:         make(map[string]map[string]models.Value),
	}
	for i, name := range names {
		if i != entityIdx && name != "" {
			t.columns = append(t.columns, name)
		}
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}
		if entityIdx >= len(record) {
			continue
		}
		entity := strings.ToLower(strings.TrimSpace(record[entityIdx]))
		if entity == "" {
			continue
		}
		if _, dup := t.rows[entity]; dup {
			continue // first row wins
		}

		row := make(map[string]models.Value, len(t.columns))
		for i, name := range names {
			if i == entityIdx || name == "" {
				continue
			}
			cell := ""
			if i < len(record) {
				cell = record[i]
			}
			if _, set := row[name]; !set {
				row[name] = ParseValue(cell)
			}
		}
		t.rows[entity] = row
		t.entities = append(t.entities, entity)
	}

	return t, nil
}

// ParseValue classifies one raw cell
func ParseValue(cell string) models.Value {
	s := strings.TrimSpace(cell)
	switch strings.ToLower(s) {
	case "", "nan", "null", "none", "n/a", "na", "-":
		return models.Missing()
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return models.Invalid(s)
	}
	return models.Value{Number: n, Raw: s, State: models.ValuePresent}
}

// EntityColumn returns the normalised entity column name
func (t *Table) EntityColumn() string {
	return t.entityColumn
}

// Entities returns the canonical entity names in load order
func (t *Table) Entities() []string {
	out := make([]string, len(t.entities))
	copy(out, t.entities)
	return out
}

// Columns returns the value column names in header order
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Has reports whether entity has a row
func (t *Table) Has(entity string) bool {
	_, ok := t.rows[normalize(entity)]
	return ok
}

// Len returns the number of entity rows
func (t *Table) Len() int {
	return len(t.entities)
}

// Value looks up (entity, period). Unknown entities and periods yield a
// missing value. The aggregate period falls back to the sum of the present
// q1..q4 values when the dataset has no column for it.
func (t *Table) Value(entity string, period models.Period) models.Value {
	row, ok := t.rows[normalize(entity)]
	if !ok {
		return models.Missing()
	}
	key := strings.ToLower(strings.TrimSpace(string(period)))
	if v, ok := row[key]; ok {
		return v
	}
	if models.Period(key) == models.PeriodTotal {
		return sumKnown(row)
	}
	return models.Missing()
}

// Lookup is Value with an error for entities absent from the table
func (t *Table) Lookup(entity string, period models.Period) (models.Value, error) {
	if !t.Has(entity) {
		return models.Missing(), fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	return t.Value(entity, period), nil
}

// Series returns the present q1..q4 values of entity in order, skipping
// missing or invalid cells without breaking the sequence.
func (t *Table) Series(entity string) []float64 {
	row, ok := t.rows[normalize(entity)]
	if !ok {
		return nil
	}
	var out []float64
	for _, p := range models.KnownPeriods {
		if v := row[string(p)]; v.Ok() {
			out = append(out, v.Number)
		}
	}
	return out
}

func sumKnown(row map[string]models.Value) models.Value {
	total, found := 0.0, false
	for _, p := range models.KnownPeriods {
		if v := row[string(p)]; v.Ok() {
			total += v.Number
			found = true
		}
	}
	if !found {
		return models.Missing()
	}
	return models.Present(total)
}

func normalize(entity string) string {
	return strings.ToLower(strings.TrimSpace(entity))
}
