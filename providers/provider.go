package providers

import (
	"context"
	"sort"
)

// Record ist eine Zeile eines Quell-Extrakts: Spaltenname -> Rohwert.
// Werte sind string, bool, int64, float64, []any oder nil.
type Record map[string]any

// Table ist ein eingelesener Quell-Extrakt mit Kopfzeile.
type Table struct {
	Columns []string
	Records []Record
}

// NewTable baut eine Tabelle aus Records; die Spalten ergeben sich aus der Vereinigung aller Keys.
func NewTable(records []Record) *Table {
	seen := map[string]bool{}
	var cols []string
	for _, r := range records {
		keys := make([]string, 0, len(r))
		for k := range r {
			if !seen[k] {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			seen[k] = true
			cols = append(cols, k)
		}
	}
	return &Table{Columns: cols, Records: records}
}

// Len gibt die Anzahl der Zeilen zurück (nil-sicher).
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// HasAny meldet, ob mindestens eine der Spalten existiert.
func (t *Table) HasAny(columns []string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		for _, want := range columns {
			if c == want {
				return true
			}
		}
	}
	return false
}

// Source ist das Interface, das jede Datenquelle (z.B. OmniPath, Reactome) implementieren muss.
type Source interface {
	// Load liefert den vollständigen Extrakt der Quelle.
	Load(ctx context.Context) (*Table, error)

	// Name gibt den eindeutigen Namen der Quelle zurück (z.B. "OmniPath").
	Name() string
}

// StaticSource liefert eine bereits geladene Tabelle, z.B. aus einem externen Connector.
type StaticSource struct {
	SourceName string
	Table      *Table
	Err        error
}

func (s StaticSource) Name() string { return s.SourceName }

func (s StaticSource) Load(context.Context) (*Table, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Table == nil {
		return &Table{}, nil
	}
	return s.Table, nil
}
