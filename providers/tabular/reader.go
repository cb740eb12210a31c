package tabular

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"rx-repurpose/providers"
)

// FileSource liest einen Quell-Extrakt von der Platte.
type FileSource struct {
	SourceName string
	Path       string
}

// NewSource gibt eine Dateiquelle zurück oder nil, wenn kein Pfad konfiguriert ist.
func NewSource(name, path string) providers.Source {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	return &FileSource{SourceName: name, Path: path}
}

func (f *FileSource) Name() string { return f.SourceName }

func (f *FileSource) Load(ctx context.Context) (*providers.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Read(f.Path)
}

// Delimiter leitet das Trennzeichen aus der Dateiendung ab (.tsv/.txt -> Tab, sonst Komma).
func Delimiter(path string) rune {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".txt":
		return '\t'
	}
	return ','
}

// IsParquet erkennt Parquet-Dateien an der Endung.
func IsParquet(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".pq":
		return true
	}
	return false
}

// Read liest eine CSV-, TSV-, JSON-, NDJSON- oder Parquet-Datei vollständig ein.
func Read(path string) (*providers.Table, error) {
	if IsParquet(path) {
		return readParquet(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return readJSONArray(f)
	case ".ndjson", ".jsonl":
		return readJSONLines(f)
	}
	return ReadDelimited(f, Delimiter(path))
}

// ReadDelimited liest eine Tabelle mit Kopfzeile; leere Zellen werden zu nil.
func ReadDelimited(r io.Reader, delimiter rune) (*providers.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &providers.Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	table := &providers.Table{Columns: header}
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		rec := make(providers.Record, len(header))
		for i, col := range header {
			if i >= len(row) || strings.TrimSpace(row[i]) == "" {
				rec[col] = nil
				continue
			}
			rec[col] = row[i]
		}
		table.Records = append(table.Records, rec)
	}
	return table, nil
}

func readJSONArray(r io.Reader) (*providers.Table, error) {
	var rows []map[string]any
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	records := make([]providers.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, providers.Record(row))
	}
	return providers.NewTable(records), nil
}

func readJSONLines(r io.Reader) (*providers.Table, error) {
	var records []providers.Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var row map[string]any
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, fmt.Errorf("decode ndjson: %w", err)
		}
		records = append(records, providers.Record(row))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return providers.NewTable(records), nil
}
