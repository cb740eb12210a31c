package tabular

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/parquet-go/parquet-go"

	"rx-repurpose/providers"
)

const parquetBatchRows = 256

// readParquet liest flache Parquet-Dateien; wiederholte Spalten werden zu []any.
func readParquet(path string) (*providers.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	paths := pf.Schema().Columns()
	columns := make([]string, len(paths))
	for i, p := range paths {
		columns[i] = strings.Join(p, ".")
	}

	table := &providers.Table{Columns: columns}
	buf := make([]parquet.Row, parquetBatchRows)
	for _, rg := range pf.RowGroups() {
		if err := readRowGroup(rg, columns, buf, table); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func readRowGroup(rg parquet.RowGroup, columns []string, buf []parquet.Row, table *providers.Table) error {
	rows := rg.Rows()
	defer rows.Close()
	for {
		for i := range buf {
			buf[i] = buf[i][:0]
		}
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			table.Records = append(table.Records, parquetRecord(columns, row))
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read parquet rows: %w", err)
		}
		if n == 0 {
			return nil
		}
	}
}

func parquetRecord(columns []string, row parquet.Row) providers.Record {
	rec := make(providers.Record, len(columns))
	for _, col := range columns {
		rec[col] = nil
	}
	seen := make(map[int]bool, len(columns))
	for _, v := range row {
		idx := v.Column()
		if idx < 0 || idx >= len(columns) {
			continue
		}
		name := columns[idx]
		if v.IsNull() {
			continue
		}
		value := parquetValue(v)
		if !seen[idx] {
			seen[idx] = true
			rec[name] = value
			continue
		}
		// Listen-Spalte: weitere Werte anhängen
		switch existing := rec[name].(type) {
		case []any:
			rec[name] = append(existing, value)
		default:
			rec[name] = []any{existing, value}
		}
	}
	return rec
}

func parquetValue(v parquet.Value) any {
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	}
	return v.String()
}
