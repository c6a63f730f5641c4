package reconcile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Table is delimited bulk input: a header row followed by data rows.
type Table struct {
	Header []string
	Rows   [][]string
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadTable parses comma separated text with a mandatory header row.
func ReadTable(r io.Reader) (Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Table{}, fmt.Errorf("read table: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, fmt.Errorf("read table: missing header row")
	}
	if err != nil {
		return Table{}, fmt.Errorf("read table header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	rows, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("read table rows: %w", err)
	}
	return Table{Header: header, Rows: rows}, nil
}

// NormalizeTable applies the same rename, select and reorder to every row.
// The first failing cell aborts the whole table.
func NormalizeTable(t Table, rename RenameMap, spec *FeatureSpec) ([]Vector, error) {
	columns := make(map[string]int, len(t.Header))
	for i, name := range t.Header {
		target := rename.Apply(name)
		if prev, dup := columns[target]; dup && spec.Has(target) {
			f := spec.fields[spec.index[target]]
			return nil, mismatch(f, 0, "column appears twice (%q and %q)", t.Header[prev], name)
		}
		columns[target] = i
	}

	positions := make([]int, len(spec.fields))
	for i, f := range spec.fields {
		col, ok := columns[f.Expected]
		if !ok {
			return nil, mismatch(f, 0, "required column is missing")
		}
		positions[i] = col
	}

	names := spec.Names()
	out := make([]Vector, 0, len(t.Rows))
	for r, row := range t.Rows {
		vec := Vector{Names: names, Values: make([]float64, len(spec.fields))}
		for i, f := range spec.fields {
			col := positions[i]
			if col >= len(row) {
				return nil, mismatch(f, r+1, "row has no value for this column")
			}
			v, err := coerce(f, row[col], r+1)
			if err != nil {
				return nil, err
			}
			vec.Values[i] = v
		}
		out = append(out, vec)
	}
	return out, nil
}
