package source

// sqldump.go reconstructs tabular data from a SQL dump file without touching
// a database. CREATE TABLE statements define column names, INSERT statements
// supply rows. Parsing is lenient: dumps are full of vendor-specific noise
// (SET statements, comments, LOCK TABLES), so statements the parser cannot
// handle are skipped rather than failing the import.

import (
	"fmt"
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/gridport/gridport/internal/normalize"
)

// Dump parses SQL dump files.
type Dump struct {
	maxBytes int64
}

// NewDump creates the adapter. maxBytes caps the accepted dump size.
func NewDump(maxBytes int64) *Dump {
	return &Dump{maxBytes: maxBytes}
}

// dumpTable accumulates one table's definition and rows as statements are
// walked in order.
type dumpTable struct {
	name    string
	columns []string
	rows    [][]any
}

// Parse extracts one table from the dump. When desc.TableName is empty the
// first table in the dump is used; otherwise the name is matched
// case-insensitively.
func (d *Dump) Parse(data []byte, desc DumpTable) (NamedTable, error) {
	if d.maxBytes > 0 && int64(len(data)) > d.maxBytes {
		return NamedTable{}, fmt.Errorf("dump too large: %d bytes exceeds the %d byte limit", len(data), d.maxBytes)
	}

	tables, order := d.scan(string(data))
	if len(order) == 0 {
		return NamedTable{}, fmt.Errorf("no tables found in dump")
	}

	var picked *dumpTable
	if desc.TableName == "" {
		picked = tables[order[0]]
	} else {
		picked = tables[strings.ToLower(desc.TableName)]
		if picked == nil {
			return NamedTable{}, fmt.Errorf("table %q not found in dump", desc.TableName)
		}
	}

	return NamedTable{
		Name:  picked.name,
		Table: d.normalizeTable(picked),
	}, nil
}

// scan walks every statement in the dump and collects per-table column
// definitions and rows. The returned order preserves first appearance.
func (d *Dump) scan(dump string) (map[string]*dumpTable, []string) {
	tables := make(map[string]*dumpTable)
	var order []string

	ensure := func(name string) *dumpTable {
		key := strings.ToLower(name)
		if t, ok := tables[key]; ok {
			return t
		}
		t := &dumpTable{name: name}
		tables[key] = t
		order = append(order, key)
		return t
	}

	pieces, err := sqlparser.SplitStatementToPieces(dump)
	if err != nil {
		// Fall back to treating the whole dump as one statement.
		pieces = []string{dump}
	}

	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}

		stmt, err := sqlparser.Parse(piece)
		if err != nil {
			continue
		}

		switch s := stmt.(type) {
		case *sqlparser.DDL:
			if s.Action != sqlparser.CreateStr || s.TableSpec == nil {
				continue
			}
			t := ensure(s.NewName.Name.String())
			for _, col := range s.TableSpec.Columns {
				t.columns = append(t.columns, col.Name.String())
			}

		case *sqlparser.Insert:
			values, ok := s.Rows.(sqlparser.Values)
			if !ok {
				continue
			}
			t := ensure(s.Table.Name.String())
			for _, tuple := range values {
				t.rows = append(t.rows, insertRow(t, s.Columns, tuple))
			}
		}
	}

	return tables, order
}

// insertRow converts one VALUES tuple into a row aligned with the table's
// column order. An explicit column list on the INSERT is honored; without
// one the values are taken positionally.
func insertRow(t *dumpTable, cols sqlparser.Columns, tuple sqlparser.ValTuple) []any {
	if len(cols) == 0 || len(t.columns) == 0 {
		row := make([]any, len(tuple))
		for i, expr := range tuple {
			row[i] = exprValue(expr)
		}
		return row
	}

	index := make(map[string]int, len(t.columns))
	for i, name := range t.columns {
		index[strings.ToLower(name)] = i
	}

	row := make([]any, len(t.columns))
	for i, col := range cols {
		if i >= len(tuple) {
			break
		}
		if pos, ok := index[strings.ToLower(col.String())]; ok {
			row[pos] = exprValue(tuple[i])
		}
	}
	return row
}

// exprValue reduces a parsed SQL expression to a plain value. Literals
// become strings, NULL becomes nil, and anything more exotic (function
// calls, subqueries) is treated as NULL.
func exprValue(expr sqlparser.Expr) any {
	switch v := expr.(type) {
	case *sqlparser.SQLVal:
		return string(v.Val)
	case *sqlparser.NullVal:
		return nil
	case sqlparser.BoolVal:
		if v {
			return "true"
		}
		return "false"
	default:
		return nil
	}
}

// normalizeTable turns an accumulated dump table into a normalized one.
// Tables with INSERTs but no CREATE get synthesized column_N headers wide
// enough for the widest row.
func (d *Dump) normalizeTable(t *dumpTable) normalize.Table {
	columns := t.columns
	if len(columns) == 0 {
		width := 0
		for _, row := range t.rows {
			if len(row) > width {
				width = len(row)
			}
		}
		for i := 0; i < width; i++ {
			columns = append(columns, fmt.Sprintf("column_%d", i+1))
		}
	}

	cols := columnsFromNames(columns)
	items := make([]map[string]any, 0, len(t.rows))
	for _, row := range t.rows {
		item := make(map[string]any, len(columns))
		for i, name := range columns {
			if i < len(row) {
				item[name] = row[i]
			}
		}
		items = append(items, item)
	}

	return normalize.Build(cols, items, normalize.ValueExtractor)
}
