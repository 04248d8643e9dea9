// Package normalize converts heterogeneous per-source records into one
// canonical tabular shape: a header row plus data rows with every cell
// flattened to a string. All five import sources feed through this package,
// each supplying its own field extractor.
package normalize

// Column describes one column of the source table. Name is the machine name
// used to address the field on an item; DisplayName is what the user sees.
// Display names are not necessarily unique.
type Column struct {
	Name        string
	DisplayName string
}

// Header returns the column's header cell: the display name when present,
// else the machine name.
func (c Column) Header() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Name
}

// Table is the canonical normalized form. Invariant: every row has exactly
// len(Headers) cells.
type Table struct {
	Headers []string
	Rows    [][]string
}

// RowCount returns the number of data rows (the header is not a data row).
func (t Table) RowCount() int { return len(t.Rows) }

// ColumnCount returns the number of columns.
func (t Table) ColumnCount() int { return len(t.Headers) }

// AsRows serializes the table as array-of-arrays with the header first.
// This is the persisted representation: row 0 is the header row.
func (t Table) AsRows() [][]string {
	rows := make([][]string, 0, len(t.Rows)+1)
	rows = append(rows, t.Headers)
	rows = append(rows, t.Rows...)
	return rows
}

// Extractor resolves one column's value on one source item.
type Extractor func(item map[string]any, col Column) FieldValue

// Build normalizes a list of source items against a column list. Every
// output row has exactly len(cols) cells regardless of which fields the
// item actually carries; missing fields come back as empty cells via the
// extractor's Null value.
func Build(cols []Column, items []map[string]any, extract Extractor) Table {
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.Header()
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = extract(item, c).Cell()
		}
		rows = append(rows, row)
	}

	return Table{Headers: headers, Rows: rows}
}

// FromRows builds a Table from pre-split raw rows where the first row is the
// header. Short rows are padded and long rows truncated so the shape
// invariant holds for ragged spreadsheet input.
func FromRows(raw [][]string) Table {
	if len(raw) == 0 {
		return Table{}
	}

	headers := raw[0]
	rows := make([][]string, 0, len(raw)-1)
	for _, r := range raw[1:] {
		row := make([]string, len(headers))
		copy(row, r)
		rows = append(rows, row)
	}
	return Table{Headers: headers, Rows: rows}
}

// MapExtractor is the extractor for items decoded as generic JSON maps,
// classifying each field value by shape. Used by the Graph list source.
func MapExtractor(item map[string]any, col Column) FieldValue {
	raw, ok := item[col.Name]
	if !ok {
		return Null()
	}
	return Classify(raw)
}

// ValueExtractor is the extractor for sources that deliver rows as ordered
// value maps of already-fetched scalars (relational rows, dump rows).
// Scalars pass through; unknown shapes were mapped to nil upstream and
// render as empty cells.
func ValueExtractor(item map[string]any, col Column) FieldValue {
	raw, ok := item[col.Name]
	if !ok || raw == nil {
		return Null()
	}
	return Scalar(Stringify(raw))
}
