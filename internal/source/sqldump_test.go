package source

import (
	"strings"
	"testing"
)

const sampleDump = `
-- MySQL dump 10.13
SET NAMES utf8mb4;

CREATE TABLE orders (
  id INT NOT NULL,
  customer VARCHAR(100),
  total DECIMAL(10,2),
  placed_at DATETIME
);

LOCK TABLES orders WRITE;
INSERT INTO orders VALUES (1, 'Acme Corp', 99.50, '2024-03-01 10:00:00');
INSERT INTO orders (customer, id) VALUES ('Globex', 2);
UNLOCK TABLES;

CREATE TABLE products (
  sku VARCHAR(20),
  name VARCHAR(100)
);
INSERT INTO products VALUES ('A-1', 'Widget');
`

func TestDumpParse_FirstTableByDefault(t *testing.T) {
	nt, err := NewDump(0).Parse([]byte(sampleDump), DumpTable{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if nt.Name != "orders" {
		t.Errorf("table name = %q, want orders", nt.Name)
	}
	if got := nt.Table.Headers; len(got) != 4 || got[0] != "id" || got[3] != "placed_at" {
		t.Errorf("headers = %v", got)
	}
	if nt.Table.RowCount() != 2 {
		t.Fatalf("row count = %d, want 2", nt.Table.RowCount())
	}

	first := nt.Table.Rows[0]
	if first[0] != "1" || first[1] != "Acme Corp" || first[2] != "99.50" {
		t.Errorf("first row = %v %v %v", first[0], first[1], first[2])
	}
}

func TestDumpParse_ColumnListReorders(t *testing.T) {
	nt, err := NewDump(0).Parse([]byte(sampleDump), DumpTable{TableName: "orders"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	// Second insert names (customer, id) out of order; values land in the
	// declared column positions and the unnamed columns stay null.
	second := nt.Table.Rows[1]
	if second[0] != "2" {
		t.Errorf("id = %q, want 2", second[0])
	}
	if second[1] != "Globex" {
		t.Errorf("customer = %q, want Globex", second[1])
	}
	if second[2] != "" || second[3] != "" {
		t.Errorf("unnamed columns should be empty, got %q %q", second[2], second[3])
	}
}

func TestDumpParse_NamedTable(t *testing.T) {
	nt, err := NewDump(0).Parse([]byte(sampleDump), DumpTable{TableName: "PRODUCTS"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if nt.Name != "products" {
		t.Errorf("table name = %q, want products", nt.Name)
	}
	if nt.Table.RowCount() != 1 {
		t.Errorf("row count = %d, want 1", nt.Table.RowCount())
	}
}

func TestDumpParse_TableNotFound(t *testing.T) {
	_, err := NewDump(0).Parse([]byte(sampleDump), DumpTable{TableName: "missing"})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestDumpParse_InsertWithoutCreate(t *testing.T) {
	dump := `INSERT INTO legacy VALUES ('a', 'b', NULL);
INSERT INTO legacy VALUES ('c', 'd', 'e');`

	nt, err := NewDump(0).Parse([]byte(dump), DumpTable{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"column_1", "column_2", "column_3"}
	for i, h := range want {
		if nt.Table.Headers[i] != h {
			t.Errorf("header[%d] = %q, want %q", i, nt.Table.Headers[i], h)
		}
	}
	if nt.Table.Rows[0][2] != "" {
		t.Errorf("NULL should render empty, got %q", nt.Table.Rows[0][2])
	}
	if nt.Table.Rows[1][2] != "e" {
		t.Errorf("cell = %q, want e", nt.Table.Rows[1][2])
	}
}

func TestDumpParse_SkipsUnparseableStatements(t *testing.T) {
	dump := `/*!40101 SET character_set_client = utf8 */;
THIS IS NOT SQL AT ALL;
CREATE TABLE t (x INT);
INSERT INTO t VALUES (7);`

	nt, err := NewDump(0).Parse([]byte(dump), DumpTable{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if nt.Table.RowCount() != 1 || nt.Table.Rows[0][0] != "7" {
		t.Errorf("rows = %v", nt.Table.Rows)
	}
}

func TestDumpParse_Empty(t *testing.T) {
	_, err := NewDump(0).Parse([]byte("-- nothing here"), DumpTable{})
	if err == nil {
		t.Fatal("expected error for dump with no tables")
	}
}

func TestDumpParse_SizeCap(t *testing.T) {
	_, err := NewDump(8).Parse([]byte("CREATE TABLE t (x INT);"), DumpTable{})
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("err = %v, want size cap error", err)
	}
}
