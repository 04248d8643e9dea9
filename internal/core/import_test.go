package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/gridport/gridport/internal/database"
	"github.com/gridport/gridport/internal/normalize"
	"github.com/gridport/gridport/internal/source"
)

// fakeStore records persistence calls in memory.
type fakeStore struct {
	files       map[uuid.UUID]*database.File
	sheets      map[uuid.UUID][]database.Sheet
	rows        map[uuid.UUID][][]string
	failOn      string // method name that should error, "" for none
	createOrder []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		files:  make(map[uuid.UUID]*database.File),
		sheets: make(map[uuid.UUID][]database.Sheet),
		rows:   make(map[uuid.UUID][][]string),
	}
}

func (f *fakeStore) CreateFile(_ context.Context, ownerID uuid.UUID, name, mimeType string, size int64, sheetCount int, sourceInfo json.RawMessage) (uuid.UUID, error) {
	if f.failOn == "CreateFile" {
		return uuid.Nil, errors.New("create file boom")
	}
	id := uuid.New()
	f.files[id] = &database.File{ID: id, OwnerID: ownerID, Name: name, MimeType: mimeType, Size: size, SheetCount: sheetCount, SourceInfo: sourceInfo}
	f.createOrder = append(f.createOrder, "file:"+name)
	return id, nil
}

func (f *fakeStore) GetFileByID(_ context.Context, id uuid.UUID) (*database.File, error) {
	return f.files[id], nil
}

func (f *fakeStore) TouchFile(_ context.Context, id uuid.UUID) error {
	return nil
}

func (f *fakeStore) CreateSheet(_ context.Context, fileID uuid.UUID, name string, position, rowCount, columnCount int) (uuid.UUID, error) {
	if f.failOn == "CreateSheet" {
		return uuid.Nil, errors.New("create sheet boom")
	}
	id := uuid.New()
	f.sheets[fileID] = append(f.sheets[fileID], database.Sheet{ID: id, FileID: fileID, Name: name, Position: position, RowCount: rowCount, ColumnCount: columnCount})
	f.createOrder = append(f.createOrder, "sheet:"+name)
	return id, nil
}

func (f *fakeStore) ListSheets(_ context.Context, fileID uuid.UUID) ([]database.Sheet, error) {
	return f.sheets[fileID], nil
}

func (f *fakeStore) ReplaceSheetData(_ context.Context, sheetID uuid.UUID, rows [][]string) error {
	if f.failOn == "ReplaceSheetData" {
		return errors.New("replace boom")
	}
	f.rows[sheetID] = rows
	return nil
}

func (f *fakeStore) CreateRow(_ context.Context, sheetID uuid.UUID, rowIndex int, cells []string) error {
	if f.failOn == "CreateRow" {
		return errors.New("create row boom")
	}
	if rowIndex != len(f.rows[sheetID]) {
		return fmt.Errorf("row %d written out of order", rowIndex)
	}
	f.rows[sheetID] = append(f.rows[sheetID], cells)
	return nil
}

// fakeLists serves a fixed table for any SharePoint descriptor.
type fakeLists struct {
	table source.NamedTable
	err   error
	calls int
}

func (f *fakeLists) FetchList(context.Context, source.SharePointList) (source.NamedTable, error) {
	f.calls++
	return f.table, f.err
}

func sampleTable(name string) source.NamedTable {
	return source.NamedTable{
		Name: name,
		Table: normalize.Table{
			Headers: []string{"Title", "Owner"},
			Rows:    [][]string{{"first", "ada"}, {"second", "grace"}},
		},
	}
}

func newTestService(store Store, lists ListFetcher) *Service {
	return NewService(store, Dependencies{
		SharePoint: lists,
		UserSharePoint: func(string) ListFetcher {
			return lists
		},
	})
}

func TestImportFromSource_PersistsInOrder(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeLists{table: sampleTable("Tasks")})

	res, err := svc.ImportFromSource(context.Background(), ImportRequest{
		OwnerID: uuid.New(),
		Info: SourceInfo{
			Kind:       source.KindSharePoint,
			SharePoint: &source.SharePointList{ListID: "l1"},
		},
	})
	if err != nil {
		t.Fatalf("ImportFromSource: %v", err)
	}

	if res.RowCount != 2 || res.ColumnCount != 2 {
		t.Errorf("result counts = %d x %d", res.RowCount, res.ColumnCount)
	}
	if len(res.Sheets) != 1 || res.Sheets[0].Name != "Tasks" {
		t.Fatalf("sheets = %+v", res.Sheets)
	}

	file := store.files[res.FileID]
	if file == nil {
		t.Fatal("file record missing")
	}
	if file.Name != "Tasks" {
		t.Errorf("file name = %q, want the table name fallback", file.Name)
	}

	grid := store.rows[res.SheetID]
	if len(grid) != 3 {
		t.Fatalf("persisted rows = %d, want header + 2", len(grid))
	}
	if grid[0][0] != "Title" || grid[1][0] != "first" || grid[2][0] != "second" {
		t.Errorf("persisted grid out of order: %v", grid)
	}
}

func TestImportFromSource_EmptyResult(t *testing.T) {
	empty := source.NamedTable{
		Name:  "Empty",
		Table: normalize.Table{Headers: []string{"A"}},
	}
	store := newFakeStore()
	svc := newTestService(store, &fakeLists{table: empty})

	_, err := svc.ImportFromSource(context.Background(), ImportRequest{
		Info: SourceInfo{Kind: source.KindSharePoint, SharePoint: &source.SharePointList{ListID: "l1"}},
	})
	if !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("err = %v, want ErrEmptyResult", err)
	}
	if len(store.files) != 0 {
		t.Error("nothing should be persisted for an empty result")
	}
}

func TestImportFromSource_FetchErrorPropagates(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeLists{err: errors.New("list is gone")})

	_, err := svc.ImportFromSource(context.Background(), ImportRequest{
		Info: SourceInfo{Kind: source.KindSharePoint, SharePoint: &source.SharePointList{ListID: "l1"}},
	})
	if err == nil || !strings.Contains(err.Error(), "list is gone") {
		t.Fatalf("err = %v", err)
	}
	if len(store.files) != 0 {
		t.Error("nothing should be persisted after a fetch failure")
	}
}

func TestImportFromSource_PersistErrorPropagates(t *testing.T) {
	store := newFakeStore()
	store.failOn = "CreateRow"
	svc := newTestService(store, &fakeLists{table: sampleTable("Tasks")})

	_, err := svc.ImportFromSource(context.Background(), ImportRequest{
		Info: SourceInfo{Kind: source.KindSharePoint, SharePoint: &source.SharePointList{ListID: "l1"}},
	})
	if err == nil || !strings.Contains(err.Error(), "create row boom") {
		t.Fatalf("err = %v", err)
	}
}

func TestImportFromSource_ValidatesRequest(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeLists{table: sampleTable("Tasks")})

	tests := []struct {
		name string
		req  ImportRequest
		want string
	}{
		{
			name: "unknown kind",
			req:  ImportRequest{Info: SourceInfo{Kind: "carrier_pigeon"}},
			want: "unsupported source kind",
		},
		{
			name: "sharepoint without descriptor",
			req:  ImportRequest{Info: SourceInfo{Kind: source.KindSharePoint}},
			want: "requires a list descriptor",
		},
		{
			name: "delegated without user",
			req:  ImportRequest{Info: SourceInfo{Kind: source.KindSharePointUser, SharePoint: &source.SharePointList{ListID: "l"}}},
			want: "requires a user id",
		},
		{
			name: "excel without upload",
			req:  ImportRequest{Info: SourceInfo{Kind: source.KindExcel}},
			want: "no file provided",
		},
		{
			name: "dump without upload",
			req:  ImportRequest{Info: SourceInfo{Kind: source.KindSQLDump}},
			want: "no file provided",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ImportFromSource(context.Background(), tt.req)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestImportFromSource_StripsDatabasePassword(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, Dependencies{
		LiveDB: fakeTables{table: sampleTable("orders")},
	})

	res, err := svc.ImportFromSource(context.Background(), ImportRequest{
		Info: SourceInfo{
			Kind: source.KindDatabase,
			Database: &source.DatabaseTable{
				Dialect: "mysql", Host: "h", Port: 3306, Database: "d",
				User: "u", Password: "hunter2", Table: "orders",
			},
		},
	})
	if err != nil {
		t.Fatalf("ImportFromSource: %v", err)
	}

	stored := string(store.files[res.FileID].SourceInfo)
	if strings.Contains(stored, "hunter2") {
		t.Errorf("stored source info leaks the password: %s", stored)
	}
	if !strings.Contains(stored, `"orders"`) {
		t.Errorf("stored source info should keep the descriptor: %s", stored)
	}
}

type fakeTables struct {
	table source.NamedTable
	err   error
}

func (f fakeTables) FetchTable(context.Context, source.DatabaseTable) (source.NamedTable, error) {
	return f.table, f.err
}

func TestRefreshImport_RewritesInPlace(t *testing.T) {
	store := newFakeStore()
	lists := &fakeLists{table: sampleTable("Tasks")}
	svc := newTestService(store, lists)

	info := SourceInfo{Kind: source.KindSharePoint, SharePoint: &source.SharePointList{ListID: "l1"}}
	first, err := svc.ImportFromSource(context.Background(), ImportRequest{Info: info})
	if err != nil {
		t.Fatalf("initial import: %v", err)
	}

	lists.table = source.NamedTable{
		Name: "Tasks",
		Table: normalize.Table{
			Headers: []string{"Title", "Owner"},
			Rows:    [][]string{{"third", "lin"}},
		},
	}

	res, err := svc.RefreshImport(context.Background(), first.FileID, nil)
	if err != nil {
		t.Fatalf("RefreshImport: %v", err)
	}
	if res.FileID != first.FileID || res.SheetID != first.SheetID {
		t.Error("refresh must reuse the existing file and sheet records")
	}
	if res.RowCount != 1 {
		t.Errorf("row count = %d, want 1", res.RowCount)
	}

	grid := store.rows[first.SheetID]
	if len(grid) != 2 || grid[1][0] != "third" {
		t.Errorf("rewritten grid = %v", grid)
	}
}

func TestRefreshImport_MissingFile(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeLists{})
	_, err := svc.RefreshImport(context.Background(), uuid.New(), nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRefreshImport_UploadsNotRefreshable(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeLists{})

	raw, _ := json.Marshal(SourceInfo{Kind: source.KindExcel})
	id := uuid.New()
	store.files[id] = &database.File{ID: id, SourceInfo: raw}

	_, err := svc.RefreshImport(context.Background(), id, nil)
	if !errors.Is(err, ErrNotRefreshable) {
		t.Fatalf("err = %v, want ErrNotRefreshable", err)
	}
}

func TestRefreshImport_OverrideWins(t *testing.T) {
	store := newFakeStore()
	lists := &fakeLists{table: sampleTable("Tasks")}
	svc := newTestService(store, lists)

	info := SourceInfo{Kind: source.KindSharePoint, SharePoint: &source.SharePointList{ListID: "l1"}}
	first, err := svc.ImportFromSource(context.Background(), ImportRequest{Info: info})
	if err != nil {
		t.Fatalf("initial import: %v", err)
	}

	override := &SourceInfo{Kind: source.KindSharePoint, SharePoint: &source.SharePointList{ListID: "other"}}
	if _, err := svc.RefreshImport(context.Background(), first.FileID, override); err != nil {
		t.Fatalf("RefreshImport: %v", err)
	}
	if lists.calls != 2 {
		t.Errorf("fetch calls = %d, want 2", lists.calls)
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{ErrEmptyResult, "IMP001"},
		{ErrNotRefreshable, "IMP007"},
		{errors.New("file too large: 1 bytes"), "IMP002"},
		{errors.New("user not connected"), "AUTH001"},
		{errors.New("database authentication failed"), "DB001"},
		{errors.New("???"), "ERR000"},
	}

	for _, tt := range tests {
		if got := MapError(tt.err); got.Code != tt.code {
			t.Errorf("MapError(%v).Code = %s, want %s", tt.err, got.Code, tt.code)
		}
	}

	if MapError(nil) != (UserMessage{}) {
		t.Error("nil error should map to zero message")
	}

	if !strings.Contains(FormatUserError(ErrEmptyResult), "IMP001") {
		t.Error("FormatUserError should include the code")
	}
}
