package core

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/gridport/gridport/internal/database"
	"github.com/gridport/gridport/internal/source"
)

// Store is the persistence surface the orchestrator needs. *database.Store
// satisfies it; tests substitute a fake.
type Store interface {
	CreateFile(ctx context.Context, ownerID uuid.UUID, name, mimeType string, size int64, sheetCount int, sourceInfo json.RawMessage) (uuid.UUID, error)
	GetFileByID(ctx context.Context, id uuid.UUID) (*database.File, error)
	TouchFile(ctx context.Context, id uuid.UUID) error
	CreateSheet(ctx context.Context, fileID uuid.UUID, name string, position, rowCount, columnCount int) (uuid.UUID, error)
	ListSheets(ctx context.Context, fileID uuid.UUID) ([]database.Sheet, error)
	ReplaceSheetData(ctx context.Context, sheetID uuid.UUID, rows [][]string) error
	CreateRow(ctx context.Context, sheetID uuid.UUID, rowIndex int, cells []string) error
}

// ListFetcher fetches a SharePoint list. The service-identity adapter and
// the per-user delegated adapters share this shape.
type ListFetcher interface {
	FetchList(ctx context.Context, desc source.SharePointList) (source.NamedTable, error)
}

// SheetFetcher fetches a Google spreadsheet range.
type SheetFetcher interface {
	FetchSheet(ctx context.Context, desc source.GoogleSheet) (source.NamedTable, error)
}

// TableFetcher fetches a table from a live database.
type TableFetcher interface {
	FetchTable(ctx context.Context, desc source.DatabaseTable) (source.NamedTable, error)
}

// WorkbookParser parses an uploaded workbook.
type WorkbookParser interface {
	Parse(data []byte) ([]source.NamedTable, error)
}

// DumpParser extracts a table from an uploaded SQL dump.
type DumpParser interface {
	Parse(data []byte, desc source.DumpTable) (source.NamedTable, error)
}

// Dependencies collects the source adapters the service routes between.
// UserSharePoint builds a delegated-flow fetcher bound to one user's tokens.
type Dependencies struct {
	SharePoint     ListFetcher
	UserSharePoint func(userID string) ListFetcher
	GoogleSheets   SheetFetcher
	Excel          WorkbookParser
	LiveDB         TableFetcher
	Dump           DumpParser
}

// Service is the import orchestrator.
type Service struct {
	store Store
	deps  Dependencies
}

// NewService creates the orchestrator.
func NewService(store Store, deps Dependencies) *Service {
	return &Service{store: store, deps: deps}
}
