package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gridport/gridport/internal/source"
)

// fetchFunc fetches and normalizes a source's tables. Binding the request
// details here keeps the state machine identical across source kinds.
type fetchFunc func(ctx context.Context) ([]source.NamedTable, error)

// ImportFromSource runs one import end to end: resolve the adapter, fetch,
// normalize, persist. The run moves through the import states in order and
// drops to Failed on the first error; there are no automatic retries.
func (s *Service) ImportFromSource(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	run := newRun()
	started := time.Now()

	fetch, err := s.resolveFetch(req.Info, req.Upload)
	if err != nil {
		return nil, run.fail(err)
	}

	if err := run.advance(StateFetchingData); err != nil {
		return nil, run.fail(err)
	}
	tables, err := fetch(ctx)
	if err != nil {
		return nil, run.fail(err)
	}

	if err := run.advance(StateNormalizing); err != nil {
		return nil, run.fail(err)
	}
	if countDataRows(tables) == 0 {
		return nil, run.fail(ErrEmptyResult)
	}

	if err := run.advance(StatePersisting); err != nil {
		return nil, run.fail(err)
	}
	result, err := s.persist(ctx, req, tables)
	if err != nil {
		return nil, run.fail(err)
	}

	if err := run.advance(StateDone); err != nil {
		return nil, run.fail(err)
	}

	slog.Info("import complete",
		"kind", req.Info.Kind,
		"file_id", result.FileID,
		"sheets", len(result.Sheets),
		"rows", result.RowCount,
		"duration", time.Since(started),
	)
	return result, nil
}

// RefreshImport re-fetches a file's source and rewrites its sheet data in
// place, leaving the file and sheet records intact. Credentials stripped at
// store time (live-database passwords) must be resupplied via override.
func (s *Service) RefreshImport(ctx context.Context, fileID uuid.UUID, override *SourceInfo) (*ImportResult, error) {
	file, err := s.store.GetFileByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, fmt.Errorf("file %s: %w", fileID, ErrNotFound)
	}

	info, err := refreshInfo(file.SourceInfo, override)
	if err != nil {
		return nil, err
	}

	run := newRun()
	fetch, err := s.resolveFetch(info, nil)
	if err != nil {
		return nil, run.fail(err)
	}

	if err := run.advance(StateFetchingData); err != nil {
		return nil, run.fail(err)
	}
	tables, err := fetch(ctx)
	if err != nil {
		return nil, run.fail(err)
	}

	if err := run.advance(StateNormalizing); err != nil {
		return nil, run.fail(err)
	}
	if countDataRows(tables) == 0 {
		return nil, run.fail(ErrEmptyResult)
	}

	if err := run.advance(StatePersisting); err != nil {
		return nil, run.fail(err)
	}
	result, err := s.rewrite(ctx, file.ID, tables)
	if err != nil {
		return nil, run.fail(err)
	}

	if err := run.advance(StateDone); err != nil {
		return nil, run.fail(err)
	}

	slog.Info("import refreshed", "kind", info.Kind, "file_id", file.ID, "rows", result.RowCount)
	return result, nil
}

// resolveFetch validates the request against its source kind and returns
// the bound fetch step. This is the metadata phase: a request that cannot
// name a usable adapter fails before anything is fetched.
func (s *Service) resolveFetch(info SourceInfo, upload []byte) (fetchFunc, error) {
	switch info.Kind {
	case source.KindSharePoint:
		if s.deps.SharePoint == nil {
			return nil, fmt.Errorf("sharepoint service credentials are not configured")
		}
		if info.SharePoint == nil {
			return nil, fmt.Errorf("sharepoint import requires a list descriptor")
		}
		desc := *info.SharePoint
		return func(ctx context.Context) ([]source.NamedTable, error) {
			return one(s.deps.SharePoint.FetchList(ctx, desc))
		}, nil

	case source.KindSharePointUser:
		if s.deps.UserSharePoint == nil {
			return nil, fmt.Errorf("delegated sharepoint flow is not configured")
		}
		if info.UserID == "" {
			return nil, fmt.Errorf("delegated sharepoint import requires a user id")
		}
		if info.SharePoint == nil {
			return nil, fmt.Errorf("sharepoint import requires a list descriptor")
		}
		fetcher := s.deps.UserSharePoint(info.UserID)
		desc := *info.SharePoint
		return func(ctx context.Context) ([]source.NamedTable, error) {
			return one(fetcher.FetchList(ctx, desc))
		}, nil

	case source.KindGoogleSheets:
		if s.deps.GoogleSheets == nil {
			return nil, fmt.Errorf("google sheets credentials are not configured")
		}
		if info.GoogleSheet == nil {
			return nil, fmt.Errorf("google sheets import requires a sheet descriptor")
		}
		desc := *info.GoogleSheet
		return func(ctx context.Context) ([]source.NamedTable, error) {
			return one(s.deps.GoogleSheets.FetchSheet(ctx, desc))
		}, nil

	case source.KindExcel:
		if len(upload) == 0 {
			return nil, fmt.Errorf("no file provided")
		}
		return func(ctx context.Context) ([]source.NamedTable, error) {
			return s.deps.Excel.Parse(upload)
		}, nil

	case source.KindDatabase:
		if info.Database == nil {
			return nil, fmt.Errorf("database import requires a table descriptor")
		}
		desc := *info.Database
		return func(ctx context.Context) ([]source.NamedTable, error) {
			return one(s.deps.LiveDB.FetchTable(ctx, desc))
		}, nil

	case source.KindSQLDump:
		if len(upload) == 0 {
			return nil, fmt.Errorf("no file provided")
		}
		desc := source.DumpTable{}
		if info.Dump != nil {
			desc = *info.Dump
		}
		return func(ctx context.Context) ([]source.NamedTable, error) {
			return one(s.deps.Dump.Parse(upload, desc))
		}, nil

	default:
		return nil, fmt.Errorf("unsupported source kind %q", info.Kind)
	}
}

// one adapts a single-table fetch to the multi-table shape.
func one(t source.NamedTable, err error) ([]source.NamedTable, error) {
	if err != nil {
		return nil, err
	}
	return []source.NamedTable{t}, nil
}

// countDataRows totals the data rows across tables, excluding headers.
func countDataRows(tables []source.NamedTable) int {
	n := 0
	for _, t := range tables {
		n += t.Table.RowCount()
	}
	return n
}

// persist writes the file record, one sheet per table, and every row in
// source order. Sheet grids are stored header-first, so persisted row counts
// include the header row.
func (s *Service) persist(ctx context.Context, req ImportRequest, tables []source.NamedTable) (*ImportResult, error) {
	name := req.Name
	if name == "" {
		name = tables[0].Name
	}

	stored, err := req.Info.stored()
	if err != nil {
		return nil, err
	}

	fileID, err := s.store.CreateFile(ctx, req.OwnerID, name, req.MimeType, int64(len(req.Upload)), len(tables), stored)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{FileID: fileID}
	for i, t := range tables {
		grid := t.Table.AsRows()

		sheetID, err := s.store.CreateSheet(ctx, fileID, t.Name, i, len(grid), t.Table.ColumnCount())
		if err != nil {
			return nil, err
		}
		for idx, row := range grid {
			if err := s.store.CreateRow(ctx, sheetID, idx, row); err != nil {
				return nil, err
			}
		}

		result.Sheets = append(result.Sheets, SheetResult{
			SheetID:     sheetID,
			Name:        t.Name,
			RowCount:    len(grid),
			ColumnCount: t.Table.ColumnCount(),
		})
		if i == 0 {
			result.SheetID = sheetID
			result.Headers = t.Table.Headers
			result.Rows = grid[1:]
			result.RowCount = t.Table.RowCount()
			result.ColumnCount = t.Table.ColumnCount()
		}
	}
	return result, nil
}

// rewrite replaces the existing sheets' data position by position. Sources
// are stable enough that sheet N still corresponds to table N; a source that
// grew extra tables keeps only the sheets it had.
func (s *Service) rewrite(ctx context.Context, fileID uuid.UUID, tables []source.NamedTable) (*ImportResult, error) {
	sheets, err := s.store.ListSheets(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if len(sheets) == 0 {
		return nil, fmt.Errorf("file %s has no sheets: %w", fileID, ErrNotFound)
	}

	result := &ImportResult{FileID: fileID}
	for i, sh := range sheets {
		if i >= len(tables) {
			break
		}
		t := tables[i]
		grid := t.Table.AsRows()

		if err := s.store.ReplaceSheetData(ctx, sh.ID, grid); err != nil {
			return nil, err
		}

		result.Sheets = append(result.Sheets, SheetResult{
			SheetID:     sh.ID,
			Name:        sh.Name,
			RowCount:    len(grid),
			ColumnCount: t.Table.ColumnCount(),
		})
		if i == 0 {
			result.SheetID = sh.ID
			result.Headers = t.Table.Headers
			result.Rows = grid[1:]
			result.RowCount = t.Table.RowCount()
			result.ColumnCount = t.Table.ColumnCount()
		}
	}

	if err := s.store.TouchFile(ctx, fileID); err != nil {
		return nil, err
	}
	return result, nil
}

// refreshInfo decides which source descriptor a refresh uses: the caller's
// override when given, otherwise the descriptor stored with the file.
// One-shot uploads have nothing to re-fetch.
func refreshInfo(storedInfo json.RawMessage, override *SourceInfo) (SourceInfo, error) {
	var info SourceInfo
	if override != nil {
		info = *override
	} else {
		if len(storedInfo) == 0 {
			return SourceInfo{}, ErrNotRefreshable
		}
		if err := json.Unmarshal(storedInfo, &info); err != nil {
			return SourceInfo{}, fmt.Errorf("decode stored source info: %w", err)
		}
	}

	switch info.Kind {
	case source.KindExcel, source.KindSQLDump:
		return SourceInfo{}, ErrNotRefreshable
	case "":
		return SourceInfo{}, ErrNotRefreshable
	}
	return info, nil
}
