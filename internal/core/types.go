package core

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/gridport/gridport/internal/source"
)

// ImportState is one phase of an import run. Every source kind moves through
// the same sequence; Failed is terminal and reachable from any non-terminal
// state.
type ImportState int

const (
	StateFetchingMetadata ImportState = iota
	StateFetchingData
	StateNormalizing
	StatePersisting
	StateDone
	StateFailed
)

var stateNames = map[ImportState]string{
	StateFetchingMetadata: "fetching_metadata",
	StateFetchingData:     "fetching_data",
	StateNormalizing:      "normalizing",
	StatePersisting:       "persisting",
	StateDone:             "done",
	StateFailed:           "failed",
}

func (s ImportState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ImportState(%d)", int(s))
}

// terminal reports whether no further transition is allowed.
func (s ImportState) terminal() bool {
	return s == StateDone || s == StateFailed
}

// CanTransition reports whether moving from s to next is a legal step:
// either the next phase in sequence, or Failed from any non-terminal state.
func (s ImportState) CanTransition(next ImportState) bool {
	if s.terminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	return next == s+1
}

// importRun tracks the state of one import as it advances.
type importRun struct {
	state ImportState
}

func newRun() *importRun {
	return &importRun{state: StateFetchingMetadata}
}

// advance moves the run to next, enforcing the transition rules. A rejected
// transition is a programming error, not an input error.
func (r *importRun) advance(next ImportState) error {
	if !r.state.CanTransition(next) {
		return fmt.Errorf("illegal import state transition %s -> %s", r.state, next)
	}
	r.state = next
	return nil
}

// fail marks the run failed and passes the cause through.
func (r *importRun) fail(err error) error {
	if !r.state.terminal() {
		r.state = StateFailed
	}
	return err
}

// SourceInfo describes where a file's data came from. It is persisted on the
// file record (credentials stripped) so refreshable sources can be re-fetched
// later. Exactly one descriptor matching Kind is set.
type SourceInfo struct {
	Kind       source.Kind            `json:"kind"`
	UserID     string                 `json:"userId,omitempty"`
	SharePoint *source.SharePointList `json:"sharepoint,omitempty"`
	GoogleSheet *source.GoogleSheet   `json:"googleSheet,omitempty"`
	Database   *source.DatabaseTable  `json:"database,omitempty"`
	Dump       *source.DumpTable      `json:"dump,omitempty"`
}

// stored returns the JSON to persist with the file record. Live-database
// passwords are used once and never written.
func (si SourceInfo) stored() (json.RawMessage, error) {
	clean := si
	if clean.Database != nil {
		db := *clean.Database
		db.Password = ""
		clean.Database = &db
	}
	raw, err := json.Marshal(clean)
	if err != nil {
		return nil, fmt.Errorf("encode source info: %w", err)
	}
	return raw, nil
}

// ImportRequest is the orchestrator's input, assembled by the HTTP layer.
type ImportRequest struct {
	OwnerID  uuid.UUID
	Name     string // file name to record; defaults to the source's own name
	MimeType string
	Info     SourceInfo
	Upload   []byte // workbook or dump bytes for upload kinds
}

// SheetResult summarizes one persisted sheet.
type SheetResult struct {
	SheetID     uuid.UUID `json:"sheetId"`
	Name        string    `json:"name"`
	RowCount    int       `json:"rowCount"`
	ColumnCount int       `json:"columnCount"`
}

// ImportResult reports a completed import. Headers and Rows mirror the first
// sheet, which is the only sheet for every source kind except Excel uploads.
type ImportResult struct {
	FileID      uuid.UUID     `json:"fileId"`
	SheetID     uuid.UUID     `json:"sheetId"`
	Headers     []string      `json:"headers"`
	Rows        [][]string    `json:"rows"`
	RowCount    int           `json:"rowCount"`
	ColumnCount int           `json:"columnCount"`
	Sheets      []SheetResult `json:"sheets"`
}
