// Package source contains the per-source adapters that turn a source
// descriptor into normalized tabular data. Each adapter fetches records its
// own way (Graph pagination, Sheets API, workbook parsing, live SQL, dump
// parsing) and feeds the shared normalizer; none of them persist anything.
package source

import "github.com/gridport/gridport/internal/normalize"

// Kind identifies an import source type.
type Kind string

const (
	KindSharePoint     Kind = "sharepoint"
	KindSharePointUser Kind = "sharepoint_user"
	KindGoogleSheets   Kind = "google_sheets"
	KindExcel          Kind = "excel"
	KindDatabase       Kind = "database"
	KindSQLDump        Kind = "sql_dump"
)

// SharePointList locates one SharePoint list. Either SiteID is set, or the
// site is resolved from SiteHost + SitePath.
type SharePointList struct {
	SiteID   string `json:"siteId,omitempty"`
	SiteHost string `json:"siteHost,omitempty"`
	SitePath string `json:"sitePath,omitempty"`
	ListID   string `json:"listId"`
}

// GoogleSheet locates one range of a Google spreadsheet. Range may be empty,
// in which case the whole sheet is read.
type GoogleSheet struct {
	SpreadsheetID string `json:"spreadsheetId"`
	SheetName     string `json:"sheetName"`
	Range         string `json:"range,omitempty"`
}

// DatabaseTable locates one table on a live relational database. The
// credentials are used for a single request and never stored.
type DatabaseTable struct {
	Dialect  string `json:"dialect"` // "mysql" or "postgres"
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password,omitempty"`
	Table    string `json:"table"`
}

// DumpTable selects one table out of a SQL dump. TableName may be empty,
// selecting the first table the dump defines.
type DumpTable struct {
	TableName string `json:"tableName,omitempty"`
}

// NamedTable is a normalized table with the sheet name it should be
// persisted under.
type NamedTable struct {
	Name  string
	Table normalize.Table
}
