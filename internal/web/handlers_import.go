package web

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/gridport/gridport/internal/core"
	"github.com/gridport/gridport/internal/source"
)

// uploadField is the multipart form field carrying the uploaded file.
const uploadField = "file"

type sharePointImportBody struct {
	OwnerID  uuid.UUID `json:"ownerId"`
	Name     string    `json:"name"`
	UserID   string    `json:"userId"`
	SiteID   string    `json:"siteId"`
	SiteHost string    `json:"siteHost"`
	SitePath string    `json:"sitePath"`
	ListID   string    `json:"listId"`
}

func (b sharePointImportBody) descriptor() *source.SharePointList {
	return &source.SharePointList{
		SiteID:   b.SiteID,
		SiteHost: b.SiteHost,
		SitePath: b.SitePath,
		ListID:   b.ListID,
	}
}

func (s *Server) handleImportSharePoint(w http.ResponseWriter, r *http.Request) {
	var body sharePointImportBody
	if err := decodeJSON(r, &body); err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	s.runImport(w, r, core.ImportRequest{
		OwnerID: body.OwnerID,
		Name:    body.Name,
		Info: core.SourceInfo{
			Kind:       source.KindSharePoint,
			SharePoint: body.descriptor(),
		},
	})
}

func (s *Server) handleImportSharePointUser(w http.ResponseWriter, r *http.Request) {
	var body sharePointImportBody
	if err := decodeJSON(r, &body); err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	s.runImport(w, r, core.ImportRequest{
		OwnerID: body.OwnerID,
		Name:    body.Name,
		Info: core.SourceInfo{
			Kind:       source.KindSharePointUser,
			UserID:     body.UserID,
			SharePoint: body.descriptor(),
		},
	})
}

func (s *Server) handleImportGoogleSheets(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OwnerID       uuid.UUID `json:"ownerId"`
		Name          string    `json:"name"`
		SpreadsheetID string    `json:"spreadsheetId"`
		SheetName     string    `json:"sheetName"`
		Range         string    `json:"range"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	s.runImport(w, r, core.ImportRequest{
		OwnerID: body.OwnerID,
		Name:    body.Name,
		Info: core.SourceInfo{
			Kind: source.KindGoogleSheets,
			GoogleSheet: &source.GoogleSheet{
				SpreadsheetID: body.SpreadsheetID,
				SheetName:     body.SheetName,
				Range:         body.Range,
			},
		},
	})
}

func (s *Server) handleImportExcel(w http.ResponseWriter, r *http.Request) {
	data, filename, err := readUpload(r, uploadField, s.cfg.Limits.MaxUploadBytes)
	if err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	ownerID, err := uuid.Parse(r.FormValue("ownerId"))
	if err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	s.runImport(w, r, core.ImportRequest{
		OwnerID:  ownerID,
		Name:     filename,
		MimeType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Info:     core.SourceInfo{Kind: source.KindExcel},
		Upload:   data,
	})
}

func (s *Server) handleImportDatabase(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OwnerID  uuid.UUID `json:"ownerId"`
		Name     string    `json:"name"`
		Dialect  string    `json:"dialect"`
		Host     string    `json:"host"`
		Port     int       `json:"port"`
		Database string    `json:"database"`
		User     string    `json:"user"`
		Password string    `json:"password"`
		Table    string    `json:"table"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	s.runImport(w, r, core.ImportRequest{
		OwnerID: body.OwnerID,
		Name:    body.Name,
		Info: core.SourceInfo{
			Kind: source.KindDatabase,
			Database: &source.DatabaseTable{
				Dialect:  body.Dialect,
				Host:     body.Host,
				Port:     body.Port,
				Database: body.Database,
				User:     body.User,
				Password: body.Password,
				Table:    body.Table,
			},
		},
	})
}

func (s *Server) handleImportSQLDump(w http.ResponseWriter, r *http.Request) {
	data, filename, err := readUpload(r, uploadField, s.cfg.Limits.MaxDumpBytes)
	if err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	ownerID, err := uuid.Parse(r.FormValue("ownerId"))
	if err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	s.runImport(w, r, core.ImportRequest{
		OwnerID:  ownerID,
		Name:     filename,
		MimeType: "application/sql",
		Info: core.SourceInfo{
			Kind: source.KindSQLDump,
			Dump: &source.DumpTable{TableName: r.FormValue("tableName")},
		},
		Upload: data,
	})
}

func (s *Server) handleRefreshFile(w http.ResponseWriter, r *http.Request) {
	fileID, err := pathUUID(r, "fileID")
	if err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	// An empty body means "refresh from the stored descriptor"; a JSON body
	// overrides it, e.g. to resupply a database password.
	var override *core.SourceInfo
	if r.ContentLength > 0 {
		var info core.SourceInfo
		if err := decodeJSON(r, &info); err != nil {
			s.respondErrorStatus(w, r, err, http.StatusBadRequest)
			return
		}
		override = &info
	}

	result, err := s.service.RefreshImport(r.Context(), fileID, override)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// runImport runs the orchestrator and writes the result or the mapped error.
func (s *Server) runImport(w http.ResponseWriter, r *http.Request, req core.ImportRequest) {
	result, err := s.service.ImportFromSource(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
