package httpadapter

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/salesscope/internal/auth"
	"github.com/kirillkom/salesscope/internal/core/domain"
	"github.com/kirillkom/salesscope/internal/core/ports"
)

const (
	multipartMemory  = 32 << 20
	maxDatasetName   = 255
	defaultPageLimit = 20
)

func (rt *Router) uploadDataset(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, r, domain.WrapError(domain.ErrUnauthorized, "upload dataset", errors.New("no principal")))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.UploadMaxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeFailure(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
				fmt.Sprintf("file exceeds the %d byte limit", rt.cfg.UploadMaxBytes))
			return
		}
		writeFailure(w, http.StatusBadRequest, "INVALID_INPUT", "expected a multipart/form-data body")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "NO_FILE", "multipart field 'file' is required")
		return
	}
	defer file.Close()

	name := strings.TrimSpace(r.FormValue("name"))
	if len(name) > maxDatasetName {
		writeFailure(w, http.StatusBadRequest, "INVALID_INPUT", "dataset name must be at most 255 characters")
		return
	}

	var content string
	switch uploadKind(header.Filename, header.Header.Get("Content-Type")) {
	case "csv":
		raw, err := io.ReadAll(file)
		if err != nil {
			writeError(w, r, fmt.Errorf("read upload: %w", err))
			return
		}
		content = string(raw)
	case "xlsx":
		if rt.deps.Spreadsheets == nil {
			writeFailure(w, http.StatusBadRequest, "INVALID_FILE_TYPE", "spreadsheet uploads are not enabled")
			return
		}
		content, err = rt.deps.Spreadsheets.ToCSV(r.Context(), file)
		if err != nil {
			writeError(w, r, err)
			return
		}
	default:
		writeFailure(w, http.StatusBadRequest, "INVALID_FILE_TYPE", "only CSV or XLSX files are allowed")
		return
	}

	start := time.Now()
	dataset, err := rt.deps.Ingestor.Upload(r.Context(), principal, ports.UploadRequest{
		Name:     name,
		FileName: header.Filename,
		FileSize: header.Size,
		Content:  content,
	})
	if rt.deps.Metrics != nil {
		rows := 0
		if dataset != nil {
			rows = dataset.RowCount
		}
		rt.deps.Metrics.RecordIngest(serviceName, rows, time.Since(start), err)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, dataset)
}

func uploadKind(fileName, contentType string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return "csv"
	case ".xlsx":
		return "xlsx"
	}
	if strings.HasPrefix(strings.ToLower(contentType), "text/csv") {
		return "csv"
	}
	return ""
}

func (rt *Router) listDatasets(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFrom(r.Context())

	page, limit := 1, defaultPageLimit
	if err := bindQueryInt(r, "page", &page); err != nil {
		writeError(w, r, err)
		return
	}
	if err := bindQueryInt(r, "limit", &limit); err != nil {
		writeError(w, r, err)
		return
	}
	if page < 1 || limit < 1 || limit > 100 {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "list datasets",
			errors.New("page must be >= 1 and limit between 1 and 100")))
		return
	}

	result, err := rt.deps.Catalog.List(r.Context(), principal.OrganizationID, page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    result.Datasets,
		Pagination: &pagination{
			Page:       result.Page,
			Limit:      result.Limit,
			Total:      result.Total,
			TotalPages: (result.Total + result.Limit - 1) / result.Limit,
		},
	})
}

func (rt *Router) getDataset(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFrom(r.Context())

	preview := 0
	if err := bindQueryInt(r, "preview", &preview); err != nil {
		writeError(w, r, err)
		return
	}
	if preview < 0 {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "get dataset", errors.New("preview must not be negative")))
		return
	}

	detail, err := rt.deps.Catalog.Get(r.Context(), principal.OrganizationID, r.PathValue("datasetId"), preview)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, detail)
}

func (rt *Router) deleteDataset(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFrom(r.Context())

	if err := rt.deps.Catalog.Delete(r.Context(), principal.OrganizationID, r.PathValue("datasetId")); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"message": "Dataset deleted successfully"})
}
