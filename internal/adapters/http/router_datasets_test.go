package httpadapter

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/salesscope/internal/core/domain"
)

func multipartUpload(t *testing.T, fileName, content, name string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if name != "" {
		if err := writer.WriteField("name", name); err != nil {
			t.Fatalf("WriteField() error = %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/datasets/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadDatasetCreatesDataset(t *testing.T) {
	ts := newTestServer(t, testConfig())
	csv := "date,revenue\n2024-01-01,100\n2024-01-02,150\n"

	res := ts.do(t, multipartUpload(t, "sales.csv", csv, "Q1 sales"))
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	if ts.ingest.principal.OrganizationID != "org-1" || ts.ingest.principal.UserID != "u-1" {
		t.Fatalf("principal not forwarded: %+v", ts.ingest.principal)
	}
	if ts.ingest.req.Content != csv || ts.ingest.req.Name != "Q1 sales" || ts.ingest.req.FileName != "sales.csv" {
		t.Fatalf("unexpected upload request: %+v", ts.ingest.req)
	}
	if ts.ingest.req.FileSize != int64(len(csv)) {
		t.Fatalf("expected file size %d, got %d", len(csv), ts.ingest.req.FileSize)
	}

	body := decodeEnvelope(t, res)
	if body["success"] != true {
		t.Fatalf("expected success envelope, got %v", body)
	}
	data := body["data"].(map[string]any)
	if data["id"] != "ds-1" || data["status"] != "READY" {
		t.Fatalf("unexpected dataset payload: %v", data)
	}
}

func TestUploadDatasetWithoutFile(t *testing.T) {
	ts := newTestServer(t, testConfig())

	res := ts.do(t, multipartUpload(t, "", "", "only a name"))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if code := errorCode(t, res); code != "NO_FILE" {
		t.Fatalf("expected NO_FILE, got %q", code)
	}
}

func TestUploadDatasetRejectsUnsupportedType(t *testing.T) {
	ts := newTestServer(t, testConfig())

	res := ts.do(t, multipartUpload(t, "notes.txt", "hello", ""))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if code := errorCode(t, res); code != "INVALID_FILE_TYPE" {
		t.Fatalf("expected INVALID_FILE_TYPE, got %q", code)
	}
}

func TestUploadDatasetRejectsLongName(t *testing.T) {
	ts := newTestServer(t, testConfig())

	res := ts.do(t, multipartUpload(t, "sales.csv", "date,revenue\n", strings.Repeat("n", 256)))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadDatasetTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.UploadMaxBytes = 128
	ts := newTestServer(t, cfg)

	res := ts.do(t, multipartUpload(t, "sales.csv", strings.Repeat("x", 4096), ""))
	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
	if code := errorCode(t, res); code != "FILE_TOO_LARGE" {
		t.Fatalf("expected FILE_TOO_LARGE, got %q", code)
	}
}

func TestUploadDatasetMapsIngestionErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"empty", domain.WrapError(domain.ErrEmptyFile, "ingest", errors.New("no rows")), http.StatusBadRequest, "EMPTY_FILE"},
		{"parse", domain.WrapError(domain.ErrParse, "ingest", errors.New("bad quote")), http.StatusBadRequest, "PARSE_ERROR"},
		{"schema", domain.WrapError(domain.ErrSchemaValidation, "ingest", errors.New("missing date column")), http.StatusUnprocessableEntity, "SCHEMA_VALIDATION_FAILED"},
		{"persist", domain.WrapError(domain.ErrIngestionPersist, "ingest", errors.New("db down")), http.StatusInternalServerError, "INGESTION_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, testConfig())
			ts.ingest.err = tt.err

			res := ts.do(t, multipartUpload(t, "sales.csv", "date,revenue\n", ""))
			if res.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, res.Code)
			}
			if code := errorCode(t, res); code != tt.code {
				t.Fatalf("expected %s, got %q", tt.code, code)
			}
		})
	}
}

func TestUploadDatasetHidesInternalDetails(t *testing.T) {
	ts := newTestServer(t, testConfig())
	ts.ingest.err = domain.WrapError(domain.ErrIngestionPersist, "ingest", errors.New("pq: password authentication failed"))

	res := ts.do(t, multipartUpload(t, "sales.csv", "date,revenue\n", ""))
	if strings.Contains(res.Body.String(), "password") {
		t.Fatalf("internal error leaked to client: %s", res.Body.String())
	}
}

func TestListDatasetsReturnsPagination(t *testing.T) {
	ts := newTestServer(t, testConfig())

	res := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/datasets?page=2&limit=20", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if ts.catalog.lastOrg != "org-1" || ts.catalog.lastPage != 2 || ts.catalog.lastLimit != 20 {
		t.Fatalf("unexpected list call: org=%q page=%d limit=%d", ts.catalog.lastOrg, ts.catalog.lastPage, ts.catalog.lastLimit)
	}

	body := decodeEnvelope(t, res)
	p := body["pagination"].(map[string]any)
	if p["page"] != float64(2) || p["limit"] != float64(20) || p["total"] != float64(45) || p["totalPages"] != float64(3) {
		t.Fatalf("unexpected pagination: %v", p)
	}
	if len(body["data"].([]any)) != 2 {
		t.Fatalf("expected 2 datasets, got %v", body["data"])
	}
}

func TestListDatasetsDefaults(t *testing.T) {
	ts := newTestServer(t, testConfig())

	res := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/datasets", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if ts.catalog.lastPage != 1 || ts.catalog.lastLimit != 20 {
		t.Fatalf("expected page 1 limit 20, got page %d limit %d", ts.catalog.lastPage, ts.catalog.lastLimit)
	}
}

func TestListDatasetsRejectsBadPaging(t *testing.T) {
	for _, query := range []string{"?page=0", "?limit=101", "?limit=abc"} {
		t.Run(query, func(t *testing.T) {
			ts := newTestServer(t, testConfig())
			res := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/datasets"+query, nil))
			if res.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", res.Code)
			}
			if code := errorCode(t, res); code != "INVALID_INPUT" {
				t.Fatalf("expected INVALID_INPUT, got %q", code)
			}
		})
	}
}

func TestGetDatasetNotFound(t *testing.T) {
	ts := newTestServer(t, testConfig())
	ts.catalog.err = domain.WrapError(domain.ErrNotFound, "load dataset", errors.New("ds-9"))

	res := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/datasets/ds-9", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
	if code := errorCode(t, res); code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %q", code)
	}
}

func TestDeleteDataset(t *testing.T) {
	ts := newTestServer(t, testConfig())

	res := ts.do(t, httptest.NewRequest(http.MethodDelete, "/api/datasets/ds-1", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if ts.catalog.deleted != "ds-1" || ts.catalog.lastOrg != "org-1" {
		t.Fatalf("unexpected delete: dataset=%q org=%q", ts.catalog.deleted, ts.catalog.lastOrg)
	}
	data := decodeEnvelope(t, res)["data"].(map[string]any)
	if data["message"] != "Dataset deleted successfully" {
		t.Fatalf("unexpected message: %v", data)
	}
}
