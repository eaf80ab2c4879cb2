package httpadapter

import (
	"net/http"

	"github.com/kirillkom/salesscope/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrParse),
		domain.IsKind(err, domain.ErrEmptyFile),
		domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrSchemaValidation):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func mapErrorToCode(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrParse):
		return "PARSE_ERROR"
	case domain.IsKind(err, domain.ErrEmptyFile):
		return "EMPTY_FILE"
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "INVALID_INPUT"
	case domain.IsKind(err, domain.ErrSchemaValidation):
		return "SCHEMA_VALIDATION_FAILED"
	case domain.IsKind(err, domain.ErrUnauthorized):
		return "UNAUTHORIZED"
	case domain.IsKind(err, domain.ErrNotFound):
		return "NOT_FOUND"
	case domain.IsKind(err, domain.ErrTemporary):
		return "TEMPORARY_FAILURE"
	case domain.IsKind(err, domain.ErrIngestionPersist):
		return "INGESTION_FAILED"
	default:
		return "INTERNAL_ERROR"
	}
}

// publicMessage hides internal failure details from clients.
func publicMessage(err error, status int) string {
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		if domain.IsKind(err, domain.ErrIngestionPersist) {
			return "failed to store sales records"
		}
		return "internal server error"
	}
	return err.Error()
}
