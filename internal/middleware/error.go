package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"memorabilia-catalog/internal/domain"

	"go.uber.org/zap"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Kind      string                 `json:"kind,omitempty"`
	Field     string                 `json:"field,omitempty"`
	EntityID  string                 `json:"entityId,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// RespondWithError sends a structured error response
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithDetail(w, statusCode, ErrorDetail{Message: message})
}

func respondWithDetail(w http.ResponseWriter, statusCode int, detail ErrorDetail) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	detail.Code = http.StatusText(statusCode)
	detail.Timestamp = time.Now().UTC().Format(time.RFC3339)

	json.NewEncoder(w).Encode(ErrorResponse{Error: detail})
}

// RespondWithValidationErrors sends validation error response
func RespondWithValidationErrors(w http.ResponseWriter, errors []ValidationError) {
	respondWithDetail(w, http.StatusBadRequest, ErrorDetail{
		Message: "validation failed",
		Kind:    string(domain.KindValidation),
		Details: map[string]interface{}{"validation_errors": errors},
	})
}

// RespondWithCatalogError maps a catalog error to an HTTP status and a
// response naming the error kind and the offending field or entity id.
// A consistency error is a stored-data defect, so the caller only sees a
// generic failure.
func RespondWithCatalogError(w http.ResponseWriter, err *domain.Error) {
	detail := ErrorDetail{
		Message:  err.Message,
		Kind:     string(err.Kind),
		Field:    err.Field,
		EntityID: err.EntityID,
	}

	switch err.Kind {
	case domain.KindValidation:
		respondWithDetail(w, http.StatusBadRequest, detail)
	case domain.KindHierarchy, domain.KindImageConstraint:
		respondWithDetail(w, http.StatusUnprocessableEntity, detail)
	case domain.KindDependency:
		respondWithDetail(w, http.StatusConflict, detail)
	case domain.KindNotFound:
		respondWithDetail(w, http.StatusNotFound, detail)
	case domain.KindTransient:
		respondWithDetail(w, http.StatusServiceUnavailable, ErrorDetail{
			Message: "storage temporarily unavailable, retry later",
			Kind:    string(err.Kind),
		})
	default:
		// Consistency and anything unclassified.
		respondWithDetail(w, http.StatusInternalServerError, ErrorDetail{
			Message: "internal server error",
		})
	}
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)

					RespondWithError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
