package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/Harshitk-cp/credence/internal/service"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decode reads a JSON body into req and runs its validate tags.
func decode(w http.ResponseWriter, r *http.Request, req any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "invalid request"
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "gte", "lte":
			msgs = append(msgs, field+" must be within [0, 1]")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

// statusFor maps service errors to HTTP statuses. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrHypothesisNotFound),
		errors.Is(err, service.ErrEvidenceNotFound),
		errors.Is(err, service.ErrLinkNotFound),
		errors.Is(err, service.ErrRelationNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrHypothesisLocked),
		errors.Is(err, service.ErrDuplicateLink),
		errors.Is(err, service.ErrAlreadyVerified),
		errors.Is(err, service.ErrHypothesisExists),
		errors.Is(err, service.ErrEvidenceExists):
		return http.StatusConflict

	case errors.Is(err, service.ErrInvalidProbability),
		errors.Is(err, service.ErrInvalidConfidence),
		errors.Is(err, service.ErrInvalidVerificationType),
		errors.Is(err, service.ErrInvalidRelationType),
		errors.Is(err, service.ErrInvalidStrength),
		errors.Is(err, service.ErrInvalidDampening),
		errors.Is(err, service.ErrSelfRelation),
		errors.Is(err, service.ErrHypothesisIDRequired),
		errors.Is(err, service.ErrStatementRequired),
		errors.Is(err, service.ErrEvidenceIDRequired),
		errors.Is(err, service.ErrContentRequired),
		errors.Is(err, service.ErrSourceURLRequired),
		errors.Is(err, service.ErrSuggestionInput),
		errors.Is(err, service.ErrNotStatusURL),
		errors.Is(err, service.ErrChatRole),
		errors.Is(err, service.ErrChatContent):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrLockTimeout),
		errors.Is(err, service.ErrAssistantUnavailable):
		return http.StatusServiceUnavailable

	case errors.Is(err, service.ErrExtractionFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeServiceError writes err with its mapped status. Internal errors are
// logged and hidden from the client.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
		msg := "internal error"
		if errors.Is(err, service.ErrMissingBasePrior) {
			msg = service.ErrMissingBasePrior.Error()
		}
		writeError(w, status, msg)
		return
	}
	writeError(w, status, err.Error())
}
