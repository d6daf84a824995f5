package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/laxjovial/assistant-core/internal/adapter"
	"github.com/laxjovial/assistant-core/internal/config"
	"github.com/laxjovial/assistant-core/internal/domain/jobmodel"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logRH.Error("Error encoding response: %v", err)
	}
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

// decodeAndValidate reads the JSON body into dst and runs struct
// validation. A false return means the response is already written.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logRH.Warn("Bad request body", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		logRH.Warn("Request validation failed", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request: "+err.Error())
		return false
	}
	return true
}

func validateContext(ctx context.Context) bool {
	logRH.With("traceId:", traceID(ctx))
	if ctx.Err() != nil {
		logRH.Warn("context error", ctx.Err())
		return false
	}

	select {
	case <-ctx.Done():
		logRH.Warn("context cancelled")
		return false
	default:
		return true

	}
}

func traceID(ctx context.Context) string {
	trace, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	return trace
}

// userToken returns the authenticated user's API token placed in the
// context by the session middleware.
func userToken(ctx context.Context) string {
	token, _ := ctx.Value(config.USER_ID_KEY).(string)
	return token
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

func validateId(id string, traceId string) (result jobmodel.Job, isFound bool) {
	if id == "" {
		logRH.Warn("Empty Job ID")
		return jobmodel.Job{}, false
	}
	return GetJobStatus(id, traceId)
}
