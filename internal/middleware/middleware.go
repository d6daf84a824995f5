package middleware

import (
	"net/http"
	"strconv"

	"github.com/laxjovial/assistant-core/internal/handlers"
	"github.com/laxjovial/assistant-core/internal/metrics"
	"github.com/laxjovial/assistant-core/pkg/logger_i"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
	id           string
}

var GetHandler = WrapPublic(handlers.GetHandler)

var PostRegisterHandler = WrapPublic(handlers.PostRegisterHandler)
var PostLoginHandler = WrapPublic(handlers.PostLoginHandler)
var PostLogoutHandler = WrapPublic(handlers.PostLogoutHandler)
var PostOTPRequestHandler = WrapPublic(handlers.PostOTPRequestHandler)
var PostOTPVerifyHandler = WrapPublic(handlers.PostOTPVerifyHandler)
var PostResetRequestHandler = WrapPublic(handlers.PostResetRequestHandler)
var PostResetConfirmHandler = WrapPublic(handlers.PostResetConfirmHandler)

var PostIngestHandler = Wrap(handlers.PostIngestHandler)
var PostQueryHandler = Wrap(handlers.PostQueryHandler)
var GetStatusHandler = Wrap(handlers.GetStatusHandler)
var PostClearHandler = Wrap(handlers.PostClearHandler)
var PostSummarizeHandler = Wrap(handlers.PostSummarizeHandler)
var PostExportHandler = Wrap(handlers.PostExportHandler)
var PostSearchHandler = Wrap(handlers.PostSearchHandler)
var PostFetchHandler = Wrap(handlers.PostFetchHandler)
var PostExecHandler = Wrap(handlers.PostExecHandler)

// Wrap runs the full chain: trace injection, rate limiting and session
// authentication, with request metrics around the handler.
func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return wrap(next, true)
}

// WrapPublic skips the session check for endpoints that must work
// before a session exists (health, auth flows).
func WrapPublic(next http.HandlerFunc) http.HandlerFunc {
	return wrap(next, false)
}

func wrap(next http.HandlerFunc, requireSession bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: 200} //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec}, requireSession)

		if re.badRequest.isBadRequest {
			return
		}
		next(rec, re.req)

		metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

func processRequest(re requestResponseStruct, requireSession bool) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re.logger.Debug("New request received")

	re = injectTrace(re)
	re = rateLimiter(re)
	if re.badRequest.isBadRequest {
		handleBadRequest(re)
		return re //stop here if rate limit fails
	}
	if requireSession {
		re = authenticate(re)
		if re.badRequest.isBadRequest {
			return re //authenticate already wrote the response
		}
	}

	return re
}
