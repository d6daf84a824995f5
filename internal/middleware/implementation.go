package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/laxjovial/assistant-core/internal/adapter/utils"
	"github.com/laxjovial/assistant-core/internal/config"
	"github.com/laxjovial/assistant-core/internal/handlers"
)

// sessionValidator maps a bearer session ID to the owning user's token.
// Installed once at startup.
var sessionValidator func(ctx context.Context, sessionID string) (string, bool)

func InitAuth(validator func(ctx context.Context, sessionID string) (string, bool)) {
	sessionValidator = validator
}

func injectTrace(re requestResponseStruct) requestResponseStruct {
	re.logger.Debug("Injecting trace middleware")
	req := re.req
	if req == nil {
		//this is a bad request
		re.badRequest.httpCode = http.StatusBadRequest
		re.badRequest.errorMessage = "request is empty"
		re.badRequest.isBadRequest = true
		return re
	}
	trace := req.Header.Get("X-Trace-Id")
	if trace == "" {
		trace = utils.GetNewUUID()
	}
	re.logger = re.logger.With("traceId", trace)
	ctx := context.WithValue(req.Context(), config.TRACE_ID_KEY, trace)
	req.Header.Set(`X-Trace-Id`, trace)
	re.req = req.WithContext(ctx)

	re.logger.Debug("trace middleware injected")
	return re
}

func authenticate(re requestResponseStruct) requestResponseStruct {
	re.logger.Debug("Authenticating request")

	sessionID := bearerSession(re.req.Header.Get("Authorization"))
	if sessionID == "" || sessionValidator == nil {
		return unauthorized(re)
	}
	token, ok := sessionValidator(re.req.Context(), sessionID)
	if !ok {
		return unauthorized(re)
	}

	ctx := context.WithValue(re.req.Context(), config.USER_ID_KEY, token)
	re.req = re.req.WithContext(ctx)
	re.logger.Debug("Authorized")
	return re
}

func unauthorized(re requestResponseStruct) requestResponseStruct {
	handlers.WriteErrorResponse(re.writer, http.StatusUnauthorized, "", "Unauthorized")
	re.badRequest.isBadRequest = true
	re.badRequest.errorMessage = "invalid session"
	re.badRequest.httpCode = http.StatusUnauthorized
	re.logger.Warn("Unauthorized request", "IP", re.req.RemoteAddr)
	return re
}

func bearerSession(authHeader string) string {
	const prefix = "Bearer "
	if len(authHeader) <= len(prefix) || authHeader[:len(prefix)] != prefix {
		return ""
	}
	return authHeader[len(prefix):]
}

func rateLimiter(re requestResponseStruct) requestResponseStruct {
	re.logger.Debug("Rate limiter middleware")
	ip, _, err := net.SplitHostPort(re.req.RemoteAddr)
	if err != nil {
		ip = re.req.RemoteAddr
	}

	if !limiterInstance.GetLimiter(ip).Allow() {
		re.logger.Error("Too many requests", "Rate Limiter exceeded", ip)
		re.badRequest = failureStruct{
			isBadRequest: true,
			httpCode:     http.StatusTooManyRequests,
			errorMessage: "Rate limit exceeded",
		}
		return re
	}
	re.logger.Debug("Rate limiter middleware authorized")
	return re
}

func handleBadRequest(re requestResponseStruct) bool {
	if re.badRequest.isBadRequest {
		re.logger.Warn("Bad request", "httpCode", re.badRequest.httpCode, "errorMessage", re.badRequest.errorMessage, "IP", re.req.RemoteAddr)
		handlers.WriteErrorResponse(re.writer, re.badRequest.httpCode, "Your IP: "+re.req.RemoteAddr, re.badRequest.errorMessage)
		return false
	}
	return true
}
