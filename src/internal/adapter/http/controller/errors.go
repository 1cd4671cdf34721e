package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/api-sage/stable-wallet/src/internal/adapter/http/middleware"
	"github.com/api-sage/stable-wallet/src/internal/commons"
	"github.com/api-sage/stable-wallet/src/internal/domain"
	"github.com/api-sage/stable-wallet/src/internal/logger"
)

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrSelfTransfer):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError[T any](w http.ResponseWriter, r *http.Request, response commons.Response[T], err error, start time.Time) {
	logError(r, err, logger.Fields{"message": response.Message})

	var rateErr *domain.RateLimitError
	if errors.As(err, &rateErr) {
		seconds := int64(rateErr.RetryAfter.Round(time.Second) / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
	}

	status := statusFor(err)
	writeJSON(w, status, response)
	logResponse(r, status, response, start)
}

func methodNotAllowed[T any](w http.ResponseWriter, r *http.Request, start time.Time) {
	response := commons.ErrorResponse[T]("method not allowed")
	writeJSON(w, http.StatusMethodNotAllowed, response)
	logResponse(r, http.StatusMethodNotAllowed, response, start)
}

// decodeBody reads the JSON body into req. It writes the 400 response itself and reports false on failure.
func decodeBody[T any](w http.ResponseWriter, r *http.Request, req any, start time.Time) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[T]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return false
	}
	return true
}

// callerKey returns the account key the bearer middleware resolved. It writes a 401 when there is none.
func callerKey[T any](w http.ResponseWriter, r *http.Request, start time.Time) (string, bool) {
	key, ok := middleware.CallerKey(r.Context())
	if !ok {
		response := commons.ErrorResponse[T]("unauthorized")
		writeJSON(w, http.StatusUnauthorized, response)
		logResponse(r, http.StatusUnauthorized, response, start)
		return "", false
	}
	return key, true
}

func protect(handler http.HandlerFunc, authMiddleware func(http.Handler) http.Handler) http.Handler {
	if authMiddleware == nil {
		return handler
	}
	return authMiddleware(handler)
}
