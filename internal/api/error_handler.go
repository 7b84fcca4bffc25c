package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/coursehub/registration-api/internal/core/domain"
	"github.com/coursehub/registration-api/internal/pkg/i18n"
)

// retryAfterSeconds is advertised on 503 responses for transient ledger failures.
const retryAfterSeconds = "1"

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	State string `json:"state,omitempty"`
}

var statusByCode = map[string]int{
	domain.CodeNotFound:                http.StatusNotFound,
	domain.CodeUserNotFound:            http.StatusNotFound,
	domain.CodeWindowClosed:            http.StatusBadRequest,
	domain.CodeInvalidCourse:           http.StatusBadRequest,
	domain.CodeCourseFull:              http.StatusConflict,
	domain.CodeAlreadyRegistered:       http.StatusConflict,
	domain.CodeNotRegistered:           http.StatusConflict,
	domain.CodeUserExists:              http.StatusConflict,
	domain.CodeCourseClosedForEdit:     http.StatusConflict,
	domain.CodeCourseStillOpen:         http.StatusConflict,
	domain.CodeCapacityBelowRegistered: http.StatusConflict,
	domain.CodeTransient:               http.StatusServiceUnavailable,
	domain.CodeInvalidCredentials:      http.StatusUnauthorized,
	domain.CodeSocialLoginFailed:       http.StatusUnauthorized,
	domain.CodeForbidden:               http.StatusForbidden,
	domain.CodeSocialLoginDisabled:     http.StatusNotImplemented,
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status and stable code.
//   - Localizes the message from the request's Accept-Language.
//   - Logs unexpected errors internally without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err, log, c)
		if status == http.StatusServiceUnavailable && body.Code == domain.CodeTransient {
			c.Response().Header().Set("Retry-After", retryAfterSeconds)
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, middleware rejections).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := fmt.Sprintf("%v", he.Message)
		if he.Internal != nil {
			log.Debug().Err(he.Internal).Str("path", c.Path()).Msg("request rejected")
		}
		return he.Code, errorResponse{Error: msg, Code: httpCode(he.Code)}
	}

	lang := c.Request().Header.Get("Accept-Language")
	code := domain.ErrorCode(err)
	if status, ok := statusByCode[code]; ok {
		body := errorResponse{Error: i18n.Message(lang, code), Code: code}
		var wc *domain.WindowClosedError
		if errors.As(err, &wc) {
			body.State = string(wc.State)
			body.Error = i18n.WindowMessage(lang, wc.State)
		}
		if code == domain.CodeTransient {
			log.Warn().Err(err).Str("path", c.Path()).Msg("transient failure")
		}
		return status, body
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{
		Error: i18n.Message(lang, domain.CodeInternal),
		Code:  domain.CodeInternal,
	}
}

func httpCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return domain.CodeForbidden
	case http.StatusNotFound:
		return "route_not_found"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		if status >= http.StatusInternalServerError {
			return domain.CodeInternal
		}
		return "request_error"
	}
}
