package middleware

import (
	"errors"
	"net/http"

	contextutils "betaportal/internal/utils"

	"github.com/gin-gonic/gin"
)

// GenericErrorMessage is shown for every 5xx so internals never reach the caller
const GenericErrorMessage = "Something went wrong. Please try again."

// StatusForCode maps AppError codes to HTTP status codes
func StatusForCode(code contextutils.ErrorCode) int {
	switch code {
	// 4xx Client Errors
	case contextutils.ErrorCodeInvalidInput, contextutils.ErrorCodeMissingRequired,
		contextutils.ErrorCodeValidationFailed, contextutils.ErrorCodeUnsupportedMediaType,
		contextutils.ErrorCodePayloadTooLarge:
		return http.StatusBadRequest

	case contextutils.ErrorCodeUnauthorized:
		return http.StatusUnauthorized

	case contextutils.ErrorCodeForbidden, contextutils.ErrorCodeTesterNotRegistered,
		contextutils.ErrorCodeTesterNotApproved:
		return http.StatusForbidden

	case contextutils.ErrorCodeRecordNotFound:
		return http.StatusNotFound

	case contextutils.ErrorCodeRecordExists, contextutils.ErrorCodeConflict:
		return http.StatusConflict

	case contextutils.ErrorCodeRateLimit:
		return http.StatusTooManyRequests

	// 5xx Server Errors
	case contextutils.ErrorCodeServiceUnavailable, contextutils.ErrorCodeDatabaseConnection:
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse builds the status and body for err. Server-side failures get
// the generic message; client errors carry their own message and details.
func ErrorResponse(err error) (int, gin.H) {
	var appErr *contextutils.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, gin.H{
			"error": GenericErrorMessage,
			"code":  string(contextutils.ErrorCodeInternalError),
		}
	}

	status := StatusForCode(appErr.Code)
	if status >= http.StatusInternalServerError {
		return status, gin.H{
			"error": GenericErrorMessage,
			"code":  string(appErr.Code),
		}
	}

	body := gin.H{
		"error": appErr.Message,
		"code":  string(appErr.Code),
	}
	if appErr.Details != "" {
		body["details"] = appErr.Details
	}
	return status, body
}

// AbortWithError records err on the gin context and writes the mapped response
func AbortWithError(c *gin.Context, err error) {
	status, body := ErrorResponse(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}
