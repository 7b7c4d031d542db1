package handlers

import (
	"strconv"

	"betaportal/internal/middleware"
	contextutils "betaportal/internal/utils"

	"github.com/gin-gonic/gin"
)

// HandleAppError writes err as a JSON error response and aborts the chain.
// AppErrors keep their message for 4xx statuses; everything else becomes a
// generic 500.
func HandleAppError(c *gin.Context, err error) {
	middleware.AbortWithError(c, err)
}

// HandleValidationError reports a 400 with message as the user-facing text
func HandleValidationError(c *gin.Context, code contextutils.ErrorCode, message string) {
	HandleAppError(c, contextutils.Validation(code, message))
}

// bindJSON decodes the request body into dst and reports a 400 on failure
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return false
	}
	return true
}

// paramID parses a positive integer path parameter. A malformed ID can never
// resolve to a record, so it is reported as notFound.
func paramID(c *gin.Context, name, notFound string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		HandleAppError(c, contextutils.NotFound(notFound))
		return 0, false
	}
	return id, true
}
