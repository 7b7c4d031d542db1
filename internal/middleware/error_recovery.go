package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"betaportal/internal/observability"
	contextutils "betaportal/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorRecoveryMiddleware recovers handler panics, logs them with the stack
// and answers with the generic 500 body
func ErrorRecoveryMiddleware(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			// a client hang-up on a streamed response is not a server fault
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}

			panicErr, ok := recovered.(error)
			if !ok {
				panicErr = fmt.Errorf("panic: %v", recovered)
			}
			appErr := contextutils.NewAppErrorWithCause(
				contextutils.ErrorCodeInternalError,
				contextutils.SeverityFatal,
				"Internal server error",
				"A panic occurred while processing the request",
				panicErr,
			)

			fields := map[string]interface{}{
				"http.method": c.Request.Method,
				"http.path":   c.Request.URL.Path,
				"stack":       string(debug.Stack()),
			}
			if logger != nil {
				logger.Error(c.Request.Context(), "Panic recovered", panicErr, fields)
			}

			AbortWithError(c, appErr)
		}()

		c.Next()
	}
}
