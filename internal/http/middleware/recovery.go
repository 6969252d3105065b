package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-risk/internal/http/response"
	"github.com/yungbote/neurobridge-risk/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-risk/internal/platform/logger"
)

// Recovery turns a handler panic into a 500 error envelope.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		if log != nil {
			fields := []interface{}{"panic", rec, "stack", string(debug.Stack())}
			if id := ctxutil.RequestID(c.Request.Context()); id != "" {
				fields = append(fields, "request_id", id)
			}
			log.Error("panic recovered", fields...)
		}
		response.RespondError(c, http.StatusInternalServerError, "internal", fmt.Errorf("internal server error"))
	})
}
