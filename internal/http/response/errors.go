package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-risk/internal/domain/grades"
)

// StatusFor maps an engine error code to an HTTP status.
func StatusFor(code grades.ErrorCode) int {
	switch code {
	case grades.CodeUnknownStudent, grades.CodeUnknownModule:
		return http.StatusNotFound
	case grades.CodeInvalidInput:
		return http.StatusBadRequest
	case grades.CodeDataLoad, grades.CodeModelUnavailable, grades.CodeStaleAggregates:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondErr writes err using its coded status. Cancelled requests get 499 and
// deadline overruns 504.
func RespondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		RespondError(c, 499, "canceled", err)
		return
	case errors.Is(err, context.DeadlineExceeded):
		RespondError(c, http.StatusGatewayTimeout, "timeout", err)
		return
	}
	code := grades.CodeOf(err)
	status := StatusFor(code)
	if status >= 500 {
		_ = c.Error(err)
	}
	RespondError(c, status, string(code), err)
}
