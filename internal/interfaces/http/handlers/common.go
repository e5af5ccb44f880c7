// Package handlers implements the HTTP endpoints of the BlindDock API.
package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/BlindDock/internal/interfaces/http/middleware"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// respondError maps err to its HTTP status.  Server-side failures are masked
// with the code's default message; the full error is attached to the gin
// context for the request log.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	if code != errors.CodeUnknown {
		status = errors.HTTPStatusForCode(code)
	} else {
		code = errors.ErrCodeInternal
	}

	resp := ErrorResponse{Code: string(code), RequestID: middleware.GetRequestID(c)}
	if status >= http.StatusInternalServerError {
		resp.Message = errors.DefaultMessageForCode(code)
	} else {
		resp.Message = err.Error()
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			resp.Message = appErr.Message
			resp.Detail = appErr.Detail
		}
	}
	c.AbortWithStatusJSON(status, resp)
}

//Personal.AI order the ending
