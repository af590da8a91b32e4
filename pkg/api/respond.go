package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/learnhub/admin-plane/pkg/errs"
)

// envelope is the single response shape. Success responses carry data,
// failures carry a short message and the stable error code.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func respondOK(c *gin.Context, data any) {
	respond(c, http.StatusOK, data)
}

func respondCreated(c *gin.Context, data any) {
	respond(c, http.StatusCreated, data)
}

// fail translates an error into the envelope. Only the taxonomy's short
// message reaches the client; wrapped causes stay in the logs.
func fail(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	message := "an internal error occurred"
	var details any

	var e *errs.Error
	if errors.As(err, &e) {
		message = e.Message
		if e.Field != "" {
			details = gin.H{"field": e.Field, "rule": e.Rule}
		}
	}

	// A cancelled request deadline surfaces as TIMEOUT regardless of
	// which layer noticed it first.
	if c.Request.Context().Err() != nil && kind == errs.KindStoreFailed {
		kind = errs.KindTimeout
		message = "request deadline exceeded"
	}

	c.JSON(errs.HTTPStatus(kind), envelope{
		Success: false,
		Message: message,
		Error:   string(kind),
		Details: details,
	})
}

// abort is fail plus stopping the middleware chain.
func abort(c *gin.Context, err error) {
	fail(c, err)
	c.Abort()
}
