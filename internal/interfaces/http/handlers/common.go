// Package handlers contains the gin handlers for the public API surface.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/folira/folira/pkg/errors"
)

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondError maps an AppError code onto its HTTP status; unknown errors
// become a 500 with the raw message suppressed.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := code.HTTPStatus()

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	c.JSON(status, ErrorResponse{Code: code.String(), Message: message})
}
