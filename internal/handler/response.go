package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/medigo/pharmacy-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// Success writes the standard success envelope
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, NewSuccessResponse(data))
}

// Error maps the error taxonomy onto HTTP statuses. Unrecognized errors
// are reported as 500 without leaking internals.
func Error(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch apperrors.CodeOf(err) {
	case apperrors.ErrNotFound:
		status = http.StatusNotFound
		message = err.Error()
	case apperrors.ErrBadRequest, apperrors.ErrInvalidTransition:
		status = http.StatusBadRequest
		message = err.Error()
	case apperrors.ErrUnauthorized:
		status = http.StatusUnauthorized
		message = "unauthorized"
	case apperrors.ErrDenied:
		status = http.StatusForbidden
		message = err.Error()
	case apperrors.ErrConflict:
		status = http.StatusConflict
		message = err.Error()
	case apperrors.ErrStoreUnavailable:
		status = http.StatusServiceUnavailable
		message = "service temporarily unavailable"
	}

	c.JSON(status, NewErrorResponse(message))
}

// BindError reports a malformed request body or parameter
func BindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
}
