package response

import (
	"errors"
	"net/http"
	"time"

	"trust-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SuccessResponse wraps every successful payload.
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id"`
	Timestamp string      `json:"timestamp"`
}

// ErrorResponse wraps every error payload. Retryable tells the caller
// whether resubmitting the same request can succeed.
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// OK writes a 200 envelope.
func OK(c *gin.Context, data interface{}) {
	success(c, http.StatusOK, data)
}

// Created writes a 201 envelope.
func Created(c *gin.Context, data interface{}) {
	success(c, http.StatusCreated, data)
}

func success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse{
		Data:      data,
		RequestID: requestID(c),
		Timestamp: stamp(),
	})
}

// Error maps an *apperror.AppError to its status and code. Anything
// else is reported as an opaque 500.
func Error(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	body := ErrorResponse{
		ErrorCode: "SYS_000",
		Message:   "Internal server error",
		RequestID: requestID(c),
		Timestamp: stamp(),
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status = appErr.HTTPStatus
		body.ErrorCode = appErr.Code
		body.Message = appErr.Message
		body.Retryable = appErr.Retryable
	}

	c.JSON(status, body)
}

func stamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func requestID(c *gin.Context) string {
	if id, ok := c.Get("request_id"); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return uuid.New().String()
}
