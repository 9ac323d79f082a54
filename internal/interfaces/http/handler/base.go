package handler

import (
	"errors"
	"net/http"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/shared"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// RequestIDKey is where the request id middleware stores the id.
const RequestIDKey = "X-Request-ID"

// BaseHandler is embedded by the concrete handlers and supplies the
// response envelope helpers so every endpoint answers in one shape.
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(RequestIDKey)
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// Success sends a 200 with the data wrapped in the success envelope.
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 with the data wrapped in the success envelope.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a bare 204.
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error envelope under the given status code.
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	writeError(c, statusCode, code, message)
}

// ErrorWithCode sends an error envelope, deriving the HTTP status
// from the error code's catalog entry.
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	writeError(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400.
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	writeError(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404.
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	writeError(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Conflict sends a 409 with a caller-chosen code, since several
// charging states map to the same status.
func (h *BaseHandler) Conflict(c *gin.Context, code, message string) {
	writeError(c, http.StatusConflict, code, message)
}

// UnprocessableEntity sends a 422 with a caller-chosen code.
func (h *BaseHandler) UnprocessableEntity(c *gin.Context, code, message string) {
	writeError(c, http.StatusUnprocessableEntity, code, message)
}

// InternalError sends a 500.
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	writeError(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// ValidationError sends a 400 carrying the per-field details.
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		getRequestID(c),
		details,
	))
}

// HandleError maps an error to an HTTP response. Domain errors, even
// wrapped ones, keep their code and message; anything else becomes an
// opaque 500 so internals never leak to clients.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		writeError(c, dto.GetHTTPStatus(code), code, domainErr.Message)
		return
	}

	h.InternalError(c, "An unexpected error occurred")
}
