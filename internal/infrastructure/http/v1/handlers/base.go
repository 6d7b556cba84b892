package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"protocolo/internal/core/apperror"
	appctx "protocolo/internal/core/context"
	"protocolo/internal/core/id"
	"protocolo/internal/infrastructure/http/v1/dto"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindQuery binds and validates query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// ParseID parses a UUID path parameter.
func (h *BaseHandler) ParseID(c *gin.Context, param string) (id.ID, bool) {
	parsed, err := id.Parse(c.Param(param))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id").WithDetail(param, c.Param(param)))
		return id.Nil(), false
	}
	return parsed, true
}

// Actor extracts the caller identity placed on the context by middleware.
// Mutating endpoints must refuse anonymous requests so that every state
// change records who made it.
func (h *BaseHandler) Actor(c *gin.Context) (string, bool) {
	actorID := appctx.GetActorID(c.Request.Context())
	if actorID == "" {
		h.Error(c, apperror.NewValidation("actor identity required").
			WithDetail("header", "X-Actor-Id"))
		return "", false
	}
	return actorID, true
}

// Error processes error and sends appropriate response.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	h.HandleError(c, err)
}

// HandleError registers error on Gin context and aborts request.
// Actual JSON response is produced by middleware.ErrorHandler (single source of truth).
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Created sends 201 response with data.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.DataResponse{Data: data})
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.DataResponse{Data: data})
}

// OKList sends 200 response with data and pagination metadata.
func (h *BaseHandler) OKList(c *gin.Context, data any, page, limit int, total int64) {
	c.JSON(http.StatusOK, dto.ListResponse{
		Data:       data,
		Pagination: dto.NewPaginationResponse(page, limit, total),
	})
}

// NoContent sends 204 response.
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Success sends success response.
func (h *BaseHandler) Success(c *gin.Context, message string) {
	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true, Message: message})
}
