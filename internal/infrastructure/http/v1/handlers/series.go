package handlers

import (
	"github.com/gin-gonic/gin"

	"protocolo/internal/domain/series"
	"protocolo/internal/infrastructure/http/v1/dto"
)

// SeriesHandler handles numbering series operations.
type SeriesHandler struct {
	*BaseHandler
	svc *series.Service
}

// NewSeriesHandler creates a new series handler.
func NewSeriesHandler(base *BaseHandler, svc *series.Service) *SeriesHandler {
	return &SeriesHandler{BaseHandler: base, svc: svc}
}

// Create handles series creation.
// POST /api/v1/series
func (h *SeriesHandler) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	var req dto.CreateSeriesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	created, err := h.svc.Create(c.Request.Context(), req.ToInput(), actor)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromSeries(created))
}

// List returns all active series with their next-number previews.
// GET /api/v1/series
func (h *SeriesHandler) List(c *gin.Context) {
	list, err := h.svc.ListActive(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSeriesWithNextList(list))
}

// Get returns a single series with its next-number preview.
// GET /api/v1/series/:id
func (h *SeriesHandler) Get(c *gin.Context) {
	seriesID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	found, err := h.svc.Get(c.Request.Context(), seriesID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSeriesWithNext(found))
}

// Update applies a partial update to a series.
// Already-reserved numbers keep the text rendered at reservation time.
// PATCH /api/v1/series/:id
func (h *SeriesHandler) Update(c *gin.Context) {
	if _, ok := h.Actor(c); !ok {
		return
	}

	seriesID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateSeriesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	updated, err := h.svc.Update(c.Request.Context(), seriesID, req.ToPatch())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSeries(updated))
}

// Deactivate soft-deletes a series; its numbers remain queryable.
// DELETE /api/v1/series/:id
func (h *SeriesHandler) Deactivate(c *gin.Context) {
	if _, ok := h.Actor(c); !ok {
		return
	}

	seriesID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Deactivate(c.Request.Context(), seriesID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}
