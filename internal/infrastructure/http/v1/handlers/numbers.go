package handlers

import (
	"github.com/gin-gonic/gin"

	"protocolo/internal/core/apperror"
	"protocolo/internal/core/id"
	"protocolo/internal/domain/docnumber"
	"protocolo/internal/infrastructure/http/v1/dto"
	"protocolo/internal/infrastructure/metrics"
)

// NumbersHandler handles document number lifecycle operations.
type NumbersHandler struct {
	*BaseHandler
	svc *docnumber.Service
}

// NewNumbersHandler creates a new numbers handler.
func NewNumbersHandler(base *BaseHandler, svc *docnumber.Service) *NumbersHandler {
	return &NumbersHandler{BaseHandler: base, svc: svc}
}

// Reserve atomically allocates a contiguous block of numbers.
// POST /api/v1/numbers/reserve
func (h *NumbersHandler) Reserve(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	var req dto.ReserveNumbersRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if req.Count == 0 {
		req.Count = 1
	}

	seriesID, err := id.Parse(req.SeriesID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid series id").WithDetail("seriesId", req.SeriesID))
		return
	}

	numbers, err := h.svc.Reserve(c.Request.Context(), seriesID, req.Count, actor)
	if err != nil {
		h.Error(c, err)
		return
	}

	metrics.NumbersReserved.Add(float64(len(numbers)))
	h.Created(c, dto.FromDocNumberList(numbers))
}

// Issue confirms a reserved number, attaching document metadata.
// POST /api/v1/numbers/:id/issue
func (h *NumbersHandler) Issue(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	numberID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.IssueNumberRequest
	if !h.BindJSON(c, &req) {
		return
	}

	issued, err := h.svc.Issue(c.Request.Context(), numberID, req.Metadata, actor)
	if err != nil {
		h.Error(c, err)
		return
	}

	metrics.NumbersIssued.Inc()
	h.OK(c, dto.FromDocNumber(issued))
}

// Void permanently invalidates a number. Voided numbers are never reused;
// the gap they leave is documented by the void reason.
// POST /api/v1/numbers/:id/void
func (h *NumbersHandler) Void(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	numberID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.VoidNumberRequest
	if !h.BindJSON(c, &req) {
		return
	}

	voided, err := h.svc.Void(c.Request.Context(), numberID, req.Reason, actor)
	if err != nil {
		h.Error(c, err)
		return
	}

	metrics.NumbersVoided.Inc()
	h.OK(c, dto.FromDocNumber(voided))
}

// Get returns a single number by id.
// GET /api/v1/numbers/:id
func (h *NumbersHandler) Get(c *gin.Context) {
	numberID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	found, err := h.svc.Get(c.Request.Context(), numberID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromDocNumber(found))
}

// List returns numbers filtered by series, year, state and free text.
// GET /api/v1/numbers
func (h *NumbersHandler) List(c *gin.Context) {
	var query dto.ListNumbersQuery
	if !h.BindQuery(c, &query) {
		return
	}
	query.Defaults()

	numbers, total, err := h.svc.List(c.Request.Context(), query.ToFilter(), query.Page, query.Limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OKList(c, dto.FromDocNumberList(numbers), query.Page, query.Limit, total)
}
