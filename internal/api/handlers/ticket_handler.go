package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nikzan/Multimodal-Support-System/internal/services"
	"github.com/nikzan/Multimodal-Support-System/internal/utils"
)

type TicketHandler struct {
	tickets services.TicketService
	bucket  services.BucketService
}

func NewTicketHandler(tickets services.TicketService, bucket services.BucketService) *TicketHandler {
	return &TicketHandler{tickets: tickets, bucket: bucket}
}

// Create is the widget intake endpoint. The tenant is resolved from the api
// key in the body, not from middleware, so a bare widget embed works without
// extra headers.
func (h *TicketHandler) Create(c *gin.Context) {
	var req services.CreateTicketInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "TicketHandler.Create", "invalid request body", err))
		return
	}

	t, err := h.tickets.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *TicketHandler) Get(c *gin.Context) {
	t, err := h.tickets.Get(c.Request.Context(), c.Param("ticket_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TicketHandler) ActiveBySession(c *gin.Context) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "TicketHandler.ActiveBySession", "missing session_id", nil))
		return
	}

	t, err := h.tickets.ActiveBySession(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TicketHandler) List(c *gin.Context) {
	tenantID, ok := requireTenantID(c)
	if !ok {
		return
	}

	limit, offset := pagination(c)
	rows, total, err := h.tickets.ListByTenant(c.Request.Context(), tenantID, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": rows, "total": total})
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *TicketHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "TicketHandler.UpdateStatus", "invalid request body", err))
		return
	}

	t, err := h.tickets.UpdateStatus(c.Request.Context(), c.Param("ticket_id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TicketHandler) Close(c *gin.Context) {
	t, err := h.tickets.Close(c.Request.Context(), c.Param("ticket_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TicketHandler) Delete(c *gin.Context) {
	if err := h.tickets.Delete(c.Request.Context(), c.Param("ticket_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Suggestion regenerates the suggested answer from the current accumulator
// synchronously, for dashboards that want a fresh answer on demand.
func (h *TicketHandler) Suggestion(c *gin.Context) {
	sugg, err := h.bucket.Regenerate(c.Request.Context(), c.Param("ticket_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sugg)
}

func (h *TicketHandler) SuggestionHistory(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	recs, err := h.bucket.History(c.Request.Context(), c.Param("ticket_id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": recs})
}
