package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nikzan/Multimodal-Support-System/internal/services"
	"github.com/nikzan/Multimodal-Support-System/internal/utils"
)

type KnowledgeHandler struct {
	knowledge services.KnowledgeService
}

func NewKnowledgeHandler(knowledge services.KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{knowledge: knowledge}
}

func (h *KnowledgeHandler) Create(c *gin.Context) {
	tenantID, ok := requireTenantID(c)
	if !ok {
		return
	}

	var req services.KnowledgeEntryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "KnowledgeHandler.Create", "invalid request body", err))
		return
	}

	entry, err := h.knowledge.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *KnowledgeHandler) Update(c *gin.Context) {
	tenantID, ok := requireTenantID(c)
	if !ok {
		return
	}

	var req services.KnowledgeEntryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "KnowledgeHandler.Update", "invalid request body", err))
		return
	}

	entry, err := h.knowledge.Update(c.Request.Context(), tenantID, c.Param("entry_id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *KnowledgeHandler) Get(c *gin.Context) {
	tenantID, ok := requireTenantID(c)
	if !ok {
		return
	}

	entry, err := h.knowledge.Get(c.Request.Context(), tenantID, c.Param("entry_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *KnowledgeHandler) Delete(c *gin.Context) {
	tenantID, ok := requireTenantID(c)
	if !ok {
		return
	}

	if err := h.knowledge.Delete(c.Request.Context(), tenantID, c.Param("entry_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *KnowledgeHandler) List(c *gin.Context) {
	tenantID, ok := requireTenantID(c)
	if !ok {
		return
	}

	limit, offset := pagination(c)

	// ?q= switches to keyword search over title and content.
	if q := c.Query("q"); q != "" {
		rows, err := h.knowledge.Search(c.Request.Context(), tenantID, q, limit, offset)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"entries": rows})
		return
	}

	rows, total, err := h.knowledge.List(c.Request.Context(), tenantID, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": rows, "total": total})
}
