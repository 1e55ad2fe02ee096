package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nikzan/Multimodal-Support-System/internal/services"
	"github.com/nikzan/Multimodal-Support-System/internal/utils"
)

type TenantHandler struct {
	tenants services.TenantService
}

func NewTenantHandler(tenants services.TenantService) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

func (h *TenantHandler) Create(c *gin.Context) {
	var req services.CreateTenantInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "TenantHandler.Create", "invalid request body", err))
		return
	}

	t, err := h.tenants.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *TenantHandler) Get(c *gin.Context) {
	t, err := h.tenants.Get(c.Request.Context(), c.Param("tenant_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TenantHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	rows, err := h.tenants.List(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenants": rows})
}
