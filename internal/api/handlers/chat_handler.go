package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nikzan/Multimodal-Support-System/internal/services"
	"github.com/nikzan/Multimodal-Support-System/internal/utils"
)

type ChatHandler struct {
	chat services.ChatService
}

func NewChatHandler(chat services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

func (h *ChatHandler) Send(c *gin.Context) {
	var req services.SendMessageInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ChatHandler.Send", "invalid request body", err))
		return
	}

	msg, err := h.chat.SendMessage(c.Request.Context(), c.Param("ticket_id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *ChatHandler) List(c *gin.Context) {
	msgs, err := h.chat.ListMessages(c.Request.Context(), c.Param("ticket_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
