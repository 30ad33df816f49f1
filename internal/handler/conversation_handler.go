package handler

import (
	"aegis-rag-go/internal/service"
	"aegis-rag-go/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 负责处理与对话历史相关的请求。
type ConversationHandler struct {
	conversationService service.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(conversationService service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

// GetConversation 返回指定会话的对话历史。
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	sessionID := c.Param("sessionId")
	history, err := h.conversationService.GetConversationHistory(c.Request.Context(), sessionID)
	if err != nil {
		log.Errorf("获取对话历史失败, session: %s, error: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "获取对话历史失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": history})
}
