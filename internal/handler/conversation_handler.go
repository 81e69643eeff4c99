package handler

import (
	"net/http"

	"lexsmart-go/internal/service"
	"lexsmart-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 负责处理对话历史相关的 API 请求。
type ConversationHandler struct {
	conversationService service.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler 实例。
func NewConversationHandler(conversationService service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

// GetHistory 返回指定会话的对话历史。
func (h *ConversationHandler) GetHistory(c *gin.Context) {
	sessionID := c.Query("session")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "缺少 session 参数", "data": nil})
		return
	}

	history, err := h.conversationService.GetConversationHistory(c.Request.Context(), sessionID)
	if err != nil {
		log.Errorf("GetHistory: 获取对话历史失败, session: %s, error: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "获取对话历史失败", "data": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": history})
}
