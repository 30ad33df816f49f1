package handler

import (
	"aegis-rag-go/internal/service"
	"aegis-rag-go/pkg/log"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// ChatHandler 负责处理问答请求，包括一次性回答与 WebSocket 流式回答。
type ChatHandler struct {
	chatService         service.ChatService
	conversationService service.ConversationService
	defaultTopK         int
}

// NewChatHandler 创建一个新的 ChatHandler。conversationService 为 nil 时不保存对话历史。
func NewChatHandler(chatService service.ChatService, conversationService service.ConversationService, defaultTopK int) *ChatHandler {
	return &ChatHandler{
		chatService:         chatService,
		conversationService: conversationService,
		defaultTopK:         defaultTopK,
	}
}

// ChatRequest 是一次提问的请求体，也是 WebSocket 中 JSON 消息的格式。
type ChatRequest struct {
	Query     string `json:"query" binding:"required"`
	TopK      int    `json:"topK"`
	SessionID string `json:"sessionId"`
}

// Ask 以批量模式回答问题。
func (h *ChatHandler) Ask(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = h.defaultTopK
	}

	answer := h.chatService.GenerateAnswer(c.Request.Context(), req.Query, topK)
	if req.SessionID != "" {
		h.saveExchange(req.SessionID, req.Query, answer)
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{"answer": answer}})
}

// Handle 处理一个传入的 WebSocket 连接。客户端每发送一条消息（纯文本问题或 ChatRequest JSON），
// 服务端以 {"chunk": "..."} 帧逐段返回回答，最后发送 completion 通知。
func (h *ChatHandler) Handle(c *gin.Context) {
	sessionID := c.Query("session")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立，会话: %s", sessionID)
	if err := writeJSON(conn, gin.H{"type": "session", "sessionId": sessionID}); err != nil {
		return
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			return
		}
		req := h.parseMessage(message)
		if req.Query == "" {
			_ = writeJSON(conn, gin.H{"error": "问题不能为空"})
			continue
		}
		log.Infof("收到 WebSocket 问题, 会话: %s, query: %s", sessionID, req.Query)

		var answer strings.Builder
		for fragment := range h.chatService.StreamAnswer(c.Request.Context(), req.Query, req.TopK) {
			answer.WriteString(fragment)
			if err := writeJSON(conn, gin.H{"chunk": fragment}); err != nil {
				// 客户端已断开：停止迭代即取消上游生成请求
				log.Warnf("向 WebSocket 写入失败，中断流式响应: %v", err)
				return
			}
		}
		if err := sendCompletion(conn); err != nil {
			return
		}
		h.saveExchange(sessionID, req.Query, answer.String())
	}
}

func (h *ChatHandler) parseMessage(message []byte) ChatRequest {
	req := ChatRequest{TopK: h.defaultTopK}
	trimmed := strings.TrimSpace(string(message))
	if strings.HasPrefix(trimmed, "{") {
		var parsed ChatRequest
		if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
			req.Query = strings.TrimSpace(parsed.Query)
			if parsed.TopK > 0 {
				req.TopK = parsed.TopK
			}
			return req
		}
	}
	req.Query = trimmed
	return req
}

func (h *ChatHandler) saveExchange(sessionID, question, answer string) {
	if h.conversationService == nil || answer == "" {
		return
	}
	// 使用后台上下文：即使请求已结束，也保存已生成的回答
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.conversationService.AddExchange(ctx, sessionID, question, answer); err != nil {
		log.Errorf("保存对话历史失败: %v", err)
	}
}

func writeJSON(conn *websocket.Conn, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}

// sendCompletion 发送完成通知 JSON
func sendCompletion(conn *websocket.Conn) error {
	return writeJSON(conn, gin.H{
		"type":      "completion",
		"status":    "finished",
		"message":   "响应已完成",
		"timestamp": time.Now().UnixMilli(),
		"date":      time.Now().Format("2006-01-02T15:04:05"),
	})
}
