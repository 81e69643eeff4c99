package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"lexsmart-go/internal/service"
	"lexsmart-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // 允许所有来源
		},
	}
)

// ChatHandler 负责处理 WebSocket 流式问答连接。
type ChatHandler struct {
	chatService service.ChatService
	// 每连接停止标志
	stopFlags sync.Map // key: session pointer string, value: bool
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Handle 处理一个传入的 WebSocket 连接。
// 会话标识取 session 查询参数，缺省时生成一个随机会话。
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

	log.Infof("WebSocket 连接已建立, session: %s", sessionID)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}
		log.Infof("收到 WebSocket 消息: %s", string(message))

		// JSON 停止指令: {"type":"stop"}
		if len(message) > 0 && message[0] == '{' {
			var ctrl map[string]interface{}
			if err := json.Unmarshal(message, &ctrl); err == nil {
				if t, ok := ctrl["type"].(string); ok && t == "stop" {
					key := sessionKey(conn)
					h.stopFlags.Store(key, true)
					resp := map[string]interface{}{
						"type":      "stop",
						"message":   "响应已停止",
						"timestamp": time.Now().UnixMilli(),
						"date":      time.Now().Format("2006-01-02T15:04:05"),
					}
					b, _ := json.Marshal(resp)
					_ = conn.WriteMessage(websocket.TextMessage, b)
					continue
				}
			}
		}

		shouldStop := func() bool {
			v, ok := h.stopFlags.Load(sessionKey(conn))
			return ok && v.(bool)
		}
		// 清除旧标志
		h.stopFlags.Delete(sessionKey(conn))

		err = h.chatService.StreamResponse(c.Request.Context(), string(message), sessionID, conn, shouldStop)
		if err != nil {
			log.Errorf("处理流式响应失败: %v", err)
			errResp := map[string]string{"error": "问答服务暂时不可用，请稍后重试"}
			b, _ := json.Marshal(errResp)
			conn.WriteMessage(websocket.TextMessage, b)
			// 错误时也发送 completion 通知
			resp := map[string]interface{}{
				"type":      "completion",
				"status":    "finished",
				"message":   "响应已完成",
				"timestamp": time.Now().UnixMilli(),
				"date":      time.Now().Format("2006-01-02T15:04:05"),
			}
			cb, _ := json.Marshal(resp)
			_ = conn.WriteMessage(websocket.TextMessage, cb)
			break
		}
	}
}

func sessionKey(conn *websocket.Conn) string {
	return fmt.Sprintf("%p", conn)
}
