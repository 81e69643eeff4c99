package model

// ChatMessage 代表存储在 Redis 中的单条对话消息。
type ChatMessage struct {
	Role      string    `json:"role"` // "user" 或 "assistant"
	Content   string    `json:"content"`
	Timestamp LocalTime `json:"timestamp"`
}
