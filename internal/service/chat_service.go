package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"lexsmart-go/internal/config"
	"lexsmart-go/internal/model"
	"lexsmart-go/internal/repository"
	"lexsmart-go/pkg/llm"
	"lexsmart-go/pkg/log"

	"github.com/gorilla/websocket"
)

// ChatService 定义了流式问答操作的接口。
type ChatService interface {
	StreamResponse(ctx context.Context, query, sessionID string, ws *websocket.Conn, shouldStop func() bool) error
}

type chatService struct {
	queryService     QueryService
	llmClient        llm.Client
	conversationRepo repository.ConversationRepository
	promptCfg        config.LLMPromptConfig
	vectorCfg        config.VectorIndexConfig
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(
	queryService QueryService,
	llmClient llm.Client,
	conversationRepo repository.ConversationRepository,
	promptCfg config.LLMPromptConfig,
	vectorCfg config.VectorIndexConfig,
) ChatService {
	return &chatService{
		queryService:     queryService,
		llmClient:        llmClient,
		conversationRepo: conversationRepo,
		promptCfg:        promptCfg,
		vectorCfg:        vectorCfg,
	}
}

// StreamResponse 协调检索增强流程并流式传输模型响应。
// 历史记录按会话存取，保存的是用户的原始问题而非增强查询。
func (s *chatService) StreamResponse(ctx context.Context, query, sessionID string, ws *websocket.Conn, shouldStop func() bool) error {
	// 1. 检索上下文并拼接增强查询
	augmented, err := s.queryService.RetrieveContext(ctx, query, s.vectorCfg.IndexName, s.vectorCfg.Namespace)
	if err != nil {
		return fmt.Errorf("failed to retrieve context: %w", err)
	}

	// 2. 构建 system 消息与历史
	history, err := s.loadHistory(ctx, sessionID)
	if err != nil {
		log.Errorf("Failed to load conversation history: %v", err)
		history = []model.ChatMessage{}
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: buildPrimer(s.promptCfg.TargetLanguage)})
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: augmented})

	// 拦截 websocket writer 以捕获完整答案，并包装为 JSON 分块
	answerBuilder := &strings.Builder{}
	interceptor := &wsWriterInterceptor{conn: ws, writer: answerBuilder, shouldStop: shouldStop}

	// 3. 流式调用模型
	if err := s.llmClient.StreamChatMessages(ctx, messages, nil, interceptor); err != nil {
		return err
	}

	// 4. 发送完成通知，并将对话保存到 Redis
	sendCompletion(ws)
	fullAnswer := answerBuilder.String()
	if len(fullAnswer) > 0 {
		// 使用后台上下文，即使原始请求被取消也要保存成功生成的答案
		if err := s.addMessageToConversation(context.Background(), sessionID, query, fullAnswer); err != nil {
			// 只记录错误，不返回给客户端，流式响应已经成功
			log.Errorf("Failed to save conversation history: %v", err)
		}
	}

	return nil
}

func (s *chatService) loadHistory(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	convID, err := s.conversationRepo.GetOrCreateConversationID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.conversationRepo.GetConversationHistory(ctx, convID)
}

// addMessageToConversation 是一个用于管理 Redis 中对话历史的辅助函数。
func (s *chatService) addMessageToConversation(ctx context.Context, sessionID, question, answer string) error {
	conversationID, err := s.conversationRepo.GetOrCreateConversationID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to get or create conversation ID: %w", err)
	}

	history, err := s.conversationRepo.GetConversationHistory(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("failed to get conversation history: %w", err)
	}

	history = append(history, model.ChatMessage{
		Role:      "user",
		Content:   question,
		Timestamp: model.LocalTime(time.Now()),
	})
	history = append(history, model.ChatMessage{
		Role:      "assistant",
		Content:   answer,
		Timestamp: model.LocalTime(time.Now()),
	})

	return s.conversationRepo.UpdateConversationHistory(ctx, conversationID, history)
}

// wsWriterInterceptor 是对 websocket.Conn 的封装，用于捕获写入的消息。
type wsWriterInterceptor struct {
	conn       *websocket.Conn
	writer     *strings.Builder
	shouldStop func() bool
}

// WriteMessage 满足 llm.MessageWriter 接口。
func (w *wsWriterInterceptor) WriteMessage(messageType int, data []byte) error {
	if w.shouldStop != nil && w.shouldStop() {
		// 停止标志生效：跳过下发
		return nil
	}
	w.writer.Write(data)
	// 将原始分块包装成 {"chunk":"..."}
	payload := map[string]string{"chunk": string(data)}
	b, _ := json.Marshal(payload)
	return w.conn.WriteMessage(messageType, b)
}

// sendCompletion 发送完成通知 JSON
func sendCompletion(ws *websocket.Conn) {
	notif := map[string]interface{}{
		"type":      "completion",
		"status":    "finished",
		"message":   "响应已完成",
		"timestamp": time.Now().UnixMilli(),
		"date":      time.Now().Format("2006-01-02T15:04:05"),
	}
	b, _ := json.Marshal(notif)
	_ = ws.WriteMessage(websocket.TextMessage, b)
}
