package service

import (
	"aegis-rag-go/internal/model"
	"aegis-rag-go/internal/repository"
	"context"
	"time"
)

// ConversationService 定义了对话历史的业务逻辑接口。
type ConversationService interface {
	GetConversationHistory(ctx context.Context, sessionID string) ([]model.ChatMessage, error)
	// AddExchange 追加一轮问答。
	AddExchange(ctx context.Context, sessionID, question, answer string) error
}

type conversationService struct {
	repo repository.ConversationRepository
	now  func() time.Time
}

// NewConversationService 创建一个新的 ConversationService。
func NewConversationService(repo repository.ConversationRepository) ConversationService {
	return &conversationService{repo: repo, now: time.Now}
}

func (s *conversationService) GetConversationHistory(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	return s.repo.GetConversationHistory(ctx, sessionID)
}

func (s *conversationService) AddExchange(ctx context.Context, sessionID, question, answer string) error {
	history, err := s.repo.GetConversationHistory(ctx, sessionID)
	if err != nil {
		return err
	}
	ts := s.now()
	history = append(history,
		model.ChatMessage{Role: "user", Content: question, Timestamp: ts},
		model.ChatMessage{Role: "assistant", Content: answer, Timestamp: ts},
	)
	return s.repo.UpdateConversationHistory(ctx, sessionID, history)
}
