package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"gopherai-docqa/internal/ai"
	"gopherai-docqa/internal/model"
	"gopherai-docqa/internal/repository"
)

const (
	defaultHistoryTurns     = 5
	defaultHistoryRetention = 50
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageEmpty    = errors.New("message content is empty")
	ErrMessageEnqueue  = errors.New("message enqueue failed")
)

// SessionStore lookups and deletes return repository.ErrNotFound for sessions the user does not own.
type SessionStore interface {
	Create(session *model.Session) error
	ListByUserID(userID uint) ([]model.Session, error)
	GetByIDAndUserID(sessionID, userID uint) (*model.Session, error)
	Touch(sessionID uint, at time.Time) error
	DeleteWithMessages(sessionID, userID uint) error
}

type MessageStore interface {
	ListRecentBySessionID(sessionID uint, limit int) ([]model.Message, error)
}

type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID uint) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, sessionID uint, messages []model.Message) error
	DeleteHistory(ctx context.Context, sessionID uint) error
	MarkDirty(ctx context.Context, sessionID uint) error
	IsDirty(ctx context.Context, sessionID uint) (bool, error)
}

// ChatService runs questions inside persisted chat sessions. Messages are written
// asynchronously through the publisher; the answer itself comes from the QAService.
// The newest retention turns of a session are what GetHistory serves and caches.
type ChatService struct {
	sessionRepo  SessionStore
	messageRepo  MessageStore
	publisher    AsyncMessagePublisher
	historyCache HistoryCache
	qa           *QAService
	historyTurns int
	retention    int
	logger       *zap.Logger
}

type CreateSessionInput struct {
	UserID uint
	Title  string
}

type SendMessageInput struct {
	UserID    uint
	SessionID uint
	Content   string
}

type SendMessageResult struct {
	Messages []model.Message `json:"messages"`
	Answer   *Answer         `json:"answer"`
}

func NewChatService(
	sessionRepo SessionStore,
	messageRepo MessageStore,
	publisher AsyncMessagePublisher,
	historyCache HistoryCache,
	qa *QAService,
	historyTurns int,
	retention int,
	logger *zap.Logger,
) *ChatService {
	if historyTurns <= 0 {
		historyTurns = defaultHistoryTurns
	}
	if retention <= 0 {
		retention = defaultHistoryRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		sessionRepo:  sessionRepo,
		messageRepo:  messageRepo,
		publisher:    publisher,
		historyCache: historyCache,
		qa:           qa,
		historyTurns: historyTurns,
		retention:    retention,
		logger:       logger,
	}
}

func (s *ChatService) CreateSession(input CreateSessionInput) (*model.Session, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = "New Chat"
	}

	session := &model.Session{
		UserID: input.UserID,
		Title:  title,
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ChatService) ListSessions(userID uint) ([]model.Session, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.sessionRepo.ListByUserID(userID)
}

func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID uint) error {
	if userID == 0 || sessionID == 0 {
		return ErrInvalidInput
	}
	if err := s.sessionRepo.DeleteWithMessages(sessionID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	if s.historyCache != nil {
		if err := s.historyCache.DeleteHistory(ctx, sessionID); err != nil {
			s.logger.Warn("drop cached history failed", zap.Uint("session_id", sessionID), zap.Error(err))
		}
	}
	return nil
}

// SendMessage answers content using the session's recent turns as conversation history and
// queues both the question and the answer for persistence.
func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*SendMessageResult, error) {
	if input.UserID == 0 || input.SessionID == 0 {
		return nil, ErrInvalidInput
	}

	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrMessageEmpty
	}

	if err := s.ownedSession(input.SessionID, input.UserID); err != nil {
		return nil, err
	}
	if s.publisher == nil {
		return nil, ErrMessageEnqueue
	}

	recent, err := s.messageRepo.ListRecentBySessionID(input.SessionID, s.historyTurns)
	if err != nil {
		return nil, err
	}

	answer, err := s.qa.Ask(ctx, AskInput{Query: content, History: toChatHistory(recent)})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	userMessage := model.Message{
		SessionID: input.SessionID,
		UserID:    input.UserID,
		Role:      ai.RoleUser,
		Content:   content,
		CreatedAt: now,
	}
	assistantMessage := model.Message{
		SessionID: input.SessionID,
		UserID:    input.UserID,
		Role:      ai.RoleAssistant,
		Content:   answer.Response,
		QueryType: answer.QueryType,
		ToolsUsed: answer.ToolsUsed,
		CreatedAt: now.Add(time.Millisecond),
	}

	if s.historyCache != nil {
		if err := s.historyCache.MarkDirty(ctx, input.SessionID); err != nil {
			s.logger.Warn("mark history dirty failed", zap.Uint("session_id", input.SessionID), zap.Error(err))
		}
		_ = s.historyCache.DeleteHistory(ctx, input.SessionID)
	}
	for _, msg := range []model.Message{userMessage, assistantMessage} {
		if err := s.publisher.Publish(ctx, msg); err != nil {
			s.logger.Error("enqueue message failed", zap.Uint("session_id", input.SessionID), zap.Error(err))
			return nil, ErrMessageEnqueue
		}
	}
	if err := s.sessionRepo.Touch(input.SessionID, assistantMessage.CreatedAt); err != nil {
		s.logger.Warn("touch session failed", zap.Uint("session_id", input.SessionID), zap.Error(err))
	}

	return &SendMessageResult{
		Messages: []model.Message{userMessage, assistantMessage},
		Answer:   answer,
	}, nil
}

// GetHistory returns the newest limit turns of the session. Cache and database both hold the
// same retained window, so a limit above the retention is clamped to it.
func (s *ChatService) GetHistory(ctx context.Context, userID, sessionID uint, limit int) ([]model.Message, error) {
	if userID == 0 || sessionID == 0 {
		return nil, ErrInvalidInput
	}
	if err := s.ownedSession(sessionID, userID); err != nil {
		return nil, err
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, sessionID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, sessionID); cacheErr == nil && hit {
				return trimMessages(cached, limit), nil
			}
		}
	}

	window, err := s.messageRepo.ListRecentBySessionID(sessionID, s.retention)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, sessionID, window)
		}
	}
	return trimMessages(window, limit), nil
}

func (s *ChatService) ownedSession(sessionID, userID uint) error {
	_, err := s.sessionRepo.GetByIDAndUserID(sessionID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}

func trimMessages(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}

func toChatHistory(messages []model.Message) []ai.ChatMessage {
	out := make([]ai.ChatMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role != ai.RoleAssistant {
			role = ai.RoleUser
		}
		out = append(out, ai.ChatMessage{Role: role, Content: m.Content})
	}
	return out
}
