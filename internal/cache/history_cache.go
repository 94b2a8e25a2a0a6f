package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gopherai-docqa/internal/model"
)

// HistoryCache keeps a session's message list in a Store. A short-lived dirty marker is set
// while new messages are still on their way to the database, so readers skip stale entries.
type HistoryCache struct {
	store          Store
	historyTTL     time.Duration
	dirtyMarkerTTL time.Duration
}

func NewHistoryCache(store Store, historyTTL, dirtyMarkerTTL time.Duration) *HistoryCache {
	if historyTTL <= 0 {
		historyTTL = 60 * time.Second
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &HistoryCache{
		store:          store,
		historyTTL:     historyTTL,
		dirtyMarkerTTL: dirtyMarkerTTL,
	}
}

func (c *HistoryCache) GetHistory(ctx context.Context, sessionID uint) ([]model.Message, bool, error) {
	raw, err := c.store.Get(ctx, historyKey(sessionID))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get history failed: %w", err)
	}

	var messages []model.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	return messages, true, nil
}

func (c *HistoryCache) SetHistory(ctx context.Context, sessionID uint, messages []model.Message) error {
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}
	if err := c.store.Set(ctx, historyKey(sessionID), payload, c.historyTTL); err != nil {
		return fmt.Errorf("set history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) DeleteHistory(ctx context.Context, sessionID uint) error {
	if err := c.store.Delete(ctx, historyKey(sessionID)); err != nil {
		return fmt.Errorf("delete history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) MarkDirty(ctx context.Context, sessionID uint) error {
	if err := c.store.Set(ctx, dirtyKey(sessionID), []byte("1"), c.dirtyMarkerTTL); err != nil {
		return fmt.Errorf("set dirty marker failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) IsDirty(ctx context.Context, sessionID uint) (bool, error) {
	dirty, err := c.store.Exists(ctx, dirtyKey(sessionID))
	if err != nil {
		return false, fmt.Errorf("check dirty marker failed: %w", err)
	}
	return dirty, nil
}

func historyKey(sessionID uint) string {
	return fmt.Sprintf("docqa:history:%d", sessionID)
}

func dirtyKey(sessionID uint) string {
	return fmt.Sprintf("docqa:history:dirty:%d", sessionID)
}
