package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"ebook-assistant/internal/logger"
	"ebook-assistant/models"
	"ebook-assistant/utils"
)

const (
	historyKeyPrefix = "history:"
	followUpPrompt   = "Câu hỏi gợi ý:"
)

// HistoryStore holds serialized chat histories by key. Get returns
// (nil, nil) for a missing key.
type HistoryStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryHistoryStore is the HistoryStore used without Redis.
type MemoryHistoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryHistoryStore(ttl time.Duration) *MemoryHistoryStore {
	return &MemoryHistoryStore{ttl: ttl, entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryHistoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if s.ttl > 0 && s.now().After(e.expires) {
		delete(s.entries, key)
		return nil, nil
	}
	return e.data, nil
}

func (s *MemoryHistoryStore) Set(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	s.entries[key] = memoryEntry{data: data, expires: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryHistoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Prune drops expired entries.
func (s *MemoryHistoryStore) Prune() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for key, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

type RedisHistoryStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisHistoryStore(rdb *redis.Client, ttl time.Duration) *RedisHistoryStore {
	return &RedisHistoryStore{rdb: rdb, ttl: ttl}
}

func (s *RedisHistoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

func (s *RedisHistoryStore) Set(ctx context.Context, key string, data []byte) error {
	return s.rdb.Set(ctx, key, data, s.ttl).Err()
}

func (s *RedisHistoryStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// ChatHistoryService keeps the assistant conversation per session.
type ChatHistoryService struct {
	store    HistoryStore
	maxItems int
	fallback string
}

func NewChatHistoryService(store HistoryStore, maxItems int, fallback string) *ChatHistoryService {
	return &ChatHistoryService{store: store, maxItems: maxItems, fallback: fallback}
}

// Get returns the stored history, or an empty one when nothing usable is
// stored. Corrupt data is logged and treated as absent.
func (s *ChatHistoryService) Get(ctx context.Context, sessionID string) (*models.ChatHistory, error) {
	ctx, cancel := utils.WithShortTimeout(ctx)
	defer cancel()

	data, err := s.store.Get(ctx, historyKeyPrefix+sessionID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return models.NewChatHistory(), nil
	}

	h := models.NewChatHistory()
	if err := json.Unmarshal(data, h); err != nil {
		logger.Warn("Discarding malformed chat history", "session_id", sessionID, "error", err)
		return models.NewChatHistory(), nil
	}
	normalize(h)
	return h, nil
}

// Replace overwrites the history with h, keeping only the newest messages.
func (s *ChatHistoryService) Replace(ctx context.Context, sessionID string, h *models.ChatHistory) error {
	normalize(h)
	if s.maxItems > 0 && len(h.Messages) > s.maxItems {
		h.Messages = h.Messages[len(h.Messages)-s.maxItems:]
	}
	h.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(h)
	if err != nil {
		return err
	}
	ctx, cancel := utils.WithShortTimeout(ctx)
	defer cancel()
	return s.store.Set(ctx, historyKeyPrefix+sessionID, data)
}

func (s *ChatHistoryService) Clear(ctx context.Context, sessionID string) error {
	ctx, cancel := utils.WithShortTimeout(ctx)
	defer cancel()
	return s.store.Delete(ctx, historyKeyPrefix+sessionID)
}

// RecordExchange appends a question and its outcome. A nil resp records the
// fallback message. refs fill the heading title and excerpt caches.
func (s *ChatHistoryService) RecordExchange(ctx context.Context, sessionID, query string, resp *models.BackendChatResponse, refs []models.ResolvedReference) (*models.ChatHistory, error) {
	h, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if n := len(h.Messages); n == 0 || h.Messages[n-1].Sender != "user" || h.Messages[n-1].Text != query {
		h.Messages = append(h.Messages, models.ChatMessage{Sender: "user", Text: query})
	}

	if resp == nil {
		h.Messages = append(h.Messages, models.ChatMessage{Sender: "ai", Text: s.fallback})
	} else {
		h.BackendResponse = resp
		h.Messages = append(h.Messages, models.ChatMessage{Sender: "ai", Text: resp.Content})
		if len(resp.FollowUps) > 0 {
			h.Messages = append(h.Messages, models.ChatMessage{
				Sender:    "ai",
				Text:      followUpPrompt,
				FollowUps: resp.FollowUps,
			})
		}
		// Caches describe the latest answer only.
		h.ReferenceTitles = map[string]string{}
		h.CitationTexts = map[string]string{}
		for _, ref := range refs {
			h.ReferenceTitles[ref.HeadingID] = ref.HeadingTitle
			if ref.Excerpt != "" {
				h.CitationTexts[ref.ParagraphID] = ref.Excerpt
			}
		}
	}

	if err := s.Replace(ctx, sessionID, h); err != nil {
		return nil, err
	}
	return h, nil
}

func normalize(h *models.ChatHistory) {
	if h.Messages == nil {
		h.Messages = []models.ChatMessage{}
	}
	if h.ReferenceTitles == nil {
		h.ReferenceTitles = map[string]string{}
	}
	if h.CitationTexts == nil {
		h.CitationTexts = map[string]string{}
	}
}
