// File: services/intelligence/contextStore.go
package ai

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"campuspark/models"

	"github.com/go-redis/redis/v8"
)

const parkingContextPrefix = "parking:ctx:"

// ContextStore holds one ConversationContext per session. A session that was
// never written reads as the zero context.
type ContextStore interface {
	Get(ctx context.Context, sessionID string) (*models.ConversationContext, error)
	Update(ctx context.Context, sessionID string, patch models.ContextPatch) (*models.ConversationContext, error)
	Clear(ctx context.Context, sessionID string) error
}

type RedisContextStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisContextStore(client *redis.Client, ttl time.Duration) *RedisContextStore {
	return &RedisContextStore{client: client, ttl: ttl}
}

func (s *RedisContextStore) Get(ctx context.Context, sessionID string) (*models.ConversationContext, error) {
	key := parkingContextPrefix + sessionID
	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return &models.ConversationContext{}, nil
	}
	if err != nil {
		return nil, err
	}
	var convCtx models.ConversationContext
	if err := json.Unmarshal([]byte(data), &convCtx); err != nil {
		return nil, err
	}
	return &convCtx, nil
}

// Update applies the patch inside a WATCH transaction so concurrent writers
// of the same session never lose each other's fields.
func (s *RedisContextStore) Update(ctx context.Context, sessionID string, patch models.ContextPatch) (*models.ConversationContext, error) {
	key := parkingContextPrefix + sessionID
	var updated models.ConversationContext

	txf := func(tx *redis.Tx) error {
		updated = models.ConversationContext{}
		data, err := tx.Get(ctx, key).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if err == nil {
			if err := json.Unmarshal([]byte(data), &updated); err != nil {
				return err
			}
		}
		patch.Apply(&updated)
		b, err := json.Marshal(&updated)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < 3; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &updated, nil
	}
	return nil, redis.TxFailedErr
}

func (s *RedisContextStore) Clear(ctx context.Context, sessionID string) error {
	key := parkingContextPrefix + sessionID
	return s.client.Del(ctx, key).Err()
}

// MemoryContextStore is a process-local ContextStore used when Redis is not
// configured and in tests.
type MemoryContextStore struct {
	mu       sync.Mutex
	contexts map[string]models.ConversationContext
}

func NewMemoryContextStore() *MemoryContextStore {
	return &MemoryContextStore{contexts: make(map[string]models.ConversationContext)}
}

func (s *MemoryContextStore) Get(_ context.Context, sessionID string) (*models.ConversationContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.contexts[sessionID]
	return &c, nil
}

func (s *MemoryContextStore) Update(_ context.Context, sessionID string, patch models.ContextPatch) (*models.ConversationContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.contexts[sessionID]
	patch.Apply(&c)
	s.contexts[sessionID] = c
	return &c, nil
}

func (s *MemoryContextStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, sessionID)
	return nil
}
