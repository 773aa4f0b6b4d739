package convo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Session is the per-user conversation state plus the data collected so
// far in the active flow.
type Session struct {
	TgID      int64             `json:"tg_id"`
	State     State             `json:"state"`
	Data      map[string]string `json:"data,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Store persists sessions. Get returns an idle session for unknown
// users rather than an error; abandoned sessions expire back to idle.
type Store interface {
	Get(ctx context.Context, tgID int64) (Session, error)
	Put(ctx context.Context, s Session) error
	Delete(ctx context.Context, tgID int64) error
}

// RedisStore keeps sessions as JSON values with a TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func sessionKey(tgID int64) string {
	return "convo:session:" + strconv.FormatInt(tgID, 10)
}

func (s *RedisStore) Get(ctx context.Context, tgID int64) (Session, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(tgID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{TgID: tgID, State: StateIdle}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("loading session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		// Corrupt session data resets the conversation.
		return Session{TgID: tgID, State: StateIdle}, nil
	}
	return sess, nil
}

func (s *RedisStore) Put(ctx context.Context, sess Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, sessionKey(sess.TgID), raw, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, tgID int64) error {
	return s.rdb.Del(ctx, sessionKey(tgID)).Err()
}

// MemoryStore implements Store for tests.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[int64]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]Session)}
}

func (s *MemoryStore) Get(_ context.Context, tgID int64) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[tgID]
	if !ok {
		return Session{TgID: tgID, State: StateIdle}, nil
	}
	return sess, nil
}

func (s *MemoryStore) Put(_ context.Context, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.TgID] = sess
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, tgID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tgID)
	return nil
}
