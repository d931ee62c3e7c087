package infrastructure

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisTokenStore guarda os tokens de cada usuário no set "<uid>:fcm".
type RedisTokenStore struct {
	client redis.Cmdable
}

func NewRedisTokenStore(client redis.Cmdable) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func tokenKey(userID string) string {
	return fmt.Sprintf("%s:fcm", userID)
}

func (s *RedisTokenStore) AddToken(ctx context.Context, userID, token string) error {
	if err := s.client.SAdd(ctx, tokenKey(userID), token).Err(); err != nil {
		return fmt.Errorf("save push token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Tokens(ctx context.Context, userID string) ([]string, error) {
	tokens, err := s.client.SMembers(ctx, tokenKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load push tokens: %w", err)
	}
	sort.Strings(tokens)
	return tokens, nil
}

func (s *RedisTokenStore) RemoveTokens(ctx context.Context, userID string, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}
	members := make([]interface{}, len(tokens))
	for i, token := range tokens {
		members[i] = token
	}
	if err := s.client.SRem(ctx, tokenKey(userID), members...).Err(); err != nil {
		return fmt.Errorf("remove push tokens: %w", err)
	}
	return nil
}

type InMemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]map[string]struct{}
}

func NewInMemoryTokenStore() *InMemoryTokenStore {
	return &InMemoryTokenStore{tokens: make(map[string]map[string]struct{})}
}

func (s *InMemoryTokenStore) AddToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.tokens[userID]
	if !ok {
		set = make(map[string]struct{})
		s.tokens[userID] = set
	}
	set[token] = struct{}{}
	return nil
}

func (s *InMemoryTokenStore) Tokens(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := make([]string, 0, len(s.tokens[userID]))
	for token := range s.tokens[userID] {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens, nil
}

func (s *InMemoryTokenStore) RemoveTokens(_ context.Context, userID string, tokens ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, token := range tokens {
		delete(s.tokens[userID], token)
	}
	return nil
}
