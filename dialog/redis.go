package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "relaybot:dialog:"

// RedisStore keeps sessions in Redis, relying on key expiry for the dialog timeout
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(userID int64) string {
	return sessionKeyPrefix + strconv.FormatInt(userID, 10)
}

func (r *RedisStore) Get(ctx context.Context, userID int64) (*Session, error) {
	data, err := r.client.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dialog session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode dialog session: %w", err)
	}

	return &session, nil
}

func (r *RedisStore) Save(ctx context.Context, session *Session) error {
	s := *session
	s.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode dialog session: %w", err)
	}

	if err := r.client.Set(ctx, sessionKey(s.UserID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save dialog session: %w", err)
	}

	return nil
}

func (r *RedisStore) Delete(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete dialog session: %w", err)
	}
	return nil
}
