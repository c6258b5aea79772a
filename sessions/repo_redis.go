package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/metrorail/fleet-console/internal/errors"
)

const redisKeyPrefix = "session:"

// takeFlashScript reads and clears both flash messages server-side, so the
// read-and-clear is atomic even with concurrent requests on one session.
// TTL of the key is preserved.
var takeFlashScript = redis.NewScript(`
local value = redis.call('GET', KEYS[1])
if not value then
	return false
end
local session = cjson.decode(value)
local errorMsg = session['error'] or ''
local successMsg = session['success'] or ''
session['error'] = nil
session['success'] = nil
redis.call('SET', KEYS[1], cjson.encode(session), 'KEEPTTL')
return {errorMsg, successMsg}
`)

// RedisRepo stores sessions as JSON values with a native Redis TTL, for
// deployments where the console runs more than one replica.
type RedisRepo struct {
	client *redis.Client
}

// NewRedisRepo creates a Redis-backed session repository and verifies the
// connection.
func NewRedisRepo(ctx context.Context, addr string) (*RedisRepo, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisRepo{client: client}, nil
}

func (r *RedisRepo) Create(ctx context.Context, session Session, ttl time.Duration) (string, error) {
	id := uuid.NewString()
	now := time.Now()
	session.CreatedAt = now
	session.ExpiresAt = now.Add(ttl)

	if err := r.set(ctx, id, session, ttl); err != nil {
		return "", err
	}
	return id, nil
}

func (r *RedisRepo) Get(ctx context.Context, id string) (Session, error) {
	value, err := r.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return Session{}, errors.ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("redis get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(value, &session); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

func (r *RedisRepo) Upsert(ctx context.Context, id string, session Session, ttl time.Duration) error {
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.ExpiresAt = now.Add(ttl)
	return r.set(ctx, id, session, ttl)
}

func (r *RedisRepo) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

func (r *RedisRepo) TakeFlash(ctx context.Context, id string) (string, string, error) {
	result, err := takeFlashScript.Run(ctx, r.client, []string{redisKeyPrefix + id}).Result()
	if err == redis.Nil {
		return "", "", errors.ErrSessionNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("redis take flash: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return "", "", fmt.Errorf("redis take flash: unexpected reply %T", result)
	}
	errorMsg, _ := values[0].(string)
	successMsg, _ := values[1].(string)
	return errorMsg, successMsg, nil
}

func (r *RedisRepo) set(ctx context.Context, id string, session Session, ttl time.Duration) error {
	value, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+id, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}
