package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

// SessionRepository persists login sessions.
type SessionRepository interface {
	Create(ctx context.Context, userID int64, ttl time.Duration) (*domain.Session, error)
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
}

type redisSessionRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionRepository keeps session id -> user id mappings in Redis
// with a TTL.
func NewRedisSessionRepository(client *redis.Client, prefix string) SessionRepository {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "ticketdesk"
	}
	return &redisSessionRepository{client: client, prefix: prefix}
}

func (r *redisSessionRepository) key(id string) string {
	return r.prefix + ":session:" + id
}

func (r *redisSessionRepository) Create(ctx context.Context, userID int64, ttl time.Duration) (*domain.Session, error) {
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := r.client.Set(ctx, r.key(session.ID), strconv.FormatInt(userID, 10), ttl).Err(); err != nil {
		return nil, err
	}
	return session, nil
}

func (r *redisSessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	pipe := r.client.Pipeline()
	getCmd := pipe.Get(ctx, r.key(id))
	ttlCmd := pipe.PTTL(ctx, r.key(id))
	if _, err := pipe.Exec(ctx); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	userID, err := strconv.ParseInt(getCmd.Val(), 10, 64)
	if err != nil {
		return nil, err
	}
	session := &domain.Session{ID: id, UserID: userID}
	if ttl := ttlCmd.Val(); ttl > 0 {
		session.ExpiresAt = time.Now().Add(ttl)
	}
	return session, nil
}

func (r *redisSessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}
