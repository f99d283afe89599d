package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"clinic-server-go/internal/platform/storage"
)

const (
	fieldLogin  = "last_login_at"
	fieldLogout = "last_logout_at"
)

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedis constructs a redis-backed timestamp store for multi-process
// deployments.
func NewRedis(cfg Config) (Store, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "session:times:"
	}
	return &redisStore{
		client: client,
		prefix: prefix,
	}, nil
}

func (s *redisStore) key(clientID uint, group string) string {
	return fmt.Sprintf("%s%s:%d", s.prefix, group, clientID)
}

func (s *redisStore) UpsertTimes(ctx context.Context, clientID uint, group, loginAt, logoutAt string) error {
	fields := make([]any, 0, 4)
	if loginAt != "" {
		fields = append(fields, fieldLogin, loginAt)
	}
	if logoutAt != "" {
		fields = append(fields, fieldLogout, logoutAt)
	}
	if len(fields) == 0 {
		return nil
	}
	return s.client.HSet(ctx, s.key(clientID, group), fields...).Err()
}

func (s *redisStore) ReadTimes(ctx context.Context, clientID uint, group string) (Times, error) {
	values, err := s.client.HGetAll(ctx, s.key(clientID, group)).Result()
	if err != nil {
		return Times{}, err
	}
	times := Times{
		LastLoginAt:  values[fieldLogin],
		LastLogoutAt: values[fieldLogout],
	}
	if times.LastLogoutAt == "" {
		times.LastLogoutAt = storage.LogoutSentinel
	}
	return times, nil
}

func (s *redisStore) Close(context.Context) error {
	return s.client.Close()
}
