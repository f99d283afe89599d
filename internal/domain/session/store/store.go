package store

import (
	"context"

	"gorm.io/gorm"
)

// Times carries the persisted login/logout markers for one account.
type Times struct {
	LastLoginAt  string
	LastLogoutAt string
}

// Store persists session timestamps. Empty marker values leave the stored
// value untouched on upsert.
type Store interface {
	UpsertTimes(ctx context.Context, clientID uint, group, loginAt, logoutAt string) error
	ReadTimes(ctx context.Context, clientID uint, group string) (Times, error)
	Close(ctx context.Context) error
}

// Driver identifiers supported by the session registry.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config describes the store selection parameters.
type Config struct {
	Driver string
	Redis  *RedisConfig
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

// Dependencies captures external handles required by certain drivers.
type Dependencies struct {
	SQLiteDB *gorm.DB
}
