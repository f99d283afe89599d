package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"clinic-server-go/internal/platform/storage"
)

type sqliteStore struct {
	accounts *storage.AccountRepository
}

// NewSQLite builds a timestamp store backed by the relational session table.
func NewSQLite(db *gorm.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store requires database handle")
	}
	return &sqliteStore{
		accounts: storage.NewAccountRepository(db),
	}, nil
}

func (s *sqliteStore) UpsertTimes(ctx context.Context, clientID uint, group, loginAt, logoutAt string) error {
	return s.accounts.UpsertSessionTimes(ctx, clientID, group, loginAt, logoutAt)
}

func (s *sqliteStore) ReadTimes(ctx context.Context, clientID uint, group string) (Times, error) {
	times, err := s.accounts.ReadSessionTimes(ctx, clientID, group)
	if err != nil {
		return Times{}, err
	}
	return Times{
		LastLoginAt:  times.LastLoginAt,
		LastLogoutAt: times.LastLogoutAt,
	}, nil
}

func (s *sqliteStore) Close(context.Context) error {
	return nil
}
