package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	platformerrors "clinic-server-go/internal/platform/errors"
)

// LogoutSentinel is the last-logout value for accounts that never logged out.
// Tokens issued before any logout embed it, keeping them valid until the
// first real logout advances the marker.
const LogoutSentinel = "first_login"

// Credential is the stored verification material for one account.
type Credential struct {
	ID           uint
	PasswordHash string
	Active       bool
}

// SessionTimes carries the persisted login/logout markers.
type SessionTimes struct {
	LastLoginAt  string
	LastLogoutAt string
}

// AccountRepository implements the account and session-timestamp half of the
// database collaborator contract.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindIDByUsername resolves a username within a group to its numeric id.
func (r *AccountRepository) FindIDByUsername(ctx context.Context, group, username string) (uint, error) {
	var account Account
	err := r.db.WithContext(ctx).
		Select("id").
		Where("`group` = ? AND username = ?", group, username).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, platformerrors.New(platformerrors.KindNotFound, "account.find_id",
			fmt.Sprintf("no account %q in group %q", username, group))
	}
	if err != nil {
		return 0, platformerrors.Wrap(platformerrors.KindStorage, "account.find_id",
			"failed to query account", err)
	}
	return account.ID, nil
}

// CredentialByUsername returns the password hash and active flag for login.
func (r *AccountRepository) CredentialByUsername(ctx context.Context, group, username string) (Credential, error) {
	var account Account
	err := r.db.WithContext(ctx).
		Where("`group` = ? AND username = ?", group, username).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Credential{}, platformerrors.New(platformerrors.KindNotFound, "account.credential",
			fmt.Sprintf("no account %q in group %q", username, group))
	}
	if err != nil {
		return Credential{}, platformerrors.Wrap(platformerrors.KindStorage, "account.credential",
			"failed to query credential", err)
	}
	return Credential{
		ID:           account.ID,
		PasswordHash: account.PasswordHash,
		Active:       account.Active,
	}, nil
}

// IsActive reports whether an account is allowed to authenticate.
func (r *AccountRepository) IsActive(ctx context.Context, clientID uint, group string) (bool, error) {
	var account Account
	err := r.db.WithContext(ctx).
		Select("active").
		Where("id = ? AND `group` = ?", clientID, group).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, platformerrors.New(platformerrors.KindNotFound, "account.is_active",
			fmt.Sprintf("no account %d in group %q", clientID, group))
	}
	if err != nil {
		return false, platformerrors.Wrap(platformerrors.KindStorage, "account.is_active",
			"failed to query account", err)
	}
	return account.Active, nil
}

// SetActive toggles the suspension flag.
func (r *AccountRepository) SetActive(ctx context.Context, clientID uint, group string, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&Account{}).
		Where("id = ? AND `group` = ?", clientID, group).
		Update("active", active)
	if res.Error != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "account.set_active",
			"failed to update account", res.Error)
	}
	if res.RowsAffected == 0 {
		return platformerrors.New(platformerrors.KindNotFound, "account.set_active",
			fmt.Sprintf("no account %d in group %q", clientID, group))
	}
	return nil
}

// UpsertSessionTimes writes login and/or logout markers for the account,
// creating the row on first contact. Empty values leave the stored marker
// untouched.
func (r *AccountRepository) UpsertSessionTimes(ctx context.Context, clientID uint, group, loginAt, logoutAt string) error {
	record := SessionRecord{
		ClientID:     clientID,
		Group:        group,
		LastLoginAt:  loginAt,
		LastLogoutAt: logoutAt,
	}
	if record.LastLogoutAt == "" {
		record.LastLogoutAt = LogoutSentinel
	}

	updates := map[string]any{}
	if loginAt != "" {
		updates["last_login_at"] = loginAt
	}
	if logoutAt != "" {
		updates["last_logout_at"] = logoutAt
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "client_id"}, {Name: "group"}},
			DoUpdates: clause.Assignments(updates),
		}).
		Create(&record).Error
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "session.upsert_times",
			"failed to upsert session timestamps", err)
	}
	return nil
}

// ReadSessionTimes fetches the stored markers. An account with no session row
// yet reports the logout sentinel.
func (r *AccountRepository) ReadSessionTimes(ctx context.Context, clientID uint, group string) (SessionTimes, error) {
	var record SessionRecord
	err := r.db.WithContext(ctx).
		Where("client_id = ? AND `group` = ?", clientID, group).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SessionTimes{LastLogoutAt: LogoutSentinel}, nil
	}
	if err != nil {
		return SessionTimes{}, platformerrors.Wrap(platformerrors.KindStorage, "session.read_times",
			"failed to read session timestamps", err)
	}
	if record.LastLogoutAt == "" {
		record.LastLogoutAt = LogoutSentinel
	}
	return SessionTimes{
		LastLoginAt:  record.LastLoginAt,
		LastLogoutAt: record.LastLogoutAt,
	}, nil
}
