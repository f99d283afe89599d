package storage

import (
	"time"

	"gorm.io/datatypes"
)

// Account is a login-capable principal. Group partitions the namespace into
// tenants ("users", "providers"); the (group, username) pair is unique.
type Account struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex:idx_group_username;not null" json:"username"`
	Group        string    `gorm:"uniqueIndex:idx_group_username;index;not null" json:"group"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Active       bool      `gorm:"default:true" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}

// SessionRecord tracks login/logout timestamps per account. The logout value
// is the revocation marker embedded in tokens; LogoutSentinel marks accounts
// that never logged out.
type SessionRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ClientID     uint      `gorm:"uniqueIndex:idx_client_group;not null" json:"client_id"`
	Group        string    `gorm:"uniqueIndex:idx_client_group;not null" json:"group"`
	LastLoginAt  string    `json:"last_login_at"`
	LastLogoutAt string    `json:"last_logout_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (SessionRecord) TableName() string {
	return "session_records"
}

// Service is an owned business entity: clinic, pharmacy, lab or radiology
// center. Staff holds a JSON object mapping role name to "<id>:<power>"
// entries.
type Service struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Kind      string         `gorm:"index;not null" json:"kind"`
	Name      string         `gorm:"not null" json:"name"`
	OwnerID   uint           `gorm:"index;not null" json:"owner_id"`
	AdminID   uint           `gorm:"index;not null" json:"admin_id"`
	Staff     datatypes.JSON `json:"staff"`
	Active    bool           `gorm:"default:true" json:"active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (Service) TableName() string {
	return "services"
}

// CaseRecord is a visit or prescription scoped under a service.
type CaseRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ServiceID uint      `gorm:"index;not null" json:"service_id"`
	PatientID uint      `gorm:"index" json:"patient_id"`
	Summary   string    `gorm:"type:text" json:"summary"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CaseRecord) TableName() string {
	return "case_records"
}

// Appointment is a booking scoped under a service.
type Appointment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ServiceID uint      `gorm:"index;not null" json:"service_id"`
	ClientID  uint      `gorm:"index" json:"client_id"`
	StartsAt  time.Time `json:"starts_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Appointment) TableName() string {
	return "appointments"
}
