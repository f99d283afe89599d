package storage

import (
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"clinic-server-go/internal/platform/errors"
)

const (
	defaultConnectAttempts = 5
	initialBackoff         = 500 * time.Millisecond
)

// Open establishes the database handle, retrying with exponential backoff up
// to attempts tries. Exhaustion fails startup.
func Open(dsn string, attempts int) (*gorm.DB, error) {
	if attempts <= 0 {
		attempts = defaultConnectAttempts
	}

	var (
		db      *gorm.DB
		err     error
		backoff = initialBackoff
	)
	for i := 0; i < attempts; i++ {
		db, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err == nil {
			return db, nil
		}
		if i < attempts-1 {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return nil, errors.Wrap(errors.KindStorage, "storage.open",
		"failed to connect to database", err)
}

// Migrate creates or updates the schema for every model the gatekeeper
// touches.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Account{},
		&SessionRecord{},
		&Service{},
		&CaseRecord{},
		&Appointment{},
	)
	if err != nil {
		return errors.Wrap(errors.KindStorage, "storage.migrate",
			"failed to run schema migration", err)
	}
	return nil
}
