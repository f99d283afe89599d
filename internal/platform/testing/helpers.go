package testing

import (
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"clinic-server-go/internal/platform/config"
	"clinic-server-go/internal/platform/logging"
	"clinic-server-go/internal/platform/storage"
)

// SetupTestConfig returns a config suitable for unit tests: small throttle
// thresholds, a fixed secret, in-memory session store.
func SetupTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Server.IP = "127.0.0.1"
	cfg.Log.Level = "debug"
	cfg.Log.Dir = ""
	cfg.Gatekeeper.Token.Secret = "test-secret"
	cfg.Gatekeeper.Session.Driver = "memory"
	cfg.Gatekeeper.Throttle.MaxRequests = 3
	cfg.Gatekeeper.Throttle.MaxFingerprints = 5
	return cfg
}

// SetupTestLogger returns a logger that drops all output.
func SetupTestLogger(t *testing.T) *logging.Logger {
	t.Helper()
	return logging.NewDiscard()
}

// SetupTestDB opens a fresh in-memory database with the full schema. The DSN
// is keyed by test name so parallel tests never share state.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error but got nil")
	}
}

func AssertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	if expected != actual {
		t.Fatalf("expected %v, got %v", expected, actual)
	}
}
