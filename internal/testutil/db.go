// Package testutil holds helpers shared by package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/anonto42/songoftheday/backend/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory SQLite database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every new connection to :memory: is a fresh database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

// NewFileDB opens a migrated SQLite file database that allows maxConns
// concurrent connections. Write transactions take the database lock when they
// begin and wait up to five seconds for it.
func NewFileDB(t *testing.T, maxConns int) *gorm.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000&_txlock=immediate&_journal_mode=WAL"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(maxConns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

// CreateUser inserts an account with a placeholder password hash.
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Password: "x"}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateSong inserts a ledger row directly, bypassing SubmitDailySong.
func CreateSong(t *testing.T, db *gorm.DB, userID uint, day string, current bool) *models.DailySong {
	t.Helper()
	s := &models.DailySong{
		UserID:     userID,
		Title:      "title " + day,
		Artist:     "artist",
		Genre:      "pop",
		MusicURL:   "http://example.com/" + day,
		DatePosted: day,
	}
	require.NoError(t, db.Omit("User").Create(s).Error)
	if current {
		require.NoError(t, db.Model(s).Update("is_current", true).Error)
		s.IsCurrent = true
	}
	return s
}
