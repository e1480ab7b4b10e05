package store

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store holds the gorm handle and provides access to repositories.
type Store struct {
	db *gorm.DB
}

// Open connects to the SQLite database at dsn, applies recommended pragmas,
// and runs auto-migration for all models.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := db.AutoMigrate(
		&Subject{},
		&KnowledgePoint{},
		&Exercise{},
		&QMatrixEntry{},
		&ResponseLog{},
		&DiagnosisModel{},
		&MasteryRecord{},
	); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying gorm handle for raw queries.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Subjects returns a SubjectRepo backed by this store.
func (s *Store) Subjects() SubjectRepo {
	return &subjectRepo{db: s.db}
}

// Mastery returns a MasteryRepo backed by this store.
func (s *Store) Mastery() MasteryRepo {
	return &masteryRepo{db: s.db}
}

// Responses returns a ResponseRepo backed by this store.
func (s *Store) Responses() ResponseRepo {
	return &responseRepo{db: s.db}
}

// applyPragmas configures SQLite for safe concurrent use by the incremental
// updater and batch diagnosis writers.
func applyPragmas(db *gorm.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if err := db.Exec(p).Error; err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. EDUDIAG_DB environment variable
// 2. $XDG_DATA_HOME/edudiag/edudiag.db
// 3. ~/.local/share/edudiag/edudiag.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("EDUDIAG_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "edudiag", "edudiag.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
