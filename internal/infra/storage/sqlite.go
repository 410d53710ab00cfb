package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"odds_grid/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	// MemoryPath opens a throwaway in-memory database.
	MemoryPath = ":memory:"

	insertBatchSize = 500
)

// Storage is the sqlite-backed match repository and key-value store.
type Storage struct {
	db *gorm.DB
}

var (
	_ domain.MatchRepository = (*Storage)(nil)
	_ domain.KeyValueStore   = (*Storage)(nil)
)

// NewStorage opens (and migrates) the database at dbPath.
// An empty path resolves to the per-user config directory.
func NewStorage(dbPath string) (*Storage, error) {
	if dbPath == "" {
		p, err := getDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
		dbPath = p
	}

	if dbPath != MemoryPath {
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	// One writer; also keeps :memory: on a single connection.
	sqlDB.SetMaxOpenConns(1)

	// Schema and index creation
	if err := db.AutoMigrate(&domain.Match{}, &domain.AppConfig{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "OddsGrid", "data", "matches.db"), nil
}

// Ping checks the connection.
func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Match Operations
// ======================================================================================

// GetAll returns every stored match ordered by id.
func (s *Storage) GetAll(ctx context.Context) ([]domain.Match, error) {
	var matches []domain.Match
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&matches).Error; err != nil {
		return nil, &domain.StorageError{Op: "get_all", Err: err}
	}
	return matches, nil
}

// Put creates or replaces a single match.
func (s *Storage) Put(ctx context.Context, match domain.Match) error {
	if err := s.db.WithContext(ctx).Save(&match).Error; err != nil {
		return &domain.StorageError{Op: "put", Key: match.ID, Err: err}
	}
	return nil
}

// PutAll inserts the whole dataset in one transaction.
func (s *Storage) PutAll(ctx context.Context, matches []domain.Match) error {
	if len(matches) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(matches, insertBatchSize).Error
	})
	if err != nil {
		return &domain.StorageError{Op: "put_all", Err: err}
	}
	return nil
}

// CountMatches returns the number of stored matches.
func (s *Storage) CountMatches(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.Match{}).Count(&n).Error
	return n, err
}

// ======================================================================================
// Key-Value Operations
// ======================================================================================

// Get returns the value stored under key.
func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	var cfg domain.AppConfig
	err := s.db.WithContext(ctx).Where(&domain.AppConfig{Key: key}).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil // Not found is not an error
	}
	if err != nil {
		return "", false, &domain.StorageError{Op: "get", Key: key, Err: err}
	}
	return cfg.Value, true, nil
}

// Set saves a value under key.
func (s *Storage) Set(ctx context.Context, key, value string) error {
	cfg := domain.AppConfig{
		Key:   key,
		Value: value,
	}
	if err := s.db.WithContext(ctx).Save(&cfg).Error; err != nil {
		return &domain.StorageError{Op: "set", Key: key, Err: err}
	}
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *Storage) Remove(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Delete(&domain.AppConfig{Key: key}).Error; err != nil {
		return &domain.StorageError{Op: "remove", Key: key, Err: err}
	}
	return nil
}

// LoadConfigMap loads all stored view state as a map
func (s *Storage) LoadConfigMap(ctx context.Context) (map[string]string, error) {
	var configs []domain.AppConfig
	if err := s.db.WithContext(ctx).Find(&configs).Error; err != nil {
		return nil, err
	}

	result := make(map[string]string)
	for _, cfg := range configs {
		result[cfg.Key] = cfg.Value
	}
	return result, nil
}
