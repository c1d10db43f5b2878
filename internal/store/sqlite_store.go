package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sparkd/internal/providers"
	"sparkd/internal/structures"
)

// Record is one funnel concern persisted as a row.
type Record struct {
	Key       string `gorm:"primarykey;size:64"`
	Value     []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (Record) TableName() string {
	return "records"
}

// SqliteStore persists every record immediately; Restore and Persist
// are no-ops. Reads go through the shared freecache first.
type SqliteStore struct {
	mu      sync.Mutex
	db      *gorm.DB
	cache   providers.CacheProviderInterface
	metrics providers.MetricsProviderInterface
}

func NewSqliteStore(conf *structures.Config, cache providers.CacheProviderInterface, metrics providers.MetricsProviderInterface) (*SqliteStore, error) {
	db, err := gorm.Open(sqlite.Open(conf.Persistence.FilePath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite store: %w", err)
	}
	return &SqliteStore{db: db, cache: cache, metrics: metrics}, nil
}

func (s *SqliteStore) Get(key string) ([]byte, bool, error) {
	if val, ok := s.cache.Get(key); ok {
		s.metrics.IncCacheHits()
		return val, true, nil
	}
	s.metrics.IncCacheMisses()

	var rec Record
	err := s.db.First(&rec, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	s.cache.Set(key, rec.Value)
	return rec.Value, true, nil
}

func (s *SqliteStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(key, value)
}

func (s *SqliteStore) put(key string, value []byte) error {
	rec := Record{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.Save(&rec).Error
	if err != nil {
		return err
	}
	s.cache.Del(key)
	return nil
}

func (s *SqliteStore) Update(key string, fn func(current []byte) ([]byte, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current []byte
	var rec Record
	err := s.db.First(&rec, "key = ?", key).Error
	if err == nil {
		current = rec.Value
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	return s.put(key, next)
}

func (s *SqliteStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Delete(&Record{}, "key = ?", key).Error
	if err != nil {
		return err
	}
	s.cache.Del(key)
	return nil
}

func (s *SqliteStore) Restore() error { return nil }
func (s *SqliteStore) Persist() error { return nil }

func (s *SqliteStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
