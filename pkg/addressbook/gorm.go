package addressbook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// registrationRow is the persisted shape of a Registration.
type registrationRow struct {
	AddressHash      string    `gorm:"primaryKey;column:address_hash;size:64"`
	Carrier          string    `gorm:"column:carrier;size:64"`
	CanonicalAddress string    `gorm:"column:canonical_address"`
	ExternalID       string    `gorm:"column:external_id"`
	UsageCount       int64     `gorm:"column:usage_count"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	LastUsedAt       time.Time `gorm:"column:last_used_at;index"`
}

func (registrationRow) TableName() string { return "address_registrations" }

// GormStore is a Store backed by a relational database through GORM.
// Supported drivers: sqlite, postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the database and migrates the registrations table.
func NewGormStore(driver, dsn string) (*GormStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported gorm driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", driver, err)
	}

	if err := db.AutoMigrate(&registrationRow{}); err != nil {
		return nil, fmt.Errorf("migrating address registrations: %w", err)
	}

	return &GormStore{db: db}, nil
}

// Get returns the registration for hash, or ErrNotFound.
func (s *GormStore) Get(ctx context.Context, hash string) (*Registration, error) {
	var row registrationRow
	err := s.db.WithContext(ctx).First(&row, "address_hash = ?", hash).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rowToRegistration(&row), nil
}

// Create inserts a new registration. The primary key on address_hash
// turns a concurrent duplicate insert into ErrDuplicateKey.
func (s *GormStore) Create(ctx context.Context, reg *Registration) error {
	row := registrationRow{
		AddressHash:      reg.AddressHash,
		Carrier:          reg.Carrier,
		CanonicalAddress: reg.CanonicalAddress,
		ExternalID:       reg.ExternalID,
		UsageCount:       reg.UsageCount,
		CreatedAt:        reg.CreatedAt,
		LastUsedAt:       reg.LastUsedAt,
	}
	err := s.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	return err
}

// Touch bumps usage for hash in a single update statement.
func (s *GormStore) Touch(ctx context.Context, hash string, usedAt time.Time) error {
	res := s.db.WithContext(ctx).Model(&registrationRow{}).
		Where("address_hash = ?", hash).
		UpdateColumns(map[string]any{
			"usage_count":  gorm.Expr("usage_count + 1"),
			"last_used_at": usedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteLastUsedBefore removes stale registrations via the
// last_used_at index.
func (s *GormStore) DeleteLastUsedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("last_used_at < ?", cutoff).
		Delete(&registrationRow{})
	return res.RowsAffected, res.Error
}

// Stats returns aggregate usage numbers.
func (s *GormStore) Stats(ctx context.Context) (*Stats, error) {
	var agg struct {
		Count      int64
		TotalUsage int64
	}
	err := s.db.WithContext(ctx).Model(&registrationRow{}).
		Select("COUNT(*) AS count, COALESCE(SUM(usage_count), 0) AS total_usage").
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}
	stats := &Stats{Count: agg.Count, TotalUsage: agg.TotalUsage}
	if stats.Count > 0 {
		stats.AverageUsage = float64(stats.TotalUsage) / float64(stats.Count)
	}
	return stats, nil
}

// Close closes the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func rowToRegistration(row *registrationRow) *Registration {
	return &Registration{
		AddressHash:      row.AddressHash,
		Carrier:          row.Carrier,
		CanonicalAddress: row.CanonicalAddress,
		ExternalID:       row.ExternalID,
		UsageCount:       row.UsageCount,
		CreatedAt:        row.CreatedAt,
		LastUsedAt:       row.LastUsedAt,
	}
}

// StoreConfig controls how Open selects a backend.
type StoreConfig struct {
	Driver string // "memory", "sqlite", "postgres"
	DSN    string
}

// Open constructs a Store from configuration. An empty driver means
// the in-memory backend.
func Open(cfg StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite", "postgres":
		return NewGormStore(cfg.Driver, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
