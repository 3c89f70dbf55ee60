package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

var (
	// ErrStorage marks every failure coming from the backing database
	ErrStorage = errors.New("storage failure")

	ErrUnknownDriver = errors.New("unknown database driver")
)

type Storage struct {
	db *gorm.DB
}

func New(driver, dsn string) (*Storage, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite, "":
		if err := ensureDir(dsn); err != nil {
			slog.Error("storage: Failed to create database directory", "error", err, "path", dsn)
			return nil, fmt.Errorf("%w: failed to create database directory: %w", ErrStorage, err)
		}
		dialector = sqlite.Open(dsn)
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	default:
		slog.Error("storage: Unknown database driver", "driver", driver)
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		slog.Error("storage: Failed to connect to database", "error", err, "driver", driver)
		return nil, fmt.Errorf("%w: failed to connect to database: %w", ErrStorage, err)
	}

	if driver != DriverMySQL {
		// SQLite allows a single writer; one connection keeps every statement serialized
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to get database handle: %w", ErrStorage, err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

// ensureDir creates the parent directory of an SQLite database file
func ensureDir(dsn string) error {
	if dsn == "" || strings.HasPrefix(dsn, "file:") || strings.Contains(dsn, ":memory:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Storage) migrate() error {
	err := s.db.AutoMigrate(&Subscription{})
	if err != nil {
		slog.Error("storage: Failed to migrate database", "error", err)
		return fmt.Errorf("%w: failed to migrate database: %w", ErrStorage, err)
	}

	return nil
}

// Ping checks that the database is reachable
func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("%w: failed to get database handle: %w", ErrStorage, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping failed: %w", ErrStorage, err)
	}
	return nil
}

func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("%w: failed to get database handle: %w", ErrStorage, err)
	}
	return sqlDB.Close()
}

// CreateSubscription stores a new routing rule. Duplicate source/destination pairs are allowed.
func (s *Storage) CreateSubscription(ctx context.Context, sourceID, destinationID, userID string) (*Subscription, error) {
	sub := Subscription{
		SourceID:      sourceID,
		DestinationID: destinationID,
		UserIDCreated: userID,
	}

	result := s.db.WithContext(ctx).Create(&sub)
	if result.Error != nil {
		slog.Error("storage: Failed to create subscription", "error", result.Error,
			"source_id", sourceID, "destination_id", destinationID, "user_id", userID)
		return nil, fmt.Errorf("%w: failed to create subscription: %w", ErrStorage, result.Error)
	}

	slog.Debug("storage: Subscription created", "id", sub.ID, "source_id", sourceID, "destination_id", destinationID)
	return &sub, nil
}

// ListSubscriptions retrieves every subscription
func (s *Storage) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	var subs []Subscription
	result := s.db.WithContext(ctx).Order("id").Find(&subs)
	if result.Error != nil {
		slog.Error("storage: Failed to list subscriptions", "error", result.Error)
		return nil, fmt.Errorf("%w: failed to list subscriptions: %w", ErrStorage, result.Error)
	}
	return subs, nil
}

// ListSubscriptionsByOwner retrieves subscriptions created by a specific user
func (s *Storage) ListSubscriptionsByOwner(ctx context.Context, userID string) ([]Subscription, error) {
	var subs []Subscription
	result := s.db.WithContext(ctx).Where("user_id_created = ?", userID).Order("id").Find(&subs)
	if result.Error != nil {
		slog.Error("storage: Failed to list subscriptions by owner", "error", result.Error, "user_id", userID)
		return nil, fmt.Errorf("%w: failed to list subscriptions by owner: %w", ErrStorage, result.Error)
	}
	return subs, nil
}

// ListSubscriptionsBySource retrieves subscriptions whose source matches exactly
func (s *Storage) ListSubscriptionsBySource(ctx context.Context, sourceID string) ([]Subscription, error) {
	var subs []Subscription
	result := s.db.WithContext(ctx).Where("source_id = ?", sourceID).Order("id").Find(&subs)
	if result.Error != nil {
		slog.Error("storage: Failed to list subscriptions by source", "error", result.Error, "source_id", sourceID)
		return nil, fmt.Errorf("%w: failed to list subscriptions by source: %w", ErrStorage, result.Error)
	}
	return subs, nil
}

// DeleteSubscription removes a subscription only if it belongs to the given user.
// It reports whether a row was deleted; a foreign subscription looks the same as a missing one.
func (s *Storage) DeleteSubscription(ctx context.Context, id uint, userID string) (bool, error) {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id_created = ?", id, userID).Delete(&Subscription{})
	if result.Error != nil {
		slog.Error("storage: Failed to delete subscription", "error", result.Error, "id", id, "user_id", userID)
		return false, fmt.Errorf("%w: failed to delete subscription: %w", ErrStorage, result.Error)
	}
	return result.RowsAffected > 0, nil
}
