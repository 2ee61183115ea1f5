// Package store persists subscribers and incident records through GORM.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/user/incidentbot/internal/types"
)

// Compile-time interface compliance checks.
var _ types.SubscriberStore = (*Store)(nil)
var _ types.IncidentStore = (*Store)(nil)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Options selects the database backend.
type Options struct {
	Driver  string // "sqlite" (default) or "mysql"
	DSN     string // sqlite file path, ":memory:", or a MySQL DSN
	DataDir string // used for the default sqlite path when DSN is empty
}

// Store wraps a GORM connection with the subscriber and incident operations.
// Every method is a single statement committed before it returns.
type Store struct {
	db *gorm.DB
}

// Open connects to the configured database and creates the tables if absent.
func Open(opts Options) (*Store, error) {
	dialector, err := dialectorFor(opts)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driverName(opts), err)
	}

	if driverName(opts) == DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("store: underlying db: %w", err)
		}
		// Limit to a single connection so ":memory:" keeps one database
		// and writers never see "database is locked".
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(AllModels()...); err != nil {
		return nil, fmt.Errorf("store: auto-migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func driverName(opts Options) string {
	if opts.Driver == "" {
		return DriverSQLite
	}
	return opts.Driver
}

func dialectorFor(opts Options) (gorm.Dialector, error) {
	switch driverName(opts) {
	case DriverSQLite:
		dsn := opts.DSN
		if dsn == "" {
			if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
				return nil, fmt.Errorf("store: create data dir: %w", err)
			}
			dsn = filepath.Join(opts.DataDir, "incidents.db")
		}
		return sqlite.Open(dsn), nil
	case DriverMySQL:
		if opts.DSN == "" {
			return nil, fmt.Errorf("store: mysql driver requires a dsn")
		}
		return mysql.Open(opts.DSN), nil
	default:
		return nil, fmt.Errorf("store: unknown driver %q", opts.Driver)
	}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AddSubscriber registers id. Adding an existing id is a no-op.
func (s *Store) AddSubscriber(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Subscriber{UserID: id}).Error
	if err != nil {
		return fmt.Errorf("store: add subscriber %d: %w", id, err)
	}
	return nil
}

// ListSubscribers returns every subscriber id in no particular order.
func (s *Store) ListSubscribers(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := s.db.WithContext(ctx).Model(&Subscriber{}).Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("store: list subscribers: %w", err)
	}
	return ids, nil
}

// CountSubscribers returns the number of registered subscribers.
func (s *Store) CountSubscribers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Subscriber{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("store: count subscribers: %w", err)
	}
	return n, nil
}

// AddIncident appends a new record and fills in its ID and CreatedAt.
func (s *Store) AddIncident(ctx context.Context, incident *types.Incident) error {
	row := fromIncident(incident)
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("store: add incident: %w", err)
	}
	incident.ID = row.ID
	incident.CreatedAt = row.CreatedAt
	return nil
}

// ListRecentIncidents returns at most limit records, newest (highest id) first.
func (s *Store) ListRecentIncidents(ctx context.Context, limit int) ([]*types.Incident, error) {
	if limit <= 0 {
		return nil, nil
	}
	var rows []Incident
	err := s.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: list incidents: %w", err)
	}
	out := make([]*types.Incident, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toIncident())
	}
	return out, nil
}

// CountIncidents returns the total number of stored incidents.
func (s *Store) CountIncidents(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Incident{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("store: count incidents: %w", err)
	}
	return n, nil
}
