package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"badgeissuer/internal/badge/models"
	"badgeissuer/internal/metadata"
	"badgeissuer/pkg/domain"
	"badgeissuer/pkg/platform/sentinel"
)

// componentRow is the SQLite row for a component.
type componentRow struct {
	Address        string `gorm:"primaryKey"`
	Resource       string `gorm:"uniqueIndex;not null"`
	OwnerBadge     string `gorm:"not null"`
	DappDefinition string `gorm:"not null"`
	Deadline       time.Time
	Metadata       string
	CreatedAt      time.Time `gorm:"index"`
}

func (componentRow) TableName() string {
	return "components"
}

// SQLiteStore keeps components in an embedded SQLite database for
// single-node deployments.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLite opens (creating if needed) the database file at path. An empty
// path opens a private in-memory database.
func NewSQLite(path string) (*SQLiteStore, error) {
	dsn := "file::memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == "" {
		// Each connection to file::memory: is a separate database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("sqlite tracing: %w", err)
	}
	if err := db.AutoMigrate(&componentRow{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, c *models.Component) error {
	meta := c.Metadata
	if meta == nil {
		meta = metadata.Map{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal component metadata: %w", err)
	}
	row := componentRow{
		Address:        c.Address.String(),
		Resource:       c.Resource.String(),
		OwnerBadge:     c.OwnerBadge.String(),
		DappDefinition: c.DappDefinition.String(),
		Deadline:       c.Deadline.UTC(),
		Metadata:       string(raw),
		CreatedAt:      c.CreatedAt.UTC(),
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("insert component: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("component %s: %w", c.Address, sentinel.ErrConflict)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, addr domain.ComponentAddress) (*models.Component, error) {
	var row componentRow
	result := s.db.WithContext(ctx).Where("address = ?", addr.String()).First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("component %s: %w", addr, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get component: %w", result.Error)
	}
	return row.toModel()
}

func (s *SQLiteStore) List(ctx context.Context) ([]*models.Component, error) {
	var rows []componentRow
	if result := s.db.WithContext(ctx).Order("created_at, address").Find(&rows); result.Error != nil {
		return nil, fmt.Errorf("list components: %w", result.Error)
	}
	out := make([]*models.Component, 0, len(rows))
	for _, row := range rows {
		c, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r componentRow) toModel() (*models.Component, error) {
	c := &models.Component{
		Address:        domain.ComponentAddress(r.Address),
		Resource:       domain.ResourceAddress(r.Resource),
		OwnerBadge:     domain.ResourceAddress(r.OwnerBadge),
		DappDefinition: domain.ComponentAddress(r.DappDefinition),
		Deadline:       r.Deadline.UTC(),
		CreatedAt:      r.CreatedAt.UTC(),
	}
	if err := json.Unmarshal([]byte(r.Metadata), &c.Metadata); err != nil {
		return nil, fmt.Errorf("decode component metadata: %w", err)
	}
	return c, nil
}
