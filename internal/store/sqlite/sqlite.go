// Package sqlite is the embedded prediction store built on gorm.
package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skufu/healthpredict/internal/risk"
	"github.com/Skufu/healthpredict/internal/store"
)

const maxList = 500

type predictionModel struct {
	ID          string         `gorm:"column:id;primaryKey"`
	Model       string         `gorm:"column:model;index"`
	Kind        string         `gorm:"column:kind"`
	Label       string         `gorm:"column:label"`
	Probability float64        `gorm:"column:probability"`
	Severity    string         `gorm:"column:severity"`
	RowCount    int            `gorm:"column:row_count"`
	Inputs      datatypes.JSON `gorm:"column:inputs;type:TEXT"`
	CreatedAt   time.Time      `gorm:"column:created_at;index"`
}

func (predictionModel) TableName() string { return "predictions" }

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open creates the database file and its directory when missing.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite store: path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open: %w", err)
	}
	if err := db.AutoMigrate(&predictionModel{}); err != nil {
		return nil, fmt.Errorf("sqlite store: migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

func (s *Store) Save(ctx context.Context, p store.Prediction) error {
	row := predictionModel{
		ID:          p.ID.String(),
		Model:       p.Model,
		Kind:        p.Kind,
		Label:       p.Label,
		Probability: p.Probability,
		Severity:    p.Severity.Tier(),
		RowCount:    p.Rows,
		Inputs:      datatypes.JSON(p.Inputs),
		CreatedAt:   p.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, limit int) ([]store.Prediction, error) {
	var rows []predictionModel
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(store.Limit(limit, maxList)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	out := make([]store.Prediction, 0, len(rows))
	for _, r := range rows {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return nil, fmt.Errorf("prediction %s: %w", r.ID, err)
		}
		sev, err := risk.ParseSeverity(r.Severity)
		if err != nil {
			return nil, fmt.Errorf("prediction %s: %w", r.ID, err)
		}
		out = append(out, store.Prediction{
			ID:          id,
			Model:       r.Model,
			Kind:        r.Kind,
			Label:       r.Label,
			Probability: r.Probability,
			Severity:    sev,
			Rows:        r.RowCount,
			Inputs:      []byte(r.Inputs),
			CreatedAt:   r.CreatedAt,
		})
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
