// Package sqlite persists normalized events to a SQLite database through gorm.
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/localized-events-etl/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// eventRecord is the table row for one normalized event. Sequence columns
// hold JSON arrays. Rows are append-only; event ids are only unique within
// one batch, so they are indexed but not a key.
type eventRecord struct {
	ID                   uint   `gorm:"primaryKey"`
	EventID              string `gorm:"index;not null"`
	Label                string `gorm:"not null"`
	StartTimestamp       string `gorm:"not null"`
	Duration             string `gorm:"not null"`
	Position             string `gorm:"not null"`
	FileIDs              string `gorm:"not null"`
	FileStartTimeOffsets string `gorm:"not null"`
	TDOAs                string `gorm:"column:tdoas;not null"`
	DistanceResiduals    string `gorm:"not null"`
	CreatedAt            time.Time
}

func (eventRecord) TableName() string {
	return "normalized_events"
}

// Store writes normalized events to SQLite.
// It implements pipeline.BatchLoader.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to the database at path, creating it if needed, and
// migrates the schema.
func Open(path string, log *slog.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.AutoMigrate(&eventRecord{}); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, fmt.Errorf("migrate sqlite %s: %w", path, err)
	}
	return &Store{db: db, logger: log}, nil
}

// LoadBatch saves all events in one transaction; either every row of the
// batch is stored or none is.
func (s *Store) LoadBatch(ctx context.Context, events []domain.NormalizedEvent) error {
	if len(events) == 0 {
		return nil
	}
	records := make([]eventRecord, len(events))
	for i := range events {
		rec, err := toRecord(events[i])
		if err != nil {
			return err
		}
		records[i] = rec
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&records).Error
	})
	if err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	s.logger.Debug("stored events", "count", len(records))
	return nil
}

// ListEvents returns every stored event in insertion order.
func (s *Store) ListEvents(ctx context.Context) ([]domain.NormalizedEvent, error) {
	var records []eventRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	events := make([]domain.NormalizedEvent, len(records))
	for i, rec := range records {
		e, err := fromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("decode event %s: %w", rec.EventID, err)
		}
		events[i] = e
	}
	return events, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRecord(e domain.NormalizedEvent) (eventRecord, error) {
	rec := eventRecord{
		EventID:        e.EventID,
		Label:          e.Label,
		StartTimestamp: e.StartTimestamp.String(),
		Duration:       e.Duration.String(),
	}
	fields := []struct {
		dst *string
		src any
	}{
		{&rec.Position, e.Position},
		{&rec.FileIDs, e.FileIDs},
		{&rec.FileStartTimeOffsets, e.FileStartTimeOffsets},
		{&rec.TDOAs, e.TDOAs},
		{&rec.DistanceResiduals, e.DistanceResiduals},
	}
	for _, f := range fields {
		b, err := json.Marshal(f.src)
		if err != nil {
			return eventRecord{}, fmt.Errorf("encode event %s: %w", e.EventID, err)
		}
		*f.dst = string(b)
	}
	return rec, nil
}

func fromRecord(rec eventRecord) (domain.NormalizedEvent, error) {
	e := domain.NormalizedEvent{
		EventID:        rec.EventID,
		Label:          rec.Label,
		StartTimestamp: domain.NewTimestamp(rec.StartTimestamp),
		Duration:       json.Number(rec.Duration),
	}
	fields := []struct {
		src string
		dst any
	}{
		{rec.Position, &e.Position},
		{rec.FileIDs, &e.FileIDs},
		{rec.FileStartTimeOffsets, &e.FileStartTimeOffsets},
		{rec.TDOAs, &e.TDOAs},
		{rec.DistanceResiduals, &e.DistanceResiduals},
	}
	for _, f := range fields {
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return domain.NormalizedEvent{}, err
		}
	}
	return e, nil
}
