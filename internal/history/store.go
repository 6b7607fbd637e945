// Package history persists finished runs so the UI and CLI can show what the
// agent did after the browser is long gone.
package history

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Run struct {
	ID         string `gorm:"primaryKey"`
	Website    string
	Task       string `gorm:"type:text"`
	StartedAt  time.Time
	FinishedAt time.Time
	ExitReason string
	Success    bool
	Summary    string `gorm:"type:text"`
	Steps      []Step `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

type Step struct {
	ID       uint   `gorm:"primaryKey"`
	RunID    string `gorm:"index"`
	Seq      int
	URL      string
	Action   string
	TargetID int
	Text     string
}

type Store struct {
	db *gorm.DB
}

// Open creates (or opens) the sqlite database at path and migrates it.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	return New(db)
}

// New wraps an existing connection; tests hand in :memory:.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Run{}, &Step{}); err != nil {
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Record(run *Run) error {
	if run.ID == "" {
		return fmt.Errorf("run has no id")
	}
	return s.db.Create(run).Error
}

// Recent returns the latest n runs, newest first, steps included.
func (s *Store) Recent(n int) ([]Run, error) {
	if n <= 0 {
		n = 10
	}
	var runs []Run
	err := s.db.
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Order("started_at DESC").
		Limit(n).
		Find(&runs).Error
	return runs, err
}
