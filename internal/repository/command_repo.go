package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// CommandRecord is one operator command and its outcome.
type CommandRecord struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id" yaml:"id"`
	Command    string    `gorm:"size:32;index" json:"command" yaml:"command"`
	Argument   string    `gorm:"size:1024" json:"argument,omitempty" yaml:"argument,omitempty"`
	Success    bool      `json:"success" yaml:"success"`
	Error      string    `gorm:"size:1024" json:"error,omitempty" yaml:"error,omitempty"`
	DurationMs int64     `json:"duration_ms" yaml:"duration_ms"`
	CreatedAt  time.Time `gorm:"index" json:"created_at" yaml:"created_at"`
}

func (CommandRecord) TableName() string {
	return "command_records"
}

type CommandRepository struct {
	db *gorm.DB
}

func NewCommandRepository(db *gorm.DB) *CommandRepository {
	return &CommandRepository{db: db}
}

func (r *CommandRepository) Create(ctx context.Context, record *CommandRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// Recent returns the newest records first.
func (r *CommandRepository) Recent(ctx context.Context, limit int) ([]CommandRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []CommandRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// DeleteOlderThan prunes records created before cutoff.
func (r *CommandRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&CommandRecord{})
	return result.RowsAffected, result.Error
}
