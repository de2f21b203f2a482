package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"poll-service/internal/models"
	"poll-service/internal/repositories"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PollRecord keeps the whole aggregate in one JSON document column; the
// flag columns are copies used for filtering only.
type PollRecord struct {
	ID        string         `gorm:"column:id;primaryKey;size:64"`
	IsDeleted bool           `gorm:"column:is_deleted;not null;default:false;index"`
	DeletedAt *time.Time     `gorm:"column:deleted_at"`
	CreatedAt time.Time      `gorm:"column:created_at;not null;index"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
	Document  datatypes.JSON `gorm:"column:document;not null"`
}

// TableName specifies the table name for PollRecord
func (PollRecord) TableName() string {
	return "polls"
}

type PollRepository struct {
	db *gorm.DB
}

func NewPollRepository(db *gorm.DB) *PollRepository {
	return &PollRepository{db: db}
}

func (r *PollRepository) Load(ctx context.Context, id string) (*models.Poll, error) {
	var record PollRecord
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load poll %s: %w", id, err)
	}
	return decodeRecord(&record)
}

func (r *PollRepository) Save(ctx context.Context, poll *models.Poll) (*models.Poll, error) {
	record, err := encodeRecord(poll)
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_deleted", "deleted_at", "document", "updated_at"}),
	}).Create(record).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save poll %s: %w", poll.ID, err)
	}
	return poll, nil
}

func (r *PollRepository) SoftDelete(ctx context.Context, id string, at time.Time) (*models.Poll, error) {
	var deleted *models.Poll

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record PollRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&record, "id = ?", id).Error; err != nil {
			return err
		}

		poll, err := decodeRecord(&record)
		if err != nil {
			return err
		}
		deletedAt := at
		poll.IsDeleted = true
		poll.DeletedAt = &deletedAt

		updated, err := encodeRecord(poll)
		if err != nil {
			return err
		}
		if err := tx.Save(updated).Error; err != nil {
			return err
		}

		deleted = poll
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete poll %s: %w", id, err)
	}
	return deleted, nil
}

func (r *PollRepository) List(ctx context.Context) ([]*models.Poll, error) {
	var records []PollRecord
	if err := r.db.WithContext(ctx).Order("created_at asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}

	polls := make([]*models.Poll, 0, len(records))
	for i := range records {
		poll, err := decodeRecord(&records[i])
		if err != nil {
			return nil, err
		}
		polls = append(polls, poll)
	}
	return polls, nil
}

func (r *PollRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func encodeRecord(poll *models.Poll) (*PollRecord, error) {
	document, err := json.Marshal(poll)
	if err != nil {
		return nil, fmt.Errorf("failed to encode poll %s: %w", poll.ID, err)
	}
	return &PollRecord{
		ID:        poll.ID,
		IsDeleted: poll.IsDeleted,
		DeletedAt: poll.DeletedAt,
		CreatedAt: poll.CreatedAt,
		Document:  datatypes.JSON(document),
	}, nil
}

func decodeRecord(record *PollRecord) (*models.Poll, error) {
	var poll models.Poll
	if err := json.Unmarshal(record.Document, &poll); err != nil {
		return nil, fmt.Errorf("failed to decode poll %s: %w", record.ID, err)
	}
	return &poll, nil
}
