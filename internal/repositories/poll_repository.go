// Package repositories defines the store contract for poll aggregates.
// Adapters live in the mongo, postgres and memory subpackages.
package repositories

import (
	"context"
	"errors"
	"time"

	"poll-service/internal/models"
)

// ErrNotFound is returned by Load and SoftDelete when no poll has the id.
var ErrNotFound = errors.New("poll not found in store")

// PollRepository persists whole poll documents. Load must return a copy the
// caller may mutate freely; Save replaces the full document (ledger and
// derived sets included) in one write.
type PollRepository interface {
	Load(ctx context.Context, id string) (*models.Poll, error)
	Save(ctx context.Context, poll *models.Poll) (*models.Poll, error)
	SoftDelete(ctx context.Context, id string, at time.Time) (*models.Poll, error)
	List(ctx context.Context) ([]*models.Poll, error)
	Ping(ctx context.Context) error
}
