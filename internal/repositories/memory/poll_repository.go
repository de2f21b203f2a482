// Package memory keeps polls in process memory. Used for local development
// (STORE_DRIVER=memory) and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"poll-service/internal/models"
	"poll-service/internal/repositories"
)

type PollRepository struct {
	mu    sync.RWMutex
	polls map[string]*models.Poll
}

func NewPollRepository() *PollRepository {
	return &PollRepository{polls: make(map[string]*models.Poll)}
}

// Load returns a deep copy of the stored poll
func (r *PollRepository) Load(ctx context.Context, id string) (*models.Poll, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	poll, exists := r.polls[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	return poll.Clone(), nil
}

// Save upserts a deep copy of poll
func (r *PollRepository) Save(ctx context.Context, poll *models.Poll) (*models.Poll, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.polls[poll.ID] = poll.Clone()
	return poll, nil
}

func (r *PollRepository) SoftDelete(ctx context.Context, id string, at time.Time) (*models.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	poll, exists := r.polls[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}

	deletedAt := at
	poll.IsDeleted = true
	poll.DeletedAt = &deletedAt
	return poll.Clone(), nil
}

// List returns copies ordered by creation time
func (r *PollRepository) List(ctx context.Context) ([]*models.Poll, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*models.Poll, 0, len(r.polls))
	for _, poll := range r.polls {
		list = append(list, poll.Clone())
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func (r *PollRepository) Ping(ctx context.Context) error {
	return nil
}
