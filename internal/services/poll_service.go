package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"poll-service/internal/models"
	"poll-service/internal/repositories"
	"poll-service/internal/voting"

	"github.com/google/uuid"
)

var (
	ErrEmptyQuestion    = errors.New("question cannot be empty")
	ErrNotEnoughOptions = errors.New("at least two valid options are required")
)

const minPollOptions = 2

// Broadcaster pushes post-mutation state to live subscribers of a poll.
type Broadcaster interface {
	PollUpdated(ctx context.Context, view *models.PublicPoll) error
	PollDeleted(ctx context.Context, pollID string) error
}

type noopBroadcaster struct{}

func (noopBroadcaster) PollUpdated(context.Context, *models.PublicPoll) error { return nil }
func (noopBroadcaster) PollDeleted(context.Context, string) error             { return nil }

type CreatePollInput struct {
	Question         string
	Options          []string
	ExpiresInMinutes *float64
	CreatorDeviceID  string
}

type VoteInput struct {
	PollID   string
	OptionID string
	DeviceID string
	IP       string
}

type VoteResult struct {
	Outcome voting.Outcome
	Poll    *models.PublicPoll
}

type PollServiceOption func(*PollService)

// WithClock overrides time.Now, mainly for tests
func WithClock(now func() time.Time) PollServiceOption {
	return func(s *PollService) {
		s.now = now
	}
}

func WithBroadcaster(b Broadcaster) PollServiceOption {
	return func(s *PollService) {
		s.broadcaster = b
	}
}

// PollService runs every poll use case. Mutations on one poll are
// serialized by the locker and follow load, normalize, reconcile, save,
// broadcast; nothing is broadcast unless the save succeeded.
type PollService struct {
	repo        repositories.PollRepository
	locker      Locker
	broadcaster Broadcaster
	now         func() time.Time
}

func NewPollService(repo repositories.PollRepository, locker Locker, opts ...PollServiceOption) *PollService {
	s := &PollService{
		repo:        repo,
		locker:      locker,
		broadcaster: noopBroadcaster{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetBroadcaster wires the hub after construction; the hub itself needs the
// service to answer joins.
func (s *PollService) SetBroadcaster(b Broadcaster) {
	if b == nil {
		b = noopBroadcaster{}
	}
	s.broadcaster = b
}

func (s *PollService) CreatePoll(ctx context.Context, in CreatePollInput) (*models.Poll, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	options := normalizeOptions(in.Options)
	if len(options) < minPollOptions {
		return nil, ErrNotEnoughOptions
	}

	now := s.now().UTC()
	poll := &models.Poll{
		ID:              uuid.NewString(),
		Question:        question,
		Options:         options,
		CreatedAt:       now,
		CreatorDeviceID: strings.TrimSpace(in.CreatorDeviceID),
		Voters:          []models.Voter{},
		VoterIPs:        []string{},
		VoterDevices:    []string{},
	}
	if m := in.ExpiresInMinutes; m != nil && *m > 0 && !math.IsInf(*m, 0) && !math.IsNaN(*m) {
		expiresAt := now.Add(time.Duration(*m * float64(time.Minute)))
		poll.ExpiresAt = &expiresAt
	}

	if _, err := s.repo.Save(ctx, poll); err != nil {
		return nil, persistenceError(err)
	}

	slog.Info("Poll created", "pollID", poll.ID, "options", len(poll.Options))
	return poll, nil
}

// GetPublicPoll returns the public view of a live (not deleted) poll
func (s *PollService) GetPublicPoll(ctx context.Context, pollID string) (*models.PublicPoll, error) {
	poll, err := s.loadActive(ctx, pollID)
	if err != nil {
		return nil, err
	}
	return poll.ToPublic(s.now()), nil
}

func (s *PollService) CastVote(ctx context.Context, in VoteInput) (*VoteResult, error) {
	unlock, err := s.lock(ctx, in.PollID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	poll, err := s.loadActive(ctx, in.PollID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if poll.IsExpired(now) {
		return nil, voting.ErrPollExpired
	}
	if poll.FindOption(in.OptionID) == nil {
		return nil, voting.ErrInvalidOption
	}
	if in.DeviceID == "" {
		return nil, voting.ErrMissingIdentity
	}

	voting.EnsureVoteState(poll)

	outcome, err := voting.Cast(poll, in.DeviceID, in.IP, in.OptionID, now)
	if err != nil {
		slog.Info("Vote rejected", "pollID", poll.ID, "deviceID", in.DeviceID, "ip", in.IP, "error", err)
		return nil, err
	}

	return s.commit(ctx, poll, outcome, now)
}

func (s *PollService) RemoveVote(ctx context.Context, pollID, deviceID string) (*VoteResult, error) {
	unlock, err := s.lock(ctx, pollID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	poll, err := s.loadActive(ctx, pollID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if poll.IsExpired(now) {
		return nil, voting.ErrPollExpired
	}
	if deviceID == "" {
		return nil, voting.ErrMissingIdentity
	}

	voting.EnsureVoteState(poll)

	outcome, err := voting.Remove(poll, deviceID)
	if err != nil {
		return nil, err
	}

	return s.commit(ctx, poll, outcome, now)
}

// DeletePoll soft-deletes unconditionally; who may delete is decided
// outside the core.
func (s *PollService) DeletePoll(ctx context.Context, pollID string) error {
	unlock, err := s.lock(ctx, pollID)
	if err != nil {
		return err
	}
	defer unlock()

	deleted, err := s.repo.SoftDelete(ctx, pollID, s.now().UTC())
	if errors.Is(err, repositories.ErrNotFound) {
		return voting.ErrPollNotFound
	}
	if err != nil {
		return persistenceError(err)
	}

	slog.Info("Poll deleted", "pollID", deleted.ID)
	if err := s.broadcaster.PollDeleted(ctx, deleted.ID); err != nil {
		slog.Warn("Failed to broadcast poll deletion", "pollID", deleted.ID, "error", err)
	}
	return nil
}

// NormalizeAll runs the legacy normalizer over every stored poll without a
// ledger and persists the repaired ones. Returns how many were repaired.
func (s *PollService) NormalizeAll(ctx context.Context) (int, error) {
	polls, err := s.repo.List(ctx)
	if err != nil {
		return 0, persistenceError(err)
	}

	repaired := 0
	for _, listed := range polls {
		if len(listed.Voters) > 0 {
			continue
		}

		ok, err := s.normalizeOne(ctx, listed.ID)
		if err != nil {
			return repaired, err
		}
		if ok {
			repaired++
		}
	}
	return repaired, nil
}

func (s *PollService) normalizeOne(ctx context.Context, pollID string) (bool, error) {
	unlock, err := s.lock(ctx, pollID)
	if err != nil {
		return false, err
	}
	defer unlock()

	poll, err := s.repo.Load(ctx, pollID)
	if errors.Is(err, repositories.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, persistenceError(err)
	}

	if !voting.EnsureVoteState(poll) {
		return false, nil
	}
	if _, err := s.repo.Save(ctx, poll); err != nil {
		return false, persistenceError(err)
	}

	slog.Info("Legacy poll normalized", "pollID", poll.ID, "deviceID", poll.Voters[0].DeviceID)
	return true, nil
}

// commit persists a mutated poll and broadcasts the saved state. The poll
// is a private copy, so a failed save leaves nothing behind.
func (s *PollService) commit(ctx context.Context, poll *models.Poll, outcome voting.Outcome, now time.Time) (*VoteResult, error) {
	if outcome.Mutated() {
		if _, err := s.repo.Save(ctx, poll); err != nil {
			slog.Error("Failed to save poll", "pollID", poll.ID, "outcome", outcome, "error", err)
			return nil, persistenceError(err)
		}
	}

	view := poll.ToPublic(now)

	if outcome.Mutated() {
		if err := s.broadcaster.PollUpdated(ctx, view); err != nil {
			slog.Warn("Failed to broadcast poll update", "pollID", poll.ID, "error", err)
		}
	}

	slog.Debug("Vote reconciled", "pollID", poll.ID, "outcome", outcome, "totalVotes", view.TotalVotes)
	return &VoteResult{Outcome: outcome, Poll: view}, nil
}

func (s *PollService) loadActive(ctx context.Context, pollID string) (*models.Poll, error) {
	poll, err := s.repo.Load(ctx, pollID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, voting.ErrPollNotFound
	}
	if err != nil {
		return nil, persistenceError(err)
	}
	if poll.IsDeleted {
		return nil, voting.ErrPollNotFound
	}
	return poll, nil
}

func (s *PollService) lock(ctx context.Context, pollID string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, pollID)
	if err != nil {
		return nil, persistenceError(err)
	}
	return unlock, nil
}

// Ping checks the backing store
func (s *PollService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func persistenceError(err error) error {
	return fmt.Errorf("%w: %w", voting.ErrPersistence, err)
}

func normalizeOptions(texts []string) []models.Option {
	options := make([]models.Option, 0, len(texts))
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		options = append(options, models.Option{ID: uuid.NewString(), Text: text})
	}
	return options
}
