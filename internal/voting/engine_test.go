package voting

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"poll-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestPoll() *models.Poll {
	return &models.Poll{
		ID:       "poll-1",
		Question: "Tabs or spaces?",
		Options: []models.Option{
			{ID: "a", Text: "Tabs"},
			{ID: "b", Text: "Spaces"},
			{ID: "c", Text: "Both"},
		},
		CreatedAt:    testNow.Add(-time.Hour),
		Voters:       []models.Voter{},
		VoterIPs:     []string{},
		VoterDevices: []string{},
	}
}

func assertConsistent(t *testing.T, poll *models.Poll) {
	t.Helper()

	assert.Equal(t, len(poll.Voters), poll.TotalVotes(), "sum of votes must equal ledger size")

	seen := make(map[string]bool)
	for _, voter := range poll.Voters {
		assert.False(t, seen[voter.DeviceID], "duplicate device %s in ledger", voter.DeviceID)
		seen[voter.DeviceID] = true
	}
	for _, option := range poll.Options {
		assert.GreaterOrEqual(t, option.Votes, 0)
	}
	assert.Len(t, poll.VoterDevices, len(seen))
}

func TestCastAcceptsNewVoter(t *testing.T) {
	poll := newTestPoll()

	outcome, err := Cast(poll, "dev-1", "10.0.0.1", "a", testNow)

	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, outcome)
	assert.Equal(t, 1, poll.FindOption("a").Votes)
	require.Len(t, poll.Voters, 1)
	assert.Equal(t, models.Voter{DeviceID: "dev-1", IP: "10.0.0.1", OptionID: "a", VotedAt: testNow}, poll.Voters[0])
	assert.Equal(t, []string{"dev-1"}, poll.VoterDevices)
	assert.Equal(t, []string{"10.0.0.1"}, poll.VoterIPs)
}

func TestCastSameOptionIsUnchanged(t *testing.T) {
	poll := newTestPoll()
	_, err := Cast(poll, "dev-1", "10.0.0.1", "a", testNow)
	require.NoError(t, err)

	outcome, err := Cast(poll, "dev-1", "10.0.0.1", "a", testNow.Add(time.Minute))

	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)
	assert.False(t, outcome.Mutated())
	assert.Equal(t, 1, poll.FindOption("a").Votes)
	assert.Equal(t, testNow, poll.Voters[0].VotedAt)
}

func TestCastSwitchMovesVote(t *testing.T) {
	poll := newTestPoll()
	_, err := Cast(poll, "dev-1", "10.0.0.1", "a", testNow)
	require.NoError(t, err)
	_, err = Cast(poll, "dev-2", "10.0.0.2", "a", testNow)
	require.NoError(t, err)

	later := testNow.Add(time.Minute)
	outcome, err := Cast(poll, "dev-1", "10.0.0.9", "b", later)

	require.NoError(t, err)
	assert.Equal(t, OutcomeSwitched, outcome)
	assert.Equal(t, 1, poll.FindOption("a").Votes)
	assert.Equal(t, 1, poll.FindOption("b").Votes)
	assert.Equal(t, 2, poll.TotalVotes())

	voter := poll.Voters[poll.FindVoterByDevice("dev-1")]
	assert.Equal(t, "b", voter.OptionID)
	assert.Equal(t, "10.0.0.9", voter.IP)
	assert.Equal(t, later, voter.VotedAt)
	assert.ElementsMatch(t, []string{"10.0.0.9", "10.0.0.2"}, poll.VoterIPs)
	assertConsistent(t, poll)
}

func TestCastRejectsIPBoundToOtherDevice(t *testing.T) {
	poll := newTestPoll()
	_, err := Cast(poll, "dev-x", "192.168.1.5", "a", testNow)
	require.NoError(t, err)

	outcome, err := Cast(poll, "dev-y", "192.168.1.5", "b", testNow)

	assert.ErrorIs(t, err, ErrIPConflict)
	assert.Equal(t, OutcomeRejected, outcome)
	assert.Equal(t, 1, poll.FindOption("a").Votes)
	assert.Equal(t, 0, poll.FindOption("b").Votes)
	assert.Len(t, poll.Voters, 1)
}

func TestCastIPConflictCheckedBeforeDeviceMatch(t *testing.T) {
	poll := newTestPoll()
	_, err := Cast(poll, "dev-x", "1.1.1.1", "a", testNow)
	require.NoError(t, err)
	_, err = Cast(poll, "dev-y", "2.2.2.2", "a", testNow)
	require.NoError(t, err)

	// dev-y already voted, but the ip it now presents belongs to dev-x.
	_, err = Cast(poll, "dev-y", "1.1.1.1", "b", testNow)

	assert.ErrorIs(t, err, ErrIPConflict)
	assert.Equal(t, 2, poll.FindOption("a").Votes)
}

func TestCastIPConflictSeesEverySharedEntry(t *testing.T) {
	poll := newTestPoll()
	poll.Options[0].Votes = 2
	poll.Voters = []models.Voter{
		{DeviceID: "dev-x", IP: "10.0.0.9", OptionID: "a", VotedAt: testNow},
		{DeviceID: "dev-y", IP: "10.0.0.9", OptionID: "a", VotedAt: testNow},
	}
	poll.SyncVoterLists()

	// The first entry for the ip is dev-x itself; the second belongs to dev-y.
	outcome, err := Cast(poll, "dev-x", "10.0.0.9", "b", testNow)

	assert.ErrorIs(t, err, ErrIPConflict)
	assert.Equal(t, OutcomeRejected, outcome)
	assert.Equal(t, 2, poll.FindOption("a").Votes)
	assert.Equal(t, 0, poll.FindOption("b").Votes)
}

func TestCastValidatesInput(t *testing.T) {
	poll := newTestPoll()

	_, err := Cast(poll, "", "1.1.1.1", "a", testNow)
	assert.ErrorIs(t, err, ErrMissingIdentity)

	_, err = Cast(poll, "dev-1", "1.1.1.1", "nope", testNow)
	assert.ErrorIs(t, err, ErrInvalidOption)

	assert.Empty(t, poll.Voters)
	assert.Zero(t, poll.TotalVotes())
}

func TestSwitchFloorsPreviousCounterAtZero(t *testing.T) {
	poll := newTestPoll()
	poll.Voters = []models.Voter{{DeviceID: "dev-1", IP: "1.1.1.1", OptionID: "a", VotedAt: testNow}}
	// Ledger says "a" but its counter already drifted to zero.

	outcome, err := Cast(poll, "dev-1", "1.1.1.1", "b", testNow)

	require.NoError(t, err)
	assert.Equal(t, OutcomeSwitched, outcome)
	assert.Equal(t, 0, poll.FindOption("a").Votes)
	assert.Equal(t, 1, poll.FindOption("b").Votes)
}

func TestRemove(t *testing.T) {
	poll := newTestPoll()
	_, err := Cast(poll, "dev-1", "1.1.1.1", "a", testNow)
	require.NoError(t, err)
	_, err = Cast(poll, "dev-2", "2.2.2.2", "b", testNow)
	require.NoError(t, err)

	outcome, err := Remove(poll, "dev-1")

	require.NoError(t, err)
	assert.Equal(t, OutcomeRemoved, outcome)
	assert.Equal(t, 0, poll.FindOption("a").Votes)
	assert.Equal(t, 1, poll.TotalVotes())
	assert.Equal(t, -1, poll.FindVoterByDevice("dev-1"))
	assert.Equal(t, []string{"dev-2"}, poll.VoterDevices)
	assert.Equal(t, []string{"2.2.2.2"}, poll.VoterIPs)

	t.Run("second removal is not found", func(t *testing.T) {
		outcome, err := Remove(poll, "dev-1")

		assert.ErrorIs(t, err, ErrVoterNotFound)
		assert.Equal(t, OutcomeNotFound, outcome)
		assert.Equal(t, 1, poll.TotalVotes())
	})

	t.Run("removal frees the ip for another device", func(t *testing.T) {
		outcome, err := Cast(poll, "dev-3", "1.1.1.1", "c", testNow)

		require.NoError(t, err)
		assert.Equal(t, OutcomeAccepted, outcome)
	})
}

func TestRemoveFloorsAtZero(t *testing.T) {
	poll := newTestPoll()
	poll.Voters = []models.Voter{{DeviceID: "dev-1", IP: "1.1.1.1", OptionID: "a", VotedAt: testNow}}

	_, err := Remove(poll, "dev-1")

	require.NoError(t, err)
	assert.Equal(t, 0, poll.FindOption("a").Votes)
	assert.Empty(t, poll.Voters)
}

func TestRandomOperationsConserveVotes(t *testing.T) {
	poll := newTestPoll()
	rng := rand.New(rand.NewSource(42))
	optionIDs := []string{"a", "b", "c"}

	for step := 0; step < 2000; step++ {
		device := fmt.Sprintf("dev-%d", rng.Intn(15))
		ip := fmt.Sprintf("10.0.0.%d", rng.Intn(20))

		if rng.Intn(4) == 0 {
			_, _ = Remove(poll, device)
		} else {
			_, _ = Cast(poll, device, ip, optionIDs[rng.Intn(len(optionIDs))], testNow)
		}

		require.Equal(t, len(poll.Voters), poll.TotalVotes(), "conservation broken at step %d", step)
	}

	assertConsistent(t, poll)
}
