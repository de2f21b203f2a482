// Package voting holds the vote reconciliation rules: who may vote, when a
// vote is switched or removed, and how legacy polls get a usable ledger.
//
// Everything here is pure over a *models.Poll. Loading, locking, saving and
// broadcasting belong to the caller.
package voting

import (
	"time"

	"poll-service/internal/models"
)

// Outcome is the human-facing result of a reconciliation.
type Outcome string

const (
	OutcomeAccepted  Outcome = "accepted"
	OutcomeSwitched  Outcome = "switched"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeRemoved   Outcome = "removed"
	OutcomeRejected  Outcome = "rejected"
	OutcomeNotFound  Outcome = "not_found"
)

func (o Outcome) String() string {
	return string(o)
}

// Mutated reports whether the poll changed and must be persisted.
func (o Outcome) Mutated() bool {
	switch o {
	case OutcomeAccepted, OutcomeSwitched, OutcomeRemoved:
		return true
	default:
		return false
	}
}

// Cast applies a cast or change-vote request for deviceID/ip to poll.
//
// An ip already pinned to a different device is rejected before the device
// lookup, so a fresh device token cannot be laundered through a known ip.
// The same device may re-vote (no-op) or switch its own choice.
func Cast(poll *models.Poll, deviceID, ip, optionID string, now time.Time) (Outcome, error) {
	if deviceID == "" {
		return OutcomeRejected, ErrMissingIdentity
	}

	target := poll.FindOption(optionID)
	if target == nil {
		return OutcomeRejected, ErrInvalidOption
	}

	if poll.IPHeldByOtherDevice(ip, deviceID) {
		return OutcomeRejected, ErrIPConflict
	}

	i := poll.FindVoterByDevice(deviceID)
	if i < 0 {
		target.Votes++
		poll.Voters = append(poll.Voters, models.Voter{
			DeviceID: deviceID,
			IP:       ip,
			OptionID: target.ID,
			VotedAt:  now,
		})
		poll.SyncVoterLists()
		return OutcomeAccepted, nil
	}

	voter := &poll.Voters[i]
	if voter.OptionID == target.ID {
		return OutcomeUnchanged, nil
	}

	decrement(poll.FindOption(voter.OptionID))
	target.Votes++
	voter.OptionID = target.ID
	voter.IP = ip
	voter.VotedAt = now
	poll.SyncVoterLists()

	return OutcomeSwitched, nil
}

// Remove withdraws the ledger entry of deviceID.
func Remove(poll *models.Poll, deviceID string) (Outcome, error) {
	if deviceID == "" {
		return OutcomeRejected, ErrMissingIdentity
	}

	i := poll.FindVoterByDevice(deviceID)
	if i < 0 {
		return OutcomeNotFound, ErrVoterNotFound
	}

	decrement(poll.FindOption(poll.Voters[i].OptionID))
	poll.Voters = append(poll.Voters[:i], poll.Voters[i+1:]...)
	poll.SyncVoterLists()

	return OutcomeRemoved, nil
}

// decrement floors at zero so residual legacy inconsistencies never turn a
// counter negative.
func decrement(option *models.Option) {
	if option != nil && option.Votes > 0 {
		option.Votes--
	}
}
