package voting

import "poll-service/internal/models"

const unknownIP = "unknown"

// EnsureVoteState makes the ledger usable for polls stored before it
// existed. It only acts when the ledger is empty and the legacy totals
// describe exactly one vote by exactly one device; every other legacy shape
// stays as is and remains permissive until fresh votes are tracked.
//
// It returns true when a ledger entry was synthesized.
func EnsureVoteState(poll *models.Poll) bool {
	if poll.Voters == nil {
		poll.Voters = []models.Voter{}
	}
	if poll.VoterIPs == nil {
		poll.VoterIPs = []string{}
	}
	if poll.VoterDevices == nil {
		poll.VoterDevices = []string{}
	}

	if len(poll.Voters) > 0 {
		return false
	}
	if poll.TotalVotes() != 1 || len(poll.VoterDevices) != 1 {
		return false
	}

	var voted *models.Option
	for i := range poll.Options {
		if poll.Options[i].Votes > 0 {
			voted = &poll.Options[i]
			break
		}
	}
	if voted == nil {
		return false
	}

	ip := unknownIP
	if len(poll.VoterIPs) > 0 {
		ip = poll.VoterIPs[0]
	}

	poll.Voters = append(poll.Voters, models.Voter{
		DeviceID: poll.VoterDevices[0],
		IP:       ip,
		OptionID: voted.ID,
		VotedAt:  poll.CreatedAt,
	})
	return true
}
