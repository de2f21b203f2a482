package models

// CreatePollRequest defines the input for creating a poll
type CreatePollRequest struct {
	Question         string   `json:"question"`
	Options          []string `json:"options"`
	ExpiresInMinutes *float64 `json:"expiresInMinutes"`
}

// CreatePollResponse is returned after a poll was stored
type CreatePollResponse struct {
	Poll      *PublicPoll `json:"poll"`
	ShareLink string      `json:"shareLink"`
}

// CastVoteRequest defines the input for casting or changing a vote
type CastVoteRequest struct {
	OptionID string `json:"optionId"`
}

// PollResponse wraps a single public poll
type PollResponse struct {
	Poll *PublicPoll `json:"poll"`
}

// VoteResponse is returned by vote and unvote
type VoteResponse struct {
	Message string      `json:"message"`
	Outcome string      `json:"outcome"`
	Poll    *PublicPoll `json:"poll"`
}
