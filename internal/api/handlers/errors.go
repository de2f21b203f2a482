package handlers

import (
	"errors"
	"net/http"

	"poll-service/internal/services"
	"poll-service/internal/voting"
	"poll-service/pkg/response"
)

// Status is the transport presentation of an error kind
type Status struct {
	HTTP    int
	Code    string
	Message string
}

var errorTable = []struct {
	err    error
	status int
	code   string
}{
	{services.ErrEmptyQuestion, http.StatusBadRequest, response.ErrCodeEmptyQuestion},
	{services.ErrNotEnoughOptions, http.StatusBadRequest, response.ErrCodeNotEnoughOption},
	{voting.ErrPollNotFound, http.StatusNotFound, response.ErrCodePollNotFound},
	{voting.ErrPollExpired, http.StatusGone, response.ErrCodePollExpired},
	{voting.ErrInvalidOption, http.StatusBadRequest, response.ErrCodeInvalidOption},
	{voting.ErrMissingIdentity, http.StatusBadRequest, response.ErrCodeMissingDevice},
	{voting.ErrIPConflict, http.StatusConflict, response.ErrCodeIPConflict},
	{voting.ErrVoterNotFound, http.StatusNotFound, response.ErrCodeVoterNotFound},
	{voting.ErrPersistence, http.StatusServiceUnavailable, response.ErrCodeStorage},
}

// StatusFromError maps a service error to its status. Unknown errors become
// a 500 carrying fallback as the message.
func StatusFromError(err error, fallback string) Status {
	for _, entry := range errorTable {
		if errors.Is(err, entry.err) {
			return Status{HTTP: entry.status, Code: entry.code, Message: response.Msg(entry.code)}
		}
	}
	if fallback == "" {
		fallback = response.Msg(response.ErrCodeInternal)
	}
	return Status{HTTP: http.StatusInternalServerError, Code: response.ErrCodeInternal, Message: fallback}
}

// OutcomeMessage is the confirmation sent for a reconciled vote
func OutcomeMessage(outcome voting.Outcome) string {
	switch outcome {
	case voting.OutcomeAccepted:
		return "Vote accepted."
	case voting.OutcomeSwitched:
		return "Vote updated."
	case voting.OutcomeUnchanged:
		return "You already voted for this option."
	case voting.OutcomeRemoved:
		return "Vote removed."
	default:
		return ""
	}
}
