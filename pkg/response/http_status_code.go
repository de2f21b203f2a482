package response

const (
	ErrCodeSuccess         = "SUCCESS"
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeEmptyQuestion   = "EMPTY_QUESTION"
	ErrCodeNotEnoughOption = "NOT_ENOUGH_OPTIONS"
	ErrCodePollNotFound    = "POLL_NOT_FOUND"
	ErrCodePollExpired     = "POLL_EXPIRED"
	ErrCodeInvalidOption   = "INVALID_OPTION"
	ErrCodeMissingDevice   = "MISSING_DEVICE_TOKEN"
	ErrCodeIPConflict      = "IP_CONFLICT"
	ErrCodeVoterNotFound   = "VOTE_NOT_FOUND"
	ErrCodeStorage         = "STORAGE_UNAVAILABLE"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// message
var msg = map[string]string{
	ErrCodeSuccess:         "success",
	ErrCodeInvalidRequest:  "Invalid request body.",
	ErrCodeEmptyQuestion:   "Question cannot be empty.",
	ErrCodeNotEnoughOption: "At least two valid options are required.",
	ErrCodePollNotFound:    "Poll not found or deleted.",
	ErrCodePollExpired:     "Poll has expired. Voting is closed.",
	ErrCodeInvalidOption:   "Invalid option selected.",
	ErrCodeMissingDevice:   "Missing device token.",
	ErrCodeIPConflict:      "IP already used for this poll by another voter.",
	ErrCodeVoterNotFound:   "No vote found for this device.",
	ErrCodeStorage:         "Poll storage is unavailable. Please retry.",
	ErrCodeRateLimited:     "Too many requests, please try again later.",
	ErrCodeInternal:        "Internal server error.",
}

// Msg returns the client-facing message of code
func Msg(code string) string {
	return msg[code]
}
