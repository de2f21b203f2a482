package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"poll-service/internal/api/middleware"
	"poll-service/internal/models"
	"poll-service/internal/services"
	"poll-service/pkg/response"

	"github.com/gin-gonic/gin"
)

const healthPingTimeout = 2 * time.Second

type PollHandler struct {
	pollService   *services.PollService
	clientBaseURL string
}

func NewPollHandler(pollService *services.PollService, clientBaseURL string) *PollHandler {
	return &PollHandler{pollService: pollService, clientBaseURL: clientBaseURL}
}

// RegisterRoutes maps HTTP methods to handler functions
func (h *PollHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/health", h.Health)

	polls := r.Group("/polls")
	{
		polls.POST("", h.CreatePoll)
		polls.GET("/:pollId", h.GetPoll)
		polls.DELETE("/:pollId", h.DeletePoll)
		polls.POST("/:pollId/vote", h.CastVote)
		polls.DELETE("/:pollId/vote", h.RemoveVote)
	}
}

// Health godoc
// @Summary Health check
// @Description Reports liveness and the state of the poll store
// @Tags health
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /health [get]
func (h *PollHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()

	state := "connected"
	if err := h.pollService.Ping(ctx); err != nil {
		slog.Warn("Poll store ping failed", "error", err)
		state = "disconnected"
	}
	c.JSON(http.StatusOK, models.HealthResponse{OK: true, DBState: state})
}

// CreatePoll godoc
// @Summary Create a poll
// @Description Create a poll from a question and at least two options. Blank options are dropped.
// @Tags polls
// @Accept json
// @Produce json
// @Param X-Device-Id header string false "Creator device token"
// @Param request body models.CreatePollRequest true "Poll creation data"
// @Success 201 {object} models.CreatePollResponse
// @Failure 400 {object} models.ErrorResponse "Empty question or fewer than two options"
// @Failure 503 {object} models.ErrorResponse "Poll storage unavailable"
// @Router /polls [post]
func (h *PollHandler) CreatePoll(c *gin.Context) {
	var req models.CreatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    response.ErrCodeInvalidRequest,
			Message: response.Msg(response.ErrCodeInvalidRequest),
		})
		return
	}

	poll, err := h.pollService.CreatePoll(c.Request.Context(), services.CreatePollInput{
		Question:         req.Question,
		Options:          req.Options,
		ExpiresInMinutes: req.ExpiresInMinutes,
		CreatorDeviceID:  middleware.GetDeviceID(c),
	})
	if err != nil {
		writeError(c, err, "Failed to create poll.")
		return
	}

	c.JSON(http.StatusCreated, models.CreatePollResponse{
		Poll:      poll.ToPublic(poll.CreatedAt),
		ShareLink: h.clientBaseURL + "/poll/" + poll.ID,
	})
}

// GetPoll godoc
// @Summary Get a poll
// @Description Get the public view of a poll with vote counts and percentages
// @Tags polls
// @Produce json
// @Param pollId path string true "Poll ID"
// @Success 200 {object} models.PollResponse
// @Failure 404 {object} models.ErrorResponse "Poll not found or deleted"
// @Router /polls/{pollId} [get]
func (h *PollHandler) GetPoll(c *gin.Context) {
	view, err := h.pollService.GetPublicPoll(c.Request.Context(), c.Param("pollId"))
	if err != nil {
		writeError(c, err, "Failed to load poll.")
		return
	}
	c.JSON(http.StatusOK, models.PollResponse{Poll: view})
}

// CastVote godoc
// @Summary Cast or change a vote
// @Description Vote for an option. Voting again for another option switches the vote.
// @Tags votes
// @Accept json
// @Produce json
// @Param pollId path string true "Poll ID"
// @Param X-Device-Id header string true "Voter device token"
// @Param request body models.CastVoteRequest true "Chosen option"
// @Success 200 {object} models.VoteResponse
// @Failure 400 {object} models.ErrorResponse "Invalid option or missing device token"
// @Failure 404 {object} models.ErrorResponse "Poll not found or deleted"
// @Failure 409 {object} models.ErrorResponse "IP already used by another voter"
// @Failure 410 {object} models.ErrorResponse "Poll expired"
// @Failure 503 {object} models.ErrorResponse "Poll storage unavailable"
// @Router /polls/{pollId}/vote [post]
func (h *PollHandler) CastVote(c *gin.Context) {
	// A missing or malformed body leaves OptionID empty, which is reported
	// as an invalid option once the poll itself has been checked.
	var req models.CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Debug("Ignoring unreadable vote body", "error", err)
	}

	result, err := h.pollService.CastVote(c.Request.Context(), services.VoteInput{
		PollID:   c.Param("pollId"),
		OptionID: req.OptionID,
		DeviceID: middleware.GetDeviceID(c),
		IP:       middleware.GetClientIP(c),
	})
	if err != nil {
		writeError(c, err, "Failed to cast vote.")
		return
	}
	writeVote(c, result)
}

// RemoveVote godoc
// @Summary Remove a vote
// @Description Withdraw the vote of the calling device
// @Tags votes
// @Produce json
// @Param pollId path string true "Poll ID"
// @Param X-Device-Id header string true "Voter device token"
// @Success 200 {object} models.VoteResponse
// @Failure 400 {object} models.ErrorResponse "Missing device token"
// @Failure 404 {object} models.ErrorResponse "Poll or vote not found"
// @Failure 410 {object} models.ErrorResponse "Poll expired"
// @Failure 503 {object} models.ErrorResponse "Poll storage unavailable"
// @Router /polls/{pollId}/vote [delete]
func (h *PollHandler) RemoveVote(c *gin.Context) {
	result, err := h.pollService.RemoveVote(c.Request.Context(), c.Param("pollId"), middleware.GetDeviceID(c))
	if err != nil {
		writeError(c, err, "Failed to remove vote.")
		return
	}
	writeVote(c, result)
}

// DeletePoll godoc
// @Summary Delete a poll
// @Description Soft-delete a poll and notify its live viewers
// @Tags polls
// @Produce json
// @Param pollId path string true "Poll ID"
// @Success 200 {object} models.MessageResponse
// @Failure 404 {object} models.ErrorResponse "Poll not found"
// @Failure 503 {object} models.ErrorResponse "Poll storage unavailable"
// @Router /polls/{pollId} [delete]
func (h *PollHandler) DeletePoll(c *gin.Context) {
	if err := h.pollService.DeletePoll(c.Request.Context(), c.Param("pollId")); err != nil {
		writeError(c, err, "Failed to delete poll.")
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Poll deleted."})
}

func writeVote(c *gin.Context, result *services.VoteResult) {
	c.JSON(http.StatusOK, models.VoteResponse{
		Message: OutcomeMessage(result.Outcome),
		Outcome: result.Outcome.String(),
		Poll:    result.Poll,
	})
}

func writeError(c *gin.Context, err error, fallback string) {
	status := StatusFromError(err, fallback)
	if status.HTTP >= http.StatusInternalServerError {
		slog.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.Error(err)
	c.JSON(status.HTTP, models.ErrorResponse{Code: status.Code, Message: status.Message})
}
