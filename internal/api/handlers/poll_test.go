package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"poll-service/internal/api/middleware"
	"poll-service/internal/models"
	"poll-service/internal/repositories/memory"
	"poll-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	engine *gin.Engine
	now    time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	service := services.NewPollService(memory.NewPollRepository(), services.NewKeyedMutex(),
		services.WithClock(func() time.Time { return ts.now }),
	)

	ts.engine = gin.New()
	ts.engine.Use(middleware.Identity())
	NewPollHandler(service, "http://localhost:5173").RegisterRoutes(ts.engine.Group("/api"))
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func (ts *testServer) createPoll(t *testing.T, body map[string]interface{}) models.CreatePollResponse {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/polls", body, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.CreatePollResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func voter(device, ip string) map[string]string {
	return map[string]string{middleware.DeviceIDHeader: device, "X-Forwarded-For": ip}
}

func decodeVote(t *testing.T, w *httptest.ResponseRecorder) models.VoteResponse {
	t.Helper()
	var resp models.VoteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreatePoll(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.createPoll(t, map[string]interface{}{
		"question": "  Best editor?  ",
		"options":  []string{"vim", " ", "emacs", "nano"},
	})

	require.NotNil(t, resp.Poll)
	assert.Equal(t, "Best editor?", resp.Poll.Question)
	assert.Len(t, resp.Poll.Options, 3)
	assert.Equal(t, 0, resp.Poll.TotalVotes)
	assert.Nil(t, resp.Poll.ExpiresAt)
	assert.Equal(t, "http://localhost:5173/poll/"+resp.Poll.ID, resp.ShareLink)
}

func TestCreatePollValidation(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/polls", map[string]interface{}{"question": " ", "options": []string{"a", "b"}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Question cannot be empty.", decodeError(t, w).Message)

	w = ts.do(t, http.MethodPost, "/api/polls", map[string]interface{}{"question": "Q", "options": []string{"only"}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "At least two valid options are required.", decodeError(t, w).Message)

	w = ts.do(t, http.MethodPost, "/api/polls", "not an object", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPollNotFound(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/polls/missing", nil, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Poll not found or deleted.", decodeError(t, w).Message)
}

func TestVoteLifecycle(t *testing.T) {
	ts := newTestServer(t)
	poll := ts.createPoll(t, map[string]interface{}{"question": "Q", "options": []string{"A", "B"}}).Poll
	votePath := "/api/polls/" + poll.ID + "/vote"
	optionA, optionB := poll.Options[0].ID, poll.Options[1].ID

	w := ts.do(t, http.MethodPost, votePath, map[string]string{"optionId": optionA}, voter("d1", "203.0.113.1"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeVote(t, w)
	assert.Equal(t, "Vote accepted.", resp.Message)
	assert.Equal(t, "accepted", resp.Outcome)
	assert.Equal(t, 100.0, resp.Poll.Options[0].Percentage)

	w = ts.do(t, http.MethodPost, votePath, map[string]string{"optionId": optionA}, voter("d1", "203.0.113.1"))
	assert.Equal(t, "You already voted for this option.", decodeVote(t, w).Message)

	w = ts.do(t, http.MethodPost, votePath, map[string]string{"optionId": optionB}, voter("d1", "203.0.113.1"))
	resp = decodeVote(t, w)
	assert.Equal(t, "Vote updated.", resp.Message)
	assert.Equal(t, 1, resp.Poll.Options[1].Votes)
	assert.Equal(t, 0, resp.Poll.Options[0].Votes)

	w = ts.do(t, http.MethodPost, votePath, map[string]string{"optionId": optionA}, voter("d2", "203.0.113.1"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "IP already used for this poll by another voter.", decodeError(t, w).Message)

	w = ts.do(t, http.MethodPost, votePath, map[string]string{"optionId": optionA}, voter("  ", "203.0.113.2"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing device token.", decodeError(t, w).Message)

	w = ts.do(t, http.MethodPost, votePath, map[string]string{"optionId": "nope"}, voter("d3", "203.0.113.3"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid option selected.", decodeError(t, w).Message)

	w = ts.do(t, http.MethodPost, votePath, nil, voter("d3", "203.0.113.3"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid option selected.", decodeError(t, w).Message)

	w = ts.do(t, http.MethodDelete, votePath, nil, voter("d1", "203.0.113.1"))
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeVote(t, w)
	assert.Equal(t, "Vote removed.", resp.Message)
	assert.Equal(t, 0, resp.Poll.TotalVotes)

	w = ts.do(t, http.MethodDelete, votePath, nil, voter("d1", "203.0.113.1"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No vote found for this device.", decodeError(t, w).Message)
}

func TestVoteOnExpiredPoll(t *testing.T) {
	ts := newTestServer(t)
	poll := ts.createPoll(t, map[string]interface{}{
		"question":         "Q",
		"options":          []string{"A", "B"},
		"expiresInMinutes": 5,
	}).Poll
	require.NotNil(t, poll.ExpiresAt)

	ts.now = ts.now.Add(6 * time.Minute)

	w := ts.do(t, http.MethodPost, "/api/polls/"+poll.ID+"/vote", map[string]string{"optionId": poll.Options[0].ID}, voter("d1", "1.1.1.1"))
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, "Poll has expired. Voting is closed.", decodeError(t, w).Message)

	w = ts.do(t, http.MethodDelete, "/api/polls/"+poll.ID+"/vote", nil, voter("d1", "1.1.1.1"))
	assert.Equal(t, http.StatusGone, w.Code)

	w = ts.do(t, http.MethodGet, "/api/polls/"+poll.ID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.PollResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Poll.IsExpired)
}

func TestDeletePoll(t *testing.T) {
	ts := newTestServer(t)
	poll := ts.createPoll(t, map[string]interface{}{"question": "Q", "options": []string{"A", "B"}}).Poll

	w := ts.do(t, http.MethodDelete, "/api/polls/"+poll.ID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Poll deleted."}`, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/polls/"+poll.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPost, "/api/polls/"+poll.ID+"/vote", map[string]string{"optionId": poll.Options[0].ID}, voter("d1", "1.1.1.1"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/polls/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/health", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"dbState":"connected"}`, w.Body.String())
}
