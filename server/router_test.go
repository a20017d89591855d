package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gamerooms/models"
	"gamerooms/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixedRooms int

func (f fixedRooms) ActiveRooms() int { return int(f) }

func setupRouter(t *testing.T) (*gin.Engine, *service.MockLedgerService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ledger := new(service.MockLedgerService)
	return SetupRouter(ledger, fixedRooms(2)), ledger
}

func serve(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	r, _ := setupRouter(t)

	w := serve(r, "/healthz")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","active_rooms":2}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := setupRouter(t)

	w := serve(r, "/metrics")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestLeaderboard(t *testing.T) {
	r, ledger := setupRouter(t)
	ledger.On("TopN", mock.Anything, 3).Return(&models.Leaderboard{
		Entries: []models.LeaderboardEntry{{Rank: 1, UserID: "user-1", Points: 50}},
		AsOf:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Age:     42 * time.Second,
	}, nil)

	w := serve(r, "/leaderboard?n=3")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Entries    []models.LeaderboardEntry `json:"entries"`
		AgeSeconds int64                     `json:"age_seconds"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Entries, 1)
	assert.Equal(t, "user-1", body.Entries[0].UserID)
	assert.Equal(t, int64(42), body.AgeSeconds)
}

func TestLeaderboard_InvalidSize(t *testing.T) {
	r, ledger := setupRouter(t)

	for _, q := range []string{"0", "-1", "abc", "101"} {
		w := serve(r, "/leaderboard?n="+q)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
	ledger.AssertNotCalled(t, "TopN", mock.Anything, mock.Anything)
}

func TestLeaderboard_Error(t *testing.T) {
	r, ledger := setupRouter(t)
	ledger.On("TopN", mock.Anything, 10).Return(nil, errors.New("db down"))

	w := serve(r, "/leaderboard")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPoints(t *testing.T) {
	r, ledger := setupRouter(t)
	ledger.On("Balance", mock.Anything, "user-7").Return(int64(35), nil)

	w := serve(r, "/points/user-7")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"user-7","points":35}`, w.Body.String())
}
