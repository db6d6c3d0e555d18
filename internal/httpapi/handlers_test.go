package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/matchday-backend/internal/auth"
	"github.com/DoyleJ11/matchday-backend/internal/gateway"
	"github.com/DoyleJ11/matchday-backend/internal/hub"
	"github.com/DoyleJ11/matchday-backend/internal/store"
	"github.com/DoyleJ11/matchday-backend/pkg/types"
)

const (
	agentToken  = "agent-token"
	viewerToken = "viewer-token"
	adminToken  = "admin-token"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	authorizer, err := auth.NewStaticFromSpecs(
		[]string{agentToken + ":agent-1:m1"},
		[]string{viewerToken + ":viewer-1"},
		[]string{adminToken + ":admin-1"},
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.New(zap.NewNop())
	st := store.New(ctx, h, nil, zap.NewNop())
	gw := gateway.New(st, authorizer, zap.NewNop())

	_, err = gw.RegisterMatch(ctx, adminToken, types.Snapshot{
		MatchID:  "m1",
		Team1:    types.TeamInfo{ID: "t1", Name: "Lions"},
		Team2:    types.TeamInfo{ID: "t2", Name: "Wolves"},
		Division: types.DivisionInfo{ID: "d1", Name: "Division 1"},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(SetupRoutes(gw, h, zap.NewNop(), 3*time.Second))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeSnapshot(t *testing.T, resp *http.Response) types.Snapshot {
	t.Helper()
	defer resp.Body.Close()
	var snap types.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	return snap
}

func TestGetMatch(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/matches/m1", viewerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decodeSnapshot(t, resp)
	require.Equal(t, "m1", snap.MatchID)
	require.Equal(t, "Lions", snap.Team1.Name)

	resp = doJSON(t, http.MethodGet, srv.URL+"/matches/missing", viewerToken, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/matches/m1", "", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMutationEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/matches/m1/status", agentToken, map[string]string{"status": "in_progress"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decodeSnapshot(t, resp)
	require.Equal(t, types.StatusInProgress, snap.Status)
	require.EqualValues(t, 1, snap.Version)

	resp = doJSON(t, http.MethodPost, srv.URL+"/matches/m1/score", agentToken, map[string]string{"team": "team1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap = decodeSnapshot(t, resp)
	require.Equal(t, 1, snap.ScoreTeam1)
	require.EqualValues(t, 2, snap.Version)

	resp = doJSON(t, http.MethodPost, srv.URL+"/matches/m1/cards", agentToken, map[string]string{"color": "yellow"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap = decodeSnapshot(t, resp)
	require.Equal(t, 1, snap.Cards.Yellow)
	require.EqualValues(t, 3, snap.Version)
}

func TestMutationEndpoints_Rejections(t *testing.T) {
	srv := newTestServer(t)

	// Viewers cannot mutate.
	resp := doJSON(t, http.MethodPost, srv.URL+"/matches/m1/score", viewerToken, map[string]string{"team": "team1"})
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Invalid payload values are bad requests, not silent no-ops.
	resp = doJSON(t, http.MethodPost, srv.URL+"/matches/m1/score", agentToken, map[string]string{"team": "team9"})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/matches/m1/status", agentToken, map[string]string{"status": "paused"})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegisterAndRemoveMatch(t *testing.T) {
	srv := newTestServer(t)

	snap := types.Snapshot{
		MatchID:  "m2",
		Team1:    types.TeamInfo{ID: "t3", Name: "Eagles"},
		Team2:    types.TeamInfo{ID: "t4", Name: "Sharks"},
		Division: types.DivisionInfo{ID: "d1", Name: "Division 1"},
	}

	resp := doJSON(t, http.MethodPost, srv.URL+"/matches", adminToken, snap)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeSnapshot(t, resp)
	require.Equal(t, types.StatusNotStarted, created.Status)

	resp = doJSON(t, http.MethodPost, srv.URL+"/matches", agentToken, snap)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/matches/m2", viewerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, srv.URL+"/matches/m2", adminToken, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/matches/m2", viewerToken, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
