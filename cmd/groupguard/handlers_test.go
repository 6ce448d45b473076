package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gooseontheloose/Group-Guard-for-VRChat-sub004/automod"
	"github.com/gooseontheloose/Group-Guard-for-VRChat-sub004/presence"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	srv, err := NewServer(nil, Config{
		LogRelayHost:  "ws://localhost:1",
		DirectoryHost: "http://localhost:1",
	})
	require.NoError(t, err)
	return srv
}

func doJSON(srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echoContentType, echoJSON)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

const (
	echoContentType = "Content-Type"
	echoJSON        = "application/json"
)

func TestHealthCheck(t *testing.T) {
	assert := assert.New(t)

	srv := testServer(t)
	rec := doJSON(srv, http.MethodGet, "/_health", nil)
	assert.Equal(http.StatusOK, rec.Code)

	var status HealthStatus
	assert.NoError(json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal("ok", status.Status)
}

func TestRuleCRUD(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	srv := testServer(t)

	rule := automod.Rule{
		Name:    "no slurs",
		Type:    automod.RuleKeywordBlock,
		Enabled: true,
		Keyword: &automod.KeywordBlockConfig{
			Keywords:  []string{"bad"},
			MatchMode: automod.MatchWholeWord,
			ScanBio:   true,
		},
	}
	rec := doJSON(srv, http.MethodPut, "/api/rules/r1", rule)
	require.Equal(http.StatusOK, rec.Code)

	rec = doJSON(srv, http.MethodGet, "/api/rules/r1", nil)
	require.Equal(http.StatusOK, rec.Code)
	var got automod.Rule
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal("no slurs", got.Name)
	assert.Equal(automod.ActionReject, got.Action)

	rec = doJSON(srv, http.MethodGet, "/api/rules", nil)
	require.Equal(http.StatusOK, rec.Code)
	var list RuleList
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(list.Rules, 1)

	rec = doJSON(srv, http.MethodDelete, "/api/rules/r1", nil)
	assert.Equal(http.StatusNoContent, rec.Code)

	rec = doJSON(srv, http.MethodGet, "/api/rules/r1", nil)
	assert.Equal(http.StatusNotFound, rec.Code)
}

func TestPutRuleRejectsMissingConfig(t *testing.T) {
	assert := assert.New(t)

	srv := testServer(t)
	rule := automod.Rule{
		Name:    "broken",
		Type:    automod.RuleKeywordBlock,
		Enabled: true,
	}
	rec := doJSON(srv, http.MethodPut, "/api/rules/r1", rule)
	assert.Equal(http.StatusBadRequest, rec.Code)
}

func TestEvaluateRecordsInterception(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	srv := testServer(t)

	rule := automod.Rule{
		Name:    "no slurs",
		Type:    automod.RuleKeywordBlock,
		Enabled: true,
		Keyword: &automod.KeywordBlockConfig{
			Keywords:  []string{"bad"},
			MatchMode: automod.MatchWholeWord,
			ScanBio:   true,
		},
	}
	rec := doJSON(srv, http.MethodPut, "/api/rules/r1", rule)
	require.Equal(http.StatusOK, rec.Code)

	rec = doJSON(srv, http.MethodPost, "/api/evaluate", automod.Candidate{
		ID:          "u_1",
		DisplayName: "Alice",
		Bio:         "a bad profile",
	})
	require.Equal(http.StatusOK, rec.Code)
	var dec automod.Decision
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &dec))
	assert.Equal(automod.DecisionReject, dec.Action)

	rec = doJSON(srv, http.MethodGet, "/api/interceptions", nil)
	require.Equal(http.StatusOK, rec.Code)
	var il InterceptionList
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &il))
	require.Len(il.Entries, 1)
	assert.Equal("u_1", il.Entries[0].SubjectID)
	assert.EqualValues(1, il.Total)

	rec = doJSON(srv, http.MethodDelete, "/api/interceptions/1", nil)
	assert.Equal(http.StatusNoContent, rec.Code)

	rec = doJSON(srv, http.MethodDelete, "/api/interceptions/1", nil)
	assert.Equal(http.StatusNotFound, rec.Code)
}

func TestEvaluateAllowedNotRecorded(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	srv := testServer(t)

	rec := doJSON(srv, http.MethodPost, "/api/evaluate", automod.Candidate{ID: "u_1", Bio: "all good"})
	require.Equal(http.StatusOK, rec.Code)
	var dec automod.Decision
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &dec))
	assert.Equal(automod.DecisionAllow, dec.Action)

	rec = doJSON(srv, http.MethodGet, "/api/interceptions", nil)
	var il InterceptionList
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &il))
	assert.Empty(il.Entries)
}

func TestOccupancyAndKick(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	srv := testServer(t)
	srv.tracker.Apply(presence.Event{Joined: &presence.JoinedEvent{DisplayName: "Alice", SubjectID: "u_1"}})
	srv.tracker.Apply(presence.Event{EntityUpdated: &presence.EntityUpdatedEvent{EntityID: "u_1", DisplayName: "Alice"}})

	rec := doJSON(srv, http.MethodGet, "/api/occupancy", nil)
	require.Equal(http.StatusOK, rec.Code)
	var snap presence.Snapshot
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(snap.LiveEntities, 1)
	assert.Equal(presence.StatusActive, snap.LiveEntities[0].Status)

	rec = doJSON(srv, http.MethodPost, "/api/occupants/u_1/kick", nil)
	assert.Equal(http.StatusNoContent, rec.Code)

	rec = doJSON(srv, http.MethodPost, "/api/occupants/u_missing/kick", nil)
	assert.Equal(http.StatusNotFound, rec.Code)
}
