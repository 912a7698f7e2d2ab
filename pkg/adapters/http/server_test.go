package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	canvasshttp "github.com/aretw0/canvass/pkg/adapters/http"
	"github.com/aretw0/canvass/pkg/adapters/memory"
	"github.com/aretw0/canvass/pkg/domain"
	"github.com/aretw0/canvass/pkg/session"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	loader := memory.NewLoader(map[string][]domain.Question{
		"signup": {
			{ID: "name", Type: domain.QuestionString, Prompt: "Your name?"},
			{ID: "age", Type: domain.QuestionInteger},
			{ID: "token", Type: domain.QuestionString, Sensitive: true, EnvVar: "SIGNUP_TOKEN"},
		},
	})
	manager := session.NewManager(memory.NewStore())
	server := canvasshttp.NewServer(loader, manager, "signup")
	return canvasshttp.NewHandler(server)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) canvasshttp.SessionState {
	t.Helper()
	var state canvasshttp.SessionState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	return state
}

func TestCreateSession(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, "POST", "/sessions", canvasshttp.CreateSessionRequest{SessionID: "s1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	state := decodeState(t, rec)
	assert.Equal(t, "s1", state.SessionID)
	assert.False(t, state.Completed)
	require.NotNil(t, state.CurrentQuestion)
	assert.Equal(t, "name", state.CurrentQuestion.ID)

	// Creating the same session again conflicts.
	rec = doJSON(t, handler, "POST", "/sessions", canvasshttp.CreateSessionRequest{SessionID: "s1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateSessionValidation(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, "POST", "/sessions", canvasshttp.CreateSessionRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, handler, "POST", "/sessions", canvasshttp.CreateSessionRequest{SessionID: "s1", Workflow: "ghost"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnswerFlow(t *testing.T) {
	t.Setenv("SIGNUP_TOKEN", "tok-123")
	handler := newTestHandler(t)

	rec := doJSON(t, handler, "POST", "/sessions", canvasshttp.CreateSessionRequest{SessionID: "flow"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, handler, "POST", "/sessions/flow/answer", canvasshttp.AnswerRequest{Type: "string", Value: "Alice"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	state := decodeState(t, rec)
	require.NotNil(t, state.CurrentQuestion)
	assert.Equal(t, "age", state.CurrentQuestion.ID)
	assert.Equal(t, 1, state.AnsweredCount)

	// An incompatible value is rejected without moving the session.
	rec = doJSON(t, handler, "POST", "/sessions/flow/answer", canvasshttp.AnswerRequest{Type: "integer", Value: "not a number"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, handler, "GET", "/sessions/flow", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state = decodeState(t, rec)
	require.NotNil(t, state.CurrentQuestion)
	assert.Equal(t, "age", state.CurrentQuestion.ID)

	rec = doJSON(t, handler, "POST", "/sessions/flow/answer", canvasshttp.AnswerRequest{Type: "integer", Value: 30})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, "POST", "/sessions/flow/answer", canvasshttp.AnswerRequest{Type: "string", Value: "tok-123"})
	require.Equal(t, http.StatusOK, rec.Code)
	state = decodeState(t, rec)
	assert.True(t, state.Completed)
	assert.Nil(t, state.CurrentQuestion)
}

func TestReanswer(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, "POST", "/sessions", canvasshttp.CreateSessionRequest{SessionID: "rev"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, handler, "POST", "/sessions/rev/answer", canvasshttp.AnswerRequest{Type: "string", Value: "Alice"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, "PUT", "/sessions/rev/answers/name", canvasshttp.AnswerRequest{Type: "string", Value: "Bob"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	state := decodeState(t, rec)
	assert.Equal(t, 2, state.AnsweredCount, "revision appends a record")
	require.NotNil(t, state.CurrentQuestion)
	assert.Equal(t, "age", state.CurrentQuestion.ID, "revision must not move the position")

	// Revising a never-answered question fails.
	rec = doJSON(t, handler, "PUT", "/sessions/rev/answers/age", canvasshttp.AnswerRequest{Type: "integer", Value: 30})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestFeedbackEndpointMasksSecrets(t *testing.T) {
	t.Setenv("SIGNUP_TOKEN", "super-secret")
	handler := newTestHandler(t)

	doJSON(t, handler, "POST", "/sessions", canvasshttp.CreateSessionRequest{SessionID: "sec"})
	doJSON(t, handler, "POST", "/sessions/sec/answer", canvasshttp.AnswerRequest{Type: "string", Value: "Alice"})
	doJSON(t, handler, "POST", "/sessions/sec/answer", canvasshttp.AnswerRequest{Type: "integer", Value: 30})
	rec := doJSON(t, handler, "POST", "/sessions/sec/answer", canvasshttp.AnswerRequest{Type: "string", Value: "super-secret"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, "GET", "/sessions/sec/feedback", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "super-secret")
	assert.Contains(t, rec.Body.String(), "secret:SIGNUP_TOKEN")

	var history []domain.Feedback
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Len(t, history, 3)
}

func TestSessionNotFound(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, "GET", "/sessions/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, handler, "POST", "/sessions/ghost/answer", canvasshttp.AnswerRequest{Type: "string", Value: "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelSession(t *testing.T) {
	handler := newTestHandler(t)

	doJSON(t, handler, "POST", "/sessions", canvasshttp.CreateSessionRequest{SessionID: "gone"})
	rec := doJSON(t, handler, "DELETE", "/sessions/gone", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, handler, "GET", "/sessions/gone", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSessions(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, "GET", "/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	doJSON(t, handler, "POST", "/sessions", canvasshttp.CreateSessionRequest{SessionID: "a"})
	doJSON(t, handler, "POST", "/sessions", canvasshttp.CreateSessionRequest{SessionID: "b"})

	rec = doJSON(t, handler, "GET", "/sessions", nil)
	var ids []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ids))
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestHealth(t *testing.T) {
	handler := newTestHandler(t)
	rec := doJSON(t, handler, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
