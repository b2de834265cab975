package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamsync/internal/app/archive"
	"teamsync/internal/app/identity"
	"teamsync/internal/app/realtime"
	"teamsync/internal/app/workspace"
	"teamsync/internal/configs"
	"teamsync/internal/pkg/auth/jwt"
	"teamsync/internal/pkg/errs"
	"teamsync/internal/pkg/resp"
)

type fakeArchiver struct {
	archived []workspace.Snapshot
	err      error
}

func (f *fakeArchiver) Archive(_ context.Context, snap workspace.Snapshot, at time.Time) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.archived = append(f.archived, snap)
	return archive.ObjectKey(at), nil
}

func (f *fakeArchiver) PresignDownload(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://archive.example/" + key + "?sig=1", nil
}

type testServer struct {
	*httptest.Server
	deps *AppDeps
}

func newTestServer(t *testing.T, archiver archive.Archiver) *testServer {
	t.Helper()

	store := workspace.NewStore(workspace.DefaultSeed())
	issuer := jwt.NewIssuer("test-secret", time.Hour)
	hub := realtime.NewHub(realtime.HubConfig{
		Store:    store,
		Resolver: identity.NewResolver(store),
		Tokens:   issuer,
	})
	go hub.Run()

	deps := &AppDeps{
		Hub:      hub,
		Config:   &configs.AppConfig{Environment: "development"},
		Issuer:   issuer,
		Archiver: archiver,
		Clock: func() time.Time {
			return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		},
	}

	router, stop := Router(deps)
	srv := httptest.NewServer(router)
	t.Cleanup(stop)
	t.Cleanup(srv.Close)
	t.Cleanup(hub.Shutdown)

	return &testServer{Server: srv, deps: deps}
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func send(t *testing.T, conn *websocket.Conn, eventType realtime.EventType, payload any) {
	t.Helper()

	raw, err := realtime.EncodeEnvelope(eventType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))
}

func read(t *testing.T, conn *websocket.Conn, want realtime.EventType, into any) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var env realtime.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	require.Equal(t, want, env.Type, "payload: %s", env.Payload)

	if into != nil {
		require.NoError(t, json.Unmarshal(env.Payload, into))
	}
}

func readSnapshot(t *testing.T, conn *websocket.Conn) workspace.Snapshot {
	t.Helper()

	var snap workspace.Snapshot
	read(t, conn, realtime.EventWorkspaceUpdate, &snap)
	assert.Empty(t, snap.DanglingReferences())
	return snap
}

// joinAs sends user:join and returns the user id and token from the private replies.
func joinAs(t *testing.T, conn *websocket.Conn, name, userID string) (string, string) {
	t.Helper()

	send(t, conn, realtime.EventUserJoin, realtime.JoinPayload{Name: name, Avatar: name + ".png", UserID: userID})

	var id, token string
	read(t, conn, realtime.EventUserID, &id)
	read(t, conn, realtime.EventUserToken, &token)
	readSnapshot(t, conn)

	return id, token
}

func (s *testServer) do(t *testing.T, method, path, token string) (int, resp.JSONResponse) {
	t.Helper()

	req, err := http.NewRequest(method, s.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var body resp.JSONResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))

	return res.StatusCode, body
}

func TestTwoClientsShareOneWorkspace(t *testing.T) {
	srv := newTestServer(t, nil)

	ada := srv.dial(t)
	seed := readSnapshot(t, ada)
	require.Len(t, seed.Tasks, 4)

	adaID, _ := joinAs(t, ada, "Ada", "")

	bob := srv.dial(t)
	snap := readSnapshot(t, bob)
	_, ok := snap.FindUser(adaID)
	require.True(t, ok)

	bobID, _ := joinAs(t, bob, "Bob", "")
	readSnapshot(t, ada)

	send(t, ada, realtime.EventTaskCreate, realtime.TaskCreatePayload{Title: "Review PR", AssigneeID: bobID})
	for _, conn := range []*websocket.Conn{ada, bob} {
		snap := readSnapshot(t, conn)
		require.Len(t, snap.Tasks, 5)
		task := snap.Tasks[4]
		assert.Equal(t, "Review PR", task.Title)
		assert.Equal(t, adaID, task.CreatedBy)
		assert.Equal(t, bobID, task.AssigneeID)
		assert.Equal(t, workspace.TaskTodo, task.Status)
	}

	send(t, ada, realtime.EventUserTyping, true)
	var typing realtime.TypingPayload
	read(t, bob, realtime.EventUserTyping, &typing)
	assert.Equal(t, realtime.TypingPayload{UserID: adaID, IsTyping: true}, typing)

	send(t, ada, realtime.EventMessageSend, realtime.MessageSendPayload{Text: "Bob, can you take this?"})
	for _, conn := range []*websocket.Conn{ada, bob} {
		// the typing signal is not echoed to its origin, so the update comes first.
		snap := readSnapshot(t, conn)
		last := snap.Messages[len(snap.Messages)-1]
		assert.Equal(t, adaID, last.UserID)
	}

	require.NoError(t, ada.Close())

	read(t, bob, realtime.EventUserTyping, &typing)
	assert.Equal(t, realtime.TypingPayload{UserID: adaID}, typing)

	snap = readSnapshot(t, bob)
	u, ok := snap.FindUser(adaID)
	require.True(t, ok)
	assert.Equal(t, workspace.UserAway, u.Status)
	assert.Len(t, snap.Tasks, 5)

	again := srv.dial(t)
	readSnapshot(t, again)
	send(t, again, realtime.EventUserJoin, realtime.JoinPayload{Name: "Ada"})
	var id string
	read(t, again, realtime.EventUserID, &id)
	assert.Equal(t, adaID, id)
}

func TestMalformedFrameOnlyReachesSender(t *testing.T) {
	srv := newTestServer(t, nil)

	ada := srv.dial(t)
	readSnapshot(t, ada)
	joinAs(t, ada, "Ada", "")

	bob := srv.dial(t)
	readSnapshot(t, bob)

	send(t, ada, realtime.EventTaskCreate, realtime.TaskCreatePayload{Title: ""})
	var p realtime.ErrorPayload
	read(t, ada, realtime.EventError, &p)
	assert.Equal(t, errs.ErrTitleRequired, p.Code)

	send(t, ada, realtime.EventMessageSend, realtime.MessageSendPayload{Text: "after the error"})
	readSnapshot(t, ada)
	snap := readSnapshot(t, bob)
	assert.Equal(t, "after the error", snap.Messages[len(snap.Messages)-1].Text)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := srv.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, body.Code)
}

func TestRouterStopIsIdempotent(t *testing.T) {
	srv := newTestServer(t, nil)
	router, stop := Router(srv.deps)

	stop()
	stop()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetWorkspace(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := srv.do(t, http.MethodGet, "/api/workspace", "")
	require.Equal(t, http.StatusOK, status)

	raw, err := json.Marshal(body.Data)
	require.NoError(t, err)
	var snap workspace.Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	assert.Len(t, snap.Tasks, 4)
}

func TestGetMeRequiresToken(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := srv.do(t, http.MethodGet, "/api/me", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, errs.ErrUnauthorized, body.Code)

	status, _ = srv.do(t, http.MethodGet, "/api/me", "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestGetMeWithJoinToken(t *testing.T) {
	srv := newTestServer(t, nil)

	conn := srv.dial(t)
	readSnapshot(t, conn)
	adaID, token := joinAs(t, conn, "Ada", "")

	status, body := srv.do(t, http.MethodGet, "/api/me", token)
	require.Equal(t, http.StatusOK, status)

	data, ok := body.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, adaID, data["id"])
	assert.Equal(t, "Ada", data["name"])
}

func TestGetMeUnknownUser(t *testing.T) {
	srv := newTestServer(t, nil)

	token, err := srv.deps.Issuer.Issue("user-ghost", "Ghost")
	require.NoError(t, err)

	status, body := srv.do(t, http.MethodGet, "/api/me", token)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, errs.ErrUserNotFound, body.Code)
}

func TestArchiveWorkspace(t *testing.T) {
	archiver := &fakeArchiver{}
	srv := newTestServer(t, archiver)

	token, err := srv.deps.Issuer.Issue("user-1", "Ada")
	require.NoError(t, err)

	status, body := srv.do(t, http.MethodPost, "/api/workspace/archive", token)
	require.Equal(t, http.StatusOK, status, body.Message)

	data, ok := body.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "snapshots/2024/05/01/workspace-20240501T120000.000Z.json", data["key"])
	assert.Contains(t, data["url"], "sig=1")
	assert.Equal(t, "2024-05-01T12:15:00Z", data["expiresAt"])
	require.Len(t, archiver.archived, 1)
	assert.Len(t, archiver.archived[0].Tasks, 4)
}

func TestArchiveWorkspaceErrors(t *testing.T) {
	disabled := newTestServer(t, nil)
	token, err := disabled.deps.Issuer.Issue("user-1", "Ada")
	require.NoError(t, err)

	status, body := disabled.do(t, http.MethodPost, "/api/workspace/archive", token)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, errs.ErrArchiveDisabled, body.Code)

	failing := newTestServer(t, &fakeArchiver{err: errors.New("bucket gone")})
	token, err = failing.deps.Issuer.Issue("user-1", "Ada")
	require.NoError(t, err)

	status, body = failing.do(t, http.MethodPost, "/api/workspace/archive", token)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, errs.ErrArchiveFailed, body.Code)
}
