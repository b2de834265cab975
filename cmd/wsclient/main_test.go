package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamsync/internal/app/client"
	"teamsync/internal/app/realtime"
	"teamsync/internal/app/workspace"
)

type recordingEmitter struct {
	types    []realtime.EventType
	payloads []any
}

func (e *recordingEmitter) Emit(eventType realtime.EventType, payload any) error {
	e.types = append(e.types, eventType)
	e.payloads = append(e.payloads, payload)
	return nil
}

func (e *recordingEmitter) Close() error { return nil }

func connected(t *testing.T) (*client.Reconciler, *recordingEmitter) {
	t.Helper()

	r := client.NewReconciler(&client.MemoryStorage{})
	e := &recordingEmitter{}
	require.NoError(t, r.OnConnect(e))
	return r, e
}

func TestExecuteMapsCommandsToIntents(t *testing.T) {
	r, e := connected(t)
	var out bytes.Buffer

	for _, line := range []string{
		"/login Ada ada.png",
		"/status do-not-disturb",
		"/task Write docs | for the API",
		"/move task-1 done",
		"/assign task-1",
		"hello there",
		"   ",
	} {
		quit, err := execute(r, &out, line)
		require.NoError(t, err, line)
		assert.False(t, quit)
	}

	assert.Equal(t, []realtime.EventType{
		realtime.EventUserJoin,
		realtime.EventUserStatus,
		realtime.EventTaskCreate,
		realtime.EventTaskMove,
		realtime.EventTaskUpdate,
		realtime.EventMessageSend,
	}, e.types)

	assert.Equal(t, realtime.TaskCreatePayload{Title: "Write docs", Description: "for the API"}, e.payloads[2])

	patch, ok := e.payloads[4].(realtime.TaskUpdatePayload)
	require.True(t, ok)
	require.NotNil(t, patch.AssigneeID)
	assert.Empty(t, *patch.AssigneeID)
}

func TestExecuteUsageErrors(t *testing.T) {
	r, e := connected(t)
	var out bytes.Buffer

	for _, line := range []string{"/login", "/move task-1", "/assign", "/frobnicate"} {
		_, err := execute(r, &out, line)
		assert.Error(t, err, line)
	}
	assert.Empty(t, e.types)
}

func TestExecuteQuitAndBoard(t *testing.T) {
	r, _ := connected(t)
	require.NoError(t, r.ApplySnapshot(workspace.Snapshot{Tasks: []workspace.Task{
		{ID: "task-1", Title: "Plan", Status: workspace.TaskInProgress, AssigneeID: "user-1"},
	}}))

	var out bytes.Buffer
	quit, err := execute(r, &out, "/board")
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Contains(t, out.String(), "[in-progress]\n  task-1  Plan  @user-1\n")

	quit, err = execute(r, &out, "/quit")
	require.NoError(t, err)
	assert.True(t, quit)
}
