package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamsync/internal/app/workspace"
)

func TestFileStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "identity.json")
	s := NewFileStorage(path)

	id, err := s.Load()
	require.NoError(t, err)
	assert.True(t, id.Empty())

	want := Identity{
		CurrentUser: &workspace.User{ID: "user-1", Name: "Ada", Status: workspace.UserActive},
		UserID:      "user-1",
	}
	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, want.UserID, got.UserID)
	require.NotNil(t, got.CurrentUser)
	assert.Equal(t, "Ada", got.CurrentUser.Name)

	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileStorageClearsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"currentUser": {`), 0o600))

	id, err := NewFileStorage(path).Load()
	require.NoError(t, err)
	assert.True(t, id.Empty())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestMemoryStorage(t *testing.T) {
	var s MemoryStorage

	require.NoError(t, s.Save(Identity{UserID: "user-1"}))
	id, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)

	require.NoError(t, s.Clear())
	id, _ = s.Load()
	assert.True(t, id.Empty())
}
