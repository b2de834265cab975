package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamsync/internal/app/workspace"
)

func newResolver() (*Resolver, *workspace.Store) {
	store := workspace.NewStore(workspace.DefaultSeed())
	return NewResolver(store), store
}

func TestResolveMintsNewIdentity(t *testing.T) {
	r, store := newResolver()

	res := r.Resolve("conn-1", JoinRequest{Name: "Ada", Avatar: "1"})

	assert.Equal(t, ResolvedNew, res.Resolution)
	assert.NotEmpty(t, res.User.ID)
	assert.Equal(t, workspace.UserActive, res.User.Status)
	assert.True(t, store.HasUser(res.User.ID))

	bound, ok := r.Lookup("conn-1")
	require.True(t, ok)
	assert.Equal(t, res.User.ID, bound)
}

func TestResolveByIDIsIdempotent(t *testing.T) {
	r, store := newResolver()
	first := r.Resolve("conn-1", JoinRequest{Name: "Ada", Avatar: "1"})

	second := r.Resolve("conn-2", JoinRequest{Name: "Ada Lovelace", Avatar: "2", UserID: first.User.ID})

	assert.Equal(t, ResolvedByID, second.Resolution)
	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, 1, r.KnownUsers())

	count := 0
	for _, u := range store.Snapshot().Users {
		if u.ID == first.User.ID {
			count++
			assert.Equal(t, "Ada Lovelace", u.Name)
		}
	}
	assert.Equal(t, 1, count)
}

func TestResolveByNameAfterDisconnect(t *testing.T) {
	r, store := newResolver()
	first := r.Resolve("conn-1", JoinRequest{Name: "Ada", Avatar: "1"})

	userID, stillBound, ok := r.Unbind("conn-1")
	require.True(t, ok)
	assert.False(t, stillBound)
	assert.Equal(t, first.User.ID, userID)
	_, err := store.SetUserStatus(userID, workspace.UserAway)
	require.NoError(t, err)

	again := r.Resolve("conn-2", JoinRequest{Name: "Ada", Avatar: "1"})

	assert.Equal(t, ResolvedByName, again.Resolution)
	assert.Equal(t, first.User.ID, again.User.ID)
	assert.Equal(t, workspace.UserActive, again.User.Status)
}

func TestResolveIgnoresUnknownOrSeededID(t *testing.T) {
	r, _ := newResolver()

	res := r.Resolve("conn-1", JoinRequest{Name: "Mallory", UserID: workspace.SystemUserID})
	assert.Equal(t, ResolvedNew, res.Resolution)
	assert.NotEqual(t, workspace.SystemUserID, res.User.ID)

	res = r.Resolve("conn-2", JoinRequest{Name: "Eve", UserID: "user-forged"})
	assert.Equal(t, ResolvedNew, res.Resolution)
	assert.NotEqual(t, "user-forged", res.User.ID)
}

func TestRenameKeepsOriginalNameMapping(t *testing.T) {
	r, _ := newResolver()
	ada := r.Resolve("conn-1", JoinRequest{Name: "Ada"})
	r.Resolve("conn-1", JoinRequest{Name: "Countess", UserID: ada.User.ID})

	byOld := r.Resolve("conn-2", JoinRequest{Name: "Ada"})
	byNew := r.Resolve("conn-3", JoinRequest{Name: "Countess"})

	assert.Equal(t, ada.User.ID, byOld.User.ID)
	assert.Equal(t, ada.User.ID, byNew.User.ID)
}

func TestUnbindReportsOtherConnections(t *testing.T) {
	r, _ := newResolver()
	ada := r.Resolve("tab-1", JoinRequest{Name: "Ada"})
	r.Resolve("tab-2", JoinRequest{Name: "Ada", UserID: ada.User.ID})

	_, stillBound, ok := r.Unbind("tab-1")
	require.True(t, ok)
	assert.True(t, stillBound)

	_, stillBound, ok = r.Unbind("tab-2")
	require.True(t, ok)
	assert.False(t, stillBound)

	_, _, ok = r.Unbind("tab-2")
	assert.False(t, ok)
}

func TestResolveRejectsMalformedKnownID(t *testing.T) {
	r, _ := newResolver()
	r.mint = func() string { return "legacy-1" }
	r.Resolve("conn-1", JoinRequest{Name: "Ada"})

	r.mint = func() string { return "user-fresh" }
	res := r.Resolve("conn-2", JoinRequest{Name: "Bob", UserID: "legacy-1"})

	assert.Equal(t, ResolvedNew, res.Resolution)
	assert.Equal(t, "user-fresh", res.User.ID)
}

func TestSeededNamesAreRegistered(t *testing.T) {
	r, store := newResolver()

	res := r.Resolve("conn-1", JoinRequest{Name: "System"})

	assert.Equal(t, ResolvedByName, res.Resolution)
	assert.Equal(t, workspace.SystemUserID, res.User.ID)

	named := 0
	for _, u := range store.Snapshot().Users {
		if u.Name == "System" {
			named++
		}
	}
	assert.Equal(t, 1, named)
}

func TestRejoinAsAnotherUserReportsPrevious(t *testing.T) {
	r, _ := newResolver()
	ada := r.Resolve("conn-a", JoinRequest{Name: "Ada"})

	bob := r.Resolve("conn-a", JoinRequest{Name: "Bob"})
	assert.Equal(t, ada.User.ID, bob.Previous)
	assert.False(t, bob.PreviousStillBound)

	r.Resolve("conn-b", JoinRequest{Name: "Ada", UserID: ada.User.ID})
	carol := r.Resolve("conn-b", JoinRequest{Name: "Carol"})
	assert.Equal(t, ada.User.ID, carol.Previous)
	assert.False(t, carol.PreviousStillBound)

	r.Resolve("conn-c", JoinRequest{Name: "Bob", UserID: bob.User.ID})
	dave := r.Resolve("conn-c", JoinRequest{Name: "Dave"})
	assert.Equal(t, bob.User.ID, dave.Previous)
	assert.True(t, dave.PreviousStillBound)

	again := r.Resolve("conn-a", JoinRequest{Name: "Bob", UserID: bob.User.ID})
	assert.Empty(t, again.Previous)
}
