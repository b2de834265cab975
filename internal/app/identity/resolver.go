/*
Package identity maps join requests to stable workspace user ids and tracks which live
connections are bound to which user.

Resolution order, first match wins:
 1. the request carries a well-formed user id this resolver has issued before,
 2. the display name belongs to a seeded user or was registered by an earlier join,
 3. a new id is minted and the name is registered for it.

Bindings from connection to user are dropped on disconnect; the user id and the name mapping
survive for the lifetime of the process.
*/
package identity

import (
	"sync"

	"teamsync/internal/app/workspace"
	"teamsync/internal/pkg/randx"
)

// Resolution records which rule matched a join request.
type Resolution string

const (
	ResolvedByID   Resolution = "id"
	ResolvedByName Resolution = "name"
	ResolvedNew    Resolution = "new"
)

// JoinRequest is a validated user:join payload.
type JoinRequest struct {
	Name   string
	Avatar string
	UserID string
}

// Result is the outcome of a successful join.
//
// Previous is set when the connection was bound to a different user before this join.
// PreviousStillBound reports whether another connection still holds that user.
type Result struct {
	User       workspace.User
	Snapshot   workspace.Snapshot
	Resolution Resolution

	Previous           string
	PreviousStillBound bool
}

// Resolver owns the name and connection registries. Durable user records live in the store.
type Resolver struct {
	mu sync.Mutex

	store *workspace.Store
	mint  func() string

	known map[string]struct{}
	names map[string]string
	conns map[string]string
}

// NewResolver returns a resolver that upserts resolved users into store. The names of users
// already in store are registered so a join under one of them resolves to the existing user.
func NewResolver(store *workspace.Store) *Resolver {
	r := &Resolver{
		store: store,
		mint:  randx.UserID,
		known: make(map[string]struct{}),
		names: make(map[string]string),
		conns: make(map[string]string),
	}

	for _, u := range store.Snapshot().Users {
		if _, taken := r.names[u.Name]; !taken {
			r.names[u.Name] = u.ID
		}
	}

	return r
}

// Resolve maps req to a user id, binds connID to it and upserts the user as active.
// Joining again on an already bound connection rebinds it and reports the user it left.
func (r *Resolver) Resolve(connID string, req JoinRequest) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		userID     string
		resolution Resolution
	)

	if _, ok := r.known[req.UserID]; ok && randx.IsValidUserID(req.UserID) {
		userID, resolution = req.UserID, ResolvedByID
	} else if id, ok := r.names[req.Name]; ok {
		userID, resolution = id, ResolvedByName
	} else {
		userID, resolution = r.mint(), ResolvedNew
	}

	r.known[userID] = struct{}{}
	if _, taken := r.names[req.Name]; !taken {
		r.names[req.Name] = userID
	}
	previous, rebound := r.conns[connID]
	r.conns[connID] = userID

	res := Result{Resolution: resolution}
	if rebound && previous != userID {
		res.Previous = previous
		res.PreviousStillBound = r.boundLocked(previous)
	}

	res.User, res.Snapshot = r.store.UpsertUser(userID, req.Name, req.Avatar)

	return res
}

// Lookup returns the user bound to connID.
func (r *Resolver) Lookup(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.conns[connID]
	return id, ok
}

// Unbind drops the binding of connID. It returns the user that was bound and whether any
// other connection is still bound to that user.
func (r *Resolver) Unbind(connID string) (userID string, stillBound bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok = r.conns[connID]
	if !ok {
		return "", false, false
	}
	delete(r.conns, connID)

	return userID, r.boundLocked(userID), true
}

func (r *Resolver) boundLocked(userID string) bool {
	for _, other := range r.conns {
		if other == userID {
			return true
		}
	}
	return false
}

// KnownUsers returns the number of distinct identities issued so far.
func (r *Resolver) KnownUsers() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.known)
}
