/*
Package client is the workspace client: a reconciler that mirrors the server's snapshots and a
websocket transport that feeds it.

The reconciler never mutates workspace data locally. Intents (login, task edits, messages,
typing) are emitted to the server one-way and the local view changes only when the next
snapshot arrives.

	Disconnected -> Connecting -> Connected(loading) -> Connected(ready)
*/
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"teamsync/internal/app/realtime"
	"teamsync/internal/app/workspace"
	"teamsync/internal/pkg/logx"
)

// DefaultTypingExpiry is how long a typing indicator stays visible without a refresh.
const DefaultTypingExpiry = 3 * time.Second

// ErrNotConnected is returned by intents issued while no transport is attached.
var ErrNotConnected = errors.New("client: not connected")

// State is the connection state of the reconciler.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Emitter sends frames to the server.
type Emitter interface {
	Emit(eventType realtime.EventType, payload any) error
	Close() error
}

// View is an immutable copy of the reconciler state.
type View struct {
	State       State
	CurrentUser *workspace.User
	Users       []workspace.User
	Tasks       []workspace.Task
	Messages    []workspace.Message
	Typing      []string
	LastError   *realtime.ErrorPayload
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock sets the clock used for typing expiry.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithTypingExpiry overrides DefaultTypingExpiry.
func WithTypingExpiry(d time.Duration) Option {
	return func(r *Reconciler) { r.typingExpiry = d }
}

// WithOnChange registers fn to be called with a fresh View after every state change.
func WithOnChange(fn func(View)) Option {
	return func(r *Reconciler) { r.onChange = fn }
}

// Reconciler mirrors the server workspace for one local user.
type Reconciler struct {
	mu sync.Mutex

	storage  Storage
	identity Identity
	token    string
	joining  *workspace.User

	state    State
	emitter  Emitter
	snapshot workspace.Snapshot
	typing   map[string]time.Time
	lastErr  *realtime.ErrorPayload

	now          func() time.Time
	typingExpiry time.Duration
	onChange     func(View)

	logger zerolog.Logger
}

// NewReconciler returns a disconnected reconciler persisting its identity in storage.
func NewReconciler(storage Storage, opts ...Option) *Reconciler {
	r := &Reconciler{
		storage:      storage,
		typing:       make(map[string]time.Time),
		now:          time.Now,
		typingExpiry: DefaultTypingExpiry,
		logger:       logx.Component("reconciler"),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Boot loads the persisted identity.
func (r *Reconciler) Boot() error {
	id, err := r.storage.Load()
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.identity = id
	r.mu.Unlock()

	return nil
}

// Identity returns the persisted identity as last seen by the reconciler.
func (r *Reconciler) Identity() Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.identity
}

// Token returns the identity token received with the last join, if any.
func (r *Reconciler) Token() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.token
}

// OnConnecting records that a dial is in progress.
func (r *Reconciler) OnConnecting() {
	r.mu.Lock()
	r.state = StateConnecting
	r.mu.Unlock()

	r.changed()
}

// OnConnect attaches e and rejoins with the stored identity when one exists.
func (r *Reconciler) OnConnect(e Emitter) error {
	r.mu.Lock()
	r.emitter = e
	r.state = StateLoading
	id := r.identity
	r.mu.Unlock()

	r.changed()

	if id.CurrentUser == nil || id.UserID == "" {
		return nil
	}

	return e.Emit(realtime.EventUserJoin, realtime.JoinPayload{
		Name:   id.CurrentUser.Name,
		Avatar: id.CurrentUser.Avatar,
		UserID: id.UserID,
	})
}

// OnDisconnect detaches the transport. The last snapshot stays visible.
func (r *Reconciler) OnDisconnect() {
	r.mu.Lock()
	r.emitter = nil
	r.state = StateDisconnected
	r.typing = make(map[string]time.Time)
	r.mu.Unlock()

	r.changed()
}

// HandleFrame applies one server frame.
func (r *Reconciler) HandleFrame(raw []byte) error {
	var env realtime.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}

	switch env.Type {
	case realtime.EventWorkspaceUpdate:
		var snap workspace.Snapshot
		if err := json.Unmarshal(env.Payload, &snap); err != nil {
			return fmt.Errorf("decode snapshot: %w", err)
		}
		return r.ApplySnapshot(snap)

	case realtime.EventUserID:
		var id string
		if err := json.Unmarshal(env.Payload, &id); err != nil {
			return fmt.Errorf("decode user id: %w", err)
		}
		return r.ApplyUserID(id)

	case realtime.EventUserToken:
		var token string
		if err := json.Unmarshal(env.Payload, &token); err != nil {
			return fmt.Errorf("decode token: %w", err)
		}
		r.mu.Lock()
		r.token = token
		r.mu.Unlock()
		return nil

	case realtime.EventUserTyping:
		var p realtime.TypingPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("decode typing: %w", err)
		}
		r.ApplyTyping(p.UserID, p.IsTyping)
		return nil

	case realtime.EventError:
		var p realtime.ErrorPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("decode error frame: %w", err)
		}
		r.logger.Warn().Int("code", p.Code).Str("reason", p.Message).Msg("Server rejected a frame")
		r.mu.Lock()
		r.lastErr = &p
		r.mu.Unlock()
		r.changed()
		return nil
	}

	r.logger.Debug().Str("event", string(env.Type)).Msg("Ignoring unknown event")
	return nil
}

// ApplySnapshot replaces the local copy wholesale and re-derives the current user, by
// persisted id first and by persisted name otherwise. A re-derived user is persisted.
func (r *Reconciler) ApplySnapshot(snap workspace.Snapshot) error {
	r.mu.Lock()
	r.snapshot = snap
	if r.state == StateLoading {
		r.state = StateReady
	}

	var (
		found bool
		user  workspace.User
	)
	if r.identity.UserID != "" {
		user, found = snap.FindUser(r.identity.UserID)
	}
	if !found && r.identity.CurrentUser != nil {
		user, found = snap.FindUserByName(r.identity.CurrentUser.Name)
	}

	var persist *Identity
	if found {
		r.identity.CurrentUser = &user
		if r.identity.UserID == "" {
			r.identity.UserID = user.ID
		}
		id := r.identity
		persist = &id
	}
	r.mu.Unlock()

	r.changed()

	if persist != nil {
		return r.storage.Save(*persist)
	}
	return nil
}

// ApplyUserID records the id the server assigned to this client. Until the next snapshot the
// current user carries the name and avatar of the join that produced id, so a reconnect in
// between can still rejoin.
func (r *Reconciler) ApplyUserID(id string) error {
	r.mu.Lock()
	switch {
	case r.joining != nil:
		user := *r.joining
		user.ID = id
		r.identity.CurrentUser = &user
		r.joining = nil
	case r.identity.CurrentUser != nil && r.identity.CurrentUser.ID != id:
		user := *r.identity.CurrentUser
		user.ID = id
		r.identity.CurrentUser = &user
	}
	r.identity.UserID = id
	persist := r.identity
	r.mu.Unlock()

	return r.storage.Save(persist)
}

// ApplyTyping records a typing signal. Entries expire after the typing window.
func (r *Reconciler) ApplyTyping(userID string, isTyping bool) {
	r.mu.Lock()
	if isTyping {
		r.typing[userID] = r.now().Add(r.typingExpiry)
	} else {
		delete(r.typing, userID)
	}
	r.mu.Unlock()

	r.changed()
}

// View returns a copy of the current state with expired typing entries pruned.
func (r *Reconciler) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked()
}

func (r *Reconciler) viewLocked() View {
	now := r.now()

	typing := make([]string, 0, len(r.typing))
	for id, expires := range r.typing {
		if now.Before(expires) {
			typing = append(typing, id)
		} else {
			delete(r.typing, id)
		}
	}
	sort.Strings(typing)

	v := View{
		State:     r.state,
		Users:     append([]workspace.User(nil), r.snapshot.Users...),
		Tasks:     append([]workspace.Task(nil), r.snapshot.Tasks...),
		Messages:  append([]workspace.Message(nil), r.snapshot.Messages...),
		Typing:    typing,
		LastError: r.lastErr,
	}
	if r.identity.CurrentUser != nil {
		u := *r.identity.CurrentUser
		v.CurrentUser = &u
	}

	return v
}

func (r *Reconciler) changed() {
	if r.onChange == nil {
		return
	}
	r.onChange(r.View())
}

// Login asks the server to join as name. A previously assigned id is sent along.
func (r *Reconciler) Login(name, avatar string) error {
	r.mu.Lock()
	userID := r.identity.UserID
	r.joining = &workspace.User{Name: name, Avatar: avatar, Status: workspace.UserActive}
	if r.state == StateReady {
		r.state = StateLoading
	}
	r.mu.Unlock()

	return r.emit(realtime.EventUserJoin, realtime.JoinPayload{Name: name, Avatar: avatar, UserID: userID})
}

// Logout clears the persisted identity and closes the transport without waiting for an ack.
func (r *Reconciler) Logout() error {
	r.mu.Lock()
	e := r.emitter
	r.emitter = nil
	r.identity = Identity{}
	r.joining = nil
	r.token = ""
	r.state = StateDisconnected
	r.mu.Unlock()

	err := r.storage.Clear()
	if e != nil {
		if closeErr := e.Close(); closeErr != nil {
			r.logger.Debug().Err(closeErr).Msg("Transport close error on logout")
		}
	}

	r.changed()
	return err
}

func (r *Reconciler) SetStatus(status workspace.UserStatus) error {
	return r.emit(realtime.EventUserStatus, status)
}

func (r *Reconciler) CreateTask(task realtime.TaskCreatePayload) error {
	return r.emit(realtime.EventTaskCreate, task)
}

func (r *Reconciler) UpdateTask(patch realtime.TaskUpdatePayload) error {
	return r.emit(realtime.EventTaskUpdate, patch)
}

func (r *Reconciler) MoveTask(taskID string, status workspace.TaskStatus) error {
	return r.emit(realtime.EventTaskMove, realtime.TaskMovePayload{TaskID: taskID, NewStatus: status})
}

func (r *Reconciler) SendMessage(text string) error {
	return r.emit(realtime.EventMessageSend, realtime.MessageSendPayload{Text: text})
}

func (r *Reconciler) SetTyping(isTyping bool) error {
	return r.emit(realtime.EventUserTyping, isTyping)
}

func (r *Reconciler) emit(eventType realtime.EventType, payload any) error {
	r.mu.Lock()
	e := r.emitter
	r.mu.Unlock()

	if e == nil {
		return ErrNotConnected
	}

	return e.Emit(eventType, payload)
}
