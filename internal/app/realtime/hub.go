/*
This file defines the Hub, the single goroutine that owns mutate-then-broadcast.

Every session hands its decoded commands to the hub; the hub applies them to the store one at a
time, in arrival order, and enqueues the resulting frames onto the send queues of the sessions.
Because the hub is the only producer into any send queue, frames reach each connection in the
order the mutations were applied.
*/
package realtime

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"teamsync/internal/app/identity"
	"teamsync/internal/app/journal"
	"teamsync/internal/app/workspace"
	"teamsync/internal/pkg/errs"
	"teamsync/internal/pkg/logx"
)

const inboundChannelBuffer = 1024

// TokenIssuer signs identity tokens handed out after a join.
type TokenIssuer interface {
	Issue(userID, name string) (string, error)
}

// HubConfig carries the collaborators of a Hub. Tokens and Journal are optional.
type HubConfig struct {
	Store    *workspace.Store
	Resolver *identity.Resolver
	Tokens   TokenIssuer
	Journal  journal.Journal
	Clock    func() time.Time
}

type inbound struct {
	client  *Client
	command Command
	err     *errs.CustomError
}

// Hub serializes all workspace mutations and fans out their results.
type Hub struct {
	store    *workspace.Store
	resolver *identity.Resolver
	tokens   TokenIssuer
	journal  journal.Journal
	now      func() time.Time

	// owned by the Run goroutine.
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	inbound    chan inbound

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	connected atomic.Int64

	logger zerolog.Logger
}

// NewHub creates a hub. Call Run to start it.
func NewHub(cfg HubConfig) *Hub {
	if cfg.Journal == nil {
		cfg.Journal = journal.Discard{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Hub{
		store:      cfg.Store,
		resolver:   cfg.Resolver,
		tokens:     cfg.Tokens,
		journal:    cfg.Journal,
		now:        cfg.Clock,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound, inboundChannelBuffer),
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logx.Component("hub"),
	}
}

// Store returns the workspace the hub mutates.
func (h *Hub) Store() *workspace.Store {
	return h.store
}

// ConnectedClients reports the number of registered sessions.
func (h *Hub) ConnectedClients() int {
	return int(h.connected.Load())
}

// Register adds a session. The current snapshot is queued to it before any other frame.
// It returns false once the hub is stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.stopChan:
		return false
	}
}

// Unregister removes a session and releases its identity binding.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopChan:
	}
}

// Submit decodes one raw frame from c and queues the result for the hub.
func (h *Hub) Submit(c *Client, frame []byte) {
	cmd, err := DecodeCommand(frame)

	select {
	case h.inbound <- inbound{client: c, command: cmd, err: err}:
	case <-h.stopChan:
	}
}

// Shutdown stops the Run loop and waits for it to close every send queue.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() {
		h.logger.Info().Msg("Received stop signal. Stopping hub.")
		close(h.stopChan)
	})
	<-h.done
}

// Run is the event loop. It returns after Shutdown.
func (h *Hub) Run() {
	defer func() {
		for c := range h.clients {
			close(c.send)
			delete(h.clients, c)
		}
		h.connected.Store(0)
		h.logger.Info().Msg("Hub Run loop finished.")
		close(h.done)
	}()

	for {
		select {
		case c := <-h.register:
			h.handleRegister(c)

		case c := <-h.unregister:
			h.handleUnregister(c)

		case in := <-h.inbound:
			if _, ok := h.clients[in.client]; !ok {
				continue
			}
			if in.err != nil {
				h.sendError(in.client, in.err)
				continue
			}
			h.dispatch(in.client, in.command)

		case <-h.stopChan:
			return
		}
	}
}

func (h *Hub) handleRegister(c *Client) {
	h.clients[c] = struct{}{}
	h.connected.Add(1)

	c.logger.Info().Int("total_clients", len(h.clients)).Msg("Client connected.")

	frame, err := EncodeEnvelope(EventWorkspaceUpdate, h.store.Snapshot())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode initial snapshot.")
		return
	}
	if !trySend(c, frame) {
		h.drop(c)
	}
}

func (h *Hub) handleUnregister(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	h.drop(c)
}

// drop removes c, closes its queue and demotes its user when no other connection holds it.
func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	h.connected.Add(-1)
	close(c.send)

	userID, stillBound, ok := h.resolver.Unbind(c.id)

	c.logger.Info().
		Str("user_id", userID).
		Bool("still_bound", stillBound).
		Int("total_clients", len(h.clients)).
		Msg("Client disconnected.")

	if !ok || stillBound {
		return
	}

	if snap, demoted := h.demote(userID, nil); demoted {
		h.publishSnapshot(snap)
	}
}

// demote marks a user no connection holds any more as away and clears its typing flag on
// every session except skip. The caller broadcasts the returned snapshot.
func (h *Hub) demote(userID string, skip *Client) (workspace.Snapshot, bool) {
	snap, err := h.store.SetUserStatus(userID, workspace.UserAway)
	if err != nil {
		h.logger.Warn().Err(err).Str("user_id", userID).Msg("Released user missing from store.")
		return workspace.Snapshot{}, false
	}

	h.journal.Record(journal.NewEntry(journal.KindDisconnect, userID, userID, nil, h.now()))
	h.publishTyping(userID, false, skip)

	return snap, true
}

func (h *Hub) dispatch(c *Client, cmd Command) {
	if join, ok := cmd.(JoinCommand); ok {
		h.handleJoin(c, join)
		return
	}

	userID, bound := h.resolver.Lookup(c.id)
	if !bound {
		c.logger.Debug().Msg("Ignoring command from connection without identity.")
		return
	}

	switch cmd := cmd.(type) {
	case StatusCommand:
		snap, err := h.store.SetUserStatus(userID, cmd.Status)
		if err != nil {
			h.sendError(c, errs.NewError(errs.ErrUserNotFound))
			return
		}
		h.journal.Record(journal.NewEntry(journal.KindStatus, userID, userID,
			map[string]any{"status": cmd.Status}, h.now()))
		h.publishSnapshot(snap)

	case TaskCreateCommand:
		task, snap, err := h.store.CreateTask(userID, cmd.Task)
		if err != nil {
			h.sendError(c, errs.NewError(errs.ErrUnknownAssignee))
			return
		}
		h.journal.Record(journal.NewEntry(journal.KindTaskCreate, userID, task.ID, task, h.now()))
		h.publishSnapshot(snap)

	case TaskUpdateCommand:
		snap, changed, err := h.store.UpdateTask(cmd.TaskID, cmd.Patch)
		if errors.Is(err, workspace.ErrUnknownUser) {
			h.sendError(c, errs.NewError(errs.ErrUnknownAssignee))
			return
		}
		if !changed {
			c.logger.Debug().Str("task_id", cmd.TaskID).Msg("Ignoring update for unknown task.")
			return
		}
		h.journal.Record(journal.NewEntry(journal.KindTaskUpdate, userID, cmd.TaskID, cmd.Patch, h.now()))
		h.publishSnapshot(snap)

	case TaskMoveCommand:
		snap, changed := h.store.MoveTask(cmd.TaskID, cmd.Status)
		if !changed {
			c.logger.Debug().Str("task_id", cmd.TaskID).Msg("Ignoring move for unknown task.")
			return
		}
		h.journal.Record(journal.NewEntry(journal.KindTaskMove, userID, cmd.TaskID,
			map[string]any{"status": cmd.Status}, h.now()))
		h.publishSnapshot(snap)

	case MessageCommand:
		msg, snap, err := h.store.AppendMessage(userID, cmd.Text)
		if err != nil {
			h.sendError(c, errs.NewError(errs.ErrUserNotFound))
			return
		}
		h.journal.Record(journal.NewEntry(journal.KindMessage, userID, msg.ID, nil, h.now()))
		h.publishSnapshot(snap)

	case TypingCommand:
		h.publishTyping(userID, cmd.IsTyping, c)
	}
}

func (h *Hub) handleJoin(c *Client, join JoinCommand) {
	res := h.resolver.Resolve(c.id, join.Request)

	c.logger.Info().
		Str("user_id", res.User.ID).
		Str("resolution", string(res.Resolution)).
		Str("name", res.User.Name).
		Msg("User joined.")

	if res.Previous != "" && !res.PreviousStillBound {
		c.logger.Info().Str("user_id", res.Previous).Msg("Connection switched away from user.")
		h.demote(res.Previous, c)
	}

	if h.sendEvent(c, EventUserID, res.User.ID) {
		h.sendToken(c, res.User)
	}

	h.journal.Record(journal.NewEntry(journal.KindJoin, res.User.ID, res.User.ID,
		map[string]any{"name": res.User.Name, "resolution": res.Resolution}, h.now()))

	// c may have been dropped while sending; re-read so the broadcast includes that.
	h.publishSnapshot(h.store.Snapshot())
}

func (h *Hub) sendToken(c *Client, user workspace.User) {
	if h.tokens == nil {
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Name)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to issue identity token.")
		return
	}
	h.sendEvent(c, EventUserToken, token)
}

// sendEvent queues a private frame. It returns false when c was dropped.
func (h *Hub) sendEvent(c *Client, eventType EventType, payload any) bool {
	frame, err := EncodeEnvelope(eventType, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(eventType)).Msg("Failed to encode frame.")
		return true
	}
	if !trySend(c, frame) {
		h.drop(c)
		return false
	}
	return true
}

func (h *Hub) sendError(c *Client, customErr *errs.CustomError) {
	c.logger.Warn().
		Int("code", customErr.Code).
		Str("reason", customErr.Message).
		Msg("Rejected client frame.")

	h.sendEvent(c, EventError, ErrorPayload{Code: customErr.Code, Message: customErr.Message})
}
