package workspace

import (
	"errors"
	"slices"
	"sync"
	"time"

	"teamsync/internal/pkg/randx"
)

// ErrUnknownUser is returned when an operation names a user the store does not hold.
var ErrUnknownUser = errors.New("workspace: unknown user")

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used to stamp timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDs overrides the task and message id generators.
func WithIDs(taskID, messageID func() string) Option {
	return func(s *Store) {
		s.taskID = taskID
		s.messageID = messageID
	}
}

// Store is the single source of truth for users, tasks and messages.
// Every method is safe for concurrent use; mutations are applied one at a time.
type Store struct {
	mu sync.RWMutex

	users     []User
	userIndex map[string]int
	tasks     []Task
	taskIndex map[string]int
	messages  []Message

	now       func() time.Time
	taskID    func() string
	messageID func() string
}

// NewStore returns a store holding a copy of seed.
func NewStore(seed Snapshot, opts ...Option) *Store {
	s := &Store{
		userIndex: make(map[string]int),
		taskIndex: make(map[string]int),
		now:       time.Now,
		taskID:    randx.TaskID,
		messageID: randx.MessageID,
	}

	for _, opt := range opts {
		opt(s)
	}

	for _, u := range seed.Users {
		s.userIndex[u.ID] = len(s.users)
		s.users = append(s.users, u)
	}
	for _, t := range seed.Tasks {
		s.taskIndex[t.ID] = len(s.tasks)
		s.tasks = append(s.tasks, t)
	}
	s.messages = slices.Clone(seed.Messages)

	return s
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked()
}

// User returns the user with id.
func (s *Store) User(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.userIndex[id]
	if !ok {
		return User{}, false
	}
	return s.users[idx], true
}

// HasUser reports whether id names a known user.
func (s *Store) HasUser(id string) bool {
	_, ok := s.User(id)
	return ok
}

// UpsertUser adds the user or overwrites the existing record with the same id.
// Status becomes active and LastActive is stamped with the current time.
func (s *Store) UpsertUser(id, name, avatar string) (User, Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := User{
		ID:         id,
		Name:       name,
		Avatar:     avatar,
		Status:     UserActive,
		LastActive: s.now().UTC(),
	}

	if idx, ok := s.userIndex[id]; ok {
		s.users[idx] = u
	} else {
		s.userIndex[id] = len(s.users)
		s.users = append(s.users, u)
	}

	return u, s.snapshotLocked()
}

// SetUserStatus changes the status of a known user and stamps LastActive.
func (s *Store) SetUserStatus(id string, status UserStatus) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.userIndex[id]
	if !ok {
		return Snapshot{}, ErrUnknownUser
	}

	s.users[idx].Status = status
	s.users[idx].LastActive = s.now().UTC()

	return s.snapshotLocked(), nil
}

// CreateTask appends a task authored by createdBy. An empty status defaults to todo.
// The assignee, when set, must be a known user.
func (s *Store) CreateTask(createdBy string, in NewTask) (Task, Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.userIndex[createdBy]; !ok {
		return Task{}, Snapshot{}, ErrUnknownUser
	}
	if in.AssigneeID != "" {
		if _, ok := s.userIndex[in.AssigneeID]; !ok {
			return Task{}, Snapshot{}, ErrUnknownUser
		}
	}

	status := in.Status
	if status == "" {
		status = TaskTodo
	}

	now := s.now().UTC()
	t := Task{
		ID:          s.taskID(),
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		CreatedBy:   createdBy,
		AssigneeID:  in.AssigneeID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.taskIndex[t.ID] = len(s.tasks)
	s.tasks = append(s.tasks, t)

	return t, s.snapshotLocked(), nil
}

// UpdateTask applies patch to the task with id. An unknown id is an intentional no-op and
// reports changed=false. An unknown assignee is rejected with ErrUnknownUser.
func (s *Store) UpdateTask(id string, patch TaskPatch) (snap Snapshot, changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.taskIndex[id]
	if !ok {
		return s.snapshotLocked(), false, nil
	}

	if patch.AssigneeID != nil && *patch.AssigneeID != "" {
		if _, ok := s.userIndex[*patch.AssigneeID]; !ok {
			return Snapshot{}, false, ErrUnknownUser
		}
	}

	t := &s.tasks[idx]
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.AssigneeID != nil {
		t.AssigneeID = *patch.AssigneeID
	}
	t.UpdatedAt = s.now().UTC()

	return s.snapshotLocked(), true, nil
}

// MoveTask sets the status of the task with id. An unknown id is an intentional no-op and
// reports changed=false.
func (s *Store) MoveTask(id string, status TaskStatus) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.taskIndex[id]
	if !ok {
		return s.snapshotLocked(), false
	}

	s.tasks[idx].Status = status
	s.tasks[idx].UpdatedAt = s.now().UTC()

	return s.snapshotLocked(), true
}

// AppendMessage adds a chat message authored by userID to the end of the log.
func (s *Store) AppendMessage(userID, text string) (Message, Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.userIndex[userID]; !ok {
		return Message{}, Snapshot{}, ErrUnknownUser
	}

	m := Message{
		ID:        s.messageID(),
		Text:      text,
		UserID:    userID,
		CreatedAt: s.now().UTC(),
	}
	s.messages = append(s.messages, m)

	return m, s.snapshotLocked(), nil
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Users:    append(make([]User, 0, len(s.users)), s.users...),
		Tasks:    append(make([]Task, 0, len(s.tasks)), s.tasks...),
		Messages: append(make([]Message, 0, len(s.messages)), s.messages...),
	}
}
