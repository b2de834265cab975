/*
Package workspace holds the authoritative, memory-resident state shared by every connection:
the user roster, the task board and the chat log.

All mutations go through Store, which serializes them and hands back a full Snapshot after
each one. Snapshots are deep copies, so callers may marshal or inspect them without holding
any lock.
*/
package workspace

import "time"

// UserStatus is the presence of a user.
type UserStatus string

const (
	UserActive       UserStatus = "active"
	UserAway         UserStatus = "away"
	UserDoNotDisturb UserStatus = "do-not-disturb"
)

// Valid reports whether s is one of the known user statuses.
func (s UserStatus) Valid() bool {
	switch s {
	case UserActive, UserAway, UserDoNotDisturb:
		return true
	}
	return false
}

// TaskStatus is the board column of a task.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in-progress"
	TaskDone       TaskStatus = "done"
)

// Valid reports whether s is one of the known task statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskDone:
		return true
	}
	return false
}

// User is a workspace participant. Users are never removed; a disconnect only flips Status.
type User struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Avatar     string     `json:"avatar"`
	Status     UserStatus `json:"status"`
	LastActive time.Time  `json:"lastActive"`
}

// Task is a card on the board.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	CreatedBy   string     `json:"createdBy"`
	AssigneeID  string     `json:"assigneeId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Message is an immutable chat log entry.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Snapshot is the complete durable state, always transmitted whole.
type Snapshot struct {
	Users    []User    `json:"users"`
	Tasks    []Task    `json:"tasks"`
	Messages []Message `json:"messages"`
}

// FindUser returns the user with id from the snapshot.
func (s Snapshot) FindUser(id string) (User, bool) {
	for _, u := range s.Users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// FindUserByName returns the first user named name from the snapshot.
func (s Snapshot) FindUserByName(name string) (User, bool) {
	for _, u := range s.Users {
		if u.Name == name {
			return u, true
		}
	}
	return User{}, false
}

// FindTask returns the task with id from the snapshot.
func (s Snapshot) FindTask(id string) (Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// DanglingReferences lists every createdBy, assigneeId and message userId that does not
// resolve to a user in the snapshot. A consistent snapshot returns nil.
func (s Snapshot) DanglingReferences() []string {
	known := make(map[string]struct{}, len(s.Users))
	for _, u := range s.Users {
		known[u.ID] = struct{}{}
	}

	var dangling []string
	check := func(id string) {
		if id == "" {
			return
		}
		if _, ok := known[id]; !ok {
			dangling = append(dangling, id)
		}
	}

	for _, t := range s.Tasks {
		check(t.CreatedBy)
		check(t.AssigneeID)
	}
	for _, m := range s.Messages {
		check(m.UserID)
	}

	return dangling
}

// NewTask carries the fields of a task:create request.
type NewTask struct {
	Title       string
	Description string
	Status      TaskStatus
	AssigneeID  string
}

// TaskPatch carries the optional fields of a task:update request. A nil field is left as is;
// a non-nil empty AssigneeID clears the assignment.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	AssigneeID  *string `json:"assigneeId,omitempty"`
}
