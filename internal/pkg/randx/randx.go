/*
Package randx mints the opaque identifiers used across the workspace.

User, task, message and connection ids are UUID v4 values behind a short type prefix, so an
id never collides across kinds and is never reused for the lifetime of the process.
*/
package randx

import (
	"strings"

	"github.com/google/uuid"
)

const (
	UserIDPrefix       = "user-"
	TaskIDPrefix       = "task-"
	MessageIDPrefix    = "msg-"
	ConnectionIDPrefix = "conn-"
)

// UserID mints a new user identifier.
func UserID() string {
	return UserIDPrefix + uuid.NewString()
}

// TaskID mints a new task identifier.
func TaskID() string {
	return TaskIDPrefix + uuid.NewString()
}

// MessageID mints a new chat message identifier.
func MessageID() string {
	return MessageIDPrefix + uuid.NewString()
}

// ConnectionID mints an identifier for one live websocket connection.
func ConnectionID() string {
	return ConnectionIDPrefix + uuid.NewString()
}

// IsValidUserID reports whether id has the shape of a minted user id.
// Seeded ids (e.g. "system") are not minted and therefore not valid here.
func IsValidUserID(id string) bool {
	raw, ok := strings.CutPrefix(id, UserIDPrefix)
	if !ok {
		return false
	}

	_, err := uuid.Parse(raw)
	return err == nil
}
