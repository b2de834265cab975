/*
Package realtime is the synchronization engine of the workspace: it binds websocket
connections to identities, applies their commands to the store and fans the resulting
snapshots out to every connection.

This file defines the wire protocol. Every frame is a JSON envelope {"type", "payload"}; the
inbound payload of each event type decodes into exactly one Command variant.
*/
package realtime

import (
	"encoding/json"
	"strings"

	"teamsync/internal/app/identity"
	"teamsync/internal/app/workspace"
	"teamsync/internal/pkg/errs"
	"teamsync/internal/pkg/req"
)

// EventType names a frame on the wire.
type EventType string

const (
	EventUserJoin        EventType = "user:join"
	EventUserID          EventType = "user:id"
	EventUserToken       EventType = "user:token"
	EventWorkspaceUpdate EventType = "workspace:update"
	EventUserStatus      EventType = "user:status"
	EventTaskCreate      EventType = "task:create"
	EventTaskUpdate      EventType = "task:update"
	EventTaskMove        EventType = "task:move"
	EventMessageSend     EventType = "message:send"
	EventUserTyping      EventType = "user:typing"
	EventError           EventType = "error"
)

// Field limits, in bytes.
const (
	MaxNameBytes        = 64
	MaxAvatarBytes      = 512
	MaxTitleBytes       = 200
	MaxDescriptionBytes = 5000
	MaxContentBytes     = 5000
)

// Envelope is the outer shape of every frame.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EncodeEnvelope marshals payload under the given event type.
func EncodeEnvelope(eventType EventType, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Envelope{Type: eventType, Payload: raw})
}

// JoinPayload is the body of user:join.
type JoinPayload struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	UserID string `json:"userId,omitempty"`
}

// TaskCreatePayload is the body of task:create.
type TaskCreatePayload struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Status      workspace.TaskStatus `json:"status,omitempty"`
	AssigneeID  string               `json:"assigneeId,omitempty"`
}

// TaskUpdatePayload is the body of task:update. Absent fields are left unchanged;
// an empty assigneeId clears the assignment.
type TaskUpdatePayload struct {
	ID          string  `json:"id"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	AssigneeID  *string `json:"assigneeId,omitempty"`
}

// TaskMovePayload is the body of task:move.
type TaskMovePayload struct {
	TaskID    string               `json:"taskId"`
	NewStatus workspace.TaskStatus `json:"newStatus"`
}

// MessageSendPayload is the body of message:send.
type MessageSendPayload struct {
	Text string `json:"text"`
}

// TypingPayload is the body of the outbound user:typing signal.
type TypingPayload struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// ErrorPayload is the body of the outbound error frame.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Command is a validated inbound event. The set of implementations is closed.
type Command interface {
	command()
}

type (
	JoinCommand       struct{ Request identity.JoinRequest }
	StatusCommand     struct{ Status workspace.UserStatus }
	TaskCreateCommand struct{ Task workspace.NewTask }
	TaskUpdateCommand struct {
		TaskID string
		Patch  workspace.TaskPatch
	}
	TaskMoveCommand struct {
		TaskID string
		Status workspace.TaskStatus
	}
	MessageCommand struct{ Text string }
	TypingCommand  struct{ IsTyping bool }
)

func (JoinCommand) command()       {}
func (StatusCommand) command()     {}
func (TaskCreateCommand) command() {}
func (TaskUpdateCommand) command() {}
func (TaskMoveCommand) command()   {}
func (MessageCommand) command()    {}
func (TypingCommand) command()     {}

// DecodeCommand parses and validates one inbound frame.
func DecodeCommand(frame []byte) (Command, *errs.CustomError) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, errs.NewError(errs.ErrInvalidJSONFormat)
	}

	switch env.Type {
	case EventUserJoin:
		var p JoinPayload
		if err := req.DecodeStrict(env.Payload, &p); err != nil {
			return nil, err
		}
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, errs.NewError(errs.ErrNameRequired)
		}
		if err := checkLen("name", name, MaxNameBytes); err != nil {
			return nil, err
		}
		if err := checkLen("avatar", p.Avatar, MaxAvatarBytes); err != nil {
			return nil, err
		}
		return JoinCommand{Request: identity.JoinRequest{Name: name, Avatar: p.Avatar, UserID: p.UserID}}, nil

	case EventUserStatus:
		var status workspace.UserStatus
		if err := req.DecodeStrict(env.Payload, &status); err != nil {
			return nil, err
		}
		if !status.Valid() {
			return nil, errs.NewError(errs.ErrInvalidUserStatus)
		}
		return StatusCommand{Status: status}, nil

	case EventTaskCreate:
		var p TaskCreatePayload
		if err := req.DecodeStrict(env.Payload, &p); err != nil {
			return nil, err
		}
		title := strings.TrimSpace(p.Title)
		if title == "" {
			return nil, errs.NewError(errs.ErrTitleRequired)
		}
		if err := checkLen("title", title, MaxTitleBytes); err != nil {
			return nil, err
		}
		description := strings.TrimSpace(p.Description)
		if err := checkLen("description", description, MaxDescriptionBytes); err != nil {
			return nil, err
		}
		if p.Status != "" && !p.Status.Valid() {
			return nil, errs.NewError(errs.ErrInvalidTaskStatus)
		}
		return TaskCreateCommand{Task: workspace.NewTask{
			Title:       title,
			Description: description,
			Status:      p.Status,
			AssigneeID:  p.AssigneeID,
		}}, nil

	case EventTaskUpdate:
		var p TaskUpdatePayload
		if err := req.DecodeStrict(env.Payload, &p); err != nil {
			return nil, err
		}
		if p.ID == "" {
			return nil, errs.NewError(errs.ErrTaskIDRequired)
		}
		if p.Title != nil {
			title := strings.TrimSpace(*p.Title)
			if title == "" {
				return nil, errs.NewError(errs.ErrTitleRequired)
			}
			if err := checkLen("title", title, MaxTitleBytes); err != nil {
				return nil, err
			}
			p.Title = &title
		}
		if p.Description != nil {
			description := strings.TrimSpace(*p.Description)
			if err := checkLen("description", description, MaxDescriptionBytes); err != nil {
				return nil, err
			}
			p.Description = &description
		}
		return TaskUpdateCommand{TaskID: p.ID, Patch: workspace.TaskPatch{
			Title:       p.Title,
			Description: p.Description,
			AssigneeID:  p.AssigneeID,
		}}, nil

	case EventTaskMove:
		var p TaskMovePayload
		if err := req.DecodeStrict(env.Payload, &p); err != nil {
			return nil, err
		}
		if p.TaskID == "" {
			return nil, errs.NewError(errs.ErrTaskIDRequired)
		}
		if !p.NewStatus.Valid() {
			return nil, errs.NewError(errs.ErrInvalidTaskStatus)
		}
		return TaskMoveCommand{TaskID: p.TaskID, Status: p.NewStatus}, nil

	case EventMessageSend:
		var p MessageSendPayload
		if err := req.DecodeStrict(env.Payload, &p); err != nil {
			return nil, err
		}
		if strings.TrimSpace(p.Text) == "" {
			return nil, errs.NewError(errs.ErrMessageEmpty)
		}
		if len(p.Text) > MaxContentBytes {
			return nil, errs.NewError(errs.ErrMessageContentTooLong)
		}
		return MessageCommand{Text: p.Text}, nil

	case EventUserTyping:
		var typing bool
		if err := req.DecodeStrict(env.Payload, &typing); err != nil {
			return nil, err
		}
		return TypingCommand{IsTyping: typing}, nil
	}

	return nil, errs.NewError(errs.ErrUnknownEvent)
}

func checkLen(field, value string, limit int) *errs.CustomError {
	if len(value) > limit {
		return errs.NewError(errs.ErrFieldTooLong, field, limit)
	}
	return nil
}
