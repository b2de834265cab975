package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
var errorMap = map[int]CustomError{
	// 1xxx
	ErrInvalidJSONFormat:  {Code: ErrInvalidJSONFormat, Message: "Malformed JSON payload."},
	ErrExtraContentInBody: {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrRateLimitExceeded:  {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrUnknownEvent:       {Code: ErrUnknownEvent, Message: "Unsupported event type."},

	// 2xxx
	ErrNameRequired:          {Code: ErrNameRequired, Message: "A display name is required to join."},
	ErrFieldTooLong:          {Code: ErrFieldTooLong, Message: "Field %s exceeds %d bytes."},
	ErrInvalidUserStatus:     {Code: ErrInvalidUserStatus, Message: "Invalid user status."},
	ErrTitleRequired:         {Code: ErrTitleRequired, Message: "Task title is required."},
	ErrInvalidTaskStatus:     {Code: ErrInvalidTaskStatus, Message: "Invalid task status."},
	ErrUnknownAssignee:       {Code: ErrUnknownAssignee, Message: "Assignee is not a member of this workspace."},
	ErrTaskIDRequired:        {Code: ErrTaskIDRequired, Message: "Task id is required."},
	ErrMessageEmpty:          {Code: ErrMessageEmpty, Message: "Message text is required."},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},

	// 3xxx
	ErrUnauthorized:    {Code: ErrUnauthorized, Message: "Please join the workspace to continue.", Status: http.StatusUnauthorized},
	ErrUserNotFound:    {Code: ErrUserNotFound, Message: "User not found in this workspace.", Status: http.StatusNotFound},
	ErrArchiveDisabled: {Code: ErrArchiveDisabled, Message: "Snapshot archiving is not enabled.", Status: http.StatusServiceUnavailable},

	// 5xxx
	ErrUnknown:       {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrArchiveFailed: {Code: ErrArchiveFailed, Message: "Snapshot archive failed. Please try again.", Status: http.StatusBadGateway},
}
