/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both inside the server and in
communication with clients, over HTTP responses and over the websocket `error` frame.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidJSONFormat indicates that the request body or frame JSON is malformed.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrUnknownEvent indicates that a websocket frame named an event the server does not handle.
	ErrUnknownEvent = 1008
)

// 2xxx: Workspace Business Logic Errors
const (
	// ErrNameRequired indicates a join request without a display name.
	ErrNameRequired = 2101

	// ErrFieldTooLong indicates a name, avatar, title or description over its byte limit.
	ErrFieldTooLong = 2102

	// ErrInvalidUserStatus indicates a status outside active, away and do-not-disturb.
	ErrInvalidUserStatus = 2103

	// ErrTitleRequired indicates a task creation request with an empty title.
	ErrTitleRequired = 2201

	// ErrInvalidTaskStatus indicates a status outside todo, in-progress and done.
	ErrInvalidTaskStatus = 2202

	// ErrUnknownAssignee indicates an assigneeId that names no known user.
	ErrUnknownAssignee = 2203

	// ErrTaskIDRequired indicates an update or move without a task id.
	ErrTaskIDRequired = 2204

	// ErrMessageEmpty indicates a chat message with no text.
	ErrMessageEmpty = 2301

	// ErrMessageContentTooLong indicates that the message text exceeded the maximum length limit.
	ErrMessageContentTooLong = 2302
)

// 3xxx: Session and Security Errors
const (
	// ErrUnauthorized indicates a missing or invalid identity token.
	ErrUnauthorized = 3001

	// ErrUserNotFound indicates a token whose user id is not in the workspace.
	ErrUserNotFound = 3002

	// ErrArchiveDisabled indicates that snapshot archiving is not configured.
	ErrArchiveDisabled = 3003
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrArchiveFailed indicates that uploading or presigning a snapshot archive failed.
	ErrArchiveFailed = 5001
)
