package protocol

import (
	"errors"
	"fmt"

	"github.com/mcoot/hackstorm/internal/model"
	"github.com/mcoot/hackstorm/internal/services/auth"
)

// Frame-level errors
var (
	ErrInvalidFrame   = errors.New("invalid frame")
	ErrUnknownAction  = errors.New("unknown action")
	ErrInvalidRequest = errors.New("invalid request")
)

// Error codes carried in the "code" field of error responses
const (
	CodeInvalidFrame       = "INVALID_FRAME"
	CodeFrameTooLarge      = "FRAME_TOO_LARGE"
	CodeUnknownAction      = "UNKNOWN_ACTION"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUsernameExists     = "USERNAME_EXISTS"
	CodeNotLoggedIn        = "NOT_LOGGED_IN"
	CodeNotFound           = "NOT_FOUND"
	CodeNotOnline          = "NOT_ONLINE"
	CodeStorageError       = "STORAGE_ERROR"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeServerFull         = "SERVER_FULL"
)

// Error is a coded protocol error. Servers produce it from failures;
// clients get it back when a response has status "error".
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// StorageError marks a failure of the record store
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string { return "storage: " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &Error{CodeInvalidRequest, message}
}

// toError converts any error into a coded protocol error
func toError(err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}

	switch {
	// Frame errors
	case errors.Is(err, ErrFrameTooLarge):
		return &Error{CodeFrameTooLarge, fmt.Sprintf("Frame too large (max %d bytes).", MaxFrameSize)}
	case errors.Is(err, ErrInvalidFrame):
		return &Error{CodeInvalidFrame, "Invalid JSON."}
	case errors.Is(err, ErrUnknownAction):
		return &Error{CodeUnknownAction, "Unknown action."}
	case errors.Is(err, ErrInvalidRequest):
		return &Error{CodeInvalidRequest, "Invalid request fields."}

	// Auth errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &Error{CodeInvalidCredentials, "Invalid username or password."}
	case errors.Is(err, auth.ErrUsernameExists):
		return &Error{CodeUsernameExists, "Username already taken."}
	case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrInvalidSecret):
		return &Error{CodeInvalidRequest, err.Error()}

	// Model errors
	case errors.Is(err, model.ErrNotLoggedIn):
		return &Error{CodeNotLoggedIn, "Not logged in."}
	case errors.Is(err, model.ErrAccountNotFound):
		return &Error{CodeNotFound, "Player not found."}
	case errors.Is(err, model.ErrNotOnline):
		return &Error{CodeNotOnline, "Player is not online."}
	case errors.Is(err, model.ErrEmptyMessage):
		return &Error{CodeInvalidRequest, "Empty message."}
	case errors.Is(err, model.ErrMessageTooLong):
		return &Error{CodeInvalidRequest, fmt.Sprintf("Message too long (%d max).", model.MaxChatLength)}
	case errors.Is(err, model.ErrInvalidGameState),
		errors.Is(err, model.ErrNegativeStats),
		errors.Is(err, model.ErrInvalidSortField):
		return &Error{CodeInvalidRequest, err.Error()}
	}

	var se *StorageError
	if errors.As(err, &se) {
		return &Error{CodeStorageError, "Storage failure, please try again."}
	}
	return &Error{CodeInternalError, "Server error."}
}

// ErrorResponse builds the response frame for a failed request
func ErrorResponse(err error) Status {
	pe := toError(err)
	return Status{Status: StatusError, Message: pe.Message, Code: pe.Code}
}
