package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// Business error codes.
const (
	CodeAlreadyInGroup  = "ALREADY_IN_GROUP"
	CodeGroupNotFound   = "GROUP_NOT_FOUND"
	CodeGroupClosed     = "GROUP_CLOSED"
	CodeGroupFull       = "GROUP_FULL"
	CodeNotMember       = "NOT_MEMBER"
	CodeNotOwner        = "NOT_OWNER"
	CodeMessageNotFound = "MESSAGE_NOT_FOUND"
	CodeMessageDeleted  = "MESSAGE_DELETED"
	CodeEmptyMessage    = "EMPTY_MESSAGE"
	CodeInvalidEmoji    = "INVALID_EMOJI"
	CodeUserNotFound    = "USER_NOT_FOUND"
	CodeInvalidPassword = "INVALID_PASSWORD"
	CodeUsernameTaken   = "USERNAME_TAKEN"
)

var (
	ErrAlreadyInGroup  = NewAppError(CodeAlreadyInGroup, "You're already in a group for this course.")
	ErrGroupNotFound   = NewAppError(CodeGroupNotFound, "This group no longer exists.")
	ErrGroupClosed     = NewAppError(CodeGroupClosed, "This group is closed to new members.")
	ErrGroupFull       = NewAppError(CodeGroupFull, "This group is full.")
	ErrNotMember       = NewAppError(CodeNotMember, "You're not a member of this group.")
	ErrNotOwner        = NewAppError(CodeNotOwner, "Only the group owner can do that.")
	ErrMessageNotFound = NewAppError(CodeMessageNotFound, "Message not found.")
	ErrMessageDeleted  = NewAppError(CodeMessageDeleted, "This message has been deleted.")
	ErrEmptyMessage    = NewAppError(CodeEmptyMessage, "Message cannot be empty.")
	ErrInvalidEmoji    = NewAppError(CodeInvalidEmoji, "This reaction is not supported.")
	ErrUserNotFound    = NewAppError(CodeUserNotFound, "User not found. Please create an account.")
	ErrInvalidPassword = NewAppError(CodeInvalidPassword, "Incorrect password")
	ErrUsernameTaken   = NewAppError(CodeUsernameTaken, "This name is already taken. Please choose another.")
)

// AppError is an expected business outcome: it is returned to callers as data and rendered for display.
type AppError struct {
	Code    string
	Message string
	GroupID string // redirect target, set for ALREADY_IN_GROUP
}

func NewAppError(code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

func (err *AppError) Error() string {
	return err.Code + ": " + err.Message
}

// Is reports whether target is an *AppError with the same code.
func (err *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == err.Code
}

// WithGroupID returns a copy of err pointing at groupID.
func (err *AppError) WithGroupID(groupID string) *AppError {
	cp := *err
	cp.GroupID = groupID
	return &cp
}

// AsAppError extracts the *AppError wrapped in err, if any.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
