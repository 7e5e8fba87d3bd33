package accounts

import (
	"errors"
	"net/http"
)

// Repository sentinels.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrCodeNotFound    = errors.New("confirmation code not found")
	ErrTokenNotFound   = errors.New("session token not found")
	ErrEmailTaken      = errors.New("email already registered")
)

// Messages returned to callers verbatim.
const (
	MsgUserExists         = "user already exists"
	MsgUserDoesNotExist   = "user does not exist"
	MsgCodeNotFound       = "confirmation code not found"
	MsgCodeInvalid        = "invalid confirmation code"
	MsgBadCredentials     = "credentials are wrong"
	MsgNotActivated       = "account is not activated yet"
	MsgTokenRequired      = "token is required"
	MsgInvalidGoogleToken = "invalid google token"
	MsgEmailNotFound      = "email not found"
	MsgNoActiveAccount    = "no active account found with the given credentials"
	MsgTokenInvalid       = "token is invalid or expired"

	MsgActivated   = "account activated successfully"
	MsgGoogleLogin = "google login successful"
)

type Kind int

const (
	// KindValidation covers malformed input and rejected business rules.
	KindValidation Kind = iota + 1
	// KindUnauthorized covers bad credentials, inactive accounts and bad tokens.
	KindUnauthorized
	// KindUpstream covers Google tokeninfo failures. Reported like a validation error.
	KindUpstream
)

// Error is a failure the caller caused. Anything else returned by the
// service is an internal error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the kind onto an HTTP status code.
func (e *Error) Status() int {
	if e.Kind == KindUnauthorized {
		return http.StatusUnauthorized
	}
	return http.StatusBadRequest
}

func invalid(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }

func unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }
