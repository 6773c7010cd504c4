package nauta

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyConnected = errors.New("there is an active connection")
	ErrSessionOpen      = errors.New("there is an open session")
	ErrSessionNotFound  = errors.New("no saved session found")
	ErrNoSession        = errors.New("no active session")
)

// PreLoginError reports that a login could not even be attempted: the
// gateway is unreachable, or a connection or session already exists.
type PreLoginError struct {
	Msg string
	Err error
}

func (e *PreLoginError) Error() string {
	switch {
	case e.Msg == "":
		return fmt.Sprintf("pre-login failed: %v", e.Err)
	case e.Err == nil:
		return "pre-login failed: " + e.Msg
	default:
		return fmt.Sprintf("pre-login failed: %s: %v", e.Msg, e.Err)
	}
}

func (e *PreLoginError) Unwrap() error { return e.Err }

// LoginError reports a rejected login or a malformed negotiation response.
// Reason holds the text the gateway gave, empty when none could be found.
type LoginError struct {
	Reason string
}

func (e *LoginError) Error() string {
	if e.Reason == "" {
		return "login failed: no reason given by the gateway"
	}
	return "login failed: " + e.Reason
}

// LogoutError reports that the gateway answered a logout request without
// confirming it.
type LogoutError struct {
	Msg string
}

func (e *LogoutError) Error() string {
	return "logout failed: " + e.Msg
}

// LogoutFailedError is returned once every logout attempt failed on the
// network. The session record is kept so the logout can be retried later.
type LogoutFailedError struct {
	Attempts int
	Err      error
}

func (e *LogoutFailedError) Error() string {
	return fmt.Sprintf(
		"could not close the session after %d attempts (%v); you may already be disconnected, try 'nauta down' in a few minutes",
		e.Attempts, e.Err,
	)
}

func (e *LogoutFailedError) Unwrap() error { return e.Err }

// ProtocolError is a generic gateway or query failure.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string {
	return e.Msg
}

// NetworkError wraps a transport failure (timeout, refused connection, DNS)
// raised while talking to the gateway.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err is, or wraps, a transport failure,
// letting callers print a "check your connection" hint instead of a
// protocol message.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
