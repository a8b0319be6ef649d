// Package webhdfs is a client for WebHDFS/HttpFS gateways that sit behind a
// form-based login. It logs in on demand, caches the session for the
// lifetime the gateway grants it, and classifies the gateway's responses
// into typed errors.
package webhdfs

import (
	"errors"
	"fmt"
)

// Sentinel errors for failure classification.
// Use errors.Is(err, webhdfs.ErrAccessControl) to check.
var (
	ErrConfig            = errors.New("webhdfs: invalid configuration")
	ErrTransport         = errors.New("webhdfs: transport failure")
	ErrLoginFailed       = errors.New("webhdfs: login failed")
	ErrAccessControl     = errors.New("webhdfs: access denied")
	ErrFileNotFound      = errors.New("webhdfs: file not found")
	ErrRemote            = errors.New("webhdfs: remote exception")
	ErrMalformedResponse = errors.New("webhdfs: malformed response")
	ErrUnexpectedStatus  = errors.New("webhdfs: unexpected HTTP status")
	ErrLocalIO           = errors.New("webhdfs: local I/O failure")
)

// loginFailedMessage is the message reported when the gateway does not
// establish a session.
const loginFailedMessage = "Login failed"

// LoginError reports that the login exchange completed but the gateway did
// not establish a session.
type LoginError struct {
	Message     string
	CookieCount int
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("webhdfs: %s (%d session cookies)", e.Message, e.CookieCount)
}

func (e *LoginError) Unwrap() error {
	return ErrLoginFailed
}

// RemoteError is a RemoteException reported by the gateway in a response body.
// Exception holds the short class name exactly as the gateway sent it, so
// callers can match on values the package has no sentinel for.
type RemoteError struct {
	Exception     string
	JavaClassName string
	Message       string
	StatusCode    int

	// Args holds the key=value pairs following "Permission denied:" in an
	// AccessControlException message (typically user, access, inode).
	// Nil for other exceptions.
	Args map[string]string

	Err error // sentinel, for errors.Is()
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("webhdfs: %s (HTTP %d): %s", e.Exception, e.StatusCode, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx response whose body carried no RemoteException,
// such as an HTML error page from a proxy in front of the gateway.
type StatusError struct {
	StatusCode int
	Body       string // truncated to maxErrorBodyLen
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhdfs: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}
