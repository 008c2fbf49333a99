package music

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a user-presentable playback failure
type ErrorCode int

const (
	// Voice eligibility (1xx)
	CodeUserNotInVoice ErrorCode = 101 + iota
	CodeInsufficientPermissions
	CodeBotInDifferentChannel
)

const (
	// Queue and state (2xx)
	CodeEmptyQueue ErrorCode = 201 + iota
	CodeIndexOutOfRange
	CodeNotPlaying
	CodeNotPaused
	CodeSessionClosed
)

const (
	// Resolution and backend (3xx)
	CodeNoResultsFound ErrorCode = 301 + iota
	CodeResolutionTimeout
	CodeBackendUnavailable
)

// String returns the stable name of the code
func (c ErrorCode) String() string {
	switch c {
	case CodeUserNotInVoice:
		return "UserNotInVoice"
	case CodeInsufficientPermissions:
		return "InsufficientPermissions"
	case CodeBotInDifferentChannel:
		return "BotInDifferentChannel"
	case CodeEmptyQueue:
		return "EmptyQueue"
	case CodeIndexOutOfRange:
		return "IndexOutOfRange"
	case CodeNotPlaying:
		return "NotPlaying"
	case CodeNotPaused:
		return "NotPaused"
	case CodeSessionClosed:
		return "SessionClosed"
	case CodeNoResultsFound:
		return "NoResultsFound"
	case CodeResolutionTimeout:
		return "ResolutionTimeout"
	case CodeBackendUnavailable:
		return "BackendUnavailable"
	default:
		return "Unknown"
	}
}

// Error is a structured playback failure. Two errors match under errors.Is
// when their codes are equal, so callers compare against the Err* sentinels.
type Error struct {
	Code   ErrorCode
	Detail string
	Err    error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Code.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Title returns a short heading for presentation
func (e *Error) Title() string {
	switch e.Code {
	case CodeUserNotInVoice:
		return "Not in Voice Channel"
	case CodeInsufficientPermissions:
		return "Missing Voice Permissions"
	case CodeBotInDifferentChannel:
		return "Bot in Different Channel"
	case CodeEmptyQueue:
		return "Empty Queue"
	case CodeIndexOutOfRange:
		return "Invalid Index"
	case CodeNotPlaying:
		return "Not Playing"
	case CodeNotPaused:
		return "Not Paused"
	case CodeSessionClosed:
		return "Session Closed"
	case CodeNoResultsFound:
		return "Track Not Found"
	case CodeResolutionTimeout:
		return "Request Timed Out"
	case CodeBackendUnavailable:
		return "Music Backend Unavailable"
	default:
		return "An Error Occurred"
	}
}

// Message returns the user-facing explanation
func (e *Error) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	switch e.Code {
	case CodeUserNotInVoice:
		return "You must be in a voice channel to use this command."
	case CodeInsufficientPermissions:
		return "I need permission to view, join and speak in your voice channel."
	case CodeBotInDifferentChannel:
		return "I'm already connected to another voice channel. Please use that channel or disconnect me first."
	case CodeEmptyQueue:
		return "The queue is empty."
	case CodeIndexOutOfRange:
		return "That position is not in the queue."
	case CodeNotPlaying:
		return "No track is currently playing."
	case CodeNotPaused:
		return "Playback is not paused."
	case CodeSessionClosed:
		return "The player was disconnected while handling your command."
	case CodeNoResultsFound:
		return "Could not find the requested track."
	case CodeResolutionTimeout:
		return "The music backend took too long to answer. Try again."
	case CodeBackendUnavailable:
		return "The music backend is not available right now."
	default:
		return "Something went wrong while processing your command."
	}
}

// Sentinel errors, one per code
var (
	ErrUserNotInVoice          = &Error{Code: CodeUserNotInVoice}
	ErrInsufficientPermissions = &Error{Code: CodeInsufficientPermissions}
	ErrBotInDifferentChannel   = &Error{Code: CodeBotInDifferentChannel}
	ErrEmptyQueue              = &Error{Code: CodeEmptyQueue}
	ErrIndexOutOfRange         = &Error{Code: CodeIndexOutOfRange}
	ErrNotPlaying              = &Error{Code: CodeNotPlaying}
	ErrNotPaused               = &Error{Code: CodeNotPaused}
	ErrSessionClosed           = &Error{Code: CodeSessionClosed}
	ErrNoResultsFound          = &Error{Code: CodeNoResultsFound}
	ErrResolutionTimeout       = &Error{Code: CodeResolutionTimeout}
	ErrBackendUnavailable      = &Error{Code: CodeBackendUnavailable}
)

// newError builds a failure with a cause attached
func newError(code ErrorCode, err error, format string, args ...any) *Error {
	return &Error{Code: code, Err: err, Detail: fmt.Sprintf(format, args...)}
}

// AsError extracts the structured failure from err. Errors that are not
// *Error are reported as CodeBackendUnavailable.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: CodeBackendUnavailable, Err: err}
}
