// internal/apperr/apperr.go
//
// Error taxonomy shared by the engine, the command dispatcher and the
// transports. Every user-facing failure carries a stable Code so callers
// branch on it instead of matching message text.
//
// Codes and their numeric status (the "code" field of every response):
//   0 ok
//   1 invalid_command      unrecognized command token
//   2 game_not_running     gameplay command while idle
//   3 oracle_busy          a judgement is already in flight
//   4 validation_error     submission too short / malformed request
//   5 oracle_failure       oracle raised, timed out or returned garbage
//   6 configuration_error  no usable puzzles (fatal at startup)
//  99 internal_error       anything unclassified; a bug, never retried

package apperr

import (
	"errors"
	"net/http"
)

// Code identifies an error class.
type Code string

const (
	CodeOK             Code = ""
	CodeInvalidCommand Code = "invalid_command"
	CodeGameNotRunning Code = "game_not_running"
	CodeOracleBusy     Code = "oracle_busy"
	CodeValidation     Code = "validation_error"
	CodeOracleFailure  Code = "oracle_failure"
	CodeConfiguration  Code = "configuration_error"
	CodeInternal       Code = "internal_error"
)

// Error is a classified error. Msg is human readable; Err is the optional cause.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidCommand = &Error{Code: CodeInvalidCommand, Msg: "unknown command"}
	ErrGameNotRunning = &Error{Code: CodeGameNotRunning, Msg: "game is not running"}
	ErrOracleBusy     = &Error{Code: CodeOracleBusy, Msg: "the host is still thinking"}
	ErrValidation     = &Error{Code: CodeValidation, Msg: "invalid submission"}
	ErrOracleFailure  = &Error{Code: CodeOracleFailure, Msg: "judge unavailable"}
	ErrConfiguration  = &Error{Code: CodeConfiguration, Msg: "invalid configuration"}
)

// New builds a classified error with a custom message.
func New(code Code, msg string) *Error { return &Error{Code: code, Msg: msg} }

// Wrap classifies cause under code.
func Wrap(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Msg: msg, Err: cause}
}

// CodeOf extracts the code of err. ok is false for unclassified errors.
func CodeOf(err error) (Code, bool) {
	if err == nil {
		return CodeOK, true
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return CodeOK, false
}

// Status maps a code to its numeric response status.
func Status(code Code) int {
	switch code {
	case CodeOK:
		return 0
	case CodeInvalidCommand:
		return 1
	case CodeGameNotRunning:
		return 2
	case CodeOracleBusy:
		return 3
	case CodeValidation:
		return 4
	case CodeOracleFailure:
		return 5
	case CodeConfiguration:
		return 6
	}
	return 99
}

// HTTPStatus maps a code to the HTTP status used by the web transport.
// Expected gameplay conditions stay 200 so pollers and simple clients
// read the body; only malformed input and upstream failures differ.
func HTTPStatus(code Code) int {
	switch code {
	case CodeOK, CodeGameNotRunning, CodeOracleBusy:
		return http.StatusOK
	case CodeInvalidCommand, CodeValidation:
		return http.StatusBadRequest
	case CodeOracleFailure:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Retryable reports whether resubmitting the same request may succeed.
func Retryable(err error) bool {
	return errors.Is(err, ErrOracleBusy) || errors.Is(err, ErrOracleFailure)
}
