package core

import (
	"errors"
	"fmt"

	"github.com/mikey-austin/lumen/pkg/lumen"
)

// Exit codes.
const (
	ExitOK       = 0
	ExitRuntime  = 1
	ExitUsage    = 2
	ExitRejected = 3
	ExitNotFound = 4
)

// CLIError carries a user-visible message and exit code.
type CLIError struct {
	Code int
	Msg  string
	Err  error
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// WrapError creates a CLIError with an underlying error.
func WrapError(code int, msg string, err error) *CLIError {
	return &CLIError{Code: code, Msg: msg, Err: err}
}

// ErrorForReplyCode maps protocol error codes to CLI exit codes.
func ErrorForReplyCode(code string, message string) *CLIError {
	switch code {
	case lumen.CodeInvalid, lumen.CodeUnsupported:
		return &CLIError{Code: ExitUsage, Msg: message}
	default:
		return &CLIError{Code: ExitRuntime, Msg: message}
	}
}

// ExitCode returns the CLI exit code from error.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	return ExitRuntime
}
