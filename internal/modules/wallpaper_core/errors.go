package wallpapercore

import (
	"context"
	"errors"

	"github.com/mikey-austin/lumen/pkg/lumen"
)

// ErrorCode classifies a submit or reply error into a protocol error code
// shared by every acceptor.
func ErrorCode(err error) string {
	var parseErr *lumen.ConfigParseError
	var modeErr *lumen.UnknownLaunchModeError
	switch {
	case errors.As(err, &parseErr), errors.As(err, &modeErr):
		return lumen.CodeInvalid
	case errors.Is(err, ErrChannelClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return lumen.CodeUnavailable
	default:
		return lumen.CodeInternal
	}
}
