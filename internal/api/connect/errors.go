package connect

import (
	"context"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/osa030/melodybox/internal/app/playback"
	"github.com/osa030/melodybox/internal/app/session"
	"github.com/osa030/melodybox/internal/infra/audio"
	"github.com/osa030/melodybox/internal/infra/catalog"
)

// toConnectError maps application errors to RPC status codes.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}

	var code connect.Code
	switch {
	case errors.Is(err, playback.ErrInvalidIndex):
		code = connect.CodeInvalidArgument
	case errors.Is(err, playback.ErrEmptyQueue),
		errors.Is(err, session.ErrNoCatalog),
		errors.Is(err, session.ErrNotRemote),
		errors.Is(err, session.ErrSessionNotRunning):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, playback.ErrAutoplayBlocked),
		errors.Is(err, audio.ErrAutoplayBlocked):
		code = connect.CodePermissionDenied
	case errors.Is(err, session.ErrSuperseded):
		code = connect.CodeAborted
	case errors.Is(err, catalog.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, playback.ErrPlayback),
		errors.Is(err, catalog.ErrUnavailable),
		errors.Is(err, audio.ErrClosed):
		code = connect.CodeUnavailable
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	default:
		code = connect.CodeInternal
	}
	return connect.NewError(code, err)
}
