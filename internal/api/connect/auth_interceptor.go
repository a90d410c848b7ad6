// Package connect provides Connect RPC service implementations.
package connect

import (
	"context"
	"crypto/subtle"

	"connectrpc.com/connect"

	"github.com/osa030/melodybox/internal/infra/config"
)

const (
	// ControlTokenHeader is the header name for the control token.
	ControlTokenHeader = "X-Control-Token"
)

// controlAuthInterceptor validates the control token on unary and
// streaming calls. With no token configured every call is allowed.
type controlAuthInterceptor struct {
	token string
}

// NewControlAuthInterceptor creates an interceptor that validates control
// tokens from request headers.
func NewControlAuthInterceptor(cfg *config.Config) connect.Interceptor {
	return &controlAuthInterceptor{token: cfg.Control.Token}
}

func (i *controlAuthInterceptor) check(token string) error {
	if i.token == "" {
		return nil
	}
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(i.token)) != 1 {
		return connect.NewError(connect.CodeUnauthenticated, nil)
	}
	return nil
}

func (i *controlAuthInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if err := i.check(req.Header().Get(ControlTokenHeader)); err != nil {
			return nil, err
		}
		return next(ctx, req)
	}
}

func (i *controlAuthInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *controlAuthInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		if err := i.check(conn.RequestHeader().Get(ControlTokenHeader)); err != nil {
			return err
		}
		return next(ctx, conn)
	}
}

// NewControlTokenClientInterceptor attaches the control token to every
// outgoing call.
func NewControlTokenClientInterceptor(token string) connect.Interceptor {
	return &clientTokenInterceptor{token: token}
}

type clientTokenInterceptor struct {
	token string
}

func (i *clientTokenInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if i.token != "" {
			req.Header().Set(ControlTokenHeader, i.token)
		}
		return next(ctx, req)
	}
}

func (i *clientTokenInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return func(ctx context.Context, spec connect.Spec) connect.StreamingClientConn {
		conn := next(ctx, spec)
		if i.token != "" {
			conn.RequestHeader().Set(ControlTokenHeader, i.token)
		}
		return conn
	}
}

func (i *clientTokenInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}
