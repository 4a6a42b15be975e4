package interceptors

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// NewLoggingInterceptor logs every unary call with its duration and outcome.
// Server-side failures are logged at ERROR, client errors at WARN.
func NewLoggingInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			attrs := []any{
				slog.String("procedure", req.Spec().Procedure),
				slog.Duration("duration", time.Since(start)),
				slog.String("peer", req.Peer().Addr),
			}
			if err == nil {
				logger.InfoContext(ctx, "rpc completed", attrs...)
				return resp, nil
			}

			code := connect.CodeOf(err)
			attrs = append(attrs, slog.String("code", code.String()), slog.Any("error", err))
			var connectErr *connect.Error
			if !errors.As(err, &connectErr) || code == connect.CodeInternal || code == connect.CodeUnknown {
				logger.ErrorContext(ctx, "rpc failed", attrs...)
			} else {
				logger.WarnContext(ctx, "rpc rejected", attrs...)
			}
			return resp, err
		}
	}
}
