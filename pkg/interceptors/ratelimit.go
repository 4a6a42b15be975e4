package interceptors

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"golang.org/x/time/rate"
)

var errRateLimited = errors.New("rate limit exceeded")

// NewRateLimitInterceptor rejects calls with ResourceExhausted once the
// shared token bucket is empty.
func NewRateLimitInterceptor(perSecond, burst int) connect.UnaryInterceptorFunc {
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)

	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if !limiter.Allow() {
				return nil, connect.NewError(connect.CodeResourceExhausted, errRateLimited)
			}
			return next(ctx, req)
		}
	}
}
