package llm

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"lexease-backend/internal/shared/requestctx"
	"lexease-backend/internal/shared/telemetry"
	"lexease-backend/internal/shared/util"
)

const retryBaseDelay = 300 * time.Millisecond

type retryingClient struct {
	base  Client
	delay time.Duration
}

// WithRetry wraps base so a transient failure is retried once after a short delay.
func WithRetry(base Client) Client {
	if base == nil {
		return nil
	}
	if _, ok := base.(retryingClient); ok {
		return base
	}
	return retryingClient{base: base, delay: retryBaseDelay}
}

func (r retryingClient) Generate(ctx context.Context, req Request) (string, error) {
	out, err := r.base.Generate(ctx, req)
	if err == nil || !ShouldRetry(err) {
		return out, err
	}

	telemetry.Info("llm.retry", map[string]any{
		"request_id": requestctx.RequestID(ctx),
		"task":       req.Task,
		"attempt":    1,
		"error":      util.Truncate(err.Error(), 300),
	})
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return r.base.Generate(ctx, req)
}

// ShouldRetry reports whether err looks transient: timeouts, 5xx responses
// and dropped connections.
func ShouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"http status 5",
		"server_error",
		"request timeout",
		"client.timeout",
		"connection reset",
		"connection refused",
		"connection closed",
		"broken pipe",
		"tls handshake timeout",
		"unexpected eof",
		"error 500",
		"error 502",
		"error 503",
		"error 504",
		"unavailable",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
