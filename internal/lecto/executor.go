package lecto

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"lecto-bridge/internal/metrics"

	"github.com/sethvargo/go-retry"
)

// DefaultBackoff is the fixed pause between attempts after a transport failure.
const DefaultBackoff = 1000 * time.Millisecond

// RequestFactory builds a fresh request for one attempt. It may be called up
// to maxAttempts times and must return an equivalent request each time.
type RequestFactory func(ctx context.Context) (*http.Request, error)

// Executor sends requests, retrying only on transport failures.
type Executor struct {
	httpClient *http.Client
	backoff    time.Duration
	logger     *slog.Logger
}

func NewExecutor(httpClient *http.Client, backoff time.Duration, logger *slog.Logger) *Executor {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		httpClient: httpClient,
		backoff:    backoff,
		logger:     logger,
	}
}

// Execute runs build+send until a response arrives or attempts run out.
// Any HTTP response ends the loop whatever its status; connection errors and
// timeouts are retried after a fixed pause. When the last attempt fails the
// transport error is returned unmodified. maxAttempts below 1 means 1.
func (e *Executor) Execute(ctx context.Context, build RequestFactory, maxAttempts int) (*http.Response, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	b := retry.WithMaxRetries(uint64(maxAttempts-1), retry.NewConstant(e.backoff))

	var (
		resp    *http.Response
		attempt int
	)
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++

		req, err := build(ctx)
		if err != nil {
			return err
		}

		r, err := e.httpClient.Do(req)
		if err != nil {
			metrics.LectoAttempts.WithLabelValues("transport_error").Inc()
			if attempt < maxAttempts {
				e.logger.Warn("lecto request failed, will retry",
					"attempt", attempt,
					"max_attempts", maxAttempts,
					"method", req.Method,
					"url", req.URL.String(),
					"error", err,
				)
			}
			return retry.RetryableError(err)
		}

		metrics.LectoAttempts.WithLabelValues("response").Inc()
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}
