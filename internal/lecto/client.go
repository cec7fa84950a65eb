package lecto

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"lecto-bridge/internal/metrics"
)

type Config struct {
	APIKey      string
	BaseURL     string
	MaxAttempts int
	Timeout     time.Duration
}

// Client talks to the Lecto API. It keeps only static configuration, so one
// instance can be shared by concurrent callers.
type Client struct {
	apiKey      string
	baseURL     string
	maxAttempts int
	exec        *Executor
}

type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	backoff    time.Duration
	logger     *slog.Logger
}

// WithHTTPClient replaces the transport. Its Timeout bounds every attempt.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

func WithBackoff(d time.Duration) Option {
	return func(o *clientOptions) { o.backoff = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

func NewClient(cfg Config, opts ...Option) *Client {
	o := clientOptions{backoff: DefaultBackoff}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &Client{
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		maxAttempts: maxAttempts,
		exec:        NewExecutor(o.httpClient, o.backoff, o.logger),
	}
}

func (c *Client) CreateDebtor(ctx context.Context, req DebtorRequest) (*Debtor, error) {
	var out Debtor
	if err := c.do(ctx, "create_debtor", http.MethodPost, []string{"debtors"}, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateDebt(ctx context.Context, req DebtRequest) (*Debt, error) {
	var out Debt
	if err := c.do(ctx, "create_debt", http.MethodPost, []string{"debts"}, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateDebtStatus(ctx context.Context, req DebtStatusRequest) (*DebtStatus, error) {
	var out DebtStatus
	if err := c.do(ctx, "update_debt_status", http.MethodPatch, []string{"debt_statuses"}, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListReminds returns the reminds of a remind group due on remindAt. The
// group's active flag is ignored so past or disabled groups still answer.
func (c *Client) ListReminds(ctx context.Context, remindGroupID uint64, remindAt Date) ([]Remind, error) {
	query := url.Values{}
	query.Set("remind_at", remindAt.String())
	query.Set("ignore_remind_group_status", "true")

	segments := []string{"remind_groups", strconv.FormatUint(remindGroupID, 10), "reminds"}

	var out []Remind
	if err := c.do(ctx, "list_reminds", http.MethodGet, segments, query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(
	ctx context.Context,
	operation string,
	method string,
	segments []string,
	query url.Values,
	body any,
	out any,
) (err error) {
	start := time.Now()
	defer func() {
		metrics.LectoLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.LectoErrors.WithLabelValues(operation, errorLabel(err)).Inc()
		}
	}()

	u, err := JoinURL(c.baseURL, segments...)
	if err != nil {
		return err
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("lecto: encode %s request: %w", operation, err)
		}
	}

	target := u.String()
	build := func(ctx context.Context) (*http.Request, error) {
		var r io.Reader
		if payload != nil {
			r = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, r)
		if err != nil {
			return nil, fmt.Errorf("lecto: build %s request: %w", operation, err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	}

	resp, err := c.exec.Execute(ctx, build, c.maxAttempts)
	if err != nil {
		return err
	}

	return handleResponse(resp, string(payload), out)
}

func handleResponse(resp *http.Response, request string, out any) error {
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("lecto: read %d response: %w", resp.StatusCode, err)
	}

	if err := Classify(resp.StatusCode, request, data); err != nil {
		return err
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Status: resp.StatusCode, Body: string(data), Err: err}
	}

	return nil
}

func errorLabel(err error) string {
	if kind, ok := KindOf(err); ok {
		return kind.String()
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return "decode"
	}
	return "transport"
}
