package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"feedcurator/internal/feed"
	"feedcurator/internal/logging"
	"feedcurator/internal/services"
)

const (
	defaultTimeout = 45 * time.Second
	maxBodyBytes   = 4 << 20
)

// Request is the wire body sent to every endpoint.
type Request struct {
	Videos []feed.CandidateItem `json:"videos"`
}

// Response is the body returned by the endpoint that succeeded.
type Response struct {
	Endpoint   string
	StatusCode int
	Body       json.RawMessage
}

// Attempt records one failed endpoint.
type Attempt struct {
	Endpoint string
	Err      error
}

// UnreachableError reports that no endpoint produced a usable response.
type UnreachableError struct {
	Attempts []Attempt
	Last     error
}

func (e *UnreachableError) Error() string {
	if e.Last == nil {
		return "no endpoint reachable"
	}
	return fmt.Sprintf("no endpoint reachable after %d attempt(s): %v", len(e.Attempts), e.Last)
}

// Unwrap exposes both the network-unreachable marker and the last failure.
func (e *UnreachableError) Unwrap() []error {
	if e.Last == nil {
		return []error{services.ErrNetworkUnreachable}
	}
	return []error{services.ErrNetworkUnreachable, e.Last}
}

// StatusError reports a non-2xx endpoint response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, body)
}

// Dispatcher tries endpoints in order.
type Dispatcher struct {
	endpoints  []string
	httpClient *http.Client
	maxItems   int
	logger     *slog.Logger
	observer   func(endpoint string, err error)
}

// Option customizes the dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		if client != nil {
			d.httpClient = client
		}
	}
}

// WithTimeout sets the per-endpoint request timeout on the default client.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithMaxItems caps the number of items posted (defaults to 30).
func WithMaxItems(max int) Option {
	return func(d *Dispatcher) {
		if max > 0 {
			d.maxItems = max
		}
	}
}

// WithLogger sets the logger used for endpoint failure warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithObserver registers a callback invoked after every endpoint attempt
// with a nil error on success.
func WithObserver(observer func(endpoint string, err error)) Option {
	return func(d *Dispatcher) {
		d.observer = observer
	}
}

// New constructs a dispatcher over the ordered endpoint list.
func New(endpoints []string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		endpoints:  append([]string(nil), endpoints...),
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxItems:   feed.DefaultMaxItems,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.NewComponentLogger(d.logger, "dispatch")
	return d
}

// Endpoints returns the configured preference list.
func (d *Dispatcher) Endpoints() []string {
	return append([]string(nil), d.endpoints...)
}

// Dispatch posts items to each endpoint in order and returns the first
// success. Items beyond the cap are not sent; positions are rewritten to be
// 0-based and contiguous.
func (d *Dispatcher) Dispatch(ctx context.Context, items []feed.CandidateItem) (Response, error) {
	head, _ := feed.Split(items, d.maxItems)
	if head == nil {
		head = []feed.CandidateItem{}
	}
	body, err := json.Marshal(Request{Videos: head})
	if err != nil {
		return Response{}, fmt.Errorf("dispatch: encode body: %w", err)
	}

	logger := logging.WithContext(ctx, d.logger)
	unreachable := &UnreachableError{}
	for _, endpoint := range d.endpoints {
		if ctx.Err() != nil {
			unreachable.Last = ctx.Err()
			break
		}
		resp, err := d.post(ctx, endpoint, body)
		d.observe(endpoint, err)
		if err == nil {
			logger.Debug("endpoint succeeded",
				logging.Endpoint(endpoint),
				logging.ItemCount(len(head)))
			return resp, nil
		}
		unreachable.Attempts = append(unreachable.Attempts, Attempt{Endpoint: endpoint, Err: err})
		unreachable.Last = err
		logging.WarnWithContext(logger, "endpoint failed", "endpoint_failed",
			logging.Endpoint(endpoint),
			logging.Error(err),
			logging.Hint("check that the reranking service is running and reachable"),
			logging.Impact("falling back to the next endpoint"))
	}
	return Response{}, unreachable
}

func (d *Dispatcher) post(ctx context.Context, endpoint string, body []byte) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if id, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Response{}, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, &StatusError{StatusCode: resp.StatusCode, Body: string(payload)}
	}
	if !json.Valid(payload) {
		return Response{}, services.Wrap(services.ErrMalformedResponse, "dispatch", "decode", "body is not JSON", nil)
	}
	return Response{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: json.RawMessage(payload)}, nil
}

func (d *Dispatcher) observe(endpoint string, err error) {
	if d.observer != nil {
		d.observer(endpoint, err)
	}
}

// IsUnreachable reports whether err means every endpoint failed.
func IsUnreachable(err error) bool {
	var target *UnreachableError
	return errors.As(err, &target)
}
