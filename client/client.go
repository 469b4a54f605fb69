// Package client is the Go client for the rundown sync engine. It wraps
// the HTTP RPC surface and carries a durable offline queue: a field
// update that cannot reach the server is parked on disk and replayed, in
// order, once connectivity returns.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	rundownSvc "rundown/internal/domain/services/rundown"

	"github.com/cenkalti/backoff/v4"
)

// Client talks to one rundown server on behalf of one editor connection.
// ClientID doubles as the origin tag: the server stamps it onto the
// broadcasts this client's writes produce, and the client discards
// incoming events carrying its own tag.
type Client struct {
	baseURL    string
	token      string
	clientID   string
	httpClient *http.Client
	queue      *Queue
	logger     *slog.Logger
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	Token     string // bearer token
	ClientID  string // origin tag, unique per connection
	QueuePath string // durable offline queue file
	Timeout   time.Duration
}

// New creates a client.
func New(opts Options, logger *slog.Logger) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    opts.BaseURL,
		token:      opts.Token,
		clientID:   opts.ClientID,
		httpClient: &http.Client{Timeout: timeout},
		queue:      NewQueue(opts.QueuePath),
		logger:     logger,
	}
}

// ApplyFieldUpdate sends one field update. On a transport failure or a
// 5xx the mutation is parked in the offline queue and a nil result is
// returned with no error: the write is accepted locally and will land on
// replay.
func (c *Client) ApplyFieldUpdate(ctx context.Context, rundownID string, req rundownSvc.FieldUpdateRequest) (*rundownSvc.MutationResult, error) {
	result, err := c.postFieldUpdate(ctx, rundownID, req)
	if err == nil {
		return result, nil
	}
	if !isRetryable(err) {
		return nil, err
	}

	c.logger.Warn("field update parked in offline queue",
		"rundown_id", rundownID,
		"field", req.Field,
		"error", err,
	)

	if qErr := c.queue.Enqueue(QueuedMutation{
		RundownID:  rundownID,
		Request:    req,
		EnqueuedAt: time.Now(),
	}); qErr != nil {
		return nil, fmt.Errorf("enqueue after send failure: %w (send error: %v)", qErr, err)
	}

	return nil, nil
}

// Replay drains the offline queue in order, retrying each mutation with
// exponential backoff. Replay stops at the first mutation that keeps
// failing; everything from that point stays queued for the next attempt.
func (c *Client) Replay(ctx context.Context) error {
	queued, err := c.queue.Load()
	if err != nil {
		return err
	}
	if len(queued) == 0 {
		return nil
	}

	for i, m := range queued {
		policy := backoff.WithContext(newBackOff(), ctx)
		err := backoff.Retry(func() error {
			_, sendErr := c.postFieldUpdate(ctx, m.RundownID, m.Request)
			if sendErr != nil && !isRetryable(sendErr) {
				// Rejected outright (validation, authz): drop, not retry
				c.logger.Warn("queued mutation rejected, dropping",
					"rundown_id", m.RundownID,
					"field", m.Request.Field,
					"error", sendErr,
				)
				return nil
			}
			return sendErr
		}, policy)
		if err != nil {
			// Still failing: keep this one and the rest for next time
			return c.queue.Rewrite(queued[i:])
		}
	}

	return c.queue.Rewrite(nil)
}

// QueuedCount reports how many mutations await replay.
func (c *Client) QueuedCount() (int, error) {
	return c.queue.Len()
}

func (c *Client) postFieldUpdate(ctx context.Context, rundownID string, req rundownSvc.FieldUpdateRequest) (*rundownSvc.MutationResult, error) {
	payload := map[string]interface{}{
		"row_id": req.RowID,
		"field":  req.Field,
		"value":  req.Value,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal field update: %w", err)
	}

	url := fmt.Sprintf("%s/api/rundowns/%s/fields", c.baseURL, rundownID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build field update request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("X-Client-ID", c.clientID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &transportError{err: fmt.Errorf("server returned %d: %s", resp.StatusCode, payload)}
	}
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("field update rejected with %d: %s", resp.StatusCode, payload)
	}

	var result rundownSvc.MutationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode field update response: %w", err)
	}

	return &result, nil
}

// transportError marks failures worth retrying: network errors and 5xx.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var te *transportError
	return errors.As(err, &te)
}

func newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 2 * time.Minute
	return b
}
