// Package client talks to the reservation API on behalf of a signed-in
// user. Every call takes the caller's *Session; there is no package-level
// auth state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker/v2"
)

const maxResponseSize = 10 << 20

var (
	ErrSessionInvalid = errors.New("session is no longer valid, please log in again")
	ErrUnavailable    = errors.New("service temporarily unavailable")
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

type Options struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	// FailureThreshold consecutive 5xx or transport failures open the
	// breaker for OpenTimeout.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	breaker *gobreaker.CircuitBreaker[*response]
}

type response struct {
	status int
	body   []byte
}

func New(baseURL string, opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenTimeout == 0 {
		opts.OpenTimeout = 30 * time.Second
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    opts.HTTPClient,
		logger:  opts.Logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        "tablebook-api",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Status < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
	return c
}

// do sends one request. sess may be nil for the public auth endpoints. A 401
// on an authenticated call invalidates sess for good.
func (c *Client) do(ctx context.Context, sess *Session, method, path string, in any, header http.Header) ([]byte, error) {
	if sess != nil && !sess.Valid() {
		return nil, ErrSessionInvalid
	}

	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return nil, errors.Wrap(err, "encode request")
		}
	}

	resp, err := c.breaker.Execute(func() (*response, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, errors.Wrap(err, "build request")
		}
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		if sess != nil {
			req.Header.Set("Authorization", "Bearer "+sess.tokens().accessToken)
		}

		res, err := c.http.Do(req)
		if err != nil {
			return nil, errors.Wrapf(err, "%s %s", method, path)
		}
		defer res.Body.Close()

		body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
		if err != nil {
			return nil, errors.Wrapf(err, "read %s %s", method, path)
		}
		r := &response{status: res.StatusCode, body: body}
		if r.status >= http.StatusInternalServerError {
			return r, &APIError{Status: r.status, Message: errorMessage(body)}
		}
		return r, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, errors.Wrap(ErrUnavailable, err.Error())
		}
		return nil, err
	}

	switch {
	case resp.status == http.StatusUnauthorized && sess != nil:
		sess.invalidate()
		return nil, errors.Wrap(ErrSessionInvalid, errorMessage(resp.body))
	case resp.status >= http.StatusBadRequest:
		return nil, &APIError{Status: resp.status, Message: errorMessage(resp.body)}
	}
	return resp.body, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

// call performs do and decodes the envelope's data field into out.
func (c *Client) call(ctx context.Context, sess *Session, method, path string, in, out any) error {
	body, err := c.do(ctx, sess, method, path, in, nil)
	if err != nil {
		return err
	}
	return decodeData(body, out)
}

func decodeData(body []byte, out any) error {
	if out == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return errors.Wrap(err, "decode response")
	}
	if len(env.Data) == 0 {
		return errors.New("decode response: no data")
	}
	return errors.Wrap(json.Unmarshal(env.Data, out), "decode response data")
}

func errorMessage(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != "" {
		return env.Error
	}
	return strings.TrimSpace(string(body))
}
