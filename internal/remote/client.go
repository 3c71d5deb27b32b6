package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/huddle/internal/syncproto"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 10 * time.Second

// Client talks to a remote acceptor over HTTP. It satisfies
// syncproto.Remote and queue.Prober.
//
// A 4xx answer is returned as *RejectedError. Network failures and 5xx
// answers are returned as plain errors and are worth retrying.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a client for the acceptor at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitPlay posts a play submission.
func (c *Client) SubmitPlay(ctx context.Context, p syncproto.PlaySubmission) (syncproto.PlayResponse, error) {
	var resp syncproto.PlayResponse
	err := c.do(ctx, http.MethodPost, c.gamePath(p.GameID)+"/plays", p, &resp)
	if err != nil {
		return syncproto.PlayResponse{}, err
	}
	return resp, nil
}

// DeletePlay retracts a play by key.
func (c *Client) DeletePlay(ctx context.Context, d syncproto.PlayDeletion) error {
	target := c.gamePath(d.GameID) + "/plays/" + url.PathEscape(d.IdempotencyKey)
	if d.PlayNumber > 0 {
		target += "?play_number=" + strconv.Itoa(d.PlayNumber)
	}
	return c.do(ctx, http.MethodDelete, target, nil, nil)
}

// UpdateGame patches game-level fields.
func (c *Client) UpdateGame(ctx context.Context, u syncproto.GameUpdate) error {
	return c.do(ctx, http.MethodPatch, c.gamePath(u.GameID), u, nil)
}

// Plays lists the live plays the remote holds for a game.
func (c *Client) Plays(ctx context.Context, gameID string) ([]PlayRecord, error) {
	var out []PlayRecord
	if err := c.do(ctx, http.MethodGet, c.gamePath(gameID)+"/plays", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ping checks that the remote answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, c.baseURL+"/healthz", nil, nil)
}

func (c *Client) gamePath(gameID string) string {
	return c.baseURL + "/games/" + url.PathEscape(gameID)
}

func (c *Client) do(ctx context.Context, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s %s: encode: %w", method, target, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, target, err)
	}

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &RejectedError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	case resp.StatusCode >= 300:
		return fmt.Errorf("%s %s: status %d: %s", method, target, resp.StatusCode, errorMessage(raw))
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, target, err)
	}
	return nil
}

func errorMessage(raw []byte) string {
	var e errorBody
	if err := json.Unmarshal(raw, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(raw))
}
