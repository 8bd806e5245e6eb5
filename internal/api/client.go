package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codeberg.org/mutker/powerhintd/internal/errors"
	"codeberg.org/mutker/powerhintd/internal/power"
)

// Client talks to a running daemon.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for addr, in the same form Serve accepts.
func NewClient(addr string) *Client {
	if path, ok := strings.CutPrefix(addr, unixScheme); ok {
		transport := &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", path)
			},
		}
		return &Client{
			base: "http://powerhintd",
			http: &http.Client{Transport: transport, Timeout: 10 * time.Second},
		}
	}

	base := addr
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}

	return &Client{base: base, http: &http.Client{Timeout: 10 * time.Second}}
}

func (c *Client) SetMode(ctx context.Context, name string, enabled bool) error {
	return c.do(ctx, http.MethodPut, "/v1/modes/"+url.PathEscape(name), setModeRequest{Enabled: &enabled}, nil)
}

func (c *Client) SetBoost(ctx context.Context, name string, durationMs int32) error {
	return c.do(ctx, http.MethodPut, "/v1/boosts/"+url.PathEscape(name), setBoostRequest{DurationMs: &durationMs}, nil)
}

func (c *Client) IsModeSupported(ctx context.Context, name string) (bool, error) {
	var resp supportedResponse
	err := c.do(ctx, http.MethodGet, "/v1/modes/"+url.PathEscape(name)+"/supported", nil, &resp)
	return resp.Supported, err
}

func (c *Client) IsBoostSupported(ctx context.Context, name string) (bool, error) {
	var resp supportedResponse
	err := c.do(ctx, http.MethodGet, "/v1/boosts/"+url.PathEscape(name)+"/supported", nil, &resp)
	return resp.Supported, err
}

// PreferredRate returns the preferred session reporting rate in nanoseconds.
func (c *Client) PreferredRate(ctx context.Context) (int64, error) {
	var resp rateResponse
	err := c.do(ctx, http.MethodGet, "/v1/sessions/preferred-rate", nil, &resp)
	return resp.Nanoseconds, err
}

func (c *Client) CreateSession(ctx context.Context, cfg power.SessionConfig) (power.SessionInfo, error) {
	req := createSessionRequest{
		TGID:             cfg.TGID,
		UID:              cfg.UID,
		ThreadIDs:        cfg.ThreadIDs,
		TargetDurationNs: int64(cfg.TargetDuration),
		Tag:              string(cfg.Tag),
	}

	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", req, &resp); err != nil {
		return power.SessionInfo{}, err
	}

	return power.SessionInfo{ID: resp.ID, Handle: resp.Handle}, nil
}

func (c *Client) CloseSession(ctx context.Context, handle string) error {
	return c.do(ctx, http.MethodDelete, "/v1/sessions/"+url.PathEscape(handle), nil, nil)
}

// Dump returns the daemon's state dump.
func (c *Client) Dump(ctx context.Context) (string, error) {
	resp, err := c.send(ctx, http.MethodGet, "/v1/dump", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.New().Wrap(errors.ErrUnavailable, err)
	}

	return string(data), nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	resp, err := c.send(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.New().Wrap(errors.ErrInternal, err)
	}

	return nil
}

// send performs the request and converts error responses into coded errors.
func (c *Client) send(ctx context.Context, method, path string, in any) (*http.Response, error) {
	errFactory := errors.New()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, errFactory.Wrap(errors.ErrInternal, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInternal, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrUnavailable, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()

		var eb errorBody
		if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil || eb.Error.Type == "" {
			return nil, errFactory.WithMessage(errors.ErrInternal, fmt.Sprintf("unexpected status %d", resp.StatusCode))
		}
		return nil, errFactory.WithMessage(errors.ErrorCode(eb.Error.Type), eb.Error.Message)
	}

	return resp, nil
}
