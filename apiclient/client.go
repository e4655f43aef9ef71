package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blang/semver/v4"

	"github.com/vanilla-wiiu/govanilla/apitypes"
)

// Client provides a high-level interface to the management API, handling
// request formatting, response parsing, and error handling.
type Client struct{ transport *Transport }

// New constructs a high-level API client using the internal low-level Transport.
// The addr parameter specifies the TCP address (host:port) of the API server.
func New(addr string) *Client { return &Client{transport: NewTransport(addr)} }

// NewWithPassword constructs a client that authenticates with the given password.
func NewWithPassword(addr, password string) *Client {
	return &Client{transport: NewTransportWithPassword(addr, password)}
}

// NewWithConfig constructs a client with custom transport timeouts.
func NewWithConfig(addr string, cfg *Config) *Client {
	return &Client{transport: NewTransportWithConfig(addr, cfg)}
}

// WithTransport constructs a Client using a custom Transport implementation.
// This is primarily useful for testing or when advanced transport configuration is needed.
func WithTransport(t *Transport) *Client { return &Client{transport: t} }

// Ping returns the version and identity of the server.
func (c *Client) Ping() (*apitypes.PingResponse, error) {
	return c.PingCtx(context.Background())
}

// PingCtx is the context-aware version of Ping.
func (c *Client) PingCtx(ctx context.Context) (*apitypes.PingResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "ping", nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.PingResponse](raw)
}

// CheckVersion pings the server and fails unless its version has the same
// major version as min and is not older than it.
func (c *Client) CheckVersion(ctx context.Context, min semver.Version) (*semver.Version, error) {
	p, err := c.PingCtx(ctx)
	if err != nil {
		return nil, err
	}
	v, err := semver.ParseTolerant(p.Version)
	if err != nil {
		return nil, fmt.Errorf("server %s reports invalid version %q: %w", p.Server, p.Version, err)
	}
	if v.Major != min.Major || v.LT(min) {
		return &v, fmt.Errorf("server version %s is not compatible with %s", v, min)
	}
	return &v, nil
}

// SessionState returns the state and counters of the current session.
func (c *Client) SessionState(ctx context.Context) (*apitypes.SessionState, error) {
	raw, err := c.transport.DoCtx(ctx, "session/state", nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.SessionState](raw)
}

// Sync starts pairing with the code shown on the TV. The outcome arrives on
// the events stream.
func (c *Client) Sync(ctx context.Context, address string, code uint16) (*apitypes.SessionResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "session/sync", apitypes.SyncRequest{Address: address, Code: code}, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.SessionResponse](raw)
}

// Connect starts a session. Empty bssid and psk select the credentials saved
// on the server.
func (c *Client) Connect(ctx context.Context, req apitypes.ConnectRequest) (*apitypes.SessionResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "session/connect", req, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.SessionResponse](raw)
}

// Interrupt stops the running session and waits for it to wind down.
func (c *Client) Interrupt(ctx context.Context) (*apitypes.SessionResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "session/interrupt", nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.SessionResponse](raw)
}

func (c *Client) Touch(ctx context.Context, x, y int) error {
	return c.do(ctx, "input/touch", apitypes.TouchRequest{X: x, Y: y})
}

func (c *Client) Button(ctx context.Context, button string, value int32) error {
	return c.do(ctx, "input/button", apitypes.ButtonRequest{Button: button, Value: value})
}

func (c *Client) Region(ctx context.Context, region uint8) error {
	return c.do(ctx, "input/region", apitypes.RegionRequest{Region: region})
}

func (c *Client) Battery(ctx context.Context, status uint8) error {
	return c.do(ctx, "input/battery", apitypes.BatteryRequest{Status: status})
}

// RequestIDR asks the console for a full video frame.
func (c *Client) RequestIDR(ctx context.Context) error {
	return c.do(ctx, "video/idr", nil)
}

func (c *Client) do(ctx context.Context, path string, payload any) error {
	raw, err := c.transport.DoCtx(ctx, path, payload, nil)
	if err != nil {
		return err
	}
	return parseEmpty(raw)
}

func problemOf(data string) error {
	var problem apitypes.ApiError
	if err := json.Unmarshal([]byte(data), &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
		return &problem
	}
	return nil
}

func parse[T any](data string) (*T, error) {
	if data == "" {
		return nil, errors.New("empty response")
	}
	if err := problemOf(data); err != nil {
		return nil, err
	}
	var out T
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}

// parseEmpty accepts the empty success line of routes without a result.
func parseEmpty(data string) error {
	if data == "" {
		return nil
	}
	if err := problemOf(data); err != nil {
		return err
	}
	return fmt.Errorf("unexpected response: %s", data)
}
