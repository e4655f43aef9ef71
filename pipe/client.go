package pipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vanilla-wiiu/govanilla/channel"
	"github.com/vanilla-wiiu/govanilla/interrupt"
)

// Config holds the pipe ports and retry policy.
type Config struct {
	ServerPort     uint16        `help:"Command port of the bridge" default:"51000" env:"VANILLA_PIPE_SERVER_PORT"`
	ClientPort     uint16        `help:"Local command port bound for the bridge conversation" default:"51001" env:"VANILLA_PIPE_CLIENT_PORT"`
	ReceiveTimeout time.Duration `help:"How long to wait for each bridge reply" default:"2s" env:"VANILLA_PIPE_RECEIVE_TIMEOUT"`
	RetryInterval  time.Duration `help:"Pause between unanswered attempts" default:"1s" env:"VANILLA_PIPE_RETRY_INTERVAL"`
	MaxRetries     int           `help:"Attempts before the bridge is considered unresponsive" default:"5" env:"VANILLA_PIPE_MAX_RETRIES"`
	WaitConnected  bool          `help:"After a connect bind, wait for the bridge to report the console link" env:"VANILLA_PIPE_WAIT_CONNECTED"`
}

// DefaultConfig returns the protocol defaults.
func DefaultConfig() Config {
	return Config{
		ServerPort:     51000,
		ClientPort:     51001,
		ReceiveTimeout: 2 * time.Second,
		RetryInterval:  time.Second,
		MaxRetries:     5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ServerPort == 0 {
		c.ServerPort = d.ServerPort
	}
	if c.ClientPort == 0 {
		c.ClientPort = d.ClientPort
	}
	if c.ReceiveTimeout <= 0 {
		c.ReceiveTimeout = d.ReceiveTimeout
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = d.RetryInterval
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	return c
}

// SyncResult is the outcome of a sync conversation. Credentials are only
// valid when Status is StatusSuccess.
type SyncResult struct {
	Status      Status
	Credentials Credentials
}

// Client opens bridge conversations through a channel.Manager so the pipe
// socket follows the session's address mode.
type Client struct {
	manager *channel.Manager
	cfg     Config
	logger  *slog.Logger
}

func NewClient(manager *channel.Manager, cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		manager: manager,
		cfg:     cfg.withDefaults(),
		logger:  logger.With("component", "pipe"),
	}
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// Bind opens the client command socket and sends cmd until the bridge
// acknowledges it. On failure the socket is closed again.
// Cancelling ctx aborts the bind with ErrInterrupted; if cmd already went out,
// Unbind is sent first so the bridge drops it.
func (c *Client) Bind(ctx context.Context, cmd Command) (*Conn, error) {
	sock, err := c.manager.BindPort(ctx, "pipe", c.cfg.ClientPort)
	if err != nil {
		return nil, err
	}
	sock.SetReceiveTimeout(c.cfg.ReceiveTimeout)

	conn := &Conn{sock: sock, cfg: c.cfg, logger: c.logger}
	if err := conn.SendAndAwaitAck(ctx, cmd, true); err != nil {
		c.logger.Info("failed to bind to pipe", "command", cmd.Code, "error", err)
		if errors.Is(err, ErrInterrupted) && conn.sent {
			conn.Unbind()
		}
		_ = sock.Close()
		return nil, err
	}
	c.logger.Debug("bound to pipe", "command", cmd.Code)
	return conn, nil
}

// Conn is an acknowledged conversation with the bridge.
type Conn struct {
	sock   *channel.Socket
	cfg    Config
	logger *slog.Logger

	// sent is set once any command reached the socket.
	sent bool
}

// SendAndAwaitAck sends cmd to the bridge. Without waitForReply it returns
// right after sending. Otherwise it resends up to MaxRetries times until a
// BindAck arrives, returning ErrUnresponsive when none does.
func (c *Conn) SendAndAwaitAck(ctx context.Context, cmd Command, waitForReply bool) error {
	data, err := cmd.MarshalBinary()
	if err != nil {
		return err
	}

	buf := make([]byte, 64)
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := c.sock.SendTo(c.cfg.ServerPort, data); err != nil {
			if !waitForReply {
				return fmt.Errorf("send %s: %w", cmd.Code, err)
			}
			c.logger.Debug("failed to write control code", "command", cmd.Code, "attempt", attempt, "error", err)
		} else {
			c.sent = true
			if !waitForReply {
				return nil
			}
			n, err := c.sock.ReceiveContext(ctx, buf)
			switch {
			case ctx.Err() != nil:
				return ErrInterrupted
			case err == nil && n > 0 && Code(buf[0]) == CodeBindAck:
				return nil
			case err != nil && !errors.Is(err, channel.ErrTimeout):
				c.logger.Debug("pipe receive failed", "error", err)
			}
		}

		c.logger.Info("still waiting for reply", "command", cmd.Code, "attempt", attempt)
		if attempt < c.cfg.MaxRetries && !interrupt.Sleep(ctx, c.cfg.RetryInterval) {
			return ErrInterrupted
		}
	}
	return ErrUnresponsive
}

// Unbind tells the bridge this conversation is over. Best effort; it never
// fails the caller.
func (c *Conn) Unbind() {
	if err := c.SendAndAwaitAck(context.Background(), Unbind(), false); err != nil {
		c.logger.Warn("failed to send unbind", "error", err)
		return
	}
	c.logger.Debug("sent unbind")
}

// AwaitSync waits for the bridge to finish a sync started by Bind(Sync(code)).
// Status and SyncSuccess replies are final. Every Ping resets the retry
// budget, so a bridge that keeps pinging is waited on until ctx is done.
// On cancellation Unbind is sent once and StatusInterrupted is returned.
func (c *Conn) AwaitSync(ctx context.Context) SyncResult {
	buf := make([]byte, 64)
	for retries := 0; retries < c.cfg.MaxRetries; retries++ {
		n, err := c.sock.ReceiveContext(ctx, buf)
		if ctx.Err() != nil {
			c.Unbind()
			return SyncResult{Status: StatusInterrupted}
		}
		if err != nil {
			if !errors.Is(err, channel.ErrTimeout) {
				c.logger.Debug("pipe receive failed", "error", err)
			}
			continue
		}

		cmd, err := Decode(buf[:n])
		if err != nil {
			c.logger.Debug("ignoring pipe datagram", "error", err)
			continue
		}
		switch cmd.Code {
		case CodeStatus:
			if cmd.Status == StatusSuccess {
				// A bare success carries no credentials to hand out.
				return SyncResult{Status: StatusGeneric}
			}
			return SyncResult{Status: cmd.Status}
		case CodeSyncSuccess:
			return SyncResult{Status: StatusSuccess, Credentials: cmd.Credentials}
		case CodePing:
			c.logger.Debug("bridge still searching")
			retries = -1
		default:
			c.logger.Debug("unexpected pipe reply", "command", cmd.Code)
		}
	}
	return SyncResult{Status: StatusPipeUnresponsive}
}

// AwaitConnected waits until the bridge reports a console link. Timeouts are
// retried until ctx is done; any other socket failure is ErrUnresponsive.
func (c *Conn) AwaitConnected(ctx context.Context) error {
	buf := make([]byte, 64)
	for {
		n, err := c.sock.ReceiveContext(ctx, buf)
		switch {
		case ctx.Err() != nil:
			return ErrInterrupted
		case err == nil && n > 0 && Code(buf[0]) == CodeConnected:
			return nil
		case err != nil && !errors.Is(err, channel.ErrTimeout):
			return fmt.Errorf("%w: %v", ErrUnresponsive, err)
		}

		c.logger.Info("still waiting for connected state")
		if !interrupt.Sleep(ctx, c.cfg.RetryInterval) {
			return ErrInterrupted
		}
	}
}

// Close releases the command socket.
func (c *Conn) Close() error { return c.sock.Close() }
