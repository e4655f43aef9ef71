package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/vanilla-wiiu/govanilla/internal/log"
)

const (
	// DefaultSocketDir holds the Unix-domain rendezvous sockets in local mode.
	DefaultSocketDir = "/tmp"
	// DefaultReceiveTimeout bounds every channel receive so loops can poll for cancellation.
	DefaultReceiveTimeout = 250 * time.Millisecond
)

// ErrTimeout is returned by Socket.Receive when no datagram arrived in time.
var ErrTimeout = errors.New("receive timeout")

// Config controls socket placement and polling.
type Config struct {
	SocketDir      string        `help:"Directory of the Unix-domain rendezvous sockets (local mode)" default:"/tmp" env:"VANILLA_SOCKET_DIR"`
	ReceiveTimeout time.Duration `help:"Channel receive timeout; bounds shutdown latency" default:"250ms" env:"VANILLA_RECEIVE_TIMEOUT"`
}

// ListenFunc opens a datagram endpoint. It matches net.ListenConfig.ListenPacket.
type ListenFunc func(ctx context.Context, network, address string) (net.PacketConn, error)

// BindError reports a failed socket bind.
type BindError struct {
	Name string
	Port uint16
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s socket on port %d: %v", e.Name, e.Port, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// Manager binds channel sockets for one address mode.
type Manager struct {
	endpoints Endpoints
	timeout   time.Duration
	logger    *slog.Logger
	rawLogger log.RawLogger

	// Listen opens the underlying endpoint. Replaceable for tests.
	Listen ListenFunc
}

// NewManager creates a Manager for addr.
func NewManager(addr Address, cfg Config, logger *slog.Logger, rawLogger log.RawLogger) *Manager {
	if cfg.ReceiveTimeout <= 0 {
		cfg.ReceiveTimeout = DefaultReceiveTimeout
	}
	if cfg.SocketDir == "" {
		cfg.SocketDir = DefaultSocketDir
	}
	if logger == nil {
		logger = slog.Default()
	}
	if rawLogger == nil {
		rawLogger = log.NewRaw(nil)
	}
	return &Manager{
		endpoints: Endpoints{Address: addr, SocketDir: cfg.SocketDir},
		timeout:   cfg.ReceiveTimeout,
		logger:    logger,
		rawLogger: rawLogger,
		Listen:    listenPacket,
	}
}

// Address returns the addressing mode of the manager.
func (m *Manager) Address() Address { return m.endpoints.Address }

// Endpoints returns the address resolver of the manager.
func (m *Manager) Endpoints() Endpoints { return m.endpoints }

// Bind opens the socket of a single channel.
func (m *Manager) Bind(ctx context.Context, ch Channel) (*Socket, error) {
	return m.BindPort(ctx, ch.String(), ch.Port())
}

// BindPort opens a datagram socket on port. name labels logs.
func (m *Manager) BindPort(ctx context.Context, name string, port uint16) (*Socket, error) {
	local := m.endpoints.Bind(port)
	var path string
	if ua, ok := local.(*net.UnixAddr); ok {
		path = ua.Name
		m.removeStale(path)
	}

	network := local.Network()
	if network == "udp" {
		network = "udp4"
	}
	conn, err := m.Listen(ctx, network, local.String())
	if err != nil {
		m.logger.Error("failed to bind socket", "channel", name, "port", port, "error", err)
		return nil, &BindError{Name: name, Port: port, Err: err}
	}
	m.logger.Debug("bound socket", "channel", name, "port", port, "addr", conn.LocalAddr())

	return &Socket{
		conn:      conn,
		name:      name,
		port:      port,
		path:      path,
		endpoints: m.endpoints,
		timeout:   m.timeout,
		logger:    m.logger.With("channel", name),
		rawLogger: m.rawLogger,
	}, nil
}

// removeStale unlinks a rendezvous file left behind by a previous run. A file
// that still has a live socket behind it is kept so the bind fails.
func (m *Manager) removeStale(path string) {
	conn, err := net.Dial("unixgram", path)
	if err == nil {
		_ = conn.Close()
		return
	}
	if !errors.Is(err, syscall.ECONNREFUSED) {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.logger.Warn("failed to remove stale socket", "path", path, "error", err)
		return
	}
	m.logger.Debug("removed stale socket", "path", path)
}

// OpenAll binds every channel in OpenOrder. On failure, sockets opened so far
// are closed in reverse order and the BindError is returned.
func (m *Manager) OpenAll(ctx context.Context) (*Set, error) {
	set := &Set{sockets: make(map[Channel]*Socket, len(OpenOrder))}
	for _, ch := range OpenOrder {
		s, err := m.Bind(ctx, ch)
		if err != nil {
			set.Close()
			return nil, err
		}
		set.sockets[ch] = s
		set.order = append(set.order, ch)
	}
	return set, nil
}

// Set is the group of open channel sockets of a session.
type Set struct {
	sockets map[Channel]*Socket
	order   []Channel
	once    sync.Once
}

// Get returns the socket of ch, or nil.
func (s *Set) Get(ch Channel) *Socket { return s.sockets[ch] }

// Close closes every socket in reverse acquisition order.
func (s *Set) Close() {
	s.once.Do(func() {
		for i := len(s.order) - 1; i >= 0; i-- {
			if sock := s.sockets[s.order[i]]; sock != nil {
				_ = sock.Close()
			}
		}
	})
}

// Socket is one bound datagram endpoint. It is owned by a single listener;
// Send may be called concurrently.
type Socket struct {
	conn      net.PacketConn
	name      string
	port      uint16
	path      string
	endpoints Endpoints
	timeout   time.Duration
	logger    *slog.Logger
	rawLogger log.RawLogger
	closeOnce sync.Once
}

// Port returns the port the socket is bound to.
func (s *Socket) Port() uint16 { return s.port }

// SetReceiveTimeout changes how long Receive waits for a datagram.
func (s *Socket) SetReceiveTimeout(d time.Duration) { s.timeout = d }

// Receive reads one datagram into buf, waiting at most the receive timeout.
// A timeout is reported as ErrTimeout.
func (s *Socket) Receive(buf []byte) (int, error) {
	if s.timeout > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.timeout))
	}
	n, _, err := s.conn.ReadFrom(buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return 0, ErrTimeout
		}
		return 0, err
	}
	s.rawLogger.Log(s.name, true, buf[:n])
	return n, nil
}

// ReceiveContext is Receive that also returns ctx.Err() as soon as ctx is done.
func (s *Socket) ReceiveContext(ctx context.Context, buf []byte) (int, error) {
	stop := context.AfterFunc(ctx, s.Wake)
	defer stop()
	if s.timeout > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.timeout))
	}
	// Checked after arming the deadline so a cancellation racing with it is not lost.
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, _, err := s.conn.ReadFrom(buf)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return 0, ErrTimeout
		}
		return 0, err
	}
	s.rawLogger.Log(s.name, true, buf[:n])
	return n, nil
}

// Wake makes a pending Receive return ErrTimeout immediately.
func (s *Socket) Wake() {
	_ = s.conn.SetReadDeadline(time.Now())
}

// Send transmits data to the console side of this socket's port. Delivery is
// best effort; failures are only logged.
func (s *Socket) Send(data []byte) {
	dst := ConsolePort(s.port)
	if err := s.SendTo(dst, data); err != nil {
		s.logger.Warn("failed to send to console socket", "port", dst, "error", err)
	}
}

// SendTo transmits data to port on the peer. A peer that does not drain its
// queue blocks the send for at most the receive timeout.
func (s *Socket) SendTo(port uint16, data []byte) error {
	s.rawLogger.Log(s.name, false, data)
	if s.timeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.timeout))
	}
	_, err := s.conn.WriteTo(data, s.endpoints.Peer(port))
	return err
}

// Close closes the socket and removes its rendezvous file, if any.
func (s *Socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close()
		if s.path != "" {
			_ = os.Remove(s.path)
		}
		s.logger.Debug("closed socket", "port", s.port)
	})
	return err
}
