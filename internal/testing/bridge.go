package testing

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/vanilla-wiiu/govanilla/channel"
	"github.com/vanilla-wiiu/govanilla/pipe"
)

// BridgeHandler is called from the bridge read loop for every decoded command.
type BridgeHandler func(b *Bridge, cmd pipe.Command)

// Bridge is an in-process stand-in for the Wi-Fi bridge, listening on the
// local-mode rendezvous socket of the pipe server port inside dir.
type Bridge struct {
	t    *testing.T
	conn *net.UnixConn

	mu       sync.Mutex
	peer     *net.UnixAddr
	received []pipe.Command
	notify   chan struct{}
}

// StartBridge starts a bridge serving h. It is stopped on test cleanup.
func StartBridge(t *testing.T, dir string, h BridgeHandler) *Bridge {
	t.Helper()
	ep := channel.Endpoints{Address: channel.Local(), SocketDir: dir}
	path := ep.SocketPath(pipe.DefaultConfig().ServerPort)
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		t.Fatalf("bridge listen failed: %v", err)
	}
	b := &Bridge{t: t, conn: conn, notify: make(chan struct{}, 1)}

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 512)
		for {
			n, from, err := conn.ReadFromUnix(buf)
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				continue
			}
			cmd, err := pipe.Decode(buf[:n])
			if err != nil {
				continue
			}
			b.mu.Lock()
			b.peer = from
			b.received = append(b.received, cmd)
			b.mu.Unlock()
			select {
			case b.notify <- struct{}{}:
			default:
			}
			if h != nil {
				h(b, cmd)
			}
		}
	}()

	t.Cleanup(func() {
		_ = conn.Close()
		<-done
	})
	return b
}

// Reply sends cmds to the last peer that talked to the bridge.
func (b *Bridge) Reply(cmds ...pipe.Command) {
	b.mu.Lock()
	peer := b.peer
	b.mu.Unlock()
	if peer == nil {
		return
	}
	for _, cmd := range cmds {
		data, err := cmd.MarshalBinary()
		if err != nil {
			b.t.Errorf("bridge encode %s: %v", cmd.Code, err)
			return
		}
		_, _ = b.conn.WriteToUnix(data, peer)
	}
}

// Received returns a snapshot of every command the bridge decoded so far.
func (b *Bridge) Received() []pipe.Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]pipe.Command(nil), b.received...)
}

// Count returns how many commands with code were received.
func (b *Bridge) Count(code pipe.Code) int {
	n := 0
	for _, cmd := range b.Received() {
		if cmd.Code == code {
			n++
		}
	}
	return n
}

// WaitFor blocks until at least n commands with code were received or the
// timeout expires.
func (b *Bridge) WaitFor(code pipe.Code, n int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for b.Count(code) < n {
		select {
		case <-b.notify:
		case <-deadline.C:
			return b.Count(code) >= n
		}
	}
	return true
}

// AckBinds returns a handler acknowledging every bind request and then
// calling next, if any.
func AckBinds(next BridgeHandler) BridgeHandler {
	return func(b *Bridge, cmd pipe.Command) {
		if cmd.Code == pipe.CodeSync || cmd.Code == pipe.CodeConnect {
			b.Reply(pipe.Simple(pipe.CodeBindAck))
		}
		if next != nil {
			next(b, cmd)
		}
	}
}
