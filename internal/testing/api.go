package testing

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/vanilla-wiiu/govanilla/channel"
	"github.com/vanilla-wiiu/govanilla/gamepad"
	"github.com/vanilla-wiiu/govanilla/internal/server/api"
	"github.com/vanilla-wiiu/govanilla/pipe"
)

// EngineConfig returns an engine configuration with short timeouts whose
// local sockets live in dir.
func EngineConfig(dir string) gamepad.Config {
	return gamepad.Config{
		Socket: channel.Config{SocketDir: dir, ReceiveTimeout: 50 * time.Millisecond},
		Pipe: pipe.Config{
			ReceiveTimeout: 20 * time.Millisecond,
			RetryInterval:  5 * time.Millisecond,
			MaxRetries:     5,
		},
		MaxEvents:     16,
		InputInterval: 10 * time.Millisecond,
	}
}

// StartAPIServer starts an API server on a free port in front of a fresh
// engine and calls register so the test can add the handlers it needs.
// The engine sockets live in dir. Returns the address, the engine and a
// function to call when done.
func StartAPIServer(t *testing.T, dir string, cfg api.ServerConfig, register func(r *api.Router, e *gamepad.Engine, apiSrv *api.Server)) (addr string, e *gamepad.Engine, done func()) {
	t.Helper()
	e = gamepad.New(EngineConfig(dir), slog.Default(), nil)

	cfg.Addr = "127.0.0.1:0"
	apiSrv := api.New(e, cfg.Addr, cfg, slog.Default())
	if register != nil {
		register(apiSrv.Router(), e, apiSrv)
	}
	if err := apiSrv.Start(); err != nil {
		t.Fatalf("api start failed: %v", err)
	}

	done = func() {
		apiSrv.Close()
		_ = e.Close()
	}
	return apiSrv.Addr(), e, done
}

// ExecCmd dials the API server, sends cmd and reads the full response
// without its trailing newline.
func ExecCmd(t *testing.T, addr string, cmd string) string {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer c.Close()

	_, _ = fmt.Fprintf(c, "%s\x00", cmd)

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil && err != io.EOF {
		t.Fatalf("read failed: %v", err)
	}
	return strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
}
