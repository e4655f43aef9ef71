package pipe_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanilla-wiiu/govanilla/channel"
	th "github.com/vanilla-wiiu/govanilla/internal/testing"
	"github.com/vanilla-wiiu/govanilla/pipe"
)

func newClient(t *testing.T, dir string, cfg pipe.Config) *pipe.Client {
	t.Helper()
	m := channel.NewManager(channel.Local(), channel.Config{SocketDir: dir}, slog.Default(), nil)
	return pipe.NewClient(m, cfg, slog.Default())
}

func fastConfig() pipe.Config {
	return pipe.Config{
		ReceiveTimeout: 30 * time.Millisecond,
		RetryInterval:  5 * time.Millisecond,
		MaxRetries:     5,
	}
}

func TestBindAcknowledged(t *testing.T) {
	dir := t.TempDir()
	bridge := th.StartBridge(t, dir, th.AckBinds(nil))
	c := newClient(t, dir, fastConfig())

	conn, err := c.Bind(context.Background(), pipe.Sync(1234))
	require.NoError(t, err)
	defer conn.Close()

	got := bridge.Received()
	require.Len(t, got, 1)
	assert.Equal(t, pipe.Sync(1234), got[0])
}

func TestBindUnresponsive(t *testing.T) {
	dir := t.TempDir()
	bridge := th.StartBridge(t, dir, nil)
	cfg := fastConfig()
	cfg.ReceiveTimeout = 10 * time.Millisecond
	c := newClient(t, dir, cfg)

	conn, err := c.Bind(context.Background(), pipe.Sync(1))
	assert.ErrorIs(t, err, pipe.ErrUnresponsive)
	assert.Nil(t, conn)
	assert.Equal(t, pipe.StatusPipeUnresponsive, pipe.StatusOf(err))
	require.True(t, bridge.WaitFor(pipe.CodeSync, 5, time.Second))
	assert.Equal(t, 5, bridge.Count(pipe.CodeSync))

	// The client port must be free again after the failed bind.
	conn, err = newClient(t, dir, cfg).Bind(context.Background(), pipe.Sync(1))
	assert.ErrorIs(t, err, pipe.ErrUnresponsive)
	assert.Nil(t, conn)
}

func TestBindInterruptedSendsUnbind(t *testing.T) {
	dir := t.TempDir()
	bridge := th.StartBridge(t, dir, nil)
	cfg := fastConfig()
	cfg.ReceiveTimeout = 5 * time.Second
	c := newClient(t, dir, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	start := time.Now()
	_, err := c.Bind(ctx, pipe.Connect(testCredentials()))
	assert.ErrorIs(t, err, pipe.ErrInterrupted)
	assert.Less(t, time.Since(start), 2*time.Second)

	// The bridge already saw the connect, so it must be told to drop it.
	require.True(t, bridge.WaitFor(pipe.CodeUnbind, 1, time.Second))
	assert.Equal(t, 1, bridge.Count(pipe.CodeConnect))
	assert.Equal(t, 1, bridge.Count(pipe.CodeUnbind))
}

func TestAwaitSyncPingsExtendPatience(t *testing.T) {
	dir := t.TempDir()
	creds := testCredentials()
	th.StartBridge(t, dir, th.AckBinds(func(b *th.Bridge, cmd pipe.Command) {
		if cmd.Code != pipe.CodeSync {
			return
		}
		go func() {
			// Six pings span more than MaxRetries receive timeouts.
			for range 6 {
				time.Sleep(20 * time.Millisecond)
				b.Reply(pipe.Simple(pipe.CodePing))
			}
			time.Sleep(20 * time.Millisecond)
			b.Reply(pipe.SyncSuccess(creds))
		}()
	}))
	cfg := fastConfig()
	cfg.MaxRetries = 2
	cfg.ReceiveTimeout = 40 * time.Millisecond
	c := newClient(t, dir, cfg)

	conn, err := c.Bind(context.Background(), pipe.Sync(4321))
	require.NoError(t, err)
	defer conn.Close()

	res := conn.AwaitSync(context.Background())
	assert.Equal(t, pipe.StatusSuccess, res.Status)
	assert.Equal(t, creds, res.Credentials)
}

func TestAwaitSyncStatus(t *testing.T) {
	cases := []struct {
		name  string
		reply pipe.Status
		want  pipe.Status
	}{
		{name: "failure", reply: pipe.StatusNoConnection, want: pipe.StatusNoConnection},
		{name: "bare success", reply: pipe.StatusSuccess, want: pipe.StatusGeneric},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			th.StartBridge(t, dir, th.AckBinds(func(b *th.Bridge, cmd pipe.Command) {
				if cmd.Code == pipe.CodeSync {
					b.Reply(pipe.StatusReply(tc.reply))
				}
			}))
			conn, err := newClient(t, dir, fastConfig()).Bind(context.Background(), pipe.Sync(1))
			require.NoError(t, err)
			defer conn.Close()

			assert.Equal(t, tc.want, conn.AwaitSync(context.Background()).Status)
		})
	}
}

func TestAwaitSyncUnresponsive(t *testing.T) {
	dir := t.TempDir()
	th.StartBridge(t, dir, th.AckBinds(nil))
	cfg := fastConfig()
	cfg.MaxRetries = 3
	cfg.ReceiveTimeout = 10 * time.Millisecond
	conn, err := newClient(t, dir, cfg).Bind(context.Background(), pipe.Sync(1))
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, pipe.StatusPipeUnresponsive, conn.AwaitSync(context.Background()).Status)
}

func TestAwaitSyncInterruptedSendsOneUnbind(t *testing.T) {
	dir := t.TempDir()
	bridge := th.StartBridge(t, dir, th.AckBinds(func(b *th.Bridge, cmd pipe.Command) {
		if cmd.Code == pipe.CodeSync {
			go func() {
				for range 3 {
					time.Sleep(10 * time.Millisecond)
					b.Reply(pipe.Simple(pipe.CodePing))
				}
			}()
		}
	}))
	cfg := fastConfig()
	cfg.ReceiveTimeout = 5 * time.Second
	conn, err := newClient(t, dir, cfg).Bind(context.Background(), pipe.Sync(1))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(60*time.Millisecond, cancel)

	start := time.Now()
	res := conn.AwaitSync(ctx)
	assert.Equal(t, pipe.StatusInterrupted, res.Status)
	assert.Less(t, time.Since(start), 2*time.Second)

	require.True(t, bridge.WaitFor(pipe.CodeUnbind, 1, time.Second))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, bridge.Count(pipe.CodeUnbind))
}

func TestAwaitConnected(t *testing.T) {
	dir := t.TempDir()
	th.StartBridge(t, dir, th.AckBinds(func(b *th.Bridge, cmd pipe.Command) {
		if cmd.Code == pipe.CodeConnect {
			go func() {
				time.Sleep(50 * time.Millisecond)
				b.Reply(pipe.Simple(pipe.CodeConnected))
			}()
		}
	}))
	cfg := fastConfig()
	cfg.ReceiveTimeout = 20 * time.Millisecond
	conn, err := newClient(t, dir, cfg).Bind(context.Background(), pipe.Connect(testCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.AwaitConnected(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, conn.AwaitConnected(ctx), pipe.ErrInterrupted)
}

func TestUnbindIsFireAndForget(t *testing.T) {
	dir := t.TempDir()
	bridge := th.StartBridge(t, dir, th.AckBinds(nil))
	conn, err := newClient(t, dir, fastConfig()).Bind(context.Background(), pipe.Sync(1))
	require.NoError(t, err)
	defer conn.Close()

	start := time.Now()
	conn.Unbind()
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.True(t, bridge.WaitFor(pipe.CodeUnbind, 1, time.Second))
}
