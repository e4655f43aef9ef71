package handler_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanilla-wiiu/govanilla/apiclient"
	"github.com/vanilla-wiiu/govanilla/apitypes"
	"github.com/vanilla-wiiu/govanilla/gamepad"
	"github.com/vanilla-wiiu/govanilla/internal/server/api"
	"github.com/vanilla-wiiu/govanilla/internal/server/api/handler"
	th "github.com/vanilla-wiiu/govanilla/internal/testing"
	"github.com/vanilla-wiiu/govanilla/pipe"
)

type loaderFunc func() (pipe.Credentials, error)

func (f loaderFunc) Load() (pipe.Credentials, error) { return f() }

func registerSession(saved handler.CredentialLoader) func(r *api.Router, e *gamepad.Engine, apiSrv *api.Server) {
	return func(r *api.Router, e *gamepad.Engine, apiSrv *api.Server) {
		r.Register("session/state", handler.SessionState(e))
		r.Register("session/sync", handler.SessionSync(e))
		r.Register("session/connect", handler.SessionConnect(e, saved))
		r.Register("session/interrupt", handler.SessionInterrupt(e))
	}
}

func TestSessionSync(t *testing.T) {
	tests := []struct {
		name       string
		payload    any
		wantStatus int
	}{
		{name: "missing payload", payload: nil, wantStatus: 400},
		{name: "invalid json", payload: "{", wantStatus: 400},
		{name: "code too long", payload: `{"address":"local","code":"12345"}`, wantStatus: 400},
		{name: "bad address", payload: `{"address":"300.1.1.1","code":1}`, wantStatus: 400},
		{name: "direct mode has no bridge", payload: `{"address":"direct","code":1}`, wantStatus: 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, _, done := th.StartAPIServer(t, t.TempDir(), api.ServerConfig{}, registerSession(nil))
			defer done()

			line, err := apiclient.NewTransport(addr).Do("session/sync", tt.payload, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, problem(t, line).Status)
		})
	}

	t.Run("starts sync with string code", func(t *testing.T) {
		dir := t.TempDir()
		bridge := th.StartBridge(t, dir, th.AckBinds(nil))
		addr, _, done := th.StartAPIServer(t, dir, api.ServerConfig{}, registerSession(nil))
		defer done()
		tr := apiclient.NewTransport(addr)

		line, err := tr.Do("session/sync", `{"address":"local","code":"0123"}`, nil)
		require.NoError(t, err)
		var res apitypes.SessionResponse
		require.NoError(t, json.Unmarshal([]byte(line), &res), line)
		assert.NotEmpty(t, res.Session)

		require.True(t, bridge.WaitFor(pipe.CodeSync, 1, time.Second))
		assert.Equal(t, uint16(123), bridge.Received()[0].SyncCode)

		line, err = tr.Do("session/sync", `{"address":"local","code":1}`, nil)
		require.NoError(t, err)
		assert.Equal(t, 409, problem(t, line).Status)
	})
}

func TestSessionConnect(t *testing.T) {
	good := creds(t)
	tests := []struct {
		name       string
		saved      handler.CredentialLoader
		payload    string
		wantStatus int
	}{
		{name: "no credentials", payload: `{"address":"local"}`, wantStatus: 400},
		{name: "bad bssid", payload: `{"address":"local","bssid":"zz","psk":"00"}`, wantStatus: 400},
		{
			name:       "nothing saved",
			saved:      loaderFunc(func() (pipe.Credentials, error) { return pipe.Credentials{}, errors.New("not paired") }),
			payload:    `{"address":"local"}`,
			wantStatus: 404,
		},
		{name: "saved credentials", saved: loaderFunc(func() (pipe.Credentials, error) { return good, nil }), payload: `{"address":"local"}`},
		{name: "explicit credentials", payload: `{"address":"local","bssid":"00:11:22:33:44:55","psk":"00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			bridge := th.StartBridge(t, dir, th.AckBinds(nil))
			addr, e, done := th.StartAPIServer(t, dir, api.ServerConfig{}, registerSession(tt.saved))
			defer done()

			line, err := apiclient.NewTransport(addr).Do("session/connect", tt.payload, nil)
			require.NoError(t, err)
			if tt.wantStatus != 0 {
				assert.Equal(t, tt.wantStatus, problem(t, line).Status)
				assert.False(t, e.Running())
				return
			}

			require.True(t, bridge.WaitFor(pipe.CodeConnect, 1, time.Second))
			cmd := bridge.Received()[0]
			assert.Equal(t, good, cmd.Credentials)
			assert.Eventually(t, func() bool { return e.State() == gamepad.StateListening }, 2*time.Second, 5*time.Millisecond)
		})
	}
}

func TestSessionInterruptAndState(t *testing.T) {
	dir := t.TempDir()
	bridge := th.StartBridge(t, dir, th.AckBinds(nil))
	addr, _, done := th.StartAPIServer(t, dir, api.ServerConfig{}, registerSession(nil))
	defer done()
	tr := apiclient.NewTransport(addr)

	line, err := tr.Do("session/state", nil, nil)
	require.NoError(t, err)
	var st apitypes.SessionState
	require.NoError(t, json.Unmarshal([]byte(line), &st))
	assert.Equal(t, "idle", st.State)
	assert.False(t, st.Running)
	assert.Empty(t, st.Session)

	_, err = tr.Do("session/sync", `{"address":"local","code":1}`, nil)
	require.NoError(t, err)
	require.True(t, bridge.WaitFor(pipe.CodeSync, 1, time.Second))

	line, err = tr.Do("session/interrupt", nil, nil)
	require.NoError(t, err)
	var res apitypes.SessionResponse
	require.NoError(t, json.Unmarshal([]byte(line), &res))
	assert.Equal(t, "closed", res.State)

	line, err = tr.Do("session/state", nil, nil)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(line), &st))
	assert.Equal(t, "closed", st.State)
	assert.False(t, st.Running)
	assert.NotEmpty(t, st.Session)
	assert.Equal(t, "local", st.Address)
	assert.Equal(t, uint64(1), st.Queue.Produced)
}
