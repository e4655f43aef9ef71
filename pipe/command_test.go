package pipe_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanilla-wiiu/govanilla/channel"
	"github.com/vanilla-wiiu/govanilla/event"
	"github.com/vanilla-wiiu/govanilla/pipe"
)

func testCredentials() pipe.Credentials {
	var c pipe.Credentials
	copy(c.BSSID[:], []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55})
	for i := range c.PSK {
		c.PSK[i] = byte(i)
	}
	return c
}

func TestCommandWireFormat(t *testing.T) {
	creds := testCredentials()
	credBytes, err := creds.MarshalBinary()
	require.NoError(t, err)

	cases := []struct {
		name string
		cmd  pipe.Command
		want []byte
	}{
		{name: "sync", cmd: pipe.Sync(0x1234), want: []byte{0x01, 0x12, 0x34}},
		{name: "connect", cmd: pipe.Connect(creds), want: append([]byte{0x02}, credBytes...)},
		{name: "bind-ack", cmd: pipe.Simple(pipe.CodeBindAck), want: []byte{0x03}},
		{name: "status", cmd: pipe.StatusReply(pipe.StatusPipeUnresponsive), want: []byte{0x04, 0xff, 0xff, 0xff, 0xfb}},
		{name: "unbind", cmd: pipe.Unbind(), want: []byte{0x05}},
		{name: "ping", cmd: pipe.Simple(pipe.CodePing), want: []byte{0x06}},
		{name: "sync-success", cmd: pipe.SyncSuccess(creds), want: append([]byte{0x07}, credBytes...)},
		{name: "connected", cmd: pipe.Simple(pipe.CodeConnected), want: []byte{0x08}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.cmd.MarshalBinary()
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)

			back, err := pipe.Decode(got)
			require.NoError(t, err)
			assert.Equal(t, tc.cmd, back)
		})
	}
	assert.Len(t, credBytes, 38)
	assert.Equal(t, byte(0x55), credBytes[5])
	assert.Equal(t, byte(0x00), credBytes[6])
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want error
	}{
		{name: "empty", in: nil, want: pipe.ErrShortCommand},
		{name: "short sync", in: []byte{0x01, 0x12}, want: pipe.ErrShortCommand},
		{name: "short status", in: []byte{0x04, 0, 0}, want: pipe.ErrShortCommand},
		{name: "short credentials", in: []byte{0x07, 1, 2, 3}, want: pipe.ErrShortCommand},
		{name: "unknown", in: []byte{0x42}, want: pipe.ErrUnknownCode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := pipe.Decode(tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := pipe.Simple(pipe.Code(0x42)).MarshalBinary()
	assert.ErrorIs(t, err, pipe.ErrUnknownCode)
}

func TestParseCredentials(t *testing.T) {
	want := testCredentials()
	got, err := pipe.ParseCredentials(want.BSSIDString(), want.PSKString())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "00:11:22:33:44:55", want.BSSIDString())

	got, err = pipe.ParseCredentials("00-11-22-33-44-55", want.PSKString())
	require.NoError(t, err)
	assert.Equal(t, want.BSSID, got.BSSID)

	_, err = pipe.ParseCredentials("00:11:22", want.PSKString())
	assert.Error(t, err)
	_, err = pipe.ParseCredentials(want.BSSIDString(), "abcd")
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xf9}, pipe.StatusInterrupted.Bytes())
	st, err := pipe.ParseStatus([]byte{0xff, 0xff, 0xff, 0xfd})
	require.NoError(t, err)
	assert.Equal(t, pipe.StatusBadSocket, st)
	_, err = pipe.ParseStatus([]byte{1})
	assert.Error(t, err)

	cases := []struct {
		err  error
		want pipe.Status
	}{
		{err: nil, want: pipe.StatusSuccess},
		{err: pipe.ErrInterrupted, want: pipe.StatusInterrupted},
		{err: context.Canceled, want: pipe.StatusInterrupted},
		{err: fmt.Errorf("bind: %w", pipe.ErrUnresponsive), want: pipe.StatusPipeUnresponsive},
		{err: pipe.ErrNoConnection, want: pipe.StatusNoConnection},
		{err: &channel.BindError{Name: "video", Port: channel.PortVideo, Err: errors.New("in use")}, want: pipe.StatusBadSocket},
		{err: event.ErrOutOfMemory, want: pipe.StatusOutOfMemory},
		{err: pipe.StatusInvalidArgument, want: pipe.StatusInvalidArgument},
		{err: errors.New("boom"), want: pipe.StatusGeneric},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, pipe.StatusOf(tc.err), "%v", tc.err)
	}
}
