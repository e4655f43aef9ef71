package apiclient_test

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanilla-wiiu/govanilla/apiclient"
	"github.com/vanilla-wiiu/govanilla/event"
)

func TestEvents_NotSupportedWithMockTransport(t *testing.T) {
	c := testClient(map[string]string{}, nil)
	_, err := c.Events(context.Background())
	assert.ErrorContains(t, err, "not supported with mock transport")
}

func frame(kind event.Kind, payload []byte) []byte {
	b := make([]byte, 5, 5+len(payload))
	b[0] = byte(kind)
	binary.BigEndian.PutUint32(b[1:], uint32(len(payload)))
	return append(b, payload...)
}

// startStreamServer accepts one connection, checks the stream request and
// writes the given frames.
func startStreamServer(t *testing.T, frames ...[]byte) (addr string, gotPath chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	gotPath = make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 7)
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, _ := conn.Read(buf)
		gotPath <- string(buf[:n])
		for _, f := range frames {
			if _, err := conn.Write(f); err != nil {
				return
			}
		}
		// Hold the connection open until the client leaves.
		_, _ = conn.Read(buf)
	}()
	return ln.Addr().String(), gotPath
}

func TestEventStreamNext(t *testing.T) {
	addr, gotPath := startStreamServer(t,
		frame(event.KindVibrate, []byte{0xff}),
		frame(event.KindVideo, []byte{1, 2, 3, 4}),
		frame(event.KindError, nil),
	)
	s, err := apiclient.New(addr).Events(context.Background())
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "events\x00", <-gotPath)

	want := []apiclient.StreamEvent{
		{Kind: event.KindVibrate, Data: []byte{0xff}},
		{Kind: event.KindVideo, Data: []byte{1, 2, 3, 4}},
		{Kind: event.KindError, Data: []byte{}},
	}
	for _, w := range want {
		ev, err := s.Next()
		require.NoError(t, err)
		assert.Equal(t, w, *ev)
	}
}

func TestEventStreamRejectsOversizedFrame(t *testing.T) {
	hdr := make([]byte, 5)
	binary.BigEndian.PutUint32(hdr[1:], apiclient.MaxEventSize+1)
	addr, _ := startStreamServer(t, hdr)
	s, err := apiclient.New(addr).Events(context.Background())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Next()
	assert.ErrorContains(t, err, "exceeds")
}

func TestEventStreamStartReading(t *testing.T) {
	addr, _ := startStreamServer(t, frame(event.KindAudio, []byte{9, 9}))
	s, err := apiclient.New(addr).Events(context.Background())
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	evCh, errCh := s.StartReading(ctx, 4)

	select {
	case ev := <-evCh:
		assert.Equal(t, event.KindAudio, ev.Kind)
		assert.Equal(t, []byte{9, 9}, ev.Data)
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
	}

	cancel()
	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not stop")
	}
	assert.Panics(t, func() { s.StartReading(context.Background(), 1) })
}
