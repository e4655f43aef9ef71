package apiclient

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/vanilla-wiiu/govanilla/apitypes"
	"github.com/vanilla-wiiu/govanilla/event"
)

// MaxEventSize bounds the payload accepted from the events stream.
const MaxEventSize = event.BlockSize

// StreamEvent is one event read from the events stream. The payload is owned
// by the caller.
type StreamEvent struct {
	Kind event.Kind
	Data []byte
}

// EventStream is a connection to the events stream route.
type EventStream struct {
	conn net.Conn
	r    *bufio.Reader

	readCancel context.CancelFunc
	readMu     sync.Mutex
	closeOnce  sync.Once
}

// Events opens the events stream. Only one consumer should be attached to a
// server at a time; events pulled by one stream are not seen by another.
func (c *Client) Events(ctx context.Context) (*EventStream, error) {
	conn, err := c.transport.OpenStream(ctx, "events")
	if err != nil {
		return nil, err
	}
	return &EventStream{conn: conn, r: bufio.NewReader(conn)}, nil
}

// Next blocks for the next event.
func (s *EventStream) Next() (*StreamEvent, error) {
	return readEvent(s.r)
}

func readEvent(r io.Reader) (*StreamEvent, error) {
	var hdr [apitypes.EventFrameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(hdr[1:])
	if size > MaxEventSize {
		return nil, fmt.Errorf("event of %d bytes exceeds %d", size, MaxEventSize)
	}
	ev := &StreamEvent{Kind: event.Kind(hdr[0]), Data: make([]byte, size)}
	if _, err := io.ReadFull(r, ev.Data); err != nil {
		return nil, fmt.Errorf("read event payload: %w", err)
	}
	return ev, nil
}

// StartReading reads events in a background goroutine until ctx is done or
// the stream fails. The error channel receives exactly one error.
func (s *EventStream) StartReading(ctx context.Context, chSize int) (<-chan *StreamEvent, <-chan error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	if s.readCancel != nil {
		panic("StartReading called twice on the same stream")
	}

	evCh := make(chan *StreamEvent, chSize)
	errCh := make(chan error, 1)

	readCtx, cancel := context.WithCancel(ctx)
	s.readCancel = cancel
	stop := context.AfterFunc(readCtx, func() { _ = s.conn.SetReadDeadline(time.Now()) })

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer stop()
		defer cancel()

		for {
			ev, err := s.Next()
			if err != nil {
				if readCtx.Err() != nil {
					err = readCtx.Err()
				}
				errCh <- err
				return
			}
			select {
			case evCh <- ev:
			case <-readCtx.Done():
				errCh <- readCtx.Err()
				return
			}
		}
	}()

	return evCh, errCh
}

// Close closes the stream connection and stops any background reading.
func (s *EventStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.readMu.Lock()
		if s.readCancel != nil {
			s.readCancel()
		}
		s.readMu.Unlock()
		err = s.conn.Close()
	})
	return err
}
