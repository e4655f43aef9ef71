package gamepad

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/vanilla-wiiu/govanilla/channel"
	"github.com/vanilla-wiiu/govanilla/event"
	"github.com/vanilla-wiiu/govanilla/interrupt"
	"github.com/vanilla-wiiu/govanilla/internal/log"
)

const receiveBufferSize = 65536

// receiveLoop feeds every datagram arriving on sock to handle until ctx is done.
func (e *Engine) receiveLoop(ctx context.Context, s *session, sock *channel.Socket, handle func([]byte)) {
	buf := make([]byte, receiveBufferSize)
	for {
		n, err := sock.ReceiveContext(ctx, buf)
		switch {
		case ctx.Err() != nil:
			return
		case errors.Is(err, channel.ErrTimeout):
			continue
		case errors.Is(err, net.ErrClosed):
			return
		case err != nil:
			s.logger.Debug("receive failed", "port", sock.Port(), "error", err)
			if !interrupt.Sleep(ctx, 10*time.Millisecond) {
				return
			}
			continue
		}
		handle(buf[:n])
	}
}

func (e *Engine) videoHandler(s *session) func([]byte) {
	var last uint16
	started := false
	return func(b []byte) {
		var h VideoHeader
		if err := h.UnmarshalBinary(b); err != nil {
			e.counters.malformed.Add(1)
			s.logger.Debug("dropping video packet", "error", err)
			return
		}
		payload := b[VideoHeaderSize:]
		if int(h.PayloadSize) > len(payload) {
			e.counters.malformed.Add(1)
			s.logger.Debug("dropping truncated video packet", "want", h.PayloadSize, "got", len(payload))
			return
		}
		if started && h.Seq != (last+1)&seqMask {
			e.counters.videoGaps.Add(1)
			s.logger.Debug("video sequence gap", "expected", (last+1)&seqMask, "got", h.Seq)
			e.RequestIDR()
		}
		last, started = h.Seq, true
		e.counters.video.Add(1)
		e.push(s, event.KindVideo, payload[:h.PayloadSize])
	}
}

func (e *Engine) audioHandler(s *session) func([]byte) {
	return func(b []byte) {
		var h AudioHeader
		if err := h.UnmarshalBinary(b); err != nil {
			e.counters.malformed.Add(1)
			s.logger.Debug("dropping audio packet", "error", err)
			return
		}
		payload := b[AudioHeaderSize:]
		if int(h.PayloadSize) > len(payload) {
			e.counters.malformed.Add(1)
			s.logger.Debug("dropping truncated audio packet", "want", h.PayloadSize, "got", len(payload))
			return
		}
		e.counters.audio.Add(1)

		if e.vibrating.Swap(h.Vibrate) != h.Vibrate {
			intensity := byte(0x00)
			if h.Vibrate {
				intensity = 0xFF
			}
			e.push(s, event.KindVibrate, []byte{intensity})
		}
		if h.Type == AudioTypeData {
			e.push(s, event.KindAudio, payload[:h.PayloadSize])
		}
	}
}

func (e *Engine) messageHandler(s *session) func([]byte) {
	return func(b []byte) {
		e.counters.messages.Add(1)
		s.logger.Log(context.Background(), log.LevelTrace, "console message", "size", len(b))
	}
}

func (e *Engine) commandHandler(s *session, sock *channel.Socket) func([]byte) {
	return func(b []byte) {
		var h CommandHeader
		if err := h.UnmarshalBinary(b); err != nil {
			e.counters.malformed.Add(1)
			s.logger.Debug("dropping command packet", "error", err)
			return
		}
		if h.PacketType != CommandRequest {
			return
		}
		e.counters.commands.Add(1)
		ack, _ := CommandHeader{PacketType: CommandResponse, QueryType: h.QueryType, Seq: h.Seq}.MarshalBinary()
		sock.Send(ack)
	}
}

// inputLoop reports the input state every InputInterval and right after each
// change. It is the only sender on the input socket; datagrams arriving on it
// are not read.
func (e *Engine) inputLoop(ctx context.Context, sock *channel.Socket) {
	t := time.NewTicker(e.cfg.InputInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		case <-e.inputDirty:
		}
		e.sendInputReport(sock)
	}
}
