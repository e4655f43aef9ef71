package handler

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/vanilla-wiiu/govanilla/apitypes"
	"github.com/vanilla-wiiu/govanilla/gamepad"
	"github.com/vanilla-wiiu/govanilla/internal/log"
	"github.com/vanilla-wiiu/govanilla/internal/server/api"
)

// EventWriteTimeout bounds a single frame write so a client that stops
// reading cannot stall the stream forever.
const EventWriteTimeout = 5 * time.Second

// Events streams queued engine events as frames of kind (u8), payload length
// (u32 BE) and payload. The engine queue has a single consumer, so only one
// events stream should be open at a time.
func Events(e *gamepad.Engine) api.StreamHandlerFunc {
	return func(ctx context.Context, conn net.Conn, logger *slog.Logger) error {
		var hdr [apitypes.EventFrameHeaderSize]byte
		for {
			ev, ok := e.PullEventContext(ctx)
			if !ok {
				return ctx.Err()
			}
			hdr[0] = byte(ev.Kind)
			binary.BigEndian.PutUint32(hdr[1:], uint32(ev.Len()))
			frame := append(hdr[:], ev.Data()...)
			ev.Release()

			_ = conn.SetWriteDeadline(time.Now().Add(EventWriteTimeout))
			if _, err := conn.Write(frame); err != nil {
				return fmt.Errorf("write event: %w", err)
			}
			logger.Log(ctx, log.LevelTrace, "event sent", "kind", ev.Kind, "size", len(frame)-len(hdr))
		}
	}
}
