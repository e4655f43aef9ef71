package log

import (
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"
)

// RawLogger records raw datagrams exchanged on the gamepad channels.
type RawLogger interface {
	// Log writes one datagram. in=true means received from the console or
	// bridge, in=false means sent by us.
	Log(channel string, in bool, data []byte)
}

type rawLogger struct {
	w  io.Writer
	mu sync.Mutex
}

// NewRaw creates a RawLogger writing to w. A nil writer yields a no-op logger.
func NewRaw(w io.Writer) RawLogger {
	return &rawLogger{w: w}
}

func (r *rawLogger) Log(channel string, in bool, data []byte) {
	if len(data) == 0 || r.w == nil {
		return
	}

	dir := "TX"
	if in {
		dir = "RX"
	}
	line := fmt.Sprintf("%s %-7s %s %d bytes: %s\n",
		time.Now().Format("15:04:05.000"),
		channel,
		dir,
		len(data),
		hex.EncodeToString(data))

	r.mu.Lock()
	_, _ = io.WriteString(r.w, line)
	r.mu.Unlock()
}
