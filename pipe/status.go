package pipe

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/vanilla-wiiu/govanilla/channel"
	"github.com/vanilla-wiiu/govanilla/event"
)

// Status is the signed result code carried by Status replies and Error events.
type Status int32

const (
	StatusSuccess          Status = 0
	StatusGeneric          Status = -1
	StatusInvalidArgument  Status = -2
	StatusBadSocket        Status = -3
	StatusOutOfMemory      Status = -4
	StatusPipeUnresponsive Status = -5
	StatusNoConnection     Status = -6
	StatusInterrupted      Status = -7
)

var (
	// ErrUnresponsive means the bridge did not answer within the retry budget.
	ErrUnresponsive = errors.New("pipe unresponsive")
	// ErrInterrupted means the operation was aborted by the session interrupt.
	ErrInterrupted = errors.New("interrupted")
	// ErrNoConnection means the bridge reported it has no console link.
	ErrNoConnection = errors.New("no connection to console")
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusGeneric:
		return "generic error"
	case StatusInvalidArgument:
		return "invalid argument"
	case StatusBadSocket:
		return "bad socket"
	case StatusOutOfMemory:
		return "out of memory"
	case StatusPipeUnresponsive:
		return "pipe unresponsive"
	case StatusNoConnection:
		return "no connection"
	case StatusInterrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// Error makes a non-success Status usable as an error.
func (s Status) Error() string { return s.String() }

// Bytes encodes the status as the 4-byte big-endian payload of an Error event.
func (s Status) Bytes() []byte {
	return binary.BigEndian.AppendUint32(nil, uint32(int32(s)))
}

// ParseStatus decodes an Error event payload.
func ParseStatus(b []byte) (Status, error) {
	if len(b) < 4 {
		return 0, fmt.Errorf("status: %w", ErrShortCommand)
	}
	return Status(int32(binary.BigEndian.Uint32(b))), nil
}

// StatusOf maps an error returned by this module to its status code.
func StatusOf(err error) Status {
	var st Status
	var bindErr *channel.BindError
	switch {
	case err == nil:
		return StatusSuccess
	case errors.As(err, &st):
		return st
	case errors.Is(err, ErrInterrupted), errors.Is(err, context.Canceled):
		return StatusInterrupted
	case errors.Is(err, ErrUnresponsive):
		return StatusPipeUnresponsive
	case errors.Is(err, ErrNoConnection):
		return StatusNoConnection
	case errors.As(err, &bindErr):
		return StatusBadSocket
	case errors.Is(err, event.ErrOutOfMemory):
		return StatusOutOfMemory
	default:
		return StatusGeneric
	}
}
