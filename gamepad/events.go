package gamepad

import (
	"fmt"

	"github.com/vanilla-wiiu/govanilla/event"
	"github.com/vanilla-wiiu/govanilla/pipe"
)

// DecodeSyncEvent returns the credentials carried by a KindSync event.
func DecodeSyncEvent(ev *event.Event) (pipe.Credentials, error) {
	var c pipe.Credentials
	if ev.Kind != event.KindSync {
		return c, fmt.Errorf("expected sync event, got %s", ev.Kind)
	}
	err := c.UnmarshalBinary(ev.Data())
	return c, err
}

// DecodeErrorEvent returns the status carried by a KindError event.
func DecodeErrorEvent(ev *event.Event) (pipe.Status, error) {
	if ev.Kind != event.KindError {
		return 0, fmt.Errorf("expected error event, got %s", ev.Kind)
	}
	return pipe.ParseStatus(ev.Data())
}

// DecodeVibrateEvent reports whether a KindVibrate event turns rumble on.
func DecodeVibrateEvent(ev *event.Event) (bool, error) {
	if ev.Kind != event.KindVibrate || ev.Len() != 1 {
		return false, fmt.Errorf("expected 1-byte vibrate event, got %s of %d bytes", ev.Kind, ev.Len())
	}
	return ev.Data()[0] != 0, nil
}
