package gamepad

import (
	"fmt"

	"github.com/vanilla-wiiu/govanilla/channel"
	"github.com/vanilla-wiiu/govanilla/pipe"
)

// RequestIDR asks the console for a full video frame. Without a connected
// session it does nothing.
func (e *Engine) RequestIDR() {
	if sock := e.msgSock.Load(); sock != nil {
		sock.Send(idrRequest)
	}
}

// SetTouch moves the touch point; TouchNone for either coordinate lifts it.
func (e *Engine) SetTouch(x, y int) {
	e.updateInput(func(s *InputState) { s.SetTouch(x, y) })
}

// SetButton presses or releases a button, or moves a stick axis.
func (e *Engine) SetButton(b Button, value int32) error {
	if b >= buttonCount {
		return fmt.Errorf("%w: %s", pipe.StatusInvalidArgument, b)
	}
	e.updateInput(func(s *InputState) { s.Set(b, value) })
	return nil
}

func (e *Engine) SetRegion(region uint8) {
	e.updateInput(func(s *InputState) { s.Region = region })
}

func (e *Engine) SetBatteryStatus(status uint8) {
	e.updateInput(func(s *InputState) { s.Battery = status })
}

// Input returns a copy of the current input state.
func (e *Engine) Input() InputState {
	e.inputMu.Lock()
	defer e.inputMu.Unlock()
	return e.input
}

// updateInput applies fn and wakes the input listener, which sends the
// report on its socket.
func (e *Engine) updateInput(fn func(*InputState)) {
	e.inputMu.Lock()
	fn(&e.input)
	e.inputMu.Unlock()
	select {
	case e.inputDirty <- struct{}{}:
	default:
	}
}

func (e *Engine) sendInputReport(sock *channel.Socket) {
	e.inputMu.Lock()
	report := e.input.BuildReport(e.inputSeq)
	e.inputSeq++
	e.inputMu.Unlock()

	sock.Send(report)
	e.counters.inputReports.Add(1)
}
