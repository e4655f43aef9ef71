package gamepad

import (
	"encoding/binary"
	"errors"
)

// InputReportSize is the size of the datagram sent on the input channel.
const InputReportSize = 128

// InputState is the gamepad state the input listener reports to the console.
type InputState struct {
	Buttons      uint16
	ExtraButtons uint8
	// Sticks: signed 16-bit, centered on zero
	LX, LY int16
	RX, RY int16

	Touching bool
	TouchX   uint16
	TouchY   uint16

	PowerStatus uint8
	Battery     uint8
	Region      uint8
}

// Set applies one SetButton call to the state.
func (s *InputState) Set(b Button, value int32) {
	if bit, ok := buttonBits[b]; ok {
		if value != 0 {
			s.Buttons |= bit
		} else {
			s.Buttons &^= bit
		}
		return
	}
	if bit, ok := extraBits[b]; ok {
		if value != 0 {
			s.ExtraButtons |= bit
		} else {
			s.ExtraButtons &^= bit
		}
		return
	}
	v := clampAxis(value)
	switch b {
	case AxisLeftX:
		s.LX = v
	case AxisLeftY:
		s.LY = v
	case AxisRightX:
		s.RX = v
	case AxisRightY:
		s.RY = v
	}
}

// SetTouch moves the touch point. Negative coordinates lift the stylus.
func (s *InputState) SetTouch(x, y int) {
	if x < 0 || y < 0 {
		s.Touching = false
		s.TouchX, s.TouchY = 0, 0
		return
	}
	s.Touching = true
	s.TouchX = uint16(min(x, TouchMaxX))
	s.TouchY = uint16(min(y, TouchMaxY))
}

func clampAxis(v int32) int16 {
	return int16(max(-32768, min(32767, v)))
}

// BuildReport encodes the state into the 128-byte input report.
// Layout (indices in the returned slice):
//
//	 0-1: sequence (big-endian)
//	 2-3: Buttons (big-endian)
//	   4: PowerStatus
//	   5: Battery
//	 6-7: LX (little-endian int16)
//	 8-9: LY
//	10-11: RX
//	12-13: RY
//	  14: ExtraButtons
//	  15: Region
//	  16: touch flag (1 while touching)
//	17-18: TouchX (little-endian)
//	19-20: TouchY (little-endian)
//	21-127: zero
func (s *InputState) BuildReport(seq uint16) []byte {
	b := make([]byte, InputReportSize)
	binary.BigEndian.PutUint16(b[0:2], seq)
	binary.BigEndian.PutUint16(b[2:4], s.Buttons)
	b[4] = s.PowerStatus
	b[5] = s.Battery
	binary.LittleEndian.PutUint16(b[6:8], uint16(s.LX))
	binary.LittleEndian.PutUint16(b[8:10], uint16(s.LY))
	binary.LittleEndian.PutUint16(b[10:12], uint16(s.RX))
	binary.LittleEndian.PutUint16(b[12:14], uint16(s.RY))
	b[14] = s.ExtraButtons
	b[15] = s.Region
	if s.Touching {
		b[16] = 1
	}
	binary.LittleEndian.PutUint16(b[17:19], s.TouchX)
	binary.LittleEndian.PutUint16(b[19:21], s.TouchY)
	return b
}

// ParseReport decodes a report produced by BuildReport.
func ParseReport(b []byte) (seq uint16, s InputState, err error) {
	if len(b) < InputReportSize {
		return 0, InputState{}, errors.New("input report truncated")
	}
	seq = binary.BigEndian.Uint16(b[0:2])
	s.Buttons = binary.BigEndian.Uint16(b[2:4])
	s.PowerStatus = b[4]
	s.Battery = b[5]
	s.LX = int16(binary.LittleEndian.Uint16(b[6:8]))
	s.LY = int16(binary.LittleEndian.Uint16(b[8:10]))
	s.RX = int16(binary.LittleEndian.Uint16(b[10:12]))
	s.RY = int16(binary.LittleEndian.Uint16(b[12:14]))
	s.ExtraButtons = b[14]
	s.Region = b[15]
	s.Touching = b[16] == 1
	s.TouchX = binary.LittleEndian.Uint16(b[17:19])
	s.TouchY = binary.LittleEndian.Uint16(b[19:21])
	return seq, s, nil
}
