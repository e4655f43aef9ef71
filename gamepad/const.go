package gamepad

import (
	"fmt"
	"strings"
)

// Button identifies a control accepted by Engine.SetButton. The axis IDs take
// signed stick values, every other ID is pressed when the value is non-zero.
type Button uint8

const (
	ButtonA Button = iota
	ButtonB
	ButtonX
	ButtonY
	ButtonL
	ButtonR
	ButtonZL
	ButtonZR
	ButtonMinus
	ButtonPlus
	ButtonHome
	ButtonL3
	ButtonR3
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
	ButtonTV
	AxisLeftX
	AxisLeftY
	AxisRightX
	AxisRightY

	buttonCount
)

var buttonNames = [buttonCount]string{
	"a", "b", "x", "y", "l", "r", "zl", "zr", "minus", "plus", "home",
	"l3", "r3", "up", "down", "left", "right", "tv",
	"left-x", "left-y", "right-x", "right-y",
}

func (b Button) String() string {
	if b < buttonCount {
		return buttonNames[b]
	}
	return fmt.Sprintf("button(%d)", uint8(b))
}

// IsAxis reports whether b is a stick axis.
func (b Button) IsAxis() bool { return b >= AxisLeftX && b <= AxisRightY }

// ParseButton resolves a button by name, case-insensitively.
func ParseButton(s string) (Button, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range buttonNames {
		if name == s {
			return Button(i), nil
		}
	}
	return 0, fmt.Errorf("unknown button %q", s)
}

// Bits of InputState.Buttons.
const (
	BtnSync  uint16 = 0x0001
	BtnHome  uint16 = 0x0002
	BtnMinus uint16 = 0x0004
	BtnPlus  uint16 = 0x0008
	BtnR     uint16 = 0x0010
	BtnL     uint16 = 0x0020
	BtnZR    uint16 = 0x0040
	BtnZL    uint16 = 0x0080
	BtnDown  uint16 = 0x0100
	BtnUp    uint16 = 0x0200
	BtnRight uint16 = 0x0400
	BtnLeft  uint16 = 0x0800
	BtnY     uint16 = 0x1000
	BtnX     uint16 = 0x2000
	BtnB     uint16 = 0x4000
	BtnA     uint16 = 0x8000
)

// Bits of InputState.ExtraButtons.
const (
	ExtraTV uint8 = 0x20
	ExtraR3 uint8 = 0x40
	ExtraL3 uint8 = 0x80
)

var buttonBits = map[Button]uint16{
	ButtonA: BtnA, ButtonB: BtnB, ButtonX: BtnX, ButtonY: BtnY,
	ButtonL: BtnL, ButtonR: BtnR, ButtonZL: BtnZL, ButtonZR: BtnZR,
	ButtonMinus: BtnMinus, ButtonPlus: BtnPlus, ButtonHome: BtnHome,
	ButtonUp: BtnUp, ButtonDown: BtnDown, ButtonLeft: BtnLeft, ButtonRight: BtnRight,
}

var extraBits = map[Button]uint8{
	ButtonL3: ExtraL3, ButtonR3: ExtraR3, ButtonTV: ExtraTV,
}

// Battery status values reported in the input report.
const (
	BatteryUnknown  uint8 = 0
	BatteryCharging uint8 = 1
	BatteryEmpty    uint8 = 2
	BatteryCritical uint8 = 3
	BatteryLow      uint8 = 4
	BatteryMedium   uint8 = 5
	BatteryHigh     uint8 = 6
	BatteryFull     uint8 = 7
)

// TouchNone clears the touch point when passed to Engine.SetTouch.
const TouchNone = -1

// Touch panel resolution.
const (
	TouchMaxX = 4095
	TouchMaxY = 4095
)
