// Package channel opens and drives the datagram sockets of the five gamepad
// channels, either as IPv4 UDP sockets or as Unix-domain datagram sockets
// rendezvousing with a local bridge.
package channel

import "fmt"

// Channel is one of the logical datagram streams between gamepad and console.
type Channel uint8

const (
	Video Channel = iota
	Audio
	Input
	Message
	Command
)

// Gamepad-side ports. The console listens on the same ports minus consolePortOffset.
const (
	PortMessage uint16 = 50110
	PortVideo   uint16 = 50120
	PortAudio   uint16 = 50121
	PortInput   uint16 = 50122
	PortCommand uint16 = 50123

	consolePortOffset = 100
)

// OpenOrder is the order channels are bound in; teardown runs in reverse.
var OpenOrder = []Channel{Video, Message, Input, Audio, Command}

// Port returns the gamepad-side port of the channel.
func (c Channel) Port() uint16 {
	switch c {
	case Video:
		return PortVideo
	case Audio:
		return PortAudio
	case Input:
		return PortInput
	case Message:
		return PortMessage
	case Command:
		return PortCommand
	default:
		return 0
	}
}

// ConsolePort returns the port the console receives this channel's traffic on.
func (c Channel) ConsolePort() uint16 { return ConsolePort(c.Port()) }

// ConsolePort maps a gamepad-side port to the console port it talks to.
func ConsolePort(port uint16) uint16 { return port - consolePortOffset }

func (c Channel) String() string {
	switch c {
	case Video:
		return "video"
	case Audio:
		return "audio"
	case Input:
		return "input"
	case Message:
		return "message"
	case Command:
		return "command"
	default:
		return fmt.Sprintf("channel(%d)", uint8(c))
	}
}
