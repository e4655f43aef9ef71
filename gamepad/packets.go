package gamepad

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var ErrMalformedPacket = errors.New("malformed packet")

const (
	VideoHeaderSize   = 16
	AudioHeaderSize   = 8
	CommandHeaderSize = 8

	videoMagic  = 0xF
	seqMask     = 0x3FF
	maxVideoLen = 0x7FF
)

// Video header flags.
const (
	VideoFlagInit       uint8 = 0x10
	VideoFlagFrameBegin uint8 = 0x08
	VideoFlagChunkEnd   uint8 = 0x04
	VideoFlagFrameEnd   uint8 = 0x02
	VideoFlagTimestamp  uint8 = 0x01
)

// VideoHeader precedes every video datagram.
//
//	bits 31-28 magic (0xF), 27-26 packet type, 25-16 seq, 15-11 flags, 10-0 payload size
//	u32 timestamp, 8 bytes extended header
type VideoHeader struct {
	PacketType  uint8
	Seq         uint16
	Flags       uint8
	PayloadSize uint16
	Timestamp   uint32
	Extended    [8]byte
}

func (h VideoHeader) MarshalBinary() ([]byte, error) {
	if h.PayloadSize > maxVideoLen {
		return nil, fmt.Errorf("video payload size %d exceeds %d", h.PayloadSize, maxVideoLen)
	}
	w := uint32(videoMagic)<<28 |
		uint32(h.PacketType&0x3)<<26 |
		uint32(h.Seq&seqMask)<<16 |
		uint32(h.Flags&0x1F)<<11 |
		uint32(h.PayloadSize)
	b := binary.BigEndian.AppendUint32(make([]byte, 0, VideoHeaderSize), w)
	b = binary.BigEndian.AppendUint32(b, h.Timestamp)
	return append(b, h.Extended[:]...), nil
}

func (h *VideoHeader) UnmarshalBinary(b []byte) error {
	if len(b) < VideoHeaderSize {
		return fmt.Errorf("video: %w: %d bytes", ErrMalformedPacket, len(b))
	}
	w := binary.BigEndian.Uint32(b)
	if w>>28 != videoMagic {
		return fmt.Errorf("video: %w: bad magic 0x%x", ErrMalformedPacket, w>>28)
	}
	h.PacketType = uint8(w>>26) & 0x3
	h.Seq = uint16(w>>16) & seqMask
	h.Flags = uint8(w>>11) & 0x1F
	h.PayloadSize = uint16(w) & maxVideoLen
	h.Timestamp = binary.BigEndian.Uint32(b[4:8])
	copy(h.Extended[:], b[8:16])
	return nil
}

// AudioHeader precedes every audio datagram.
//
//	bits 15-13 format, 12 mono, 11 vibrate, 10 type, 9-0 seq
//	u16 payload size, u32 timestamp
type AudioHeader struct {
	Format      uint8
	Mono        bool
	Vibrate     bool
	Type        uint8
	Seq         uint16
	PayloadSize uint16
	Timestamp   uint32
}

// AudioTypeData marks datagrams carrying sound samples.
const AudioTypeData = 0

func (h AudioHeader) MarshalBinary() ([]byte, error) {
	w := uint16(h.Format&0x7)<<13 | uint16(h.Type&0x1)<<10 | h.Seq&seqMask
	if h.Mono {
		w |= 1 << 12
	}
	if h.Vibrate {
		w |= 1 << 11
	}
	b := binary.BigEndian.AppendUint16(make([]byte, 0, AudioHeaderSize), w)
	b = binary.BigEndian.AppendUint16(b, h.PayloadSize)
	return binary.BigEndian.AppendUint32(b, h.Timestamp), nil
}

func (h *AudioHeader) UnmarshalBinary(b []byte) error {
	if len(b) < AudioHeaderSize {
		return fmt.Errorf("audio: %w: %d bytes", ErrMalformedPacket, len(b))
	}
	w := binary.BigEndian.Uint16(b)
	h.Format = uint8(w >> 13)
	h.Mono = w&(1<<12) != 0
	h.Vibrate = w&(1<<11) != 0
	h.Type = uint8(w>>10) & 0x1
	h.Seq = w & seqMask
	h.PayloadSize = binary.BigEndian.Uint16(b[2:4])
	h.Timestamp = binary.BigEndian.Uint32(b[4:8])
	return nil
}

// Command channel packet types.
const (
	CommandRequest  uint8 = 0
	CommandResponse uint8 = 1
)

// CommandHeader precedes every command channel datagram.
type CommandHeader struct {
	PacketType  uint8
	QueryType   uint8
	PayloadSize uint16
	Seq         uint16
}

func (h CommandHeader) MarshalBinary() ([]byte, error) {
	b := []byte{h.PacketType, h.QueryType}
	b = binary.BigEndian.AppendUint16(b, h.PayloadSize)
	b = binary.BigEndian.AppendUint16(b, h.Seq)
	return append(b, 0, 0), nil
}

func (h *CommandHeader) UnmarshalBinary(b []byte) error {
	if len(b) < CommandHeaderSize {
		return fmt.Errorf("command: %w: %d bytes", ErrMalformedPacket, len(b))
	}
	h.PacketType = b[0]
	h.QueryType = b[1]
	h.PayloadSize = binary.BigEndian.Uint16(b[2:4])
	h.Seq = binary.BigEndian.Uint16(b[4:6])
	return nil
}

// idrRequest asks the console for an instantaneous decoder refresh frame.
var idrRequest = []byte{1, 0, 0, 0}
