package gamepad_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanilla-wiiu/govanilla/gamepad"
)

func TestVideoHeaderBits(t *testing.T) {
	h := gamepad.VideoHeader{
		PacketType:  1,
		Seq:         0x3FF,
		Flags:       gamepad.VideoFlagFrameBegin | gamepad.VideoFlagTimestamp,
		PayloadSize: 0x123,
		Timestamp:   0xAABBCCDD,
		Extended:    [8]byte{1, 2, 3, 4, 5, 6, 7, 8},
	}
	b, err := h.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, gamepad.VideoHeaderSize)
	// 1111 01 1111111111 01001 00100100011
	assert.Equal(t, []byte{0xF7, 0xFF, 0x49, 0x23, 0xAA, 0xBB, 0xCC, 0xDD, 1, 2, 3, 4, 5, 6, 7, 8}, b)

	var got gamepad.VideoHeader
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Equal(t, h, got)

	_, err = gamepad.VideoHeader{PayloadSize: 0x800}.MarshalBinary()
	assert.Error(t, err)
}

func TestHeaderErrors(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
	}{
		{"video short", func() error {
			var h gamepad.VideoHeader
			return h.UnmarshalBinary(make([]byte, 15))
		}},
		{"video magic", func() error {
			var h gamepad.VideoHeader
			return h.UnmarshalBinary(make([]byte, 16))
		}},
		{"audio short", func() error {
			var h gamepad.AudioHeader
			return h.UnmarshalBinary(make([]byte, 7))
		}},
		{"command short", func() error {
			var h gamepad.CommandHeader
			return h.UnmarshalBinary(make([]byte, 3))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.fn(), gamepad.ErrMalformedPacket)
		})
	}
}

func TestAudioHeaderBits(t *testing.T) {
	h := gamepad.AudioHeader{Format: 5, Vibrate: true, Type: 1, Seq: 0x2A, PayloadSize: 0x0300, Timestamp: 7}
	b, err := h.MarshalBinary()
	require.NoError(t, err)
	// 101 0 1 1 0000101010
	assert.Equal(t, []byte{0xAC, 0x2A, 0x03, 0x00, 0, 0, 0, 7}, b)

	var got gamepad.AudioHeader
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Equal(t, h, got)
}

func TestCommandHeaderBits(t *testing.T) {
	h := gamepad.CommandHeader{PacketType: gamepad.CommandResponse, QueryType: 2, PayloadSize: 0x10, Seq: 0x0102}
	b, err := h.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 0, 0x10, 1, 2, 0, 0}, b)
}
