// Package pipe implements the control protocol spoken with the Wi-Fi bridge
// ("pipe") that owns the radio link to the console.
//
// Every command is a single datagram: one control-code byte followed by a
// packed, big-endian payload whose shape depends on the code.
package pipe

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Code is the first byte of every pipe datagram.
type Code uint8

const (
	CodeSync        Code = 0x01
	CodeConnect     Code = 0x02
	CodeBindAck     Code = 0x03
	CodeStatus      Code = 0x04
	CodeUnbind      Code = 0x05
	CodePing        Code = 0x06
	CodeSyncSuccess Code = 0x07
	CodeConnected   Code = 0x08
)

func (c Code) String() string {
	switch c {
	case CodeSync:
		return "sync"
	case CodeConnect:
		return "connect"
	case CodeBindAck:
		return "bind-ack"
	case CodeStatus:
		return "status"
	case CodeUnbind:
		return "unbind"
	case CodePing:
		return "ping"
	case CodeSyncSuccess:
		return "sync-success"
	case CodeConnected:
		return "connected"
	default:
		return fmt.Sprintf("code(0x%02x)", uint8(c))
	}
}

const (
	BSSIDSize = 6
	PSKSize   = 32

	// CredentialsSize is the packed size of Credentials on the wire.
	CredentialsSize = BSSIDSize + PSKSize
)

var (
	ErrShortCommand = errors.New("pipe command truncated")
	ErrUnknownCode  = errors.New("unknown pipe control code")
)

// Credentials authenticate the gamepad to the console's access point. They are
// produced by a successful sync and consumed by connect.
type Credentials struct {
	BSSID [BSSIDSize]byte
	PSK   [PSKSize]byte
}

// MarshalBinary packs the credentials as bssid followed by psk.
func (c Credentials) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, CredentialsSize)
	out = append(out, c.BSSID[:]...)
	return append(out, c.PSK[:]...), nil
}

func (c *Credentials) UnmarshalBinary(b []byte) error {
	if len(b) < CredentialsSize {
		return fmt.Errorf("credentials: %w: got %d bytes, want %d", ErrShortCommand, len(b), CredentialsSize)
	}
	copy(c.BSSID[:], b[:BSSIDSize])
	copy(c.PSK[:], b[BSSIDSize:CredentialsSize])
	return nil
}

// BSSIDString formats the BSSID as colon separated hex, e.g. 00:11:22:33:44:55.
func (c Credentials) BSSIDString() string {
	parts := make([]string, BSSIDSize)
	for i, b := range c.BSSID {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, ":")
}

// PSKString formats the PSK as 64 hex digits.
func (c Credentials) PSKString() string { return hex.EncodeToString(c.PSK[:]) }

// ParseCredentials parses the textual forms produced by BSSIDString and
// PSKString. The BSSID may use ':' or '-' separators or none.
func ParseCredentials(bssid, psk string) (Credentials, error) {
	var c Credentials
	raw := strings.NewReplacer(":", "", "-", "").Replace(strings.TrimSpace(bssid))
	b, err := hex.DecodeString(raw)
	if err != nil || len(b) != BSSIDSize {
		return Credentials{}, fmt.Errorf("invalid bssid %q", bssid)
	}
	copy(c.BSSID[:], b)

	p, err := hex.DecodeString(strings.TrimSpace(psk))
	if err != nil || len(p) != PSKSize {
		return Credentials{}, fmt.Errorf("invalid psk: expected %d hex digits", PSKSize*2)
	}
	copy(c.PSK[:], p)
	return c, nil
}

// Command is one decoded pipe datagram. Only the fields belonging to Code are
// meaningful.
type Command struct {
	Code        Code
	SyncCode    uint16
	Credentials Credentials
	Status      Status
}

func Sync(code uint16) Command { return Command{Code: CodeSync, SyncCode: code} }
func Connect(creds Credentials) Command { return Command{Code: CodeConnect, Credentials: creds} }
func Unbind() Command { return Command{Code: CodeUnbind} }
func StatusReply(st Status) Command { return Command{Code: CodeStatus, Status: st} }
func SyncSuccess(creds Credentials) Command { return Command{Code: CodeSyncSuccess, Credentials: creds} }
func Simple(code Code) Command { return Command{Code: code} }

// MarshalBinary encodes the command to its wire form.
func (c Command) MarshalBinary() ([]byte, error) {
	switch c.Code {
	case CodeSync:
		return binary.BigEndian.AppendUint16([]byte{byte(c.Code)}, c.SyncCode), nil
	case CodeConnect, CodeSyncSuccess:
		creds, _ := c.Credentials.MarshalBinary()
		return append([]byte{byte(c.Code)}, creds...), nil
	case CodeStatus:
		return binary.BigEndian.AppendUint32([]byte{byte(c.Code)}, uint32(int32(c.Status))), nil
	case CodeBindAck, CodeUnbind, CodePing, CodeConnected:
		return []byte{byte(c.Code)}, nil
	default:
		return nil, fmt.Errorf("encode: %w: %s", ErrUnknownCode, c.Code)
	}
}

// Decode parses one datagram. Trailing bytes beyond the payload are ignored.
func Decode(b []byte) (Command, error) {
	if len(b) == 0 {
		return Command{}, ErrShortCommand
	}
	c := Command{Code: Code(b[0])}
	payload := b[1:]
	switch c.Code {
	case CodeSync:
		if len(payload) < 2 {
			return Command{}, fmt.Errorf("%s: %w", c.Code, ErrShortCommand)
		}
		c.SyncCode = binary.BigEndian.Uint16(payload)
	case CodeConnect, CodeSyncSuccess:
		if err := c.Credentials.UnmarshalBinary(payload); err != nil {
			return Command{}, fmt.Errorf("%s: %w", c.Code, err)
		}
	case CodeStatus:
		if len(payload) < 4 {
			return Command{}, fmt.Errorf("%s: %w", c.Code, ErrShortCommand)
		}
		c.Status = Status(int32(binary.BigEndian.Uint32(payload)))
	case CodeBindAck, CodeUnbind, CodePing, CodeConnected:
	default:
		return Command{}, fmt.Errorf("decode: %w: %s", ErrUnknownCode, c.Code)
	}
	return c, nil
}
