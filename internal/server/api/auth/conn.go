package auth

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// Role selects the nonce space of one side of a wrapped connection.
type Role byte

const (
	RoleClient Role = 0x01
	RoleServer Role = 0x02
)

func (r Role) peer() Role {
	if r == RoleClient {
		return RoleServer
	}
	return RoleClient
}

const maxPacketSize = 2 * 1024 * 1024 // 2 MB

var ErrNonceReuse = errors.New("auth: unexpected nonce")

// Conn seals every Write into one frame: length (u32 BE), nonce (12), ciphertext.
// Nonces carry the sender role in their first byte and a strictly increasing
// counter in the last eight, so frames cannot be reflected or replayed.
type Conn struct {
	net.Conn
	aead    cipher.AEAD
	role    Role
	sendCtr uint64
	recvCtr uint64
	recvBuf bytes.Buffer
	mu      sync.Mutex
}

// WrapConn wraps conn with the session key for the given side.
func WrapConn(conn net.Conn, sessionKey []byte, role Role) (net.Conn, error) {
	aead, err := chacha20poly1305.New(sessionKey)
	if err != nil {
		return nil, err
	}
	return &Conn{Conn: conn, aead: aead, role: role}, nil
}

func (s *Conn) nonce(role Role, ctr uint64) []byte {
	nonce := make([]byte, chacha20poly1305.NonceSize)
	nonce[0] = byte(role)
	binary.BigEndian.PutUint64(nonce[4:], ctr)
	return nonce
}

func (s *Conn) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nonce := s.nonce(s.role, s.sendCtr)
	s.sendCtr++

	ct := s.aead.Seal(nil, nonce, p, nil)
	frame := make([]byte, 4, 4+len(nonce)+len(ct))
	binary.BigEndian.PutUint32(frame, uint32(len(nonce)+len(ct)))
	frame = append(frame, nonce...)
	frame = append(frame, ct...)

	if _, err := s.Conn.Write(frame); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *Conn) Read(p []byte) (int, error) {
	if s.recvBuf.Len() == 0 {
		var hdr [4]byte
		if _, err := io.ReadFull(s.Conn, hdr[:]); err != nil {
			return 0, err
		}
		length := binary.BigEndian.Uint32(hdr[:])
		if length > maxPacketSize || length < chacha20poly1305.NonceSize {
			return 0, io.ErrUnexpectedEOF
		}

		pkt := make([]byte, length)
		if _, err := io.ReadFull(s.Conn, pkt); err != nil {
			return 0, err
		}

		nonce := pkt[:chacha20poly1305.NonceSize]
		if !bytes.Equal(nonce, s.nonce(s.role.peer(), s.recvCtr)) {
			return 0, ErrNonceReuse
		}
		pt, err := s.aead.Open(nil, nonce, pkt[chacha20poly1305.NonceSize:], nil)
		if err != nil {
			return 0, err
		}
		s.recvCtr++
		s.recvBuf.Write(pt)
	}
	return s.recvBuf.Read(p)
}
