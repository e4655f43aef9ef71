package channel

import (
	"fmt"
	"net"
	"net/netip"
	"path/filepath"
	"strings"
)

// ConsoleIP is where the Wii U always places itself on its own network.
var ConsoleIP = netip.AddrFrom4([4]byte{192, 168, 1, 10})

// Mode selects how the console link is reached.
type Mode uint8

const (
	// ModeLocal reaches a bridge on this host through Unix-domain datagram sockets.
	ModeLocal Mode = iota
	// ModeDirect talks to the console itself, no bridge involved.
	ModeDirect
	// ModeRemote reaches a bridge over IPv4.
	ModeRemote
)

func (m Mode) String() string {
	switch m {
	case ModeLocal:
		return "local"
	case ModeDirect:
		return "direct"
	case ModeRemote:
		return "remote"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Address is the addressing mode of a session. It is fixed for the lifetime
// of the session. The zero value is Local.
type Address struct {
	mode Mode
	ip   netip.Addr
}

// Local returns the address of a bridge on this host.
func Local() Address { return Address{mode: ModeLocal} }

// Direct returns the address of the console itself.
func Direct() Address { return Address{mode: ModeDirect} }

// Remote returns the address of a bridge reachable at ip.
func Remote(ip netip.Addr) (Address, error) {
	ip = ip.Unmap()
	if !ip.Is4() {
		return Address{}, fmt.Errorf("remote bridge address must be IPv4: %s", ip)
	}
	return Address{mode: ModeRemote, ip: ip}, nil
}

// ParseAddress parses "local", "direct" or a dotted IPv4 address.
func ParseAddress(s string) (Address, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "local":
		return Local(), nil
	case "direct":
		return Direct(), nil
	}
	ip, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return Address{}, fmt.Errorf("invalid address %q: expected local, direct or an IPv4 address", s)
	}
	return Remote(ip)
}

// Mode returns the addressing mode.
func (a Address) Mode() Mode { return a.mode }

// IP returns the bridge address for ModeRemote, the console address for
// ModeDirect and an invalid address for ModeLocal.
func (a Address) IP() netip.Addr {
	switch a.mode {
	case ModeDirect:
		return ConsoleIP
	case ModeRemote:
		return a.ip
	default:
		return netip.Addr{}
	}
}

// NeedsBridge reports whether a pipe bind must precede channel traffic.
func (a Address) NeedsBridge() bool { return a.mode != ModeDirect }

func (a Address) String() string {
	if a.mode == ModeRemote {
		return a.ip.String()
	}
	return a.mode.String()
}

func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Endpoints turns an Address into concrete socket addresses. Local mode maps
// every port to a rendezvous path inside SocketDir.
type Endpoints struct {
	Address   Address
	SocketDir string
}

// SocketPath returns the Unix-domain rendezvous path for port.
func (e Endpoints) SocketPath(port uint16) string {
	dir := e.SocketDir
	if dir == "" {
		dir = DefaultSocketDir
	}
	return filepath.Join(dir, fmt.Sprintf("vanilla-%d.sock", port))
}

// Bind returns the local address a socket for port binds to.
func (e Endpoints) Bind(port uint16) net.Addr {
	if e.Address.mode == ModeLocal {
		return &net.UnixAddr{Name: e.SocketPath(port), Net: "unixgram"}
	}
	return &net.UDPAddr{IP: net.IPv4zero, Port: int(port)}
}

// Peer returns the destination address for traffic sent to port.
func (e Endpoints) Peer(port uint16) net.Addr {
	if e.Address.mode == ModeLocal {
		return &net.UnixAddr{Name: e.SocketPath(port), Net: "unixgram"}
	}
	return net.UDPAddrFromAddrPort(netip.AddrPortFrom(e.Address.IP(), port))
}
