//go:build unix

package channel

import (
	"context"
	"net"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// videoReceiveBuffer keeps bursts of video fragments from overflowing the kernel queue.
const videoReceiveBuffer = 1 << 20

func listenPacket(ctx context.Context, network, address string) (net.PacketConn, error) {
	lc := net.ListenConfig{Control: controlSocket}
	return lc.ListenPacket(ctx, network, address)
}

func controlSocket(network, address string, c syscall.RawConn) error {
	if !strings.HasPrefix(network, "udp") {
		return nil
	}
	var opErr error
	err := c.Control(func(fd uintptr) {
		opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, videoReceiveBuffer)
	})
	if err != nil {
		return err
	}
	return opErr
}
