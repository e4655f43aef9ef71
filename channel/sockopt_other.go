//go:build !unix

package channel

import (
	"context"
	"net"
)

func listenPacket(ctx context.Context, network, address string) (net.PacketConn, error) {
	var lc net.ListenConfig
	return lc.ListenPacket(ctx, network, address)
}
