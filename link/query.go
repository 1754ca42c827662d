package link

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/encodeous/strand/protocol"
	"github.com/encodeous/strand/state"
)

// Query asks the daemon listening on path for the next hop towards dst, the way the data plane would.
func Query(ctx context.Context, path string, dst state.Address, timeout time.Duration) (state.Address, error) {
	d := net.Dialer{Timeout: timeout}
	nc, err := d.DialContext(ctx, Network, path)
	if err != nil {
		return state.Unknown, fmt.Errorf("dial %s: %w", path, err)
	}
	c := newConn(nc, false)
	defer c.Close()

	err = nc.SetDeadline(time.Now().Add(timeout))
	if err != nil {
		return state.Unknown, err
	}
	err = c.WriteMsg(protocol.EncodeQuery(dst))
	if err != nil {
		return state.Unknown, fmt.Errorf("send query: %w", err)
	}
	b, err := c.ReadMsg()
	if err != nil {
		return state.Unknown, fmt.Errorf("read reply: %w", err)
	}
	return protocol.DecodeReply(b)
}
