package sink

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

const tcpScheme = "tcp://"

// TCP streams raw bytes to a network printer (JetDirect / port 9100).
type TCP struct{}

func (TCP) Send(ctx context.Context, device string, data []byte) error {
	addr := strings.TrimPrefix(strings.ToLower(device), tcpScheme)
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "9100")
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial printer %s: %w", addr, err)
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(dl)
	} else {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	}
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("write printer %s: %w", addr, err)
	}
	return nil
}
