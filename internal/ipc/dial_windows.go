//go:build windows
// +build windows

package ipc

import (
	"context"
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
)

// dialBroker tries the named pipes discord-ipc-0 through discord-ipc-9.
func dialBroker(ctx context.Context) (net.Conn, error) {
	var lastErr error

	for i := 0; i < 10; i++ {
		conn, err := winio.DialPipeContext(ctx, fmt.Sprintf(`\\.\pipe\discord-ipc-%d`, i))
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrBrokerUnavailable, lastErr)
}
