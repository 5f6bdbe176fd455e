//go:build !windows
// +build !windows

package ipc

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// Sandboxed clients expose their socket below the runtime directory.
var socketSubdirs = []string{"", "app/com.discordapp.Discord", "snap.discord"}

func socketDirs() []string {
	var dirs []string
	for _, env := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if dir := os.Getenv(env); dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return append(dirs, "/tmp")
}

// dialBroker tries discord-ipc-0 through discord-ipc-9 in every candidate
// directory and returns the first socket that accepts.
func dialBroker(ctx context.Context) (net.Conn, error) {
	var dialer net.Dialer
	var lastErr error

	for _, dir := range socketDirs() {
		for _, sub := range socketSubdirs {
			for i := 0; i < 10; i++ {
				path := filepath.Join(dir, sub, fmt.Sprintf("discord-ipc-%d", i))
				conn, err := dialer.DialContext(ctx, "unix", path)
				if err == nil {
					return conn, nil
				}
				lastErr = err
				if ctx.Err() != nil {
					return nil, fmt.Errorf("%w: %v", ErrBrokerUnavailable, ctx.Err())
				}
			}
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrBrokerUnavailable, lastErr)
}
