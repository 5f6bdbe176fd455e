package executor

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by runners on platforms without a scripting host.
var ErrUnsupported = errors.New("script execution is not supported on this platform")

// ScriptRunner executes a player automation script and returns its trimmed
// standard output.
type ScriptRunner interface {
	Run(ctx context.Context, script string) (string, error)
}
