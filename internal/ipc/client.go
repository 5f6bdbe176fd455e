package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/genricoloni/tunecord/internal/domain"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNotConnected is returned by activity calls before Connect succeeds
	ErrNotConnected = errors.New("ipc client is not connected")
	// ErrBrokerUnavailable means no broker socket accepted a connection
	ErrBrokerUnavailable = errors.New("presence broker is not running")
)

const (
	cmdSetActivity = "SET_ACTIVITY"
	evtReady       = "READY"
	evtError       = "ERROR"
)

// Client speaks the desktop presence IPC protocol. It is not safe for
// concurrent use; the presence connection worker is its only caller.
type Client struct {
	logger *zap.Logger
	appID  string
	pid    int
	dial   func(ctx context.Context) (net.Conn, error)
	conn   net.Conn
}

var _ domain.PresenceTransport = (*Client)(nil)

// NewClient creates a client for the given application ID.
func NewClient(logger *zap.Logger, appID string) *Client {
	return &Client{
		logger: logger,
		appID:  appID,
		pid:    os.Getpid(),
		dial:   dialBroker,
	}
}

// Connect dials the broker and performs the handshake, replacing any
// previous session.
func (c *Client) Connect(ctx context.Context) error {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	applyDeadline(ctx, conn)

	if err := writeFrame(conn, opHandshake, handshake{Version: 1, ClientID: c.appID}); err != nil {
		conn.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	op, body, err := readFrame(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}
	if op == opClose {
		conn.Close()
		return fmt.Errorf("handshake rejected: %s", closeReason(body))
	}

	var ready response
	if err := json.Unmarshal(body, &ready); err != nil || ready.Evt != evtReady {
		conn.Close()
		return fmt.Errorf("handshake failed: unexpected reply %q", string(body))
	}

	c.conn = conn
	c.logger.Debug("IPC handshake complete", zap.String("appID", c.appID))
	return nil
}

// SetActivity replaces the displayed activity.
func (c *Client) SetActivity(ctx context.Context, a domain.Activity) error {
	return c.sendActivity(ctx, toWire(a))
}

// ClearActivity sends a null activity.
func (c *Client) ClearActivity(ctx context.Context) error {
	return c.sendActivity(ctx, nil)
}

// Close ends the session. Closing an unconnected client is a no-op.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) sendActivity(ctx context.Context, act *activity) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	applyDeadline(ctx, c.conn)

	req := request{
		Cmd:   cmdSetActivity,
		Args:  activityArgs{PID: c.pid, Activity: act},
		Nonce: uuid.NewString(),
	}
	if err := writeFrame(c.conn, opFrame, req); err != nil {
		return err
	}

	for {
		op, body, err := readFrame(c.conn)
		if err != nil {
			return err
		}

		switch op {
		case opPing:
			var echo json.RawMessage
			if len(body) > 0 {
				echo = body
			}
			if err := writeFrame(c.conn, opPong, echo); err != nil {
				return err
			}
			continue
		case opClose:
			return fmt.Errorf("broker closed the session: %s", closeReason(body))
		}

		var resp response
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		if resp.Nonce != "" && resp.Nonce != req.Nonce {
			// Stray event for an earlier command
			continue
		}
		if resp.Evt == evtError {
			var data errorData
			_ = json.Unmarshal(resp.Data, &data)
			return fmt.Errorf("broker rejected activity (code %d): %s", data.Code, data.Message)
		}
		return nil
	}
}

func closeReason(body []byte) string {
	var data errorData
	if err := json.Unmarshal(body, &data); err != nil || data.Message == "" {
		return "no reason given"
	}
	return data.Message
}

// applyDeadline maps the context deadline onto the socket; without one the
// socket blocks.
func applyDeadline(ctx context.Context, conn net.Conn) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	_ = conn.SetDeadline(deadline)
}
