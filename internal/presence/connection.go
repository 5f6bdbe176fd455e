package presence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/genricoloni/tunecord/internal/domain"
	"github.com/genricoloni/tunecord/internal/metrics"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Settings tunes the connection worker's timing.
type Settings struct {
	// StartupSchedule is the wait after each failed initial attempt
	StartupSchedule []time.Duration
	// IdleWait bounds each command wait while connected
	IdleWait time.Duration
	// BackoffFloor and BackoffCeiling bound the reconnect delay
	BackoffFloor   time.Duration
	BackoffCeiling time.Duration
	// CallTimeout bounds every transport call
	CallTimeout time.Duration
	QueueSize   int
}

// DefaultSettings returns the production timings.
func DefaultSettings() Settings {
	return Settings{
		StartupSchedule: []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second, 30 * time.Second},
		IdleWait:        time.Second,
		BackoffFloor:    time.Second,
		BackoffCeiling:  30 * time.Second,
		CallTimeout:     5 * time.Second,
		QueueSize:       32,
	}
}

// withDefaults fills unset timings so no wait can collapse to zero.
func withDefaults(s Settings) Settings {
	def := DefaultSettings()
	if s.QueueSize <= 0 {
		s.QueueSize = def.QueueSize
	}
	if s.CallTimeout <= 0 {
		s.CallTimeout = def.CallTimeout
	}
	if s.IdleWait <= 0 {
		s.IdleWait = def.IdleWait
	}
	if s.BackoffFloor <= 0 {
		s.BackoffFloor = def.BackoffFloor
	}
	if s.BackoffCeiling <= 0 {
		s.BackoffCeiling = def.BackoffCeiling
	}
	return s
}

type commandKind int

const (
	cmdUpdatePlaying commandKind = iota
	cmdSetPaused
	cmdClearPresence
	cmdShutdown
)

func (k commandKind) String() string {
	switch k {
	case cmdUpdatePlaying:
		return "update_playing"
	case cmdSetPaused:
		return "set_paused"
	case cmdClearPresence:
		return "clear_presence"
	default:
		return "shutdown"
	}
}

type command struct {
	kind       commandKind
	track      domain.TrackSnapshot
	artworkURL string
	opts       domain.PresenceOptions
}

// desiredState is the last thing we were asked to display, kept for replay.
type desiredState struct {
	framing    Framing
	track      domain.TrackSnapshot
	artworkURL string
	opts       domain.PresenceOptions
}

// Connection owns the broker session. A single worker goroutine consumes the
// command queue and is the only code touching the transport.
type Connection struct {
	logger    *zap.Logger
	transport domain.PresenceTransport
	settings  Settings
	now       func() time.Time

	cmds      chan command
	done      chan struct{}
	startOnce sync.Once
	started   bool

	sendMu sync.Mutex
	closed bool

	statusMu sync.RWMutex
	status   domain.ConnectionStatus

	// Owned by the worker goroutine
	connected bool
	pending   *desiredState
	backoff   *Backoff
}

// NewConnection creates an idle connection; call Start to launch the worker.
func NewConnection(logger *zap.Logger, transport domain.PresenceTransport, settings Settings) *Connection {
	settings = withDefaults(settings)

	return &Connection{
		logger:    logger,
		transport: transport,
		settings:  settings,
		now:       time.Now,
		cmds:      make(chan command, settings.QueueSize),
		done:      make(chan struct{}),
		status:    domain.ConnectionStatus{State: domain.StateDisconnected},
		backoff:   NewBackoff(settings.BackoffFloor, settings.BackoffCeiling),
	}
}

// Start launches the worker. Later calls are no-ops.
func (c *Connection) Start() {
	c.startOnce.Do(func() {
		c.sendMu.Lock()
		c.started = true
		c.sendMu.Unlock()
		go c.run()
	})
}

// Status returns the last published status.
func (c *Connection) Status() domain.ConnectionStatus {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.status
}

// UpdatePlaying queues a "now playing" presence.
func (c *Connection) UpdatePlaying(ctx context.Context, track domain.TrackSnapshot, artworkURL string, opts domain.PresenceOptions) error {
	return c.send(ctx, command{kind: cmdUpdatePlaying, track: track, artworkURL: artworkURL, opts: opts})
}

// SetPaused queues a paused presence.
func (c *Connection) SetPaused(ctx context.Context, track domain.TrackSnapshot, artworkURL string, opts domain.PresenceOptions) error {
	return c.send(ctx, command{kind: cmdSetPaused, track: track, artworkURL: artworkURL, opts: opts})
}

// ClearPresence queues removal of the presence.
func (c *Connection) ClearPresence(ctx context.Context) error {
	return c.send(ctx, command{kind: cmdClearPresence})
}

// Shutdown asks the worker to clean up and waits for it to exit.
func (c *Connection) Shutdown(ctx context.Context) error {
	c.sendMu.Lock()
	started := c.started
	c.sendMu.Unlock()
	if !started {
		return nil
	}

	if err := c.send(ctx, command{kind: cmdShutdown}); err != nil && !errors.Is(err, domain.ErrQueueClosed) {
		return err
	}

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the command queue. The worker treats it like Shutdown.
func (c *Connection) Close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.cmds)
	}
}

// Done is closed once the worker has exited.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

func (c *Connection) send(ctx context.Context, cmd command) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return domain.ErrQueueClosed
	}
	select {
	case <-c.done:
		return domain.ErrQueueClosed
	default:
	}

	select {
	case c.cmds <- cmd:
		return nil
	case <-c.done:
		return domain.ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Connection) run() {
	defer close(c.done)

	if !c.startup() {
		return
	}

	for {
		wait := c.settings.IdleWait
		if !c.connected {
			wait = c.backoff.Current()
		}
		timer := time.NewTimer(wait)

		select {
		case cmd, ok := <-c.cmds:
			timer.Stop()
			if !ok {
				c.logger.Info("Presence command queue closed")
				c.shutdown()
				return
			}
			if c.handle(cmd) {
				return
			}
		case <-timer.C:
			if !c.connected {
				c.reconnect()
			}
		}
	}
}

// startup runs the initial connection schedule. It returns false when the
// worker was told to stop while waiting.
func (c *Connection) startup() bool {
	c.publish(domain.ConnectionStatus{State: domain.StateConnecting})

	for i, delay := range c.settings.StartupSchedule {
		if c.tryConnect() {
			c.connected = true
			c.publish(domain.ConnectionStatus{State: domain.StateConnected})
			c.logger.Info("Presence broker connected")
			c.replay()
			return true
		}

		c.logger.Warn("Presence connect attempt failed",
			zap.Int("attempt", i+1),
			zap.Duration("retryIn", delay))

		if !c.drainFor(delay) {
			return false
		}
	}

	c.publish(domain.ConnectionStatus{State: domain.StateDisconnected})
	c.logger.Warn("Initial presence connection failed, retrying in background")
	return true
}

// drainFor keeps the latest desired state up to date for d. It returns
// false if a shutdown arrived.
func (c *Connection) drainFor(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case cmd, ok := <-c.cmds:
			if !ok || cmd.kind == cmdShutdown {
				c.publish(domain.ConnectionStatus{State: domain.StateDisconnected})
				return false
			}
			metrics.PresenceCommands.WithLabelValues(cmd.kind.String()).Inc()
			c.record(cmd)
		case <-timer.C:
			return true
		}
	}
}

// record updates the replay state from a command.
func (c *Connection) record(cmd command) {
	switch cmd.kind {
	case cmdUpdatePlaying:
		c.pending = &desiredState{framing: FramePlaying, track: cmd.track, artworkURL: cmd.artworkURL, opts: cmd.opts}
	case cmdSetPaused:
		c.pending = &desiredState{framing: FramePaused, track: cmd.track, artworkURL: cmd.artworkURL, opts: cmd.opts}
	case cmdClearPresence:
		c.pending = nil
	}
}

// handle processes one steady-state command. It returns true once the
// worker must exit.
func (c *Connection) handle(cmd command) bool {
	metrics.PresenceCommands.WithLabelValues(cmd.kind.String()).Inc()

	switch cmd.kind {
	case cmdUpdatePlaying, cmdSetPaused:
		c.record(cmd)
		if c.connected {
			if err := c.push(*c.pending); err != nil {
				c.markFailed(err)
			}
		}
	case cmdClearPresence:
		c.record(cmd)
		if c.connected {
			ctx, cancel := c.callContext()
			err := c.transport.ClearActivity(ctx)
			cancel()
			if err != nil {
				c.logger.Warn("Failed to clear presence", zap.Error(err))
			}
		}
	case cmdShutdown:
		c.shutdown()
		return true
	}

	return false
}

func (c *Connection) reconnect() {
	c.publish(domain.ConnectionStatus{State: domain.StateConnecting})

	if !c.tryConnect() {
		c.backoff.Fail()
		c.publish(domain.ConnectionStatus{State: domain.StateDisconnected})
		c.logger.Debug("Presence reconnect failed", zap.Duration("nextAttempt", c.backoff.Current()))
		return
	}

	c.connected = true
	c.backoff.Reset()
	c.publish(domain.ConnectionStatus{State: domain.StateConnected})
	c.logger.Info("Presence broker reconnected")
	c.replay()
}

func (c *Connection) tryConnect() bool {
	ctx, cancel := c.callContext()
	defer cancel()

	if err := c.transport.Connect(ctx); err != nil {
		metrics.PresenceReconnectAttempts.WithLabelValues("failure").Inc()
		c.logger.Debug("Presence connect failed", zap.Error(err))
		return false
	}
	metrics.PresenceReconnectAttempts.WithLabelValues("success").Inc()
	return true
}

// replay pushes the pending desired state after a (re)connect.
func (c *Connection) replay() {
	if c.pending == nil {
		return
	}
	if err := c.push(*c.pending); err != nil {
		c.logger.Warn("Failed to replay presence", zap.Error(err))
		c.markFailed(err)
	}
}

func (c *Connection) push(state desiredState) error {
	activity := BuildActivity(state.framing, state.track, state.artworkURL, state.opts, c.now())

	ctx, cancel := c.callContext()
	defer cancel()

	if err := c.transport.SetActivity(ctx, activity); err != nil {
		return err
	}

	c.logger.Debug("Presence updated",
		zap.String("framing", state.framing.String()),
		zap.String("track", state.track.Name),
		zap.String("artist", state.track.Artist))
	return nil
}

// markFailed drops the session after a failed push; the next wait cycle
// drives reconnection.
func (c *Connection) markFailed(err error) {
	metrics.PresencePushFailures.Inc()
	c.logger.Warn("Failed to set presence activity", zap.Error(err))

	c.connected = false
	if closeErr := c.transport.Close(); closeErr != nil {
		c.logger.Debug("Failed to close broken session", zap.Error(closeErr))
	}
	c.publish(domain.ConnectionStatus{
		State:   domain.StateError,
		Message: fmt.Sprintf("Activity update failed: %v", err),
	})
}

// shutdown is the terminal transition.
func (c *Connection) shutdown() {
	var err error
	if c.connected {
		ctx, cancel := c.callContext()
		err = multierr.Append(err, c.transport.ClearActivity(ctx))
		cancel()
	}
	err = multierr.Append(err, c.transport.Close())
	if err != nil {
		c.logger.Debug("Presence cleanup incomplete", zap.Error(err))
	}

	c.connected = false
	c.publish(domain.ConnectionStatus{State: domain.StateDisconnected})
	c.logger.Info("Presence connection shut down")
}

func (c *Connection) publish(status domain.ConnectionStatus) {
	c.statusMu.Lock()
	c.status = status
	c.statusMu.Unlock()

	metrics.RecordConnectionState(status.State)
}

func (c *Connection) callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.settings.CallTimeout)
}
