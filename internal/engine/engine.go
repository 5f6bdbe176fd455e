package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/genricoloni/tunecord/internal/domain"
	"github.com/genricoloni/tunecord/internal/metrics"
	"go.uber.org/zap"
)

const (
	// defaultPollTimeout bounds a single track source poll
	defaultPollTimeout = 10 * time.Second

	// suspendTolerance is how far past its deadline a sleep may wake before
	// we assume the machine was suspended
	suspendTolerance = 10 * time.Second
)

// SyncLoop polls the track source and turns meaningful changes into
// presence commands.
type SyncLoop struct {
	logger  *zap.Logger
	source  domain.TrackSource
	artwork domain.ArtworkResolver
	sink    domain.PresenceSink
	prefs   domain.PreferencesStore

	now         func() time.Time
	unit        time.Duration // one poll interval step
	pollTimeout time.Duration
	tolerance   time.Duration

	mu      sync.RWMutex
	current *domain.TrackSnapshot

	// Owned by the loop goroutine
	previous    *domain.TrackSnapshot
	forceChange bool

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
}

var _ domain.TrackReader = (*SyncLoop)(nil)

// NewSyncLoop creates a new sync loop
func NewSyncLoop(
	logger *zap.Logger,
	source domain.TrackSource,
	artwork domain.ArtworkResolver,
	sink domain.PresenceSink,
	prefs domain.PreferencesStore,
) *SyncLoop {
	return &SyncLoop{
		logger:      logger,
		source:      source,
		artwork:     artwork,
		sink:        sink,
		prefs:       prefs,
		now:         time.Now,
		unit:        time.Second,
		pollTimeout: defaultPollTimeout,
		tolerance:   suspendTolerance,
	}
}

// Start launches the loop in a goroutine.
// It returns immediately (non-blocking).
func (s *SyncLoop) Start(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.cancel != nil {
		return nil
	}

	// The start context only bounds startup, so the loop gets its own
	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	s.logger.Info("Sync loop starting...")
	go s.runLoop(loopCtx, s.done)
	return nil
}

// Stop cancels the loop and waits for the current cycle to finish
func (s *SyncLoop) Stop(ctx context.Context) error {
	s.lifecycleMu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.lifecycleMu.Unlock()

	if cancel == nil {
		return nil
	}

	s.logger.Info("Sync loop stopping...")
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CurrentTrack returns the latest observed snapshot, or nil
func (s *SyncLoop) CurrentTrack() *domain.TrackSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil
	}
	snap := *s.current
	return &snap
}

func (s *SyncLoop) runLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		interval := time.Duration(s.prefs.Snapshot().PollInterval()) * s.unit
		began := s.wallClock()

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("Sync loop stopped")
			return
		case <-timer.C:
		}

		if elapsed := s.wallClock().Sub(began); overshot(interval, elapsed, s.tolerance) {
			s.logger.Info("Poll sleep overshot, assuming resume from suspend",
				zap.Duration("expected", interval),
				zap.Duration("elapsed", elapsed))
			s.forceChange = true
		}

		s.cycle(ctx)
	}
}

// wallClock reads the clock without its monotonic reading. The monotonic
// clock stops during suspend, so only wall time shows the gap.
func (s *SyncLoop) wallClock() time.Time {
	return s.now().Round(0)
}

// overshot reports whether a sleep woke far later than asked
func overshot(expected, elapsed, tolerance time.Duration) bool {
	return elapsed > expected+tolerance
}

// cycle runs one poll/diff/dispatch step
func (s *SyncLoop) cycle(ctx context.Context) {
	snap := s.poll(ctx)
	if ctx.Err() != nil {
		return
	}

	s.publish(snap)

	forced := s.forceChange
	changed := forced || domain.TracksDiffer(s.previous, snap)
	s.forceChange = false
	s.previous = snap

	if !changed {
		metrics.SyncCycles.WithLabelValues("unchanged").Inc()
		return
	}

	if forced {
		metrics.SyncCycles.WithLabelValues("resumed").Inc()
	} else {
		metrics.SyncCycles.WithLabelValues("changed").Inc()
	}

	if snap != nil {
		s.logger.Info("Track changed",
			zap.String("track", snap.Name),
			zap.String("artist", snap.Artist),
			zap.String("album", snap.Album),
			zap.Bool("playing", snap.IsPlaying))
	} else {
		s.logger.Info("Nothing playing")
	}

	s.dispatch(ctx, snap, s.prefs.Snapshot())
}

// poll samples the source off the loop goroutine so a stuck OS call cannot
// outlive the timeout or block shutdown.
func (s *SyncLoop) poll(ctx context.Context) *domain.TrackSnapshot {
	pollCtx, cancel := context.WithTimeout(ctx, s.pollTimeout)
	defer cancel()

	type result struct {
		snap domain.TrackSnapshot
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		snap, err := s.source.Poll(pollCtx)
		ch <- result{snap: snap, err: err}
	}()

	var r result
	select {
	case r = <-ch:
	case <-pollCtx.Done():
		if ctx.Err() == nil {
			s.logger.Warn("Track poll timed out", zap.Duration("timeout", s.pollTimeout))
		}
		return nil
	}

	var pollErr *domain.PollError
	switch {
	case r.err == nil:
		return &r.snap
	case errors.Is(r.err, domain.ErrPlayerNotRunning):
		s.logger.Debug("No player running")
	case errors.As(r.err, &pollErr):
		s.logger.Warn("Track poll failed",
			zap.String("kind", string(pollErr.Kind)),
			zap.Error(pollErr.Err))
	default:
		s.logger.Warn("Track poll failed", zap.Error(r.err))
	}
	return nil
}

func (s *SyncLoop) publish(snap *domain.TrackSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = snap
}

// dispatch decides which command the change maps to
func (s *SyncLoop) dispatch(ctx context.Context, snap *domain.TrackSnapshot, prefs domain.Preferences) {
	if !prefs.Enabled {
		s.logger.Debug("Presence disabled, clearing")
		s.send("clear", s.sink.ClearPresence(ctx))
		return
	}

	opts := prefs.Options()

	switch {
	case snap == nil:
		s.send("clear", s.sink.ClearPresence(ctx))

	case snap.IsPlaying:
		artworkURL := s.resolveArtwork(ctx, *snap, prefs)
		s.send("update", s.sink.UpdatePlaying(ctx, *snap, artworkURL, opts))

	case prefs.IdleBehavior == domain.IdleShowPaused:
		artworkURL := s.resolveArtwork(ctx, *snap, prefs)
		s.send("paused", s.sink.SetPaused(ctx, *snap, artworkURL, opts))

	default:
		s.send("clear", s.sink.ClearPresence(ctx))
	}
}

func (s *SyncLoop) resolveArtwork(ctx context.Context, snap domain.TrackSnapshot, prefs domain.Preferences) string {
	if !prefs.ShowAlbumArt {
		return ""
	}
	url, ok := s.artwork.Resolve(ctx, snap.Artist, snap.Album)
	if !ok {
		s.logger.Debug("No artwork found",
			zap.String("artist", snap.Artist),
			zap.String("album", snap.Album))
		return ""
	}
	return url
}

func (s *SyncLoop) send(command string, err error) {
	if err != nil {
		s.logger.Warn("Failed to queue presence command",
			zap.String("command", command),
			zap.Error(err))
	}
}
