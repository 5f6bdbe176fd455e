package presence

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/genricoloni/tunecord/internal/domain"
	"github.com/genricoloni/tunecord/internal/domain/mocks"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

// fakeTransport is a scriptable broker session.
type fakeTransport struct {
	mu         sync.Mutex
	connectOK  bool
	connects   int
	setFails   int
	activities []domain.Activity
	clears     int
	closes     int
}

func (f *fakeTransport) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if !f.connectOK {
		return errors.New("broker not running")
	}
	return nil
}

func (f *fakeTransport) SetActivity(_ context.Context, a domain.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setFails > 0 {
		f.setFails--
		return errors.New("broken pipe")
	}
	f.activities = append(f.activities, a)
	return nil
}

func (f *fakeTransport) ClearActivity(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeTransport) allowConnect() {
	f.mu.Lock()
	f.connectOK = true
	f.mu.Unlock()
}

func (f *fakeTransport) snapshot() (connects int, activities []domain.Activity, closes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects, append([]domain.Activity(nil), f.activities...), f.closes
}

func testSettings() Settings {
	return Settings{
		StartupSchedule: []time.Duration{20 * time.Millisecond, 20 * time.Millisecond, 20 * time.Millisecond},
		IdleWait:        10 * time.Millisecond,
		BackoffFloor:    10 * time.Millisecond,
		BackoffCeiling:  40 * time.Millisecond,
		CallTimeout:     time.Second,
		QueueSize:       8,
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func track(name string) domain.TrackSnapshot {
	return domain.TrackSnapshot{Name: name, Artist: "Artist", Album: "Album", DurationSecs: 200, IsPlaying: true}
}

var defaultOpts = domain.PresenceOptions{ShowTimestamps: true, ShowAlbumArt: true, DisplayFormat: domain.FormatSongArtist}

func TestConnection_ReplaysLatestAfterConnect(t *testing.T) {
	transport := &fakeTransport{}
	conn := NewConnection(zap.NewNop(), transport, testSettings())
	ctx := context.Background()

	if err := conn.UpdatePlaying(ctx, track("T1"), "", defaultOpts); err != nil {
		t.Fatalf("queue T1: %v", err)
	}
	if err := conn.UpdatePlaying(ctx, track("T2"), "", defaultOpts); err != nil {
		t.Fatalf("queue T2: %v", err)
	}

	conn.Start()
	defer conn.Shutdown(ctx)

	eventually(t, "two failed connects", func() bool {
		connects, _, _ := transport.snapshot()
		return connects >= 2
	})
	transport.allowConnect()

	eventually(t, "replayed activity", func() bool {
		_, activities, _ := transport.snapshot()
		return len(activities) > 0
	})
	time.Sleep(50 * time.Millisecond)

	_, activities, _ := transport.snapshot()
	if len(activities) != 1 {
		t.Fatalf("expected exactly 1 push, got %d", len(activities))
	}
	if activities[0].Details != "T2" {
		t.Errorf("expected replay of T2, got %q", activities[0].Details)
	}
	if got := conn.Status().State; got != domain.StateConnected {
		t.Errorf("expected connected, got %s", got)
	}
}

func TestConnection_ClearDropsPending(t *testing.T) {
	transport := &fakeTransport{}
	conn := NewConnection(zap.NewNop(), transport, testSettings())
	ctx := context.Background()

	_ = conn.UpdatePlaying(ctx, track("T1"), "", defaultOpts)
	_ = conn.ClearPresence(ctx)

	conn.Start()
	defer conn.Shutdown(ctx)

	eventually(t, "first failed connect", func() bool {
		connects, _, _ := transport.snapshot()
		return connects >= 1
	})
	transport.allowConnect()

	eventually(t, "connected", func() bool {
		return conn.Status().State == domain.StateConnected
	})
	time.Sleep(30 * time.Millisecond)

	if _, activities, _ := transport.snapshot(); len(activities) != 0 {
		t.Errorf("nothing should be replayed after a clear, got %d pushes", len(activities))
	}
}

func TestConnection_CommandOrderWhenConnected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	transport := mocks.NewMockPresenceTransport(ctrl)
	gomock.InOrder(
		transport.EXPECT().Connect(gomock.Any()).Return(nil),
		transport.EXPECT().SetActivity(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, a domain.Activity) error {
				if a.Details != "Song" || a.State != "by Artist" {
					t.Errorf("unexpected activity %+v", a)
				}
				return nil
			}),
		transport.EXPECT().ClearActivity(gomock.Any()).Return(nil),
		// Shutdown
		transport.EXPECT().ClearActivity(gomock.Any()).Return(nil),
		transport.EXPECT().Close().Return(nil),
	)

	conn := NewConnection(zap.NewNop(), transport, testSettings())
	conn.Start()

	ctx := context.Background()
	if err := conn.UpdatePlaying(ctx, track("Song"), "", defaultOpts); err != nil {
		t.Fatalf("UpdatePlaying: %v", err)
	}
	if err := conn.ClearPresence(ctx); err != nil {
		t.Fatalf("ClearPresence: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := conn.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if got := conn.Status().State; got != domain.StateDisconnected {
		t.Errorf("expected disconnected after shutdown, got %s", got)
	}
}

func TestConnection_PushFailureReconnectsAndReplays(t *testing.T) {
	transport := &fakeTransport{connectOK: true, setFails: 1}
	conn := NewConnection(zap.NewNop(), transport, testSettings())
	ctx := context.Background()

	conn.Start()
	defer conn.Shutdown(ctx)

	eventually(t, "connected", func() bool {
		return conn.Status().State == domain.StateConnected
	})

	if err := conn.UpdatePlaying(ctx, track("Retry"), "", defaultOpts); err != nil {
		t.Fatalf("UpdatePlaying: %v", err)
	}

	eventually(t, "replay after reconnect", func() bool {
		_, activities, _ := transport.snapshot()
		return len(activities) == 1
	})

	connects, activities, closes := transport.snapshot()
	if activities[0].Details != "Retry" {
		t.Errorf("expected replay of Retry, got %q", activities[0].Details)
	}
	if connects < 2 {
		t.Errorf("expected a reconnect, saw %d connects", connects)
	}
	if closes < 1 {
		t.Error("broken session should be closed")
	}
}

func TestConnection_PushFailurePublishesError(t *testing.T) {
	transport := &fakeTransport{connectOK: true, setFails: 1}
	settings := testSettings()
	settings.BackoffFloor = time.Hour
	settings.BackoffCeiling = time.Hour
	conn := NewConnection(zap.NewNop(), transport, settings)
	ctx := context.Background()

	conn.Start()
	defer conn.Shutdown(ctx)

	eventually(t, "connected", func() bool {
		return conn.Status().State == domain.StateConnected
	})
	_ = conn.UpdatePlaying(ctx, track("Broken"), "", defaultOpts)

	eventually(t, "error status", func() bool {
		return conn.Status().State == domain.StateError
	})
	if msg := conn.Status().Message; !strings.HasPrefix(msg, "Activity update failed:") {
		t.Errorf("unexpected error message %q", msg)
	}
}

func TestConnection_ShutdownDuringStartup(t *testing.T) {
	transport := &fakeTransport{}
	settings := testSettings()
	settings.StartupSchedule = []time.Duration{time.Hour}
	conn := NewConnection(zap.NewNop(), transport, settings)

	conn.Start()
	eventually(t, "first connect attempt", func() bool {
		connects, _, _ := transport.snapshot()
		return connects == 1
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	begin := time.Now()
	if err := conn.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if elapsed := time.Since(begin); elapsed > 500*time.Millisecond {
		t.Errorf("shutdown took %v", elapsed)
	}
	if got := conn.Status().State; got != domain.StateDisconnected {
		t.Errorf("expected disconnected, got %s", got)
	}
}

func TestConnection_CloseTerminatesWorker(t *testing.T) {
	transport := &fakeTransport{connectOK: true}
	conn := NewConnection(zap.NewNop(), transport, testSettings())

	conn.Start()
	eventually(t, "connected", func() bool {
		return conn.Status().State == domain.StateConnected
	})

	conn.Close()

	select {
	case <-conn.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after the queue was closed")
	}

	if err := conn.UpdatePlaying(context.Background(), track("Late"), "", defaultOpts); !errors.Is(err, domain.ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed, got %v", err)
	}
	if _, _, closes := transport.snapshot(); closes != 1 {
		t.Errorf("expected session closed once, got %d", closes)
	}
}

func TestConnection_SendAfterShutdown(t *testing.T) {
	conn := NewConnection(zap.NewNop(), &fakeTransport{connectOK: true}, testSettings())
	conn.Start()

	ctx := context.Background()
	if err := conn.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if err := conn.ClearPresence(ctx); !errors.Is(err, domain.ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed, got %v", err)
	}
}

func TestConnection_ShutdownBeforeStart(t *testing.T) {
	conn := NewConnection(zap.NewNop(), &fakeTransport{}, testSettings())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := conn.Shutdown(ctx); err != nil {
		t.Errorf("expected nil for an unstarted connection, got %v", err)
	}
}

func TestNewConnection_FillsZeroSettings(t *testing.T) {
	def := DefaultSettings()

	tests := []struct {
		name     string
		settings Settings
		idle     time.Duration
		floor    time.Duration
		ceiling  time.Duration
	}{
		{
			name:     "Empty",
			settings: Settings{},
			idle:     def.IdleWait,
			floor:    def.BackoffFloor,
			ceiling:  def.BackoffCeiling,
		},
		{
			name:     "Partial",
			settings: Settings{IdleWait: 5 * time.Millisecond},
			idle:     5 * time.Millisecond,
			floor:    def.BackoffFloor,
			ceiling:  def.BackoffCeiling,
		},
		{
			name:     "Explicit",
			settings: Settings{IdleWait: time.Millisecond, BackoffFloor: 2 * time.Millisecond, BackoffCeiling: 8 * time.Millisecond},
			idle:     time.Millisecond,
			floor:    2 * time.Millisecond,
			ceiling:  8 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConnection(zap.NewNop(), &fakeTransport{}, tt.settings)

			if c.settings.IdleWait != tt.idle {
				t.Errorf("IdleWait: expected %v, got %v", tt.idle, c.settings.IdleWait)
			}
			if c.settings.BackoffFloor != tt.floor || c.settings.BackoffCeiling != tt.ceiling {
				t.Errorf("backoff bounds: expected %v..%v, got %v..%v",
					tt.floor, tt.ceiling, c.settings.BackoffFloor, c.settings.BackoffCeiling)
			}
			if c.settings.QueueSize <= 0 || c.settings.CallTimeout <= 0 {
				t.Errorf("queue and call timeout must be positive, got %d and %v",
					c.settings.QueueSize, c.settings.CallTimeout)
			}

			c.backoff.Fail()
			if got := c.backoff.Current(); got <= 0 {
				t.Errorf("backoff must grow from a positive floor, got %v", got)
			}
		})
	}
}
