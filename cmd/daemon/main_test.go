package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/genricoloni/tunecord/internal/api"
	"github.com/genricoloni/tunecord/internal/config"
	"github.com/genricoloni/tunecord/internal/domain"
	"github.com/genricoloni/tunecord/internal/engine"
	"github.com/genricoloni/tunecord/internal/presence"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// isolate points every file the daemon touches at a temp dir and turns the
// local API off.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TUNECORD_CACHE_PATH", filepath.Join(dir, "art-cache.json"))
	t.Setenv("TUNECORD_PREFERENCES_PATH", filepath.Join(dir, "config.json"))
	t.Setenv("TUNECORD_HTTP_ADDR", "off")
	t.Setenv("TUNECORD_DEBUG", "false")
}

// TestAppGraphValidity verifies that the dependency graph is resolvable.
// This test will fail if you forget an fx.Provide for a required interface.
func TestAppGraphValidity(t *testing.T) {
	// fx.ValidateApp checks that there are no missing or cyclic dependencies
	err := fx.ValidateApp(AppOptions)

	if err != nil {
		t.Errorf("Dependency graph is not valid: %v", err)
	}
}

// TestNewLogger specifically verifies the logger configuration
func TestNewLogger(t *testing.T) {
	tests := []struct {
		name  string
		debug string
		want  bool
	}{
		{"Production", "false", false},
		{"Debug", "true", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TUNECORD_DEBUG", tt.debug)

			logger, err := newLogger()
			if err != nil {
				t.Fatalf("Failed to create logger: %v", err)
			}
			if logger == nil {
				t.Fatal("Logger should not be nil")
			}
			if got := logger.Core().Enabled(-1); got != tt.want {
				t.Errorf("debug enabled: expected %v, got %v", tt.want, got)
			}
			logger.Info("Test logger initialization")
		})
	}
}

// TestEndToEndStartup tries a real startup/stop in a controlled environment
// We use fx.NopLogger to avoid cluttering test output
func TestEndToEndStartup(t *testing.T) {
	isolate(t)

	app := fx.New(
		AppOptions,
		fx.NopLogger, // Silence Fx logs during tests
	)

	// Verify that the app can start without errors
	if err := app.Start(t.Context()); err != nil {
		t.Fatalf("App failed to start: %v", err)
	}

	// Verify that the app can stop without errors
	if err := app.Stop(t.Context()); err != nil {
		t.Fatalf("App failed to stop: %v", err)
	}
}

type closingSource struct {
	closed bool
}

func (s *closingSource) Poll(context.Context) (domain.TrackSnapshot, error) {
	return domain.TrackSnapshot{}, domain.ErrPlayerNotRunning
}

func (s *closingSource) Close() error {
	s.closed = true
	return nil
}

func TestStopSteps_Order(t *testing.T) {
	isolate(t)
	logger := zap.NewNop()

	cfg, err := config.NewAppConfig(logger)
	if err != nil {
		t.Fatalf("NewAppConfig: %v", err)
	}
	prefs := config.NewPreferencesStore(logger, cfg)
	conn := presence.NewConnection(logger, nil, presence.DefaultSettings())
	source := &closingSource{}
	loop := engine.NewSyncLoop(logger, source, nil, conn, prefs)
	server := api.NewServer(logger, cfg, loop, conn, prefs, prefs)

	steps := stopSteps(loop, server, conn, prefs, source)

	want := []string{"sync loop", "api", "presence", "preferences", "track source"}
	if len(steps) != len(want) {
		t.Fatalf("expected %d steps, got %d", len(want), len(steps))
	}
	for i, name := range want {
		if steps[i].name != name {
			t.Errorf("step %d: expected %q, got %q", i, name, steps[i].name)
		}
	}

	if err := runStopSteps(t.Context(), logger, steps); err != nil {
		t.Fatalf("stopping idle components: %v", err)
	}
	if !source.closed {
		t.Error("track source was not closed")
	}
}

func TestRunStopSteps_ContinuesAfterFailure(t *testing.T) {
	var ran []string
	step := func(name string, err error) stopStep {
		return stopStep{name: name, stop: func(context.Context) error {
			ran = append(ran, name)
			return err
		}}
	}

	errA := errors.New("a failed")
	errC := errors.New("c failed")
	err := runStopSteps(t.Context(), zap.NewNop(), []stopStep{
		step("a", errA),
		step("b", nil),
		step("c", errC),
	})

	if len(ran) != 3 || ran[0] != "a" || ran[1] != "b" || ran[2] != "c" {
		t.Errorf("expected steps a, b, c in order, got %v", ran)
	}
	if !errors.Is(err, errA) || !errors.Is(err, errC) {
		t.Errorf("expected both failures combined, got %v", err)
	}
}
