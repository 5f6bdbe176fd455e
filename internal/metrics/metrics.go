package metrics

import (
	"github.com/genricoloni/tunecord/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Artwork cache
	ArtworkCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunecord_artwork_cache_hits_total",
			Help: "Artwork resolutions served from a cache tier",
		},
		[]string{"tier"}, // "memory", "disk"
	)

	ArtworkLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunecord_artwork_lookups_total",
			Help: "External artwork lookups by outcome",
		},
		[]string{"result"}, // "found", "not_found", "error", "rejected"
	)

	ArtworkMemoryEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tunecord_artwork_memory_entries",
			Help: "Entries currently held in the in-process artwork tier",
		},
	)

	// Presence connection
	PresenceCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunecord_presence_commands_total",
			Help: "Commands processed by the presence connection worker",
		},
		[]string{"command"},
	)

	PresencePushFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tunecord_presence_push_failures_total",
			Help: "Activity pushes rejected by the broker or lost with the session",
		},
	)

	PresenceReconnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunecord_presence_reconnect_attempts_total",
			Help: "Connection attempts against the presence broker",
		},
		[]string{"result"}, // "success", "failure"
	)

	PresenceConnectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tunecord_presence_connection_state",
			Help: "0 = disconnected, 1 = connecting, 2 = connected, 3 = error",
		},
	)

	// Sync loop
	SyncCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunecord_sync_cycles_total",
			Help: "Poll cycles by outcome",
		},
		[]string{"outcome"}, // "unchanged", "changed", "resumed"
	)
)

// RecordConnectionState updates the connection gauge.
func RecordConnectionState(state domain.ConnectionState) {
	PresenceConnectionState.Set(stateToFloat(state))
}

func stateToFloat(state domain.ConnectionState) float64 {
	switch state {
	case domain.StateConnecting:
		return 1
	case domain.StateConnected:
		return 2
	case domain.StateError:
		return 3
	default:
		return 0
	}
}
