// Package metrics registers the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DailySongsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "daily_songs_submitted_total",
			Help: "Total number of songs of the day submitted",
		},
	)

	ResetSweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reset_sweep_runs_total",
			Help: "Total number of reset sweep runs by outcome",
		},
		[]string{"outcome"}, // "success", "error"
	)

	ResetSweepDeactivated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reset_sweep_deactivated_total",
			Help: "Total number of songs deactivated by the reset sweep",
		},
	)

	ResetSweepLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reset_sweep_last_success_timestamp_seconds",
			Help: "Unix time of the last successful reset sweep",
		},
	)

	FollowMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "follow_mutations_total",
			Help: "Total number of follow graph changes",
		},
		[]string{"action"}, // "follow", "unfollow"
	)

	AlbumArtLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_art_lookups_total",
			Help: "Total number of album art lookups by result",
		},
		[]string{"result"}, // "found", "not_found", "error", "disabled"
	)

	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploads_total",
			Help: "Total number of media uploads by outcome",
		},
		[]string{"outcome"}, // "stored", "rejected"
	)
)
