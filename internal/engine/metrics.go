package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	actionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warsim_actions_total",
			Help: "Total tactical actions applied",
		},
		[]string{"action", "faction"},
	)
	opponentMoves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warsim_opponent_moves_total",
			Help: "Total moves taken by the autonomous opponent",
		},
		[]string{"role"},
	)
	opponentEnabled = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "warsim_opponent_enabled",
			Help: "Whether the autonomous opponent is active (1) or not (0)",
		},
	)
	compromisedAssets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "warsim_compromised_assets",
			Help: "Number of assets currently compromised",
		},
	)
	resetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warsim_resets_total",
			Help: "Total session resets",
		},
	)
)

func init() {
	prometheus.MustRegister(actionsTotal)
	prometheus.MustRegister(opponentMoves)
	prometheus.MustRegister(opponentEnabled)
	prometheus.MustRegister(compromisedAssets)
	prometheus.MustRegister(resetsTotal)
}
