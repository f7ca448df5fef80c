// Package metrics defines value-detection metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Value detection counter vectors
var (
	SignalsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signals_total",
		Help:      "Total number of value signals emitted by market and confidence",
	}, []string{"market", "confidence"})

	RejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signal_rejections_total",
		Help:      "Total number of value candidates rejected by gate",
	}, []string{"gate"})

	ExpressCombosTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "express_combos_total",
		Help:      "Total number of express combos kept after discounting",
	})

	SystemBetsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "system_bets_total",
		Help:      "Total number of system bets built",
	})

	LineMovementsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "line_movements_total",
		Help:      "Total number of price moves beyond the threshold by direction",
	}, []string{"direction", "steam"})

	FairOddsFallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fair_odds_fallbacks_total",
		Help:      "Total number of de-margining fallbacks by failing method",
	}, []string{"method"})

	ConsensusCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "consensus_cache_total",
		Help:      "Consensus fair odds cache lookups by result",
	}, []string{"result"})

	ScanFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scan_failures_total",
		Help:      "Total number of fixture or market evaluations that failed during a scan",
	}, []string{"kind"})
)

// Value detection histograms
var (
	ScanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scan_duration_seconds",
		Help:      "Duration of a full value scan in seconds",
		Buckets:   prometheus.DefBuckets,
	})

	SignalEdge = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "signal_edge",
		Help:      "Edge of emitted value signals",
		Buckets:   []float64{0.02, 0.04, 0.06, 0.08, 0.10, 0.15, 0.20, 0.30, 0.45, 0.60},
	}, []string{"market"})
)

// RecordSignal records an emitted signal.
func RecordSignal(market, confidence string, edge float64) {
	SignalsTotal.WithLabelValues(market, confidence).Inc()
	SignalEdge.WithLabelValues(market).Observe(edge)
}

// RecordRejection records a candidate failing the named gate.
func RecordRejection(gate string) {
	RejectionsTotal.WithLabelValues(gate).Inc()
}

// RecordExpressCombos records kept express combos.
func RecordExpressCombos(count int) {
	ExpressCombosTotal.Add(float64(count))
}

// RecordSystemBets records built system bets.
func RecordSystemBets(count int) {
	SystemBetsTotal.Add(float64(count))
}

// RecordLineMovement records a price move between two quote refreshes.
func RecordLineMovement(direction string, steam bool) {
	label := "false"
	if steam {
		label = "true"
	}
	LineMovementsTotal.WithLabelValues(direction, label).Inc()
}

// RecordFairOddsFallback records a de-margining method that fell back.
func RecordFairOddsFallback(method string) {
	FairOddsFallbacksTotal.WithLabelValues(method).Inc()
}

// RecordConsensusCache records a consensus cache hit or miss.
func RecordConsensusCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	ConsensusCacheTotal.WithLabelValues(result).Inc()
}

// RecordScanFailure records a failed fixture or market evaluation.
func RecordScanFailure(kind string) {
	ScanFailuresTotal.WithLabelValues(kind).Inc()
}

// RecordScanDuration records a scan's wall time.
func RecordScanDuration(durationSeconds float64) {
	ScanDuration.Observe(durationSeconds)
}
