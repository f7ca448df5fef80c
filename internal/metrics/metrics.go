// Package metrics provides the centralized Prometheus metrics registry for the decision pipeline.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "oddsedge"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	StakesSizedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stakes_sized_total",
		Help:      "Total number of stake recommendations by kind",
	}, []string{"kind"})
	BetsSettledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bets_settled_total",
		Help:      "Total number of settled bets by result",
	}, []string{"result"})
	HaltsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "halts_total",
		Help:      "Total number of betting halts by reason",
	}, []string{"reason"})
	RatingUpdatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rating_updates_total",
		Help:      "Total number of match results applied to the rating state",
	})
)

// Gauge metrics
var (
	CurrentBankroll = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "current_bankroll",
		Help:      "Current bankroll in currency units",
	})
	DailyPnL = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "daily_pnl",
		Help:      "Daily profit and loss",
	})
	Drawdown = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "drawdown_ratio",
		Help:      "Current drawdown from peak balance",
	})
	KellyMultiplier = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "kelly_multiplier",
		Help:      "Adaptive Kelly multiplier currently applied",
	})
	Halted = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "halted",
		Help:      "1 while betting is halted",
	})
	OpenExposure = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "open_exposure",
		Help:      "Stake placed and not yet settled",
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register bankroll metrics
		registry.MustRegister(StakesSizedTotal)
		registry.MustRegister(BetsSettledTotal)
		registry.MustRegister(HaltsTotal)
		registry.MustRegister(RatingUpdatesTotal)
		registry.MustRegister(CurrentBankroll)
		registry.MustRegister(DailyPnL)
		registry.MustRegister(Drawdown)
		registry.MustRegister(KellyMultiplier)
		registry.MustRegister(Halted)
		registry.MustRegister(OpenExposure)

		// Register value detection metrics
		registry.MustRegister(SignalsTotal)
		registry.MustRegister(RejectionsTotal)
		registry.MustRegister(ExpressCombosTotal)
		registry.MustRegister(SystemBetsTotal)
		registry.MustRegister(LineMovementsTotal)
		registry.MustRegister(FairOddsFallbacksTotal)
		registry.MustRegister(ConsensusCacheTotal)
		registry.MustRegister(ScanFailuresTotal)
		registry.MustRegister(ScanDuration)
		registry.MustRegister(SignalEdge)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordStakeSized records a stake recommendation ("single", "express" or "system").
func RecordStakeSized(kind string) {
	StakesSizedTotal.WithLabelValues(kind).Inc()
}

// RecordBetSettled records a settlement by result.
func RecordBetSettled(result string) {
	BetsSettledTotal.WithLabelValues(result).Inc()
}

// RecordHalt records a halt and raises the halted gauge.
func RecordHalt(reason string) {
	HaltsTotal.WithLabelValues(reason).Inc()
	Halted.Set(1)
}

// RecordResume lowers the halted gauge.
func RecordResume() {
	Halted.Set(0)
}

// RecordRatingUpdate records a match result applied to ratings.
func RecordRatingUpdate() {
	RatingUpdatesTotal.Inc()
}

// UpdateBankroll updates the bankroll gauges in one call.
func UpdateBankroll(balance, dailyPnL, drawdown, multiplier float64) {
	CurrentBankroll.Set(balance)
	DailyPnL.Set(dailyPnL)
	Drawdown.Set(drawdown)
	KellyMultiplier.Set(multiplier)
}

// UpdateOpenExposure sets the unsettled stake gauge.
func UpdateOpenExposure(amount float64) {
	OpenExposure.Set(amount)
}
