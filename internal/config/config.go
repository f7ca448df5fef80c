// Package config provides configuration management for the oddsedge decision pipeline.
package config

// Config represents the complete application configuration.
// All values are read once at construction and never mutated mid-run.
type Config struct {
	App       AppConfig       `mapstructure:"app" validate:"required"`
	Rating    RatingConfig    `mapstructure:"rating" validate:"required"`
	Scoreline ScorelineConfig `mapstructure:"scoreline" validate:"required"`
	FairOdds  FairOddsConfig  `mapstructure:"fair_odds" validate:"required"`
	Ensemble  EnsembleConfig  `mapstructure:"ensemble" validate:"required"`
	Value     ValueConfig     `mapstructure:"value" validate:"required"`
	Express   ExpressConfig   `mapstructure:"express" validate:"required"`
	System    SystemConfig    `mapstructure:"system" validate:"required"`
	Bankroll  BankrollConfig  `mapstructure:"bankroll" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Metrics   MetricsConfig   `mapstructure:"metrics" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// RatingConfig holds Elo constants and the time-decay used when estimating strengths
type RatingConfig struct {
	EloInitial       float64 `mapstructure:"elo_initial" validate:"gt=0"`
	EloKFactor       float64 `mapstructure:"elo_k_factor" validate:"gt=0"`
	EloHomeAdvantage float64 `mapstructure:"elo_home_advantage" validate:"gte=0"`
	DrawBase         float64 `mapstructure:"draw_base" validate:"gt=0,lt=1"`
	DrawFloor        float64 `mapstructure:"draw_floor" validate:"gte=0,lt=1"`
	DrawScale        float64 `mapstructure:"draw_scale" validate:"gt=0"`
	TimeDecayXi      float64 `mapstructure:"time_decay_xi" validate:"gte=0"`
}

// ScorelineConfig holds the Dixon-Coles inference constants
type ScorelineConfig struct {
	HomeAdvantage float64 `mapstructure:"home_advantage" validate:"gt=1"`
	Rho           float64 `mapstructure:"rho" validate:"gte=-1,lte=1"`
	MaxGoals      int     `mapstructure:"max_goals" validate:"min=1,max=20"`
}

// FairOddsConfig selects the de-margining method and its root-finder contract
type FairOddsConfig struct {
	Method              string  `mapstructure:"method" validate:"required,fairmethod"`
	MaxIterations       int     `mapstructure:"max_iterations" validate:"gt=0"`
	Tolerance           float64 `mapstructure:"tolerance" validate:"gt=0,lt=1"`
	ReferenceBook       string  `mapstructure:"reference_book"`
	ConsensusTTLSeconds int     `mapstructure:"consensus_ttl_seconds" validate:"gt=0"`
}

// EnsembleConfig holds the blend weights; they must sum to 1
type EnsembleConfig struct {
	Weights WeightsConfig `mapstructure:"weights" validate:"required"`
}

// WeightsConfig names one weight per model slot
type WeightsConfig struct {
	DixonColes float64 `mapstructure:"dixon_coles" validate:"gte=0,lte=1"`
	Elo        float64 `mapstructure:"elo" validate:"gte=0,lte=1"`
	Market     float64 `mapstructure:"market" validate:"gte=0,lte=1"`
	External   float64 `mapstructure:"external" validate:"gte=0,lte=1"`
}

// Sum returns the total of all slot weights.
func (w WeightsConfig) Sum() float64 {
	return w.DixonColes + w.Elo + w.Market + w.External
}

// ValueConfig holds single-leg value detection thresholds
type ValueConfig struct {
	Markets          []string `mapstructure:"markets" validate:"required,min=1,dive,market"`
	MinValueEdge     float64  `mapstructure:"min_value_edge" validate:"gte=0"`
	ConfirmEdge      float64  `mapstructure:"confirm_edge" validate:"gte=0"`
	MinConfirmations int      `mapstructure:"min_confirmations" validate:"min=1,max=3"`
	MinConfirmedEdge float64  `mapstructure:"min_confirmed_edge" validate:"gte=0"`
	MaxValueEdge     float64  `mapstructure:"max_value_edge" validate:"gt=0"`
	MinOdds          float64  `mapstructure:"min_odds" validate:"gt=1"`
	MaxOdds          float64  `mapstructure:"max_odds" validate:"gt=1"`
	MinBookmakers    int      `mapstructure:"min_bookmakers" validate:"min=1"`
	SharpBook        string   `mapstructure:"sharp_book"`
	SharpGap         float64  `mapstructure:"sharp_gap" validate:"gte=0,lt=1"`
	Workers          int      `mapstructure:"workers" validate:"min=1"`

	// LineMoveThreshold is the relative price change reported between two
	// quote refreshes; SteamBooks is how many books must shorten together
	// for a move to count as steam.
	LineMoveThreshold float64 `mapstructure:"line_move_threshold" validate:"gt=0,lt=1"`
	SteamBooks        int     `mapstructure:"steam_books" validate:"min=1"`
}

// ExpressConfig holds accumulator construction and correlation discount constants
type ExpressConfig struct {
	MinLegs            int     `mapstructure:"min_legs" validate:"min=2"`
	MaxLegs            int     `mapstructure:"max_legs" validate:"min=2,max=8"`
	PoolLimit          int     `mapstructure:"pool_limit" validate:"min=2"`
	MaxCombos          int     `mapstructure:"max_combos" validate:"min=1"`
	MinLegProbability  float64 `mapstructure:"min_leg_probability" validate:"gte=0,lte=1"`
	MaxLegOdds         float64 `mapstructure:"max_leg_odds" validate:"gt=1"`
	MaxTotalOdds       float64 `mapstructure:"max_total_odds" validate:"gt=1"`
	LegCountDiscount   float64 `mapstructure:"leg_count_discount" validate:"gt=0,lte=1"`
	SameLeagueDiscount float64 `mapstructure:"same_league_discount" validate:"gt=0,lte=1"`
	SameDayDiscount    float64 `mapstructure:"same_day_discount" validate:"gt=0,lte=1"`
	ConfirmedOnly      bool    `mapstructure:"confirmed_only"`
}

// SystemShape is one "size from legs" system, e.g. 2 from 3
type SystemShape struct {
	Legs int `mapstructure:"legs" validate:"min=3,max=8"`
	Size int `mapstructure:"size" validate:"min=2"`
}

// SystemConfig holds system bet construction constants
type SystemConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Shapes            []SystemShape `mapstructure:"shapes" validate:"dive"`
	MinLegProbability float64       `mapstructure:"min_leg_probability" validate:"gte=0,lte=1"`
	MinExpectedEdge   float64       `mapstructure:"min_expected_edge"`
}

// StreakTier reduces the Kelly multiplier once the losing streak reaches MinLosses
type StreakTier struct {
	MinLosses  int     `mapstructure:"min_losses" validate:"min=1"`
	Multiplier float64 `mapstructure:"multiplier" validate:"gt=0,lte=1"`
}

// DrawdownTier reduces the Kelly multiplier once drawdown exceeds Above
type DrawdownTier struct {
	Above      float64 `mapstructure:"above" validate:"gt=0,lt=1"`
	Multiplier float64 `mapstructure:"multiplier" validate:"gt=0,lte=1"`
}

// BankrollConfig holds staking and stop-loss configuration
type BankrollConfig struct {
	KellyFraction        float64        `mapstructure:"kelly_fraction" validate:"gt=0,lte=1"`
	MaxBetFraction       float64        `mapstructure:"max_bet_fraction" validate:"gt=0,lte=1"`
	MaxExpressFraction   float64        `mapstructure:"max_express_fraction" validate:"gt=0,lte=1"`
	MaxSystemFraction    float64        `mapstructure:"max_system_fraction" validate:"gt=0,lte=1"`
	MaxOpenExposure      float64        `mapstructure:"max_open_exposure" validate:"gt=0,lte=1"`
	ExpressKellyScale    float64        `mapstructure:"express_kelly_scale" validate:"gt=0,lte=1"`
	MinStake             float64        `mapstructure:"min_stake" validate:"gte=0"`
	StreakTiers          []StreakTier   `mapstructure:"streak_tiers" validate:"dive"`
	DrawdownTiers        []DrawdownTier `mapstructure:"drawdown_tiers" validate:"dive"`
	MaxDailyLossPercent  float64        `mapstructure:"max_daily_loss_percent" validate:"gt=0,lte=1"`
	MaxWeeklyLossPercent float64        `mapstructure:"max_weekly_loss_percent" validate:"gt=0,lte=1"`
	MaxLosingStreak      int            `mapstructure:"max_losing_streak" validate:"min=1"`
	MaxDrawdown          float64        `mapstructure:"max_drawdown" validate:"gt=0,lte=1"`
	MinBalance           float64        `mapstructure:"min_balance" validate:"gte=0"`
	ResumePolicy         string         `mapstructure:"resume_policy" validate:"required,oneof=manual next_day"`
}

// SchedulerConfig holds cron expressions for bankroll rollovers and rescans
type SchedulerConfig struct {
	DayRollover         string `mapstructure:"day_rollover" validate:"required,cronspec"`
	WeekRollover        string `mapstructure:"week_rollover" validate:"required,cronspec"`
	ScanIntervalSeconds int    `mapstructure:"scan_interval_seconds" validate:"gte=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Default returns the reference configuration used when a key is absent from file.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:        "oddsedge",
			Environment: "development",
			LogLevel:    "info",
		},
		Rating: RatingConfig{
			EloInitial:       1500,
			EloKFactor:       32,
			EloHomeAdvantage: 65,
			DrawBase:         0.28,
			DrawFloor:        0.05,
			DrawScale:        300,
			TimeDecayXi:      0.0019,
		},
		Scoreline: ScorelineConfig{
			HomeAdvantage: 1.25,
			Rho:           -0.03,
			MaxGoals:      10,
		},
		FairOdds: FairOddsConfig{
			Method:              "shin",
			MaxIterations:       100,
			Tolerance:           1e-9,
			ConsensusTTLSeconds: 300,
		},
		Ensemble: EnsembleConfig{
			Weights: WeightsConfig{
				DixonColes: 0.35,
				Elo:        0.15,
				Market:     0.40,
				External:   0.10,
			},
		},
		Value: ValueConfig{
			Markets:           []string{"1x2", "totals_2.5", "btts"},
			MinValueEdge:      0.02,
			ConfirmEdge:       0.01,
			MinConfirmations:  2,
			MinConfirmedEdge:  0.05,
			MaxValueEdge:      0.60,
			MinOdds:           1.05,
			MaxOdds:           20,
			MinBookmakers:     1,
			SharpBook:         "pinnacle",
			SharpGap:          0.05,
			Workers:           4,
			LineMoveThreshold: 0.08,
			SteamBooks:        2,
		},
		Express: ExpressConfig{
			MinLegs:            2,
			MaxLegs:            3,
			PoolLimit:          20,
			MaxCombos:          5,
			MinLegProbability:  0.05,
			MaxLegOdds:         25,
			MaxTotalOdds:       500,
			LegCountDiscount:   0.95,
			SameLeagueDiscount: 0.90,
			SameDayDiscount:    0.97,
		},
		System: SystemConfig{
			Enabled: true,
			Shapes: []SystemShape{
				{Legs: 3, Size: 2},
				{Legs: 4, Size: 3},
				{Legs: 5, Size: 3},
				{Legs: 5, Size: 4},
			},
			MinLegProbability: 0.55,
			MinExpectedEdge:   0,
		},
		Bankroll: BankrollConfig{
			KellyFraction:      0.20,
			MaxBetFraction:     0.05,
			MaxExpressFraction: 0.03,
			MaxSystemFraction:  0.03,
			MaxOpenExposure:    0.25,
			ExpressKellyScale:  0.5,
			MinStake:           0,
			StreakTiers: []StreakTier{
				{MinLosses: 5, Multiplier: 0.50},
				{MinLosses: 3, Multiplier: 0.75},
			},
			DrawdownTiers: []DrawdownTier{
				{Above: 0.15, Multiplier: 0.50},
				{Above: 0.10, Multiplier: 0.75},
			},
			MaxDailyLossPercent:  0.08,
			MaxWeeklyLossPercent: 0.15,
			MaxLosingStreak:      7,
			MaxDrawdown:          0.30,
			MinBalance:           0,
			ResumePolicy:         "next_day",
		},
		Scheduler: SchedulerConfig{
			DayRollover:         "0 0 * * *",
			WeekRollover:        "0 0 * * 1",
			ScanIntervalSeconds: 900,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
