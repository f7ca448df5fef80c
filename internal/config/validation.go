// Package config provides configuration management for the oddsedge decision pipeline.
package config

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/yourusername/oddsedge/internal/models"
)

// weightSumTolerance bounds rounding in configured ensemble weights
const weightSumTolerance = 1e-6

// FairOddsMethods lists the de-margining methods selectable by name
var FairOddsMethods = []string{"multiplicative", "additive", "power", "shin"}

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("fairmethod", validateFairMethod)
	_ = v.RegisterValidation("market", validateMarket)
	_ = v.RegisterValidation("cronspec", validateCronSpec)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// ValidateSection validates one configuration section, e.g. a BankrollConfig
// handed to a constructor. Failures are *models.ConfigurationError.
func ValidateSection(section interface{}) error {
	cv := NewValidator()
	if err := cv.validator.Struct(section); err != nil {
		return formatValidationErrors(err)
	}
	problems := sectionChecks(section)
	if len(problems) > 0 {
		return models.NewConfigurationError(problems...)
	}
	return nil
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	if cfg == nil {
		return models.NewConfigurationError("configuration is nil")
	}
	if err := cv.validator.Struct(cfg); err != nil {
		return formatValidationErrors(err)
	}

	var problems []string
	for _, section := range []interface{}{
		cfg.Ensemble, cfg.Value, cfg.Express, cfg.System, cfg.Bankroll,
	} {
		problems = append(problems, sectionChecks(section)...)
	}
	if len(problems) > 0 {
		return models.NewConfigurationError(problems...)
	}
	return nil
}

// sectionChecks performs cross-field validations struct tags cannot express
func sectionChecks(section interface{}) []string {
	switch s := section.(type) {
	case EnsembleConfig:
		return checkEnsemble(s)
	case *EnsembleConfig:
		return checkEnsemble(*s)
	case ValueConfig:
		return checkValue(s)
	case *ValueConfig:
		return checkValue(*s)
	case ExpressConfig:
		return checkExpress(s)
	case *ExpressConfig:
		return checkExpress(*s)
	case SystemConfig:
		return checkSystem(s)
	case *SystemConfig:
		return checkSystem(*s)
	case BankrollConfig:
		return checkBankroll(s)
	case *BankrollConfig:
		return checkBankroll(*s)
	default:
		return nil
	}
}

func checkEnsemble(e EnsembleConfig) []string {
	if sum := e.Weights.Sum(); math.Abs(sum-1.0) > weightSumTolerance {
		return []string{fmt.Sprintf("ensemble weights must sum to 1, got %.6f", sum)}
	}
	return nil
}

func checkValue(v ValueConfig) []string {
	var problems []string
	if v.MinOdds >= v.MaxOdds {
		problems = append(problems, "value.min_odds must be below value.max_odds")
	}
	if v.MinValueEdge > v.MaxValueEdge {
		problems = append(problems, "value.min_value_edge cannot exceed value.max_value_edge")
	}
	return problems
}

func checkExpress(e ExpressConfig) []string {
	if e.MinLegs > e.MaxLegs {
		return []string{"express.min_legs cannot exceed express.max_legs"}
	}
	return nil
}

func checkSystem(c SystemConfig) []string {
	var problems []string
	for i, shape := range c.Shapes {
		if shape.Size >= shape.Legs {
			problems = append(problems, fmt.Sprintf("system.shapes[%d]: size %d must be below legs %d", i, shape.Size, shape.Legs))
		}
	}
	return problems
}

func checkBankroll(b BankrollConfig) []string {
	var problems []string
	if b.MaxDailyLossPercent > b.MaxWeeklyLossPercent {
		problems = append(problems, "bankroll.max_daily_loss_percent cannot exceed max_weekly_loss_percent")
	}
	streaks := make([]int, len(b.StreakTiers))
	for i, tier := range b.StreakTiers {
		streaks[i] = tier.MinLosses
	}
	if !sort.IsSorted(sort.Reverse(sort.IntSlice(streaks))) {
		problems = append(problems, "bankroll.streak_tiers must be ordered deepest first")
	}
	drawdowns := make([]float64, len(b.DrawdownTiers))
	for i, tier := range b.DrawdownTiers {
		drawdowns[i] = tier.Above
	}
	if !sort.IsSorted(sort.Reverse(sort.Float64Slice(drawdowns))) {
		problems = append(problems, "bankroll.drawdown_tiers must be ordered deepest first")
	}
	return problems
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateFairMethod validates the overround removal method name
func validateFairMethod(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	for _, method := range FairOddsMethods {
		if method == name {
			return true
		}
	}
	return false
}

// validateMarket validates a market key such as "1x2" or "totals_2.5"
func validateMarket(fl validator.FieldLevel) bool {
	_, err := models.ParseMarket(fl.Field().String())
	return err == nil
}

// validateCronSpec validates a standard five-field cron expression
func validateCronSpec(fl validator.FieldLevel) bool {
	_, err := cron.ParseStandard(fl.Field().String())
	return err == nil
}

// formatValidationErrors formats validation errors into a ConfigurationError
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return models.NewConfigurationError(fmt.Sprintf("validation failed: %v", err))
	}

	problems := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		field := fieldError.Namespace()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			problems = append(problems, fmt.Sprintf("field '%s' is required", field))
		case "min", "max":
			problems = append(problems, fmt.Sprintf("field '%s' validation failed: %s=%s constraint violated", field, tag, fieldError.Param()))
		case "gt", "gte", "lt", "lte":
			problems = append(problems, fmt.Sprintf("field '%s' validation failed: numeric constraint %s=%s violated, got %v", field, tag, fieldError.Param(), value))
		case "environment":
			problems = append(problems, fmt.Sprintf("field '%s' must be one of: development, staging, production", field))
		case "loglevel":
			problems = append(problems, fmt.Sprintf("field '%s' must be one of: debug, info, warn, error", field))
		case "fairmethod":
			problems = append(problems, fmt.Sprintf("field '%s' must be one of: multiplicative, additive, power, shin; got '%v'", field, value))
		case "market":
			problems = append(problems, fmt.Sprintf("field '%s' has unknown market '%v'", field, value))
		case "cronspec":
			problems = append(problems, fmt.Sprintf("field '%s' is not a valid cron expression: '%v'", field, value))
		case "oneof":
			problems = append(problems, fmt.Sprintf("field '%s' has invalid value '%v'", field, value))
		default:
			problems = append(problems, fmt.Sprintf("field '%s' failed validation: %s", field, tag))
		}
	}
	return models.NewConfigurationError(problems...)
}
