package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsedge/internal/config"
	"github.com/yourusername/oddsedge/internal/datasource"
	"github.com/yourusername/oddsedge/internal/logger"
	"github.com/yourusername/oddsedge/internal/service"
)

// setup loads configuration and builds the logger and advisor shared by
// every command.
func setup() (*config.Config, *logrus.Logger, *service.Advisor, error) {
	cfg, err := config.LoadWithDefaults(configFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.App.LogLevel = logLevel
	}

	appLog := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"log_level":   cfg.App.LogLevel,
		"method":      cfg.FairOdds.Method,
		"version":     Version,
	}).Debug("Configuration loaded")

	source := datasource.NewFileSource(inputFile, appLog)
	advisor, err := service.NewAdvisor(cfg, source, appLog)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build advisor: %w", err)
	}
	return cfg, appLog, advisor, nil
}

func startingBalance() (decimal.Decimal, error) {
	if balance <= 0 {
		return decimal.Zero, fmt.Errorf("balance must be positive, got %g", balance)
	}
	return decimal.NewFromFloat(balance).Round(2), nil
}
