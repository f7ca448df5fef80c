// Package datasource loads the fixture, odds and results feeds the
// decision core consumes.
package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/yourusername/oddsedge/internal/models"
)

// DataSource supplies one consistent snapshot of the external feeds
type DataSource interface {
	// Load reads the current snapshot
	Load(ctx context.Context) (*Feed, error)

	// Name returns the name of the data source
	Name() string
}

// Feed is everything one scan needs from the outside world
type Feed struct {
	Teams    []models.Team        `json:"teams" validate:"dive"`
	Results  []models.MatchResult `json:"results" validate:"dive"`
	Fixtures []models.Fixture     `json:"fixtures" validate:"dive"`
	Quotes   []QuoteRecord        `json:"quotes" validate:"dive"`
	External []ExternalRecord     `json:"external" validate:"dive"`
	LoadedAt time.Time            `json:"-"`
}

// QuoteRecord is one bookmaker's prices for one market
type QuoteRecord struct {
	FixtureID string                     `json:"fixture_id" validate:"required"`
	Market    models.Market              `json:"market"`
	Bookmaker string                     `json:"bookmaker" validate:"required"`
	Odds      map[models.Outcome]float64 `json:"odds" validate:"required,dive,gt=1"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// ExternalRecord is a calibrated distribution from an outside model
type ExternalRecord struct {
	FixtureID     string                     `json:"fixture_id" validate:"required"`
	Market        models.Market              `json:"market"`
	Probabilities map[models.Outcome]float64 `json:"probabilities" validate:"required,dive,gte=0,lte=1"`
}

// QuoteSets converts the quote records, stamping records without a time
// with the load time.
func (f *Feed) QuoteSets() []models.QuoteSet {
	sets := make([]models.QuoteSet, 0, len(f.Quotes))
	for _, q := range f.Quotes {
		ts := q.UpdatedAt
		if ts.IsZero() {
			ts = f.LoadedAt
		}
		sets = append(sets, models.NewQuoteSet(q.FixtureID, q.Market, q.Bookmaker, q.Odds, ts))
	}
	return sets
}

// ExternalDistributions indexes external distributions by fixture then market key.
func (f *Feed) ExternalDistributions() (map[string]map[string]models.Distribution, error) {
	out := make(map[string]map[string]models.Distribution)
	for _, rec := range f.External {
		dist, err := models.NewDistribution(rec.Probabilities)
		if err != nil {
			return nil, NewDataSourceError("feed", ErrCodeInvalidData,
				"external distribution for "+rec.FixtureID+" "+rec.Market.Key(), err)
		}
		if out[rec.FixtureID] == nil {
			out[rec.FixtureID] = make(map[string]models.Distribution)
		}
		out[rec.FixtureID][rec.Market.Key()] = dist.WithSource("external")
	}
	return out, nil
}

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string // Data source name
	Code    string // Error code (e.g., "not_found")
	Message string // Error message
	Err     error  // Underlying error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

func (e DataSourceError) Unwrap() error { return e.Err }

// Is matches the sentinel for the error code.
func (e DataSourceError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == ErrCodeNotFound
	case ErrInvalidData:
		return e.Code == ErrCodeInvalidData
	}
	return false
}

// Common error codes
const (
	ErrCodeNotFound    = "not_found"
	ErrCodeInvalidData = "invalid_data"
	ErrCodeUnknown     = "unknown"
)

// Error constructors
var (
	ErrNotFound    = errors.New("data not found")
	ErrInvalidData = errors.New("invalid data format")
)

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
