package datasource

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/yourusername/oddsedge/internal/models"
)

// FeedValidator checks a feed for structural problems and dangling references
type FeedValidator struct {
	validate *validator.Validate
}

// NewFeedValidator creates a new feed validator
func NewFeedValidator() *FeedValidator {
	return &FeedValidator{validate: validator.New()}
}

// Validate returns every problem found in the feed
func (v *FeedValidator) Validate(feed *Feed) []string {
	var problems []string

	if err := v.validate.Struct(feed); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				problems = append(problems, fmt.Sprintf("%s failed '%s' (value: %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	teams := make(map[string]bool, len(feed.Teams))
	for _, t := range feed.Teams {
		if teams[t.ID] {
			problems = append(problems, fmt.Sprintf("duplicate team %s", t.ID))
		}
		teams[t.ID] = true
	}

	fixtures := make(map[string]bool, len(feed.Fixtures))
	for _, f := range feed.Fixtures {
		if fixtures[f.ID] {
			problems = append(problems, fmt.Sprintf("duplicate fixture %s", f.ID))
		}
		fixtures[f.ID] = true
	}

	for _, q := range feed.Quotes {
		if !fixtures[q.FixtureID] {
			problems = append(problems, fmt.Sprintf("quotes from %s reference unknown fixture %s", q.Bookmaker, q.FixtureID))
		}
		problems = append(problems, v.outcomes(q.FixtureID, q.Market, q.Odds)...)
	}

	for _, e := range feed.External {
		if !fixtures[e.FixtureID] {
			problems = append(problems, fmt.Sprintf("external distribution references unknown fixture %s", e.FixtureID))
		}
		problems = append(problems, v.outcomes(e.FixtureID, e.Market, e.Probabilities)...)
	}

	return problems
}

// outcomes rejects outcome labels that do not belong to the market
func (v *FeedValidator) outcomes(fixtureID string, market models.Market, values map[models.Outcome]float64) []string {
	var problems []string
	for outcome := range values {
		if !market.HasOutcome(outcome) {
			problems = append(problems, fmt.Sprintf("fixture %s market %s has foreign outcome %q", fixtureID, market, outcome))
		}
	}
	return problems
}
