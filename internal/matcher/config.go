// Package matcher joins the tagged statement and settlement record sets
// into the reconciliation result table.
//
// The join is a full outer join over the PartnerPin of every
// reconcile-eligible record. Each pin from either side yields exactly
// one result row carrying its classification, the amounts found on each
// side and, where both sides carry a usable amount, the rounded
// variance and a final verdict against the configured tolerance.
//
// Eligible records that share a pin within one side are folded into a
// single row by summing their amounts, so the join stays key-unique
// even on imperfect inputs.
//
// Example usage:
//
//	engine, err := matcher.NewEngine(matcher.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	results, stats, err := engine.Match(statements, settlements)
package matcher

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config holds the tunable parameters of the matching engine
type Config struct {
	// AmountTolerance is the maximum absolute variance, after rounding
	// to cents, that still counts as reconciled
	AmountTolerance decimal.Decimal `json:"amount_tolerance" mapstructure:"amount_tolerance"`
}

// DefaultConfig returns the standard engine configuration: one cent of
// tolerated variance.
func DefaultConfig() *Config {
	return &Config{
		AmountTolerance: decimal.New(1, -2),
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.AmountTolerance.IsNegative() {
		return fmt.Errorf("amount tolerance cannot be negative, got %s", c.AmountTolerance)
	}
	return nil
}
