package matcher

import (
	"sort"

	"github.com/shopspring/decimal"

	"partner-reconciliation-service/internal/models"
	"partner-reconciliation-service/pkg/errors"
	"partner-reconciliation-service/pkg/logger"
)

// varianceScale is the rounding precision of the reported variance.
// The tolerance verdict is taken against the rounded value, so the
// report never shows a mismatch it calls reconciled or vice versa.
const varianceScale = 2

// Engine performs the pin-keyed full outer join between the two record
// sets
type Engine struct {
	config *Config
	logger logger.Logger
}

// MatchStats summarizes one matching run
type MatchStats struct {
	StatementEligible  int `json:"statement_eligible"`
	StatementIgnored   int `json:"statement_ignored"`
	SettlementEligible int `json:"settlement_eligible"`
	SettlementIgnored  int `json:"settlement_ignored"`

	// KeyCollisions counts eligible records folded into an existing
	// row because their side already carried their pin
	KeyCollisions int `json:"key_collisions"`

	PresentInBoth  int `json:"present_in_both"`
	StatementOnly  int `json:"statement_only"`
	SettlementOnly int `json:"settlement_only"`

	Reconciled       int `json:"reconciled"`
	AmountMismatches int `json:"amount_mismatches"`
}

// NewEngine creates a matching engine with the given configuration. A
// nil config uses DefaultConfig.
func NewEngine(config *Config) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "matcher", config, err)
	}

	return &Engine{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("matcher"),
	}, nil
}

// Match joins the eligible records of both sides by pin and returns one
// result row per distinct pin, ordered by pin. Every eligible record is
// accounted for in exactly one row.
func (e *Engine) Match(statements []*models.StatementRecord, settlements []*models.SettlementRecord) ([]*models.ReconciliationResult, *MatchStats, error) {
	stats := &MatchStats{}

	stmtAmounts := make(map[models.PartnerPin]decimal.NullDecimal)
	for _, r := range statements {
		if !r.ReconcileEligible {
			stats.StatementIgnored++
			continue
		}
		stats.StatementEligible++
		amount := decimal.NullDecimal{Decimal: r.SettleAmount, Valid: true}
		if existing, ok := stmtAmounts[r.Pin]; ok {
			stats.KeyCollisions++
			e.logger.WithField("pin", r.Pin.String()).Warn("Folding colliding eligible statement rows")
			stmtAmounts[r.Pin] = addNullable(existing, amount)
			continue
		}
		stmtAmounts[r.Pin] = amount
	}

	settAmounts := make(map[models.PartnerPin]decimal.NullDecimal)
	for _, r := range settlements {
		if !r.ReconcileEligible {
			stats.SettlementIgnored++
			continue
		}
		stats.SettlementEligible++
		if existing, ok := settAmounts[r.Pin]; ok {
			stats.KeyCollisions++
			e.logger.WithField("pin", r.Pin.String()).Warn("Folding colliding eligible settlement rows")
			settAmounts[r.Pin] = addNullable(existing, r.AmountUSD)
			continue
		}
		settAmounts[r.Pin] = r.AmountUSD
	}

	pins := make([]models.PartnerPin, 0, len(stmtAmounts)+len(settAmounts))
	for pin := range stmtAmounts {
		pins = append(pins, pin)
	}
	for pin := range settAmounts {
		if _, ok := stmtAmounts[pin]; !ok {
			pins = append(pins, pin)
		}
	}
	sort.Slice(pins, func(i, j int) bool { return pins[i] < pins[j] })

	results := make([]*models.ReconciliationResult, 0, len(pins))
	for _, pin := range pins {
		stmtAmount, inStatement := stmtAmounts[pin]
		settAmount, inSettlement := settAmounts[pin]

		result := &models.ReconciliationResult{
			Pin:                 pin,
			StatementAmount:     stmtAmount,
			SettlementAmountUSD: settAmount,
		}

		switch {
		case inStatement && inSettlement:
			result.Classification = models.PresentInBoth
			stats.PresentInBoth++
			e.classifyAmounts(result, stats)
		case inStatement:
			result.Classification = models.PresentInStatementOnly
			result.FinalStatus = models.StatusMissingInSettlement
			stats.StatementOnly++
		default:
			result.Classification = models.PresentInSettlementOnly
			result.FinalStatus = models.StatusMissingInStatement
			stats.SettlementOnly++
		}

		results = append(results, result)
	}

	e.logger.WithFields(logger.Fields{
		"result_rows":     len(results),
		"present_in_both": stats.PresentInBoth,
		"statement_only":  stats.StatementOnly,
		"settlement_only": stats.SettlementOnly,
		"reconciled":      stats.Reconciled,
		"mismatches":      stats.AmountMismatches,
		"key_collisions":  stats.KeyCollisions,
	}).Info("Matching completed")

	return results, stats, nil
}

// classifyAmounts fills the variance and verdict of a row present on
// both sides. A settlement amount that could not be derived leaves the
// variance absent and the row as a mismatch: presence alone is no
// evidence the amounts agree.
func (e *Engine) classifyAmounts(result *models.ReconciliationResult, stats *MatchStats) {
	if !result.StatementAmount.Valid || !result.SettlementAmountUSD.Valid {
		result.FinalStatus = models.StatusAmountMismatch
		stats.AmountMismatches++
		return
	}

	variance := result.SettlementAmountUSD.Decimal.
		Sub(result.StatementAmount.Decimal).
		Round(varianceScale)
	result.AmountVariance = decimal.NullDecimal{Decimal: variance, Valid: true}

	if variance.Abs().LessThanOrEqual(e.config.AmountTolerance) {
		result.FinalStatus = models.StatusReconciled
		stats.Reconciled++
		return
	}
	result.FinalStatus = models.StatusAmountMismatch
	stats.AmountMismatches++
}

// addNullable folds a colliding amount into the running sum for its
// pin. An absent operand contributes nothing; the sum is absent only
// when every operand was.
func addNullable(a, b decimal.NullDecimal) decimal.NullDecimal {
	switch {
	case a.Valid && b.Valid:
		return decimal.NullDecimal{Decimal: a.Decimal.Add(b.Decimal), Valid: true}
	case a.Valid:
		return a
	default:
		return b
	}
}
