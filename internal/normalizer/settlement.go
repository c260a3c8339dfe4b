package normalizer

import (
	"strings"

	"github.com/shopspring/decimal"

	"partner-reconciliation-service/internal/models"
	"partner-reconciliation-service/internal/parsers"
	"partner-reconciliation-service/pkg/errors"
	"partner-reconciliation-service/pkg/logger"
)

// settlementSource names the source in errors and logs
const settlementSource = "settlement"

// usdScale is the working precision for the payout-to-USD conversion.
// Final report amounts are rounded separately at presentation time.
const usdScale = 8

// SettlementNormalizer converts the raw provider settlement table into
// tagged SettlementRecords
type SettlementNormalizer struct {
	layout  *parsers.SettlementLayout
	columns *parsers.SettlementColumns
	logger  logger.Logger
}

// NewSettlementNormalizer creates a SettlementNormalizer for the given
// layout. A nil layout uses the standard provider export layout.
func NewSettlementNormalizer(layout *parsers.SettlementLayout) (*SettlementNormalizer, error) {
	if layout == nil {
		layout = parsers.DefaultSettlementLayout()
	}

	columns, err := layout.Resolve()
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "settlement_layout", layout, err)
	}

	return &SettlementNormalizer{
		layout:  layout,
		columns: columns,
		logger:  logger.GetGlobalLogger().WithComponent("settlement_normalizer"),
	}, nil
}

// Normalize produces the tagged settlement records for one raw table.
// Rows without an extractable pin are excluded and counted. Rows whose
// payout or rate cannot be parsed, or whose rate is zero, are kept so
// their presence still reconciles, but with no USD amount. Structural
// problems abort the run.
func (n *SettlementNormalizer) Normalize(table parsers.RawTable) ([]*models.SettlementRecord, *NormalizeStats, error) {
	stats := &NormalizeStats{RowsRead: len(table)}

	candidates := parsers.DropFixedRows(table, n.layout.DropRows)
	stats.RowsDiscarded = len(table) - len(candidates)

	if err := parsers.ValidateTable(settlementSource, candidates, n.columns.MaxIndex()); err != nil {
		return nil, stats, err
	}

	rows := make([]*models.SettlementRecord, 0, len(candidates))
	counts := make(map[models.PartnerPin]int)

	for i, row := range candidates {
		pinCell := models.CleanNumericCell(row.Cell(n.columns.Pin))
		pin, ok := models.ExtractPin(pinCell)
		if !ok {
			stats.MalformedKeys++
			n.logger.WithFields(logger.Fields{
				"row":   i + 1,
				"value": pinCell,
			}).Debug("Skipping unkeyed settlement row")
			continue
		}

		record := &models.SettlementRecord{
			Pin:         pin,
			ActionLabel: strings.TrimSpace(row.Cell(n.columns.Action)),
		}

		payout, payoutErr := models.ParseDecimalFromString(row.Cell(n.columns.Payout))
		rate, rateErr := models.ParseDecimalFromString(row.Cell(n.columns.Rate))
		switch {
		case payoutErr != nil || rateErr != nil:
			stats.UnparseableAmounts++
			n.logger.WithFields(logger.Fields{
				"row": i + 1,
				"pin": pin.String(),
			}).Warn("Settlement row kept without USD amount: unparseable payout or rate")
		case rate.IsZero():
			stats.ZeroRates++
			n.logger.WithFields(logger.Fields{
				"row": i + 1,
				"pin": pin.String(),
			}).Warn("Settlement row kept without USD amount: zero API rate")
		default:
			record.PayoutRoundAmt = payout
			record.APIRate = rate
			record.AmountUSD = decimal.NullDecimal{
				Decimal: payout.DivRound(rate, usdScale),
				Valid:   true,
			}
		}

		rows = append(rows, record)
		counts[pin]++
	}

	for _, record := range rows {
		record.IsDuplicatePin = counts[record.Pin] > 1
		record.ReconcileEligible = settlementEligible(record.ActionLabel, record.IsDuplicatePin)

		if record.IsDuplicatePin {
			stats.DuplicatePins++
		}
		if record.ReconcileEligible {
			stats.EligibleRecords++
		}
	}
	stats.RecordsKept = len(rows)

	n.logger.WithFields(logger.Fields{
		"rows_read":      stats.RowsRead,
		"records_kept":   stats.RecordsKept,
		"eligible":       stats.EligibleRecords,
		"malformed_keys": stats.MalformedKeys,
		"bad_amounts":    stats.UnparseableAmounts,
		"zero_rates":     stats.ZeroRates,
		"duplicate_pins": stats.DuplicatePins,
	}).Info("Settlement normalization completed")

	return rows, stats, nil
}

// settlementEligible applies the settlement tagging rules: every
// non-duplicated row reconciles, and a duplicated pin reconciles only
// through its "Cancel" row.
func settlementEligible(label string, duplicate bool) bool {
	if duplicate {
		return models.IsCancelLabel(label)
	}
	return true
}
