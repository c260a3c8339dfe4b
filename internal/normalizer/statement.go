package normalizer

import (
	"strings"

	"partner-reconciliation-service/internal/models"
	"partner-reconciliation-service/internal/parsers"
	"partner-reconciliation-service/pkg/errors"
	"partner-reconciliation-service/pkg/logger"
)

// statementSource names the source in errors and logs
const statementSource = "statement"

// StatementNormalizer converts the raw partner statement table into
// tagged StatementRecords
type StatementNormalizer struct {
	layout  *parsers.StatementLayout
	columns *parsers.StatementColumns
	logger  logger.Logger
}

// NewStatementNormalizer creates a StatementNormalizer for the given
// layout. A nil layout uses the standard partner export layout.
func NewStatementNormalizer(layout *parsers.StatementLayout) (*StatementNormalizer, error) {
	if layout == nil {
		layout = parsers.DefaultStatementLayout()
	}

	columns, err := layout.Resolve()
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "statement_layout", layout, err)
	}

	return &StatementNormalizer{
		layout:  layout,
		columns: columns,
		logger:  logger.GetGlobalLogger().WithComponent("statement_normalizer"),
	}, nil
}

// Normalize produces the tagged statement records for one raw table.
// The fixed boilerplate rows are discarded first; every remaining row
// is a data candidate. Rows without an extractable pin or with an
// unparseable Settle.Amt are excluded and counted, never fatal.
// Structural problems (empty table, no row wide enough for the layout)
// abort the run.
func (n *StatementNormalizer) Normalize(table parsers.RawTable) ([]*models.StatementRecord, *NormalizeStats, error) {
	stats := &NormalizeStats{RowsRead: len(table)}

	candidates := parsers.DropFixedRows(table, n.layout.DropRows)
	stats.RowsDiscarded = len(table) - len(candidates)

	if err := parsers.ValidateTable(statementSource, candidates, n.columns.MaxIndex()); err != nil {
		return nil, stats, err
	}

	rows := make([]*models.StatementRecord, 0, len(candidates))
	counts := make(map[models.PartnerPin]int)

	for i, row := range candidates {
		description := strings.TrimSpace(row.Cell(n.columns.Description))
		pin, ok := models.ExtractPin(description)
		if !ok {
			stats.MalformedKeys++
			n.logger.WithFields(logger.Fields{
				"row":   i + 1,
				"value": description,
			}).Debug("Skipping unkeyed statement row")
			continue
		}

		amountCell := row.Cell(n.columns.SettleAmount)
		amount, err := models.ParseDecimalFromString(amountCell)
		if err != nil {
			stats.UnparseableAmounts++
			n.logger.WithError(err).WithFields(logger.Fields{
				"row": i + 1,
				"pin": pin.String(),
			}).Warn("Skipping statement row with unparseable amount")
			continue
		}

		rows = append(rows, &models.StatementRecord{
			Pin:          pin,
			ActionLabel:  strings.TrimSpace(row.Cell(n.columns.Action)),
			SettleAmount: amount,
		})
		counts[pin]++
	}

	for _, record := range rows {
		record.IsDuplicatePin = counts[record.Pin] > 1
		record.ReconcileEligible = statementEligible(record.ActionLabel, record.IsDuplicatePin)

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
		"duplicate_pins": stats.DuplicatePins,
	}).Info("Statement normalization completed")

	return rows, stats, nil
}

// statementEligible applies the statement tagging rules:
//   - "Dollar Received" rows never reconcile, duplicated or not
//   - a duplicated pin reconciles only through its "Cancel" row
//   - non-duplicated rows reconcile
//
// A duplicated row that is neither "Cancel" nor "Dollar Received" is
// not covered by the source rules; such rows default to not eligible,
// since the cancel-of-duplicate path is the only duplicate path the
// rules mark reconcilable.
func statementEligible(label string, duplicate bool) bool {
	if models.IsDollarReceivedLabel(label) {
		return false
	}
	if duplicate {
		return models.IsCancelLabel(label)
	}
	return true
}
