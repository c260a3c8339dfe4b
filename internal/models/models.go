package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Action labels carried by the source files. Comparison is
// case-insensitive after trimming: both files are hand-maintained
// exports and the original system compared lowercased values.
const (
	actionCancel         = "cancel"
	actionDollarReceived = "dollar received"
)

// IsCancelLabel reports whether the action label marks a cancellation
func IsCancelLabel(label string) bool {
	return strings.ToLower(strings.TrimSpace(label)) == actionCancel
}

// IsDollarReceivedLabel reports whether the action label marks a
// dollar-received statement row, which is never reconciled
func IsDollarReceivedLabel(label string) bool {
	return strings.ToLower(strings.TrimSpace(label)) == actionDollarReceived
}

// StatementRecord is one cleaned row of the partner statement file
type StatementRecord struct {
	Pin               PartnerPin      `json:"pin"`
	ActionLabel       string          `json:"action_label"`
	SettleAmount      decimal.Decimal `json:"settle_amount"`
	IsDuplicatePin    bool            `json:"is_duplicate_pin"`
	ReconcileEligible bool            `json:"reconcile_eligible"`
}

// String returns a string representation of the StatementRecord
func (r *StatementRecord) String() string {
	return fmt.Sprintf("StatementRecord{Pin: %s, Action: %q, Amount: %s, Duplicate: %t, Eligible: %t}",
		r.Pin, r.ActionLabel, r.SettleAmount.String(), r.IsDuplicatePin, r.ReconcileEligible)
}

// SettlementRecord is one cleaned row of the processor settlement file.
// AmountUSD is derived as PayoutRoundAmt / APIRate; it is absent
// (invalid NullDecimal) when the rate is zero or either operand is
// unparseable, in which case the record still carries its pin for
// presence matching.
type SettlementRecord struct {
	Pin               PartnerPin          `json:"pin"`
	ActionLabel       string              `json:"action_label"`
	PayoutRoundAmt    decimal.Decimal     `json:"payout_round_amt"`
	APIRate           decimal.Decimal     `json:"api_rate"`
	AmountUSD         decimal.NullDecimal `json:"amount_usd"`
	IsDuplicatePin    bool                `json:"is_duplicate_pin"`
	ReconcileEligible bool                `json:"reconcile_eligible"`
}

// String returns a string representation of the SettlementRecord
func (r *SettlementRecord) String() string {
	amount := "absent"
	if r.AmountUSD.Valid {
		amount = r.AmountUSD.Decimal.String()
	}
	return fmt.Sprintf("SettlementRecord{Pin: %s, Action: %q, USD: %s, Duplicate: %t, Eligible: %t}",
		r.Pin, r.ActionLabel, amount, r.IsDuplicatePin, r.ReconcileEligible)
}

// Classification describes where a pin was found across the two
// eligible sets. The display strings match the report wording the
// business side expects.
type Classification string

const (
	PresentInBoth           Classification = "Present in Both"
	PresentInSettlementOnly Classification = "Present in the Settlement File but not in the Partner Statement File"
	PresentInStatementOnly  Classification = "Not Present in the Settlement File but are present in the Statement File"
)

// IsValid checks if the classification is one of the defined values
func (c Classification) IsValid() bool {
	switch c {
	case PresentInBoth, PresentInSettlementOnly, PresentInStatementOnly:
		return true
	default:
		return false
	}
}

// String returns the display form of the classification
func (c Classification) String() string {
	return string(c)
}

// FinalStatus is the reconciliation verdict for a result row
type FinalStatus string

const (
	StatusReconciled          FinalStatus = "Reconciled"
	StatusAmountMismatch      FinalStatus = "Amount Mismatch"
	StatusMissingInStatement  FinalStatus = "Missing in Statement"
	StatusMissingInSettlement FinalStatus = "Missing in Settlement"
)

// String returns the display form of the final status
func (s FinalStatus) String() string {
	return string(s)
}

// ReconciliationResult is one row of the output table, keyed by pin.
// StatementAmount and SettlementAmountUSD are absent when the pin was
// not found on that side; AmountVariance is populated only for
// PresentInBoth rows whose settlement amount is usable.
type ReconciliationResult struct {
	Pin                 PartnerPin          `json:"partner_pin"`
	Classification      Classification      `json:"classification"`
	FinalStatus         FinalStatus         `json:"final_status"`
	StatementAmount     decimal.NullDecimal `json:"statement_amount"`
	SettlementAmountUSD decimal.NullDecimal `json:"settlement_amount_usd"`
	AmountVariance      decimal.NullDecimal `json:"amount_variance"`
}

// String returns a string representation of the ReconciliationResult
func (r *ReconciliationResult) String() string {
	return fmt.Sprintf("ReconciliationResult{Pin: %s, Classification: %q, Status: %s}",
		r.Pin, r.Classification, r.FinalStatus)
}

// Utility functions for cell parsing

// ParseDecimalFromString parses a currency-like decimal from string,
// tolerating currency symbols and thousands separators
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// CleanNumericCell strips the zero fraction spreadsheet engines append
// to numeric cells ("12345678901.0" -> "12345678901") so that pin
// extraction sees the digits the operator typed. Cells that are not a
// plain number with a zero fraction pass through unchanged.
func CleanNumericCell(s string) string {
	s = strings.TrimSpace(s)

	dot := strings.IndexByte(s, '.')
	if dot <= 0 || dot == len(s)-1 {
		return s
	}
	for i := 0; i < dot; i++ {
		if !isDigit(s[i]) {
			return s
		}
	}
	for i := dot + 1; i < len(s); i++ {
		if s[i] != '0' {
			return s
		}
	}
	return s[:dot]
}
