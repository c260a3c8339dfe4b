package parsers

import (
	"fmt"
	"strings"

	"partner-reconciliation-service/pkg/errors"
)

// ColumnIndex resolves a spreadsheet-style column reference ("A", "L",
// "AA") to a zero-based column index. The business rules are written in
// column letters, so layouts are configured the same way.
func ColumnIndex(ref string) (int, error) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	if ref == "" {
		return 0, fmt.Errorf("column reference cannot be empty")
	}

	index := 0
	for _, c := range ref {
		if c < 'A' || c > 'Z' {
			return 0, fmt.Errorf("invalid column reference '%s'", ref)
		}
		index = index*26 + int(c-'A') + 1
	}
	return index - 1, nil
}

// StatementLayout declares the fixed column positions of the partner
// statement table and the boilerplate rows the source format always
// carries. Keeping this declarative means layout drift is a config
// change, not a logic change.
type StatementLayout struct {
	ActionColumn       string `json:"action_column" mapstructure:"action_column"`
	DescriptionColumn  string `json:"description_column" mapstructure:"description_column"`
	SettleAmountColumn string `json:"settle_amount_column" mapstructure:"settle_amount_column"`

	// DropRows lists 1-based row positions discarded before any row is
	// considered data.
	DropRows []int `json:"drop_rows" mapstructure:"drop_rows"`
}

// DefaultStatementLayout returns the layout the partner export has
// always used: action in B, free-text description in D, Settle.Amt in
// L, with rows 1-9 and 11 as header and legal boilerplate.
func DefaultStatementLayout() *StatementLayout {
	return &StatementLayout{
		ActionColumn:       "B",
		DescriptionColumn:  "D",
		SettleAmountColumn: "L",
		DropRows:           []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 11},
	}
}

// Validate checks that every column reference resolves
func (l *StatementLayout) Validate() error {
	for name, ref := range map[string]string{
		"action_column":        l.ActionColumn,
		"description_column":   l.DescriptionColumn,
		"settle_amount_column": l.SettleAmountColumn,
	} {
		if _, err := ColumnIndex(ref); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	for _, row := range l.DropRows {
		if row < 1 {
			return fmt.Errorf("drop rows are 1-based, got %d", row)
		}
	}
	return nil
}

// StatementColumns holds the resolved zero-based indices of a
// StatementLayout
type StatementColumns struct {
	Action       int
	Description  int
	SettleAmount int
}

// Resolve converts the layout's column letters to indices
func (l *StatementLayout) Resolve() (*StatementColumns, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	action, _ := ColumnIndex(l.ActionColumn)
	description, _ := ColumnIndex(l.DescriptionColumn)
	amount, _ := ColumnIndex(l.SettleAmountColumn)
	return &StatementColumns{
		Action:       action,
		Description:  description,
		SettleAmount: amount,
	}, nil
}

// MaxIndex returns the highest column index the layout reads
func (c *StatementColumns) MaxIndex() int {
	return maxIndex(c.Action, c.Description, c.SettleAmount)
}

// SettlementLayout declares the fixed column positions of the processor
// settlement table
type SettlementLayout struct {
	PinColumn    string `json:"pin_column" mapstructure:"pin_column"`
	ActionColumn string `json:"action_column" mapstructure:"action_column"`
	PayoutColumn string `json:"payout_column" mapstructure:"payout_column"`
	RateColumn   string `json:"rate_column" mapstructure:"rate_column"`

	DropRows []int `json:"drop_rows" mapstructure:"drop_rows"`
}

// DefaultSettlementLayout returns the processor export layout: pin
// source in D, cancel flag in F, PayoutRoundAmt in K, APIRate in M,
// with two header rows.
func DefaultSettlementLayout() *SettlementLayout {
	return &SettlementLayout{
		PinColumn:    "D",
		ActionColumn: "F",
		PayoutColumn: "K",
		RateColumn:   "M",
		DropRows:     []int{1, 2},
	}
}

// Validate checks that every column reference resolves
func (l *SettlementLayout) Validate() error {
	for name, ref := range map[string]string{
		"pin_column":    l.PinColumn,
		"action_column": l.ActionColumn,
		"payout_column": l.PayoutColumn,
		"rate_column":   l.RateColumn,
	} {
		if _, err := ColumnIndex(ref); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	for _, row := range l.DropRows {
		if row < 1 {
			return fmt.Errorf("drop rows are 1-based, got %d", row)
		}
	}
	return nil
}

// SettlementColumns holds the resolved zero-based indices of a
// SettlementLayout
type SettlementColumns struct {
	Pin    int
	Action int
	Payout int
	Rate   int
}

// Resolve converts the layout's column letters to indices
func (l *SettlementLayout) Resolve() (*SettlementColumns, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	pin, _ := ColumnIndex(l.PinColumn)
	action, _ := ColumnIndex(l.ActionColumn)
	payout, _ := ColumnIndex(l.PayoutColumn)
	rate, _ := ColumnIndex(l.RateColumn)
	return &SettlementColumns{
		Pin:    pin,
		Action: action,
		Payout: payout,
		Rate:   rate,
	}, nil
}

// MaxIndex returns the highest column index the layout reads
func (c *SettlementColumns) MaxIndex() int {
	return maxIndex(c.Pin, c.Action, c.Payout, c.Rate)
}

// DropFixedRows returns the table without the given 1-based row
// positions. The input table is never mutated; callers receive a fresh
// slice of the surviving rows.
func DropFixedRows(table RawTable, dropRows []int) RawTable {
	drop := make(map[int]bool, len(dropRows))
	for _, row := range dropRows {
		drop[row] = true
	}

	kept := make(RawTable, 0, len(table))
	for i, row := range table {
		if drop[i+1] {
			continue
		}
		kept = append(kept, row)
	}
	return kept
}

// ValidateTable checks the structural preconditions that are fatal to a
// run: the candidate rows must not be empty, and at least one row must
// be wide enough to carry the layout's highest mapped column.
func ValidateTable(source string, candidates RawTable, maxColumnIndex int) error {
	if len(candidates) == 0 {
		return errors.ParseError(errors.CodeEmptyTable, source, "", nil)
	}

	for _, row := range candidates {
		if len(row) > maxColumnIndex {
			return nil
		}
	}

	return errors.ParseError(errors.CodeMissingColumn, source,
		fmt.Sprintf("index %d", maxColumnIndex), nil)
}

func maxIndex(indices ...int) int {
	max := 0
	for _, i := range indices {
		if i > max {
			max = i
		}
	}
	return max
}
