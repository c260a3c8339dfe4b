// Package config assembles the component configurations of the CLI
// from flag values.
package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"partner-reconciliation-service/internal/matcher"
	"partner-reconciliation-service/internal/parsers"
	"partner-reconciliation-service/internal/reconciler"
	"partner-reconciliation-service/internal/reporter"
)

// CreateStatementLayout builds a statement layout from a column
// override of the form "B,D,L" (action, description, Settle.Amt). An
// empty override keeps the standard partner export layout.
func CreateStatementLayout(columns string) (*parsers.StatementLayout, error) {
	layout := parsers.DefaultStatementLayout()
	if columns == "" {
		return layout, nil
	}

	parts, err := splitColumns(columns, 3, "action,description,amount")
	if err != nil {
		return nil, fmt.Errorf("invalid statement columns: %w", err)
	}
	layout.ActionColumn = parts[0]
	layout.DescriptionColumn = parts[1]
	layout.SettleAmountColumn = parts[2]

	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid statement columns: %w", err)
	}
	return layout, nil
}

// CreateSettlementLayout builds a settlement layout from a column
// override of the form "D,F,K,M" (pin, action, PayoutRoundAmt,
// APIRate). An empty override keeps the standard processor layout.
func CreateSettlementLayout(columns string) (*parsers.SettlementLayout, error) {
	layout := parsers.DefaultSettlementLayout()
	if columns == "" {
		return layout, nil
	}

	parts, err := splitColumns(columns, 4, "pin,action,payout,rate")
	if err != nil {
		return nil, fmt.Errorf("invalid settlement columns: %w", err)
	}
	layout.PinColumn = parts[0]
	layout.ActionColumn = parts[1]
	layout.PayoutColumn = parts[2]
	layout.RateColumn = parts[3]

	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settlement columns: %w", err)
	}
	return layout, nil
}

// CreateMatcherConfig builds a matcher configuration with the given
// tolerance in dollars
func CreateMatcherConfig(amountTolerance float64) *matcher.Config {
	config := matcher.DefaultConfig()
	config.AmountTolerance = decimal.NewFromFloat(amountTolerance)
	return config
}

// CreateServiceConfig assembles the reconciliation service
// configuration from the CLI pieces
func CreateServiceConfig(statementColumns, settlementColumns string, amountTolerance float64) (*reconciler.Config, error) {
	statementLayout, err := CreateStatementLayout(statementColumns)
	if err != nil {
		return nil, err
	}
	settlementLayout, err := CreateSettlementLayout(settlementColumns)
	if err != nil {
		return nil, err
	}

	return &reconciler.Config{
		StatementLayout:  statementLayout,
		SettlementLayout: settlementLayout,
		Matcher:          CreateMatcherConfig(amountTolerance),
	}, nil
}

// CreateReportConfig builds a report configuration for the given format
func CreateReportConfig(format string) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.OutputFormat(format)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func splitColumns(columns string, want int, names string) ([]string, error) {
	parts := strings.Split(columns, ",")
	if len(parts) != want {
		return nil, fmt.Errorf("expected %d comma-separated column letters (%s), got %d", want, names, len(parts))
	}
	for i, part := range parts {
		parts[i] = strings.ToUpper(strings.TrimSpace(part))
	}
	return parts, nil
}
