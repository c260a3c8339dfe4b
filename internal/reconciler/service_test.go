package reconciler

import (
	"context"
	"testing"

	"partner-reconciliation-service/internal/models"
	"partner-reconciliation-service/internal/parsers"
	"partner-reconciliation-service/pkg/errors"
)

func statementRow(action, description, amount string) parsers.RawRow {
	row := make(parsers.RawRow, 12)
	row[1] = action
	row[3] = description
	row[11] = amount
	return row
}

func statementTable(dataRows ...parsers.RawRow) parsers.RawTable {
	table := make(parsers.RawTable, 0, 11+len(dataRows))
	for i := 0; i < 9; i++ {
		table = append(table, parsers.RawRow{"Partner Statement Export"})
	}
	table = append(table, statementRow("Action", "Description", "Settle.Amt"))
	table = append(table, parsers.RawRow{"Generated 2024-01-31"})
	return append(table, dataRows...)
}

func settlementRow(pin, action, payout, rate string) parsers.RawRow {
	row := make(parsers.RawRow, 13)
	row[3] = pin
	row[5] = action
	row[10] = payout
	row[12] = rate
	return row
}

func settlementTable(dataRows ...parsers.RawRow) parsers.RawTable {
	table := parsers.RawTable{
		{"Settlement Report"},
		settlementRow("PIN", "Action", "PayoutRoundAmt", "APIRate"),
	}
	return append(table, dataRows...)
}

func TestServiceReconcileTables(t *testing.T) {
	service, err := NewService(nil)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	// the duplicated pin reconciles through its Cancel row; the Dollar
	// Received row is carried but never matched
	stmt := statementTable(
		statementRow("Cancel", "ref 12345678901", "50.00"),
		statementRow("Dollar Received", "ref 12345678901", "50.00"),
		statementRow("Transfer", "ref 22222222222", "75.00"),
	)
	sett := settlementTable(
		settlementRow("12345678901.0", "Transfer", "48.00", "1.0"),
		settlementRow("33333333333", "Transfer", "10.00", "1.0"),
	)

	result, err := service.ReconcileTables(context.Background(), stmt, sett)
	if err != nil {
		t.Fatalf("ReconcileTables failed: %v", err)
	}

	if len(result.Results) != 3 {
		t.Fatalf("Expected 3 result rows, got %d", len(result.Results))
	}

	first := result.Results[0]
	if first.Pin.String() != "12345678901" {
		t.Errorf("Expected pin 12345678901 first, got %s", first.Pin)
	}
	if first.Classification != models.PresentInBoth {
		t.Errorf("Expected present-in-both, got %q", first.Classification)
	}
	if !first.AmountVariance.Valid {
		t.Fatal("Expected a variance value")
	}
	if got := first.AmountVariance.Decimal.String(); got != "-2" {
		t.Errorf("Expected variance -2, got %s", got)
	}
	if first.FinalStatus != models.StatusAmountMismatch {
		t.Errorf("Expected %s, got %s", models.StatusAmountMismatch, first.FinalStatus)
	}

	if result.Results[1].Classification != models.PresentInStatementOnly {
		t.Errorf("Expected statement-only for 22222222222, got %q", result.Results[1].Classification)
	}
	if result.Results[2].Classification != models.PresentInSettlementOnly {
		t.Errorf("Expected settlement-only for 33333333333, got %q", result.Results[2].Classification)
	}

	summary := result.Summary
	if summary == nil || summary.StatementStats == nil || summary.SettlementStats == nil || summary.MatchStats == nil {
		t.Fatal("Expected a fully populated summary")
	}
	if summary.StatementStats.RecordsKept != 3 {
		t.Errorf("Expected 3 statement records kept, got %d", summary.StatementStats.RecordsKept)
	}
	if summary.MatchStats.PresentInBoth != 1 {
		t.Errorf("Expected 1 present-in-both, got %d", summary.MatchStats.PresentInBoth)
	}
	if result.ProcessedAt.IsZero() {
		t.Error("Expected a processed-at timestamp")
	}
}

func TestServiceReconcileTablesZeroRate(t *testing.T) {
	service, err := NewService(nil)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	stmt := statementTable(
		statementRow("Transfer", "ref 12345678901", "100.00"),
	)
	sett := settlementTable(
		settlementRow("12345678901", "Transfer", "100.00", "0"),
	)

	result, err := service.ReconcileTables(context.Background(), stmt, sett)
	if err != nil {
		t.Fatalf("ReconcileTables failed: %v", err)
	}

	if len(result.Results) != 1 {
		t.Fatalf("Expected 1 result row, got %d", len(result.Results))
	}
	row := result.Results[0]
	if row.Classification != models.PresentInBoth {
		t.Errorf("Expected present-in-both, got %q", row.Classification)
	}
	if row.SettlementAmountUSD.Valid {
		t.Error("Expected absent settlement USD amount for a zero rate")
	}
	if row.FinalStatus != models.StatusAmountMismatch {
		t.Errorf("Expected %s, got %s", models.StatusAmountMismatch, row.FinalStatus)
	}
	if result.Summary.SettlementStats.ZeroRates != 1 {
		t.Errorf("Expected 1 zero rate, got %d", result.Summary.SettlementStats.ZeroRates)
	}
}

func TestServiceReconcileTablesStructuralError(t *testing.T) {
	service, err := NewService(nil)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	stmt := statementTable(
		statementRow("Transfer", "ref 12345678901", "100.00"),
	)

	_, err = service.ReconcileTables(context.Background(), stmt, parsers.RawTable{})
	re, ok := errors.AsReconcilerError(err)
	if !ok {
		t.Fatalf("Expected ReconcilerError, got %v", err)
	}
	if re.Code != errors.CodeEmptyTable {
		t.Errorf("Expected code %s, got %s", errors.CodeEmptyTable, re.Code)
	}
}

func TestServiceRunValidation(t *testing.T) {
	service, err := NewService(nil)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	tests := []struct {
		name    string
		request *RunRequest
	}{
		{"missing statement file", &RunRequest{SettlementFile: "settlement.csv"}},
		{"missing settlement file", &RunRequest{StatementFile: "statement.csv"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Run(context.Background(), tt.request)
			re, ok := errors.AsReconcilerError(err)
			if !ok {
				t.Fatalf("Expected ReconcilerError, got %v", err)
			}
			if re.Category != errors.CategoryConfiguration {
				t.Errorf("Expected configuration error, got %s", re.Category)
			}
		})
	}
}

func TestServiceRunMissingFile(t *testing.T) {
	service, err := NewService(nil)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	_, err = service.Run(context.Background(), &RunRequest{
		StatementFile:  "/nonexistent/statement.csv",
		SettlementFile: "/nonexistent/settlement.csv",
	})
	re, ok := errors.AsReconcilerError(err)
	if !ok {
		t.Fatalf("Expected ReconcilerError, got %v", err)
	}
	if re.Code != errors.CodeFileNotFound {
		t.Errorf("Expected code %s, got %s", errors.CodeFileNotFound, re.Code)
	}
}

func TestServiceReconcileTablesCancelledContext(t *testing.T) {
	service, err := NewService(nil)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stmt := statementTable(statementRow("Transfer", "ref 12345678901", "1.00"))
	sett := settlementTable(settlementRow("12345678901", "Transfer", "1.00", "1.0"))

	_, err = service.ReconcileTables(ctx, stmt, sett)
	if err == nil {
		t.Fatal("Expected error for a cancelled context")
	}
}
