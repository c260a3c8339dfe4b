package matcher

import (
	"testing"

	"github.com/shopspring/decimal"

	"partner-reconciliation-service/internal/models"
)

func stmtRecord(pin, amount string, eligible bool) *models.StatementRecord {
	return &models.StatementRecord{
		Pin:               models.PartnerPin(pin),
		ActionLabel:       "Transfer",
		SettleAmount:      decimal.RequireFromString(amount),
		ReconcileEligible: eligible,
	}
}

func settRecord(pin, amountUSD string, eligible bool) *models.SettlementRecord {
	r := &models.SettlementRecord{
		Pin:               models.PartnerPin(pin),
		ActionLabel:       "Transfer",
		ReconcileEligible: eligible,
	}
	if amountUSD != "" {
		r.AmountUSD = decimal.NullDecimal{
			Decimal: decimal.RequireFromString(amountUSD),
			Valid:   true,
		}
	}
	return r
}

func TestEngineMatchClassification(t *testing.T) {
	engine, err := NewEngine(nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	statements := []*models.StatementRecord{
		stmtRecord("22222222222", "100.00", true),
		stmtRecord("11111111111", "50.00", true),
	}
	settlements := []*models.SettlementRecord{
		stmtSettlement("22222222222", "100.00"),
		stmtSettlement("33333333333", "75.00"),
	}

	results, stats, err := engine.Match(statements, settlements)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("Expected 3 result rows, got %d", len(results))
	}

	// rows come back ordered by pin
	wantOrder := []string{"11111111111", "22222222222", "33333333333"}
	for i, pin := range wantOrder {
		if results[i].Pin.String() != pin {
			t.Errorf("Row %d: expected pin %s, got %s", i, pin, results[i].Pin)
		}
	}

	if results[0].Classification != models.PresentInStatementOnly {
		t.Errorf("Expected statement-only, got %q", results[0].Classification)
	}
	if results[0].FinalStatus != models.StatusMissingInSettlement {
		t.Errorf("Expected %s, got %s", models.StatusMissingInSettlement, results[0].FinalStatus)
	}
	if results[1].Classification != models.PresentInBoth {
		t.Errorf("Expected present-in-both, got %q", results[1].Classification)
	}
	if results[1].FinalStatus != models.StatusReconciled {
		t.Errorf("Expected %s, got %s", models.StatusReconciled, results[1].FinalStatus)
	}
	if results[2].Classification != models.PresentInSettlementOnly {
		t.Errorf("Expected settlement-only, got %q", results[2].Classification)
	}
	if results[2].FinalStatus != models.StatusMissingInStatement {
		t.Errorf("Expected %s, got %s", models.StatusMissingInStatement, results[2].FinalStatus)
	}

	if stats.PresentInBoth != 1 || stats.StatementOnly != 1 || stats.SettlementOnly != 1 {
		t.Errorf("Unexpected classification counts: %+v", stats)
	}
}

// stmtSettlement builds an eligible settlement record with a USD amount
func stmtSettlement(pin, amountUSD string) *models.SettlementRecord {
	return settRecord(pin, amountUSD, true)
}

func TestEngineMatchVariance(t *testing.T) {
	engine, err := NewEngine(nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	tests := []struct {
		name         string
		statement    string
		settlement   string
		wantVariance string
		wantStatus   models.FinalStatus
	}{
		{"exact match", "100.00", "100.00", "0", models.StatusReconciled},
		{"mismatch rounded to cents", "100.00", "97.5512", "-2.45", models.StatusAmountMismatch},
		{"sub-cent variance rounds within tolerance", "100.00", "100.005", "0.01", models.StatusReconciled},
		{"two cents over", "100.00", "100.02", "0.02", models.StatusAmountMismatch},
		{"settlement short", "50.00", "48.00", "-2", models.StatusAmountMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statements := []*models.StatementRecord{stmtRecord("12345678901", tt.statement, true)}
			settlements := []*models.SettlementRecord{stmtSettlement("12345678901", tt.settlement)}

			results, _, err := engine.Match(statements, settlements)
			if err != nil {
				t.Fatalf("Match failed: %v", err)
			}
			if len(results) != 1 {
				t.Fatalf("Expected 1 result row, got %d", len(results))
			}

			r := results[0]
			if !r.AmountVariance.Valid {
				t.Fatal("Expected a variance value")
			}
			if got := r.AmountVariance.Decimal.String(); got != tt.wantVariance {
				t.Errorf("Expected variance %s, got %s", tt.wantVariance, got)
			}
			if r.FinalStatus != tt.wantStatus {
				t.Errorf("Expected status %s, got %s", tt.wantStatus, r.FinalStatus)
			}
		})
	}
}

func TestEngineMatchAbsentSettlementAmount(t *testing.T) {
	engine, err := NewEngine(nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	statements := []*models.StatementRecord{stmtRecord("12345678901", "100.00", true)}
	settlements := []*models.SettlementRecord{settRecord("12345678901", "", true)}

	results, stats, err := engine.Match(statements, settlements)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result row, got %d", len(results))
	}

	r := results[0]
	if r.Classification != models.PresentInBoth {
		t.Errorf("Expected present-in-both, got %q", r.Classification)
	}
	if r.AmountVariance.Valid {
		t.Error("Expected absent variance when the USD amount is absent")
	}
	if r.FinalStatus != models.StatusAmountMismatch {
		t.Errorf("Expected %s, got %s", models.StatusAmountMismatch, r.FinalStatus)
	}
	if stats.AmountMismatches != 1 {
		t.Errorf("Expected 1 mismatch, got %d", stats.AmountMismatches)
	}
}

func TestEngineMatchIgnoresIneligibleRecords(t *testing.T) {
	engine, err := NewEngine(nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	statements := []*models.StatementRecord{
		stmtRecord("11111111111", "50.00", true),
		stmtRecord("11111111111", "50.00", false),
		stmtRecord("99999999999", "10.00", false),
	}
	settlements := []*models.SettlementRecord{
		stmtSettlement("11111111111", "50.00"),
	}

	results, stats, err := engine.Match(statements, settlements)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("Expected 1 result row, got %d", len(results))
	}
	if results[0].Pin.String() != "11111111111" {
		t.Errorf("Expected pin 11111111111, got %s", results[0].Pin)
	}
	if results[0].FinalStatus != models.StatusReconciled {
		t.Errorf("Expected %s, got %s", models.StatusReconciled, results[0].FinalStatus)
	}

	if stats.StatementEligible != 1 || stats.StatementIgnored != 2 {
		t.Errorf("Expected 1 eligible / 2 ignored statement records, got %d / %d",
			stats.StatementEligible, stats.StatementIgnored)
	}
	if stats.KeyCollisions != 0 {
		t.Errorf("Ineligible records must not collide, got %d collisions", stats.KeyCollisions)
	}
}

func TestEngineMatchFoldsCollidingRecords(t *testing.T) {
	engine, err := NewEngine(nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	// two eligible statement rows sharing a pin fold into one row by sum
	statements := []*models.StatementRecord{
		stmtRecord("11111111111", "30.00", true),
		stmtRecord("11111111111", "20.00", true),
	}
	settlements := []*models.SettlementRecord{
		stmtSettlement("11111111111", "50.00"),
	}

	results, stats, err := engine.Match(statements, settlements)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result row, got %d", len(results))
	}

	r := results[0]
	if !r.StatementAmount.Valid {
		t.Fatal("Expected a statement amount")
	}
	if got := r.StatementAmount.Decimal.String(); got != "50" {
		t.Errorf("Expected folded amount 50, got %s", got)
	}
	if r.FinalStatus != models.StatusReconciled {
		t.Errorf("Expected %s, got %s", models.StatusReconciled, r.FinalStatus)
	}
	if stats.KeyCollisions != 1 {
		t.Errorf("Expected 1 key collision, got %d", stats.KeyCollisions)
	}
}

func TestEngineMatchCompleteness(t *testing.T) {
	engine, err := NewEngine(nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	statements := []*models.StatementRecord{
		stmtRecord("11111111111", "1.00", true),
		stmtRecord("22222222222", "2.00", true),
		stmtRecord("33333333333", "3.00", true),
	}
	settlements := []*models.SettlementRecord{
		stmtSettlement("33333333333", "3.00"),
		stmtSettlement("44444444444", "4.00"),
	}

	results, _, err := engine.Match(statements, settlements)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	seen := make(map[models.PartnerPin]int)
	for _, r := range results {
		seen[r.Pin]++
	}
	for _, pin := range []models.PartnerPin{"11111111111", "22222222222", "33333333333", "44444444444"} {
		if seen[pin] != 1 {
			t.Errorf("Pin %s: expected exactly 1 result row, got %d", pin, seen[pin])
		}
	}
	if len(results) != 4 {
		t.Errorf("Expected 4 result rows, got %d", len(results))
	}
}

func TestEngineMatchEmptyInputs(t *testing.T) {
	engine, err := NewEngine(nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	results, stats, err := engine.Match(nil, nil)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected no result rows, got %d", len(results))
	}
	if stats.PresentInBoth+stats.StatementOnly+stats.SettlementOnly != 0 {
		t.Errorf("Expected empty stats, got %+v", stats)
	}
}

func TestNewEngineRejectsNegativeTolerance(t *testing.T) {
	config := &Config{AmountTolerance: decimal.New(-1, -2)}
	if _, err := NewEngine(config); err == nil {
		t.Fatal("Expected error for negative tolerance")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Default config must validate, got %v", err)
	}
	bad := &Config{AmountTolerance: decimal.New(-5, -2)}
	if err := bad.Validate(); err == nil {
		t.Error("Expected validation error for negative tolerance")
	}
}
