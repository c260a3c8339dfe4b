package reporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"partner-reconciliation-service/internal/matcher"
	"partner-reconciliation-service/internal/models"
	"partner-reconciliation-service/internal/normalizer"
	"partner-reconciliation-service/internal/reconciler"
)

func amount(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

func sampleRunResult() *reconciler.RunResult {
	return &reconciler.RunResult{
		Results: []*models.ReconciliationResult{
			{
				Pin:                 "11111111111",
				Classification:      models.PresentInBoth,
				FinalStatus:         models.StatusReconciled,
				StatementAmount:     amount("100.00"),
				SettlementAmountUSD: amount("100.00"),
				AmountVariance:      amount("0"),
			},
			{
				Pin:                 "22222222222",
				Classification:      models.PresentInBoth,
				FinalStatus:         models.StatusAmountMismatch,
				StatementAmount:     amount("100.00"),
				SettlementAmountUSD: amount("97.5512"),
				AmountVariance:      amount("-2.45"),
			},
			{
				Pin:             "33333333333",
				Classification:  models.PresentInStatementOnly,
				FinalStatus:     models.StatusMissingInSettlement,
				StatementAmount: amount("50.00"),
			},
		},
		Summary: &reconciler.Summary{
			StatementStats:  &normalizer.NormalizeStats{RowsRead: 14, RecordsKept: 3},
			SettlementStats: &normalizer.NormalizeStats{RowsRead: 4, RecordsKept: 2},
			MatchStats:      &matcher.MatchStats{PresentInBoth: 2, StatementOnly: 1, Reconciled: 1, AmountMismatches: 1},
		},
		ProcessedAt: time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC),
		Duration:    125 * time.Millisecond,
	}
}

func TestGenerateCSVReport(t *testing.T) {
	rg, err := NewReportGenerator(&ReportConfig{Format: FormatCSV, CSVDelimiter: ',', CSVHeaders: true})
	if err != nil {
		t.Fatalf("NewReportGenerator failed: %v", err)
	}

	var buf bytes.Buffer
	if err := rg.GenerateReport(sampleRunResult(), &buf); err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected 4 CSV lines, got %d:\n%s", len(lines), buf.String())
	}
	if lines[0] != "PartnerPin,Classification,FinalStatus,StatementAmount,SettlementAmountUSD,AmountVariance" {
		t.Errorf("Unexpected header line: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "11111111111,") {
		t.Errorf("Expected first data row for 11111111111, got %s", lines[1])
	}
	if !strings.Contains(lines[2], "-2.45") {
		t.Errorf("Expected rounded variance in row, got %s", lines[2])
	}
	// absent settlement amount and variance render as empty cells
	if !strings.HasSuffix(lines[3], ",50.00,,") {
		t.Errorf("Expected empty trailing cells for statement-only row, got %s", lines[3])
	}
}

func TestGenerateCSVReportWithoutHeaders(t *testing.T) {
	rg, err := NewReportGenerator(&ReportConfig{Format: FormatCSV, CSVDelimiter: ';', CSVHeaders: false})
	if err != nil {
		t.Fatalf("NewReportGenerator failed: %v", err)
	}

	var buf bytes.Buffer
	if err := rg.GenerateReport(sampleRunResult(), &buf); err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 CSV lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], ";") {
		t.Errorf("Expected semicolon delimiter, got %s", lines[0])
	}
}

func TestGenerateJSONReport(t *testing.T) {
	rg, err := NewReportGenerator(&ReportConfig{Format: FormatJSON})
	if err != nil {
		t.Fatalf("NewReportGenerator failed: %v", err)
	}

	var buf bytes.Buffer
	if err := rg.GenerateReport(sampleRunResult(), &buf); err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}

	var decoded struct {
		Results []struct {
			Pin            string `json:"partner_pin"`
			Classification string `json:"classification"`
			FinalStatus    string `json:"final_status"`
		} `json:"results"`
		Summary struct {
			MatchStats struct {
				PresentInBoth int `json:"present_in_both"`
			} `json:"match_stats"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Report is not valid JSON: %v", err)
	}

	if len(decoded.Results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(decoded.Results))
	}
	if decoded.Results[0].Pin != "11111111111" {
		t.Errorf("Expected pin 11111111111, got %s", decoded.Results[0].Pin)
	}
	if decoded.Results[0].FinalStatus != "Reconciled" {
		t.Errorf("Expected Reconciled, got %s", decoded.Results[0].FinalStatus)
	}
	if decoded.Summary.MatchStats.PresentInBoth != 2 {
		t.Errorf("Expected 2 present-in-both, got %d", decoded.Summary.MatchStats.PresentInBoth)
	}
}

func TestGenerateConsoleReport(t *testing.T) {
	rg, err := NewReportGenerator(nil)
	if err != nil {
		t.Fatalf("NewReportGenerator failed: %v", err)
	}

	var buf bytes.Buffer
	if err := rg.GenerateReport(sampleRunResult(), &buf); err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"RECONCILIATION REPORT",
		"=== SUMMARY ===",
		"=== RESULTS ===",
		"11111111111",
		"22222222222",
		"33333333333",
		"Statement only",
		"Missing in Settlement",
		"-2.45",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Console report missing %q:\n%s", want, out)
		}
	}
}

func TestGenerateReportErrors(t *testing.T) {
	t.Run("invalid format", func(t *testing.T) {
		if _, err := NewReportGenerator(&ReportConfig{Format: "xml"}); err == nil {
			t.Fatal("Expected error for unsupported format")
		}
	})

	t.Run("nil result", func(t *testing.T) {
		rg, err := NewReportGenerator(nil)
		if err != nil {
			t.Fatalf("NewReportGenerator failed: %v", err)
		}
		if err := rg.GenerateReport(nil, &bytes.Buffer{}); err == nil {
			t.Fatal("Expected error for nil result")
		}
	})
}

func TestShortClassification(t *testing.T) {
	tests := []struct {
		classification models.Classification
		want           string
	}{
		{models.PresentInBoth, "Both"},
		{models.PresentInStatementOnly, "Statement only"},
		{models.PresentInSettlementOnly, "Settlement only"},
	}
	for _, tt := range tests {
		if got := shortClassification(tt.classification); got != tt.want {
			t.Errorf("shortClassification(%q) = %q, want %q", tt.classification, got, tt.want)
		}
	}
}
