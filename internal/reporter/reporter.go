// Package reporter renders reconciliation run results.
//
// Supported output formats:
//   - Console: human-readable summary and result table for terminal display
//   - JSON: the full run result for programmatic consumption
//   - CSV: one row per reconciled pin for spreadsheet applications
//
// Absent amounts (a pin missing on one side, or a settlement amount
// that could not be derived) render as empty cells in every format
// rather than as zeroes.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"partner-reconciliation-service/internal/models"
	"partner-reconciliation-service/internal/reconciler"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// amountScale is the display precision for report amounts
const amountScale = 2

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// IncludeSummary adds the per-stage statistics to console output
	IncludeSummary bool `json:"include_summary"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:         FormatConsole,
		IncludeSummary: true,
		CSVDelimiter:   ',',
		CSVHeaders:     true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	return nil
}

// ReportGenerator renders run results in the configured format
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a report generator. A nil config uses
// DefaultReportConfig.
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{config: config}, nil
}

// GenerateReport renders a run result to the provided writer
func (rg *ReportGenerator) GenerateReport(result *reconciler.RunResult, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("run result cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(result, writer)
	case FormatJSON:
		return rg.generateJSONReport(result, writer)
	case FormatCSV:
		return rg.generateCSVReport(result, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// csvHeaders is the fixed column order of the CSV report
var csvHeaders = []string{
	"PartnerPin",
	"Classification",
	"FinalStatus",
	"StatementAmount",
	"SettlementAmountUSD",
	"AmountVariance",
}

func (rg *ReportGenerator) generateCSVReport(result *reconciler.RunResult, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	if rg.config.CSVDelimiter != 0 {
		csvWriter.Comma = rg.config.CSVDelimiter
	}

	if rg.config.CSVHeaders {
		if err := csvWriter.Write(csvHeaders); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, row := range result.Results {
		record := []string{
			row.Pin.String(),
			row.Classification.String(),
			row.FinalStatus.String(),
			formatAmount(row.StatementAmount),
			formatAmount(row.SettlementAmountUSD),
			formatAmount(row.AmountVariance),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write result record: %w", err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func (rg *ReportGenerator) generateJSONReport(result *reconciler.RunResult, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func (rg *ReportGenerator) generateConsoleReport(result *reconciler.RunResult, writer io.Writer) error {
	fmt.Fprintf(writer, "RECONCILIATION REPORT\n")
	fmt.Fprintf(writer, "Generated: %s\n", result.ProcessedAt.Format(time.RFC3339))
	fmt.Fprintf(writer, "Processing Duration: %v\n\n", result.Duration)

	if rg.config.IncludeSummary && result.Summary != nil {
		fmt.Fprintf(writer, "=== SUMMARY ===\n")
		rg.printSummary(result.Summary, writer)
		fmt.Fprintf(writer, "\n")
	}

	fmt.Fprintf(writer, "=== RESULTS ===\n")
	fmt.Fprintf(writer, "%-13s %-17s %-22s %12s %12s %10s\n",
		"PartnerPin", "Classification", "FinalStatus", "Statement", "Settlement", "Variance")
	for _, row := range result.Results {
		fmt.Fprintf(writer, "%-13s %-17s %-22s %12s %12s %10s\n",
			row.Pin.String(),
			shortClassification(row.Classification),
			row.FinalStatus.String(),
			formatAmount(row.StatementAmount),
			formatAmount(row.SettlementAmountUSD),
			formatAmount(row.AmountVariance))
	}

	return nil
}

func (rg *ReportGenerator) printSummary(summary *reconciler.Summary, writer io.Writer) {
	if summary.StatementStats != nil {
		fmt.Fprintf(writer, "Statement:  %s\n", summary.StatementStats)
	}
	if summary.SettlementStats != nil {
		fmt.Fprintf(writer, "Settlement: %s\n", summary.SettlementStats)
	}
	if m := summary.MatchStats; m != nil {
		fmt.Fprintf(writer, "Matching:   %d in both (%d reconciled, %d mismatched), %d statement only, %d settlement only\n",
			m.PresentInBoth, m.Reconciled, m.AmountMismatches, m.StatementOnly, m.SettlementOnly)
		if m.KeyCollisions > 0 {
			fmt.Fprintf(writer, "Collisions: %d eligible rows folded by pin\n", m.KeyCollisions)
		}
	}
}

// shortClassification maps the report wording to a label narrow enough
// for the console table
func shortClassification(c models.Classification) string {
	switch c {
	case models.PresentInBoth:
		return "Both"
	case models.PresentInStatementOnly:
		return "Statement only"
	case models.PresentInSettlementOnly:
		return "Settlement only"
	default:
		return string(c)
	}
}

// formatAmount renders an amount at cent precision, or an empty cell
// when the amount is absent
func formatAmount(amount decimal.NullDecimal) string {
	if !amount.Valid {
		return ""
	}
	return amount.Decimal.StringFixed(amountScale)
}
