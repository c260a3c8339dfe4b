package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"partner-reconciliation-service/cmd/reconciler/config"
	"partner-reconciliation-service/internal/reconciler"
	"partner-reconciliation-service/internal/reporter"
)

// Flags for the reconcile command
var (
	statementFile     string
	settlementFile    string
	outputFormat      string
	outputFile        string
	amountTolerance   float64
	statementColumns  string
	settlementColumns string
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a partner statement with a settlement report",
	Long: `Reconcile compares partner statement records with the settlement
report of the payment processor, keyed by the 11-digit payout pin.

This command requires:
- A partner statement file (CSV or legacy XLS)
- A settlement report file (CSV or legacy XLS)

Examples:
  # Basic reconciliation
  reconciler reconcile --statement-file statement.xls --settlement-file settlement.csv

  # Custom output format and file
  reconciler reconcile -s statement.csv -e settlement.csv \
    --output-format csv --output-file report.csv

  # Looser amount tolerance (dollars)
  reconciler reconcile -s statement.csv -e settlement.csv --amount-tolerance 0.05

  # Non-standard column positions
  reconciler reconcile -s statement.csv -e settlement.csv \
    --statement-columns "B,D,L" --settlement-columns "D,F,K,M"`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Required flags
	reconcileCmd.Flags().StringVarP(&statementFile, "statement-file", "s", "", "path to the partner statement file (required)")
	reconcileCmd.Flags().StringVarP(&settlementFile, "settlement-file", "e", "", "path to the settlement report file (required)")

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	// Matching configuration flags
	reconcileCmd.Flags().Float64VarP(&amountTolerance, "amount-tolerance", "a", 0.01, "maximum reconciled variance in dollars")

	// Layout override flags
	reconcileCmd.Flags().StringVar(&statementColumns, "statement-columns", "", "statement column letters as action,description,amount (default B,D,L)")
	reconcileCmd.Flags().StringVar(&settlementColumns, "settlement-columns", "", "settlement column letters as pin,action,payout,rate (default D,F,K,M)")

	reconcileCmd.MarkFlagRequired("statement-file")
	reconcileCmd.MarkFlagRequired("settlement-file")

	viper.BindPFlag("statement-file", reconcileCmd.Flags().Lookup("statement-file"))
	viper.BindPFlag("settlement-file", reconcileCmd.Flags().Lookup("settlement-file"))
	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("amount-tolerance", reconcileCmd.Flags().Lookup("amount-tolerance"))
	viper.BindPFlag("statement-columns", reconcileCmd.Flags().Lookup("statement-columns"))
	viper.BindPFlag("settlement-columns", reconcileCmd.Flags().Lookup("settlement-columns"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Viper values allow overrides from config file and environment
	statementFile = viper.GetString("statement-file")
	settlementFile = viper.GetString("settlement-file")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	amountTolerance = viper.GetFloat64("amount-tolerance")
	statementColumns = viper.GetString("statement-columns")
	settlementColumns = viper.GetString("settlement-columns")

	if statementFile == "" {
		return fmt.Errorf("statement-file is required")
	}
	if settlementFile == "" {
		return fmt.Errorf("settlement-file is required")
	}

	if err := validateFileExists(statementFile, "partner statement file"); err != nil {
		return err
	}
	if err := validateFileExists(settlementFile, "settlement report file"); err != nil {
		return err
	}

	if !reporter.OutputFormat(outputFormat).IsValid() {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	if amountTolerance < 0 {
		return fmt.Errorf("amount tolerance cannot be negative")
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting reconciliation...\n")
		fmt.Fprintf(os.Stderr, "Statement file: %s\n", statementFile)
		fmt.Fprintf(os.Stderr, "Settlement file: %s\n", settlementFile)
		fmt.Fprintf(os.Stderr, "Output format: %s\n", outputFormat)
		if outputFile != "" {
			fmt.Fprintf(os.Stderr, "Output file: %s\n", outputFile)
		}
	}

	serviceConfig, err := config.CreateServiceConfig(statementColumns, settlementColumns, amountTolerance)
	if err != nil {
		return err
	}

	service, err := reconciler.NewService(serviceConfig)
	if err != nil {
		return fmt.Errorf("failed to create reconciliation service: %w", err)
	}

	result, err := service.Run(ctx, &reconciler.RunRequest{
		StatementFile:  statementFile,
		SettlementFile: settlementFile,
	})
	if err != nil {
		return err
	}

	reportConfig, err := config.CreateReportConfig(outputFormat)
	if err != nil {
		return err
	}
	generator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return fmt.Errorf("failed to create report generator: %w", err)
	}

	writer := os.Stdout
	if outputFile != "" {
		file, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		writer = file
	}

	if err := generator.GenerateReport(result, writer); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if outputFile != "" && viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", outputFile)
	}

	return nil
}
