// Package reconciler orchestrates a complete reconciliation run: it
// loads the two raw input tables, normalizes them, joins the eligible
// records and assembles the run summary.
package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"partner-reconciliation-service/internal/matcher"
	"partner-reconciliation-service/internal/models"
	"partner-reconciliation-service/internal/normalizer"
	"partner-reconciliation-service/internal/parsers"
	"partner-reconciliation-service/pkg/errors"
	"partner-reconciliation-service/pkg/logger"
)

// Service runs reconciliations end to end
type Service struct {
	statementNormalizer  *normalizer.StatementNormalizer
	settlementNormalizer *normalizer.SettlementNormalizer
	engine               *matcher.Engine
	logger               logger.Logger
}

// Config assembles the tunable pieces of a reconciliation run. Nil
// members fall back to the standard layouts and matcher defaults.
type Config struct {
	StatementLayout  *parsers.StatementLayout
	SettlementLayout *parsers.SettlementLayout
	Matcher          *matcher.Config
}

// NewService creates a reconciliation service from the given
// configuration. A nil config uses every default.
func NewService(config *Config) (*Service, error) {
	if config == nil {
		config = &Config{}
	}

	statementNormalizer, err := normalizer.NewStatementNormalizer(config.StatementLayout)
	if err != nil {
		return nil, err
	}
	settlementNormalizer, err := normalizer.NewSettlementNormalizer(config.SettlementLayout)
	if err != nil {
		return nil, err
	}
	engine, err := matcher.NewEngine(config.Matcher)
	if err != nil {
		return nil, err
	}

	return &Service{
		statementNormalizer:  statementNormalizer,
		settlementNormalizer: settlementNormalizer,
		engine:               engine,
		logger:               logger.GetGlobalLogger().WithComponent("reconciler"),
	}, nil
}

// RunRequest names the two input files of a run
type RunRequest struct {
	StatementFile  string
	SettlementFile string
}

// Validate checks that both input files are named
func (r *RunRequest) Validate() error {
	if r.StatementFile == "" {
		return fmt.Errorf("statement file path is required")
	}
	if r.SettlementFile == "" {
		return fmt.Errorf("settlement file path is required")
	}
	return nil
}

// Summary aggregates the per-stage statistics of one run
type Summary struct {
	StatementStats  *normalizer.NormalizeStats `json:"statement_stats"`
	SettlementStats *normalizer.NormalizeStats `json:"settlement_stats"`
	MatchStats      *matcher.MatchStats        `json:"match_stats"`
}

// RunResult is the complete outcome of one reconciliation run
type RunResult struct {
	Results []*models.ReconciliationResult `json:"results"`
	Summary *Summary                       `json:"summary"`

	ProcessedAt time.Time     `json:"processed_at"`
	Duration    time.Duration `json:"duration"`
}

// Run loads both input files and reconciles them
func (s *Service) Run(ctx context.Context, request *RunRequest) (*RunResult, error) {
	if err := request.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "run_request", request, err)
	}

	s.logger.WithFields(logger.Fields{
		"statement_file":  request.StatementFile,
		"settlement_file": request.SettlementFile,
	}).Info("Starting reconciliation run")

	statementTable, err := parsers.LoadTable(request.StatementFile)
	if err != nil {
		return nil, err
	}
	settlementTable, err := parsers.LoadTable(request.SettlementFile)
	if err != nil {
		return nil, err
	}

	return s.ReconcileTables(ctx, statementTable, settlementTable)
}

// ReconcileTables reconciles two already-loaded raw tables. The two
// normalizations are independent and run concurrently.
func (s *Service) ReconcileTables(ctx context.Context, statementTable, settlementTable parsers.RawTable) (*RunResult, error) {
	start := time.Now()

	var (
		wg sync.WaitGroup

		statements     []*models.StatementRecord
		statementStats *normalizer.NormalizeStats
		statementErr   error

		settlements     []*models.SettlementRecord
		settlementStats *normalizer.NormalizeStats
		settlementErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		statements, statementStats, statementErr = s.statementNormalizer.Normalize(statementTable)
	}()
	go func() {
		defer wg.Done()
		settlements, settlementStats, settlementErr = s.settlementNormalizer.Normalize(settlementTable)
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, errors.InternalError(errors.CodeUnexpectedError, "reconciliation run", err)
	}
	if statementErr != nil {
		return nil, statementErr
	}
	if settlementErr != nil {
		return nil, settlementErr
	}

	results, matchStats, err := s.engine.Match(statements, settlements)
	if err != nil {
		return nil, err
	}

	runResult := &RunResult{
		Results: results,
		Summary: &Summary{
			StatementStats:  statementStats,
			SettlementStats: settlementStats,
			MatchStats:      matchStats,
		},
		ProcessedAt: start,
		Duration:    time.Since(start),
	}

	s.logger.WithFields(logger.Fields{
		"result_rows": len(results),
		"duration":    runResult.Duration.String(),
	}).Info("Reconciliation run completed")

	return runResult, nil
}
