// Package normalizer turns raw statement and settlement tables into
// tagged, duplicate-aware record lists ready for matching.
//
// Each normalizer discards its source's fixed boilerplate rows, extracts
// the PartnerPin from the configured column, parses amounts, computes
// duplicate groups over the surviving pins and applies the per-source
// eligibility rules. Row-level problems (no extractable pin, an
// unparseable amount, a zero rate) exclude or degrade the single row and
// are counted in NormalizeStats; they never abort the run. Normalizers
// are pure over their inputs: the raw table is read-only and every call
// produces a fresh record list.
package normalizer

import "fmt"

// NormalizeStats summarizes what happened to the rows of one source
// table during normalization. The counters back the skipped-row summary
// reported with each run.
type NormalizeStats struct {
	// RowsRead is the raw row count including boilerplate
	RowsRead int `json:"rows_read"`
	// RowsDiscarded counts the fixed header/footer rows dropped up front
	RowsDiscarded int `json:"rows_discarded"`
	// RecordsKept counts rows that produced a normalized record
	RecordsKept int `json:"records_kept"`
	// EligibleRecords counts kept records tagged should-reconcile
	EligibleRecords int `json:"eligible_records"`

	// MalformedKeys counts rows excluded because no 11-digit trailing
	// pin could be extracted
	MalformedKeys int `json:"malformed_keys"`
	// UnparseableAmounts counts rows whose amount fields failed to parse
	UnparseableAmounts int `json:"unparseable_amounts"`
	// ZeroRates counts settlement rows kept with an absent USD amount
	// because the API rate was zero
	ZeroRates int `json:"zero_rates"`
	// DuplicatePins counts kept records that share their pin with at
	// least one other kept record
	DuplicatePins int `json:"duplicate_pins"`
}

// RowsSkipped returns the number of candidate rows excluded entirely.
// Statement rows with an unparseable amount are skipped; settlement
// rows with one are kept without a USD amount, so the count is derived
// rather than summed from the failure counters.
func (s *NormalizeStats) RowsSkipped() int {
	return s.RowsRead - s.RowsDiscarded - s.RecordsKept
}

// String returns a human-readable summary of the normalization
func (s *NormalizeStats) String() string {
	return fmt.Sprintf("read %d rows (%d boilerplate), kept %d records (%d eligible), skipped %d (%d unkeyed, %d bad amounts, %d zero rates)",
		s.RowsRead, s.RowsDiscarded, s.RecordsKept, s.EligibleRecords,
		s.RowsSkipped(), s.MalformedKeys, s.UnparseableAmounts, s.ZeroRates)
}
