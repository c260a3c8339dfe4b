// Package parsers loads the raw tabular inputs of a reconciliation run.
//
// Both source files arrive with fixed, position-based column layouts:
// meaning is assigned by column index (spreadsheet letter), never by
// header name. The package therefore exposes inputs as plain RawTable
// values and a declarative TableLayout per source that resolves column
// letters to indices and names the fixed boilerplate rows to discard.
//
// Supported input formats:
//   - CSV (encoding/csv with a variable field count per record)
//   - legacy XLS workbooks (github.com/extrame/xls)
//
// Structural problems - an unreadable file, an empty table, a table too
// narrow for its layout - are fatal to the run and surface as
// categorized errors. Per-row data problems are the normalizers'
// business, not this package's.
package parsers

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"partner-reconciliation-service/pkg/errors"
	"partner-reconciliation-service/pkg/logger"
)

// RawRow is an ordered sequence of cell values positioned by column index
type RawRow []string

// Cell returns the value at the given column index, or the empty string
// when the row is too short to carry that column
func (r RawRow) Cell(index int) string {
	if index < 0 || index >= len(r) {
		return ""
	}
	return r[index]
}

// RawTable is an in-memory tabular input, one RawRow per file row
type RawTable []RawRow

// Format identifies a supported input file format
type Format string

const (
	FormatCSV Format = "csv"
	FormatXLS Format = "xls"
)

// DetectFormat picks the input format from a file name extension.
// Anything that is not a legacy .xls workbook is read as CSV.
func DetectFormat(fileName string) Format {
	if strings.EqualFold(filepath.Ext(fileName), ".xls") {
		return FormatXLS
	}
	return FormatCSV
}

// LoadTable reads a whole input file into a RawTable, dispatching on
// the file extension
func LoadTable(filePath string) (RawTable, error) {
	log := logger.GetGlobalLogger().WithComponent("parsers")
	log.WithFields(logger.Fields{
		"file_path": filePath,
		"format":    string(DetectFormat(filePath)),
	}).Debug("Loading raw table")

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, filePath, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, filePath, err)
		}
		return nil, errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}
	defer file.Close()

	table, err := ReadTable(file, DetectFormat(filePath))
	if err != nil {
		log.WithError(err).WithField("file_path", filePath).Error("Failed to read raw table")
		return nil, err
	}

	log.WithFields(logger.Fields{
		"file_path": filePath,
		"rows":      len(table),
	}).Debug("Loaded raw table")
	return table, nil
}

// ReadTable reads a RawTable from an already-open input in the given
// format. The reader must support seeking for XLS input.
func ReadTable(r io.ReadSeeker, format Format) (RawTable, error) {
	switch format {
	case FormatXLS:
		return ReadXLS(r)
	default:
		return ReadCSV(r)
	}
}

// ReadCSV reads a RawTable from CSV input. Records may have a variable
// number of fields; short rows simply read as empty cells later.
func ReadCSV(r io.Reader) (RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var table RawTable
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.ParseError(errors.CodeInvalidFormat, "input", err.Error(), err)
		}
		table = append(table, RawRow(record))
	}

	return table, nil
}
