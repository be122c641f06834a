package parser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"

	"github.com/liftdiag/internal/database"
	"github.com/liftdiag/internal/logging"
	"github.com/liftdiag/internal/textnorm"
)

// Format identifies the container of a source file
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat picks the format from the file extension.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Record is one normalised spreadsheet row
type Record struct {
	Line int

	InstallationID  string
	Name            string
	DependencyGroup string
	CommissionedOn  time.Time
	CommissionedRaw string

	// Incident is nil when the row only describes the installation.
	Incident *database.Incident
}

// ParseResult contains the records of one source and metadata
type ParseResult struct {
	Source        string
	Format        Format
	Records       []Record
	SkippedRows   int
	ProcessedDate time.Time
}

// Parser reads incident spreadsheets
type Parser struct {
	verbose bool
	fs      afero.Fs
}

// New creates a new parser instance reading from the OS filesystem
func New(verbose bool) *Parser {
	return &Parser{
		verbose: verbose,
		fs:      afero.NewOsFs(),
	}
}

// WithFs returns a parser reading files from fs
func (p *Parser) WithFs(fs afero.Fs) *Parser {
	return &Parser{verbose: p.verbose, fs: fs}
}

// ParseFile parses a CSV or XLSX file
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	f, err := p.fs.Open(path)
	if err != nil {
		return nil, NewFileError(path, "open", "cannot open file", err)
	}
	defer f.Close()

	return p.ParseReader(path, f)
}

// ParseReader parses the content of r, using name to pick the format.
func (p *Parser) ParseReader(name string, r io.Reader) (*ParseResult, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, NewFileError(name, "detect", "unsupported extension "+filepath.Ext(name), err)
	}

	var rows [][]string
	switch format {
	case FormatCSV:
		rows, err = readCSV(name, r)
	case FormatXLSX:
		rows, err = readXLSX(name, r)
	}
	if err != nil {
		return nil, err
	}

	return p.parseRows(name, format, rows)
}

func readCSV(name string, r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)

	// Peek at the header line to choose the delimiter.
	head, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, NewFileError(name, "read", "cannot read header", err)
	}
	firstLine := string(head)
	if i := strings.IndexByte(firstLine, '\n'); i >= 0 {
		firstLine = firstLine[:i]
	}

	cr := csv.NewReader(br)
	cr.Comma = detectDelimiter(firstLine)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		var csvErr *csv.ParseError
		if errors.As(err, &csvErr) {
			return nil, NewParseErrorWithCause(name, csvErr.Line, "malformed CSV", err)
		}
		return nil, NewFileError(name, "read", "cannot read CSV", err)
	}
	return rows, nil
}

func readXLSX(name string, r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, NewFileError(name, "open", "cannot open workbook", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, NewParseErrorWithCause(name, 0, "workbook has no sheets", ErrEmptySheet)
	}

	// Raw values keep date cells as serial numbers instead of locale text.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, NewFileError(name, "read", "cannot read sheet "+sheet, err)
	}
	return rows, nil
}

func (p *Parser) parseRows(name string, format Format, rows [][]string) (*ParseResult, error) {
	result := &ParseResult{
		Source:        name,
		Format:        format,
		ProcessedDate: time.Now(),
	}

	headerAt := -1
	for i, row := range rows {
		if !isBlankRow(row) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, NewParseErrorWithCause(name, 0, "file is empty", ErrEmptySheet)
	}

	columns := MapHeader(rows[headerAt])
	if !columns.Has(FieldInstallationID) {
		err := NewParseErrorWithCause(name, headerAt+1, "installation id column not found", ErrMissingColumn)
		err.Field = FieldInstallationID.String()
		return nil, err
	}

	for i := headerAt + 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}
		rec, ok := normalizeRow(columns, row)
		if !ok {
			result.SkippedRows++
			continue
		}
		rec.Line = i + 1
		result.Records = append(result.Records, rec)
	}

	if p.verbose {
		logging.Info("parsed source", logging.Source(name),
			logging.Count("record", len(result.Records)), logging.Count("skipped", result.SkippedRows))
	}
	return result, nil
}

// normalizeRow applies defaults and date parsing to one row. Rows without
// an installation id are rejected.
func normalizeRow(columns ColumnMap, row []string) (Record, bool) {
	id := columns.Value(row, FieldInstallationID)
	if id == "" {
		return Record{}, false
	}

	rec := Record{
		InstallationID:  id,
		Name:            orDefault(columns.Value(row, FieldName), database.DefaultName),
		DependencyGroup: orDefault(columns.Value(row, FieldDependency), database.DefaultDependencyGroup),
	}
	commissioned, ok := ParseDate(columns.Value(row, FieldCommissioned))
	if ok {
		rec.CommissionedOn = commissioned
	}
	rec.CommissionedRaw = FormatDate(commissioned, ok)

	if incidentID := columns.Value(row, FieldIncidentID); incidentID != "" {
		occurred, ok := ParseDate(columns.Value(row, FieldOccurred))
		inc := &database.Incident{
			ID:          incidentID,
			Description: columns.Value(row, FieldDescription),
			OccurredRaw: FormatDate(occurred, ok),
			Category:    NormalizeCategory(columns.Value(row, FieldCategory)),
		}
		if ok {
			inc.OccurredOn = occurred
		}
		rec.Incident = inc
	}

	return rec, true
}

// NormalizeCategory maps known category labels to their canonical spelling
// regardless of case and accents. Empty labels become the default category;
// other labels are kept as written.
func NormalizeCategory(label string) string {
	if label == "" {
		return database.DefaultCategory
	}
	switch textnorm.Fold(label) {
	case textnorm.Fold(database.CategoryInstallationFault):
		return database.CategoryInstallationFault
	case textnorm.Fold(database.CategoryAssemblyFault):
		return database.CategoryAssemblyFault
	}
	return label
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// String summarises a result for logs
func (r *ParseResult) String() string {
	incidents := 0
	for _, rec := range r.Records {
		if rec.Incident != nil {
			incidents++
		}
	}
	return fmt.Sprintf("%s: %d rows, %d incidents, %d skipped", r.Source, len(r.Records), incidents, r.SkippedRows)
}
