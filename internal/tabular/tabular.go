// internal/tabular/tabular.go

// Package tabular reads delimited and spreadsheet data as a single-pass row
// stream with explicit header resolution. A Cursor is forward-only and owns
// its source: exhausting, abandoning or closing it releases the underlying
// reader.
package tabular

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	xerrors "github.com/valpere/DataRetriever/internal/errors"
)

// SkipRow is returned by a RowFunc to drop the current row from the stream.
var SkipRow = errors.New("skip row")

// RowFunc transforms or filters one row. It receives the header list as
// resolved from the source, before any insertions, and the raw row. It may
// return a replacement row (sized to the post-insertion headers to populate
// inserted columns), or SkipRow to drop the row.
type RowFunc func(headers []string, row []string) ([]string, error)

// Insertion adds a synthetic column name at a 0-based position in the
// resolved header list. Insertions are applied in order, each shifting the
// positions after it. Inserted columns carry no source data; only a RowFunc
// can populate them.
type Insertion struct {
	Position int
	Name     string
}

// Options controls header resolution and row handling. Exactly one of
// Headers, HeaderRows and HeaderRow must be set: explicit column names, a
// list of 1-based header row numbers concatenated column-wise, or a single
// 1-based header row.
type Options struct {
	Headers    []string
	HeaderRows []int
	HeaderRow  int

	Insertions []Insertion
	RowFunc    RowFunc

	// KeepBlankRows retains rows whose fields are all empty; they are
	// dropped by default.
	KeepBlankRows bool

	// Delimiter overrides the field delimiter for delimited sources. When
	// zero it is inferred from the format (tab for tsv, comma otherwise).
	Delimiter rune

	// Format names the source format ("csv", "tsv", "xlsx"); when empty it
	// is inferred from the file extension, defaulting to csv.
	Format string

	// Encoding is the IANA name of the source text encoding. UTF-8 with an
	// optional byte order mark is assumed when empty.
	Encoding string

	// Sheet selects the worksheet of a spreadsheet source; the first sheet
	// is used when empty.
	Sheet string
}

// rowSource hands out raw rows one at a time, returning io.EOF at the end.
type rowSource interface {
	next() ([]string, error)
	close() error
}

func (o Options) delimiter() rune {
	if o.Delimiter != 0 {
		return o.Delimiter
	}
	if o.Format == "tsv" {
		return '\t'
	}
	return ','
}

// formatForPath infers the source format from the file extension when none
// was configured.
func formatForPath(path string, opts Options) string {
	if opts.Format != "" {
		return opts.Format
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return "xlsx"
	case ".tsv", ".tab":
		return "tsv"
	default:
		return "csv"
	}
}

// OpenReader opens a cursor over a delimited stream. The cursor takes
// ownership of rc and closes it when done.
func OpenReader(rc io.ReadCloser, opts Options) (*Cursor, error) {
	src, err := newDelimitedSource(rc, opts)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return newCursor(src, opts)
}

// OpenFile opens a cursor over a file, dispatching on format: spreadsheets
// go through the xlsx source, everything else is read as delimited text.
func OpenFile(path string, opts Options) (*Cursor, error) {
	format := formatForPath(path, opts)
	if format == "xlsx" {
		src, err := newExcelSource(path, opts.Sheet)
		if err != nil {
			return nil, err
		}
		return newCursor(src, opts)
	}
	opts.Format = format
	file, err := openFileReader(path)
	if err != nil {
		return nil, err
	}
	return OpenReader(file, opts)
}

// resolveHeaders consumes rows from src up to the highest designated header
// row, concatenating the designated rows column-wise, and returns the header
// list. With explicit Headers no rows are consumed, matching sources whose
// first row already carries data.
func resolveHeaders(src rowSource, opts Options) ([]string, error) {
	if len(opts.Headers) > 0 {
		if len(opts.HeaderRows) > 0 || opts.HeaderRow > 0 {
			return nil, &xerrors.ConfigurationError{
				Reason: "explicit headers cannot be combined with header row numbers",
			}
		}
		return append([]string(nil), opts.Headers...), nil
	}

	headerRows := opts.HeaderRows
	if len(headerRows) == 0 && opts.HeaderRow > 0 {
		headerRows = []int{opts.HeaderRow}
	}
	if len(headerRows) == 0 {
		return nil, &xerrors.ConfigurationError{
			Reason: "a header specification is required: a row number, row numbers or explicit names",
		}
	}

	maxRow := 0
	wanted := make(map[int]int, len(headerRows)) // row number -> order
	for i, n := range headerRows {
		if n < 1 {
			return nil, &xerrors.ConfigurationError{
				Reason: fmt.Sprintf("header row numbers are 1-based, got %d", n),
			}
		}
		wanted[n] = i
		if n > maxRow {
			maxRow = n
		}
	}

	parts := make([][]string, len(headerRows))
	for rowNum := 1; rowNum <= maxRow; rowNum++ {
		row, err := src.next()
		if err == io.EOF {
			return nil, &xerrors.DecodeError{
				Format: "tabular",
				Err:    fmt.Errorf("source ended before header row %d", rowNum),
			}
		}
		if err != nil {
			return nil, err
		}
		if i, ok := wanted[rowNum]; ok {
			parts[i] = row
		}
	}
	return concatHeaders(parts), nil
}

// concatHeaders merges multi-line header rows column-wise, joining the
// non-empty cells of each column with a space.
func concatHeaders(parts [][]string) []string {
	width := 0
	for _, part := range parts {
		if len(part) > width {
			width = len(part)
		}
	}
	headers := make([]string, width)
	for col := 0; col < width; col++ {
		var cells []string
		for _, part := range parts {
			if col < len(part) {
				if cell := strings.TrimSpace(part[col]); cell != "" {
					cells = append(cells, cell)
				}
			}
		}
		headers[col] = strings.Join(cells, " ")
	}
	return headers
}

// applyInsertions produces the final header list from the resolved one.
func applyInsertions(headers []string, insertions []Insertion) ([]string, error) {
	out := append([]string(nil), headers...)
	for _, ins := range insertions {
		if ins.Position < 0 || ins.Position > len(out) {
			return nil, &xerrors.ConfigurationError{
				Reason: fmt.Sprintf("header insertion position %d out of range 0..%d", ins.Position, len(out)),
			}
		}
		out = append(out, "")
		copy(out[ins.Position+1:], out[ins.Position:])
		out[ins.Position] = ins.Name
	}
	return out, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
