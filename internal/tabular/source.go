// internal/tabular/source.go
package tabular

import (
	"encoding/csv"
	"errors"
	"io"
	"os"

	xerrors "github.com/valpere/DataRetriever/internal/errors"
)

// delimitedSource streams rows out of CSV-like text via encoding/csv, with
// the text decoded per the configured character encoding first.
type delimitedSource struct {
	reader *csv.Reader
	closer io.Closer
}

func newDelimitedSource(rc io.ReadCloser, opts Options) (*delimitedSource, error) {
	decoded, err := decodeText(rc, opts.Encoding)
	if err != nil {
		return nil, err
	}
	reader := csv.NewReader(decoded)
	reader.Comma = opts.delimiter()
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return &delimitedSource{reader: reader, closer: rc}, nil
}

func (s *delimitedSource) next() ([]string, error) {
	row, err := s.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		var parseErr *csv.ParseError
		line := 0
		if errors.As(err, &parseErr) {
			line = parseErr.Line
		}
		return nil, &xerrors.DecodeError{Format: "csv", Line: line, Err: err}
	}
	return row, nil
}

func (s *delimitedSource) close() error {
	return s.closer.Close()
}

// sliceSource serves rows already in memory, used by spreadsheet inputs.
type sliceSource struct {
	rows [][]string
	pos  int
}

func (s *sliceSource) next() ([]string, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

func (s *sliceSource) close() error { return nil }

func openFileReader(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &xerrors.CacheMissError{Path: path}
		}
		return nil, err
	}
	return file, nil
}
