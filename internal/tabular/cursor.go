// internal/tabular/cursor.go
package tabular

import (
	"errors"
	"io"

	xerrors "github.com/valpere/DataRetriever/internal/errors"
)

// Cursor is a single-pass, forward-only row stream. Use it like a scanner:
//
//	for cur.Scan() {
//	    row := cur.Row()
//	    ...
//	}
//	if err := cur.Err(); err != nil { ... }
//
// The cursor owns its source and closes it on exhaustion, error or Close.
type Cursor struct {
	src       rowSource
	headers   []string // post-insertion
	rawHeader []string // as resolved from the source
	rowFn     RowFunc
	keepBlank bool

	row    []string
	err    error
	closed bool
}

// newCursor resolves headers against src and wraps it. On error the source
// is closed.
func newCursor(src rowSource, opts Options) (*Cursor, error) {
	rawHeader, err := resolveHeaders(src, opts)
	if err != nil {
		src.close()
		return nil, err
	}
	headers, err := applyInsertions(rawHeader, opts.Insertions)
	if err != nil {
		src.close()
		return nil, err
	}
	return &Cursor{
		src:       src,
		headers:   headers,
		rawHeader: rawHeader,
		rowFn:     opts.RowFunc,
		keepBlank: opts.KeepBlankRows,
	}, nil
}

// Headers returns the resolved header list, insertions included.
func (c *Cursor) Headers() []string {
	return c.headers
}

// Scan advances to the next row, reporting false on exhaustion or error.
// After Scan returns false, Err distinguishes the two.
func (c *Cursor) Scan() bool {
	if c.closed || c.err != nil {
		return false
	}
	for {
		row, err := c.src.next()
		if err == io.EOF {
			c.Close()
			return false
		}
		if err != nil {
			c.err = err
			c.Close()
			return false
		}
		if !c.keepBlank && isBlankRow(row) {
			continue
		}
		if c.rowFn != nil {
			row, err = c.rowFn(c.rawHeader, row)
			if errors.Is(err, SkipRow) {
				continue
			}
			if err != nil {
				c.err = err
				c.Close()
				return false
			}
		}
		c.row = row
		return true
	}
}

// Row returns the current row as an ordered field list. Valid until the next
// Scan.
func (c *Cursor) Row() []string {
	return c.row
}

// Record returns the current row as a header-to-value mapping. Fields beyond
// the header width are dropped; headers beyond the row width map to "".
func (c *Cursor) Record() map[string]string {
	record := make(map[string]string, len(c.headers))
	for i, h := range c.headers {
		if i < len(c.row) {
			record[h] = c.row[i]
		} else {
			record[h] = ""
		}
	}
	return record
}

// ColumnPositions maps each header name to its index in the resolved header
// list. Duplicate names keep the first position.
func (c *Cursor) ColumnPositions() map[string]int {
	positions := make(map[string]int, len(c.headers))
	for i, h := range c.headers {
		if _, ok := positions[h]; !ok {
			positions[h] = i
		}
	}
	return positions
}

// Err returns the first error hit while scanning, nil on clean exhaustion.
func (c *Cursor) Err() error {
	return c.err
}

// Close releases the underlying source. Idempotent; Scan returns false
// afterwards.
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.src.close()
}

// All drains the cursor into a slice of rows. The cursor is closed when it
// returns.
func (c *Cursor) All() ([][]string, error) {
	var rows [][]string
	for c.Scan() {
		rows = append(rows, append([]string(nil), c.Row()...))
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// AllRecords drains the cursor into a slice of header-to-value mappings.
func (c *Cursor) AllRecords() ([]map[string]string, error) {
	var records []map[string]string
	for c.Scan() {
		records = append(records, c.Record())
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// KeyValue drains the cursor into a mapping from the keyColumn value of each
// row to its valueColumn value. Rows missing either column are skipped.
func (c *Cursor) KeyValue(keyColumn, valueColumn string) (map[string]string, error) {
	keyIdx, valIdx := -1, -1
	for i, h := range c.headers {
		switch h {
		case keyColumn:
			keyIdx = i
		case valueColumn:
			valIdx = i
		}
	}
	if keyIdx < 0 || valIdx < 0 {
		c.Close()
		return nil, &xerrors.ConfigurationError{
			Reason: "key or value column not found in headers",
		}
	}
	out := make(map[string]string)
	for c.Scan() {
		row := c.Row()
		if keyIdx >= len(row) || valIdx >= len(row) {
			continue
		}
		out[row[keyIdx]] = row[valIdx]
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// RowsByKey drains the cursor into a mapping from the keyColumn value of
// each row to the row's full record.
func (c *Cursor) RowsByKey(keyColumn string) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string)
	for c.Scan() {
		record := c.Record()
		key, ok := record[keyColumn]
		if !ok {
			c.Close()
			return nil, &xerrors.ConfigurationError{
				Reason: "key column not found in headers",
			}
		}
		out[key] = record
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ColumnsByKey drains the cursor into a column-oriented view: for each
// non-key header, a mapping from the keyColumn value to that column's value.
func (c *Cursor) ColumnsByKey(keyColumn string) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string, len(c.headers))
	for _, h := range c.headers {
		if h != keyColumn {
			out[h] = make(map[string]string)
		}
	}
	found := false
	for _, h := range c.headers {
		if h == keyColumn {
			found = true
		}
	}
	if !found {
		c.Close()
		return nil, &xerrors.ConfigurationError{
			Reason: "key column not found in headers",
		}
	}
	for c.Scan() {
		record := c.Record()
		key := record[keyColumn]
		for h, v := range record {
			if h == keyColumn {
				continue
			}
			out[h][key] = v
		}
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
