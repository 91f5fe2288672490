// internal/tabular/excel.go
package tabular

import (
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	xerrors "github.com/valpere/DataRetriever/internal/errors"
)

// newExcelSource loads one worksheet of an xlsx file into a slice source.
// Spreadsheets are not streamed row-by-row; the library materialises the
// sheet, which is acceptable for the file sizes this package targets.
func newExcelSource(path, sheet string) (rowSource, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &xerrors.CacheMissError{Path: path}
	}
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &xerrors.DecodeError{Format: "xlsx", Err: err}
	}
	defer book.Close()

	if sheet == "" {
		sheet = book.GetSheetName(0)
	}
	rows, err := book.GetRows(sheet)
	if err != nil {
		return nil, &xerrors.DecodeError{
			Format: "xlsx",
			Err:    fmt.Errorf("cannot read sheet %q: %w", sheet, err),
		}
	}
	return &sliceSource{rows: rows}, nil
}
