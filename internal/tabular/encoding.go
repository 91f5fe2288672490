// internal/tabular/encoding.go
package tabular

import (
	"fmt"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	xerrors "github.com/valpere/DataRetriever/internal/errors"
)

// decodeText wraps r so the bytes come out as UTF-8. name is an IANA charset
// name; empty means UTF-8. A leading byte order mark always wins over the
// configured encoding and is stripped.
func decodeText(r io.Reader, name string) (io.Reader, error) {
	var enc encoding.Encoding = unicode.UTF8
	if name != "" {
		found, err := ianaindex.IANA.Encoding(name)
		if err != nil || found == nil {
			return nil, &xerrors.ConfigurationError{
				Reason: fmt.Sprintf("unknown text encoding %q", name),
				Err:    err,
			}
		}
		enc = found
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}
