// internal/download/rows.go
package download

import (
	"context"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/valpere/DataRetriever/internal/tabular"
)

// Rows opens a single-pass row cursor over the response body. Only one
// cursor may be open per response, and the body cannot be decoded any other
// way afterwards; closing or exhausting the cursor closes the response.
func (r *Response) Rows(opts tabular.Options) (*tabular.Cursor, error) {
	body, err := r.stream()
	if err != nil {
		return nil, err
	}
	if err := r.acquireCursor(); err != nil {
		return nil, err
	}
	if opts.Format == "" {
		opts.Format = r.tabularFormat()
	}
	cursor, err := tabular.OpenReader(&cursorBody{body: body, response: r}, opts)
	if err != nil {
		// OpenReader closes the body on failure, which releases the cursor.
		return nil, err
	}
	return cursor, nil
}

// tabularFormat guesses the delimited format from the Content-Type header
// and the URL path.
func (r *Response) tabularFormat() string {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
			switch mediaType {
			case "text/tab-separated-values":
				return "tsv"
			case "text/csv":
				return "csv"
			}
		}
	}
	switch strings.ToLower(path.Ext(strippedURLPath(r.URL))) {
	case ".tsv", ".tab":
		return "tsv"
	default:
		return "csv"
	}
}

func strippedURLPath(rawURL string) string {
	stripped := rawURL
	if i := strings.IndexAny(stripped, "?#"); i >= 0 {
		stripped = stripped[:i]
	}
	return stripped
}

// cursorBody hands the response body to a cursor and releases the response
// when the cursor is done with it.
type cursorBody struct {
	body     io.ReadCloser
	response *Response
}

func (b *cursorBody) Read(p []byte) (int, error) {
	return b.body.Read(p)
}

func (b *cursorBody) Close() error {
	b.response.releaseCursor()
	return nil
}

// Rows requests targetURL and opens a row cursor over the response body.
// The cursor supersedes any previous response held by the client.
func (c *Client) Rows(ctx context.Context, targetURL string, reqOpts RequestOptions, tabOpts tabular.Options) (*tabular.Cursor, error) {
	resp, err := c.Request(ctx, targetURL, reqOpts)
	if err != nil {
		return nil, err
	}
	if err := resp.EnsureSuccess(); err != nil {
		return nil, err
	}
	return resp.Rows(tabOpts)
}
