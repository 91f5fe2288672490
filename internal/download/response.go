// internal/download/response.go
package download

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"

	xerrors "github.com/valpere/DataRetriever/internal/errors"
)

// Response is the single live response a client holds at a time. Its body is
// either streamed (consumed once by StreamToFile, HashStream or a tabular
// cursor) or buffered on first decode. Issuing a new request through the
// owning client closes and supersedes it.
type Response struct {
	StatusCode int
	Header     http.Header
	URL        string

	body       io.ReadCloser
	buf        []byte
	buffered   bool
	closed     bool
	cursorOpen bool
}

func newResponse(resp *http.Response, url string) *Response {
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		URL:        url,
		body:       resp.Body,
	}
}

// EnsureSuccess converts a non-2xx response into a NetworkError.
func (r *Response) EnsureSuccess() error {
	if r.StatusCode >= 200 && r.StatusCode < 300 {
		return nil
	}
	return &xerrors.NetworkError{URL: r.URL, Attempts: 1, Status: r.StatusCode}
}

// Bytes reads and caches the full body. Safe to call repeatedly.
func (r *Response) Bytes() ([]byte, error) {
	if r.buffered {
		return r.buf, nil
	}
	if r.closed {
		return nil, &xerrors.StateError{Op: "read body", Reason: "response is closed"}
	}
	if r.cursorOpen {
		return nil, &xerrors.StateError{Op: "read body", Reason: "a row cursor is open over this response"}
	}
	data, err := io.ReadAll(r.body)
	closeErr := r.body.Close()
	r.closed = true
	if err != nil {
		return nil, &xerrors.NetworkError{URL: r.URL, Attempts: 1, Err: err}
	}
	if closeErr != nil {
		return nil, &xerrors.NetworkError{URL: r.URL, Attempts: 1, Err: closeErr}
	}
	r.buf = data
	r.buffered = true
	return r.buf, nil
}

// Text decodes the body as UTF-8 text.
func (r *Response) Text() (string, error) {
	data, err := r.Bytes()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// JSON decodes the body as JSON. Malformed payloads surface as a DecodeError
// carrying the offending byte offset.
func (r *Response) JSON() (any, error) {
	data, err := r.Bytes()
	if err != nil {
		return nil, err
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		decodeErr := &xerrors.DecodeError{Format: "json", Err: err}
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			decodeErr.Offset = syntaxErr.Offset
		}
		return nil, decodeErr
	}
	return value, nil
}

// YAML decodes the body as YAML. Malformed payloads surface as a DecodeError
// carrying the offending line when the parser reports one.
func (r *Response) YAML() (any, error) {
	data, err := r.Bytes()
	if err != nil {
		return nil, err
	}
	var value any
	if err := yaml.Unmarshal(data, &value); err != nil {
		return nil, &xerrors.DecodeError{Format: "yaml", Line: yamlErrorLine(err), Err: err}
	}
	return value, nil
}

// stream hands out the raw body exactly once, for chunked consumption.
func (r *Response) stream() (io.ReadCloser, error) {
	if r.closed {
		return nil, &xerrors.StateError{Op: "stream body", Reason: "response is closed"}
	}
	if r.buffered {
		return nil, &xerrors.StateError{Op: "stream body", Reason: "body already buffered by a decoder"}
	}
	if r.cursorOpen {
		return nil, &xerrors.StateError{Op: "stream body", Reason: "a row cursor is open over this response"}
	}
	return r.body, nil
}

// acquireCursor marks the response as feeding a row cursor. Only one cursor
// may be open at a time.
func (r *Response) acquireCursor() error {
	if r.closed {
		return &xerrors.StateError{Op: "open cursor", Reason: "response is closed"}
	}
	if r.cursorOpen {
		return &xerrors.StateError{Op: "open cursor", Reason: "a cursor is already open over this response"}
	}
	r.cursorOpen = true
	return nil
}

// releaseCursor closes the response on behalf of an exhausted or abandoned
// cursor.
func (r *Response) releaseCursor() {
	r.cursorOpen = false
	_ = r.Close()
}

// Close releases the body. Idempotent.
func (r *Response) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.body == nil {
		return nil
	}
	if err := r.body.Close(); err != nil {
		return fmt.Errorf("failed to close response body: %w", err)
	}
	return nil
}

var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

// yamlErrorLine extracts the line number the yaml parser embeds in its error
// text, or zero when absent.
func yamlErrorLine(err error) int {
	match := yamlLinePattern.FindStringSubmatch(err.Error())
	if len(match) != 2 {
		return 0
	}
	line, convErr := strconv.Atoi(match[1])
	if convErr != nil {
		return 0
	}
	return line
}
