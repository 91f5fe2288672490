// internal/download/client.go
package download

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	xerrors "github.com/valpere/DataRetriever/internal/errors"
	"github.com/valpere/DataRetriever/internal/logging"
	"github.com/valpere/DataRetriever/internal/monitoring"
	"github.com/valpere/DataRetriever/internal/utils"
)

const streamChunkSize = 10240

// Config configures a Client. Auth sources are mutually exclusive, as are
// extra-parameter sources; see resolveRequestContext.
type Config struct {
	UserAgent string
	// IgnoreEnv disables the USER_AGENT, BASIC_AUTH and EXTRA_PARAMS
	// environment overrides.
	IgnoreEnv bool
	// AllowMissingFile silently skips configured auth/parameter files that
	// do not exist instead of failing construction.
	AllowMissingFile bool

	Auth          *BasicAuth
	BasicAuth     string
	BasicAuthFile string

	ExtraParams       map[string]string
	ExtraParamsJSON   string
	ExtraParamsYAML   string
	ExtraParamsLookup string

	Headers   map[string]string
	RateLimit *RateLimit
	Retry     RetryConfig
	Timeout   time.Duration

	Logger  *zerolog.Logger
	Metrics *monitoring.Metrics
}

// Client issues HTTP GET and POST requests with authentication, retry,
// rate limiting and streaming decode. It holds at most one live Response;
// issuing a new request closes the previous one. A Client must not be used
// from multiple goroutines concurrently.
type Client struct {
	http    *http.Client
	rc      requestContext
	retry   RetryPolicy
	pacer   *pacer
	logger  zerolog.Logger
	metrics *monitoring.Metrics
	current *Response
}

// RequestOptions tunes a single request.
type RequestOptions struct {
	// Post switches the request to POST with form-encoded parameters.
	Post bool
	// Parameters are merged into the query string (GET) or form body (POST).
	Parameters map[string]string
	// Headers are added to this request only.
	Headers map[string]string
	// Timeout overrides the client timeout for this request.
	Timeout time.Duration
}

// New builds a Client, resolving auth and extra parameters once. The
// resulting request decoration never changes for the client's lifetime.
func New(cfg Config) (*Client, error) {
	rc, err := resolveRequestContext(cfg)
	if err != nil {
		return nil, err
	}
	p, err := newPacer(cfg.RateLimit, cfg.Metrics)
	if err != nil {
		return nil, &xerrors.ConfigurationError{Reason: "invalid rate limit", Err: err}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	logger := logging.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Client{
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		rc:      rc,
		retry:   NewRetryPolicy(cfg.Retry),
		pacer:   p,
		logger:  logger,
		metrics: cfg.Metrics,
	}, nil
}

// FullURL returns targetURL decorated with the client's extra parameters, as
// it would be sent on a GET request.
func (c *Client) FullURL(targetURL string) (string, error) {
	return c.decorateURL(targetURL, nil)
}

// Request issues one GET or POST against targetURL, applying the client's
// auth decoration, rate limiting and retry policy. The returned Response
// replaces (and closes) any previous one. A non-2xx status that is not
// retryable is returned as a Response for the caller to judge; transport
// failures and retry exhaustion surface as NetworkError.
func (c *Client) Request(ctx context.Context, targetURL string, opts RequestOptions) (*Response, error) {
	c.closeResponse()

	method := http.MethodGet
	if opts.Post {
		method = http.MethodPost
	}
	fullURL, form, err := c.prepareURL(targetURL, opts)
	if err != nil {
		return nil, err
	}

	httpClient := c.http
	if opts.Timeout > 0 {
		clone := *c.http
		clone.Timeout = opts.Timeout
		httpClient = &clone
	}

	var (
		lastErr    error
		lastStatus int
	)
	attempt := 0
	for {
		attempt++
		if err := c.pacer.Acquire(ctx); err != nil {
			return nil, &xerrors.NetworkError{URL: targetURL, Attempts: attempt - 1, Err: err}
		}

		req, err := c.buildRequest(ctx, method, fullURL, form, opts.Headers)
		if err != nil {
			return nil, err
		}

		c.logger.Info().
			Str("url", logging.TruncateURL(fullURL)).
			Str("method", method).
			Int("attempt", attempt).
			Msg("requesting")

		start := time.Now()
		resp, err := httpClient.Do(req)
		if err != nil {
			lastErr = err
			lastStatus = 0
			c.metrics.ObserveRequest(method, 0, time.Since(start))
		} else {
			lastErr = nil
			lastStatus = resp.StatusCode
			c.metrics.ObserveRequest(method, resp.StatusCode, time.Since(start))
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				c.current = newResponse(resp, fullURL)
				return c.current, nil
			}
		}

		retry, delay := c.retry.Decide(attempt, method, lastStatus, lastErr)
		if !retry {
			if lastErr != nil {
				c.metrics.ObserveError("transport")
				c.logger.Error().
					Str("url", logging.TruncateURL(fullURL)).
					Int("attempts", attempt).
					Err(lastErr).
					Msg("request failed")
				return nil, &xerrors.NetworkError{URL: targetURL, Attempts: attempt, Err: lastErr}
			}
			if c.retry.statuses[lastStatus] && c.retry.methods[method] {
				// Retryable status with attempts exhausted: surface as a
				// terminal failure. On methods outside the retry policy
				// the status falls through to the caller like any other
				// non-2xx, since no retries were ever on the table.
				resp.Body.Close()
				c.metrics.ObserveError("status")
				c.logger.Error().
					Str("url", logging.TruncateURL(fullURL)).
					Int("status", lastStatus).
					Int("attempts", attempt).
					Msg("request failed")
				return nil, &xerrors.NetworkError{URL: targetURL, Attempts: attempt, Status: lastStatus}
			}
			// Non-retryable status: hand the response to the caller.
			c.current = newResponse(resp, fullURL)
			return c.current, nil
		}

		if lastErr == nil {
			resp.Body.Close()
		}
		c.metrics.ObserveRetry()
		c.logger.Warn().
			Str("url", logging.TruncateURL(fullURL)).
			Int("attempt", attempt).
			Int("status", lastStatus).
			Dur("delay", delay).
			Msg("retrying")

		select {
		case <-ctx.Done():
			return nil, &xerrors.NetworkError{URL: targetURL, Attempts: attempt, Err: ctx.Err()}
		case <-time.After(delay):
		}
	}
}

// prepareURL merges the URL's own query, the per-request parameters and the
// client's extra parameters. For POST the merged parameters move into a form
// body and the query string is cleared, mirroring how parameters ride on the
// request for each method.
func (c *Client) prepareURL(targetURL string, opts RequestOptions) (string, url.Values, error) {
	decorated, err := c.decorateURL(targetURL, opts.Parameters)
	if err != nil {
		return "", nil, err
	}
	if !opts.Post {
		return decorated, nil, nil
	}
	parsed, err := url.Parse(decorated)
	if err != nil {
		return "", nil, &xerrors.ConfigurationError{Reason: fmt.Sprintf("invalid URL %s", targetURL), Err: err}
	}
	form := parsed.Query()
	parsed.RawQuery = ""
	return parsed.String(), form, nil
}

func (c *Client) decorateURL(targetURL string, parameters map[string]string) (string, error) {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return "", &xerrors.ConfigurationError{Reason: fmt.Sprintf("invalid URL %s", targetURL), Err: err}
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "http"
	}
	query := parsed.Query()
	for k, v := range parameters {
		query.Set(k, v)
	}
	for _, p := range c.rc.params {
		query.Set(p.key, p.value)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (c *Client) buildRequest(ctx context.Context, method, fullURL string, form url.Values, extraHeaders map[string]string) (*http.Request, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, &xerrors.ConfigurationError{Reason: "cannot build request", Err: err}
	}
	req.Header.Set("User-Agent", c.rc.userAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range c.rc.headers {
		req.Header.Set(k, v)
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}
	if c.rc.auth != nil {
		req.SetBasicAuth(c.rc.auth.Username, c.rc.auth.Password)
	}
	return req, nil
}

// Response returns the current live response, or nil.
func (c *Client) Response() *Response {
	return c.current
}

// FileDestination says where a streamed download lands. Path overrides
// Folder and Filename; an empty destination derives everything from the URL
// and the temp directory.
type FileDestination struct {
	Folder    string
	Filename  string
	Path      string
	Overwrite bool
}

// PathForURL resolves the destination file path: the explicit path, or the
// (possibly URL-derived) filename under the folder (defaulting to the temp
// directory), uniquified with a counter unless overwriting.
func PathForURL(targetURL string, dest FileDestination) (string, error) {
	folder, filename := dest.Folder, dest.Filename
	if dest.Path != "" {
		if folder != "" || filename != "" {
			return "", &xerrors.ConfigurationError{
				Reason: "cannot combine folder or filename with an explicit path",
			}
		}
		folder, filename = filepath.Split(dest.Path)
	}
	if filename == "" {
		filename = utils.FilenameFromURL(targetURL)
	}
	if folder == "" {
		folder = utils.TempDir()
	}
	if dest.Overwrite {
		path := filepath.Join(folder, filename)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("cannot overwrite %s: %w", path, err)
		}
		return path, nil
	}
	return utils.UniquePath(folder, filename), nil
}

// StreamToFile streams the current response body to the destination in
// bounded chunks while computing its MD5 hash, never holding the body in
// memory. Request must have been issued first.
func (c *Client) StreamToFile(targetURL string, dest FileDestination) (string, string, error) {
	if c.current == nil {
		return "", "", &xerrors.StateError{Op: "stream to file", Reason: "no request has been issued"}
	}
	body, err := c.current.stream()
	if err != nil {
		return "", "", err
	}
	path, err := PathForURL(targetURL, dest)
	if err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", "", fmt.Errorf("cannot create folder for %s: %w", path, err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", "", fmt.Errorf("cannot create %s: %w", path, err)
	}

	hasher := md5.New()
	buf := make([]byte, streamChunkSize)
	written, err := io.CopyBuffer(io.MultiWriter(file, hasher), body, buf)
	closeErr := file.Close()
	c.current.closed = true
	body.Close()
	if err != nil {
		os.Remove(path)
		return "", "", &xerrors.NetworkError{URL: targetURL, Attempts: 1, Err: err}
	}
	if closeErr != nil {
		return "", "", fmt.Errorf("cannot finish writing %s: %w", path, closeErr)
	}
	c.metrics.AddBytes(written)
	return path, fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

// HashStream consumes the current response body and returns its MD5 hash.
func (c *Client) HashStream(targetURL string) (string, error) {
	if c.current == nil {
		return "", &xerrors.StateError{Op: "hash stream", Reason: "no request has been issued"}
	}
	body, err := c.current.stream()
	if err != nil {
		return "", err
	}
	defer func() {
		c.current.closed = true
		body.Close()
	}()
	digest, err := utils.MD5Stream(body)
	if err != nil {
		return "", &xerrors.NetworkError{URL: targetURL, Attempts: 1, Err: err}
	}
	return digest, nil
}

// DownloadFile downloads targetURL straight to disk and returns the path.
func (c *Client) DownloadFile(ctx context.Context, targetURL string, opts RequestOptions, dest FileDestination) (string, error) {
	resp, err := c.Request(ctx, targetURL, opts)
	if err != nil {
		return "", err
	}
	if err := resp.EnsureSuccess(); err != nil {
		return "", err
	}
	path, _, err := c.StreamToFile(targetURL, dest)
	return path, err
}

// DownloadText downloads targetURL and decodes the body as text.
func (c *Client) DownloadText(ctx context.Context, targetURL string, opts RequestOptions) (string, error) {
	resp, err := c.Request(ctx, targetURL, opts)
	if err != nil {
		return "", err
	}
	if err := resp.EnsureSuccess(); err != nil {
		return "", err
	}
	return resp.Text()
}

// DownloadJSON downloads targetURL and decodes the body as JSON.
func (c *Client) DownloadJSON(ctx context.Context, targetURL string, opts RequestOptions) (any, error) {
	resp, err := c.Request(ctx, targetURL, opts)
	if err != nil {
		return nil, err
	}
	if err := resp.EnsureSuccess(); err != nil {
		return nil, err
	}
	return resp.JSON()
}

// DownloadYAML downloads targetURL and decodes the body as YAML.
func (c *Client) DownloadYAML(ctx context.Context, targetURL string, opts RequestOptions) (any, error) {
	resp, err := c.Request(ctx, targetURL, opts)
	if err != nil {
		return nil, err
	}
	if err := resp.EnsureSuccess(); err != nil {
		return nil, err
	}
	return resp.YAML()
}

func (c *Client) closeResponse() {
	if c.current != nil {
		_ = c.current.Close()
		c.current = nil
	}
}

// Close releases the current response and idle connections. Idempotent.
func (c *Client) Close() error {
	c.closeResponse()
	c.http.CloseIdleConnections()
	return nil
}
