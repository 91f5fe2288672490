// internal/retrieve/retriever.go

// Package retrieve layers a cache and fallback policy over the download
// client: live retrieval, cache-and-reuse, cache-only reads, and static
// fallback substitution when the network or the payload fails.
package retrieve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/valpere/DataRetriever/internal/download"
	xerrors "github.com/valpere/DataRetriever/internal/errors"
	"github.com/valpere/DataRetriever/internal/logging"
	"github.com/valpere/DataRetriever/internal/output"
	"github.com/valpere/DataRetriever/internal/tabular"
	"github.com/valpere/DataRetriever/internal/utils"
)

// Expected cache extensions per payload kind, used to normalise derived
// filenames so cached artifacts decode the same way they were fetched.
var (
	textExtensions    = []string{".txt"}
	jsonExtensions    = []string{".json", ".geojson"}
	yamlExtensions    = []string{".yaml", ".yml"}
	tabularExtensions = []string{".csv", ".tsv", ".xlsx", ".xlsm"}
)

// Policy selects the retrieval mode. Save persists successful downloads to
// the saved directory for later runs; UseSaved reads exclusively from the
// saved directory with no network at all. The two are mutually exclusive.
type Policy struct {
	Save     bool `yaml:"save" json:"save"`
	UseSaved bool `yaml:"use_saved" json:"use_saved"`
}

// Config wires a Retriever to one download client and its three directories.
type Config struct {
	Client *download.Client

	// SavedDir holds artifacts kept across runs; TempDir holds ephemeral
	// downloads; FallbackDir holds pre-bundled static data substituted when
	// live retrieval fails.
	SavedDir    string
	TempDir     string
	FallbackDir string

	// Prefix, when set, is prepended to every derived and explicit cache
	// filename as "prefix_name", keeping artifacts from different runs or
	// datasets apart within shared directories.
	Prefix string

	Policy Policy
	Logger *zerolog.Logger
}

// Retriever fetches URLs through its client, persisting and reusing
// artifacts per its policy. Like the client it wraps, a Retriever assumes
// one logical caller at a time.
type Retriever struct {
	client      *download.Client
	savedDir    string
	tempDir     string
	fallbackDir string
	prefix      string
	policy      Policy
	logger      zerolog.Logger
}

// New validates the policy and prepares the working directories.
func New(cfg Config) (*Retriever, error) {
	if cfg.Client == nil {
		return nil, &xerrors.ConfigurationError{Reason: "a download client is required"}
	}
	if cfg.Policy.Save && cfg.Policy.UseSaved {
		return nil, &xerrors.ConfigurationError{
			Reason: "save and use_saved cannot both be set",
		}
	}
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = utils.TempDir()
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create temp directory %s: %w", tempDir, err)
	}
	if cfg.Policy.Save {
		if cfg.SavedDir == "" {
			return nil, &xerrors.ConfigurationError{Reason: "save requires a saved directory"}
		}
		if err := os.MkdirAll(cfg.SavedDir, 0o755); err != nil {
			return nil, fmt.Errorf("cannot create saved directory %s: %w", cfg.SavedDir, err)
		}
	}
	if cfg.Policy.UseSaved && cfg.SavedDir == "" {
		return nil, &xerrors.ConfigurationError{Reason: "use_saved requires a saved directory"}
	}
	logger := logging.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Retriever{
		client:      cfg.Client,
		savedDir:    cfg.SavedDir,
		tempDir:     tempDir,
		fallbackDir: cfg.FallbackDir,
		prefix:      cfg.Prefix,
		policy:      cfg.Policy,
		logger:      logger,
	}, nil
}

// cacheFilename applies the retriever's prefix on top of the derived name.
func (r *Retriever) cacheFilename(url, filename string, extensions []string) string {
	name := CacheFilename(url, filename, extensions...)
	if r.prefix != "" {
		name = r.prefix + "_" + name
	}
	return name
}

func (r *Retriever) cacheKey(root, url, filename string, extensions []string) string {
	return filepath.Join(root, r.cacheFilename(url, filename, extensions))
}

// fetchFile runs the core retrieval algorithm for one URL and returns the
// path of the artifact on disk.
func (r *Retriever) fetchFile(ctx context.Context, url, filename string, fallback bool, extensions []string) (string, error) {
	path, _, err := r.fetchArtifact(ctx, url, filename, fallback, extensions)
	return path, err
}

// fetchArtifact runs the core retrieval algorithm for one URL. The network
// is attempted at most once per call; fallback substitution is a passive
// read, never a retry. When the fallback was substituted, cause carries the
// live failure it papered over, so decoders can surface it if the fallback
// artifact itself turns out to be unusable.
func (r *Retriever) fetchArtifact(ctx context.Context, url, filename string, fallback bool, extensions []string) (path string, cause error, retErr error) {
	if r.policy.UseSaved {
		path := r.cacheKey(r.savedDir, url, filename, extensions)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return "", nil, &xerrors.CacheMissError{Path: path}
			}
			return "", nil, err
		}
		r.logger.Info().
			Str("url", logging.TruncateURL(url)).
			Str("path", path).
			Msg("using saved artifact")
		return path, nil, nil
	}

	folder := r.tempDir
	if r.policy.Save {
		folder = r.savedDir
	}
	name := r.cacheFilename(url, filename, extensions)

	downloaded, err := r.client.DownloadFile(ctx, url, download.RequestOptions{}, download.FileDestination{
		Folder:    folder,
		Filename:  name,
		Overwrite: true,
	})
	if err == nil {
		r.logger.Info().
			Str("url", logging.TruncateURL(url)).
			Str("path", downloaded).
			Bool("saved", r.policy.Save).
			Msg("downloaded")
		return downloaded, nil, nil
	}

	if !fallback || !xerrors.Retrievable(err) {
		return "", nil, err
	}
	fallbackPath := r.cacheKey(r.fallbackDir, url, filename, extensions)
	if _, statErr := os.Stat(fallbackPath); statErr != nil {
		return "", nil, fmt.Errorf("fallback %s unavailable: %w", fallbackPath, err)
	}
	r.logger.Warn().
		Str("url", logging.TruncateURL(url)).
		Str("path", fallbackPath).
		Err(err).
		Msg("live retrieval failed, substituting fallback")
	return fallbackPath, err, nil
}

// File retrieves url as a raw file and returns the path of the artifact.
func (r *Retriever) File(ctx context.Context, url, filename string, fallback bool) (string, error) {
	return r.fetchFile(ctx, url, filename, fallback, nil)
}

// Text retrieves url and decodes the artifact as UTF-8 text.
func (r *Retriever) Text(ctx context.Context, url, filename string, fallback bool) (string, error) {
	return fetchDecoded(r, ctx, url, filename, fallback, textExtensions, decodeTextFile)
}

// JSON retrieves url and decodes the artifact as JSON.
func (r *Retriever) JSON(ctx context.Context, url, filename string, fallback bool) (any, error) {
	return fetchDecoded(r, ctx, url, filename, fallback, jsonExtensions, decodeJSONFile)
}

// YAML retrieves url and decodes the artifact as YAML.
func (r *Retriever) YAML(ctx context.Context, url, filename string, fallback bool) (any, error) {
	return fetchDecoded(r, ctx, url, filename, fallback, yamlExtensions, decodeYAMLFile)
}

// Rows retrieves url and opens a row cursor over the artifact. Unlike the
// client's live cursor, the rows come off the downloaded file, so the cache
// and fallback behaviour matches the other kinds.
func (r *Retriever) Rows(ctx context.Context, url, filename string, fallback bool, opts tabular.Options) (*tabular.Cursor, error) {
	path, cause, err := r.fetchArtifact(ctx, url, filename, fallback, tabularExtensions)
	if err != nil {
		return nil, err
	}
	cur, err := tabular.OpenFile(path, opts)
	if err == nil {
		return cur, nil
	}
	if cause != nil {
		return nil, fmt.Errorf("fallback %s undecodable: %v: %w", path, err, cause)
	}
	if r.policy.UseSaved || !fallback || !xerrors.Retrievable(err) {
		return nil, err
	}
	fallbackPath := r.cacheKey(r.fallbackDir, url, filename, tabularExtensions)
	if fallbackPath == path {
		return nil, err
	}
	if _, statErr := os.Stat(fallbackPath); statErr != nil {
		return nil, fmt.Errorf("fallback %s unavailable: %w", fallbackPath, err)
	}
	r.logger.Warn().
		Str("url", logging.TruncateURL(url)).
		Err(err).
		Msg("downloaded rows undecodable, substituting fallback")
	fbCur, fbErr := tabular.OpenFile(fallbackPath, opts)
	if fbErr != nil {
		return nil, fmt.Errorf("fallback %s undecodable: %v: %w", fallbackPath, fbErr, err)
	}
	return fbCur, nil
}

// fetchDecoded downloads (or reuses) the artifact, then decodes it. A decode
// failure on a live download is still eligible for fallback substitution; a
// decode failure on a saved artifact is final, and one on a substituted
// fallback surfaces the live failure it was standing in for.
func fetchDecoded[T any](r *Retriever, ctx context.Context, url, filename string, fallback bool, extensions []string, decode func(string) (T, error)) (T, error) {
	var zero T
	path, cause, err := r.fetchArtifact(ctx, url, filename, fallback, extensions)
	if err != nil {
		return zero, err
	}
	value, err := decode(path)
	if err == nil {
		return value, nil
	}
	if cause != nil {
		return zero, fmt.Errorf("fallback %s undecodable: %v: %w", path, err, cause)
	}
	if r.policy.UseSaved || !fallback || !xerrors.Retrievable(err) {
		return zero, err
	}
	fallbackPath := r.cacheKey(r.fallbackDir, url, filename, extensions)
	if fallbackPath == path {
		return zero, err
	}
	if _, statErr := os.Stat(fallbackPath); statErr != nil {
		return zero, fmt.Errorf("fallback %s unavailable: %w", fallbackPath, err)
	}
	r.logger.Warn().
		Str("url", logging.TruncateURL(url)).
		Err(err).
		Msg("downloaded artifact undecodable, substituting fallback")
	fbValue, fbErr := decode(fallbackPath)
	if fbErr != nil {
		return zero, fmt.Errorf("fallback %s undecodable: %v: %w", fallbackPath, fbErr, err)
	}
	return fbValue, nil
}

func decodeTextFile(path string) (string, error) {
	text, err := output.LoadText(path, false)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &xerrors.CacheMissError{Path: path}
		}
		return "", &xerrors.DecodeError{Format: "text", Err: err}
	}
	return text, nil
}

func decodeJSONFile(path string) (any, error) {
	value, err := output.LoadJSON(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &xerrors.CacheMissError{Path: path}
		}
		return nil, &xerrors.DecodeError{Format: "json", Err: err}
	}
	return value, nil
}

func decodeYAMLFile(path string) (any, error) {
	value, err := output.LoadYAML(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &xerrors.CacheMissError{Path: path}
		}
		return nil, &xerrors.DecodeError{Format: "yaml", Err: err}
	}
	return value, nil
}
