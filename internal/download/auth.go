// internal/download/auth.go
package download

import (
	"encoding/base64"
	"fmt"
	"os"
	"sort"
	"strings"

	xerrors "github.com/valpere/DataRetriever/internal/errors"
	"github.com/valpere/DataRetriever/internal/output"
)

// BasicAuth carries a username/password pair for HTTP basic authentication.
type BasicAuth struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// param is one extra query parameter. Parameters keep a stable order so that
// decorated URLs are deterministic.
type param struct {
	key   string
	value string
}

// requestContext is the immutable per-client request decoration resolved once
// at construction: user agent, base headers, auth, and extra query
// parameters.
type requestContext struct {
	userAgent string
	headers   map[string]string
	auth      *BasicAuth
	params    []param
}

// resolveRequestContext validates the configured auth and extra-parameter
// sources and folds them into a requestContext. Precedence and exclusivity:
// exactly one auth source may be supplied (explicit pair, basic-auth string,
// basic-auth file, an Authorization header, or the BASIC_AUTH environment
// variable); exactly one extra-parameter source may be supplied (inline map,
// JSON file, YAML file), with the EXTRA_PARAMS environment variable
// suppressing all of them. Missing optional files are skipped unless the
// configuration demands they exist.
func resolveRequestContext(cfg Config) (requestContext, error) {
	userAgent, err := resolveUserAgent(cfg.UserAgent, !cfg.IgnoreEnv)
	if err != nil {
		return requestContext{}, err
	}

	rc := requestContext{
		userAgent: userAgent,
		headers:   make(map[string]string, len(cfg.Headers)),
	}

	var authsFound []string
	for k, v := range cfg.Headers {
		rc.headers[k] = v
		if k == "Authorization" {
			authsFound = append(authsFound, "headers")
		}
	}

	basicAuth := ""
	extraParams, _, err := resolveExtraParams(cfg)
	if err != nil {
		return requestContext{}, err
	}
	if !cfg.IgnoreEnv {
		if env := os.Getenv("BASIC_AUTH"); env != "" {
			basicAuth = env
			authsFound = append(authsFound, "BASIC_AUTH environment variable")
		}
	}

	// A basic_auth key inside the extra parameters is hoisted into auth
	// rather than sent on the query string.
	filtered := extraParams[:0]
	for _, p := range extraParams {
		if p.key == "basic_auth" {
			basicAuth = p.value
			authsFound = append(authsFound, "basic_auth parameter")
			continue
		}
		filtered = append(filtered, p)
	}
	rc.params = filtered

	if cfg.BasicAuth != "" {
		basicAuth = cfg.BasicAuth
		authsFound = append(authsFound, "basic_auth argument")
	}
	auth := cfg.Auth
	if auth != nil {
		authsFound = append(authsFound, "auth argument")
	}
	if cfg.BasicAuthFile != "" {
		content, err := output.LoadText(cfg.BasicAuthFile, true)
		if err != nil {
			if !os.IsNotExist(err) || !cfg.AllowMissingFile {
				return requestContext{}, &xerrors.ConfigurationError{
					Reason: fmt.Sprintf("cannot read basic auth file %s", cfg.BasicAuthFile),
					Err:    err,
				}
			}
		} else {
			basicAuth = content
			authsFound = append(authsFound, fmt.Sprintf("file %s", cfg.BasicAuthFile))
		}
	}

	if len(authsFound) > 1 {
		return requestContext{}, &xerrors.ConfigurationError{
			Reason: fmt.Sprintf("more than one authorisation given (%s)", strings.Join(authsFound, ", ")),
		}
	}
	if len(authsFound) == 1 && authsFound[0] == "headers" {
		// Authorization header already set; nothing else to resolve.
		return rc, nil
	}
	if basicAuth != "" {
		auth, err = decodeBasicAuth(basicAuth)
		if err != nil {
			return requestContext{}, err
		}
	}
	rc.auth = auth
	return rc, nil
}

// resolveExtraParams picks the single configured extra-parameter source and
// returns its key/value pairs in a stable order. The second return reports
// whether the EXTRA_PARAMS environment variable supplied them, in which case
// all configured sources were ignored.
func resolveExtraParams(cfg Config) ([]param, bool, error) {
	if !cfg.IgnoreEnv {
		if env := os.Getenv("EXTRA_PARAMS"); env != "" && strings.Contains(env, "=") {
			var params []param
			for _, pair := range strings.Split(env, ",") {
				key, value, found := strings.Cut(pair, "=")
				if !found {
					return nil, false, &xerrors.ConfigurationError{
						Reason: fmt.Sprintf("malformed EXTRA_PARAMS entry %q", pair),
					}
				}
				params = append(params, param{key: strings.TrimSpace(key), value: strings.TrimSpace(value)})
			}
			return params, true, nil
		}
	}

	var (
		sources int
		params  []param
	)
	if len(cfg.ExtraParams) > 0 {
		sources++
		params = sortedParams(cfg.ExtraParams)
	}
	for _, file := range []struct {
		path string
		load func(string) (any, error)
	}{
		{cfg.ExtraParamsJSON, output.LoadJSON},
		{cfg.ExtraParamsYAML, output.LoadYAML},
	} {
		if file.path == "" {
			continue
		}
		sources++
		if sources > 1 {
			return nil, false, &xerrors.ConfigurationError{
				Reason: "more than one set of extra parameters given",
			}
		}
		value, err := file.load(file.path)
		if err != nil {
			if os.IsNotExist(err) && cfg.AllowMissingFile {
				continue
			}
			return nil, false, &xerrors.ConfigurationError{
				Reason: fmt.Sprintf("cannot read extra parameters from %s", file.path),
				Err:    err,
			}
		}
		mapping, err := lookupParams(value, cfg.ExtraParamsLookup, file.path)
		if err != nil {
			return nil, false, err
		}
		params = mapping
	}
	return params, false, nil
}

// lookupParams digs the optional lookup key out of a decoded parameter file
// and normalises the result to ordered parameters.
func lookupParams(value any, lookup, path string) ([]param, error) {
	mapping, ok := value.(map[string]any)
	if !ok {
		return nil, &xerrors.ConfigurationError{
			Reason: fmt.Sprintf("extra parameters in %s are not a mapping", path),
		}
	}
	if lookup != "" {
		nested, ok := mapping[lookup].(map[string]any)
		if !ok {
			return nil, &xerrors.ConfigurationError{
				Reason: fmt.Sprintf("%s does not exist in extra parameters file %s", lookup, path),
			}
		}
		mapping = nested
	}
	strMapping := make(map[string]string, len(mapping))
	for k, v := range mapping {
		strMapping[k] = fmt.Sprintf("%v", v)
	}
	return sortedParams(strMapping), nil
}

func sortedParams(m map[string]string) []param {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	params := make([]param, 0, len(keys))
	for _, k := range keys {
		params = append(params, param{key: k, value: m[k]})
	}
	return params
}

// decodeBasicAuth splits a "Basic <base64>" header value back into the
// username/password pair it encodes.
func decodeBasicAuth(header string) (*BasicAuth, error) {
	encoded := strings.TrimSpace(header)
	encoded = strings.TrimPrefix(encoded, "Basic ")
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, &xerrors.ConfigurationError{
			Reason: "basic auth string is not valid base64",
			Err:    err,
		}
	}
	username, password, found := strings.Cut(string(decoded), ":")
	if !found {
		return nil, &xerrors.ConfigurationError{
			Reason: "basic auth string does not decode to user:password",
		}
	}
	return &BasicAuth{Username: username, Password: password}, nil
}
