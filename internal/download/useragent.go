// internal/download/useragent.go
package download

import (
	"fmt"
	"os"
	"sync"

	xerrors "github.com/valpere/DataRetriever/internal/errors"
)

// Version is stamped into the user agent prefix.
const Version = "1.0.0"

var (
	defaultUAMu     sync.RWMutex
	defaultUA       string
	defaultUAPrefix string
)

// SetDefaultUserAgent sets a process-wide user agent used by clients
// constructed without an explicit one. An explicit Config.UserAgent always
// takes precedence.
func SetDefaultUserAgent(ua string) {
	defaultUAMu.Lock()
	defer defaultUAMu.Unlock()
	defaultUA = ua
}

// SetDefaultUserAgentPrefix overrides the standard library/version prefix.
func SetDefaultUserAgentPrefix(prefix string) {
	defaultUAMu.Lock()
	defer defaultUAMu.Unlock()
	defaultUAPrefix = prefix
}

// ClearDefaultUserAgent removes the process-wide default.
func ClearDefaultUserAgent() {
	defaultUAMu.Lock()
	defer defaultUAMu.Unlock()
	defaultUA = ""
	defaultUAPrefix = ""
}

// resolveUserAgent picks the effective user agent: the explicit argument,
// then the USER_AGENT environment variable (when env reads are allowed),
// then the process-wide default. All are prefixed with the library name and
// version so servers can identify the client stack.
func resolveUserAgent(explicit string, useEnv bool) (string, error) {
	ua := explicit
	if ua == "" && useEnv {
		ua = os.Getenv("USER_AGENT")
	}
	if ua == "" {
		defaultUAMu.RLock()
		ua = defaultUA
		defaultUAMu.RUnlock()
	}
	if ua == "" {
		return "", &xerrors.ConfigurationError{
			Reason: "user agent missing: pass Config.UserAgent or call SetDefaultUserAgent",
		}
	}

	defaultUAMu.RLock()
	prefix := defaultUAPrefix
	defaultUAMu.RUnlock()
	if prefix == "" {
		prefix = fmt.Sprintf("DataRetriever/%s", Version)
	}
	return fmt.Sprintf("%s-%s", prefix, ua), nil
}
