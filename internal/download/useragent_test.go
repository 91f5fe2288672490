// internal/download/useragent_test.go
package download

import (
	"strings"
	"testing"

	xerrors "github.com/valpere/DataRetriever/internal/errors"
)

func TestResolveUserAgentExplicit(t *testing.T) {
	ClearDefaultUserAgent()
	t.Setenv("USER_AGENT", "from-env")

	ua, err := resolveUserAgent("explicit", true)
	if err != nil {
		t.Fatalf("resolveUserAgent() error: %v", err)
	}
	want := "DataRetriever/" + Version + "-explicit"
	if ua != want {
		t.Errorf("resolveUserAgent() = %q, want %q", ua, want)
	}
}

func TestResolveUserAgentEnvironment(t *testing.T) {
	ClearDefaultUserAgent()
	t.Setenv("USER_AGENT", "from-env")

	ua, err := resolveUserAgent("", true)
	if err != nil {
		t.Fatalf("resolveUserAgent() error: %v", err)
	}
	if !strings.HasSuffix(ua, "-from-env") {
		t.Errorf("resolveUserAgent() = %q, want env value suffix", ua)
	}

	// Environment disabled: env value must not leak in.
	if _, err := resolveUserAgent("", false); err == nil {
		t.Error("resolveUserAgent with env disabled and no default succeeded, want error")
	}
}

func TestResolveUserAgentProcessDefault(t *testing.T) {
	SetDefaultUserAgent("process-default")
	defer ClearDefaultUserAgent()

	ua, err := resolveUserAgent("", false)
	if err != nil {
		t.Fatalf("resolveUserAgent() error: %v", err)
	}
	if !strings.HasSuffix(ua, "-process-default") {
		t.Errorf("resolveUserAgent() = %q, want process default suffix", ua)
	}
}

func TestResolveUserAgentMissing(t *testing.T) {
	ClearDefaultUserAgent()

	_, err := resolveUserAgent("", false)
	if err == nil {
		t.Fatal("resolveUserAgent() succeeded with no source, want error")
	}
	if !xerrors.IsConfiguration(err) {
		t.Errorf("resolveUserAgent() error = %T, want ConfigurationError", err)
	}
}

func TestSetDefaultUserAgentPrefix(t *testing.T) {
	ClearDefaultUserAgent()
	SetDefaultUserAgentPrefix("MyApp/2.0")
	SetDefaultUserAgent("worker")
	defer ClearDefaultUserAgent()

	ua, err := resolveUserAgent("", false)
	if err != nil {
		t.Fatalf("resolveUserAgent() error: %v", err)
	}
	if !strings.HasPrefix(ua, "MyApp/2.0") {
		t.Errorf("resolveUserAgent() = %q, want MyApp/2.0 prefix", ua)
	}
}
