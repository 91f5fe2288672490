// internal/download/auth_test.go
package download

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	xerrors "github.com/valpere/DataRetriever/internal/errors"
)

func testConfig() Config {
	return Config{UserAgent: "test", IgnoreEnv: true}
}

func TestResolveRequestContextExplicitAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = &BasicAuth{Username: "user", Password: "pass"}

	rc, err := resolveRequestContext(cfg)
	if err != nil {
		t.Fatalf("resolveRequestContext() error: %v", err)
	}
	if rc.auth == nil || rc.auth.Username != "user" || rc.auth.Password != "pass" {
		t.Errorf("auth = %+v, want user/pass", rc.auth)
	}
}

func TestResolveRequestContextBasicAuthString(t *testing.T) {
	cfg := testConfig()
	cfg.BasicAuth = "Basic " + base64.StdEncoding.EncodeToString([]byte("alice:secret"))

	rc, err := resolveRequestContext(cfg)
	if err != nil {
		t.Fatalf("resolveRequestContext() error: %v", err)
	}
	if rc.auth == nil || rc.auth.Username != "alice" || rc.auth.Password != "secret" {
		t.Errorf("auth = %+v, want alice/secret", rc.auth)
	}
}

func TestResolveRequestContextBasicAuthFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.txt")
	encoded := base64.StdEncoding.EncodeToString([]byte("bob:hunter2"))
	if err := os.WriteFile(path, []byte(encoded+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.BasicAuthFile = path

	rc, err := resolveRequestContext(cfg)
	if err != nil {
		t.Fatalf("resolveRequestContext() error: %v", err)
	}
	if rc.auth == nil || rc.auth.Username != "bob" {
		t.Errorf("auth = %+v, want bob", rc.auth)
	}
}

func TestResolveRequestContextMissingAuthFile(t *testing.T) {
	cfg := testConfig()
	cfg.BasicAuthFile = filepath.Join(t.TempDir(), "nonexistent")

	if _, err := resolveRequestContext(cfg); err == nil {
		t.Error("missing auth file should fail by default")
	}

	cfg.AllowMissingFile = true
	rc, err := resolveRequestContext(cfg)
	if err != nil {
		t.Fatalf("resolveRequestContext() with AllowMissingFile error: %v", err)
	}
	if rc.auth != nil {
		t.Errorf("auth = %+v, want nil for skipped file", rc.auth)
	}
}

func TestResolveRequestContextConflictingAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = &BasicAuth{Username: "user", Password: "pass"}
	cfg.BasicAuth = "Basic " + base64.StdEncoding.EncodeToString([]byte("alice:secret"))

	_, err := resolveRequestContext(cfg)
	if err == nil {
		t.Fatal("two auth sources should conflict")
	}
	if !xerrors.IsConfiguration(err) {
		t.Errorf("error = %T, want ConfigurationError", err)
	}
	if !strings.Contains(err.Error(), "more than one authorisation given") {
		t.Errorf("error = %q, want conflict message", err)
	}
}

func TestResolveRequestContextAuthorizationHeaderConflicts(t *testing.T) {
	cfg := testConfig()
	cfg.Headers = map[string]string{"Authorization": "Bearer token"}
	cfg.BasicAuth = "Basic " + base64.StdEncoding.EncodeToString([]byte("alice:secret"))

	if _, err := resolveRequestContext(cfg); err == nil {
		t.Error("Authorization header plus basic auth should conflict")
	}

	cfg.BasicAuth = ""
	rc, err := resolveRequestContext(cfg)
	if err != nil {
		t.Fatalf("resolveRequestContext() error: %v", err)
	}
	if rc.headers["Authorization"] != "Bearer token" {
		t.Errorf("headers = %v, want Authorization preserved", rc.headers)
	}
	if rc.auth != nil {
		t.Errorf("auth = %+v, want nil when header carries authorisation", rc.auth)
	}
}

func TestResolveRequestContextEnvBasicAuth(t *testing.T) {
	ClearDefaultUserAgent()
	t.Setenv("BASIC_AUTH", "Basic "+base64.StdEncoding.EncodeToString([]byte("env:pw")))
	t.Setenv("EXTRA_PARAMS", "")

	cfg := Config{UserAgent: "test"}
	rc, err := resolveRequestContext(cfg)
	if err != nil {
		t.Fatalf("resolveRequestContext() error: %v", err)
	}
	if rc.auth == nil || rc.auth.Username != "env" {
		t.Errorf("auth = %+v, want env user", rc.auth)
	}

	// IgnoreEnv shuts the environment source off.
	cfg.IgnoreEnv = true
	rc, err = resolveRequestContext(cfg)
	if err != nil {
		t.Fatalf("resolveRequestContext() with IgnoreEnv error: %v", err)
	}
	if rc.auth != nil {
		t.Errorf("auth = %+v, want nil with IgnoreEnv", rc.auth)
	}
}

func TestResolveExtraParamsInline(t *testing.T) {
	cfg := testConfig()
	cfg.ExtraParams = map[string]string{"b": "2", "a": "1"}

	params, fromEnv, err := resolveExtraParams(cfg)
	if err != nil {
		t.Fatalf("resolveExtraParams() error: %v", err)
	}
	if fromEnv {
		t.Error("fromEnv = true, want false")
	}
	if len(params) != 2 || params[0].key != "a" || params[1].key != "b" {
		t.Errorf("params = %v, want sorted a,b", params)
	}
}

func TestResolveExtraParamsEnvironmentWins(t *testing.T) {
	t.Setenv("EXTRA_PARAMS", "key=from env, other=2")
	t.Setenv("BASIC_AUTH", "")

	cfg := Config{UserAgent: "test"}
	cfg.ExtraParams = map[string]string{"key": "inline"}

	params, fromEnv, err := resolveExtraParams(cfg)
	if err != nil {
		t.Fatalf("resolveExtraParams() error: %v", err)
	}
	if !fromEnv {
		t.Error("fromEnv = false, want true")
	}
	got := map[string]string{}
	for _, p := range params {
		got[p.key] = p.value
	}
	if got["key"] != "from env" || got["other"] != "2" {
		t.Errorf("params = %v, want environment values", got)
	}
}

func TestResolveExtraParamsJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	content := `{"outer": {"token": "abc", "count": 5}}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.ExtraParamsJSON = path
	cfg.ExtraParamsLookup = "outer"

	params, _, err := resolveExtraParams(cfg)
	if err != nil {
		t.Fatalf("resolveExtraParams() error: %v", err)
	}
	got := map[string]string{}
	for _, p := range params {
		got[p.key] = p.value
	}
	if got["token"] != "abc" || got["count"] != "5" {
		t.Errorf("params = %v, want token and count", got)
	}

	cfg.ExtraParamsLookup = "missing"
	if _, _, err := resolveExtraParams(cfg); err == nil {
		t.Error("missing lookup key should fail")
	}
}

func TestResolveExtraParamsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	if err := os.WriteFile(path, []byte("key: value\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.ExtraParamsYAML = path

	params, _, err := resolveExtraParams(cfg)
	if err != nil {
		t.Fatalf("resolveExtraParams() error: %v", err)
	}
	if len(params) != 1 || params[0].key != "key" || params[0].value != "value" {
		t.Errorf("params = %v, want key=value", params)
	}
}

func TestResolveExtraParamsConflictingSources(t *testing.T) {
	cfg := testConfig()
	cfg.ExtraParams = map[string]string{"a": "1"}
	cfg.ExtraParamsJSON = "params.json"

	_, _, err := resolveExtraParams(cfg)
	if err == nil {
		t.Fatal("two parameter sources should conflict")
	}
	if !strings.Contains(err.Error(), "more than one set of extra parameters") {
		t.Errorf("error = %q, want conflict message", err)
	}
}

func TestBasicAuthParameterHoisted(t *testing.T) {
	cfg := testConfig()
	cfg.ExtraParams = map[string]string{
		"basic_auth": "Basic " + base64.StdEncoding.EncodeToString([]byte("carol:pw")),
		"key":        "value",
	}

	rc, err := resolveRequestContext(cfg)
	if err != nil {
		t.Fatalf("resolveRequestContext() error: %v", err)
	}
	if rc.auth == nil || rc.auth.Username != "carol" {
		t.Errorf("auth = %+v, want carol hoisted from parameters", rc.auth)
	}
	for _, p := range rc.params {
		if p.key == "basic_auth" {
			t.Error("basic_auth leaked into query parameters")
		}
	}
	if len(rc.params) != 1 || rc.params[0].key != "key" {
		t.Errorf("params = %v, want only key", rc.params)
	}
}

func TestDecodeBasicAuth(t *testing.T) {
	auth, err := decodeBasicAuth("Basic " + base64.StdEncoding.EncodeToString([]byte("u:p:with:colons")))
	if err != nil {
		t.Fatalf("decodeBasicAuth() error: %v", err)
	}
	if auth.Username != "u" || auth.Password != "p:with:colons" {
		t.Errorf("decodeBasicAuth() = %+v, want split on first colon", auth)
	}

	if _, err := decodeBasicAuth("not base64 !!!"); err == nil {
		t.Error("invalid base64 should fail")
	}
	if _, err := decodeBasicAuth(base64.StdEncoding.EncodeToString([]byte("no colon"))); err == nil {
		t.Error("missing colon should fail")
	}
}
