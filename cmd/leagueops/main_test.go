package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonwraymond/leagueops/auth"
	"github.com/jonwraymond/leagueops/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

const testConfig = `
upstream:
  oauth:
    client_id: client
    client_secret: secret
    refresh_token: refresh
admin:
  jwt_secret: ` + testSecret + `
  api_keys:
    - id: ops
      key: ops-key
      principal: ops
      scopes: ["cache:admin"]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leagueops.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", "--config", writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("validate error = %v", err)
	}
	for _, want := range []string{"configuration ok", "60 calls per 1m0s", "1 api keys, jwt true"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestValidateCommand_ReportsProblems(t *testing.T) {
	_, err := execute(t, "validate", "--config", writeConfig(t, "rate_limit:\n  max_calls: 0\n"))
	if err == nil {
		t.Fatal("validate should fail")
	}
	for _, want := range []string{"rate_limit", "upstream.oauth", "admin"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestTokenCommand(t *testing.T) {
	out, err := execute(t, "token", "--config", writeConfig(t, testConfig), "--principal", "alice", "--scope", "cache:admin")
	if err != nil {
		t.Fatalf("token error = %v", err)
	}
	token := strings.TrimSpace(out)

	cfg, err := config.Parse(context.Background(), []byte(testConfig), nil)
	if err != nil {
		t.Fatal(err)
	}
	authn := newAuthenticator(cfg.Admin)
	req := &auth.AuthRequest{Headers: http.Header{"Authorization": {"Bearer " + token}}}
	result, err := authn.Authenticate(context.Background(), req)
	if err != nil || !result.Authenticated {
		t.Fatalf("issued token rejected: %+v, %v", result, err)
	}
	if result.Identity.Principal != "alice" || !result.Identity.HasScope(auth.ScopeCacheAdmin) {
		t.Errorf("identity = %+v", result.Identity)
	}

	if _, err := execute(t, "token", "--config", writeConfig(t, testConfig), "--principal", "bob", "--scope", "root"); err == nil {
		t.Error("unknown scope should fail")
	}
}

func TestNewAuthenticator_APIKey(t *testing.T) {
	cfg, err := config.Parse(context.Background(), []byte(testConfig), nil)
	if err != nil {
		t.Fatal(err)
	}
	authn := newAuthenticator(cfg.Admin)

	result, err := authn.Authenticate(context.Background(), &auth.AuthRequest{Headers: http.Header{"X-Api-Key": {"ops-key"}}})
	if err != nil || !result.Authenticated || result.Identity.Principal != "ops" {
		t.Fatalf("api key auth = %+v, %v", result, err)
	}

	result, err = authn.Authenticate(context.Background(), &auth.AuthRequest{Headers: http.Header{"X-Api-Key": {"wrong"}}})
	if err != nil || result.Authenticated {
		t.Errorf("wrong key accepted: %+v, %v", result, err)
	}
}
