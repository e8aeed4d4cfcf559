package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap/zaptest"

	"kabinet.io/kabinet/pkg/token"
	"kabinet.io/kabinet/server"
)

// testEnv is a development server and a token it accepts.
type testEnv struct {
	url    string
	token  string
	secret string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	secret, err := token.GenerateSecret()
	if err != nil {
		t.Fatal(err)
	}
	srv, err := server.New(context.Background(), server.Config{Secret: secret, RateLimitRPS: -1}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("server.New() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})

	tok, err := srv.IssueToken("cli-test", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return &testEnv{url: ts.URL + "/graphql", token: tok, secret: secret}
}

// resetCommands restores every flag to its default and hands every
// command ctx, so commands can run repeatedly in one process. cobra only
// passes the root context to subcommands that have none yet.
func resetCommands(ctx context.Context, c *cobra.Command) {
	c.SetContext(ctx)
	resetFlags(c)
	for _, sub := range c.Commands() {
		resetCommands(ctx, sub)
	}
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
}

// run executes the CLI with args and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	resetCommands(ctx, rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	defer func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func (e *testEnv) run(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, "", append([]string{"--url", e.url, "--token", e.token}, args...)...)
	if err != nil {
		t.Fatalf("kabinet %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    outputFormat
		wantErr bool
	}{
		{in: "table", want: formatTable},
		{in: "JSON", want: formatJSON},
		{in: "yaml", want: formatYAML},
		{in: "xml", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestRender(t *testing.T) {
	type row struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	rows := []row{{ID: "1", Name: "first"}, {ID: "22", Name: "second"}}
	build := func() *table {
		tb := &table{header: []string{"ID", "NAME"}}
		for _, r := range rows {
			tb.add(r.ID, r.Name)
		}
		return tb
	}

	tests := []struct {
		format string
		build  func() *table
		want   string
	}{
		{format: "table", build: build, want: "ID  NAME\n1   first\n22  second\n"},
		{format: "json", build: build, want: "[\n  {\n    \"id\": \"1\",\n    \"name\": \"first\"\n  },\n  {\n    \"id\": \"22\",\n    \"name\": \"second\"\n  }\n]\n"},
		{format: "yaml", build: build, want: "- id: \"1\"\n  name: first\n- id: \"22\"\n  name: second\n"},
		{format: "table", build: nil, want: "- id: \"1\"\n  name: first\n- id: \"22\"\n  name: second\n"},
	}

	defer func(prev string) { opts.output = prev }(opts.output)
	for _, tt := range tests {
		opts.output = tt.format
		var buf bytes.Buffer
		if err := render(&buf, rows, tt.build); err != nil {
			t.Fatalf("render(%s) error = %v", tt.format, err)
		}
		if buf.String() != tt.want {
			t.Errorf("render(%s) =\n%s\nwant\n%s", tt.format, buf.String(), tt.want)
		}
	}
}

func TestQueryVariables(t *testing.T) {
	file := filepath.Join(t.TempDir(), "vars.yaml")
	if err := os.WriteFile(file, []byte("id: pod-1\nlimit: 3\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	vars, err := queryVariables(file, []string{"limit=5", `ids=["a","b"]`, "name=plain text"})
	if err != nil {
		t.Fatalf("queryVariables() error = %v", err)
	}
	if vars["id"] != "pod-1" {
		t.Errorf("id = %v", vars["id"])
	}
	if vars["limit"] != float64(5) {
		t.Errorf("limit = %#v, want the --var value", vars["limit"])
	}
	if ids, ok := vars["ids"].([]interface{}); !ok || len(ids) != 2 {
		t.Errorf("ids = %#v", vars["ids"])
	}
	if vars["name"] != "plain text" {
		t.Errorf("name = %v", vars["name"])
	}

	if _, err := queryVariables("", []string{"novalue"}); err == nil {
		t.Error("expected error for a pair without =")
	}
}

func TestExtract(t *testing.T) {
	var doc interface{}
	if err := json.Unmarshal([]byte(`{"pods":[{"id":"1","podId":"a"},{"id":"2","podId":"b"}]}`), &doc); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		expr    string
		want    interface{}
		wantErr bool
	}{
		{expr: "$.pods[0].podId", want: "a"},
		{expr: `$.pods[?(@.id=="2")].podId`, want: "b"},
		{expr: "$.missing", wantErr: true},
	}
	for _, tt := range tests {
		got, err := extract(doc, tt.expr)
		if (err != nil) != tt.wantErr {
			t.Errorf("extract(%s) error = %v", tt.expr, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("extract(%s) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestParseSlug(t *testing.T) {
	user, repo, err := parseSlug("jhnnsrs/render")
	if err != nil || user != "jhnnsrs" || repo != "render" {
		t.Errorf("parseSlug() = %q, %q, %v", user, repo, err)
	}
	for _, bad := range []string{"render", "/render", "a/b/c", "a/"} {
		if _, _, err := parseSlug(bad); err == nil {
			t.Errorf("parseSlug(%q) succeeded", bad)
		}
	}
}

func TestHealthBase(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
	}{
		{endpoint: "http://localhost:8080/graphql", want: "http://localhost:8080/health"},
		{endpoint: "http://localhost:8080/graphql/", want: "http://localhost:8080/health"},
		{endpoint: "https://example.com/kabinet/graphql?x=1", want: "https://example.com/kabinet/health"},
	}
	for _, tt := range tests {
		got, err := healthBase(tt.endpoint)
		if err != nil || got != tt.want {
			t.Errorf("healthBase(%s) = %s, %v; want %s", tt.endpoint, got, err, tt.want)
		}
	}
}

func TestCLI_Resources(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "backends", args: []string{"backends", "list"}, want: "backend-1"},
		{name: "backend", args: []string{"backends", "get", "backend-1"}, want: "Local Docker"},
		{name: "resources", args: []string{"resources"}, want: "Workstation GPU"},
		{name: "releases", args: []string{"releases", "list"}, want: "release-1"},
		{name: "release", args: []string{"releases", "get", "release-1"}, want: "vanilla"},
		{name: "definitions", args: []string{"definitions", "list"}, want: "Gaussian Blur"},
		{name: "definition search", args: []string{"definitions", "search", "blur"}, want: "Gaussian Blur"},
		{name: "flavours", args: []string{"flavours", "list", "--search", "cuda"}, want: "flavour-2"},
		{name: "users", args: []string{"users"}, want: "cli-test"},
		{name: "json output", args: []string{"-o", "json", "backends", "list"}, want: `"id": "backend-1"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := env.run(t, tt.args...)
			if !strings.Contains(out, tt.want) {
				t.Errorf("output does not contain %q:\n%s", tt.want, out)
			}
		})
	}
}

func TestCLI_PodLifecycle(t *testing.T) {
	env := newTestEnv(t)

	out := env.run(t, "-o", "json", "deployments", "create", "flavour-1", "--local-id", "container-1")
	var dep struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(out), &dep); err != nil || dep.ID == "" {
		t.Fatalf("deployment output %q: %v", out, err)
	}

	out = env.run(t, "-o", "json", "pods", "create", dep.ID, "--local-id", "pod-a")
	var pod struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(out), &pod); err != nil || pod.ID == "" {
		t.Fatalf("pod output %q: %v", out, err)
	}

	env.run(t, "pods", "update", pod.ID, "running")

	if out := env.run(t, "pods", "list"); !strings.Contains(out, pod.ID) {
		t.Errorf("pods list does not contain %s:\n%s", pod.ID, out)
	}

	_, err := run(t, "", "--url", env.url, "--token", env.token, "pods", "update", pod.ID, "sideways")
	if err == nil || !strings.Contains(err.Error(), `unknown status "sideways"`) {
		t.Errorf("pods update with an invalid status: error = %v", err)
	}
}

func TestCLI_PodWatchPollRejectsBackend(t *testing.T) {
	env := newTestEnv(t)

	_, err := run(t, "", "--url", env.url, "--token", env.token, "pods", "watch", "--poll", "--backend", "backend-1")
	if err == nil || !strings.Contains(err.Error(), "backend") {
		t.Errorf("pods watch --poll --backend: error = %v", err)
	}
}

func TestCLI_RepeatedRuns(t *testing.T) {
	env := newTestEnv(t)

	doc := "query ListBackends {\n  backends {\n    id\n  }\n}"
	for i := 0; i < 3; i++ {
		out, err := run(t, doc, "--url", env.url, "--token", env.token, "query", "-")
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if !strings.Contains(out, "backend-1") {
			t.Errorf("run %d output = %s", i, out)
		}
	}
}

func TestCLI_Query(t *testing.T) {
	env := newTestEnv(t)

	doc := filepath.Join(t.TempDir(), "backend.graphql")
	query := "query GetBackend($id: ID!) {\n  backend(id: $id) {\n    id\n    name\n  }\n}"
	if err := os.WriteFile(doc, []byte(query), 0o600); err != nil {
		t.Fatal(err)
	}

	out := env.run(t, "query", doc, "--var", "id=backend-1", "--jsonpath", "$.backend.name")
	if out != "Local Docker\n" {
		t.Errorf("query output = %q", out)
	}

	out, err := run(t, "query ListBackends {\n  backends {\n    id\n  }\n}", "--url", env.url, "--token", env.token, "-o", "json", "query", "-")
	if err != nil {
		t.Fatalf("query from stdin: %v", err)
	}
	if !strings.Contains(out, "backend-1") {
		t.Errorf("stdin query output = %s", out)
	}
}

func TestCLI_Unauthenticated(t *testing.T) {
	env := newTestEnv(t)

	_, err := run(t, "", "--url", env.url, "--token", "nope", "backends", "list")
	if err == nil {
		t.Fatal("expected an invalid token to fail")
	}
}

func TestCLI_Status(t *testing.T) {
	env := newTestEnv(t)

	out := env.run(t, "status")
	if !strings.Contains(out, "live") || !strings.Contains(out, "ready") {
		t.Errorf("status output = %s", out)
	}
}

func TestCLI_Token(t *testing.T) {
	secret, err := run(t, "", "token", "secret")
	if err != nil {
		t.Fatal(err)
	}
	secret = strings.TrimSpace(secret)
	if err := token.ValidateSecret(secret); err != nil {
		t.Fatalf("generated secret invalid: %v", err)
	}

	raw, err := run(t, "", "token", "issue", "alice", "--secret", secret, "--scope", "read")
	if err != nil {
		t.Fatal(err)
	}

	out, err := run(t, raw, "-o", "json", "token", "verify", "--secret", secret)
	if err != nil {
		t.Fatalf("token verify: %v", err)
	}
	var claims token.Claims
	if err := json.Unmarshal([]byte(out), &claims); err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "alice" || len(claims.Scopes) != 1 {
		t.Errorf("claims = %+v", claims)
	}

	other, _ := token.GenerateSecret()
	if _, err := run(t, "", "token", "verify", strings.TrimSpace(raw), "--secret", other); err == nil {
		t.Error("expected a foreign secret to fail")
	}
}

func TestCLI_Version(t *testing.T) {
	out, err := run(t, "", "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, Version) {
		t.Errorf("version output = %q", out)
	}
}
