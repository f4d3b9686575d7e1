package cli

import (
	"bytes"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/todo/api/handler"
	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/internal/router"
	"github.com/fastygo/todo/pkg/httpcontext"
	"github.com/fastygo/todo/repository/memory"
	todoUC "github.com/fastygo/todo/usecase/todo"
)

// startServer serves the real router over loopback and returns its base URL.
func startServer(t *testing.T) string {
	t.Helper()
	r := router.New(router.Handlers{
		Todo: apiHandler.NewTodoHandler(
			todoUC.New(memory.NewTodoRepository(), nil, nil),
			httpcontext.NewAdapter(time.Second),
			nil,
		),
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server := &fasthttp.Server{Handler: r.Handler}
	go server.Serve(ln) //nolint:errcheck
	t.Cleanup(func() { _ = server.Shutdown() })
	return "http://" + ln.Addr().String()
}

// writeConfig points todoctl at url through a TOML file.
func writeConfig(t *testing.T, url string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "server = \"" + url + "\"\ntimeout = \"2s\"\nlog_level = \"error\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, cfgPath string, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(append([]string{"--config", cfgPath}, args...), &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func TestCommandsAgainstServer(t *testing.T) {
	t.Setenv("TODO_SERVER", "")
	cfg := writeConfig(t, startServer(t))

	out, errOut, code := run(t, cfg, "add", "buy", "milk")
	if code != 0 || !strings.Contains(out, "[ ] buy milk") {
		t.Fatalf("add: code=%d out=%q err=%q", code, out, errOut)
	}
	id := strings.Fields(out)[0]

	if out, _, code = run(t, cfg, "toggle", id); code != 0 || !strings.Contains(out, "[x] buy milk") {
		t.Fatalf("toggle: code=%d out=%q", code, out)
	}
	if out, _, code = run(t, cfg, "toggle", id, "--done"); code != 0 || !strings.Contains(out, "[x]") {
		t.Fatalf("toggle --done should be idempotent: code=%d out=%q", code, out)
	}
	if out, _, code = run(t, cfg, "edit", id, "buy", "oat", "milk"); code != 0 || !strings.Contains(out, "buy oat milk") {
		t.Fatalf("edit: code=%d out=%q", code, out)
	}

	out, _, code = run(t, cfg, "list", "--json")
	if code != 0 {
		t.Fatalf("list: code=%d", code)
	}
	var todos []domain.Todo
	if err := json.Unmarshal([]byte(out), &todos); err != nil {
		t.Fatalf("list json: %v\n%s", err, out)
	}
	if len(todos) != 1 || todos[0].Title != "buy oat milk" || !todos[0].Completed {
		t.Fatalf("list: %+v", todos)
	}

	if _, _, code = run(t, cfg, "rm", id); code != 0 {
		t.Fatalf("rm: code=%d", code)
	}
	if out, _, _ = run(t, cfg, "list"); strings.TrimSpace(out) != "" {
		t.Fatalf("expected empty list, got %q", out)
	}
}

func TestCommandErrors(t *testing.T) {
	t.Setenv("TODO_SERVER", "")
	cfg := writeConfig(t, startServer(t))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "blank title", args: []string{"add", " "}, want: "Title must not be empty"},
		{name: "missing todo", args: []string{"rm", "42"}, want: "Todo Not Found"},
		{name: "toggle missing", args: []string{"toggle", "42"}, want: "todo 42 not found"},
		{name: "bad id", args: []string{"rm", "abc"}, want: "invalid id"},
		{name: "conflicting flags", args: []string{"toggle", "1", "--done", "--undone"}, want: "mutually exclusive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errOut, code := run(t, cfg, tt.args...)
			if code == 0 {
				t.Fatal("expected failure")
			}
			if !strings.Contains(errOut, tt.want) {
				t.Errorf("stderr %q does not mention %q", errOut, tt.want)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("TODO_SERVER", "")
	t.Setenv("TODO_TOKEN", "from-env")

	path := filepath.Join(t.TempDir(), "c.toml")
	if err := os.WriteFile(path, []byte("server = \"http://file\"\ntimeout = \"3s\"\ntoken = \"from-file\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server != "http://file" || cfg.Timeout != 3*time.Second {
		t.Errorf("file values: %+v", cfg)
	}
	if cfg.Token != "from-env" {
		t.Errorf("env should override file, got %q", cfg.Token)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("default kept: %q", cfg.LogLevel)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("explicit missing file should fail")
	}
}

func TestImplicitConfigMayBeMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TODO_SERVER", "")
	t.Setenv("TODO_TOKEN", "")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("got %+v", cfg)
	}
}

func TestServerFlagOverridesConfig(t *testing.T) {
	t.Setenv("TODO_SERVER", "")
	url := startServer(t)
	cfg := writeConfig(t, "http://127.0.0.1:1")

	if _, errOut, code := run(t, cfg, "--server", url, "list"); code != 0 {
		t.Fatalf("list with --server: %s", errOut)
	}
}
