package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pkt.systems/frontline"
	"pkt.systems/frontline/internal/appconfig"
	"pkt.systems/frontline/schema"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"serve": false, "open": false, "config": false, "version": false}
	for _, cmd := range root.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("missing %s command", name)
		}
	}
}

func TestLanguageFor(t *testing.T) {
	tests := []struct {
		path string
		want schema.LanguageID
	}{
		{path: "main.go", want: "Go"},
		{path: "README.MD", want: "Markdown"},
		{path: "config.yml", want: "YAML"},
		{path: "notes", want: plainText},
	}
	for _, tc := range tests {
		if got := languageFor(tc.path); got != tc.want {
			t.Fatalf("languageFor(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
	langs := languageList()
	for i := 1; i < len(langs); i++ {
		if langs[i-1] >= langs[i] {
			t.Fatalf("expected sorted unique languages, got %v", langs)
		}
	}
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestOpenDirectPrintsRenderedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "hello.go", "hello\nworld\n")

	var out bytes.Buffer
	opts := openOptions{cfgPath: filepath.Join(dir, "absent.yaml"), direct: true, theme: "outrun", width: 40}
	if err := runOpen(context.Background(), &out, opts, []string{path}); err != nil {
		t.Fatalf("runOpen: %v", err)
	}
	got := out.String()
	for _, want := range []string{"== view-id-1 " + path + " ==", "hello\n", "world\n", "hello.go", "2 lines, 5 cols"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in output:\n%s", want, got)
		}
	}
}

func TestOpenRemoteReachesHost(t *testing.T) {
	dir := t.TempDir()
	sock := filepath.Join(dir, "front.sock")
	cfgPath := writeTestFile(t, dir, "config.yaml", fmt.Sprintf(`config_version: 1
transport:
  kind: json
  network: unix
  address: %s
  request_timeout_seconds: 2
`, sock))
	cfg, err := appconfig.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	server, err := frontline.New(toServerConfig(cfg), frontline.ServerDeps{}, frontline.WithTransport())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := server.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = server.Stop(context.Background()) }()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(sock); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("socket not ready")
		}
		time.Sleep(10 * time.Millisecond)
	}

	path := writeTestFile(t, dir, "notes.md", "# title\nbody\nend\n")
	if err := runOpen(context.Background(), &bytes.Buffer{}, openOptions{cfgPath: cfgPath, theme: "gruvbox", width: 80}, []string{path}); err != nil {
		t.Fatalf("runOpen: %v", err)
	}

	deadline = time.Now().Add(2 * time.Second)
	for {
		state, ok := server.Display().Snapshot(1)
		if ok && len(state.Lines) == 3 && state.Language == "Markdown" && len(state.StatusItems) == 2 && strings.Contains(state.StatusItems[1].Value, "cols") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("host never received the view: %+v", state)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := server.Display().Global().Theme; got != "gruvbox" {
		t.Fatalf("expected theme gruvbox, got %q", got)
	}
}

func TestOpenFailsWithoutHost(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestFile(t, dir, "config.yaml", fmt.Sprintf(`config_version: 1
transport:
  kind: json
  network: unix
  address: %s
`, filepath.Join(dir, "nobody.sock")))
	path := writeTestFile(t, dir, "a.txt", "a\n")
	if err := runOpen(context.Background(), &bytes.Buffer{}, openOptions{cfgPath: cfgPath}, []string{path}); err == nil {
		t.Fatalf("expected dial error")
	}
}

func TestConfigInitWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	root := newRootCmd()
	root.SetArgs([]string{"config", "init", "--config", path})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := appconfig.Load(path); err != nil {
		t.Fatalf("written config does not load: %v", err)
	}

	root = newRootCmd()
	root.SetArgs([]string{"config", "init", "--config", path})
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Fatalf("expected refusal to overwrite without --force")
	}
	root = newRootCmd()
	root.SetArgs([]string{"config", "init", "--config", path, "--force"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("config init --force: %v", err)
	}
}

func TestVersionJSON(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--json"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("version: %v", err)
	}
	var info map[string]any
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatalf("decode %q: %v", out.String(), err)
	}
	if info["module"] == "" || info["version"] == "" {
		t.Fatalf("unexpected version info %v", info)
	}
}
