package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docsplit/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	outputDir  string
	logDir     string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	outputDir := filepath.Join(base, "out")
	logDir := filepath.Join(base, "logs")
	configPath := filepath.Join(homeDir, ".config", "docsplit", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}

	content := fmt.Sprintf(`[paths]
output_dir = %q
log_dir = %q

[limits]
size_limit_bytes = 4000
document_limit = 100

[split]
workers = 2
strict = true

[logging]
format = "json"
level = "error"

[history]
enabled = true
`, outputDir, logDir)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{
		baseDir:    base,
		configPath: configPath,
		outputDir:  outputDir,
		logDir:     logDir,
	}
}

func (env *cliTestEnv) writeExportZip(t *testing.T, docs []testsupport.Doc) string {
	t.Helper()
	tree := filepath.Join(env.baseDir, "tree")
	if err := os.RemoveAll(tree); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteExportTree(t, tree, docs)
	zipPath := filepath.Join(env.baseDir, "export.zip")
	testsupport.ZipDirectory(t, tree, zipPath)
	return zipPath
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = []string{"--config", configPath}
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
