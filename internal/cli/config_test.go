package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/SmitUplenchwar2687/Spigot/internal/config"
)

func TestConfigShow_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"config", "show"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config show failed: %v", err)
	}

	var got config.Config
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, buf.String())
	}
	if got.Limiter.Config != config.Default().Limiter.Config {
		t.Fatalf("limiter = %+v, want defaults", got.Limiter.Config)
	}
}

func TestConfigShow_EnvOverrides(t *testing.T) {
	t.Setenv("SPIGOT_LIMITER_RATE", "42")

	var buf bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"config", "show"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(buf.String(), "rate: 42") {
		t.Fatalf("env override missing:\n%s", buf.String())
	}
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	if err := config.WriteExample(good); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("cache:\n  max_size: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"config", "validate", good})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("validate good config: %v", err)
	}
	if !strings.Contains(buf.String(), "is valid") {
		t.Fatalf("output = %q", buf.String())
	}

	cmd = NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"config", "validate", bad})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for zero cache size")
	}
}
