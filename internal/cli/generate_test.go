package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/SmitUplenchwar2687/Spigot/internal/config"
	"github.com/SmitUplenchwar2687/Spigot/internal/recorder"
)

func TestGenerateTrafficCmd_RoundTrips(t *testing.T) {
	for _, format := range []string{"json", "ndjson"} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "traffic."+format)
			args := []string{"generate", "traffic", "--output", path, "--count", "12", "--seed", "3"}
			if format == "ndjson" {
				args = append(args, "--ndjson")
			}

			cmd := NewRootCmd()
			cmd.SetOut(new(bytes.Buffer))
			cmd.SetArgs(args)
			if err := cmd.Execute(); err != nil {
				t.Fatalf("generate traffic failed: %v", err)
			}

			records, err := recorder.LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile() error = %v", err)
			}
			if len(records) != 12 {
				t.Fatalf("len = %d, want 12", len(records))
			}
			if records[0].ID == "" {
				t.Fatal("records should carry IDs")
			}
		})
	}
}

func TestGenerateTrafficCmd_InvalidPattern(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"generate", "traffic", "--output", filepath.Join(t.TempDir(), "x.json"), "--pattern", "zigzag"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for unknown pattern")
	}
}

func TestGenerateConfigCmd(t *testing.T) {
	for _, name := range []string{"spigot.yaml", "spigot.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cmd := NewRootCmd()
			cmd.SetOut(new(bytes.Buffer))
			cmd.SetArgs([]string{"generate", "config", "--output", path})
			if err := cmd.Execute(); err != nil {
				t.Fatalf("generate config failed: %v", err)
			}
			if _, err := config.Load(path); err != nil {
				t.Fatalf("generated config does not load: %v", err)
			}
		})
	}
}
