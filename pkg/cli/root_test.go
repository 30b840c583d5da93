package cli

import "testing"

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()
	if cmd == nil {
		t.Fatal("NewRootCmd() returned nil")
	}
	if cmd.Use != "spigot" {
		t.Fatalf("Use = %q, want %q", cmd.Use, "spigot")
	}
	for _, name := range []string{"server", "test", "replay", "stream", "generate", "config"} {
		if c, _, err := cmd.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("missing subcommand %q", name)
		}
	}
}
