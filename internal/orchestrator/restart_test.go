package orchestrator

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRestartDetector_Defaults(t *testing.T) {
	d := NewRestartDetector()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"restart plus service", "you should restart nginx now", true},
		{"restart plus daemon", "Restart the daemon to apply", true},
		{"restart alone", "a restart of the widget is advised", false},
		{"service alone", "nginx is running fine", false},
		{"case insensitive", "RESTART the Postgres instance", true},
		{"split across texts", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Detect(tt.text); got != tt.want {
				t.Errorf("Detect(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}

	// Texts are matched jointly, so the trigger may span entries.
	if !d.Detect("please restart", "the mysql box") {
		t.Error("Detect across multiple texts = false, want true")
	}
}

func TestRestartDetector_LoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".rumpbot.yaml")
	yaml := "restart_watch:\n  services:\n    - traefik\n    - nginx\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	d := NewRestartDetector()
	if err := d.LoadConfig(path); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if !d.Detect("restart traefik after the change") {
		t.Error("merged token not detected")
	}
	if !d.Detect("restart nginx") {
		t.Error("default token lost after merge")
	}

	// Duplicates must not accumulate.
	count := 0
	for _, tok := range d.Tokens() {
		if tok == "nginx" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("nginx appears %d times, want 1", count)
	}
}

func TestRestartDetector_LoadConfigMissingFile(t *testing.T) {
	d := NewRestartDetector()
	if err := d.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatalf("missing file must be tolerated: %v", err)
	}
	if !d.Detect("restart the server") {
		t.Error("defaults lost on missing file")
	}
}
