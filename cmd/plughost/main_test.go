package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testConfig = `
[logging]
level = "error"
format = "console"

[engine]
sample_rate = 48000
block_size = 64
thread_checks = false

[discovery]
search_paths = []
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(testConfig), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", writeTestConfig(t)}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("Expected %q to contain %q", output, substr)
	}
}

func TestProbeCommand(t *testing.T) {
	out, err := runCLI(t, "probe", "native:gain", "native:upmix")
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	requireContains(t, out, "Simple Gain")
	requireContains(t, out, "com.plughost.upmix")
	requireContains(t, out, "native")

	if _, err := runCLI(t, "probe", filepath.Join(t.TempDir(), "notes.txt")); err == nil {
		t.Error("Expected probing an unknown file to fail")
	}
}

func TestScanCommand(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, "scan", dir)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	requireContains(t, out, "Note Monitor")

	out, err = runCLI(t, "scan", "--native=false", dir)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	requireContains(t, out, "No plugins found")
}

func TestInspectCommand(t *testing.T) {
	out, err := runCLI(t, "inspect", "native:gain")
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	requireContains(t, out, "Stereo In")
	requireContains(t, out, "Latency: 0 samples")
	requireContains(t, out, "0.0 dB")
	requireContains(t, out, "read-only")
	if strings.Contains(out, "Editor Zoom") {
		t.Error("Expected hidden parameters to be skipped")
	}

	out, err = runCLI(t, "inspect", "--all", "native:gain")
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	requireContains(t, out, "Editor Zoom")

	if _, err := runCLI(t, "inspect", "native:missing"); err == nil {
		t.Error("Expected inspecting an unknown plugin to fail")
	}
}

func TestRunCommand(t *testing.T) {
	t.Run("layout change", func(t *testing.T) {
		out, err := runCLI(t, "run", "-n", "3", "--set", "0=1", "native:upmix")
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		requireContains(t, out, "change_latency(128)")
		requireContains(t, out, "configuration_changed")
		requireContains(t, out, "process")
	})

	t.Run("notes", func(t *testing.T) {
		out, err := runCLI(t, "run", "-n", "1", "--note", "60", "native:notemonitor")
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		requireContains(t, out, "parameter_update")
		requireContains(t, out, "update_display")
	})

	t.Run("editor", func(t *testing.T) {
		out, err := runCLI(t, "run", "-n", "1", "--editor", "native:gain")
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		requireContains(t, out, "No notifications")
	})

	bad := [][]string{
		{"run", "--set", "zero=1", "native:gain"},
		{"run", "--set", "0=2", "native:gain"},
		{"run", "--set", "0", "native:gain"},
		{"run", "--note", "200", "native:notemonitor"},
		{"run", "-n", "0", "native:gain"},
		{"run", "--editor", "native:upmix"},
	}
	for _, args := range bad {
		if _, err := runCLI(t, args...); err == nil {
			t.Errorf("Expected %v to fail", args)
		}
	}
}

func TestConfigCommands(t *testing.T) {
	target := filepath.Join(t.TempDir(), "plughost", "config.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote default configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("Expected config file at %s: %v", target, err)
	}

	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Error("Expected init to refuse to overwrite")
	}
	if _, err := runCLI(t, "config", "init", "--overwrite", "--path", target); err != nil {
		t.Errorf("Expected --overwrite to succeed, got %v", err)
	}

	out, err = runCLI(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "sample_rate = 48000")
	requireContains(t, out, "block_size = 64")
}
