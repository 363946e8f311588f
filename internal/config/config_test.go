package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Output != "text" {
		t.Errorf("Default Output = %q, want %q", cfg.Output, "text")
	}
	if cfg.Verbose {
		t.Error("Default Verbose = true, want false")
	}
	if cfg.Review.Command != "claude -p" {
		t.Errorf("Default Review.Command = %q, want %q", cfg.Review.Command, "claude -p")
	}
	if cfg.Review.TimeoutSeconds != 600 {
		t.Errorf("Default Review.TimeoutSeconds = %d, want %d", cfg.Review.TimeoutSeconds, 600)
	}
}

func TestMerge(t *testing.T) {
	dst := Default()
	src := &Config{
		Output: "json",
		Review: ReviewConfig{Model: "fast"},
	}

	result := merge(dst, src)

	if result.Output != "json" {
		t.Errorf("merge Output = %q, want %q", result.Output, "json")
	}
	if result.Review.Model != "fast" {
		t.Errorf("merge Review.Model = %q, want %q", result.Review.Model, "fast")
	}
	// Defaults should be preserved when not overridden
	if result.Review.Command != "claude -p" {
		t.Errorf("merge preserved Review.Command = %q, want %q", result.Review.Command, "claude -p")
	}
	if result.Review.TimeoutSeconds != 600 {
		t.Errorf("merge preserved TimeoutSeconds = %d, want %d", result.Review.TimeoutSeconds, 600)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("TUSK_OUTPUT", "json")
	t.Setenv("TUSK_VERBOSE", "1")
	t.Setenv("TUSK_REVIEW_COMMAND", "my-agent --fast")
	t.Setenv("TUSK_MODEL", "tiny")
	t.Setenv("TUSK_REVIEW_TIMEOUT", "30")

	cfg := applyEnv(Default())

	if cfg.Output != "json" {
		t.Errorf("applyEnv Output = %q, want %q", cfg.Output, "json")
	}
	if !cfg.Verbose {
		t.Error("applyEnv Verbose = false, want true")
	}
	if cfg.Review.Command != "my-agent --fast" {
		t.Errorf("applyEnv Review.Command = %q", cfg.Review.Command)
	}
	if cfg.Review.Model != "tiny" {
		t.Errorf("applyEnv Review.Model = %q, want %q", cfg.Review.Model, "tiny")
	}
	if cfg.Review.TimeoutSeconds != 30 {
		t.Errorf("applyEnv TimeoutSeconds = %d, want 30", cfg.Review.TimeoutSeconds)
	}
}

func TestApplyEnv_IgnoresBadTimeout(t *testing.T) {
	t.Setenv("TUSK_REVIEW_TIMEOUT", "soon")

	cfg := applyEnv(Default())

	if cfg.Review.TimeoutSeconds != 600 {
		t.Errorf("TimeoutSeconds = %d, want default 600", cfg.Review.TimeoutSeconds)
	}
}

func TestLoad_ProjectConfigOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tool.yaml")
	content := "output: json\nreview:\n  command: other-agent\n  timeout_seconds: 120\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TUSK_CONFIG", path)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Output != "json" {
		t.Errorf("Output = %q, want %q", cfg.Output, "json")
	}
	if cfg.Review.Command != "other-agent" {
		t.Errorf("Review.Command = %q, want %q", cfg.Review.Command, "other-agent")
	}
	if cfg.Review.TimeoutSeconds != 120 {
		t.Errorf("TimeoutSeconds = %d, want 120", cfg.Review.TimeoutSeconds)
	}
}

func TestLoad_FlagsBeatEnv(t *testing.T) {
	t.Setenv("TUSK_OUTPUT", "json")
	t.Setenv("TUSK_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load(&Config{Output: "text"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Output != "text" {
		t.Errorf("Output = %q, want flag value %q", cfg.Output, "text")
	}
}

func TestCommandArgv(t *testing.T) {
	cfg := Default()
	cfg.Review.Command = "claude -p --permission-mode plan"
	want := []string{"claude", "-p", "--permission-mode", "plan"}
	if got := cfg.CommandArgv(); !reflect.DeepEqual(got, want) {
		t.Errorf("CommandArgv() = %v, want %v", got, want)
	}
}
