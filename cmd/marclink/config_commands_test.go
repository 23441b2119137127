package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"marclink/internal/config"
)

func TestConfigInitWritesSample(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.baseDir, "generated", "marclink.toml")

	stdout, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, stdout, "Wrote sample configuration")

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if string(data) != config.SampleConfig() {
		t.Fatal("sample config content mismatch")
	}

	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err == nil || !strings.Contains(err.Error(), "--overwrite") {
		t.Fatalf("expected overwrite hint, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	env := setupCLITestEnv(t)
	stdout, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, stdout, "Config path: "+env.configPath)
	requireContains(t, stdout, "Configuration valid")

	broken := filepath.Join(env.baseDir, "broken.toml")
	if err := os.WriteFile(broken, []byte("[merge]\nunknown_key = 1\n"), 0o644); err != nil {
		t.Fatalf("write broken config: %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "validate"}, broken); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestDoctorReportsChecks(t *testing.T) {
	env := setupCLITestEnv(t)
	stdout, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, stdout)
	}
	requireContains(t, stdout, "Index directory")
	requireContains(t, stdout, "Index store lock")
	requireContains(t, stdout, "all checks passed")
}
