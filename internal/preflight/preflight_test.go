package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"

	"marclink/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckInputFile(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "corpus.mrc")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckInputFile("corpus", f); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckInputFile("corpus", dir); result.Passed {
		t.Fatal("expected failure for a directory")
	}
	if result := CheckInputFile("corpus", filepath.Join(dir, "missing.mrc")); result.Passed {
		t.Fatal("expected failure for a missing file")
	}
}

func TestCheckStoreLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guesser.db")
	if result := CheckStoreLock(context.Background(), path); !result.Passed {
		t.Fatalf("expected pass without a lock file, got: %s", result.Detail)
	}

	holder := flock.New(path + ".lock")
	if ok, err := holder.TryLock(); err != nil || !ok {
		t.Fatalf("TryLock = %v, %v", ok, err)
	}
	if result := CheckStoreLock(context.Background(), path); result.Passed {
		t.Fatal("expected failure while another handle holds the lock")
	}
	if err := holder.Unlock(); err != nil {
		t.Fatal(err)
	}
	if result := CheckStoreLock(context.Background(), path); !result.Passed {
		t.Fatalf("expected pass after unlock, got: %s", result.Detail)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.IndexDir = t.TempDir()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.LogDir = ""

	results := RunAll(context.Background(), &cfg)
	// index + work directory + store lock
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAll_ReportsMissingOptionalDirectory(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.IndexDir = t.TempDir()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.LogDir = ""
	cfg.Merge.DebugMapsDir = filepath.Join(t.TempDir(), "absent")

	failed := Failed(RunAll(context.Background(), &cfg))
	if len(failed) != 1 || failed[0].Name != "Debug maps directory" {
		t.Fatalf("expected only the debug maps check to fail, got %+v", failed)
	}
}
