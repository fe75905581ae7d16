package env

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigDirOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)

	if got := ConfigDir(); got != dir {
		t.Errorf("ConfigDir() = %q, want %q", got, dir)
	}
	if got, want := ConfigFile(), filepath.Join(dir, "config.toml"); got != want {
		t.Errorf("ConfigFile() = %q, want %q", got, want)
	}
}

func TestConfigDirDefault(t *testing.T) {
	t.Setenv(EnvConfigDir, "")

	if got := ConfigDir(); filepath.Base(got) != "cmkit" {
		t.Errorf("ConfigDir() = %q, want a cmkit directory", got)
	}
}

// TestStateDir verifies the directory is created with owner-only permissions.
func TestStateDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state", "cmkit")
	t.Setenv(EnvStateDir, dir)

	got, err := StateDir()
	if err != nil {
		t.Fatalf("StateDir() returned error: %v", err)
	}
	if got != dir {
		t.Errorf("StateDir() = %q, want %q", got, dir)
	}

	info, err := os.Stat(got)
	if err != nil {
		t.Fatalf("Directory was not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("StateDir() created a file instead of a directory")
	}
	if mode := info.Mode().Perm(); mode != 0o700 && os.PathSeparator == '/' {
		t.Errorf("Directory has permissions %v, want %v", mode, os.FileMode(0o700))
	}
}

// TestStateDirIdempotent verifies repeated calls return the same directory.
func TestStateDirIdempotent(t *testing.T) {
	t.Setenv(EnvStateDir, filepath.Join(t.TempDir(), "s"))

	dir1, err := StateDir()
	if err != nil {
		t.Fatalf("First StateDir() call failed: %v", err)
	}
	dir2, err := StateDir()
	if err != nil {
		t.Fatalf("Second StateDir() call failed: %v", err)
	}
	if dir1 != dir2 {
		t.Errorf("StateDir() not idempotent: first call = %q, second call = %q", dir1, dir2)
	}
}
