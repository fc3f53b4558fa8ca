// internal/security/permissions_test.go
package security

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestValidateDirectoryPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}

	tests := []struct {
		name    string
		mode    os.FileMode
		wantErr bool
	}{
		{"owner only", 0700, false},
		{"owner and group read", 0750, false},
		{"world writable", 0777, true},
		{"group writable open", 0770, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "triggers")
			if err := os.Mkdir(dir, tt.mode); err != nil {
				t.Fatal(err)
			}
			// Mkdir applies umask; force the exact mode under test
			if err := os.Chmod(dir, tt.mode); err != nil {
				t.Fatal(err)
			}

			err := ValidateDirectoryPermissions(dir)
			if tt.wantErr && err == nil {
				t.Errorf("mode %04o: expected error", tt.mode)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("mode %04o: unexpected error %v", tt.mode, err)
			}
		})
	}
}

func TestValidateDirectoryPermissions_NotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := ValidateDirectoryPermissions(path); err == nil {
		t.Error("expected error for a regular file")
	}
}

func TestValidateDirectoryPermissions_Missing(t *testing.T) {
	if err := ValidateDirectoryPermissions(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestValidateFilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := ValidateFilePermissions(path); err != nil {
		t.Errorf("0644 file: unexpected error %v", err)
	}

	if err := os.Chmod(path, 0666); err != nil {
		t.Fatal(err)
	}
	if err := ValidateFilePermissions(path); err == nil {
		t.Error("world-writable file: expected error")
	}
}
