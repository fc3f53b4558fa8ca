// internal/security/permissions.go
package security

import (
	"fmt"
	"io/fs"
	"os"
)

// Trigger files can inject arbitrary guard expressions and notification
// templates, so a writable-by-others triggers directory is an escalation
// path. Anything looser than 0750 is rejected.

// ValidateDirectoryPermissions rejects a triggers directory that is
// writable by group or others.
func ValidateDirectoryPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("checking directory permissions: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return checkMode(path, info.Mode().Perm(), true)
}

// ValidateFilePermissions rejects a trigger file that is writable by
// others.
func ValidateFilePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("checking file permissions: %w", err)
	}
	return checkMode(path, info.Mode().Perm(), false)
}

func checkMode(path string, mode fs.FileMode, dir bool) error {
	if mode&0002 != 0 {
		return fmt.Errorf("%s is world-writable (mode %04o)", path, mode)
	}
	if dir && mode&0077 > 0050 {
		return fmt.Errorf("directory %s has overly permissive mode %04o, want 0700 or 0750", path, mode)
	}
	return nil
}
