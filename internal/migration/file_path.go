package migration

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"
)

const (
	modulePath = "github.com/elskow/qwizme"

	// MigrationsDirEnv points at the SQL migrations when the binary runs
	// outside the source tree (containers, packaged releases).
	MigrationsDirEnv = "QWIZME_MIGRATIONS_DIR"
)

var errModuleRootNotFound = errors.New("go.mod not found")

func getMigrationsDir() (string, error) {
	if dir := os.Getenv(MigrationsDirEnv); dir != "" {
		return dir, nil
	}

	start, err := os.Getwd()
	if err != nil {
		return "", err
	}

	root, err := findModuleRoot(start)
	if err != nil {
		return "", fmt.Errorf("failed to find project root: %w", err)
	}

	return filepath.Join(root, "migrations"), nil
}

// findModuleRoot walks up from dir until it finds the go.mod declaring
// this module.
func findModuleRoot(dir string) (string, error) {
	for {
		content, err := os.ReadFile(filepath.Join(dir, "go.mod"))
		if err == nil && modfile.ModulePath(content) == modulePath {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errModuleRootNotFound
		}
		dir = parent
	}
}
