package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SchemaVersion is the version of the serialized table layout.
// Bump it whenever Symbol, Reference or Scope encoding changes; caches written
// by another version are wiped and rebuilt.
const SchemaVersion = 1

const versionFileName = "schema_version"

// CheckAndMigrate wipes cacheDir when its schema version is missing or differs
// from SchemaVersion. It reports whether the cache was cleared.
func CheckAndMigrate(cacheDir string) (bool, error) {
	versionFile := filepath.Join(cacheDir, versionFileName)

	data, err := os.ReadFile(versionFile)
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to read version file: %w", err)
	}

	if err == nil {
		stored, parseErr := strconv.Atoi(strings.TrimSpace(string(data)))
		if parseErr == nil && stored == SchemaVersion {
			return false, nil
		}
	}

	if err := clearCacheDir(cacheDir); err != nil {
		return false, fmt.Errorf("failed to clear cache: %w", err)
	}
	if err := writeVersion(versionFile); err != nil {
		return false, fmt.Errorf("failed to write version: %w", err)
	}

	return true, nil
}

// clearCacheDir removes everything inside cacheDir, creating it if needed.
func clearCacheDir(cacheDir string) error {
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(cacheDir, 0755)
		}
		return err
	}

	for _, entry := range entries {
		path := filepath.Join(cacheDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}

	return nil
}

func writeVersion(versionFile string) error {
	return os.WriteFile(versionFile, []byte(strconv.Itoa(SchemaVersion)), 0644)
}
