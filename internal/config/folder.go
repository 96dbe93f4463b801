package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// ProjectCacheFolder returns the per-user cache folder of projectRoot,
// creating it when missing.
func ProjectCacheFolder(projectRoot string) (string, error) {
	configDir, err := userConfigDir()
	if err != nil {
		return "", err
	}

	expectedDir := filepath.Join(configDir, "phpsymbols", ProjectSlug(projectRoot))

	if _, err := os.Stat(expectedDir); err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to check directory: %w", err)
		}
		if err := os.MkdirAll(expectedDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	return expectedDir, nil
}

// ProjectSlug turns a project path into a single directory name.
func ProjectSlug(projectRoot string) string {
	return strings.NewReplacer("/", "_", ":", "_", "\\", "_").Replace(projectRoot)
}

func userConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		usr, err := user.Current()
		if err != nil {
			return "", fmt.Errorf("failed to get current user: %w", err)
		}
		return filepath.Join(usr.HomeDir, ".config"), nil
	}
	return configDir, nil
}
