package config

import (
	"fmt"
	"path/filepath"

	"github.com/joho/godotenv"
)

// resolvePath makes relative paths relative to the config file's directory.
func resolvePath(configDir, file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(configDir, file)
}

// loadEnvFiles loads dotenv files in declaration order. Variables already
// present in the environment, including ones set by an earlier file, win.
func loadEnvFiles(configDir string, files []string) error {
	for _, file := range files {
		if err := godotenv.Load(resolvePath(configDir, file)); err != nil {
			return fmt.Errorf("load env file %q: %w", file, err)
		}
	}
	return nil
}

// readEnvFiles parses dotenv files without touching the environment.
// Later files override earlier files for the same keys.
func readEnvFiles(configDir string, files []string) (map[string]string, error) {
	merged := make(map[string]string)
	for _, file := range files {
		vars, err := godotenv.Read(resolvePath(configDir, file))
		if err != nil {
			return nil, fmt.Errorf("read env file %q: %w", file, err)
		}
		for k, v := range vars {
			merged[k] = v
		}
	}
	return merged, nil
}
