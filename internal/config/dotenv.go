package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// DefaultEnvFiles are tried in order by LoadDotEnv when no path is given.
var DefaultEnvFiles = []string{".env", "../.env"}

// LoadDotEnv loads the first .env file that exists into the process
// environment and returns its path. Variables already set are kept.
// A missing file is not an error.
func LoadDotEnv(paths ...string) (string, error) {
	if len(paths) == 0 {
		paths = DefaultEnvFiles
	}
	for _, path := range paths {
		err := godotenv.Load(path)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return "", nil
}
