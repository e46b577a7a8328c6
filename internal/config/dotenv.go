package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv loads secrets from an env file into the process environment.
// A missing file is not an error; variables already set are not overridden.
func LoadEnv(filename string) error {
	if err := godotenv.Load(filename); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", filename, err)
	}
	return nil
}
