package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads KEY=VALUE pairs from a .env file into the process environment.
// Existing variables win unless DOTENV_OVERRIDE is set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	path = filepath.Clean(path)

	var err error
	if envBool("DOTENV_OVERRIDE", false) {
		err = godotenv.Overload(path)
	} else {
		err = godotenv.Load(path)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
