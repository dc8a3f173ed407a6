package env

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
)

// LoadEnvironmentVariables loads the .env file when there is one.
//
// A missing file is fine, the process environment is used as it is.
// Any other problem with the file is returned.
func LoadEnvironmentVariables() error {
	err := godotenv.Load(".env")

	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("no .env file found, using the process environment")

		return nil
	}

	return err
}
