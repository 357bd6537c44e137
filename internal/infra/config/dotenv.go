package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnvFiles exports the variables of the given dotenv files into the process
// environment. Variables already set in the environment win, and missing files
// are skipped, so a deployment without a .env file behaves exactly as before.
func LoadEnvFiles(filenames ...string) error {
	for _, filename := range filenames {
		if _, err := os.Stat(filename); errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err := godotenv.Load(filename); err != nil {
			return fmt.Errorf("load %s: %w", filename, err)
		}
	}

	return nil
}
