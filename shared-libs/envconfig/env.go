package envconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// LoadDotEnv loads variables from the given files (default ".env") without overriding
// values already present in the environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Get returns the value of the requested environment variable or the supplied fallback when empty.
func Get(name string, fallback string) string {
	if value, ok := os.LookupEnv(name); ok && value != "" {
		return value
	}
	return fallback
}

// GetInt parses an integer variable, returning fallback when unset or malformed.
func GetInt(name string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(Get(name, "")))
	if err != nil {
		return fallback
	}
	return v
}

// GetBool parses a boolean variable (1/true/yes), returning fallback when unset or malformed.
func GetBool(name string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(Get(name, ""))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// GetDuration parses a Go duration variable, returning fallback when unset or malformed.
func GetDuration(name string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(Get(name, "")))
	if err != nil {
		return fallback
	}
	return d
}

// MustGet returns the value of the requested environment variable or panics if it's empty.
func MustGet(name string) string {
	value := os.Getenv(name)
	if value == "" {
		panic(fmt.Sprintf("expected env %s to be set", name))
	}
	return value
}

// Validate validates a struct using validator tags.
func Validate(v any) error {
	return validate.Struct(v)
}
