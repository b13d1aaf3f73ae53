package envconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedGetters(t *testing.T) {
	t.Setenv("CHITAS_INT", "42")
	t.Setenv("CHITAS_BAD_INT", "forty")
	t.Setenv("CHITAS_BOOL", "yes")
	t.Setenv("CHITAS_DURATION", "1500ms")

	assert.Equal(t, 42, GetInt("CHITAS_INT", 1))
	assert.Equal(t, 1, GetInt("CHITAS_BAD_INT", 1))
	assert.Equal(t, 7, GetInt("CHITAS_UNSET_INT", 7))
	assert.True(t, GetBool("CHITAS_BOOL", false))
	assert.True(t, GetBool("CHITAS_UNSET_BOOL", true))
	assert.Equal(t, 1500*time.Millisecond, GetDuration("CHITAS_DURATION", time.Second))
	assert.Equal(t, time.Second, GetDuration("CHITAS_UNSET_DURATION", time.Second))
	assert.Equal(t, "fallback", Get("CHITAS_UNSET", "fallback"))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CHITAS_FROM_FILE=hello\n"), 0o600))
	t.Setenv("CHITAS_FROM_FILE", "")
	require.NoError(t, os.Unsetenv("CHITAS_FROM_FILE"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "hello", Get("CHITAS_FROM_FILE", ""))
}

func TestValidate(t *testing.T) {
	type cfg struct {
		Port string `validate:"required"`
	}
	assert.Error(t, Validate(cfg{}))
	assert.NoError(t, Validate(cfg{Port: "8080"}))
}
