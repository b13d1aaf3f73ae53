package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"PORT", "DATASTORE", "AUTH_MODE", "CONTENT_SOURCE", "CLOUD_SYNC", "TIMEZONE", "MEMORY_FLIP_BACK"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DataStoreMemory, cfg.DataStore)
	assert.Equal(t, ContentSourceDir, cfg.Content.Source)
	assert.Equal(t, time.UTC, cfg.Timezone)
	assert.Equal(t, time.Second, cfg.Games.FlipBackDelay)
	assert.False(t, cfg.NeedsFirestore())
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown datastore", map[string]string{"DATASTORE": "postgres"}},
		{"firestore without project", map[string]string{"DATASTORE": "firestore", "GCP_PROJECT_ID": ""}},
		{"cloud sync without project", map[string]string{"CLOUD_SYNC": "true", "GCP_PROJECT_ID": ""}},
		{"gcs without bucket", map[string]string{"CONTENT_SOURCE": "gcs", "CONTENT_BUCKET": ""}},
		{"clerk without jwks", map[string]string{"AUTH_MODE": "clerk", "CLERK_JWKS_URL": ""}},
		{"bad timezone", map[string]string{"TIMEZONE": "Mars/Olympus"}},
		{"non numeric port", map[string]string{"PORT": "http"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadFirestoreWithProject(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATASTORE", "firestore")
	t.Setenv("GCP_PROJECT_ID", "chitas-dev")
	t.Setenv("TIMEZONE", "Asia/Jerusalem")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.NeedsFirestore())
	assert.Equal(t, "Asia/Jerusalem", cfg.Timezone.String())
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
