package config

import (
	"fmt"
	"strings"
	"time"

	sharedauth "github.com/TeacherRG/chitas-for-kids-sub000/shared-libs/auth"
	"github.com/TeacherRG/chitas-for-kids-sub000/shared-libs/envconfig"
)

// Config encapsulates the runtime configuration for the progress service.
type Config struct {
	Port         string `validate:"required,numeric"`
	LogLevel     string `validate:"omitempty,oneof=debug info warn warning error"`
	GCPProjectID string
	DataStore    DataStore
	CloudSync    bool
	Timezone     *time.Location `validate:"required"`
	Auth         AuthConfig
	Firestore    FirestoreConfig
	Content      ContentConfig
	Events       EventsConfig
	Games        GamesConfig
}

// DataStore enumerates supported persistence backends.
type DataStore string

const (
	// DataStoreMemory keeps progress in-memory (useful for local development/testing).
	DataStoreMemory DataStore = "memory"
	// DataStoreFirestore stores progress in Google Cloud Firestore.
	DataStoreFirestore DataStore = "firestore"
)

// ContentSource enumerates where daily content is read from.
type ContentSource string

const (
	ContentSourceDir ContentSource = "dir"
	ContentSourceGCS ContentSource = "gcs"
)

// AuthConfig stores authentication middleware setup.
type AuthConfig struct {
	Mode     sharedauth.Mode
	JWKSURL  string
	Audience string
	Issuer   string
}

// FirestoreConfig tailors Firestore client behavior.
type FirestoreConfig struct {
	Database     string
	EmulatorHost string
}

// ContentConfig selects the daily content loader.
type ContentConfig struct {
	Source   ContentSource
	Dir      string
	Bucket   string
	CacheTTL time.Duration `validate:"gte=0"`
}

// EventsConfig points at the NATS server; empty disables publishing.
type EventsConfig struct {
	NATSURL string
}

// GamesConfig holds gameplay timing.
type GamesConfig struct {
	FlipBackDelay time.Duration `validate:"gt=0"`
}

// Load reads environment variables (and an optional .env file) into Config with validation.
func Load() (Config, error) {
	if err := envconfig.LoadDotEnv(); err != nil {
		return Config{}, err
	}

	tzName := envconfig.Get("TIMEZONE", "UTC")
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return Config{}, fmt.Errorf("invalid TIMEZONE %q: %w", tzName, err)
	}

	cfg := Config{
		Port:         envconfig.Get("PORT", "8080"),
		LogLevel:     strings.ToLower(envconfig.Get("LOG_LEVEL", "info")),
		GCPProjectID: envconfig.Get("GCP_PROJECT_ID", ""),
		DataStore:    DataStore(strings.ToLower(envconfig.Get("DATASTORE", string(DataStoreMemory)))),
		CloudSync:    envconfig.GetBool("CLOUD_SYNC", false),
		Timezone:     tz,
		Auth: AuthConfig{
			Mode:     sharedauth.Mode(strings.ToLower(envconfig.Get("AUTH_MODE", string(sharedauth.ModeNoop)))),
			JWKSURL:  envconfig.Get("CLERK_JWKS_URL", ""),
			Audience: envconfig.Get("CLERK_AUDIENCE", ""),
			Issuer:   envconfig.Get("CLERK_ISSUER", ""),
		},
		Firestore: FirestoreConfig{
			Database:     envconfig.Get("FIRESTORE_DATABASE", ""),
			EmulatorHost: envconfig.Get("FIRESTORE_EMULATOR_HOST", ""),
		},
		Content: ContentConfig{
			Source:   ContentSource(strings.ToLower(envconfig.Get("CONTENT_SOURCE", string(ContentSourceDir)))),
			Dir:      envconfig.Get("CONTENT_DIR", "content"),
			Bucket:   envconfig.Get("CONTENT_BUCKET", ""),
			CacheTTL: envconfig.GetDuration("CONTENT_CACHE_TTL", 10*time.Minute),
		},
		Events: EventsConfig{
			NATSURL: envconfig.Get("NATS_URL", ""),
		},
		Games: GamesConfig{
			FlipBackDelay: envconfig.GetDuration("MEMORY_FLIP_BACK", time.Second),
		},
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// NeedsFirestore reports whether a Firestore client must be created.
func (c Config) NeedsFirestore() bool {
	return c.DataStore == DataStoreFirestore || c.CloudSync
}

func validate(cfg Config) error {
	if err := envconfig.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	switch cfg.DataStore {
	case DataStoreMemory, DataStoreFirestore:
	default:
		return fmt.Errorf("unsupported datastore: %s", cfg.DataStore)
	}

	if cfg.NeedsFirestore() && cfg.GCPProjectID == "" {
		return fmt.Errorf("GCP_PROJECT_ID is required when DATASTORE=firestore or CLOUD_SYNC is enabled")
	}

	switch cfg.Content.Source {
	case ContentSourceDir:
		if strings.TrimSpace(cfg.Content.Dir) == "" {
			return fmt.Errorf("CONTENT_DIR is required when CONTENT_SOURCE=dir")
		}
	case ContentSourceGCS:
		if strings.TrimSpace(cfg.Content.Bucket) == "" {
			return fmt.Errorf("CONTENT_BUCKET is required when CONTENT_SOURCE=gcs")
		}
	default:
		return fmt.Errorf("unsupported content source: %s", cfg.Content.Source)
	}

	switch cfg.Auth.Mode {
	case sharedauth.ModeClerk:
		if cfg.Auth.JWKSURL == "" {
			return fmt.Errorf("CLERK_JWKS_URL is required when AUTH_MODE=clerk")
		}
	case sharedauth.ModeNoop:
		// no-op
	default:
		return fmt.Errorf("unsupported auth mode: %s", cfg.Auth.Mode)
	}

	return nil
}
