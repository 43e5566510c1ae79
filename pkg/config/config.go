package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "FIELDSYNC"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App          AppConfig
	Storage      StorageConfig
	Sync         SyncConfig
	Connectivity ConnectivityConfig
	Cloudinary   CloudinaryConfig
	Firestore    FirestoreConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FIELDSYNC_APP_ENV" default:"development"`
	LogLevel     string `envconfig:"FIELDSYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FIELDSYNC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type StorageConfig struct {
	// DBPath is the on-device sqlite file backing the durable key-value
	// store. ":memory:" keeps everything in process for tests and demos.
	DBPath string `envconfig:"FIELDSYNC_STORAGE_DB_PATH" default:"fieldsync.db"`
}

type SyncConfig struct {
	// Interval drives the periodic drain pass that catches queues left
	// pending when connectivity never transitions.
	Interval time.Duration `envconfig:"FIELDSYNC_SYNC_INTERVAL" default:"30s"`
	// MaxRetries is the per-action attempt ceiling before eviction.
	MaxRetries int `envconfig:"FIELDSYNC_SYNC_MAX_RETRIES" default:"3"`
	// CallTimeout bounds every remote mutation and media upload.
	CallTimeout time.Duration `envconfig:"FIELDSYNC_SYNC_CALL_TIMEOUT" default:"20s"`
}

type ConnectivityConfig struct {
	ProbeURL      string        `envconfig:"FIELDSYNC_CONNECTIVITY_PROBE_URL" default:"https://clients3.google.com/generate_204"`
	ProbeInterval time.Duration `envconfig:"FIELDSYNC_CONNECTIVITY_PROBE_INTERVAL" default:"10s"`
	ProbeTimeout  time.Duration `envconfig:"FIELDSYNC_CONNECTIVITY_PROBE_TIMEOUT" default:"5s"`
}

type CloudinaryConfig struct {
	CloudName    string `envconfig:"FIELDSYNC_CLOUDINARY_CLOUD_NAME" required:"true"`
	UploadPreset string `envconfig:"FIELDSYNC_CLOUDINARY_UPLOAD_PRESET" required:"true"`
	UploadFolder string `envconfig:"FIELDSYNC_CLOUDINARY_UPLOAD_FOLDER" default:"hazard_reports"`
}

type FirestoreConfig struct {
	ProjectID  string `envconfig:"FIELDSYNC_FIRESTORE_PROJECT_ID" required:"true"`
	DatabaseID string `envconfig:"FIELDSYNC_FIRESTORE_DATABASE_ID" default:"(default)"`
	// AccessToken is supplied by the host app's auth layer; token refresh
	// is outside this module.
	AccessToken string `envconfig:"FIELDSYNC_FIRESTORE_ACCESS_TOKEN"`
}
