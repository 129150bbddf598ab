// Package config loads the process configuration from IMGTDB_* environment
// variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Source values.
const (
	SourceHTTP   = "http"
	SourceMirror = "mirror"
)

// Config is the full environment configuration of an ingestion run.
type Config struct {
	Storage struct {
		Driver      string `envconfig:"IMGTDB_STORAGE_DRIVER" default:"sqlite"`
		SQLitePath  string `envconfig:"IMGTDB_SQLITE_PATH" default:"./bioseqdb.db"`
		PostgresDSN string `envconfig:"IMGTDB_POSTGRES_DSN"`
		MySQLDSN    string `envconfig:"IMGTDB_MYSQL_DSN"`
		Retries     int    `envconfig:"IMGTDB_CONNECT_RETRIES" default:"3"`
	}
	Source struct {
		Kind          string        `envconfig:"IMGTDB_SOURCE" default:"http"`
		DatURL        string        `envconfig:"IMGTDB_DAT_URL" default:"https://raw.githubusercontent.com/ANHIG/IMGTHLA/{release}/hla.dat"`
		AlleleListURL string        `envconfig:"IMGTDB_ALLELELIST_URL" default:"https://raw.githubusercontent.com/ANHIG/IMGTHLA/Latest/Allelelist.{release}.txt"`
		ReleasesURL   string        `envconfig:"IMGTDB_RELEASES_URL" default:"https://www.ebi.ac.uk/ipd/imgt/hla/docs/release.html"`
		HTTPTimeout   time.Duration `envconfig:"IMGTDB_HTTP_TIMEOUT" default:"0s"`
	}
	Blob struct {
		Driver      string `envconfig:"IMGTDB_BLOB_DRIVER" default:"fs"`
		FSRoot      string `envconfig:"IMGTDB_BLOB_FS_ROOT" default:"./mirror"`
		S3Bucket    string `envconfig:"IMGTDB_BLOB_S3_BUCKET"`
		S3Region    string `envconfig:"IMGTDB_BLOB_S3_REGION" default:"us-east-1"`
		S3Endpoint  string `envconfig:"IMGTDB_BLOB_S3_ENDPOINT"`
		S3PathStyle bool   `envconfig:"IMGTDB_BLOB_S3_PATH_STYLE" default:"false"`
		// Static credentials; when empty the default AWS credentials chain applies.
		S3AccessKeyID     string `envconfig:"IMGTDB_BLOB_S3_ACCESS_KEY_ID"`
		S3SecretAccessKey string `envconfig:"IMGTDB_BLOB_S3_SECRET_ACCESS_KEY"`
		S3SessionToken    string `envconfig:"IMGTDB_BLOB_S3_SESSION_TOKEN"`
	}
	WorkDir     string `envconfig:"IMGTDB_WORK_DIR" default:"."`
	MetricsFile string `envconfig:"IMGTDB_METRICS_FILE"`
	LogFormat   string `envconfig:"IMGTDB_LOG_FORMAT" default:"text"`
}

// Load reads the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated values and cross-field requirements.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("IMGTDB_STORAGE_DRIVER: unknown driver %q", c.Storage.Driver)
	}
	if c.Storage.Retries < 0 {
		return fmt.Errorf("IMGTDB_CONNECT_RETRIES: must not be negative")
	}
	switch c.Source.Kind {
	case SourceHTTP:
		if !strings.Contains(c.Source.DatURL, "{release}") {
			return fmt.Errorf("IMGTDB_DAT_URL: missing {release} placeholder")
		}
	case SourceMirror:
	default:
		return fmt.Errorf("IMGTDB_SOURCE: unknown source %q", c.Source.Kind)
	}
	if c.Source.HTTPTimeout < 0 {
		return fmt.Errorf("IMGTDB_HTTP_TIMEOUT: must not be negative")
	}
	switch c.Blob.Driver {
	case "fs", "memory":
	case "s3":
		if c.Blob.S3Bucket == "" {
			return fmt.Errorf("IMGTDB_BLOB_S3_BUCKET required for s3 driver")
		}
		if (c.Blob.S3AccessKeyID == "") != (c.Blob.S3SecretAccessKey == "") {
			return fmt.Errorf("IMGTDB_BLOB_S3_ACCESS_KEY_ID and IMGTDB_BLOB_S3_SECRET_ACCESS_KEY must be set together")
		}
	default:
		return fmt.Errorf("IMGTDB_BLOB_DRIVER: unknown driver %q", c.Blob.Driver)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("IMGTDB_LOG_FORMAT: unknown format %q", c.LogFormat)
	}
	return nil
}

// StorageDSN returns the connection string for the selected storage driver.
func (c Config) StorageDSN() string {
	switch c.Storage.Driver {
	case "postgres":
		return c.Storage.PostgresDSN
	case "mysql":
		return c.Storage.MySQLDSN
	}
	return c.Storage.SQLitePath
}
