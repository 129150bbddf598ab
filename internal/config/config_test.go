package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "./bioseqdb.db", cfg.StorageDSN())
	assert.Equal(t, 3, cfg.Storage.Retries)
	assert.Equal(t, SourceHTTP, cfg.Source.Kind)
	assert.Equal(t, "https://raw.githubusercontent.com/ANHIG/IMGTHLA/{release}/hla.dat", cfg.Source.DatURL)
	assert.Zero(t, cfg.Source.HTTPTimeout)
	assert.Equal(t, "fs", cfg.Blob.Driver)
	assert.Equal(t, "./mirror", cfg.Blob.FSRoot)
	assert.Equal(t, ".", cfg.WorkDir)
	assert.Empty(t, cfg.MetricsFile)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("IMGTDB_STORAGE_DRIVER", "postgres")
	t.Setenv("IMGTDB_POSTGRES_DSN", "postgres://db/hla")
	t.Setenv("IMGTDB_SOURCE", "mirror")
	t.Setenv("IMGTDB_HTTP_TIMEOUT", "90s")
	t.Setenv("IMGTDB_BLOB_DRIVER", "s3")
	t.Setenv("IMGTDB_BLOB_S3_BUCKET", "imgt")
	t.Setenv("IMGTDB_BLOB_S3_PATH_STYLE", "true")
	t.Setenv("IMGTDB_BLOB_S3_ACCESS_KEY_ID", "AKID")
	t.Setenv("IMGTDB_BLOB_S3_SECRET_ACCESS_KEY", "secret")
	t.Setenv("IMGTDB_BLOB_S3_SESSION_TOKEN", "token")
	t.Setenv("IMGTDB_LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://db/hla", cfg.StorageDSN())
	assert.Equal(t, SourceMirror, cfg.Source.Kind)
	assert.Equal(t, 90*time.Second, cfg.Source.HTTPTimeout)
	assert.Equal(t, "imgt", cfg.Blob.S3Bucket)
	assert.True(t, cfg.Blob.S3PathStyle)
	assert.Equal(t, "AKID", cfg.Blob.S3AccessKeyID)
	assert.Equal(t, "secret", cfg.Blob.S3SecretAccessKey)
	assert.Equal(t, "token", cfg.Blob.S3SessionToken)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"storage driver":  {"IMGTDB_STORAGE_DRIVER": "oracle"},
		"retries":         {"IMGTDB_CONNECT_RETRIES": "-1"},
		"retries parse":   {"IMGTDB_CONNECT_RETRIES": "many"},
		"source":          {"IMGTDB_SOURCE": "ftp"},
		"dat placeholder": {"IMGTDB_DAT_URL": "https://example.org/hla.dat"},
		"s3 bucket":       {"IMGTDB_BLOB_DRIVER": "s3"},
		"s3 secret only":  {"IMGTDB_BLOB_DRIVER": "s3", "IMGTDB_BLOB_S3_BUCKET": "imgt", "IMGTDB_BLOB_S3_SECRET_ACCESS_KEY": "s"},
		"blob driver":     {"IMGTDB_BLOB_DRIVER": "gcs"},
		"log format":      {"IMGTDB_LOG_FORMAT": "xml"},
		"timeout":         {"IMGTDB_HTTP_TIMEOUT": "-1s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestStorageDSNPerDriver(t *testing.T) {
	var cfg Config
	cfg.Storage.SQLitePath = "a.db"
	cfg.Storage.PostgresDSN = "pg"
	cfg.Storage.MySQLDSN = "my"
	cfg.Storage.Driver = "mysql"
	assert.Equal(t, "my", cfg.StorageDSN())
	cfg.Storage.Driver = "sqlite"
	assert.Equal(t, "a.db", cfg.StorageDSN())
}
