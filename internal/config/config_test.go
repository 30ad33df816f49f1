package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Ingestion.ChunkSize)
	assert.Equal(t, 100, cfg.Ingestion.Overlap)
	assert.Equal(t, WriteErrorAbort, cfg.Ingestion.OnWriteError)
	assert.True(t, cfg.Ingestion.PruneStale)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, "documents", cfg.Elasticsearch.IndexName)
	assert.Equal(t, "deepseek-r1:1.5b", cfg.LLM.Model)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 120*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 60*time.Second, cfg.Tika.Timeout)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
elasticsearch:
  addresses: "http://es:9200"
  index_name: "kb"
llm:
  model: "llama3"
  timeout: 30s
ingestion:
  chunk_size: 800
  overlap: 0
  on_write_error: "continue"
  prune_stale: false
retrieval:
  top_k: 8
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://es:9200", cfg.Elasticsearch.Addresses)
	assert.Equal(t, "kb", cfg.Elasticsearch.IndexName)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 800, cfg.Ingestion.ChunkSize)
	assert.Equal(t, 0, cfg.Ingestion.Overlap)
	assert.Equal(t, WriteErrorContinue, cfg.Ingestion.OnWriteError)
	assert.False(t, cfg.Ingestion.PruneStale)
	assert.Equal(t, 8, cfg.Retrieval.TopK)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "elasticsearch:\n  index_name: \"kb\"\n")
	t.Setenv("AEGIS_ELASTICSEARCH_INDEX_NAME", "from-env")
	t.Setenv("AEGIS_RETRIEVAL_TOP_K", "3")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Elasticsearch.IndexName)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
}

func TestLoad_EnvOnly(t *testing.T) {
	env := map[string]string{
		"AEGIS_ELASTICSEARCH_USERNAME":             "elastic",
		"AEGIS_ELASTICSEARCH_PASSWORD":             "changeme",
		"AEGIS_ELASTICSEARCH_INSECURE_SKIP_VERIFY": "true",
		"AEGIS_DATABASE_MYSQL_DSN":                 "root:root@tcp(db:3306)/aegis",
		"AEGIS_DATABASE_REDIS_ADDR":                "redis:6379",
		"AEGIS_DATABASE_REDIS_DB":                  "2",
		"AEGIS_KAFKA_BROKERS":                      "kafka:9092",
		"AEGIS_MINIO_ENDPOINT":                     "minio:9000",
		"AEGIS_MINIO_ACCESS_KEY_ID":                "ak",
		"AEGIS_MINIO_SECRET_ACCESS_KEY":            "sk",
		"AEGIS_MINIO_USE_SSL":                      "true",
		"AEGIS_INGESTION_SEED_DIR":                 "/srv/seed",
		"AEGIS_LOG_OUTPUT_PATH":                    "/var/log/aegis",
		"AEGIS_LLM_MODEL":                          "llama3",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "elastic", cfg.Elasticsearch.Username)
	assert.Equal(t, "changeme", cfg.Elasticsearch.Password)
	assert.True(t, cfg.Elasticsearch.InsecureSkipVerify)
	assert.Equal(t, "root:root@tcp(db:3306)/aegis", cfg.Database.MySQL.DSN)
	assert.Equal(t, "redis:6379", cfg.Database.Redis.Addr)
	assert.Equal(t, 2, cfg.Database.Redis.DB)
	assert.Equal(t, "kafka:9092", cfg.Kafka.Brokers)
	assert.Equal(t, "minio:9000", cfg.MinIO.Endpoint)
	assert.Equal(t, "ak", cfg.MinIO.AccessKeyID)
	assert.Equal(t, "sk", cfg.MinIO.SecretAccessKey)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, "/srv/seed", cfg.Ingestion.SeedDir)
	assert.Equal(t, "/var/log/aegis", cfg.Log.OutputPath)
	assert.Equal(t, "llama3", cfg.LLM.Model)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_RejectsInvalidChunking(t *testing.T) {
	path := writeConfig(t, "ingestion:\n  chunk_size: 100\n  overlap: 100\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap")
}

func TestValidate(t *testing.T) {
	valid := Config{
		Ingestion: IngestionConfig{ChunkSize: 10, Overlap: 2, OnWriteError: WriteErrorAbort},
		Retrieval: RetrievalConfig{TopK: 1},
	}
	require.NoError(t, valid.Validate())

	tests := map[string]func(c *Config){
		"zero chunk size":   func(c *Config) { c.Ingestion.ChunkSize = 0 },
		"negative overlap":  func(c *Config) { c.Ingestion.Overlap = -1 },
		"overlap too large": func(c *Config) { c.Ingestion.Overlap = 10 },
		"unknown policy":    func(c *Config) { c.Ingestion.OnWriteError = "retry" },
		"zero top k":        func(c *Config) { c.Retrieval.TopK = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestIngestionConfig_ChunkParams(t *testing.T) {
	cfg := IngestionConfig{ChunkSize: 500, Overlap: 100}
	tests := []struct {
		name                  string
		chunkSize, overlap    int
		wantSize, wantOverlap int
	}{
		{"both from config", 0, 0, 500, 100},
		{"explicit overlap keeps configured size", 0, 50, 500, 50},
		{"explicit size without overlap", 200, 0, 200, 0},
		{"both explicit", 200, 20, 200, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, overlap := cfg.ChunkParams(tt.chunkSize, tt.overlap)
			assert.Equal(t, tt.wantSize, size)
			assert.Equal(t, tt.wantOverlap, overlap)
		})
	}
}
