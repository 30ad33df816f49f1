// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Tika          TikaConfig          `mapstructure:"tika"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Ingestion     IngestionConfig     `mapstructure:"ingestion"`
	Retrieval     RetrievalConfig     `mapstructure:"retrieval"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。DSN 为空时不启用入库台账。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers     string `mapstructure:"brokers"`
	Topic       string `mapstructure:"topic"`
	GroupID     string `mapstructure:"group_id"`
	MaxAttempts int64  `mapstructure:"max_attempts"`
}

// TikaConfig 存储 Tika 服务器相关的配置。
type TikaConfig struct {
	ServerURL string        `mapstructure:"server_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses          string `mapstructure:"addresses"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	IndexName          string `mapstructure:"index_name"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// MinIOConfig 存储 MinIO 对象存储的配置，用于暂存待入库的上传文件。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// LLMConfig 存储本地大语言模型（Ollama）相关的配置。
type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Write error policies for IngestionConfig.OnWriteError.
const (
	WriteErrorAbort    = "abort"
	WriteErrorContinue = "continue"
)

// IngestionConfig 配置文本切块与写入策略。
type IngestionConfig struct {
	ChunkSize    int    `mapstructure:"chunk_size"`
	Overlap      int    `mapstructure:"overlap"`
	OnWriteError string `mapstructure:"on_write_error"`
	PruneStale   bool   `mapstructure:"prune_stale"`
	SeedDir      string `mapstructure:"seed_dir"`
}

// ChunkParams 为调用方传入的切块参数补全默认值：chunkSize 为 0 时使用配置值；
// overlap 为 0 且 chunkSize 也未指定时使用配置值。显式指定的 overlap 总是保留，
// 再由切块器按 0 <= overlap < chunk_size 校验。
func (c IngestionConfig) ChunkParams(chunkSize, overlap int) (int, int) {
	if chunkSize == 0 {
		if overlap == 0 {
			overlap = c.Overlap
		}
		chunkSize = c.ChunkSize
	}
	return chunkSize, overlap
}

// RetrievalConfig 配置检索参数。
type RetrievalConfig struct {
	TopK    int           `mapstructure:"top_k"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("elasticsearch.addresses", "https://localhost:9200")
	v.SetDefault("elasticsearch.index_name", "documents")
	v.SetDefault("tika.server_url", "http://localhost:9998")
	v.SetDefault("tika.timeout", 60*time.Second)
	v.SetDefault("llm.base_url", "http://localhost:11434")
	v.SetDefault("llm.model", "deepseek-r1:1.5b")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout", 120*time.Second)
	v.SetDefault("ingestion.chunk_size", 500)
	v.SetDefault("ingestion.overlap", 100)
	v.SetDefault("ingestion.on_write_error", WriteErrorAbort)
	v.SetDefault("ingestion.prune_stale", true)
	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("retrieval.timeout", 10*time.Second)
	v.SetDefault("kafka.topic", "document-ingest")
	v.SetDefault("kafka.group_id", "aegis-rag-go-consumer")
	v.SetDefault("kafka.max_attempts", 3)
	v.SetDefault("minio.bucket_name", "aegis-staging")

	// 没有默认值的键也要登记，否则只配置环境变量时 Unmarshal 会忽略它们
	for _, key := range []string{
		"log.output_path",
		"elasticsearch.username",
		"elasticsearch.password",
		"database.mysql.dsn",
		"database.redis.addr",
		"database.redis.password",
		"kafka.brokers",
		"minio.endpoint",
		"minio.access_key_id",
		"minio.secret_access_key",
		"ingestion.seed_dir",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("elasticsearch.insecure_skip_verify", false)
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("minio.use_ssl", false)
}

// Load 读取 .env 与 YAML 配置文件并返回解析后的配置，环境变量（AEGIS_ 前缀）优先于文件。
func Load(configPath string) (Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("AEGIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 检查配置中互相约束的字段。
func (c Config) Validate() error {
	if c.Ingestion.ChunkSize <= 0 {
		return fmt.Errorf("ingestion.chunk_size 必须大于 0, 当前为 %d", c.Ingestion.ChunkSize)
	}
	if c.Ingestion.Overlap < 0 || c.Ingestion.Overlap >= c.Ingestion.ChunkSize {
		return fmt.Errorf("ingestion.overlap 必须满足 0 <= overlap < chunk_size, 当前为 %d/%d", c.Ingestion.Overlap, c.Ingestion.ChunkSize)
	}
	switch c.Ingestion.OnWriteError {
	case WriteErrorAbort, WriteErrorContinue:
	default:
		return fmt.Errorf("ingestion.on_write_error 只能是 %q 或 %q, 当前为 %q", WriteErrorAbort, WriteErrorContinue, c.Ingestion.OnWriteError)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k 必须大于 0, 当前为 %d", c.Retrieval.TopK)
	}
	return nil
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}
