// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
// Embedding 配置同时贯穿写入（入库）与查询两条路径，
// 保证查询向量与文档向量出自同一模型与维度。
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Log         LogConfig         `mapstructure:"log"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Tika        TikaConfig        `mapstructure:"tika"`
	VectorIndex VectorIndexConfig `mapstructure:"vector_index"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding"`
	LLM         LLMConfig         `mapstructure:"llm"`
	Chunking    ChunkingConfig    `mapstructure:"chunking"`
	Dictionary  DictionaryConfig  `mapstructure:"dictionary"`
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

// MySQLConfig 存储 MySQL 数据库的配置。
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
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// TikaConfig 存储 Tika 文本提取服务器的配置。
type TikaConfig struct {
	ServerURL string `mapstructure:"server_url"`
}

// VectorIndexConfig 存储向量索引（Elasticsearch 后端）的配置。
type VectorIndexConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
	Namespace string `mapstructure:"namespace"`
	Metric    string `mapstructure:"metric"`
	// ReadyMaxAttempts 限制索引就绪轮询的次数（每次间隔 1 秒），
	// 避免索引一直不就绪时请求被无限挂起。
	ReadyMaxAttempts int `mapstructure:"ready_max_attempts"`
	// SettleMaxAttempts 限制写入后统计对账轮询的次数。
	SettleMaxAttempts int `mapstructure:"settle_max_attempts"`
}

// StorageConfig 存储对象存储（MinIO / S3 兼容）的配置。
type StorageConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
	Region          string `mapstructure:"region"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
type EmbeddingConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Model      string              `mapstructure:"model"`
	Generation LLMGenerationConfig `mapstructure:"generation"`
	Prompt     LLMPromptConfig     `mapstructure:"prompt"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// LLMPromptConfig 配置回答语言与检索参数。
type LLMPromptConfig struct {
	// TargetLanguage 最终答案必须翻译成的目标语言，与检索内容的语言无关。
	TargetLanguage string `mapstructure:"target_language"`
	TopK           int    `mapstructure:"top_k"`
}

// ChunkingConfig 配置文本分块策略。
type ChunkingConfig struct {
	MaxSize int `mapstructure:"max_size"`
	Overlap int `mapstructure:"overlap"`
}

// DictionaryConfig 存储元数据字典：展示名 -> 编码。
// 用于派生对象文件名 {genre-code}#{year}#{code}#{theme-code}#{status-code}.pdf。
type DictionaryConfig struct {
	Genres   map[string]string `mapstructure:"genres"`
	Themes   map[string]string `mapstructure:"themes"`
	Statuses map[string]string `mapstructure:"statuses"`
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}

	Conf.ApplyDefaults()
}

// ApplyDefaults 为缺省项填充默认值。
func (c *Config) ApplyDefaults() {
	if c.Chunking.MaxSize == 0 {
		c.Chunking.MaxSize = 1000
	}
	if c.Chunking.Overlap == 0 {
		c.Chunking.Overlap = 100
	}
	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.VectorIndex.Metric == "" {
		c.VectorIndex.Metric = "cosine"
	}
	if c.VectorIndex.Namespace == "" {
		c.VectorIndex.Namespace = "regulations"
	}
	if c.VectorIndex.ReadyMaxAttempts == 0 {
		c.VectorIndex.ReadyMaxAttempts = 60
	}
	if c.VectorIndex.SettleMaxAttempts == 0 {
		c.VectorIndex.SettleMaxAttempts = 10
	}
	if c.LLM.Prompt.TargetLanguage == "" {
		c.LLM.Prompt.TargetLanguage = "Spanish"
	}
	if c.LLM.Prompt.TopK == 0 {
		c.LLM.Prompt.TopK = 10
	}
}

// Validate 在启动时做一次性校验。写入与查询共用同一份 Embedding 配置，
// 校验通过即可保证两条路径的模型与维度一致。
func (c *Config) Validate() error {
	if c.Chunking.Overlap < 0 {
		return fmt.Errorf("分块配置非法: overlap(%d) 不能为负数", c.Chunking.Overlap)
	}
	if c.Chunking.Overlap >= c.Chunking.MaxSize {
		return fmt.Errorf("分块配置非法: overlap(%d) 必须小于 max_size(%d)", c.Chunking.Overlap, c.Chunking.MaxSize)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding 配置非法: dimensions(%d) 必须为正数", c.Embedding.Dimensions)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding 配置非法: 未指定模型")
	}
	if c.VectorIndex.IndexName == "" {
		return fmt.Errorf("vector_index 配置非法: 未指定索引名")
	}
	switch c.VectorIndex.Metric {
	case "cosine", "dot_product", "l2_norm":
	default:
		return fmt.Errorf("vector_index 配置非法: 不支持的距离度量 '%s'", c.VectorIndex.Metric)
	}
	if c.VectorIndex.ReadyMaxAttempts <= 0 || c.VectorIndex.SettleMaxAttempts <= 0 {
		return fmt.Errorf("vector_index 配置非法: 轮询次数必须为正数")
	}
	return nil
}
