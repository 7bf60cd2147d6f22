package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port             int              `json:"port"`
	JWTSecret        string           `json:"jwt_secret"`
	JWTTTLHours      int              `json:"jwt_ttl_hours"`
	LogConfig        logger.LogConfig `json:"log_config"`
	Database         DatabaseConfig   `json:"database"`
	Store            StoreConfig      `json:"store"`
	FileStore        FileStoreConfig  `json:"file_store"`
	Extract          ExtractConfig    `json:"extract"`
	Chunk            ChunkConfig      `json:"chunk"`
	Embed            EmbedConfig      `json:"embed"`
	CORSAllowlist    []string         `json:"cors_allowlist"`
	ReprocessWorkers int              `json:"reprocess_workers"`
	Jobs             JobsConfig       `json:"jobs"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

// StoreConfig selects the chunk store backend. "postgres" persists chunks
// with pgvector, "memory" keeps them in-process (single node only).
type StoreConfig struct {
	Type string `json:"type"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type ExtractConfig struct {
	// MinTextLength gates advancement between extraction strategies: output
	// with fewer non-whitespace characters than this is treated as a
	// scanned page and escalates to the next strategy.
	MinTextLength     int    `json:"min_text_length"`
	OCREndpoint       string `json:"ocr_endpoint"`
	OCRTimeoutSeconds int    `json:"ocr_timeout_seconds"`
}

type ChunkConfig struct {
	MaxChunkSize int `json:"max_chunk_size"`
	OverlapSize  int `json:"overlap_size"`
}

type EmbedConfig struct {
	Provider       string             `json:"provider"`
	Model          string             `json:"model"`
	TimeoutSeconds int                `json:"timeout_seconds"`
	MaxRetries     int                `json:"max_retries"`
	CacheSize      int                `json:"cache_size"`
	CacheTTLHours  int                `json:"cache_ttl_hours"`
	Data           interface{}        `json:"data"`
	Fallbacks      []EmbedEntryConfig `json:"fallbacks"`
}

// EmbedEntryConfig is a secondary provider tried when the primary fails.
type EmbedEntryConfig struct {
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

type JobsConfig struct {
	PendingSweepSpec string `json:"pending_sweep_spec"`
	CacheCleanupSpec string `json:"cache_cleanup_spec"`
	CacheKeepDays    int    `json:"cache_keep_days"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "postgres"
	}
	switch cfg.Store.Type {
	case "postgres":
		if cfg.Database.DSN == "" && cfg.Database.Host == "" {
			return nil, fmt.Errorf("database.dsn or database.host is required for postgres store")
		}
	case "memory":
	default:
		return nil, fmt.Errorf("store.type must be postgres or memory")
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.Extract.MinTextLength == 0 {
		cfg.Extract.MinTextLength = 20
	}
	if cfg.Extract.OCRTimeoutSeconds == 0 {
		cfg.Extract.OCRTimeoutSeconds = 60
	}
	if cfg.Chunk.MaxChunkSize == 0 {
		cfg.Chunk.MaxChunkSize = 1200
	}
	if cfg.Chunk.OverlapSize == 0 {
		cfg.Chunk.OverlapSize = 200
	}
	if cfg.Chunk.OverlapSize >= cfg.Chunk.MaxChunkSize {
		return nil, fmt.Errorf("chunk.overlap_size must be smaller than chunk.max_chunk_size")
	}
	if cfg.Embed.Provider == "" {
		return nil, fmt.Errorf("embed.provider is required")
	}
	if cfg.Embed.Model == "" {
		return nil, fmt.Errorf("embed.model is required")
	}
	if cfg.Embed.TimeoutSeconds == 0 {
		cfg.Embed.TimeoutSeconds = 30
	}
	if cfg.Embed.MaxRetries == 0 {
		cfg.Embed.MaxRetries = 3
	}
	if cfg.Embed.CacheSize == 0 {
		cfg.Embed.CacheSize = 2048
	}
	if cfg.Embed.CacheTTLHours == 0 {
		cfg.Embed.CacheTTLHours = 24
	}
	if cfg.ReprocessWorkers == 0 {
		cfg.ReprocessWorkers = 4
	}
	if cfg.Jobs.CacheKeepDays == 0 {
		cfg.Jobs.CacheKeepDays = 30
	}
	return &cfg, nil
}
