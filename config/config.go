// Package config loads the engine's tunables from YAML, the way the
// teacher's server config does: a struct tree with yaml tags, sane
// defaults baked in before unmarshalling so a missing or partial file
// still produces a usable Config.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MemtableConfig sizes the in-memory write buffer (spec §4.F).
type MemtableConfig struct {
	SizeThresholdBytes int64  `yaml:"size_threshold_bytes"`
	ArenaChunkBytes    int64  `yaml:"arena_chunk_bytes"`
	FlushInterval      string `yaml:"flush_interval"`
}

// SSTableConfig tunes the on-disk table format (spec §3/§4.G).
type SSTableConfig struct {
	BlockSizeBytes        int64   `yaml:"block_size_bytes"`
	BlockRestartInterval  int     `yaml:"block_restart_interval"`
	Compression           string  `yaml:"compression"` // "none", "snappy", "lz4", "zstd"
	BloomFilterBitsPerKey int     `yaml:"bloom_filter_bits_per_key"`
	BloomFilterFPRate     float64 `yaml:"bloom_filter_fp_rate"` // informational; bits-per-key governs sizing
}

// CacheConfig sizes the sharded LRU block cache (spec §4.H).
type CacheConfig struct {
	BlockCacheCapacityBytes int64 `yaml:"block_cache_capacity_bytes"`
}

// WALConfig tunes the write-ahead log (spec §4.E).
type WALConfig struct {
	SyncMode      string `yaml:"sync_mode"` // "always", "interval", "never"
	FlushInterval string `yaml:"flush_interval"`
}

// EngineConfig groups every tunable that governs the storage engine.
type EngineConfig struct {
	DataDir  string         `yaml:"data_dir"`
	Memtable MemtableConfig `yaml:"memtable"`
	SSTable  SSTableConfig  `yaml:"sstable"`
	Cache    CacheConfig    `yaml:"cache"`
	WAL      WALConfig      `yaml:"wal"`
}

// LoggingConfig controls the engine's structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Output string `yaml:"output"` // "stdout", "stderr", "file"
	File   string `yaml:"file"`
}

// TracingConfig controls OpenTelemetry span export for engine operations.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Protocol string `yaml:"protocol"` // "grpc" or "http"
}

// Config is the top-level configuration for an embedded engine instance.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

// ParseDuration parses a duration string, returning defaultDuration for an
// empty or "0" input and logging (if logger is non-nil) on a malformed one.
func ParseDuration(durationStr string, defaultDuration time.Duration, logger *slog.Logger) time.Duration {
	if durationStr == "" || durationStr == "0" {
		return defaultDuration
	}
	d, err := time.ParseDuration(durationStr)
	if err != nil {
		if logger != nil {
			logger.Warn("invalid duration format, using default", "input", durationStr, "default", defaultDuration.String(), "error", err)
		}
		return defaultDuration
	}
	return d
}

func defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			DataDir: "./data",
			Memtable: MemtableConfig{
				SizeThresholdBytes: 4 * 1024 * 1024, // 4 MiB
				ArenaChunkBytes:    4096,
				FlushInterval:      "1s",
			},
			SSTable: SSTableConfig{
				BlockSizeBytes:        4 * 1024, // 4 KiB
				BlockRestartInterval:  16,
				Compression:           "snappy",
				BloomFilterBitsPerKey: 10,
				BloomFilterFPRate:     0.01,
			},
			Cache: CacheConfig{
				BlockCacheCapacityBytes: 8 * 1024 * 1024, // 8 MiB
			},
			WAL: WALConfig{
				SyncMode:      "interval",
				FlushInterval: "1000ms",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stdout",
		},
		Tracing: TracingConfig{
			Enabled:  false,
			Endpoint: "localhost:4317",
			Protocol: "grpc",
		},
	}
}

// Load reads configuration from an io.Reader, applying defaults first so a
// nil reader or partial document still yields a complete Config.
func Load(r io.Reader) (*Config, error) {
	cfg := defaults()

	if r == nil {
		return cfg, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config data: %w", err)
	}
	if len(data) == 0 {
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	return cfg, nil
}

// LoadConfig reads configuration from a YAML file by path, falling back to
// defaults when the file does not exist.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Load(nil)
		}
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	return Load(file)
}
