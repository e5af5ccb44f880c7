// Package config defines the configuration structures for BlindDock.  No I/O
// lives here, only plain data types and validation.
package config

import (
	"fmt"
	"strings"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Docking
// ─────────────────────────────────────────────────────────────────────────────

// SearchSpaceConfig controls how docking boxes are derived from structures.
type SearchSpaceConfig struct {
	// Margin is added on every side of the target's bounding box in blind mode (Å).
	Margin float64 `mapstructure:"margin"`
	// MinExtent is the floor applied to every blind-mode extent (Å).
	MinExtent float64 `mapstructure:"min_extent"`
	// HintMargin is added around a binding-site hint (Å).
	HintMargin float64 `mapstructure:"hint_margin"`
	// HintMinExtent and HintMaxExtent clamp hinted extents (Å).
	HintMinExtent float64 `mapstructure:"hint_min_extent"`
	HintMaxExtent float64 `mapstructure:"hint_max_extent"`
	// MinAtoms is the smallest target that can define a box.
	MinAtoms int `mapstructure:"min_atoms"`
}

// RunnerConfig controls multi-seed execution.
type RunnerConfig struct {
	Seeds        int           `mapstructure:"seeds"`
	BaseSeed     int64         `mapstructure:"base_seed"`
	Workers      int           `mapstructure:"workers"`
	RunTimeout   time.Duration `mapstructure:"run_timeout"`
	JobTimeout   time.Duration `mapstructure:"job_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// ClusterConfig controls pose deduplication.
type ClusterConfig struct {
	RMSDThreshold float64 `mapstructure:"rmsd_threshold"`
}

// RankingConfig controls truncation of the ranked output.  TopK of -1 keeps
// every cluster.
type RankingConfig struct {
	TopK int `mapstructure:"top_k"`
}

// DockingConfig groups the orchestration settings.
type DockingConfig struct {
	SearchSpace SearchSpaceConfig `mapstructure:"search_space"`
	Runner      RunnerConfig      `mapstructure:"runner"`
	Cluster     ClusterConfig     `mapstructure:"cluster"`
	Ranking     RankingConfig     `mapstructure:"ranking"`
}

// EngineConfig selects and parameterises the docking engine backend.
type EngineConfig struct {
	Backend              string        `mapstructure:"backend"` // "vina" | "docker"
	Binary               string        `mapstructure:"binary"`
	Image                string        `mapstructure:"image"`
	DockerHost           string        `mapstructure:"docker_host"`
	WorkDir              string        `mapstructure:"work_dir"`
	Exhaustiveness       int           `mapstructure:"exhaustiveness"`
	NumModes             int           `mapstructure:"num_modes"`
	Verbosity            int           `mapstructure:"verbosity"`
	CPU                  int           `mapstructure:"cpu"`
	RecoverableExitCodes []int         `mapstructure:"recoverable_exit_codes"`
	KillGracePeriod      time.Duration `mapstructure:"kill_grace_period"`
	// Platform pins the docker engine image platform, "os/arch[/variant]".
	Platform string        `mapstructure:"platform"`
	Prepare  PrepareConfig `mapstructure:"prepare"`
}

// PrepareConfig drives conversion of PDB, SDF and MOL2 inputs to PDBQT with
// the MGLTools prepare_receptor4 / prepare_ligand4 scripts.  Disabled, such
// inputs are rejected before any run starts.
type PrepareConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Python         string        `mapstructure:"python"`
	ReceptorScript string        `mapstructure:"receptor_script"`
	LigandScript   string        `mapstructure:"ligand_script"`
	ReceptorArgs   []string      `mapstructure:"receptor_args"`
	LigandArgs     []string      `mapstructure:"ligand_args"`
	OutputDir      string        `mapstructure:"output_dir"`
	Force          bool          `mapstructure:"force"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Infrastructure
// ─────────────────────────────────────────────────────────────────────────────

// StorageConfig selects where raw engine output is persisted.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"` // "local" | "minio"
	LocalRoot string `mapstructure:"local_root"`
}

// MinIOConfig holds object storage connection parameters.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	// RetentionDays expires raw run output; zero keeps it forever.
	RetentionDays int `mapstructure:"retention_days"`
}

// RedisConfig holds Redis connection and cache parameters.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	ResultTTL    time.Duration `mapstructure:"result_ttl"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
}

// KafkaConfig holds job queue parameters.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	GroupID      string        `mapstructure:"group_id"`
	RequestTopic string        `mapstructure:"request_topic"`
	EventTopic   string        `mapstructure:"event_topic"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	// SASLMechanism is PLAIN, SCRAM-SHA-256 or SCRAM-SHA-512; empty disables
	// SASL.
	SASLMechanism string `mapstructure:"sasl_mechanism"`
	SASLUsername  string `mapstructure:"sasl_username"`
	SASLPassword  string `mapstructure:"sasl_password"`
	TLSEnabled    bool   `mapstructure:"tls_enabled"`
	TLSCAFile     string `mapstructure:"tls_ca_file"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MetricsConfig controls the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Subsystem string `mapstructure:"subsystem"`
	Path      string `mapstructure:"path"`
}

// LogConfig mirrors logging.LogConfig so this package stays free of
// infrastructure imports.
type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Format      string   `mapstructure:"format"`
	OutputPaths []string `mapstructure:"output_paths"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Docking  DockingConfig  `mapstructure:"docking"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Storage  StorageConfig  `mapstructure:"storage"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// Validate checks the configuration after defaults have been applied.
func (c *Config) Validate() error {
	ss := c.Docking.SearchSpace
	if ss.Margin < 0 || ss.HintMargin < 0 {
		return fmt.Errorf("config: docking.search_space margins must be >= 0")
	}
	if ss.MinExtent <= 0 {
		return fmt.Errorf("config: docking.search_space.min_extent must be > 0")
	}
	if ss.HintMaxExtent < ss.HintMinExtent {
		return fmt.Errorf("config: docking.search_space.hint_max_extent (%.1f) < hint_min_extent (%.1f)",
			ss.HintMaxExtent, ss.HintMinExtent)
	}
	if ss.MinAtoms < 1 {
		return fmt.Errorf("config: docking.search_space.min_atoms must be >= 1")
	}

	r := c.Docking.Runner
	if r.Seeds < 1 {
		return fmt.Errorf("config: docking.runner.seeds must be >= 1")
	}
	if r.Workers < 1 {
		return fmt.Errorf("config: docking.runner.workers must be >= 1")
	}
	if r.RunTimeout <= 0 {
		return fmt.Errorf("config: docking.runner.run_timeout must be > 0")
	}
	if r.JobTimeout < 0 {
		return fmt.Errorf("config: docking.runner.job_timeout must be >= 0")
	}
	if r.MaxRetries < 0 {
		return fmt.Errorf("config: docking.runner.max_retries must be >= 0")
	}

	if c.Docking.Cluster.RMSDThreshold < 0 {
		return fmt.Errorf("config: docking.cluster.rmsd_threshold must be >= 0")
	}
	if k := c.Docking.Ranking.TopK; k == 0 || k < -1 {
		return fmt.Errorf("config: docking.ranking.top_k must be -1 (all) or > 0, got %d", k)
	}

	switch c.Engine.Backend {
	case "vina":
		if c.Engine.Binary == "" {
			return fmt.Errorf("config: engine.binary is required for the vina backend")
		}
	case "docker":
		if c.Engine.Image == "" {
			return fmt.Errorf("config: engine.image is required for the docker backend")
		}
	default:
		return fmt.Errorf("config: engine.backend must be one of [vina docker], got %q", c.Engine.Backend)
	}
	if c.Engine.Exhaustiveness < 1 {
		return fmt.Errorf("config: engine.exhaustiveness must be >= 1")
	}
	if p := c.Engine.Platform; p != "" {
		if parts := strings.Split(p, "/"); len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("config: engine.platform must be os/arch[/variant], got %q", p)
		}
	}
	if prep := c.Engine.Prepare; prep.Enabled && (prep.OutputDir == "" || prep.Timeout <= 0) {
		return fmt.Errorf("config: engine.prepare needs output_dir and a positive timeout when enabled")
	}

	switch c.Storage.Backend {
	case "local":
		if c.Storage.LocalRoot == "" {
			return fmt.Errorf("config: storage.local_root is required for the local backend")
		}
	case "minio":
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.endpoint and minio.bucket are required for the minio backend")
		}
	default:
		return fmt.Errorf("config: storage.backend must be one of [local minio], got %q", c.Storage.Backend)
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must not be empty when kafka is enabled")
		}
		if c.Kafka.RequestTopic == "" || c.Kafka.EventTopic == "" {
			return fmt.Errorf("config: kafka.request_topic and kafka.event_topic are required")
		}
	}
	if c.Database.Enabled && c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required when the database is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when redis is enabled")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	return nil
}

//Personal.AI order the ending
