package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMargin        = 8.0
	DefaultMinExtent     = 20.0
	DefaultHintMargin    = 4.0
	DefaultHintMinExtent = 20.0
	DefaultHintMaxExtent = 28.0
	DefaultMinAtoms      = 3

	DefaultSeeds        = 3
	DefaultBaseSeed     = 1
	DefaultWorkers      = 4
	DefaultRunTimeout   = 10 * time.Minute
	DefaultJobTimeout   = time.Hour
	DefaultMaxRetries   = 2
	DefaultRetryBackoff = time.Second

	DefaultRMSDThreshold = 2.0
	DefaultTopK          = -1

	DefaultEngineBackend   = "vina"
	DefaultVinaBinary      = "vina"
	DefaultEngineImage     = "blinddock/vina:1.2.5"
	DefaultExhaustiveness  = 8
	DefaultNumModes        = 9
	DefaultVerbosity       = 2
	DefaultKillGracePeriod = 5 * time.Second

	DefaultPreparePython    = "pythonsh"
	DefaultReceptorScript   = "prepare_receptor4.py"
	DefaultLigandScript     = "prepare_ligand4.py"
	DefaultPrepareOutputDir = "./results/prepared"
	DefaultPrepareTimeout   = 2 * time.Minute

	DefaultStorageBackend = "local"
	DefaultLocalRoot      = "./results"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "blinddock-runs"

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "blinddock:"
	DefaultResultTTL      = 24 * time.Hour
	DefaultLockTTL        = 2 * time.Hour

	DefaultKafkaBroker       = "localhost:9092"
	DefaultKafkaGroupID      = "blinddock-workers"
	DefaultKafkaRequestTopic = "docking.job.requested"
	DefaultKafkaEventTopic   = "docking.job.events"
	DefaultKafkaMaxRetries   = 3

	DefaultDBHost        = "localhost"
	DefaultDBPort        = 5432
	DefaultDBName        = "blinddock"
	DefaultDBMaxConns    = 10
	DefaultMigrationPath = "migrations"

	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8080
	DefaultServerMode = "release"

	DefaultMetricsNamespace = "blinddock"
	DefaultMetricsPath      = "/metrics"
)

// ApplyDefaults fills every zero-value field in cfg.  Values already set win.
// A zero ranking.top_k becomes -1 (keep all clusters), which never drops data.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Docking ───────────────────────────────────────────────────────────────
	ss := &cfg.Docking.SearchSpace
	if ss.Margin == 0 {
		ss.Margin = DefaultMargin
	}
	if ss.MinExtent == 0 {
		ss.MinExtent = DefaultMinExtent
	}
	if ss.HintMargin == 0 {
		ss.HintMargin = DefaultHintMargin
	}
	if ss.HintMinExtent == 0 {
		ss.HintMinExtent = DefaultHintMinExtent
	}
	if ss.HintMaxExtent == 0 {
		ss.HintMaxExtent = DefaultHintMaxExtent
	}
	if ss.MinAtoms == 0 {
		ss.MinAtoms = DefaultMinAtoms
	}

	r := &cfg.Docking.Runner
	if r.Seeds == 0 {
		r.Seeds = DefaultSeeds
	}
	if r.BaseSeed == 0 {
		r.BaseSeed = DefaultBaseSeed
	}
	if r.Workers == 0 {
		r.Workers = DefaultWorkers
	}
	if r.RunTimeout == 0 {
		r.RunTimeout = DefaultRunTimeout
	}
	if r.JobTimeout == 0 {
		r.JobTimeout = DefaultJobTimeout
	}
	if r.RetryBackoff == 0 {
		r.RetryBackoff = DefaultRetryBackoff
	}

	if cfg.Docking.Cluster.RMSDThreshold == 0 {
		cfg.Docking.Cluster.RMSDThreshold = DefaultRMSDThreshold
	}
	if cfg.Docking.Ranking.TopK == 0 {
		cfg.Docking.Ranking.TopK = DefaultTopK
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	if cfg.Engine.Backend == "" {
		cfg.Engine.Backend = DefaultEngineBackend
	}
	if cfg.Engine.Binary == "" {
		cfg.Engine.Binary = DefaultVinaBinary
	}
	if cfg.Engine.Image == "" {
		cfg.Engine.Image = DefaultEngineImage
	}
	if cfg.Engine.Exhaustiveness == 0 {
		cfg.Engine.Exhaustiveness = DefaultExhaustiveness
	}
	if cfg.Engine.NumModes == 0 {
		cfg.Engine.NumModes = DefaultNumModes
	}
	if cfg.Engine.Verbosity == 0 {
		cfg.Engine.Verbosity = DefaultVerbosity
	}
	if cfg.Engine.KillGracePeriod == 0 {
		cfg.Engine.KillGracePeriod = DefaultKillGracePeriod
	}
	prep := &cfg.Engine.Prepare
	if prep.Python == "" {
		prep.Python = DefaultPreparePython
	}
	if prep.ReceptorScript == "" {
		prep.ReceptorScript = DefaultReceptorScript
	}
	if prep.LigandScript == "" {
		prep.LigandScript = DefaultLigandScript
	}
	if prep.ReceptorArgs == nil {
		prep.ReceptorArgs = []string{"-A", "hydrogens", "-U", "nphs_lps_waters"}
	}
	if prep.LigandArgs == nil {
		prep.LigandArgs = []string{"-A", "checkhydrogens"}
	}
	if prep.OutputDir == "" {
		prep.OutputDir = DefaultPrepareOutputDir
	}
	if prep.Timeout == 0 {
		prep.Timeout = DefaultPrepareTimeout
	}

	// ── Storage ───────────────────────────────────────────────────────────────
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.LocalRoot == "" {
		cfg.Storage.LocalRoot = DefaultLocalRoot
	}
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.ResultTTL == 0 {
		cfg.Redis.ResultTTL = DefaultResultTTL
	}
	if cfg.Redis.LockTTL == 0 {
		cfg.Redis.LockTTL = DefaultLockTTL
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.RequestTopic == "" {
		cfg.Kafka.RequestTopic = DefaultKafkaRequestTopic
	}
	if cfg.Kafka.EventTopic == "" {
		cfg.Kafka.EventTopic = DefaultKafkaEventTopic
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = DefaultKafkaMaxRetries
	}
	if cfg.Kafka.RetryBackoff == 0 {
		cfg.Kafka.RetryBackoff = DefaultRetryBackoff
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = DefaultMigrationPath
	}

	// ── Server / Metrics ──────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}

//Personal.AI order the ending
