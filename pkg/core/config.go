package core

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// StorageConfig controls the persistence layer (pkg/persistence).
type StorageConfig struct {
	DataPath                   string        `yaml:"data_path"`
	Compress                   bool          `yaml:"compress"`
	WALEnabled                 bool          `yaml:"wal_enabled"`
	FsyncPolicy                string        `yaml:"fsync_policy"` // always|interval|off
	FsyncInterval              time.Duration `yaml:"fsync_interval"`
	ChecksumValidationInterval time.Duration `yaml:"checksum_validation_interval"`
	StartupRepair              bool          `yaml:"startup_repair"`
}

func defaultStorageConfig() StorageConfig {
	return StorageConfig{
		DataPath:                   "./data",
		Compress:                   true,
		WALEnabled:                 true,
		FsyncPolicy:                "interval",
		FsyncInterval:              time.Second,
		ChecksumValidationInterval: time.Hour,
		StartupRepair:              true,
	}
}

// DaemonConfig controls the background passes in pkg/daemon.
type DaemonConfig struct {
	DecayInterval       time.Duration `yaml:"decay_interval"`
	ConsolidateInterval time.Duration `yaml:"consolidate_interval"`
	PruneInterval       time.Duration `yaml:"prune_interval"`
	PersistInterval     time.Duration `yaml:"persist_interval"`
}

func defaultDaemonConfig() DaemonConfig {
	return DaemonConfig{
		DecayInterval:       time.Hour,
		ConsolidateInterval: 6 * time.Hour,
		PruneInterval:       24 * time.Hour,
		PersistInterval:     time.Minute,
	}
}

// LifecycleConfig controls the worker-activity state machine
// (pkg/lifecycle manager.go), distinct from the per-fiber Maturation
// stage machine in BrainConfig.
type LifecycleConfig struct {
	IdleThreshold    time.Duration `yaml:"idle_threshold"`
	SleepThreshold   time.Duration `yaml:"sleep_threshold"`
	DormantThreshold time.Duration `yaml:"dormant_threshold"`
}

func defaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		IdleThreshold:    30 * time.Second,
		SleepThreshold:   5 * time.Minute,
		DormantThreshold: 30 * time.Minute,
	}
}

// ServerConfig groups the HTTP/MCP listener address.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// RegistryConfig controls the agent-UUID registry guard (pkg/registry).
type RegistryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// AdminConfig controls the /admin/* operational endpoints.
type AdminConfig struct {
	Enabled  bool   `yaml:"enabled"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// MCPConfig controls the Model Context Protocol endpoint exposing the
// ten public operations as MCP tools (pkg/mcp).
type MCPConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Path           string   `yaml:"path"`
	APIKey         string   `yaml:"api_key"`
	Stateless      bool     `yaml:"stateless"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst"`
	EnablePrompts  bool     `yaml:"enable_prompts"`
	AllowedTools   []string `yaml:"allowed_tools"`
}

// SecurityConfig groups CORS, body-size, TLS and rate-limit settings for
// the REST surface.
type SecurityConfig struct {
	AllowedOrigins    string        `yaml:"allowed_origins"`
	MaxRequestBody    int64         `yaml:"max_request_body"`
	TLSCert           string        `yaml:"tls_cert"`
	TLSKey            string        `yaml:"tls_key"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	RateLimitEnabled  bool          `yaml:"rate_limit_enabled"`
	RateLimitRequests int           `yaml:"rate_limit_requests"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`
}

func defaultServerConfig() ServerConfig     { return ServerConfig{HTTPAddr: ":6060"} }
func defaultRegistryConfig() RegistryConfig { return RegistryConfig{Enabled: false} }

func defaultAdminConfig() AdminConfig {
	return AdminConfig{Enabled: true, User: "admin", Password: "neuralmemory"}
}

func defaultMCPConfig() MCPConfig {
	return MCPConfig{
		Enabled:        false,
		Path:           "/mcp",
		Stateless:      true,
		RateLimitRPS:   30,
		RateLimitBurst: 60,
		EnablePrompts:  true,
	}
}

func defaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		AllowedOrigins:    "*",
		MaxRequestBody:    1 << 20,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		RateLimitEnabled:  true,
		RateLimitRequests: 120,
		RateLimitWindow:   time.Minute,
	}
}

// Config is the top-level, ambient configuration object loaded by the
// CLI/server front ends. BrainConfig (in types.go) holds the
// domain-level tunables shared with every public operation.
type Config struct {
	Brain     BrainConfig     `yaml:"brain" json:"brain"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Daemon    DaemonConfig    `yaml:"daemon" json:"daemon"`
	Lifecycle LifecycleConfig `yaml:"lifecycle" json:"lifecycle"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Registry  RegistryConfig  `yaml:"registry" json:"registry"`
	Admin     AdminConfig     `yaml:"admin" json:"admin"`
	MCP       MCPConfig       `yaml:"mcp" json:"mcp"`
	Security  SecurityConfig  `yaml:"security" json:"security"`

	RetrievalTimeout time.Duration `yaml:"retrieval_timeout" json:"retrieval_timeout"`
}

// DefaultConfig returns production-safe defaults, mirroring the
// teacher's DefaultConfig() layering.
func DefaultConfig() *Config {
	return &Config{
		Brain:            DefaultBrainConfig(),
		Storage:          defaultStorageConfig(),
		Daemon:           defaultDaemonConfig(),
		Lifecycle:        defaultLifecycleConfig(),
		Server:           defaultServerConfig(),
		Registry:         defaultRegistryConfig(),
		Admin:            defaultAdminConfig(),
		MCP:              defaultMCPConfig(),
		Security:         defaultSecurityConfig(),
		RetrievalTimeout: 5 * time.Second,
	}
}

// ConfigFromFile loads YAML from path on top of DefaultConfig(),
// exactly as the teacher's ConfigFromFile layers a YAML file over
// hardcoded defaults.
func ConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// ConfigFromEnv applies NEURALMEMORY_* environment overrides on top of
// cfg, following the teacher's typed setEnv* helper chain.
func ConfigFromEnv(cfg *Config) *Config {
	setEnvStr("NEURALMEMORY_DATA_PATH", &cfg.Storage.DataPath)
	setEnvBool("NEURALMEMORY_COMPRESS", &cfg.Storage.Compress)
	setEnvBool("NEURALMEMORY_WAL_ENABLED", &cfg.Storage.WALEnabled)
	setEnvStr("NEURALMEMORY_FSYNC_POLICY", &cfg.Storage.FsyncPolicy)
	setEnvDuration("NEURALMEMORY_RETRIEVAL_TIMEOUT", &cfg.RetrievalTimeout)
	setEnvFloat("NEURALMEMORY_DECAY_RATE", &cfg.Brain.DecayRate)
	setEnvFloat("NEURALMEMORY_LEARNING_RATE", &cfg.Brain.LearningRate)
	setEnvInt("NEURALMEMORY_MAX_SPREAD_HOPS", &cfg.Brain.MaxSpreadHops)

	setEnvStr("NEURALMEMORY_HTTP_ADDR", &cfg.Server.HTTPAddr)
	setEnvBool("NEURALMEMORY_REGISTRY_ENABLED", &cfg.Registry.Enabled)
	setEnvBool("NEURALMEMORY_ADMIN_ENABLED", &cfg.Admin.Enabled)
	setEnvStr("NEURALMEMORY_ADMIN_USER", &cfg.Admin.User)
	setEnvStr("NEURALMEMORY_ADMIN_PASSWORD", &cfg.Admin.Password)
	setEnvBool("NEURALMEMORY_MCP_ENABLED", &cfg.MCP.Enabled)
	setEnvStr("NEURALMEMORY_MCP_PATH", &cfg.MCP.Path)
	setEnvStr("NEURALMEMORY_MCP_API_KEY", &cfg.MCP.APIKey)
	setEnvBool("NEURALMEMORY_MCP_STATELESS", &cfg.MCP.Stateless)
	setEnvStr("NEURALMEMORY_ALLOWED_ORIGINS", &cfg.Security.AllowedOrigins)
	setEnvDuration("NEURALMEMORY_READ_TIMEOUT", &cfg.Security.ReadTimeout)
	setEnvDuration("NEURALMEMORY_WRITE_TIMEOUT", &cfg.Security.WriteTimeout)
	setEnvStr("NEURALMEMORY_TLS_CERT", &cfg.Security.TLSCert)
	setEnvStr("NEURALMEMORY_TLS_KEY", &cfg.Security.TLSKey)
	return cfg
}

// LoadConfig runs the full defaults → file → env chain; callers apply
// any explicit CLI overrides afterward.
func LoadConfig(configPath string) (*Config, error) {
	cfg, err := ConfigFromFile(configPath)
	if err != nil {
		return nil, err
	}
	return ConfigFromEnv(cfg), nil
}

// Validate returns a descriptive error on the first structural
// violation found, the way the teacher's Config.Validate() does.
func (c *Config) Validate() error {
	if c.Brain.MaxSpreadHops <= 0 {
		return fmt.Errorf("brain.max_spread_hops must be > 0")
	}
	if c.Brain.SigmoidSteepness <= 0 {
		return fmt.Errorf("brain.sigmoid_steepness must be > 0")
	}
	if c.Brain.LateralInhibitionK < 0 {
		return fmt.Errorf("brain.lateral_inhibition_k must be >= 0")
	}
	if c.Lifecycle.IdleThreshold >= c.Lifecycle.SleepThreshold {
		return fmt.Errorf("lifecycle.idle_threshold must be less than sleep_threshold")
	}
	if c.Lifecycle.SleepThreshold >= c.Lifecycle.DormantThreshold {
		return fmt.Errorf("lifecycle.sleep_threshold must be less than dormant_threshold")
	}
	switch c.Storage.FsyncPolicy {
	case "always", "interval", "off":
	default:
		return fmt.Errorf("storage.fsync_policy must be one of always|interval|off, got %q", c.Storage.FsyncPolicy)
	}
	if c.Storage.DataPath == "" {
		return fmt.Errorf("storage.data_path must not be empty")
	}
	return nil
}

func setEnvStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setEnvBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setEnvInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setEnvFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setEnvDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
