package config

// Config is the root configuration consumed at startup. All values are
// read-only once loaded.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Gatekeeper GatekeeperConfig `yaml:"gatekeeper"`
}

type ServerConfig struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
	// ConnectAttempts bounds how many times opening the database is retried
	// with exponential backoff before startup fails.
	ConnectAttempts int `yaml:"connect_attempts"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

// GatekeeperConfig groups the settings of the four gatekeeper collaborators.
type GatekeeperConfig struct {
	Throttle ThrottleConfig `yaml:"throttle"`
	Token    TokenConfig    `yaml:"token"`
	Session  SessionConfig  `yaml:"session"`
}

// ThrottleConfig holds the abuse-detection thresholds. Durations are in
// seconds.
type ThrottleConfig struct {
	MaxRequests       int      `yaml:"max_requests"`
	PeriodSec         int      `yaml:"period"`
	MaxFingerprints   int      `yaml:"max_fingerprints"`
	RateLimitSec      int      `yaml:"ratelimit_duration"`
	BanSec            int      `yaml:"ban_duration"`
	CleanFreqSec      int      `yaml:"clean_freq"`
	WhitelistPatterns []string `yaml:"whitelist"`
	BlacklistPatterns []string `yaml:"blacklist"`
}

type TokenConfig struct {
	// ValidityMinutes is the token lifetime from issuance.
	ValidityMinutes int    `yaml:"validity_minutes"`
	Issuer          string `yaml:"issuer"`
	Type            string `yaml:"type"`
	Secret          string `yaml:"secret"`
}

type SessionConfig struct {
	// Driver selects the timestamp store backend: memory, sqlite or redis.
	Driver string `yaml:"driver"`
	// CacheTTLMinutes bounds the fast-path session cache entries.
	CacheTTLMinutes int `yaml:"cache_ttl_minutes"`
	CleanupSec      int `yaml:"cleanup"`
}
