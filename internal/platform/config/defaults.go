package config

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:   "0.0.0.0",
			Port: 8000,
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Database: DatabaseConfig{
			DSN:             "data/clinic.db",
			ConnectAttempts: 5,
		},
		Redis: RedisConfig{
			Addr:   "",
			Prefix: "clinic:",
		},
		Gatekeeper: GatekeeperConfig{
			Throttle: ThrottleConfig{
				MaxRequests:     100,
				PeriodSec:       30,
				MaxFingerprints: 50,
				RateLimitSec:    300,
				BanSec:          3600,
				CleanFreqSec:    60,
			},
			Token: TokenConfig{
				ValidityMinutes: 60,
				Issuer:          "clinic-server",
				Type:            "JWT",
			},
			Session: SessionConfig{
				Driver:          "sqlite",
				CacheTTLMinutes: 60,
				CleanupSec:      600,
			},
		},
	}
}

// applyDefaults fills zero values on a loaded config so partial files work.
func applyDefaults(cfg *Config) {
	def := DefaultConfig()

	if cfg.Server.IP == "" {
		cfg.Server.IP = def.Server.IP
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Dir == "" {
		cfg.Log.Dir = def.Log.Dir
	}
	if cfg.Log.File == "" {
		cfg.Log.File = def.Log.File
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = def.Database.DSN
	}
	if cfg.Database.ConnectAttempts == 0 {
		cfg.Database.ConnectAttempts = def.Database.ConnectAttempts
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = def.Redis.Prefix
	}

	th := &cfg.Gatekeeper.Throttle
	defTh := def.Gatekeeper.Throttle
	if th.MaxRequests == 0 {
		th.MaxRequests = defTh.MaxRequests
	}
	if th.PeriodSec == 0 {
		th.PeriodSec = defTh.PeriodSec
	}
	if th.MaxFingerprints == 0 {
		th.MaxFingerprints = defTh.MaxFingerprints
	}
	if th.RateLimitSec == 0 {
		th.RateLimitSec = defTh.RateLimitSec
	}
	if th.BanSec == 0 {
		th.BanSec = defTh.BanSec
	}
	if th.CleanFreqSec == 0 {
		th.CleanFreqSec = defTh.CleanFreqSec
	}

	tok := &cfg.Gatekeeper.Token
	defTok := def.Gatekeeper.Token
	if tok.ValidityMinutes == 0 {
		tok.ValidityMinutes = defTok.ValidityMinutes
	}
	if tok.Issuer == "" {
		tok.Issuer = defTok.Issuer
	}
	if tok.Type == "" {
		tok.Type = defTok.Type
	}

	sess := &cfg.Gatekeeper.Session
	defSess := def.Gatekeeper.Session
	if sess.Driver == "" {
		sess.Driver = defSess.Driver
	}
	if sess.CacheTTLMinutes == 0 {
		sess.CacheTTLMinutes = defSess.CacheTTLMinutes
	}
	if sess.CleanupSec == 0 {
		sess.CleanupSec = defSess.CleanupSec
	}
}
