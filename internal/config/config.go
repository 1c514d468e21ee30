// Mnemonic:	config
// Abstract:	Process configuration. Loads a TOML file the way the teacher's
//		managers declare their "CFG:" variables in a doc-comment block
//		(see managers/res_mgr.go's header, "resmgr:ckpt_dir..."), but reads
//		it with github.com/pelletier/go-toml/v2 instead of tegu's homegrown
//		config reader, with environment-variable overrides layered on top
//		for container deployment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full set of tunables spec §6.4 names.
type Config struct {
	HTTPAddr string `toml:"http_addr"`

	DatabaseDSN string `toml:"database_dsn"`

	TRespMinutes       int `toml:"t_resp_minutes"`
	WorkerTickSeconds  int `toml:"worker_tick_seconds"`
	// QuotaA/B/C are loaded and validated by Load, but the Allocator does not
	// read them: it always splits a round 40/30/20 percent across grades
	// A/B/C and gives grade D the remainder.
	QuotaA             int `toml:"quota_a_pct"`
	QuotaB             int `toml:"quota_b_pct"`
	QuotaC             int `toml:"quota_c_pct"`

	NotifierEndpoint   string `toml:"notifier_endpoint"`
	NotifierAuthHeader string `toml:"notifier_auth_header"`
}

// Default returns the baseline configuration (spec §4.3: T_resp defaults to
// 30 minutes; spec §4.7: tick interval defaults to 1 minute).
func Default() Config {
	return Config{
		HTTPAddr:          ":8080",
		DatabaseDSN:       "postgres://localhost:5432/dispatchd",
		TRespMinutes:      30,
		WorkerTickSeconds: 60,
		QuotaA:            40,
		QuotaB:            30,
		QuotaC:            20,
	}
}

// Load reads path (if non-empty and present) over the defaults, then applies
// DISPATCHD_* environment overrides, mirroring the teacher's layered
// file-then-env config resolution.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.QuotaA+cfg.QuotaB+cfg.QuotaC > 100 {
		return cfg, fmt.Errorf("quota_a_pct + quota_b_pct + quota_c_pct must not exceed 100")
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DISPATCHD_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("DISPATCHD_DATABASE_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("DISPATCHD_T_RESP_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TRespMinutes = n
		}
	}
	if v := os.Getenv("DISPATCHD_WORKER_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WorkerTickSeconds = n
		}
	}
	if v := os.Getenv("DISPATCHD_NOTIFIER_ENDPOINT"); v != "" {
		cfg.NotifierEndpoint = v
	}
	if v := os.Getenv("DISPATCHD_NOTIFIER_AUTH_HEADER"); v != "" {
		cfg.NotifierAuthHeader = v
	}
}

// TResp returns the response timeout as a time.Duration.
func (c Config) TResp() time.Duration { return time.Duration(c.TRespMinutes) * time.Minute }

// WorkerTick returns the TimeoutWorker's tick interval.
func (c Config) WorkerTick() time.Duration { return time.Duration(c.WorkerTickSeconds) * time.Second }

// QuotaD is the remainder grade D gets once A/B/C are reserved, matching
// the Allocator's q_D = N - q_A - q_B - q_C (spec §4.5); expressed here as a
// percentage for symmetry with the other three.
func (c Config) QuotaD() int {
	d := 100 - c.QuotaA - c.QuotaB - c.QuotaC
	if d < 0 {
		return 0
	}
	return d
}
