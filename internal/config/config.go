// Package config defines all configuration for a market-making session.
// Config is loaded from a YAML file (default: configs/session.yaml) with
// sensitive fields overridable via POLY_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	DryRun    bool            `mapstructure:"dry_run"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	API       APIConfig       `mapstructure:"api"`
	Session   SessionConfig   `mapstructure:"session"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// WalletConfig holds the Ethereum wallet used for signing orders.
// PrivateKey signs L1 (EIP-712) auth and derives L2 API keys.
// FunderAddress is the on-chain address that funds orders (may differ from signer if using a proxy).
type WalletConfig struct {
	PrivateKey    string `mapstructure:"private_key"`
	SignatureType int    `mapstructure:"signature_type"`
	FunderAddress string `mapstructure:"funder_address"`
	ChainID       int    `mapstructure:"chain_id"`
}

// APIConfig holds venue API endpoints and optional pre-derived L2 credentials.
// If ApiKey/Secret/Passphrase are empty, the session derives them via L1 auth on startup.
type APIConfig struct {
	CLOBBaseURL  string `mapstructure:"clob_base_url"`
	GammaBaseURL string `mapstructure:"gamma_base_url"`
	WSMarketURL  string `mapstructure:"ws_market_url"`
	ApiKey       string `mapstructure:"api_key"`
	Secret       string `mapstructure:"secret"`
	Passphrase   string `mapstructure:"passphrase"`
}

// SessionConfig parameterizes a single market-making session: which market
// to follow, how long to run, and the Kalman/strategy tuning knobs. Field
// names track the venue's CLI surface one-to-one (TIEMPO_TOTAL ->
// TotalDuration, etc.) so the YAML keys and POLY_ env overrides read the
// same as the original tool's flags.
type SessionConfig struct {
	// TotalDuration is TIEMPO_TOTAL: total session length.
	TotalDuration time.Duration `mapstructure:"total_duration"`
	// TickInterval is INTERVALO_TICK: how often the session polls the feed.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// MarketSlug is SLUG_MERCADO: the venue market to follow.
	MarketSlug string `mapstructure:"market_slug"`
	// RollingVolWindow is ROLLING_VOL_WINDOW: window size (in ticks) for
	// the rolling-sigma substitute fed to the strategy.
	RollingVolWindow int `mapstructure:"rolling_vol_window"`
	// WarmupTicks is WARMUP_TICKS: warm-up tape length before calibration.
	WarmupTicks int `mapstructure:"warmup_ticks"`
	// GammaBase is GAMMA_BASE: base risk aversion for the strategy.
	GammaBase float64 `mapstructure:"gamma_base"`
	// KappaFallback is KAPPA_FALLBACK: used when the book's kappa fit
	// returns NaN or falls below the numeric floor.
	KappaFallback float64 `mapstructure:"kappa_fallback"`
	// MaxInventario is MAX_INVENTARIO: inventory kill-switch threshold.
	MaxInventario float64 `mapstructure:"max_inventario"`
	// QBaseDiag, RBaseDiag, SigmaBase are optional manual overrides for the
	// calibrated Kalman parameters; when unset (all zero), the session
	// calibrates them from the warm-up tape instead.
	QBaseDiag [4]float64 `mapstructure:"q_base_diag"`
	RBaseDiag [2]float64 `mapstructure:"r_base_diag"`
	SigmaBase float64    `mapstructure:"sigma_base"`
	// RFactorSpread is R_FACTOR_SPREAD: spread-dependent R scaling factor.
	RFactorSpread float64 `mapstructure:"r_factor_spread"`
	// QFactorVol is Q_FACTOR_VOL: volatility-dependent Q scaling factor.
	QFactorVol float64 `mapstructure:"q_factor_vol"`
	// ModoReal is MODO_REAL: true to place real orders, false to simulate.
	ModoReal bool `mapstructure:"modo_real"`
	// SizeUSDC is SIZE_USDC: target notional size per quoted leg.
	SizeUSDC float64 `mapstructure:"size_usdc"`

	// FlowWindow is the rolling look-back for toxic-flow detection: fills
	// older than this are evicted from the tracker.
	FlowWindow time.Duration `mapstructure:"flow_window"`
	// FlowToxicityThreshold is the composite toxicity score above which
	// flow is considered adverse and the quoted spread widens.
	FlowToxicityThreshold float64 `mapstructure:"flow_toxicity_threshold"`
	// FlowCooldownPeriod is how long the spread stays widened after
	// toxicity last crossed the threshold, decaying back to 1.0x.
	FlowCooldownPeriod time.Duration `mapstructure:"flow_cooldown_period"`
	// FlowMaxSpreadMultiplier caps how much toxic flow can widen the
	// quoted spread.
	FlowMaxSpreadMultiplier float64 `mapstructure:"flow_max_spread_multiplier"`
}

// RiskConfig configures the risk manager's price-movement kill switch: a
// mid-price move of more than KillSwitchDropPct within KillSwitchWindowSec
// trips it, and it stays active for CooldownAfterKill.
// SessionConfig.MaxInventario is the primary guardrail (§4.4's
// kill-switch); these limits apply to the one market this session trades,
// rather than across a multi-market portfolio.
type RiskConfig struct {
	KillSwitchDropPct   float64       `mapstructure:"kill_switch_drop_pct"`
	KillSwitchWindowSec int           `mapstructure:"kill_switch_window_sec"`
	CooldownAfterKill   time.Duration `mapstructure:"cooldown_after_kill"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the optional read-only web dashboard server.
type DashboardConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// TelemetryConfig controls where the tick tape and result record persist.
type TelemetryConfig struct {
	SQLitePath string `mapstructure:"sqlite_path"`
	ResultsCSV string `mapstructure:"results_csv"`
}

// Load reads config from a YAML file with env var overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("POLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("PK_POLYMARKET"); key != "" {
		cfg.Wallet.PrivateKey = key
	}
	if key := os.Getenv("POLY_API_KEY"); key != "" {
		cfg.API.ApiKey = key
	}
	if secret := os.Getenv("POLY_API_SECRET"); secret != "" {
		cfg.API.Secret = secret
	}
	if pass := os.Getenv("POLY_PASSPHRASE"); pass != "" {
		cfg.API.Passphrase = pass
	}
	if slug := os.Getenv("POLY_SLUG"); slug != "" {
		cfg.Session.MarketSlug = slug
	}
	switch os.Getenv("POLY_MODO_REAL") {
	case "true", "1":
		cfg.Session.ModoReal = true
	case "false", "0":
		cfg.Session.ModoReal = false
	}

	return &cfg, nil
}

// Validate checks the fields named in the venue's CLI surface for range
// and presence, returning an ErrInvalid-wrapped error for the first
// violation found.
func (c *Config) Validate() error {
	if c.Session.TotalDuration <= 0 {
		return fmt.Errorf("%w: session.total_duration must be > 0", ErrInvalid)
	}
	if c.Session.TickInterval <= 0 {
		return fmt.Errorf("%w: session.tick_interval must be > 0", ErrInvalid)
	}
	if c.Session.MarketSlug == "" {
		return fmt.Errorf("%w: session.market_slug is required", ErrInvalid)
	}
	if c.Session.RollingVolWindow < 2 {
		return fmt.Errorf("%w: session.rolling_vol_window must be >= 2", ErrInvalid)
	}
	if c.Session.WarmupTicks < 10 {
		return fmt.Errorf("%w: session.warmup_ticks must be >= 10", ErrInvalid)
	}
	if c.Session.GammaBase <= 0 {
		return fmt.Errorf("%w: session.gamma_base must be > 0", ErrInvalid)
	}
	if c.Session.KappaFallback <= 0 {
		return fmt.Errorf("%w: session.kappa_fallback must be > 0", ErrInvalid)
	}
	if c.Session.MaxInventario <= 0 {
		return fmt.Errorf("%w: session.max_inventario must be > 0", ErrInvalid)
	}
	if c.Session.RFactorSpread < 0 {
		return fmt.Errorf("%w: session.r_factor_spread must be >= 0", ErrInvalid)
	}
	if c.Session.QFactorVol < 0 {
		return fmt.Errorf("%w: session.q_factor_vol must be >= 0", ErrInvalid)
	}
	if c.Session.SizeUSDC <= 0 {
		return fmt.Errorf("%w: session.size_usdc must be > 0", ErrInvalid)
	}
	if c.Session.FlowWindow <= 0 {
		return fmt.Errorf("%w: session.flow_window must be > 0", ErrInvalid)
	}
	if c.Session.FlowToxicityThreshold <= 0 || c.Session.FlowToxicityThreshold > 1 {
		return fmt.Errorf("%w: session.flow_toxicity_threshold must be in (0, 1]", ErrInvalid)
	}
	if c.Session.FlowCooldownPeriod <= 0 {
		return fmt.Errorf("%w: session.flow_cooldown_period must be > 0", ErrInvalid)
	}
	if c.Session.FlowMaxSpreadMultiplier < 1 {
		return fmt.Errorf("%w: session.flow_max_spread_multiplier must be >= 1", ErrInvalid)
	}
	if c.Session.ModoReal {
		if c.Wallet.PrivateKey == "" {
			return fmt.Errorf("%w: wallet.private_key is required in real mode (set PK_POLYMARKET)", ErrInvalid)
		}
		if c.Wallet.ChainID == 0 {
			return fmt.Errorf("%w: wallet.chain_id is required in real mode", ErrInvalid)
		}
	}
	if c.API.CLOBBaseURL == "" {
		return fmt.Errorf("%w: api.clob_base_url is required", ErrInvalid)
	}
	return nil
}

// ManualKalmanParams reports whether the session config supplies a manual
// Q_BASE/R_BASE/sigma_base override instead of calibrating from warm-up data.
func (c *Config) ManualKalmanParams() bool {
	s := c.Session
	return s.QBaseDiag != [4]float64{} || s.RBaseDiag != [2]float64{} || s.SigmaBase != 0
}
