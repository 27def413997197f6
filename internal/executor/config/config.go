package config

import (
	"time"

	"golang-signal-engine/internal/engine"
	"golang-signal-engine/internal/marketdata"
	"golang-signal-engine/pkg/config"
)

// Executor holds worker-specific configuration.
type Executor struct {
	ConsumerName             string        `mapstructure:"consumer_name"`
	MaxConcurrentJobs        int           `mapstructure:"max_concurrent_jobs"`
	JobTimeout               time.Duration `mapstructure:"job_timeout"`
	RetryInterval            time.Duration `mapstructure:"retry_interval"`
	MaxIdleDuration          time.Duration `mapstructure:"max_idle_duration"`
	MaxRetry                 int           `mapstructure:"max_retry"`
	SymbolLeaseTTL           time.Duration `mapstructure:"symbol_lease_ttl"`
	PipelineLeaseTTL         time.Duration `mapstructure:"pipeline_lease_ttl"`
	SignalExpiryInterval     time.Duration `mapstructure:"signal_expiry_interval"`
	BackfillCandleBatch      int           `mapstructure:"backfill_candle_batch"`
	BackfillLookbackBars     int           `mapstructure:"backfill_lookback_bars"`
	LastPriceTTL             time.Duration `mapstructure:"last_price_ttl"`
	MarketStateCheckInterval time.Duration `mapstructure:"market_state_check_interval"`
}

// Telegram holds configuration for the Telegram notifier.
type Telegram struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Config holds the full configuration for the signal service.
type Config struct {
	App        config.App              `mapstructure:"app"`
	Logger     config.Logger           `mapstructure:"logger"`
	Database   config.Database         `mapstructure:"database"`
	Redis      config.Redis            `mapstructure:"redis"`
	API        config.API              `mapstructure:"api"`
	Executor   Executor                `mapstructure:"executor"`
	Engine     engine.Config           `mapstructure:"engine"`
	MarketData marketdata.Config       `mapstructure:"market_data"`
	Stream     marketdata.StreamConfig `mapstructure:"stream"`
	Telegram   Telegram                `mapstructure:"telegram"`
}

// Load loads the signal service configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Executor.ConsumerName == "" {
		cfg.Executor.ConsumerName = "signal-worker"
	}
	if cfg.Executor.LastPriceTTL <= 0 {
		cfg.Executor.LastPriceTTL = 5 * time.Minute
	}
	if cfg.Executor.MarketStateCheckInterval <= 0 {
		cfg.Executor.MarketStateCheckInterval = time.Minute
	}
	cfg.Engine = engine.MergeConfig(engine.DefaultConfig(), cfg.Engine)
	return &cfg, nil
}
