package config

import (
	"fmt"
	"time"

	"golang-signal-engine/pkg/config"
)

// MarketCalendar describes one market's trading session. Open and Close are
// wall-clock times in HH:MM within Timezone; Days lists trading weekdays as
// time.Weekday strings ("Monday", ...).
type MarketCalendar struct {
	Timezone string   `mapstructure:"timezone"`
	Open     string   `mapstructure:"open"`
	Close    string   `mapstructure:"close"`
	Days     []string `mapstructure:"days"`
}

// Location resolves the calendar's timezone.
func (m MarketCalendar) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid market timezone %q: %w", m.Timezone, err)
	}
	return loc, nil
}

// Scheduler holds scheduler-specific configuration.
type Scheduler struct {
	// How often pending jobs are swept from the database onto the streams.
	PollingInterval time.Duration `mapstructure:"polling_interval"`
	// Cadence of realtime pipeline jobs while a market is open.
	RealtimeInterval time.Duration `mapstructure:"realtime_interval"`
	// Cadence of the market-hours state check.
	MarketCheckInterval time.Duration `mapstructure:"market_check_interval"`
	// Lead time before open/close during which a market reports
	// opening/closing instead of closed/open.
	TransitionLead time.Duration `mapstructure:"transition_lead"`
	// Cron expression for the nightly backfill enqueue, evaluated per market
	// in that market's timezone.
	BackfillCron string `mapstructure:"backfill_cron"`
	// Markets maps market code (us, vn) to its trading calendar.
	Markets map[string]MarketCalendar `mapstructure:"markets"`
}

// Config holds the full configuration for the scheduling service.
type Config struct {
	App       config.App      `mapstructure:"app"`
	Logger    config.Logger   `mapstructure:"logger"`
	Database  config.Database `mapstructure:"database"`
	Redis     config.Redis    `mapstructure:"redis"`
	API       config.API      `mapstructure:"api"`
	Scheduler Scheduler       `mapstructure:"scheduler"`
}

// Load loads the scheduler configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Scheduler.PollingInterval <= 0 {
		cfg.Scheduler.PollingInterval = 10 * time.Second
	}
	if cfg.Scheduler.RealtimeInterval <= 0 {
		cfg.Scheduler.RealtimeInterval = 30 * time.Second
	}
	if cfg.Scheduler.MarketCheckInterval <= 0 {
		cfg.Scheduler.MarketCheckInterval = time.Minute
	}
	if cfg.Scheduler.TransitionLead <= 0 {
		cfg.Scheduler.TransitionLead = 15 * time.Minute
	}
	if cfg.Scheduler.BackfillCron == "" {
		cfg.Scheduler.BackfillCron = "0 1 * * 2-6"
	}
	if len(cfg.Scheduler.Markets) == 0 {
		cfg.Scheduler.Markets = DefaultMarkets()
	}
	return &cfg, nil
}

// DefaultMarkets returns the built-in US and VN trading calendars.
func DefaultMarkets() map[string]MarketCalendar {
	weekdays := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
	return map[string]MarketCalendar{
		"us": {
			Timezone: "America/New_York",
			Open:     "09:30",
			Close:    "16:00",
			Days:     weekdays,
		},
		"vn": {
			Timezone: "Asia/Ho_Chi_Minh",
			Open:     "09:00",
			Close:    "15:00",
			Days:     weekdays,
		},
	}
}
