package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "flightscraper.json5"

var (
	ErrInvalidTimeout = errors.New("timeouts must be positive")
	ErrInvalidDays    = errors.New("calendar days must be at least 1")
	ErrInvalidResults = errors.New("results per route must be at least 1")
	ErrMissingBaseURL = errors.New("base url is required")
)

// Selectors is the DOM contract with the search site. XPath selectors are
// resolved by the browser, CSS selectors by the HTML parser.
type Selectors struct {
	CookieButton   string `json:"cookie_button"`   // xpath
	CalendarButton string `json:"calendar_button"` // xpath
	CalendarTable  string `json:"calendar_table"`  // xpath
	CalendarCell   string `json:"calendar_cell"`
	OptionCard     string `json:"option_card"`
	OptionTimes    string `json:"option_times"`
	OptionStops    string `json:"option_stops"`
	OptionPrice    string `json:"option_price"`
}

type Config struct {
	Env      string `json:"env"`
	Headless bool   `json:"headless"`
	Debug    bool   `json:"debug"`

	GlobalTimeout      time.Duration `json:"-"` // Overall timeout
	ActionTimeout      time.Duration `json:"-"` // Timeout for individual actions
	Delay              time.Duration `json:"-"` // Wait for late rendering before a scrape
	NavigationInterval time.Duration `json:"-"` // Minimum gap between page loads

	// Durations as they appear in the config file, in seconds.
	GlobalTimeoutSeconds      int `json:"global_timeout_seconds"`
	ActionTimeoutSeconds      int `json:"action_timeout_seconds"`
	DelaySeconds              int `json:"delay_seconds"`
	NavigationIntervalSeconds int `json:"navigation_interval_seconds"`

	Days       int  `json:"days"`
	NumResults int  `json:"num_results"`
	BestDay    bool `json:"best_day"`

	BaseURL         string `json:"base_url"`
	WorkDir         string `json:"workdir"`
	ItinerariesPath string `json:"itineraries"`
	HistoryDB       string `json:"history_db"`
	MetricsFile     string `json:"metrics_file"`

	Selectors Selectors `json:"selectors"`

	// Files lists the config files merged by Load, in order.
	Files []string `json:"-"`
}

// fileConfig captures the fields whose zero value is meaningful as pointers,
// so that an explicit false or 0 in a file still overrides the default;
// mergo skips zero values.
type fileConfig struct {
	Config
	Headless                  *bool `json:"headless"`
	Debug                     *bool `json:"debug"`
	BestDay                   *bool `json:"best_day"`
	DelaySeconds              *int  `json:"delay_seconds"`
	NavigationIntervalSeconds *int  `json:"navigation_interval_seconds"`
}

func (f fileConfig) applyExplicit(cfg *Config) {
	if f.Headless != nil {
		cfg.Headless = *f.Headless
	}
	if f.Debug != nil {
		cfg.Debug = *f.Debug
	}
	if f.BestDay != nil {
		cfg.BestDay = *f.BestDay
	}
	if f.DelaySeconds != nil {
		cfg.DelaySeconds = *f.DelaySeconds
	}
	if f.NavigationIntervalSeconds != nil {
		cfg.NavigationIntervalSeconds = *f.NavigationIntervalSeconds
	}
}

func Default() *Config {
	cfg := &Config{
		Env:                       "prod",
		Headless:                  true,
		GlobalTimeoutSeconds:      30 * 60,
		ActionTimeoutSeconds:      15,
		DelaySeconds:              8,
		NavigationIntervalSeconds: 2,
		Days:                      7,
		NumResults:                3,
		BestDay:                   true,
		BaseURL:                   "https://www.google.com/travel/flights",
		WorkDir:                   "data",
		ItinerariesPath:           "data/itineraries.json",
		Selectors: Selectors{
			CookieButton:   `//*[@id="yDmH0d"]/c-wiz/div/div/div/div[2]/div[1]/div[3]/div[1]/div[1]/form[1]/div/div/button/span`,
			CalendarButton: `//div[contains(@class,'OHJaU')]`,
			CalendarTable:  `//div[contains(@class,'OHJaU')]`,
			CalendarCell:   `div[class*="NFIRFd"]`,
			OptionCard:     `div.OgQvJf.nKlB3b`,
			OptionTimes:    `div.Ir0Voe`,
			OptionStops:    `div.BbR8Ec`,
			OptionPrice:    `div.U3gSDe`,
		},
	}
	cfg.resolveDurations()
	return cfg
}

func (c *Config) resolveDurations() {
	c.GlobalTimeout = time.Duration(c.GlobalTimeoutSeconds) * time.Second
	c.ActionTimeout = time.Duration(c.ActionTimeoutSeconds) * time.Second
	c.Delay = time.Duration(c.DelaySeconds) * time.Second
	c.NavigationInterval = time.Duration(c.NavigationIntervalSeconds) * time.Second
}

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

// Load reads the config at path on top of the defaults, then merges
// <name>.local.<ext> next to it when present. Missing files are not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	prefix, ext := splitExt(filepath.Base(path))
	local := filepath.Join(filepath.Dir(path), fmt.Sprintf("%s.local.%s", prefix, ext))

	for _, name := range []string{path, local} {
		contents, err := os.ReadFile(name)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(contents) == 0 {
			continue
		}

		var override fileConfig
		if err := json5.Unmarshal(contents, &override); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		if err := mergo.Merge(cfg, override.Config, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge %s: %w", name, err)
		}
		override.applyExplicit(cfg)
		cfg.Files = append(cfg.Files, name)
	}

	cfg.resolveDurations()
	return cfg, nil
}

// SetTimeouts overrides the duration fields from seconds values, ignoring
// non-positive ones. Used to apply command-line flags after Load.
func (c *Config) SetTimeouts(global, action, delay, interval int) {
	if global > 0 {
		c.GlobalTimeoutSeconds = global
	}
	if action > 0 {
		c.ActionTimeoutSeconds = action
	}
	if delay > 0 {
		c.DelaySeconds = delay
	}
	if interval > 0 {
		c.NavigationIntervalSeconds = interval
	}
	c.resolveDurations()
}

func (c *Config) Validate() error {
	if c.GlobalTimeout <= 0 || c.ActionTimeout <= 0 || c.Delay < 0 || c.NavigationInterval < 0 {
		return ErrInvalidTimeout
	}
	if c.Days < 1 {
		return ErrInvalidDays
	}
	if c.NumResults < 1 {
		return ErrInvalidResults
	}
	if c.BaseURL == "" {
		return ErrMissingBaseURL
	}
	return nil
}
