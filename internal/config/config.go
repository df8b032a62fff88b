package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"LevelSentinel/internal/model"
	"LevelSentinel/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider string   `yaml:"provider"` // yahoo, vstrader or mock
		BaseURL  string   `yaml:"base_url"`
		APIKey   string   `yaml:"api_key"`
		Symbols  []string `yaml:"symbols"`
		Interval string   `yaml:"interval"`
		Period   string   `yaml:"period"`
	} `yaml:"data_source"`
	Schedule struct {
		AnalysisCron string `yaml:"analysis_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Analysis Analysis `yaml:"analysis"`
	Log      struct {
		Level string `yaml:"level"`
		Env   string `yaml:"env"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Analysis mirrors strategy.Config in YAML form. Zero values keep the
// engine defaults.
type Analysis struct {
	PivotWindow        int     `yaml:"pivot_window"`
	PivotCenterOffsets []int   `yaml:"pivot_center_offsets"`
	PivotTolerance     float64 `yaml:"pivot_tolerance"`
	BollingerPeriod    int     `yaml:"bollinger_period"`
	BollingerK         float64 `yaml:"bollinger_k"`
	KMeansK            int     `yaml:"kmeans_k"`
	KMeansMaxIter      int     `yaml:"kmeans_max_iter"`
	VolumeBinWidth     float64 `yaml:"volume_bin_width"`
	VolumeMinBars      int     `yaml:"volume_min_bars"`
	VolumeStdDevs      float64 `yaml:"volume_std_devs"`
	TrendWindow        int     `yaml:"trend_window"`
	TrendSamples       int     `yaml:"trend_samples"`
	TrendAngleDeg      float64 `yaml:"trend_angle_deg"`
	TrendLastN         int     `yaml:"trend_last_n"`
	TheilSenPoints     int     `yaml:"theil_sen_points"`

	MergeTolerance float64            `yaml:"merge_tolerance"`
	ProximityBand  float64            `yaml:"proximity_band"`
	ProximityBoost float64            `yaml:"proximity_boost"`
	Weights        map[string]float64 `yaml:"weights"` // keyed by method name, e.g. volume_profile
	Seed           *uint64            `yaml:"seed"`
	Parallel       bool               `yaml:"parallel"`
}

// Load reads the optional .env file and the YAML config, then applies
// environment variable overrides.
func Load(path string) (*Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("VSTRADER_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("VSTRADER_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		cfg.DataSource.Symbols = splitList(v)
	}
	if v := os.Getenv("BAR_INTERVAL"); v != "" {
		cfg.DataSource.Interval = v
	}
	if v := os.Getenv("BAR_PERIOD"); v != "" {
		cfg.DataSource.Period = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("CRON_ANALYSIS"); v != "" {
		cfg.Schedule.AnalysisCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Log.Env = v
	}
	if v := os.Getenv("ANALYSIS_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse ANALYSIS_SEED: %w", err)
		}
		cfg.Analysis.Seed = &seed
	}

	// Defaults
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = "yahoo"
	}
	if len(cfg.DataSource.Symbols) == 0 {
		cfg.DataSource.Symbols = []string{"SPY"}
	}
	if cfg.DataSource.Interval == "" {
		cfg.DataSource.Interval = "15m"
	}
	if cfg.DataSource.Period == "" {
		cfg.DataSource.Period = "5d"
	}
	if cfg.Schedule.AnalysisCron == "" {
		cfg.Schedule.AnalysisCron = "0 0 22 * * 1-5"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/level_sentinel.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Env == "" {
		cfg.Log.Env = "development"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "vstrader":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for vstrader")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	if len(c.DataSource.Symbols) == 0 {
		return fmt.Errorf("data_source.symbols must not be empty")
	}
	if _, err := c.Analysis.EngineConfig(); err != nil {
		return err
	}
	return nil
}

// EngineConfig overlays the configured values on strategy.DefaultConfig.
func (a Analysis) EngineConfig() (strategy.Config, error) {
	cfg := strategy.DefaultConfig()
	d := &cfg.Detector

	setInt(&d.PivotWindow, a.PivotWindow)
	if len(a.PivotCenterOffsets) > 0 {
		d.PivotCenterOffsets = append([]int(nil), a.PivotCenterOffsets...)
	}
	setFloat(&d.PivotTolerance, a.PivotTolerance)
	setInt(&d.BollingerPeriod, a.BollingerPeriod)
	setFloat(&d.BollingerK, a.BollingerK)
	setInt(&d.KMeansK, a.KMeansK)
	setInt(&d.KMeansMaxIter, a.KMeansMaxIter)
	setFloat(&d.VolumeBinWidth, a.VolumeBinWidth)
	setInt(&d.VolumeMinBars, a.VolumeMinBars)
	setFloat(&d.VolumeStdDevs, a.VolumeStdDevs)
	setInt(&d.TrendWindow, a.TrendWindow)
	setInt(&d.TrendSamples, a.TrendSamples)
	setFloat(&d.TrendAngleDeg, a.TrendAngleDeg)
	setInt(&d.TrendLastN, a.TrendLastN)
	setInt(&d.TheilSenPoints, a.TheilSenPoints)

	setFloat(&cfg.MergeTolerance, a.MergeTolerance)
	setFloat(&cfg.ProximityBand, a.ProximityBand)
	setFloat(&cfg.ProximityBoost, a.ProximityBoost)
	if a.Seed != nil {
		cfg.Seed = *a.Seed
	}
	cfg.Parallel = a.Parallel

	for name, w := range a.Weights {
		m, ok := model.ParseMethod(name)
		if !ok {
			return cfg, fmt.Errorf("analysis.weights: unknown method %q", name)
		}
		if w < 0 {
			return cfg, fmt.Errorf("analysis.weights.%s must not be negative", name)
		}
		cfg.Weights[m] = w
	}

	if d.PivotWindow < 2 {
		return cfg, fmt.Errorf("analysis.pivot_window must be at least 2")
	}
	for _, o := range d.PivotCenterOffsets {
		if o < 0 || o >= d.PivotWindow {
			return cfg, fmt.Errorf("analysis.pivot_center_offsets: %d is outside the pivot window", o)
		}
	}
	if d.BollingerPeriod < 2 {
		return cfg, fmt.Errorf("analysis.bollinger_period must be at least 2")
	}
	if d.KMeansK < 1 {
		return cfg, fmt.Errorf("analysis.kmeans_k must be positive")
	}
	if d.TrendWindow < 2 {
		return cfg, fmt.Errorf("analysis.trend_window must be at least 2")
	}
	if d.TheilSenPoints < 2 {
		return cfg, fmt.Errorf("analysis.theil_sen_points must be at least 2")
	}
	if cfg.MergeTolerance < 0 || cfg.ProximityBand < 0 || cfg.ProximityBoost < 1 {
		return cfg, fmt.Errorf("analysis: merge_tolerance and proximity_band must be non-negative, proximity_boost at least 1")
	}
	return cfg, nil
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}
