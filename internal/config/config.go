package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EngineFPDF   = "fpdf"
	EngineChrome = "chrome"

	defaultUpstream = "http://217.196.61.218:8080/v1"
)

// Config is the YAML configuration of the service.
type Config struct {
	Environment string `yaml:"environment"`

	Server struct {
		Host          string `yaml:"host"`
		Port          string `yaml:"port"`
		Prefork       bool   `yaml:"prefork"`
		BodyLimit     int    `yaml:"body_limit"`
		EnableMonitor bool   `yaml:"enable_monitor"`
	} `yaml:"server"`

	CORS struct {
		AllowOrigins     []string `yaml:"allow_origins"`
		AllowMethods     []string `yaml:"allow_methods"`
		AllowHeaders     []string `yaml:"allow_headers"`
		AllowCredentials bool     `yaml:"allow_credentials"`
	} `yaml:"cors"`

	Upstream struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"upstream"`

	KeepAlive struct {
		Enabled  bool          `yaml:"enabled"`
		URL      string        `yaml:"url"`
		Interval time.Duration `yaml:"interval"`
	} `yaml:"keepalive"`

	Logger struct {
		File       string `yaml:"file"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`

	RateLimiter struct {
		Interval  time.Duration `yaml:"interval"`
		UserLimit int           `yaml:"user_limit"`
	} `yaml:"rate_limiter"`

	Cache struct {
		RedisHost          string        `yaml:"redis_host"`
		RateLimitDB        int           `yaml:"redis_rate_db"`
		ReportCacheDB      int           `yaml:"redis_report_db"`
		ReportCacheEnabled bool          `yaml:"report_cache_enabled"`
		ReportCacheTTL     time.Duration `yaml:"report_cache_ttl"`
	} `yaml:"cache"`

	Report ReportConfig `yaml:"report"`
}

// ReportConfig selects the report engine and its bundled assets.
type ReportConfig struct {
	Engine           string  `yaml:"engine"`
	AssetsDir        string  `yaml:"assets_dir"`
	Watermark        string  `yaml:"watermark"`
	FontRegular      string  `yaml:"font_regular"`
	FontBold         string  `yaml:"font_bold"`
	PageSize         string  `yaml:"page_size"`
	WatermarkWidth   float64 `yaml:"watermark_width"`
	WatermarkHeight  float64 `yaml:"watermark_height"`
	WatermarkOpacity float64 `yaml:"watermark_opacity"`
	Compress         *bool   `yaml:"compress"`
	ChromePath       string  `yaml:"chrome_path"`
	ChromeNoSandbox  bool    `yaml:"chrome_no_sandbox"`
	TimeoutSecs      int     `yaml:"timeout_secs"`
}

// Load reads the file named by CONFIG_PATH, or config.yaml.
func Load() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	return LoadFrom(path)
}

// LoadFrom reads and validates the configuration at path. A missing file
// yields the defaults; a malformed file or invalid values panic.
func LoadFrom(path string) Config {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		panic(fmt.Sprintf("config: read %s: %v", path, err))
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			panic(fmt.Sprintf("config: parse %s: %v", path, err))
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Server.Port == "" {
		c.Server.Port = ":3000"
	}
	if c.Server.BodyLimit == 0 {
		c.Server.BodyLimit = 1024 * 1024
	}
	if len(c.CORS.AllowOrigins) == 0 {
		c.CORS.AllowOrigins = []string{
			"http://localhost:5173",
			"https://raizesfront.vercel.app",
			"https://raizeshistoriafamiliar.vercel.app",
			"https://raizesteste.vercel.app",
		}
		c.CORS.AllowCredentials = true
	}
	if len(c.CORS.AllowMethods) == 0 {
		c.CORS.AllowMethods = []string{"GET", "POST", "PUT", "DELETE"}
	}
	if len(c.CORS.AllowHeaders) == 0 {
		c.CORS.AllowHeaders = []string{"Origin", "X-Requested-With", "Content-Type", "Accept"}
	}
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = defaultUpstream
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = 15 * time.Second
	}
	if c.KeepAlive.Interval == 0 {
		c.KeepAlive.Interval = 15 * time.Minute
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.RateLimiter.Interval == 0 {
		c.RateLimiter.Interval = time.Minute
	}
	if c.Cache.ReportCacheTTL == 0 {
		c.Cache.ReportCacheTTL = 10 * time.Minute
	}

	r := &c.Report
	if r.Engine == "" {
		r.Engine = EngineFPDF
	}
	if r.Watermark == "" {
		r.Watermark = "logo_raizes.png"
	}
	if r.PageSize == "" {
		r.PageSize = "A4"
	}
	if r.WatermarkWidth == 0 {
		r.WatermarkWidth = 300
	}
	if r.WatermarkHeight == 0 {
		r.WatermarkHeight = 300
	}
	if r.WatermarkOpacity == 0 {
		r.WatermarkOpacity = 0.3
	}
	if r.Compress == nil {
		on := true
		r.Compress = &on
	}
	if r.TimeoutSecs == 0 {
		r.TimeoutSecs = 30
	}
}

// applyEnv lets the hosting platform override selected keys.
func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = ":" + strings.TrimPrefix(v, ":")
	}
	if v := os.Getenv("API_BASE_URL"); v != "" {
		c.Upstream.BaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
	if v := os.Getenv("RENDER_EXTERNAL_URL"); v != "" {
		c.KeepAlive.URL = strings.TrimSuffix(v, "/") + "/health"
		c.KeepAlive.Enabled = true
	}
	if v := os.Getenv("NODE_ENV"); v != "" {
		c.Environment = v
	}
	if c.Report.ChromePath == "" {
		if v := os.Getenv("CHROME_BIN"); v != "" {
			c.Report.ChromePath = v
		}
	}
	c.Upstream.BaseURL = strings.TrimSuffix(c.Upstream.BaseURL, "/")
}

// Validate reports the first invalid value.
func (c Config) Validate() error {
	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("upstream.base_url must be an http(s) URL, got %q", c.Upstream.BaseURL)
	}
	if c.Upstream.Timeout < 0 {
		return errors.New("upstream.timeout must not be negative")
	}
	if c.KeepAlive.Enabled {
		if c.KeepAlive.URL == "" {
			return errors.New("keepalive.url is required when keepalive is enabled")
		}
		if c.KeepAlive.Interval <= 0 {
			return errors.New("keepalive.interval must be positive")
		}
	}
	if c.RateLimiter.UserLimit < 0 {
		return errors.New("rate_limiter.user_limit must not be negative")
	}
	if c.RateLimiter.Interval <= 0 {
		return errors.New("rate_limiter.interval must be positive")
	}
	for _, o := range c.CORS.AllowOrigins {
		if o == "*" && c.CORS.AllowCredentials {
			return errors.New("cors: wildcard origin cannot be combined with credentials")
		}
	}

	r := c.Report
	if r.Engine != EngineFPDF && r.Engine != EngineChrome {
		return fmt.Errorf("report.engine must be %q or %q, got %q", EngineFPDF, EngineChrome, r.Engine)
	}
	if (r.FontRegular == "") != (r.FontBold == "") {
		return errors.New("report.font_regular and report.font_bold must be set together")
	}
	if r.WatermarkOpacity < 0 || r.WatermarkOpacity > 1 {
		return fmt.Errorf("report.watermark_opacity must be within [0,1], got %v", r.WatermarkOpacity)
	}
	if r.WatermarkWidth < 0 || r.WatermarkHeight < 0 {
		return errors.New("report watermark size must not be negative")
	}
	if r.TimeoutSecs < 0 {
		return errors.New("report.timeout_secs must not be negative")
	}
	return nil
}
