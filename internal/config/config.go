package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
	Taxonomy struct {
		Path string `yaml:"path"`
	} `yaml:"taxonomy"`
	Quiz struct {
		Length     int    `yaml:"length"`
		SessionTTL string `yaml:"session_ttl"`
	} `yaml:"quiz"`
	Auth struct {
		AdminSecretHash string   `yaml:"admin_secret_hash"`
		Countries       []string `yaml:"countries"`
		RequireCountry  bool     `yaml:"require_country"`
	} `yaml:"auth"`
	Leaderboard struct {
		Backend         string `yaml:"backend"`
		Top             int    `yaml:"top"`
		SheetID         string `yaml:"sheet_id"`
		SheetRange      string `yaml:"sheet_range"`
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"leaderboard"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	LLM struct {
		Provider string `yaml:"provider"`
		Model    string `yaml:"model"`
		APIKey   string `yaml:"api_key"`
		BaseURL  string `yaml:"base_url"`
		Timeout  string `yaml:"timeout"`
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"llm"`
}

// DefaultCountries is the market list offered at login.
var DefaultCountries = []string{"Spain", "Poland", "Italy", "Brazil", "Mexico", "Global"}

// Load reads YAML config from path, applies defaults and environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Taxonomy.Path == "" {
		c.Taxonomy.Path = "data/taxonomy.csv"
	}
	if c.Quiz.Length <= 0 {
		c.Quiz.Length = 10
	}
	if len(c.Auth.Countries) == 0 {
		c.Auth.Countries = append([]string(nil), DefaultCountries...)
	}
	if c.Leaderboard.Backend == "" {
		c.Leaderboard.Backend = "memory"
	}
	if c.Leaderboard.Top <= 0 {
		c.Leaderboard.Top = 15
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "none"
	}
}

// applyEnvOverrides lets secrets stay out of the YAML file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ADMIN_SECRET_HASH"); v != "" {
		c.Auth.AdminSecretHash = v
	}
	if v := os.Getenv("LEADERBOARD_SHEETS_CREDENTIALS"); v != "" {
		c.Leaderboard.CredentialsFile = v
	}
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case "anthropic":
			c.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "openai":
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "gemini":
			c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
