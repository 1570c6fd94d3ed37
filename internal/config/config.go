package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
		// BaseURL pública del portal (para armar el callback del IdP).
		BaseURL string `yaml:"base_url"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Storage struct {
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Auth struct {
		// RequiredProviders: set fijo de proveedores que deben estar vinculados
		// para considerar la sesión completamente autenticada.
		RequiredProviders []string `yaml:"required_providers"`

		LoginPath       string `yaml:"login_path"`
		CompletePath    string `yaml:"complete_path"`
		DefaultRedirect string `yaml:"default_redirect"`

		Session struct {
			CookieName string `yaml:"cookie_name"`
			SameSite   string `yaml:"samesite"`
			Secure     bool   `yaml:"secure"`
		} `yaml:"session"`

		Transaction struct {
			CookieName string        `yaml:"cookie_name"`
			TTL        time.Duration `yaml:"ttl"`
		} `yaml:"transaction"`
	} `yaml:"auth"`

	Rate struct {
		Enabled bool `yaml:"enabled"`

		Start struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"start"`

		Callback struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"callback"`

		Tipline struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"tipline"`
	} `yaml:"rate"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"` // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	} `yaml:"smtp"`

	Tipline struct {
		NotifyTo string `yaml:"notify_to"`
	} `yaml:"tipline"`
}

// Load lee el YAML, aplica defaults y overrides de entorno.
func Load(path string) (*Config, error) {
	var c Config

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.BaseURL == "" {
		c.App.BaseURL = "http://localhost:8080"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "10m"
	}
	if len(c.Auth.RequiredProviders) == 0 {
		c.Auth.RequiredProviders = []string{"discord", "roblox"}
	}
	if c.Auth.LoginPath == "" {
		c.Auth.LoginPath = "/auth/login"
	}
	if c.Auth.CompletePath == "" {
		c.Auth.CompletePath = "/auth/complete"
	}
	if c.Auth.DefaultRedirect == "" {
		c.Auth.DefaultRedirect = "/profile"
	}
	if c.Auth.Session.CookieName == "" {
		c.Auth.Session.CookieName = "portal_session"
	}
	if c.Auth.Session.SameSite == "" {
		c.Auth.Session.SameSite = "Lax"
	}
	if c.Auth.Transaction.CookieName == "" {
		c.Auth.Transaction.CookieName = "portal_pkce"
	}
	if c.Auth.Transaction.TTL == 0 {
		c.Auth.Transaction.TTL = 5 * time.Minute
	}
	if c.Rate.Start.Limit == 0 {
		c.Rate.Start.Limit = 20
	}
	if c.Rate.Start.Window == "" {
		c.Rate.Start.Window = "1m"
	}
	if c.Rate.Callback.Limit == 0 {
		c.Rate.Callback.Limit = 20
	}
	if c.Rate.Callback.Window == "" {
		c.Rate.Callback.Window = "1m"
	}
	if c.Rate.Tipline.Limit == 0 {
		c.Rate.Tipline.Limit = 5
	}
	if c.Rate.Tipline.Window == "" {
		c.Rate.Tipline.Window = "10m"
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}

	// Overrides por entorno (el YAML nunca lleva secretos).
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = v
	}
	if v, ok := getEnvStr("APP_BASE_URL"); ok {
		c.App.BaseURL = v
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("DATABASE_URL"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Kind = "redis"
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if c.App.Env == "prod" {
		c.Auth.Session.Secure = true
	}

	// validate string durations
	if c.Storage.Postgres.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(c.Storage.Postgres.ConnMaxLifetime); err != nil {
			return nil, err
		}
	}
	for _, w := range []string{c.Rate.Start.Window, c.Rate.Callback.Window, c.Rate.Tipline.Window, c.Cache.Memory.DefaultTTL} {
		if _, err := time.ParseDuration(w); err != nil {
			return nil, err
		}
	}

	return &c, nil
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
