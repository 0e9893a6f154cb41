package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/joestump/group-blocks/internal/block"
)

type Config struct {
	HTTP struct {
		Addr string
	}
	DB struct {
		Driver string
		DSN    string
	}
	OIDC struct {
		Issuer       string
		ClientID     string
		ClientSecret string
		RedirectURL  string
	}
	Log struct {
		Level       string
		Development bool
	}
	AdminEmail      string
	SessionLifetime time.Duration
	InsecureCookies bool
	DefaultLocale   string
	Blocks          []block.ContentType
}

// Load reads config from environment (GB_ prefix) and optional group-blocks.yaml.
// It validates the settings every command needs; call RequireOIDC before
// serving.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("group-blocks")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional config file

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("session.lifetime", "720h")
	v.SetDefault("log.level", "info")
	v.SetDefault("i18n.default_locale", "en-US")

	cfg := &Config{}
	cfg.HTTP.Addr = v.GetString("http.addr")
	cfg.DB.Driver = v.GetString("db.driver")
	cfg.DB.DSN = v.GetString("db.dsn")
	cfg.OIDC.Issuer = v.GetString("oidc.issuer")
	cfg.OIDC.ClientID = v.GetString("oidc.client_id")
	cfg.OIDC.ClientSecret = v.GetString("oidc.client_secret")
	cfg.OIDC.RedirectURL = v.GetString("oidc.redirect_url")
	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.Development = v.GetBool("log.development")
	cfg.AdminEmail = v.GetString("admin_email")
	cfg.InsecureCookies = v.GetBool("insecure_cookies")
	cfg.DefaultLocale = v.GetString("i18n.default_locale")

	lifetime, err := time.ParseDuration(v.GetString("session.lifetime"))
	if err != nil {
		return nil, fmt.Errorf("invalid GB_SESSION_LIFETIME: %w", err)
	}
	cfg.SessionLifetime = lifetime

	if err := v.UnmarshalKey("blocks", &cfg.Blocks); err != nil {
		return nil, fmt.Errorf("invalid blocks: %w", err)
	}
	if len(cfg.Blocks) == 0 {
		cfg.Blocks = block.DefaultContentTypes()
	}
	for _, ct := range cfg.Blocks {
		if err := ct.Validate(); err != nil {
			return nil, fmt.Errorf("invalid blocks: %w", err)
		}
	}

	if cfg.DB.Driver == "" {
		return nil, fmt.Errorf("GB_DB_DRIVER is required (sqlite3, mysql, postgres)")
	}
	if cfg.DB.DSN == "" {
		return nil, fmt.Errorf("GB_DB_DSN is required")
	}

	return cfg, nil
}

// RequireOIDC reports the first missing OIDC setting.
func (c *Config) RequireOIDC() error {
	switch {
	case c.OIDC.Issuer == "":
		return fmt.Errorf("GB_OIDC_ISSUER is required")
	case c.OIDC.ClientID == "":
		return fmt.Errorf("GB_OIDC_CLIENT_ID is required")
	case c.OIDC.ClientSecret == "":
		return fmt.Errorf("GB_OIDC_CLIENT_SECRET is required")
	case c.OIDC.RedirectURL == "":
		return fmt.Errorf("GB_OIDC_REDIRECT_URL is required")
	}
	return nil
}
