package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName         string
	AppEnv          string
	AppPort         string
	DatabasePath    string
	RedisURL        string
	NATSURL         string
	ChannelBase     string
	SessionSecret   string
	SessionTTL      time.Duration
	HashIterations  int
	OAuth           OAuthConfig
	AllowedDomain   string
	AdminStudentIDs []string
	StaffRole       string
	LoginRateLimit  int
	CORSOrigins     string
}

// OAuthConfig describes the federated identity provider.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Authority    string
	Tenant       string
	GraphURL     string
	Scopes       []string
	Timeout      time.Duration
	StateTTL     time.Duration
}

// Enabled reports whether federated login is configured.
func (o OAuthConfig) Enabled() bool {
	return strings.TrimSpace(o.ClientID) != ""
}

// PublicClient reports whether the token exchange runs without a client secret.
func (o OAuthConfig) PublicClient() bool {
	return strings.TrimSpace(o.ClientSecret) == ""
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("EXT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Extension Hours API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.path", "data/extension.db")
	v.SetDefault("channel.base", "extension")
	v.SetDefault("session.ttl", "8h")
	v.SetDefault("hash.iterations", 100000)
	v.SetDefault("oauth.authority", "https://login.microsoftonline.com")
	v.SetDefault("oauth.tenant", "common")
	v.SetDefault("oauth.redirect_uri", "http://localhost:8080/api/v1/auth/microsoft/callback")
	v.SetDefault("oauth.graph_url", "https://graph.microsoft.com/v1.0/me")
	v.SetDefault("oauth.scopes", "openid profile email User.Read")
	v.SetDefault("oauth.timeout", "10s")
	v.SetDefault("oauth.state_ttl", "10m")
	v.SetDefault("allowed.domain", "uvg.edu.gt")
	v.SetDefault("admin.student_ids", "25837")
	v.SetDefault("staff.role", "Department")
	v.SetDefault("login.rate_limit", 10)
	v.SetDefault("cors.origins", "*")

	sessionTTL, err := parseDuration(v, "session.ttl")
	if err != nil {
		return Config{}, err
	}
	oauthTimeout, err := parseDuration(v, "oauth.timeout")
	if err != nil {
		return Config{}, err
	}
	stateTTL, err := parseDuration(v, "oauth.state_ttl")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:        v.GetString("app.name"),
		AppEnv:         v.GetString("app.env"),
		AppPort:        v.GetString("app.port"),
		DatabasePath:   v.GetString("database.path"),
		RedisURL:       v.GetString("redis.url"),
		NATSURL:        v.GetString("nats.url"),
		ChannelBase:    v.GetString("channel.base"),
		SessionSecret:  v.GetString("session.secret"),
		SessionTTL:     sessionTTL,
		HashIterations: v.GetInt("hash.iterations"),
		OAuth: OAuthConfig{
			ClientID:     strings.TrimSpace(v.GetString("oauth.client_id")),
			ClientSecret: strings.TrimSpace(v.GetString("oauth.client_secret")),
			RedirectURI:  v.GetString("oauth.redirect_uri"),
			Authority:    strings.TrimRight(v.GetString("oauth.authority"), "/"),
			Tenant:       v.GetString("oauth.tenant"),
			GraphURL:     v.GetString("oauth.graph_url"),
			Scopes:       strings.Fields(v.GetString("oauth.scopes")),
			Timeout:      oauthTimeout,
			StateTTL:     stateTTL,
		},
		AllowedDomain:   strings.ToLower(strings.TrimSpace(v.GetString("allowed.domain"))),
		AdminStudentIDs: splitList(v.GetString("admin.student_ids")),
		StaffRole:       strings.TrimSpace(v.GetString("staff.role")),
		LoginRateLimit:  v.GetInt("login.rate_limit"),
		CORSOrigins:     strings.TrimSpace(v.GetString("cors.origins")),
	}

	if cfg.SessionSecret == "" {
		return Config{}, fmt.Errorf("session secret must be provided")
	}

	if cfg.AllowedDomain == "" {
		return Config{}, fmt.Errorf("allowed domain must not be empty")
	}

	if cfg.HashIterations <= 0 {
		cfg.HashIterations = 100000
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func splitList(input string) []string {
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
