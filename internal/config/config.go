package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Config represents runtime configuration for the service and the chat client.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Admin       AdminConfig               `json:"admin"`
	Chat        ChatConfig                `json:"chat"`
	Knowledge   KnowledgeConfig           `json:"knowledge"`
}

type BasicConfig struct {
	ServerAddress     string `json:"server_address"`
	UploadDir         string `json:"upload_dir"`
	MaxUploadMB       int    `json:"max_upload_mb"`
	AllowedOrigins    string `json:"allowed_origins"`
	TrustedProxies    string `json:"trusted_proxies"` // comma separated IPs or CIDRs; empty trusts none
	Provider          string `json:"provider"`
	MinWorkers        int    `json:"min_workers"`
	MaxWorkers        int    `json:"max_workers"`
	QueueSize         int    `json:"queue_size"`
	WorkerIdleTimeout int    `json:"worker_idle_timeout"` // minutes
	ChatRateLimit     int    `json:"chat_rate_limit"`     // requests per minute per client
	ContactRateLimit  int    `json:"contact_rate_limit"`  // requests per minute per client
	Debug             bool   `json:"debug"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

type AdminConfig struct {
	TokenTTLMinutes int    `json:"token_ttl_minutes"`
	SeedEmail       string `json:"seed_email"`
	SeedPassword    string `json:"seed_password"`
}

// ChatConfig is read by the terminal chat client.
type ChatConfig struct {
	Endpoint       string `json:"endpoint"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	Greeting       string `json:"greeting"`
	Fallback       string `json:"fallback"`
}

type KnowledgeConfig struct {
	Documents []string `json:"documents"`
}

const (
	DefaultServerAddress = ":8000"
	DefaultUploadDir     = "uploads"
	DefaultMaxUploadMB   = 5
	DefaultChatRate      = 15
	DefaultContactRate   = 5
	DefaultTokenTTL      = 60
	DefaultChatEndpoint  = "http://localhost:8000"
)

// providerKeyEnv maps a provider to the environment variable that may hold its key.
var providerKeyEnv = map[string]string{
	"openai": "OPENAI_API_KEY",
	"claude": "ANTHROPIC_API_KEY",
	"gemini": "GEMINI_API_KEY",
}

// Load reads configuration from the provided path (defaults to config.json).
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	// a .env beside the config may carry provider keys; real env wins
	_ = godotenv.Load(filepath.Join(filepath.Dir(absPath), ".env"))

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.applyDefaults()
	cfg.resolvePaths(filepath.Dir(absPath))
	return &cfg, nil
}

// Default returns a configuration usable without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	b := &c.BasicConfig
	if b.ServerAddress == "" {
		b.ServerAddress = DefaultServerAddress
	}
	if b.UploadDir == "" {
		b.UploadDir = DefaultUploadDir
	}
	if b.MaxUploadMB <= 0 {
		b.MaxUploadMB = DefaultMaxUploadMB
	}
	if b.Provider == "" {
		b.Provider = "openai"
	}
	if b.MinWorkers <= 0 {
		b.MinWorkers = 2
	}
	if b.MaxWorkers < b.MinWorkers {
		b.MaxWorkers = b.MinWorkers * 4
	}
	if b.QueueSize <= 0 {
		b.QueueSize = 64
	}
	if b.ChatRateLimit <= 0 {
		b.ChatRateLimit = DefaultChatRate
	}
	if b.ContactRateLimit <= 0 {
		b.ContactRateLimit = DefaultContactRate
	}
	if b.AllowedOrigins == "" {
		b.AllowedOrigins = "http://localhost:3000"
	}
	if c.Databases == nil {
		c.Databases = map[string]DatabaseConfig{}
	}
	if _, ok := c.Databases["sqlite3"]; !ok {
		c.Databases["sqlite3"] = DatabaseConfig{DSN: "portfolio.db"}
	}
	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}
	if c.Admin.TokenTTLMinutes <= 0 {
		c.Admin.TokenTTLMinutes = DefaultTokenTTL
	}
	if c.Chat.Endpoint == "" {
		c.Chat.Endpoint = DefaultChatEndpoint
	}
	if c.Chat.TimeoutSeconds <= 0 {
		c.Chat.TimeoutSeconds = 120
	}
}

// resolvePaths makes relative file locations relative to the config file.
func (c *Config) resolvePaths(base string) {
	if !filepath.IsAbs(c.BasicConfig.UploadDir) {
		c.BasicConfig.UploadDir = filepath.Join(base, c.BasicConfig.UploadDir)
	}
	if db, ok := c.Databases["sqlite3"]; ok && db.DSN != "" && db.DSN != ":memory:" &&
		!strings.HasPrefix(db.DSN, "file:") && !filepath.IsAbs(db.DSN) {
		db.DSN = filepath.Join(base, db.DSN)
		c.Databases["sqlite3"] = db
	}
	for i, doc := range c.Knowledge.Documents {
		if !filepath.IsAbs(doc) {
			c.Knowledge.Documents[i] = filepath.Join(base, doc)
		}
	}
}

// Provider returns the provider configuration with the API key falling back
// to the provider's conventional environment variable.
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	p, ok := c.Providers[name]
	if p.APIKey == "" {
		if env, known := providerKeyEnv[name]; known {
			p.APIKey = strings.TrimSpace(os.Getenv(env))
			ok = ok || p.APIKey != ""
		}
	}
	return p, ok
}

// AllowedOriginList splits the comma separated origin setting.
func (c *Config) AllowedOriginList() []string {
	return splitList(c.BasicConfig.AllowedOrigins)
}

// TrustedProxyList splits the comma separated proxy setting.
func (c *Config) TrustedProxyList() []string {
	return splitList(c.BasicConfig.TrustedProxies)
}

func splitList(value string) []string {
	var out []string
	for _, o := range strings.Split(value, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
