package committee

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/wa-psh/committee/blob"
)

// devJWTSecret is only used when DevMode is set and no secret is configured.
const devJWTSecret = "psh-advisory-committee-dev-secret"

// Config holds all configuration for the committee site backend.
type Config struct {
	Name        string `env:"SITE_NAME"`        // default "PSH Advisory Committee"
	URL         string `env:"SITE_URL"`         // canonical URL, default "http://localhost:3000"
	Description string `env:"SITE_DESCRIPTION"` // RSS channel description

	Addr         string `env:"ADDR"`          // default ":3000"
	DocumentsDir string `env:"DOCUMENTS_DIR"` // static files for seed documents, default "public/documents"

	JWTSecret         string        `env:"JWT_SECRET"`
	TokenTTL          time.Duration `env:"TOKEN_TTL"` // default 24h
	AdminUsername     string        `env:"ADMIN_USERNAME"`
	AdminPasswordHash string        `env:"ADMIN_PASSWORD_HASH"`
	BcryptCost        int           `env:"BCRYPT_COST"`

	BlobBackend string        `env:"BLOB_BACKEND"` // http, sqlite or redis
	BlobToken   string        `env:"BLOB_READ_WRITE_TOKEN"`
	BlobBaseURL string        `env:"BLOB_BASE_URL"`
	BlobTimeout time.Duration `env:"BLOB_TIMEOUT"`
	BlobSQLite  string        `env:"BLOB_SQLITE_PATH"`
	RedisURL    string        `env:"REDIS_URL"`
	RedisPrefix string        `env:"REDIS_PREFIX"`

	ContactLimit  int           `env:"CONTACT_LIMIT"`
	ContactWindow time.Duration `env:"CONTACT_WINDOW"`
	LoginLimit    int           `env:"LOGIN_LIMIT"`
	LoginWindow   time.Duration `env:"LOGIN_WINDOW"`
	APIRate       float64       `env:"API_RATE"` // requests per second per IP
	APIBurst      int           `env:"API_BURST"`
	CacheTTL      time.Duration `env:"CACHE_TTL"` // public list cache

	DevMode bool `env:"DEV_MODE"`
	Debug   bool `env:"DEBUG"` // expose internal error messages
}

// LoadConfig reads Config from the environment and applies defaults.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("committee: parse env: %w", err)
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "PSH Advisory Committee"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Description == "" {
		c.Description = "News and events from the Washington State Permanent Supportive Housing Advisory Committee"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DocumentsDir == "" {
		c.DocumentsDir = "public/documents"
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 24 * time.Hour
	}
	if c.AdminUsername == "" {
		c.AdminUsername = "admin"
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 10
	}
	if c.BlobBackend == "" {
		c.BlobBackend = blob.BackendHTTP
	}
	if c.BlobTimeout == 0 {
		c.BlobTimeout = 15 * time.Second
	}
	if c.ContactLimit == 0 {
		c.ContactLimit = 5
	}
	if c.ContactWindow == 0 {
		c.ContactWindow = 15 * time.Minute
	}
	if c.LoginLimit == 0 {
		c.LoginLimit = 10
	}
	if c.LoginWindow == 0 {
		c.LoginWindow = 15 * time.Minute
	}
	if c.APIRate == 0 {
		c.APIRate = 20
	}
	if c.APIBurst == 0 {
		c.APIBurst = 40
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = time.Minute
	}
}

// validate reports configuration the server cannot start with. A missing
// JWT secret is only tolerated in dev mode, where devJWTSecret is used.
func (c *Config) validate() error {
	if c.JWTSecret == "" && !c.DevMode {
		return errors.New("committee: JWT_SECRET is required (set DEV_MODE=true to use a development secret)")
	}
	if c.ContactLimit < 0 || c.LoginLimit < 0 {
		return errors.New("committee: rate limits must not be negative")
	}
	return nil
}

// secret returns the token signing secret and whether it is the dev fallback.
func (c *Config) secret() (string, bool) {
	if c.JWTSecret != "" {
		return c.JWTSecret, false
	}
	return devJWTSecret, true
}

func (c *Config) blobConfig() blob.Config {
	return blob.Config{
		Backend:     c.BlobBackend,
		Token:       c.BlobToken,
		BaseURL:     c.BlobBaseURL,
		Timeout:     c.BlobTimeout,
		SQLitePath:  c.BlobSQLite,
		RedisURL:    c.RedisURL,
		RedisPrefix: c.RedisPrefix,
	}
}
