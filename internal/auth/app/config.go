package app

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/portalauth/pkg/jwtx"
	"github.com/caarlos0/env/v11"
)

// Revocation store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Config struct {
	Access  SigningConfig `envPrefix:"AUTH_ACCESS_"`
	Refresh SigningConfig `envPrefix:"AUTH_REFRESH_"`

	Issuer   string        `env:"AUTH_ISSUER" envDefault:"portal-auth"`
	Audience []string      `env:"AUTH_AUDIENCE" envDefault:"portal" envSeparator:","`
	Leeway   time.Duration `env:"AUTH_LEEWAY" envDefault:"0s"`

	PepperFile    string `env:"AUTH_PEPPER_FILE" envDefault:"pepper"`
	DirectoryFile string `env:"DIRECTORY_FILE" envDefault:"directory.yaml"`

	Revocation RevocationConfig `envPrefix:"REVOCATION_"`
	Cleanup    CleanupConfig    `envPrefix:"CLEANUP_"`
	Cookie     CookieConfig     `envPrefix:"COOKIE_"`

	Env                 string        `env:"ENV" envDefault:"dev"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat           string        `env:"LOG_FORMAT" envDefault:"json"`
	Port                int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
}

// SigningConfig describes the key for one token type. Exactly one of Secret
// (HMAC) or KeyFile (PEM private key) is set.
type SigningConfig struct {
	Secret    string        `env:"SECRET"`
	KeyFile   string        `env:"KEY_FILE"`
	Algorithm string        `env:"ALGORITHM" envDefault:"HS256"`
	TTL       time.Duration `env:"TTL"`

	// Retired keys that still verify tokens minted before a rotation. They
	// must use Algorithm.
	PreviousSecrets  []string `env:"PREVIOUS_SECRETS" envSeparator:","`
	PreviousKeyFiles []string `env:"PREVIOUS_KEY_FILES" envSeparator:","`
}

type RevocationConfig struct {
	Driver        string `env:"DRIVER" envDefault:"memory"`
	SQLiteFile    string `env:"SQLITE_FILE" envDefault:"revocations.db"`
	PostgresDSN   string `env:"POSTGRES_DSN"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

type CleanupConfig struct {
	Interval  time.Duration `env:"INTERVAL" envDefault:"1h"`
	Retention time.Duration `env:"RETENTION" envDefault:"24h"`
}

type CookieConfig struct {
	Secure      bool   `env:"SECURE" envDefault:"true"`
	SameSite    string `env:"SAMESITE" envDefault:"strict"`
	Domain      string `env:"DOMAIN"`
	RefreshPath string `env:"REFRESH_PATH" envDefault:"/v1/auth"`
}

// LoadConfig reads the process environment and validates the result. Any
// error here must stop the process before it serves a request.
func LoadConfig() (Config, error) {
	return parseConfig(env.Options{})
}

// LoadConfigFrom is LoadConfig over an explicit environment.
func LoadConfigFrom(environ map[string]string) (Config, error) {
	return parseConfig(env.Options{Environment: environ})
}

func parseConfig(opts env.Options) (Config, error) {
	// Per-type TTL defaults differ, so they are seeded before parsing; env
	// leaves fields alone when the variable is unset.
	cfg := Config{
		Access:  SigningConfig{TTL: jwtx.DefaultAccessTokenTTL},
		Refresh: SigningConfig{TTL: jwtx.DefaultRefreshTokenTTL},
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error

	errs = append(errs, c.Access.validate("AUTH_ACCESS_")...)
	errs = append(errs, c.Refresh.validate("AUTH_REFRESH_")...)

	if c.Access.Secret != "" && c.Access.Secret == c.Refresh.Secret {
		errs = append(errs, errors.New("AUTH_ACCESS_SECRET and AUTH_REFRESH_SECRET must differ"))
	}
	if c.Access.KeyFile != "" && c.Access.KeyFile == c.Refresh.KeyFile {
		errs = append(errs, errors.New("AUTH_ACCESS_KEY_FILE and AUTH_REFRESH_KEY_FILE must differ"))
	}
	if c.Access.TTL > 0 && c.Access.TTL >= c.Refresh.TTL {
		errs = append(errs, errors.New("AUTH_ACCESS_TTL must be shorter than AUTH_REFRESH_TTL"))
	}
	if c.Leeway < 0 {
		errs = append(errs, errors.New("AUTH_LEEWAY must not be negative"))
	}

	switch c.Revocation.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Revocation.SQLiteFile == "" {
			errs = append(errs, errors.New("REVOCATION_SQLITE_FILE is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.Revocation.PostgresDSN == "" {
			errs = append(errs, errors.New("REVOCATION_POSTGRES_DSN is required for the postgres driver"))
		}
	case DriverRedis:
		if c.Revocation.RedisAddr == "" {
			errs = append(errs, errors.New("REVOCATION_REDIS_ADDR is required for the redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("REVOCATION_DRIVER %q is not one of memory, sqlite, postgres, redis", c.Revocation.Driver))
	}

	if c.Cleanup.Interval <= 0 {
		errs = append(errs, errors.New("CLEANUP_INTERVAL must be positive"))
	}
	if c.Cleanup.Retention <= 0 {
		errs = append(errs, errors.New("CLEANUP_RETENTION must be positive"))
	}

	sameSite := strings.ToLower(c.Cookie.SameSite)
	if !slices.Contains([]string{"strict", "lax", "none"}, sameSite) {
		errs = append(errs, fmt.Errorf("COOKIE_SAMESITE %q is not one of strict, lax, none", c.Cookie.SameSite))
	}
	if sameSite == "none" && !c.Cookie.Secure {
		errs = append(errs, errors.New("COOKIE_SAMESITE=none requires COOKIE_SECURE=true"))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d is out of range", c.Port))
	}
	if c.DirectoryFile == "" {
		errs = append(errs, errors.New("DIRECTORY_FILE is required"))
	}

	return errors.Join(errs...)
}

func (s SigningConfig) validate(prefix string) []error {
	var errs []error

	switch {
	case s.Secret == "" && s.KeyFile == "":
		errs = append(errs, fmt.Errorf("one of %sSECRET or %sKEY_FILE is required", prefix, prefix))
	case s.Secret != "" && s.KeyFile != "":
		errs = append(errs, fmt.Errorf("%sSECRET and %sKEY_FILE are mutually exclusive", prefix, prefix))
	}

	supported := []string{
		jwtx.AlgorithmHS256, jwtx.AlgorithmHS384, jwtx.AlgorithmHS512,
		jwtx.AlgorithmRS256, jwtx.AlgorithmES256, jwtx.AlgorithmEdDSA,
	}
	switch {
	case !slices.Contains(supported, s.Algorithm):
		errs = append(errs, fmt.Errorf("%sALGORITHM %q is not supported", prefix, s.Algorithm))
	case jwtx.IsSymmetric(s.Algorithm) && s.KeyFile != "":
		errs = append(errs, fmt.Errorf("%sALGORITHM %s needs %sSECRET, not a key file", prefix, s.Algorithm, prefix))
	case !jwtx.IsSymmetric(s.Algorithm) && s.Secret != "":
		errs = append(errs, fmt.Errorf("%sALGORITHM %s needs %sKEY_FILE, not a secret", prefix, s.Algorithm, prefix))
	}

	if s.TTL <= 0 {
		errs = append(errs, fmt.Errorf("%sTTL must be positive", prefix))
	}
	return errs
}
