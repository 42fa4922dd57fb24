// Package config loads server configuration from built-in defaults, an
// optional YAML file and RECIPE_* environment variables, in that order of
// precedence (later wins).
//
// Example file:
//
//	http:
//	  port: 8080
//	  allowedOrigin: http://localhost:5173
//	auth:
//	  jwtSecret: change-me-to-something-long
//	storage:
//	  driver: bolt
//	  path: data/recipes.bolt
//
// Environment variables map onto the same keys with underscores between
// segments: RECIPE_AUTH_JWTSECRET, RECIPE_HTTP_PORT, RECIPE_STORAGE_DRIVER.
package config

import (
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	// EnvPrefix marks the environment variables read by Load.
	EnvPrefix = "RECIPE_"
	// EnvConfigPath names the YAML file when no path is passed to Load.
	EnvConfigPath = EnvPrefix + "CONFIG"

	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"

	minSecretLength = 16
)

type Config struct {
	HTTP    HTTP    `json:"http" yaml:"http"`
	Auth    Auth    `json:"auth" yaml:"auth"`
	Storage Storage `json:"storage" yaml:"storage"`
	Log     Log     `json:"log" yaml:"log"`
}

type HTTP struct {
	Port          int    `json:"port" yaml:"port"`
	AllowedOrigin string `json:"allowedOrigin" yaml:"allowedOrigin"`
	Timeouts      struct {
		Read     time.Duration `json:"read" yaml:"read"`
		Write    time.Duration `json:"write" yaml:"write"`
		Idle     time.Duration `json:"idle" yaml:"idle"`
		Shutdown time.Duration `json:"shutdown" yaml:"shutdown"`
	} `json:"timeouts" yaml:"timeouts"`
}

// Auth holds the token signing secret and the bcrypt work factor. The secret
// has no default: a server must be given one.
type Auth struct {
	JWTSecret  string `json:"jwtSecret" yaml:"jwtSecret"`
	BcryptCost int    `json:"bcryptCost" yaml:"bcryptCost"`
}

// Storage selects the document store: "sqlite" (Path is the database file,
// ":memory:" allowed) or "bolt" (Path is the bbolt file).
type Storage struct {
	Driver string `json:"driver" yaml:"driver"`
	Path   string `json:"path" yaml:"path"`
}

type Log struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "text" or "json"
}

// defaults is the lowest-precedence layer. Its keys also give environment
// variables their camelCase spelling (RECIPE_HTTP_ALLOWEDORIGIN → http.allowedOrigin).
func defaults() map[string]any {
	return map[string]any{
		"http": map[string]any{
			"port":          8080,
			"allowedOrigin": "http://localhost:5173",
			"timeouts": map[string]any{
				"read":     15 * time.Second,
				"write":    15 * time.Second,
				"idle":     60 * time.Second,
				"shutdown": 30 * time.Second,
			},
		},
		"auth": map[string]any{
			"jwtSecret":  "",
			"bcryptCost": 12,
		},
		"storage": map[string]any{
			"driver": DriverSQLite,
			"path":   "data/recipes.db",
		},
		"log": map[string]any{
			"level":  "info",
			"format": "text",
		},
	}
}

// Load builds the configuration. path names a YAML file; when empty, the file
// named by RECIPE_CONFIG is used, and when that is unset too, no file is read.
// A named file that does not exist is an error.
//
// Load does not validate; call Validate on the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "load defaults failed")
	}

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrapf(err, "config file %s", path)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "read config %s failed", path)
		}
	}

	existing := k.Raw()
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.TrimPrefix(key, EnvPrefix)
			if key == "CONFIG" {
				return "", nil
			}
			return canonicalizeEnvKey(key, existing), value
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	cfg := new(Config)
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrap(err, "unmarshal config failed")
	}

	return cfg, nil
}

// Validate reports the first setting that would stop the server from working.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < minSecretLength {
		return errors.Errorf("auth.jwtSecret must be at least %d characters (set %sAUTH_JWTSECRET)", minSecretLength, EnvPrefix)
	}
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return errors.Errorf("http.port %d out of range", c.HTTP.Port)
	}
	switch c.Storage.Driver {
	case DriverSQLite, DriverBolt:
	default:
		return errors.Errorf("storage.driver %q unknown (want %q or %q)", c.Storage.Driver, DriverSQLite, DriverBolt)
	}
	if c.Storage.Path == "" {
		return errors.New("storage.path must not be empty")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return errors.Errorf("auth.bcryptCost %d out of range [%d, %d]", c.Auth.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}

// canonicalizeEnvKey turns AUTH_JWTSECRET into auth.jwtSecret by matching each
// underscore-separated segment against the keys already loaded. Segments with
// no match are lower-cased as they are.
func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}
		child, _ := value.(map[string]any)
		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
