package roomchat

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/putto11262002/roomchat/pkg/kv"
	"github.com/spf13/viper"
)

const (
	DevMode  = "dev"
	ProdMode = "prod"
)

type Config struct {
	// Port is the Port number to listen on. The default is 8080.
	Port int `validate:"required,port"`
	// Hostname is the Hostname to listen on. The default is 0.0.0.0.
	Hostname string `validate:"required"`
	// Mode is dev or prod. TLS settings are only applied in prod.
	Mode string `validate:"oneof=dev prod"`
	Log  struct {
		// Level is one of debug, info, warn or error.
		Level string `validate:"oneof=debug info warn error"`
	}
	Auth struct {
		// Secret is the Secret key used to sign session tokens.
		// The secret must be a base64 encoded string. The default is a random 32 byte string.
		Secret Base64Encoded `validate:"required"`
		// TTL is how long a session token is valid.
		TTL time.Duration `validate:"required"`
	}
	Storage struct {
		// Driver is sqlite, redis or memory.
		Driver string `validate:"oneof=sqlite redis memory"`
		SQLite struct {
			File string
		}
		Redis struct {
			Addr string
			DB   int `validate:"min=0"`
		}
	}
	// AllowedOrigins is a list of origins that are allowed to connect to the server.
	// The default is ["*"].
	AllowedOrigins []string
	TLS            struct {
		Crt string
		Key string
	}
	Bot struct {
		Enabled bool
	}
	Session struct {
		// Idle is how long an unused session stays in memory.
		Idle time.Duration `validate:"required"`
		// Sweep is how often idle and expired sessions are evicted.
		Sweep time.Duration `validate:"required"`
	}
	valid bool
}

type Base64Encoded []byte

func (b *Base64Encoded) UnmarshalText(text []byte) error {
	dec, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("base64 decode: %w", err)
	}
	*b = dec
	return nil
}

// LoadConfig loads the configuration from config.yaml, a .env file and environment variables.
// Any invalid configuration will not be loaded, and the error wil be cought in the validation step.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// generate a random secret key
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	setDefaults(v, base64.StdEncoding.EncodeToString(secret))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config,
		viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(",")),
		),
	); err != nil {
		// defer error to validation step
		return config, nil
	}
	return config, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, secret string) {
	v.SetDefault("port", 8080)
	v.SetDefault("hostname", "0.0.0.0")
	v.SetDefault("mode", DevMode)
	v.SetDefault("log.level", "info")
	v.SetDefault("auth.secret", secret)
	v.SetDefault("auth.ttl", "24h")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite.file", "./roomchat.db")
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("allowedorigins", []string{"*"})
	v.SetDefault("tls.crt", "")
	v.SetDefault("tls.key", "")
	v.SetDefault("bot.enabled", true)
	v.SetDefault("session.idle", "30m")
	v.SetDefault("session.sweep", "1m")
}

func (c *Config) Validate() error {
	if c.valid {
		return nil
	}
	err := validate.Struct(c)
	if err != nil {
		return err
	}
	switch {
	case c.Storage.Driver == kv.DriverSQLite && c.Storage.SQLite.File == "":
		return errors.New("storage.sqlite.file is required for the sqlite driver")
	case c.Storage.Driver == kv.DriverRedis && c.Storage.Redis.Addr == "":
		return errors.New("storage.redis.addr is required for the redis driver")
	}
	c.valid = true
	return nil
}

func FormatValidationErrors(err error) string {
	errors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	trans, _ := uniTrans.GetTranslator("en")
	translated := errors.Translate(trans)

	var sb strings.Builder
	for _, k := range slices.Sorted(maps.Keys(translated)) {
		sb.WriteString(translated[k])
		sb.WriteString("\n")
	}
	return sb.String()
}

func (c *Config) StorageConfig() kv.Config {
	return kv.Config{
		Driver:     c.Storage.Driver,
		SQLiteFile: c.Storage.SQLite.File,
		RedisAddr:  c.Storage.Redis.Addr,
		RedisDB:    c.Storage.Redis.DB,
	}
}

func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
