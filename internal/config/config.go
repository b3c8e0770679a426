package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rl1809/aircraft-factory/internal/core/service"
)

const (
	DefaultHTTPAddr  = ":8080"
	DefaultGRPCAddr  = ":50051"
	DefaultMySQLDSN  = "root:root@tcp(localhost:3306)/aircraft?parseTime=true"
	DefaultRedisAddr = "localhost:6379"

	DefaultAccessTTL  = 7 * 24 * time.Hour
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

type Config struct {
	HTTPAddr string         `yaml:"http_addr"`
	GRPCAddr string         `yaml:"grpc_addr"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`

	// Superuser and Users are created by the seed command.
	Superuser service.SeedUser   `yaml:"superuser"`
	Users     []service.SeedUser `yaml:"users"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig selects the cache. An empty Addr uses the in-process cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	Secret     string        `yaml:"secret"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() Config {
	return Config{
		HTTPAddr: DefaultHTTPAddr,
		GRPCAddr: DefaultGRPCAddr,
		Database: DatabaseConfig{
			Driver:          "mysql",
			DSN:             DefaultMySQLDSN,
			MaxOpenConns:    50,
			MaxIdleConns:    10,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{Addr: DefaultRedisAddr},
		Auth: AuthConfig{
			AccessTTL:  DefaultAccessTTL,
			RefreshTTL: DefaultRefreshTTL,
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Superuser: service.SeedUser{
			FirstName: "Super",
			LastName:  "User",
			Team:      service.ProducingTeamName("Gövde"),
			Superuser: true,
		},
		Users: DefaultUsers(),
	}
}

// DefaultUsers returns one demo account per seeded team. The assembly
// account's credentials come from the environment.
func DefaultUsers() []service.SeedUser {
	users := []service.SeedUser{{
		FirstName: "Montaj",
		LastName:  "Kullanıcısı",
		Team:      service.AssemblyTeamName,
	}}
	for _, pt := range []struct{ name, slug string }{
		{"Kanat", "kanat"}, {"Gövde", "govde"}, {"Aviyonik", "aviyonik"}, {"Kuyruk", "kuyruk"},
	} {
		users = append(users, service.SeedUser{
			Username:  pt.slug + "_kullanici",
			Email:     pt.slug + "@mail.com",
			Password:  pt.slug + "123",
			FirstName: pt.name,
			LastName:  "Kullanıcısı",
			Team:      service.ProducingTeamName(pt.name),
		})
	}
	return users
}

// Load reads defaults, then the YAML file at path when non-empty, then
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}

	set(&c.HTTPAddr, "HTTP_ADDR")
	set(&c.GRPCAddr, "GRPC_ADDR")
	set(&c.Database.Driver, "DB_DRIVER")
	set(&c.Database.DSN, "DB_DSN", "MYSQL_DSN")
	set(&c.Redis.Addr, "REDIS_ADDR")
	set(&c.Auth.Secret, "JWT_SECRET")
	set(&c.Log.Level, "LOG_LEVEL")
	set(&c.Log.Format, "LOG_FORMAT")

	set(&c.Superuser.Username, "SUPERUSER_USERNAME")
	set(&c.Superuser.Email, "SUPERUSER_EMAIL")
	set(&c.Superuser.Password, "SUPERUSER_PASSWORD")

	for i := range c.Users {
		if c.Users[i].Team != service.AssemblyTeamName {
			continue
		}
		set(&c.Users[i].Username, "DEFAULT_ASSEMBLY_USER_USERNAME")
		set(&c.Users[i].Email, "DEFAULT_ASSEMBLY_USER_EMAIL")
		set(&c.Users[i].Password, "DEFAULT_ASSEMBLY_USER_PASSWORD")
	}
}

var validDrivers = []string{"mysql", "postgres", "sqlite"}

func (c Config) Validate() error {
	var errs []error
	driver := strings.ToLower(c.Database.Driver)
	known := false
	for _, d := range validDrivers {
		known = known || d == driver
	}
	if !known {
		errs = append(errs, fmt.Errorf("database.driver must be one of %s, got %q", strings.Join(validDrivers, ", "), c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.Auth.Secret == "" {
		errs = append(errs, errors.New("auth.secret is required (set JWT_SECRET)"))
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		errs = append(errs, errors.New("auth token lifetimes must be positive"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// SeedUsers returns the superuser followed by the default users.
func (c Config) SeedUsers() []service.SeedUser {
	return append([]service.SeedUser{c.Superuser}, c.Users...)
}
