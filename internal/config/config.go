package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds everything the server needs at startup.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Mail       MailConfig       `yaml:"mail"`
	Cloudinary CloudinaryConfig `yaml:"cloudinary"`
}

type ServerConfig struct {
	Port        string   `yaml:"port"`
	Mode        string   `yaml:"mode"` // debug, release, test
	SiteURL     string   `yaml:"site_url"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // postgres or sqlite
	DSN    string `yaml:"dsn"`
}

type AuthConfig struct {
	SessionSecret      string `yaml:"session_secret"`
	JWTSecret          string `yaml:"jwt_secret"`
	GoogleClientID     string `yaml:"google_client_id"`
	GoogleClientSecret string `yaml:"google_client_secret"`
}

type MailConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Enabled reports whether every SMTP setting is present.
func (m MailConfig) Enabled() bool {
	return m.Host != "" && m.Port != "" && m.Username != "" && m.Password != "" && m.From != ""
}

type CloudinaryConfig struct {
	CloudName string `yaml:"cloud_name"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Folder    string `yaml:"folder"`
}

func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

const (
	defaultSessionSecret = "secret_key_change_me"
	defaultJWTSecret     = "jwt_secret_change_me"
)

// Default returns a config suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			Mode:        "debug",
			SiteURL:     "http://localhost:8080",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{
			Driver: "postgres",
			DSN:    "host=localhost user=postgres password=postgres dbname=growjournal port=5432 sslmode=disable TimeZone=UTC",
		},
		Auth: AuthConfig{
			SessionSecret: defaultSessionSecret,
			JWTSecret:     defaultJWTSecret,
		},
		Cloudinary: CloudinaryConfig{
			Folder: "growjournal",
		},
	}
}

// Load builds the config from defaults, an optional YAML file, .env and the environment,
// in that order of precedence (later wins).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, reading env vars from system")
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.Mode, "GIN_MODE")
	setString(&c.Server.SiteURL, "SITE_URL")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}

	setString(&c.Database.Driver, "DATABASE_DRIVER")
	setString(&c.Database.DSN, "DATABASE_URL")

	setString(&c.Auth.SessionSecret, "SESSION_SECRET")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Auth.GoogleClientID, "GOOGLE_CLIENT_ID")
	setString(&c.Auth.GoogleClientSecret, "GOOGLE_CLIENT_SECRET")

	setString(&c.Mail.Host, "SMTP_HOST")
	setString(&c.Mail.Port, "SMTP_PORT")
	setString(&c.Mail.Username, "SMTP_USER")
	setString(&c.Mail.Password, "SMTP_PASS")
	setString(&c.Mail.From, "SMTP_FROM")

	setString(&c.Cloudinary.CloudName, "CLOUDINARY_CLOUD_NAME")
	setString(&c.Cloudinary.APIKey, "CLOUDINARY_API_KEY")
	setString(&c.Cloudinary.APISecret, "CLOUDINARY_API_SECRET")
	setString(&c.Cloudinary.Folder, "CLOUDINARY_FOLDER")
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is empty")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid port %q", c.Server.Port)
	}
	if c.Auth.SessionSecret == "" || c.Auth.JWTSecret == "" {
		return fmt.Errorf("session and jwt secrets must be set")
	}
	if c.Server.Mode == "release" &&
		(c.Auth.SessionSecret == defaultSessionSecret || c.Auth.JWTSecret == defaultJWTSecret) {
		return fmt.Errorf("SESSION_SECRET and JWT_SECRET must be changed in release mode")
	}
	c.Server.SiteURL = strings.TrimSuffix(c.Server.SiteURL, "/")
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
