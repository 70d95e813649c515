package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        string   `yaml:"port"`
		PublicURL   string   `yaml:"publicURL"`
		CORSOrigins []string `yaml:"corsOrigins"`
	} `yaml:"server"`
	Auth struct {
		JWTSecret string `yaml:"jwtSecret"`
		Issuer    string `yaml:"issuer"`
		TokenTTL  string `yaml:"tokenTTL"`
	} `yaml:"auth"`
	Store struct {
		Driver string `yaml:"driver"` // memory|postgres|mongo
	} `yaml:"store"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Quiz struct {
		TTL          string `yaml:"ttl"`
		HistoryLimit int    `yaml:"historyLimit"`
	} `yaml:"quiz"`
	LLM struct {
		APIKey      string  `yaml:"apiKey"`
		BaseURL     string  `yaml:"baseURL"`
		Model       string  `yaml:"model"`
		Temperature float32 `yaml:"temperature"`
		MaxTokens   int     `yaml:"maxTokens"`
		Timeout     string  `yaml:"timeout"`
	} `yaml:"llm"`
	OCR struct {
		BaseURL string `yaml:"baseURL"`
		Timeout string `yaml:"timeout"`
	} `yaml:"ocr"`
	Uploads struct {
		Driver   string `yaml:"driver"` // fs|minio
		Dir      string `yaml:"dir"`
		MaxBytes int64  `yaml:"maxBytes"`
	} `yaml:"uploads"`
	Minio struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"accessKey"`
		SecretKey string `yaml:"secretKey"`
		Bucket    string `yaml:"bucket"`
		UseSSL    bool   `yaml:"useSSL"`
		Region    string `yaml:"region"`
		PublicURL string `yaml:"publicURL"`
	} `yaml:"minio"`
	Events struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"events"`
}

// ErrJWTSecretRequired is returned when no token signing secret is configured.
var ErrJWTSecretRequired = errors.New("auth.jwtSecret / JWT_SECRET is required")

// RequireJWTSecret fails when tokens would be verified without a configured secret.
func (c Config) RequireJWTSecret() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return ErrJWTSecretRequired
	}
	return nil
}

// Load reads YAML config from path, then applies .env and environment
// overrides. A missing file leaves the defaults in place.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// Default is the configuration used when nothing else is set.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Server.PublicURL = "http://localhost:8080"
	cfg.Server.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	cfg.Auth.Issuer = "mindvault"
	cfg.Auth.TokenTTL = "24h"
	cfg.Store.Driver = "memory"
	cfg.Mongo.Database = "mindvault"
	cfg.Redis.TTL = "2h"
	cfg.Quiz.TTL = "10m"
	cfg.Quiz.HistoryLimit = 20
	cfg.LLM.Model = "gpt-4o-mini"
	cfg.LLM.Temperature = 0.7
	cfg.LLM.MaxTokens = 500
	cfg.LLM.Timeout = "30s"
	cfg.OCR.BaseURL = "http://localhost:8000"
	cfg.OCR.Timeout = "30s"
	cfg.Uploads.Driver = "fs"
	cfg.Uploads.Dir = "./uploads"
	cfg.Uploads.MaxBytes = 10 << 20
	cfg.Minio.Bucket = "mindvault-uploads"
	cfg.Events.Exchange = "mindvault.events"
	return cfg
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.PublicURL, "PUBLIC_URL")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Store.Driver, "STORE_DRIVER")
	setString(&cfg.Postgres.URL, "POSTGRES_URL")
	setString(&cfg.Mongo.URI, "MONGO_URI")
	setString(&cfg.Mongo.Database, "MONGO_DATABASE")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	setString(&cfg.LLM.BaseURL, "OPENAI_BASE_URL")
	setString(&cfg.LLM.Model, "OPENAI_MODEL")
	setString(&cfg.OCR.BaseURL, "OCR_SERVICE_URL")
	setString(&cfg.Uploads.Driver, "UPLOADS_DRIVER")
	setString(&cfg.Uploads.Dir, "UPLOADS_DIR")
	setString(&cfg.Minio.Endpoint, "MINIO_ENDPOINT")
	setString(&cfg.Minio.AccessKey, "MINIO_ACCESS_KEY")
	setString(&cfg.Minio.SecretKey, "MINIO_SECRET_KEY")
	setString(&cfg.Minio.Bucket, "MINIO_BUCKET")
	setString(&cfg.Minio.Region, "MINIO_REGION")
	setString(&cfg.Minio.PublicURL, "MINIO_PUBLIC_URL")
	setString(&cfg.Events.URL, "RABBITMQ_URI")
	if v, err := strconv.ParseBool(os.Getenv("MINIO_USE_SSL")); err == nil {
		cfg.Minio.UseSSL = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitCSV(v)
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
