package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default configuration file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port          string `yaml:"port"`
	LogLevel      string `yaml:"logLevel"`
	DatabaseURL   string `yaml:"databaseURL"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	SessionTTL    string `yaml:"sessionTTL"`
	JWTSecret     string `yaml:"jwtSecret"`

	QRDir         string `yaml:"qrDir"`
	PDFDir        string `yaml:"pdfDir"`
	VerifyBaseURL string `yaml:"verifyBaseURL"`

	SummarizerProvider       string `yaml:"summarizerProvider"`
	SummarizerBaseURL        string `yaml:"summarizerBaseURL"`
	SummarizerAPIKey         string `yaml:"summarizerAPIKey"`
	SummarizerModel          string `yaml:"summarizerModel"`
	SummarizerTimeoutSeconds int    `yaml:"summarizerTimeoutSeconds"`

	AMQPURL      string `yaml:"amqpURL"`
	AMQPExchange string `yaml:"amqpExchange"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	HeadRoll     string `yaml:"headRoll"`
	HeadName     string `yaml:"headName"`
	HeadPassword string `yaml:"headPassword"`

	SignupRateLimitPerMinute int `yaml:"signupRateLimitPerMinute"`
	LoginRateLimitPerMinute  int `yaml:"loginRateLimitPerMinute"`
	SubmitRateLimitPerMinute int `yaml:"submitRateLimitPerMinute"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		cfg.SessionTTL = v
	}
	if v := os.Getenv("VERIFY_BASE_URL"); v != "" {
		cfg.VerifyBaseURL = v
	}
	if v := os.Getenv("SUMMARIZER_PROVIDER"); v != "" {
		cfg.SummarizerProvider = v
	}
	if v := os.Getenv("SUMMARIZER_BASE_URL"); v != "" {
		cfg.SummarizerBaseURL = v
	}
	if v := os.Getenv("SUMMARIZER_API_KEY"); v != "" {
		cfg.SummarizerAPIKey = v
	}
	if v := os.Getenv("SUMMARIZER_MODEL"); v != "" {
		cfg.SummarizerModel = v
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		cfg.AMQPURL = v
	}
	if v := os.Getenv("AMQP_EXCHANGE"); v != "" {
		cfg.AMQPExchange = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("HEAD_ROLL"); v != "" {
		cfg.HeadRoll = v
	}
	if v := os.Getenv("HEAD_NAME"); v != "" {
		cfg.HeadName = v
	}
	if v := os.Getenv("HEAD_PASSWORD"); v != "" {
		cfg.HeadPassword = v
	}
	if v := os.Getenv("SIGNUP_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SignupRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("LOGIN_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LoginRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("SUBMIT_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SubmitRateLimitPerMinute = n
		}
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.QRDir == "" {
		cfg.QRDir = "data/qrcodes"
	}
	if cfg.PDFDir == "" {
		cfg.PDFDir = "data/passes"
	}
	if cfg.VerifyBaseURL == "" && cfg.Port != "" {
		cfg.VerifyBaseURL = "http://localhost:" + cfg.Port
	}
	if cfg.SessionTTL == "" {
		cfg.SessionTTL = "24h"
	}
	if cfg.HeadRoll == "" {
		cfg.HeadRoll = "HOD001"
	}
	if cfg.HeadName == "" {
		cfg.HeadName = "Department Head"
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if strings.TrimSpace(cfg.HeadPassword) == "" {
		return errors.New("config: headPassword is required (set HEAD_PASSWORD)")
	}
	// Sessions are Redis-backed when redisAddr is set, JWT otherwise.
	if strings.TrimSpace(cfg.RedisAddr) == "" && strings.TrimSpace(cfg.JWTSecret) == "" {
		return errors.New("config: jwtSecret is required when redisAddr is not set")
	}
	if cfg.SignupRateLimitPerMinute < 0 || cfg.LoginRateLimitPerMinute < 0 || cfg.SubmitRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	if cfg.SummarizerTimeoutSeconds < 0 {
		return errors.New("config: summarizerTimeoutSeconds must be >= 0")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.SummarizerProvider)) {
	case "", "ollama", "openai":
	default:
		return fmt.Errorf("config: unknown summarizerProvider %q", cfg.SummarizerProvider)
	}
	if cfg.MinioEndpoint != "" && (cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" || cfg.MinioBucket == "") {
		return errors.New("config: minio requires endpoint, accessKey, secretKey and bucket")
	}
	return nil
}

// ParseSessionTTL parses the session TTL duration string.
func ParseSessionTTL(ttlStr string) (time.Duration, error) {
	if ttlStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(ttlStr)
	if err != nil {
		return 0, fmt.Errorf("invalid sessionTTL duration: %w", err)
	}
	return dur, nil
}

// SummarizerTimeout returns the configured model call timeout, or zero to use
// the built-in default.
func (c FileConfig) SummarizerTimeout() time.Duration {
	if c.SummarizerTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.SummarizerTimeoutSeconds) * time.Second
}
