package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		FromName     string `yaml:"from_name"`
		BaseURL      string `yaml:"base_url"` // public site URL used in email links
		TemplatesDir string `yaml:"templates_dir"`
	} `yaml:"email"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // minutes
	} `yaml:"jwt"`

	Storage struct {
		Type       string `yaml:"type"`      // local, cloudflare_r2
		BasePath   string `yaml:"base_path"` // for local storage
		BaseURL    string `yaml:"base_url"`  // public URL base
		Bucket     string `yaml:"bucket"`
		Region     string `yaml:"region"`
		AccessKey  string `yaml:"access_key"`
		SecretKey  string `yaml:"secret_key"`
		Endpoint   string `yaml:"endpoint"` // R2 account endpoint
		PublicRead bool   `yaml:"public_read"`
	} `yaml:"storage"`

	Upload struct {
		MaxSize      int64    `yaml:"max_size"`      // max document size in bytes
		AllowedTypes []string `yaml:"allowed_types"` // allowed MIME types
	} `yaml:"upload"`

	Billing struct {
		TrialDays       int `yaml:"trial_days"`
		GracePeriodDays int `yaml:"grace_period_days"`
		MaxRetries      int `yaml:"max_retries"`
	} `yaml:"billing"`

	FirstAdminEmail    string `yaml:"first_admin_email"`
	FirstAdminPassword string `yaml:"first_admin_password"`
}

var AppConfig *Config

// LoadConfig reads config.yaml, or builds the config from environment
// variables when DATABASE_URL is set (test mode). A local .env file is
// loaded first when present.
func LoadConfig() {
	var cfg Config

	// Optional .env for local development; missing file is fine.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")

	if dbURL == "" {
		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		applyDefaults(&cfg)
		AppConfig = &cfg
		return
	}

	// Environment-driven config (tests, containers)
	cfg.Database.DSN = dbURL
	cfg.Server.Env = os.Getenv("SERVER_ENV")
	cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.JWT.TTL = 60

	cfg.Email.SMTPHost = "smtp.test.com"
	cfg.Email.SMTPPort = 587
	cfg.Email.FromEmail = "noreply@eventra.app"
	cfg.Email.FromName = "Eventra"
	cfg.Email.BaseURL = "http://localhost:3000"
	cfg.Email.TemplatesDir = "templates"

	cfg.Storage.Type = "local"
	cfg.Storage.BasePath = "./uploads"
	cfg.Storage.BaseURL = "/api/v1/documents/files"

	cfg.Upload.MaxSize = 20 * 1024 * 1024 // 20MB
	cfg.Upload.AllowedTypes = []string{
		"application/pdf", "image/jpeg", "image/png",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}

	applyDefaults(&cfg)
	AppConfig = &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Billing.TrialDays == 0 {
		cfg.Billing.TrialDays = 14
	}
	if cfg.Billing.GracePeriodDays == 0 {
		cfg.Billing.GracePeriodDays = 7
	}
	if cfg.Billing.MaxRetries == 0 {
		cfg.Billing.MaxRetries = 3
	}
	if cfg.FirstAdminEmail == "" {
		cfg.FirstAdminEmail = os.Getenv("FIRST_ADMIN_EMAIL")
	}
	if cfg.FirstAdminPassword == "" {
		cfg.FirstAdminPassword = os.Getenv("FIRST_ADMIN_PASSWORD")
	}
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
