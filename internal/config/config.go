package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	FromEmail    string `yaml:"from_email"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	DryRun   bool   `yaml:"dry_run"`
}

type MobizonConfig struct {
	APIKey   string `yaml:"api_key"`
	SenderID string `yaml:"sender_id"`
	DryRun   bool   `yaml:"dry_run"`
}

// WorkflowConfig tunes the proposal engine timers. Defaults match the
// historical behaviour of the opportunity screen.
type WorkflowConfig struct {
	DebounceMS           int    `yaml:"debounce_ms"`             // отложенная запись
	DedupWindowMS        int    `yaml:"dedup_window_ms"`         // окно дублей создания
	CreateGuardReleaseMS int    `yaml:"create_guard_release_ms"` // задержка снятия guard
	LinkBase             string `yaml:"link_base"`               // префикс deep-link в уведомлениях
}

func (w WorkflowConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

func (w WorkflowConfig) DedupWindow() time.Duration {
	return time.Duration(w.DedupWindowMS) * time.Millisecond
}

func (w WorkflowConfig) CreateGuardRelease() time.Duration {
	return time.Duration(w.CreateGuardReleaseMS) * time.Millisecond
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`
	Email    EmailConfig    `yaml:"email"`
	Telegram TelegramConfig `yaml:"telegram"`
	Mobizon  MobizonConfig  `yaml:"mobizon"`
	Workflow WorkflowConfig `yaml:"workflow"`
}

func LoadConfig() *Config {
	f, err := os.Open("config/config.yaml")
	if err != nil {
		panic("Failed to open config.yaml: " + err.Error())
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		panic("Failed to parse config.yaml: " + err.Error())
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Workflow.DebounceMS <= 0 {
		cfg.Workflow.DebounceMS = 500
	}
	if cfg.Workflow.DedupWindowMS <= 0 {
		cfg.Workflow.DedupWindowMS = 2000
	}
	if cfg.Workflow.CreateGuardReleaseMS <= 0 {
		cfg.Workflow.CreateGuardReleaseMS = 2000
	}
	return &cfg
}
