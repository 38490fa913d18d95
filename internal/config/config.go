package config

import (
	"errors"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	LogLevel string
	HTTPAddr string

	DBType        string // "postgres" or "file"
	DBDSN         string
	FileEvents    string
	FileReminders string
	FileSubjects  string
	FileStates    string

	Timezone        string
	FeedingInterval time.Duration
	ReminderLead    time.Duration
	PollInterval    time.Duration
	RetentionDays   int

	NotifyWebhookURL string
	AuthToken        string
	AuthServiceURL   string
}

var (
	cfg  *Config
	once sync.Once
)

func Load() *Config {
	once.Do(func() {
		_ = godotenv.Load()
		cfg = &Config{
			Env:              getEnv("APP_ENV", "development"),
			LogLevel:         getEnv("LOG_LEVEL", "info"),
			HTTPAddr:         getEnv("HTTP_ADDR", ":8088"),
			DBType:           getEnv("STORAGE_BACKEND", "file"),
			DBDSN:            getEnv("POSTGRES_DSN", ""),
			FileEvents:       getEnv("EVENTS_FILE", "data/events.json"),
			FileReminders:    getEnv("REMINDERS_FILE", "data/reminders.json"),
			FileSubjects:     getEnv("SUBJECTS_FILE", "data/subjects.json"),
			FileStates:       getEnv("STATES_FILE", "data/user_states.json"),
			Timezone:         getEnv("TIMEZONE", "Europe/Moscow"),
			FeedingInterval:  getDuration("FEEDING_INTERVAL", 3*time.Hour),
			ReminderLead:     getDuration("REMINDER_LEAD_TIME", 30*time.Minute),
			PollInterval:     getDuration("POLL_INTERVAL", 60*time.Second),
			RetentionDays:    getInt("REMINDER_RETENTION_DAYS", 7),
			NotifyWebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
			AuthToken:        getEnv("AUTH_TOKEN", "MOCK-TOKEN"),
			AuthServiceURL:   getEnv("AUTH_SERVICE_URL", ""),
		}
		if err := cfg.Validate(); err != nil {
			panic("Invalid config: " + err.Error())
		}
	})
	return cfg
}

func (c *Config) Validate() error {
	if c.DBType == "postgres" && c.DBDSN == "" {
		return errors.New("POSTGRES_DSN is required when STORAGE_BACKEND=postgres")
	}
	if c.DBType == "file" && (c.FileEvents == "" || c.FileReminders == "" || c.FileSubjects == "" || c.FileStates == "") {
		return errors.New("File storage requires EVENTS_FILE, REMINDERS_FILE, SUBJECTS_FILE and STATES_FILE to be set")
	}
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return errors.New("APP_ENV must be one of: development, staging, production")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return errors.New("TIMEZONE is not a valid IANA zone: " + c.Timezone)
	}
	if c.FeedingInterval <= 0 || c.PollInterval <= 0 {
		return errors.New("FEEDING_INTERVAL and POLL_INTERVAL must be positive")
	}
	if c.ReminderLead < 0 || c.ReminderLead >= c.FeedingInterval {
		return errors.New("REMINDER_LEAD_TIME must be shorter than FEEDING_INTERVAL")
	}
	if c.RetentionDays < 1 {
		return errors.New("REMINDER_RETENTION_DAYS must be at least 1")
	}
	return nil
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
