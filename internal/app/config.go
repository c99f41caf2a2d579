package app

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/shrimpsizemoose/trekker/logger"
)

const defaultTopActive = 3

type GSheetConfig struct {
	SheetID            string `toml:"sheet_id"`
	CredentialsPath    string `toml:"credentials_path"`
	Schedule           string `toml:"schedule"`
	RegistrationsRange string `toml:"registrations_range"`
	AttendanceRange    string `toml:"attendance_range"`
	FeedbackRange      string `toml:"feedback_range"`
	TimestampRange     string `toml:"timestamp_range"`
}

type Config struct {
	Server struct {
		Port string `toml:"port"`
	} `toml:"server"`

	Database struct {
		DSN           string `toml:"dsn"`
		MigrationsDir string `toml:"migrations_dir"`
	} `toml:"database"`

	Reports struct {
		TopActiveDefault int `toml:"top_active_default"`
	} `toml:"reports"`

	Display struct {
		TimestampFormat string   `toml:"timestamp_format"`
		EmojiVariants   []string `toml:"emoji_variants"`
	} `toml:"display"`

	Bot struct {
		Token    string  `toml:"token"`
		AdminIDs []int64 `toml:"admin_ids"`
		RedisURL string  `toml:"redis_url"`
	} `toml:"bot"`

	GSheet map[string]GSheetConfig `toml:"gsheet"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	return ParseConfig(path, data)
}

func ParseConfig(path string, data []byte) (*Config, error) {
	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf(
			"error reading config file %s\n> Error: %w\n> Content:\n%s",
			path,
			err,
			string(data),
		)
	}

	if config.Server.Port == "" {
		return nil, fmt.Errorf("Server port is not specified in config, use a value like :8000")
	}
	if config.Database.DSN == "" {
		return nil, fmt.Errorf("Database dsn is not specified in config")
	}
	if config.Reports.TopActiveDefault <= 0 {
		config.Reports.TopActiveDefault = defaultTopActive
	}
	if config.Display.TimestampFormat == "" {
		config.Display.TimestampFormat = "2006-01-02 15:04"
	}

	logger.Debug.Printf("Loaded reports config: %+v", config.Reports)

	return &config, nil
}
