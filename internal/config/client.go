package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"timesup/internal/model"
)

// Client configures the terminal client.
type Client struct {
	ServerURL string                 `yaml:"server_url"`
	Email     string                 `yaml:"email"`
	Password  string                 `yaml:"password"`
	DataDir   string                 `yaml:"data_dir"`
	Timeout   time.Duration          `yaml:"timeout"`
	Pomodoro  model.PomodoroSettings `yaml:"pomodoro"`
}

func DefaultClient() Client {
	return Client{
		DataDir:  defaultDataDir(),
		Timeout:  10 * time.Second,
		Pomodoro: model.DefaultPomodoroSettings(),
	}
}

// DefaultClientPath is ~/.config/timesup/config.yaml.
func DefaultClientPath() string {
	return filepath.Join(defaultDataDir(), "config.yaml")
}

// LoadClient layers defaults, the YAML file at path and TIMESUP_* variables.
// A missing file is not an error.
func LoadClient(path string) (Client, error) {
	cfg := DefaultClient()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.ServerURL = getEnv("TIMESUP_SERVER_URL", cfg.ServerURL)
	cfg.Email = getEnv("TIMESUP_EMAIL", cfg.Email)
	cfg.Password = getEnv("TIMESUP_PASSWORD", cfg.Password)
	cfg.DataDir = getEnv("TIMESUP_DATA_DIR", cfg.DataDir)
	if seconds := getEnvInt("TIMESUP_TIMEOUT_SECONDS", 0); seconds > 0 {
		cfg.Timeout = time.Duration(seconds) * time.Second
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Online reports whether a server and credentials are configured.
func (c Client) Online() bool {
	return c.ServerURL != "" && c.Email != "" && c.Password != ""
}

func (c Client) LocalDBPath() string {
	return filepath.Join(c.DataDir, "local.db")
}

func (c Client) LogPath() string {
	return filepath.Join(c.DataDir, "timesup.log")
}

func (c Client) validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be positive")
	}
	p := c.Pomodoro
	if p.WorkMinutes <= 0 || p.ShortBreakMinutes <= 0 || p.LongBreakMinutes <= 0 {
		return fmt.Errorf("config: pomodoro durations must be positive")
	}
	if p.LongBreakInterval <= 0 {
		return fmt.Errorf("config: pomodoro long break interval must be at least 1")
	}
	return nil
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", ".timesup")
	}
	return filepath.Join(dir, "timesup")
}
