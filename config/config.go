package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the harvester configuration
type Config struct {
	Board struct {
		Name       string `yaml:"name"`
		URL        string `yaml:"url"`
		JobURL     string `yaml:"job_url"` // fmt pattern taking the job ID
		PageLength string `yaml:"page_length"`
	} `yaml:"board"`

	Scrape struct {
		Headless    bool          `yaml:"headless"`
		MaxPages    int           `yaml:"max_pages"` // -1 scrapes every page
		SettleDelay time.Duration `yaml:"settle_delay"`
		GammaShape  float64       `yaml:"gamma_shape"`
		GammaScale  time.Duration `yaml:"gamma_scale"`
		WriteCSV    bool          `yaml:"write_csv"`
		IPLookupURL string        `yaml:"ip_lookup_url"`
	} `yaml:"scrape"`

	Download struct {
		Fetcher string        `yaml:"fetcher"` // "rod" or "http"
		Delay   time.Duration `yaml:"delay"`
	} `yaml:"download"`

	Paths struct {
		DataDir string `yaml:"data_dir"`
	} `yaml:"paths"`

	Database struct {
		Driver string `yaml:"driver"` // "sqlite" or "postgres"
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`

	Filters struct {
		OpenOnly  bool     `yaml:"open_only"`
		Regions   []string `yaml:"regions"`
		MinSalary int64    `yaml:"min_salary"`
		MaxSalary int64    `yaml:"max_salary"`
	} `yaml:"filters"`

	Output struct {
		Parquet        bool   `yaml:"parquet"`
		CSV            bool   `yaml:"csv"`
		PreviewRows    int    `yaml:"preview_rows"`
		SpreadsheetURL string `yaml:"spreadsheet_url"`
		Credentials    string `yaml:"credentials"`
	} `yaml:"output"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

// LoadConfig loads configuration from a YAML file on top of the defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := GetDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Load reads the config file if it exists, then applies .env and environment overrides
func Load(path string) (*Config, error) {
	cfg := GetDefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			cfg, err = LoadConfig(path)
			if err != nil {
				return nil, err
			}
		}
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetDefaultConfig returns a default configuration
func GetDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Board.Name = "CivilServiceCommission"
	cfg.Board.URL = "https://csc.gov.ph/career/"
	cfg.Board.JobURL = "https://csc.gov.ph/career/job/%s"
	cfg.Board.PageLength = "100"

	cfg.Scrape.Headless = true
	cfg.Scrape.MaxPages = -1
	cfg.Scrape.SettleDelay = 10 * time.Second
	cfg.Scrape.GammaShape = 15
	cfg.Scrape.GammaScale = time.Second
	cfg.Scrape.IPLookupURL = "https://api.ipify.org"

	cfg.Download.Fetcher = "rod"
	cfg.Download.Delay = 2 * time.Second

	cfg.Paths.DataDir = "data"

	cfg.Database.Driver = "sqlite"

	cfg.Output.Parquet = true
	cfg.Output.PreviewRows = 10

	cfg.Log.Level = "info"
	return cfg
}

func (c *Config) applyEnv() error {
	if dir := os.Getenv("CSC_DATA_DIR"); dir != "" {
		c.Paths.DataDir = dir
	}

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.Driver = "postgres"
		c.Database.DSN = dsn
	}

	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		c.Telegram.Token = token
	}

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		c.Telegram.ChatID = id
	}

	return nil
}

// Validate checks the values that would otherwise fail deep inside a stage
func (c *Config) Validate() error {
	if c.Board.Name == "" {
		return fmt.Errorf("board.name is required")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Download.Fetcher {
	case "rod", "http":
	default:
		return fmt.Errorf("unsupported fetcher %q", c.Download.Fetcher)
	}
	if c.Scrape.MaxPages == 0 || c.Scrape.MaxPages < -1 {
		return fmt.Errorf("scrape.max_pages must be positive or -1, got %d", c.Scrape.MaxPages)
	}
	if c.Scrape.GammaShape <= 0 {
		return fmt.Errorf("scrape.gamma_shape must be positive")
	}
	return nil
}

// RawDir is where the scrape and download stages write
func (c *Config) RawDir() string {
	return filepath.Join(c.Paths.DataDir, "raw", c.Board.Name)
}

// PDFDir holds one <jobID>.pdf per posting
func (c *Config) PDFDir() string {
	return filepath.Join(c.RawDir(), "pdfs")
}

// InterimDir holds intermediate artefacts
func (c *Config) InterimDir() string {
	return filepath.Join(c.Paths.DataDir, "interim", c.Board.Name)
}

// ProcessedDir receives the joined dataset
func (c *Config) ProcessedDir() string {
	return filepath.Join(c.Paths.DataDir, "processed", c.Board.Name)
}

// DatabaseDSN returns the DSN, defaulting to a SQLite file under the interim dir
func (c *Config) DatabaseDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	return filepath.Join(c.InterimDir(), c.Board.Name+".db")
}
