package common

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Ledger  LedgerConfig  `yaml:"ledger"`
	Runner  RunnerConfig  `yaml:"runner"`
	Paths   PathsConfig   `yaml:"paths"`
	Incopat IncopatConfig `yaml:"incopat"`
	OCR     OCRConfig     `yaml:"ocr"`
	Output  OutputConfig  `yaml:"output"`
}

// LedgerConfig holds work-ledger storage configuration
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// RunnerConfig holds retry and pacing configuration shared by all stages
type RunnerConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	ItemDelay   time.Duration `yaml:"item_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// PathsConfig holds input/artifact locations
type PathsConfig struct {
	InputCSV string `yaml:"input_csv"`
	PDFDir   string `yaml:"pdf_dir"`
}

// IncopatConfig holds patent-database session configuration
type IncopatConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
	MinPDFKB int           `yaml:"min_pdf_kb"`
}

// OCRConfig holds recognizer configuration
type OCRConfig struct {
	Command  string        `yaml:"command"`
	MinChars int           `yaml:"min_chars"`
	Timeout  time.Duration `yaml:"timeout"`
}

// OutputConfig holds result-set and failure-ledger locations
type OutputConfig struct {
	JSONPath   string `yaml:"json_path"`
	CSVPath    string `yaml:"csv_path"`
	XLSXPath   string `yaml:"xlsx_path"`
	FailureDir string `yaml:"failure_dir"`
	FlushEvery int    `yaml:"flush_every"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Ledger: LedgerConfig{
			Path: getEnv("LEDGER_PATH", "pipeline.db"),
		},
		Runner: RunnerConfig{
			MaxAttempts: getEnvAsInt("RUNNER_MAX_ATTEMPTS", 3),
			ItemDelay:   getEnvAsDuration("RUNNER_ITEM_DELAY", 750*time.Millisecond),
			MaxDelay:    getEnvAsDuration("RUNNER_MAX_DELAY", 60*time.Second),
		},
		Paths: PathsConfig{
			InputCSV: getEnv("PATENT_LIST", "patent_list.csv"),
			PDFDir:   getEnv("PDF_DIR", "pdfs"),
		},
		Incopat: IncopatConfig{
			BaseURL:  getEnv("INCOPAT_BASE_URL", "https://www.incopat.com"),
			Username: getEnv("INCOPAT_USERNAME", ""),
			Password: getEnv("INCOPAT_PASSWORD", ""),
			Timeout:  getEnvAsDuration("INCOPAT_TIMEOUT", 30*time.Second),
			MinPDFKB: getEnvAsInt("MIN_PDF_KB", 100),
		},
		OCR: OCRConfig{
			Command:  getEnv("OCR_COMMAND", "cnocr-region"),
			MinChars: getEnvAsInt("OCR_MIN_CHARS", 2),
			Timeout:  getEnvAsDuration("OCR_TIMEOUT", 90*time.Second),
		},
		Output: OutputConfig{
			JSONPath:   getEnv("OUTPUT_JSON", "patent_details.json"),
			CSVPath:    getEnv("OUTPUT_CSV", "patent_details.csv"),
			XLSXPath:   getEnv("OUTPUT_XLSX", "patent_details.xlsx"),
			FailureDir: getEnv("FAILURE_DIR", "."),
			FlushEvery: getEnvAsInt("OUTPUT_FLUSH_EVERY", 1),
		},
	}
}

// LoadConfigFile overlays values from a YAML file onto cfg. Keys absent
// from the file keep their current (env or default) values.
func LoadConfigFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return NewAppError("CONFIG_ERROR", "cannot read config file", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return NewAppError("CONFIG_ERROR", "cannot parse config file", err)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Ledger.Path == "" {
		return NewAppError("CONFIG_ERROR", "ledger path is required", ErrInvalidInput)
	}
	if c.Runner.MaxAttempts < 1 {
		return NewAppError("CONFIG_ERROR", "runner max_attempts must be at least 1", ErrInvalidInput)
	}
	if c.Runner.ItemDelay < 0 || c.Runner.MaxDelay < c.Runner.ItemDelay {
		return NewAppError("CONFIG_ERROR", "runner delays must satisfy 0 <= item_delay <= max_delay", ErrInvalidInput)
	}
	if c.Paths.InputCSV == "" {
		return NewAppError("CONFIG_ERROR", "input patent list is required", ErrInvalidInput)
	}
	if c.Output.FlushEvery < 1 {
		return NewAppError("CONFIG_ERROR", "output flush_every must be at least 1", ErrInvalidInput)
	}
	return nil
}
