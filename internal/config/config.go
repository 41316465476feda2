package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config is the complete application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store"`
	Matching    MatchingConfig    `yaml:"matching"`
	Camera      CameraConfig      `yaml:"camera"`
	Recognizer  RecognizerConfig  `yaml:"recognizer"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Log         LogConfig         `yaml:"log"`
	Web         WebConfig         `yaml:"web"`
}

type StoreConfig struct {
	Backend      string        `yaml:"backend"` // "file", "postgres" or "mariadb"
	Path         string        `yaml:"path"`    // face database file for the file backend
	DatabaseURL  string        `yaml:"database_url"`
	MariaDBDSN   string        `yaml:"mariadb_dsn"` // go-sql-driver DSN, e.g. user:pass@tcp(host:3306)/faces
	SaveTimeout  time.Duration `yaml:"save_timeout"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
}

type MatchingConfig struct {
	Tolerance float64 `yaml:"tolerance"`
	Metric    string  `yaml:"metric"` // "euclidean" or "cosine"
	Index     string  `yaml:"index"`  // "none" or "hnsw"
}

type CameraConfig struct {
	Device       string        `yaml:"device"`
	Width        int           `yaml:"width"`
	Height       int           `yaml:"height"`
	FrameTimeout time.Duration `yaml:"frame_timeout"`
}

type RecognizerConfig struct {
	ModelsDir    string `yaml:"models_dir"` // directory with the dlib model files
	MaxImageSize int    `yaml:"max_image_size"`
}

type RecognitionConfig struct {
	ProcessEveryN int           `yaml:"process_every_n"`
	DetectScale   float64       `yaml:"detect_scale"`
	FrameInterval time.Duration `yaml:"frame_interval"`
	StatusDisplay time.Duration `yaml:"status_display"`
}

type LogConfig struct {
	File  string `yaml:"file"` // empty disables the log file
	Level string `yaml:"level"`
}

type WebConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"` // CORS origins besides localhost
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a positive float from the environment, falling back to defaultVal.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration reads a positive duration (e.g. "5s") from the environment.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

// envString returns the env var value, or defaultVal when unset or empty.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated env var, dropping empty items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Defaults returns the configuration built from the embedded defaults only.
func Defaults() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return &cfg
}

// Load builds the configuration: embedded defaults, then the YAML file named
// by FACES_CONFIG (if set), then environment variables.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("FACES_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile overlays the YAML file at path onto cfg.
// Keys missing from the file keep their current values.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Store.Backend = envString("FACES_BACKEND", c.Store.Backend)
	c.Store.Path = envString("FACES_STORE_PATH", c.Store.Path)
	c.Store.DatabaseURL = envString("DATABASE_URL", c.Store.DatabaseURL)
	c.Store.MariaDBDSN = envString("MARIADB_DSN", c.Store.MariaDBDSN)
	c.Store.SaveTimeout = envDuration("FACES_SAVE_TIMEOUT", c.Store.SaveTimeout)
	c.Store.MaxOpenConns = envInt("DATABASE_MAX_OPEN_CONNS", c.Store.MaxOpenConns)
	c.Store.MaxIdleConns = envInt("DATABASE_MAX_IDLE_CONNS", c.Store.MaxIdleConns)

	c.Matching.Tolerance = envFloat("FACES_TOLERANCE", c.Matching.Tolerance)
	c.Matching.Metric = envString("FACES_METRIC", c.Matching.Metric)
	c.Matching.Index = envString("FACES_INDEX", c.Matching.Index)

	c.Camera.Device = envString("CAMERA_DEVICE", c.Camera.Device)
	c.Camera.Width = envInt("CAMERA_WIDTH", c.Camera.Width)
	c.Camera.Height = envInt("CAMERA_HEIGHT", c.Camera.Height)
	c.Camera.FrameTimeout = envDuration("CAMERA_FRAME_TIMEOUT", c.Camera.FrameTimeout)

	c.Recognizer.ModelsDir = envString("FACES_MODELS_DIR", c.Recognizer.ModelsDir)
	c.Recognizer.MaxImageSize = envInt("FACES_MAX_IMAGE_SIZE", c.Recognizer.MaxImageSize)

	c.Recognition.ProcessEveryN = envInt("RECOGNITION_PROCESS_EVERY_N", c.Recognition.ProcessEveryN)
	c.Recognition.DetectScale = envFloat("RECOGNITION_DETECT_SCALE", c.Recognition.DetectScale)
	c.Recognition.FrameInterval = envDuration("RECOGNITION_FRAME_INTERVAL", c.Recognition.FrameInterval)
	c.Recognition.StatusDisplay = envDuration("STATUS_DISPLAY", c.Recognition.StatusDisplay)

	c.Log.File = envString("LOG_FILE", c.Log.File)
	c.Log.Level = envString("LOG_LEVEL", c.Log.Level)

	c.Web.Host = envString("WEB_HOST", c.Web.Host)
	c.Web.Port = envInt("WEB_PORT", c.Web.Port)
	if origins := envList("WEB_ALLOWED_ORIGINS"); len(origins) > 0 {
		c.Web.AllowedOrigins = origins
	}
}

// Validate rejects settings the application cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "file":
		if c.Store.Path == "" {
			return fmt.Errorf("store path is required for the file backend")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	case "mariadb":
		if c.Store.MariaDBDSN == "" {
			return fmt.Errorf("MARIADB_DSN is required for the mariadb backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if c.Matching.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive, got %v", c.Matching.Tolerance)
	}
	switch c.Matching.Metric {
	case "euclidean", "cosine":
	default:
		return fmt.Errorf("unknown distance metric %q", c.Matching.Metric)
	}
	switch c.Matching.Index {
	case "none", "hnsw":
	default:
		return fmt.Errorf("unknown index %q", c.Matching.Index)
	}

	if c.Recognition.DetectScale <= 0 || c.Recognition.DetectScale > 1 {
		return fmt.Errorf("detect scale must be in (0, 1], got %v", c.Recognition.DetectScale)
	}
	if c.Recognition.ProcessEveryN < 1 {
		return fmt.Errorf("process_every_n must be at least 1")
	}
	return nil
}

// Addr returns the host:port the web server listens on.
func (c *WebConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
