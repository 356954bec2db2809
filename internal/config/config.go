package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var DefaultDataFiles = []string{
	"icemule_trace.json",
	"mist_harbor.json",
	"rivers_rest.json",
	"solhaven.json",
	"ta_illistim.json",
	"ta_vaalor.json",
	"teras_isle.json",
	"wehnimers_landing.json",
	"zul_logoth.json",
}

type Config struct {
	DBPath      string
	DataDir     string
	DataBaseURL string
	OutputDir   string
	UploadDir   string
	ConfigFile  string

	DataFiles        []string
	RemovedItemsFile string
	ShopMappingFile  string

	FetchRateLimitRPS int
	FetchTimeoutMs    int
	AddedWindowDays   int
	AddedDefaultDays  int
	ItemsPerPage      int
	DefaultTown       string

	HTTPAddr    string
	LogLevel    string
	ReloadCron  string
	WatchData   bool
	WatchDebMs  int
	MetricsName string

	ListenerAutoExport  bool
	UploadSessionTTLMin int
	SweepCron           string

	GitHubToken       string
	GitHubAPIBaseURL  string
	GitHubRepo        string
	DispatchEventType string
	UploadSource      string
}

// fileOverlay is the optional YAML file pointed at by CATALOG_CONFIG. Only
// the fields present in the file override env values.
type fileOverlay struct {
	DataFiles        []string `yaml:"data_files"`
	RemovedItemsFile string   `yaml:"removed_items_file"`
	ShopMappingFile  string   `yaml:"shop_mapping_file"`
	DefaultTown      string   `yaml:"default_town"`
	ItemsPerPage     int      `yaml:"items_per_page"`
	AddedWindowDays  int      `yaml:"added_window_days"`
	ReloadCron       string   `yaml:"reload_cron"`
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:      getEnv("DB_PATH", filepath.Join(cwd, "var", "bodega.db")),
		DataDir:     getEnv("DATA_DIR", filepath.Join(cwd, "data")),
		DataBaseURL: getEnv("DATA_BASE_URL", ""),
		OutputDir:   getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		UploadDir:   getEnv("UPLOAD_DIR", filepath.Join(cwd, "var", "uploads")),
		ConfigFile:  getEnv("CATALOG_CONFIG", ""),

		DataFiles:        getEnvList("DATA_FILES", DefaultDataFiles),
		RemovedItemsFile: getEnv("REMOVED_ITEMS_FILE", "removed_items.json"),
		ShopMappingFile:  getEnv("SHOP_MAPPING_FILE", "shop_mapping.json"),

		FetchRateLimitRPS: getEnvInt("FETCH_RATE_LIMIT_RPS", 10),
		FetchTimeoutMs:    getEnvInt("FETCH_TIMEOUT_MS", 30000),
		AddedWindowDays:   getEnvInt("ADDED_WINDOW_DAYS", 7),
		AddedDefaultDays:  getEnvInt("ADDED_DEFAULT_DAYS", 1),
		ItemsPerPage:      getEnvInt("ITEMS_PER_PAGE", 100),
		DefaultTown:       getEnv("DEFAULT_TOWN", "Icemule Trace"),

		HTTPAddr:    ":" + getEnv("PORT", "3000"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		ReloadCron:  getEnv("RELOAD_CRON", ""),
		WatchData:   getEnvBool("WATCH_DATA_DIR", false),
		WatchDebMs:  getEnvInt("WATCH_DEBOUNCE_MS", 500),
		MetricsName: getEnv("METRICS_NAMESPACE", "bodega"),

		ListenerAutoExport:  getEnvBool("LISTENER_AUTO_EXPORT", false),
		UploadSessionTTLMin: getEnvInt("UPLOAD_SESSION_TTL_MIN", 60),
		SweepCron:           getEnv("UPLOAD_SWEEP_CRON", "@every 15m"),

		GitHubToken:       getEnv("GITHUB_TOKEN", ""),
		GitHubAPIBaseURL:  getEnv("GITHUB_API_BASE_URL", "https://api.github.com"),
		GitHubRepo:        getEnv("GITHUB_REPO", "elanthia-online/bodega"),
		DispatchEventType: getEnv("DISPATCH_EVENT_TYPE", "shop_data_upload"),
		UploadSource:      getEnv("UPLOAD_DEFAULT_SOURCE", "bodega-api"),
	}

	if cfg.ConfigFile != "" {
		if err := cfg.applyFile(cfg.ConfigFile); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	blob, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var overlay fileOverlay
	if err := yaml.Unmarshal(blob, &overlay); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(overlay.DataFiles) > 0 {
		c.DataFiles = overlay.DataFiles
	}
	if overlay.RemovedItemsFile != "" {
		c.RemovedItemsFile = overlay.RemovedItemsFile
	}
	if overlay.ShopMappingFile != "" {
		c.ShopMappingFile = overlay.ShopMappingFile
	}
	if overlay.DefaultTown != "" {
		c.DefaultTown = overlay.DefaultTown
	}
	if overlay.ItemsPerPage > 0 {
		c.ItemsPerPage = overlay.ItemsPerPage
	}
	if overlay.AddedWindowDays > 0 {
		c.AddedWindowDays = overlay.AddedWindowDays
	}
	if overlay.ReloadCron != "" {
		c.ReloadCron = overlay.ReloadCron
	}
	return nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := strings.TrimSpace(getEnv(key, ""))
	if value == "" {
		return append([]string(nil), fallback...)
	}
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
