package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// this is a pointer so that if someone attempts to use it before loading it will
// panic and force them to load it first.
// it is also private so that it cannot be modified after loading.
var _loaded *Config

// Config is the main configuration structure
type Config struct {
	Common Common `yaml:"common"`
}

// Load loads the configuration following proper precedence: defaults → config file → environment variables
func Load() {
	// Start with defaults
	_loaded = &defaultConfig

	configFile := os.Getenv("AETHERIA_CONFIG_FILE")
	if configFile == "" {
		configFile = "aetheria.yaml"
	}

	if err := LoadFromFile(configFile); err != nil {
		log.Printf("Failed to load config file %s: %v, using defaults", configFile, err)
	}

	// Apply environment variable overrides (highest priority)
	ApplyEnvOverrides()
}

func LoadDefault() {
	config := defaultConfig
	_loaded = &config
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults
	cfg := defaultConfig

	// Merge YAML values over defaults
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	_loaded = &cfg
	return nil
}

// set sane defaults for all of the config options. when loading the config from
// the file, any options that are not set will be set to these defaults.
var defaultConfig = Config{
	Common: Common{
		Log: logConfig{
			Level:  "info",
			Format: "json",
		},
		Http: httpConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			MaxRequestSize: 5242880,
		},
		Session: sessionConfig{
			MaxHistory:           8,
			InactivityTimeoutMin: 30,
			SweepIntervalMin:     5,
		},
		Gemini: geminiConfig{
			BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai",
			Model:   "gemini-2.5-flash-lite",
		},
		Weather: weatherConfig{
			BaseURL:      "http://api.weatherapi.com/v1",
			ForecastDays: 3,
		},
		GeoIP: geoipConfig{
			BaseURL:     "http://ip-api.com/json/",
			DefaultCity: "Tokyo",
		},
		Speech: speechConfig{
			STTBaseURL: "https://speech.googleapis.com/v1",
			TTSBaseURL: "https://texttospeech.googleapis.com/v1",
		},
		Postgres: postgresConfig{
			postgresConfigCommon: postgresConfigCommon{
				User:               "postgres",
				Password:           "postgres",
				Host:               "localhost",
				Port:               5432,
				Database:           "aetheria",
				SchemaName:         "public",
				ReadTimeout:        30,
				WriteTimeout:       30,
				MaxOpenConnections: 10,
			},
		},
	},
}

type Common struct {
	Log      logConfig      `yaml:"log"`
	Http     httpConfig     `yaml:"http"`
	Session  sessionConfig  `yaml:"session"`
	Gemini   geminiConfig   `yaml:"gemini"`
	Weather  weatherConfig  `yaml:"weather"`
	GeoIP    geoipConfig    `yaml:"geoip"`
	Speech   speechConfig   `yaml:"speech"`
	Postgres postgresConfig `yaml:"postgres"`
}

type logConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type httpConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxRequestSize int64  `yaml:"max_request_size"`
}

type sessionConfig struct {
	MaxHistory           int `yaml:"max_history"`            // entries, not exchanges
	InactivityTimeoutMin int `yaml:"inactivity_timeout_min"` // minutes before an idle session is reaped
	SweepIntervalMin     int `yaml:"sweep_interval_min"`     // minutes between cleanup passes
}

type geminiConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"` // OpenAI-compatible endpoint
	Model   string `yaml:"model"`
}

type weatherConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	ForecastDays int    `yaml:"forecast_days"`
}

type geoipConfig struct {
	BaseURL     string `yaml:"base_url"`
	DefaultCity string `yaml:"default_city"` // used for loopback addresses in local development
}

type speechConfig struct {
	APIKey     string `yaml:"api_key"`
	STTBaseURL string `yaml:"stt_base_url"`
	TTSBaseURL string `yaml:"tts_base_url"`
}

type postgresConfigCommon struct {
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Database           string `yaml:"database"`
	SchemaName         string `yaml:"schema_name"`
	ReadTimeout        int    `yaml:"read_timeout"`
	WriteTimeout       int    `yaml:"write_timeout"`
	MaxOpenConnections int    `yaml:"max_open_connections"`
}

func (c postgresConfigCommon) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		url.QueryEscape(c.Database),
	)
}

type postgresConfig struct {
	postgresConfigCommon `yaml:",inline"`
	// Enabled turns on the Postgres-backed turn audit log. When false the
	// server keeps a bounded in-memory log instead.
	Enabled bool `yaml:"enabled"`
}

// there should be a getter for each top level field in the config struct.
// these getters will panic if the config has not been loaded.

func Logger() logConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Log
}

func Http() httpConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Http
}

func Session() sessionConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Session
}

func Gemini() geminiConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Gemini
}

func Weather() weatherConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Weather
}

func GeoIP() geoipConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.GeoIP
}

func Speech() speechConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Speech
}

func Postgres() postgresConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Postgres
}

func Get() *Config {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded
}

func ApplyEnvOverrides() {
	if _loaded == nil {
		return
	}

	if httpHost := os.Getenv("AETHERIA_HTTP_HOST"); httpHost != "" {
		_loaded.Common.Http.Host = httpHost
	}
	if httpPort := os.Getenv("AETHERIA_HTTP_PORT"); httpPort != "" {
		if port, err := strconv.Atoi(httpPort); err == nil {
			_loaded.Common.Http.Port = port
		}
	}

	if geminiKey := os.Getenv("AETHERIA_GEMINI_API_KEY"); geminiKey != "" {
		_loaded.Common.Gemini.APIKey = geminiKey
	}
	if geminiBaseURL := os.Getenv("AETHERIA_GEMINI_BASE_URL"); geminiBaseURL != "" {
		_loaded.Common.Gemini.BaseURL = geminiBaseURL
	}
	if geminiModel := os.Getenv("AETHERIA_GEMINI_MODEL"); geminiModel != "" {
		_loaded.Common.Gemini.Model = geminiModel
	}

	if weatherKey := os.Getenv("AETHERIA_WEATHER_API_KEY"); weatherKey != "" {
		_loaded.Common.Weather.APIKey = weatherKey
	}
	if weatherBaseURL := os.Getenv("AETHERIA_WEATHER_BASE_URL"); weatherBaseURL != "" {
		_loaded.Common.Weather.BaseURL = weatherBaseURL
	}

	if geoipBaseURL := os.Getenv("AETHERIA_GEOIP_BASE_URL"); geoipBaseURL != "" {
		_loaded.Common.GeoIP.BaseURL = geoipBaseURL
	}

	if speechKey := os.Getenv("AETHERIA_SPEECH_API_KEY"); speechKey != "" {
		_loaded.Common.Speech.APIKey = speechKey
	}

	if dbEnabled := os.Getenv("AETHERIA_DB_ENABLED"); dbEnabled != "" {
		if enabled, err := strconv.ParseBool(dbEnabled); err == nil {
			_loaded.Common.Postgres.Enabled = enabled
		}
	}
	if dbHost := os.Getenv("AETHERIA_DB_HOST"); dbHost != "" {
		_loaded.Common.Postgres.Host = dbHost
	}
	if dbPort := os.Getenv("AETHERIA_DB_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			_loaded.Common.Postgres.Port = port
		}
	}
	if dbUser := os.Getenv("AETHERIA_DB_USER"); dbUser != "" {
		_loaded.Common.Postgres.User = dbUser
	}
	if dbPassword := os.Getenv("AETHERIA_DB_PASSWORD"); dbPassword != "" {
		_loaded.Common.Postgres.Password = dbPassword
	}
	if dbName := os.Getenv("AETHERIA_DB_NAME"); dbName != "" {
		_loaded.Common.Postgres.Database = dbName
	}
}
