package util

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// AppName is the name reported by every log context
const AppName = "hls-broker"

// Environment variables
const (
	CMR_STAC_URL     = "CMR_STAC_URL"
	DATABASE_URL     = "DATABASE_URL"
	PORT             = "PORT"
	EARTHDATA_NETRC  = "EARTHDATA_NETRC"
	EE_CREDENTIALS   = "EE_CREDENTIALS"
	EE_PROJECT       = "EE_PROJECT"
	MODEL_SERVER_URL = "MODEL_SERVER_URL"
	FFMPEG_PATH      = "FFMPEG_PATH"
	SYNC_FREQUENCY   = "SYNC_FREQUENCY"
	OUTPUT_BUCKET    = "OUTPUT_BUCKET"
	LOG_PRETTY       = "LOG_PRETTY"
)

const (
	defaultCMRSTACURL    = "https://cmr.earthdata.nasa.gov/stac"
	defaultPort          = "8080"
	defaultFFmpegPath    = "ffmpeg"
	defaultSyncFrequency = 24 * time.Hour
	defaultEEProject     = "earthengine-public"
)

// Config is the file-based configuration. Every field may be overridden by
// its environment variable.
type Config struct {
	CMRSTACURL     string        `yaml:"cmr_stac_url"`
	DatabaseURL    string        `yaml:"database_url"`
	Port           string        `yaml:"port"`
	EarthdataNetrc string        `yaml:"earthdata_netrc"`
	EECredentials  string        `yaml:"ee_credentials"`
	EEProject      string        `yaml:"ee_project"`
	ModelServerURL string        `yaml:"model_server_url"`
	FFmpegPath     string        `yaml:"ffmpeg_path"`
	SyncFrequency  time.Duration `yaml:"sync_frequency"`
	OutputBucket   string        `yaml:"output_bucket"`
}

// LoadConfig reads the YAML file at path (if any), then applies environment
// overrides and defaults. An empty path yields a config built only from the
// environment.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, NewError(Configuration, "config: %v", err)
		}
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, NewError(Configuration, "config: failed to decode YAML: %v", err)
		}
	}

	overrideFromEnv(&cfg.CMRSTACURL, CMR_STAC_URL)
	overrideFromEnv(&cfg.DatabaseURL, DATABASE_URL)
	overrideFromEnv(&cfg.Port, PORT)
	overrideFromEnv(&cfg.EarthdataNetrc, EARTHDATA_NETRC)
	overrideFromEnv(&cfg.EECredentials, EE_CREDENTIALS)
	overrideFromEnv(&cfg.EEProject, EE_PROJECT)
	overrideFromEnv(&cfg.ModelServerURL, MODEL_SERVER_URL)
	overrideFromEnv(&cfg.FFmpegPath, FFMPEG_PATH)
	overrideFromEnv(&cfg.OutputBucket, OUTPUT_BUCKET)
	if freq, ok := os.LookupEnv(SYNC_FREQUENCY); ok {
		d, err := time.ParseDuration(freq)
		if err != nil {
			return nil, NewError(Configuration, "config: invalid %s %q: %v", SYNC_FREQUENCY, freq, err)
		}
		cfg.SyncFrequency = d
	}

	if cfg.CMRSTACURL == "" {
		cfg.CMRSTACURL = defaultCMRSTACURL
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = defaultFFmpegPath
	}
	if cfg.EEProject == "" {
		cfg.EEProject = defaultEEProject
	}
	if cfg.SyncFrequency < time.Minute {
		if cfg.SyncFrequency != 0 {
			LogAlert(&BasicLogContext{}, fmt.Sprintf("Specified sync frequency of %v is too small. Setting to default.", cfg.SyncFrequency))
		}
		cfg.SyncFrequency = defaultSyncFrequency
	}
	return cfg, nil
}

func overrideFromEnv(field *string, name string) {
	if value, ok := os.LookupEnv(name); ok && value != "" {
		*field = value
	}
}

// PortStr returns the listen address for the configured port
func (c *Config) PortStr() string {
	return ":" + c.Port
}

// NetrcPath returns the netrc file holding Earthdata credentials, defaulting
// to ~/.netrc
func (c *Config) NetrcPath() string {
	if c.EarthdataNetrc != "" {
		return c.EarthdataNetrc
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".netrc"
	}
	return filepath.Join(home, ".netrc")
}
