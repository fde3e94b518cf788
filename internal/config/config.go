// Package config provides the configuration structures for the yukkuri-service.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Environment variables that override the configuration file.
const (
	EnvBind         = "YUKKURI_BIND"
	EnvPort         = "YUKKURI_PORT"
	EnvDocumentRoot = "YUKKURI_DOCUMENT_ROOT"
	EnvLicensePath  = "YUKKURI_LICENSE_PATH"
	EnvEngineKind   = "YUKKURI_ENGINE"
	EnvNATSURL      = "YUKKURI_NATS_URL"
)

const (
	defaultBind              = "127.0.0.1"
	defaultPort              = 8080
	defaultDocumentRoot      = "root"
	defaultReadTimeout       = 30
	defaultWriteTimeout      = 120
	defaultMaxBodyBytes      = 1 << 20
	defaultEngineKind        = "exec"
	defaultSynthesizerBinary = "aquestalk"
	defaultConverterBinary   = "aqkanji2koe"
	defaultEngineTimeout     = 30
	defaultLicensePath       = "config.json"
	defaultLogsDir           = "logs"
	defaultTalkSubject       = "yukkuri.talk"
	defaultAudioBucket       = "YUKKURI_AUDIO"
	maxPort                  = 65535
)

// ErrInvalidPort indicates a port outside 0..65535.
var ErrInvalidPort = errors.New("invalid port")

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Bind                string `toml:"bind"`
	Port                int    `toml:"port"`
	DocumentRoot        string `toml:"document_root"`
	ReadTimeoutSeconds  int    `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `toml:"write_timeout_seconds"`
	MaxBodyBytes        int64  `toml:"max_body_bytes"`
}

// EngineConfig holds the speech engine settings.
type EngineConfig struct {
	Kind              string `toml:"kind"`
	InstallDir        string `toml:"install_dir"`
	DictionaryPath    string `toml:"dictionary_path"`
	SynthesizerBinary string `toml:"synthesizer_binary"`
	ConverterBinary   string `toml:"converter_binary"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
}

// LicensesConfig locates the license key file.
type LicensesConfig struct {
	Path string `toml:"path"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// NATSConfig holds the configuration for NATS. The worker is disabled when URL is empty.
type NATSConfig struct {
	URL                    string `toml:"url"`
	TalkSubject            string `toml:"talk_subject"`
	AudioObjectStoreBucket string `toml:"audio_object_store_bucket"`
	AudioTTLSeconds        int    `toml:"audio_ttl_seconds"`
}

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Engine   EngineConfig   `toml:"engine"`
	Licenses LicensesConfig `toml:"licenses"`
	Paths    PathsConfig    `toml:"paths"`
	NATS     NATSConfig     `toml:"nats"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind:                defaultBind,
			Port:                defaultPort,
			DocumentRoot:        defaultDocumentRoot,
			ReadTimeoutSeconds:  defaultReadTimeout,
			WriteTimeoutSeconds: defaultWriteTimeout,
			MaxBodyBytes:        defaultMaxBodyBytes,
		},
		Engine: EngineConfig{
			Kind:              defaultEngineKind,
			InstallDir:        ".",
			DictionaryPath:    "",
			SynthesizerBinary: defaultSynthesizerBinary,
			ConverterBinary:   defaultConverterBinary,
			TimeoutSeconds:    defaultEngineTimeout,
		},
		Licenses: LicensesConfig{Path: defaultLicensePath},
		Paths:    PathsConfig{BaseLogsDir: defaultLogsDir},
		NATS: NATSConfig{
			URL:                    "",
			TalkSubject:            defaultTalkSubject,
			AudioObjectStoreBucket: defaultAudioBucket,
			AudioTTLSeconds:        0,
		},
	}
}

// Load builds the configuration. With an explicit path the TOML file is read;
// otherwise the central configurator is asked and the defaults are kept when it has
// nothing to offer. A .env file and YUKKURI_* variables are applied last.
func Load(path string, log *logger.Logger) (*Config, error) {
	cfg := Default()

	if path != "" {
		err := loadFile(path, &cfg)
		if err != nil {
			return nil, err
		}
	} else {
		err := configurator.Load(&cfg, log)
		if err != nil {
			log.Warn("Central configuration unavailable, using defaults: %v", err)
		}
	}

	// A missing .env file is normal.
	_ = godotenv.Load()

	err := cfg.applyEnv()
	if err != nil {
		return nil, err
	}

	cfg.fillDefaults()

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	err = toml.Unmarshal(data, cfg)
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

func (c *Config) applyEnv() error {
	overrides := map[string]*string{
		EnvBind:         &c.Server.Bind,
		EnvDocumentRoot: &c.Server.DocumentRoot,
		EnvLicensePath:  &c.Licenses.Path,
		EnvEngineKind:   &c.Engine.Kind,
		EnvNATSURL:      &c.NATS.URL,
	}

	for name, field := range overrides {
		if value := os.Getenv(name); value != "" {
			*field = value
		}
	}

	if value := os.Getenv(EnvPort); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidPort, EnvPort, value)
		}

		c.Server.Port = port
	}

	return nil
}

// fillDefaults restores defaults for fields a partial file left empty.
func (c *Config) fillDefaults() {
	defaults := Default()

	setString := func(field *string, fallback string) {
		if *field == "" {
			*field = fallback
		}
	}

	setInt := func(field *int, fallback int) {
		if *field <= 0 {
			*field = fallback
		}
	}

	setString(&c.Server.Bind, defaults.Server.Bind)
	setString(&c.Server.DocumentRoot, defaults.Server.DocumentRoot)
	setInt(&c.Server.ReadTimeoutSeconds, defaults.Server.ReadTimeoutSeconds)
	setInt(&c.Server.WriteTimeoutSeconds, defaults.Server.WriteTimeoutSeconds)

	if c.Server.MaxBodyBytes <= 0 {
		c.Server.MaxBodyBytes = defaults.Server.MaxBodyBytes
	}

	setString(&c.Engine.Kind, defaults.Engine.Kind)
	setString(&c.Engine.InstallDir, defaults.Engine.InstallDir)
	setString(&c.Engine.SynthesizerBinary, defaults.Engine.SynthesizerBinary)
	setString(&c.Engine.ConverterBinary, defaults.Engine.ConverterBinary)
	setString(&c.Licenses.Path, defaults.Licenses.Path)
	setString(&c.Paths.BaseLogsDir, defaults.Paths.BaseLogsDir)
	setString(&c.NATS.TalkSubject, defaults.NATS.TalkSubject)
	setString(&c.NATS.AudioObjectStoreBucket, defaults.NATS.AudioObjectStoreBucket)
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port)
	}

	return nil
}

// Address returns the listen address.
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Bind, strconv.Itoa(s.Port))
}

// ReadTimeout returns the HTTP read timeout.
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the HTTP write timeout.
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

// Timeout bounds each converter or synthesizer call; zero means unbounded.
func (e EngineConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// AudioTTL returns how long rendered audio is kept; zero keeps it indefinitely.
func (n NATSConfig) AudioTTL() time.Duration {
	return time.Duration(n.AudioTTLSeconds) * time.Second
}
