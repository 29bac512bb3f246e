package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	appName = "oalpaca"

	defaultOllamaURL      = "http://localhost:11434"
	defaultPort           = 47821
	defaultRequestTimeout = 120 * time.Second
)

// Config is the main configuration structure for the application.
type Config struct {
	// DataDir is the directory holding the JSON index files and chat
	// logs. Empty means ~/.oalpaca/data.
	DataDir string `json:"dataDir,omitempty"`
	// OllamaURL is the base address of the local inference server.
	OllamaURL string `json:"ollamaUrl"`
	// RequestTimeout bounds non-streaming requests to Ollama.
	// Streaming chat replies are unbounded.
	RequestTimeout time.Duration `json:"requestTimeout"`
	// Port is the local API port the UI connects to.
	Port  int  `json:"port"`
	Debug bool `json:"debug,omitempty"`
}

// Load initializes the configuration from the config file and
// environment variables. Flags applied by the caller afterwards win
// over both.
func Load(debug bool) (*Config, error) {
	configureViper()
	setDefaults(debug)

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; anything else is not.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		DataDir:        viper.GetString("dataDir"),
		OllamaURL:      viper.GetString("ollamaUrl"),
		RequestTimeout: viper.GetDuration("requestTimeout"),
		Port:           viper.GetInt("port"),
		Debug:          viper.GetBool("debug"),
	}
	return cfg, nil
}

// configureViper sets up viper's configuration paths and environment
// variables (OALPACA_* overrides any file value).
func configureViper() {
	viper.SetConfigName(fmt.Sprintf(".%s", appName))
	viper.SetConfigType("json")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(fmt.Sprintf("$HOME/.config/%s", appName))
	viper.SetEnvPrefix(strings.ToUpper(appName))
	viper.AutomaticEnv()
}

func setDefaults(debug bool) {
	viper.SetDefault("ollamaUrl", defaultOllamaURL)
	viper.SetDefault("requestTimeout", defaultRequestTimeout)
	viper.SetDefault("port", defaultPort)
	if debug {
		viper.SetDefault("debug", true)
	}
}
