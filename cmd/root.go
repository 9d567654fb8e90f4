package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/ats-scorer/internal/ai/gemini"
	"github.com/spigell/ats-scorer/internal/cache"
	"github.com/spigell/ats-scorer/internal/config"
	"github.com/spigell/ats-scorer/internal/server"
)

const (
	app = "ats-scorer"
)

type Config struct {
	// Dictionary is a path to a dictionary YAML file. The embedded one is
	// used when empty.
	Dictionary string         `mapstructure:"dictionary"`
	Scoring    config.Scoring `mapstructure:"scoring"`
	AI         AIConfig       `mapstructure:"ai"`
	Cache      CacheConfig    `mapstructure:"cache"`
	Server     server.Options `mapstructure:"server"`
	HH         HHConfig       `mapstructure:"hh"`
}

type AIConfig struct {
	Enabled  bool         `mapstructure:"enabled"`
	Provider string       `mapstructure:"provider"`
	Gemini   GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type CacheConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	cache.Options `mapstructure:",squash"`
}

type HHConfig struct {
	TokenFile string `mapstructure:"token-file"`
	UserAgent string `mapstructure:"user-agent"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "ats-scorer scores resumes against job descriptions the way applicant tracking systems do",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"hh.token-file":          "HH_TOKEN_FILE",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"cache.addr":             "REDIS_ADDR",
		"cache.password":         "REDIS_PASSWORD",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, "ATS_"+strings.NewReplacer(".", "_", "-", "_").Replace(strings.ToUpper(key)), env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is ats-scorer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("dictionary", "", "path to a dictionary YAML file (default is the embedded dictionary)")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("dictionary", rootCmd.PersistentFlags().Lookup("dictionary"))
}

func initConfig() {
	// A missing .env is normal.
	_ = godotenv.Load()

	viper.SetEnvPrefix("ATS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional, but a broken one is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

// getConfig decodes the merged viper settings over the built in defaults.
// Lists and maps given in the config file replace the defaults.
func getConfig() (*Config, error) {
	cfg := &Config{
		Scoring: config.Default(),
		AI:      AIConfig{Provider: gemini.Provider, Gemini: GeminiConfig{MaxRetries: 3}},
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ZeroFields:       true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		Result:           cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(viper.AllSettings()); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = cache.DefaultTTL
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}

	return cfg, nil
}
