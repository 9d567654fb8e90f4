package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/ats-scorer/internal/ai"
	"github.com/spigell/ats-scorer/internal/ai/gemini"
	"github.com/spigell/ats-scorer/internal/ats"
	"github.com/spigell/ats-scorer/internal/cache"
	"github.com/spigell/ats-scorer/internal/dictionary"
	"github.com/spigell/ats-scorer/internal/logger"
	"github.com/spigell/ats-scorer/internal/secrets"
)

// runtime holds everything a command needs to evaluate resumes.
type runtime struct {
	config     *Config
	logger     *zap.Logger
	dict       *dictionary.Dictionary
	elaborator ai.Elaborator
	cache      *cache.Redis
	engine     *ats.Engine
	closers    []func() error
}

func (r *runtime) Close() {
	for _, c := range r.closers {
		if err := c(); err != nil {
			r.logger.Debug("closing resource", zap.Error(err))
		}
	}
	_ = r.logger.Sync()
}

// setup builds the logger, loads configuration and the dictionary and
// wires the engine. Every failure here is fatal for the caller.
func setup(ctx context.Context, elaborate bool) (*runtime, error) {
	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	config, err := getConfig()
	if err != nil {
		return nil, fmt.Errorf("getting a config: %w", err)
	}

	dict, err := loadDictionary(config.Dictionary)
	if err != nil {
		return nil, err
	}

	log.Debug("dictionary loaded", zap.Any("stats", dict.Stats()))

	rt := &runtime{config: config, logger: log, dict: dict}

	opts := []ats.Option{ats.WithLogger(log)}
	if elaborate || config.AI.Enabled {
		elab, err := rt.newElaborator(ctx)
		if err != nil {
			// Elaboration is optional; scoring works without it.
			log.Warn("skipping elaboration", zap.Error(err))
		} else {
			rt.elaborator = elab
			opts = append(opts, ats.WithElaborator(elab))
		}
	}

	engine, err := ats.New(dict, config.Scoring, opts...)
	if err != nil {
		return nil, err
	}
	rt.engine = engine

	return rt, nil
}

func loadDictionary(path string) (*dictionary.Dictionary, error) {
	if strings.TrimSpace(path) == "" {
		return dictionary.Default()
	}
	return dictionary.LoadFile(path)
}

func (r *runtime) newElaborator(ctx context.Context) (ai.Elaborator, error) {
	cfg := r.config.AI
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.Provider {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	aiLogger := logger.ForElaboration(r.logger, gemini.Provider, cfg.Gemini.Model).
		With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, aiLogger)
	if err != nil {
		return nil, err
	}

	elab, err := gemini.NewElaborator(generator, aiLogger, cfg.Gemini.MaxLogLength)
	if err != nil {
		return nil, err
	}

	if !r.config.Cache.Enabled {
		return elab, nil
	}

	store := cache.NewRedis(ctx, r.config.Cache.Options, r.logger)
	r.closers = append(r.closers, store.Close)
	r.cache = store
	if !store.Available() {
		return elab, nil
	}
	return cache.NewElaborator(elab, store, generator.Model(), r.logger), nil
}
