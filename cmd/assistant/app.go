package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/castlemilk/pfinance/assistant/internal/config"
	"github.com/castlemilk/pfinance/assistant/internal/extraction"
	"github.com/castlemilk/pfinance/assistant/internal/llm"
	"github.com/castlemilk/pfinance/assistant/internal/logger"
	"github.com/castlemilk/pfinance/assistant/internal/service"
	"github.com/castlemilk/pfinance/assistant/internal/sheets"
	"github.com/castlemilk/pfinance/assistant/internal/store"
)

// app holds everything a command needs. close releases it in reverse
// order of construction.
type app struct {
	cfg       *config.Config
	appConfig *config.AppConfig
	logger    zerolog.Logger
	extractor *extraction.ExtractionService
	tracker   *service.TrackerService

	closers []func() error
}

// loadSettings reads the environment, applies global flags and opens the
// model registry. Nothing is started.
func loadSettings(c *cli.Context) (*config.Config, *config.AppConfig, zerolog.Logger, error) {
	cfg := config.Load()
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("db") {
		cfg.Store.DBPath = c.String("db")
	}
	if c.Bool("memory") {
		cfg.Store.Driver = config.StoreMemory
	}
	if c.IsSet("model") {
		cfg.LLM.Model = c.String("model")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, zerolog.Nop(), fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.Configure(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	appConfig, err := config.LoadAppConfig(cfg.LLM.AppConfigPath)
	if err != nil {
		return nil, nil, log, err
	}
	return cfg, appConfig, log, nil
}

// newApp builds the full tracker: store, model, extraction, mirror.
func newApp(c *cli.Context) (*app, error) {
	cfg, appConfig, log, err := loadSettings(c)
	if err != nil {
		return nil, err
	}
	ctx := c.Context
	a := &app{cfg: cfg, appConfig: appConfig, logger: log}

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, st.Close)

	model := a.newModel(ctx)
	a.extractor = extraction.NewExtractionService(ctx, extraction.Config{
		Model:         model,
		HostedTimeout: cfg.LLM.HostedTimeout,
		LocalTimeout:  cfg.LLM.LocalTimeout,
		ProbeTimeout:  cfg.LLM.ProbeTimeout,
		Logger:        &log,
	})
	router := extraction.NewRouter(a.extractor, log)

	var mirror service.Mirror
	if cfg.Sheets.Enabled {
		syncer, err := a.newSyncer(ctx)
		if err != nil {
			a.close()
			return nil, err
		}
		mirror = syncer
	}

	a.tracker = service.NewTrackerService(router, st, mirror, log)
	return a, nil
}

// newModel returns the selected model, or nil when it cannot be built.
func (a *app) newModel(ctx context.Context) extraction.Model {
	name, settings := a.appConfig.Current()
	if a.cfg.LLM.Model != "" {
		name, settings = a.appConfig.Resolve(a.cfg.LLM.Model)
	}
	model, err := llm.New(ctx, name, settings)
	if err != nil {
		var extErr *extraction.ExtractionError
		if errors.As(err, &extErr) && extErr.Code == extraction.ErrModelCredentialsMissing {
			a.logger.Warn().Str("model", name).Str("env", settings.APIKeyEnv).Msg("api key not set, running offline")
		} else {
			a.logger.Warn().Err(err).Str("model", name).Msg("model unavailable, running offline")
		}
		return nil
	}
	return model
}

func (a *app) newSyncer(ctx context.Context) (*sheets.Syncer, error) {
	var uploader sheets.Uploader
	if bucket := a.cfg.Sheets.GCSBucket; bucket != "" {
		gcs, err := sheets.NewGCSUploader(ctx, bucket, a.cfg.Sheets.GCSObject, a.cfg.Sheets.GCSCredentialsFile)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, gcs.Close)
		uploader = gcs
	}
	syncer := sheets.NewSyncer(sheets.NewWorkbook(a.cfg.Sheets.Path), uploader, a.logger)
	// The syncer drains before the uploader closes.
	a.closers = append(a.closers, syncer.Close)
	return syncer, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn().Err(err).Msg("close failed")
		}
	}
	a.closers = nil
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	if cfg.Store.Driver == config.StoreMemory {
		log.Info().Msg("using in-memory store")
		return store.NewMemoryStore(), nil
	}
	st, err := store.OpenSQLite(ctx, cfg.Store.DBPath, log)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// withApp runs fn against a fully built app.
func withApp(fn func(c *cli.Context, a *app) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, err := newApp(c)
		if err != nil {
			return err
		}
		defer a.close()
		return fn(c, a)
	}
}
