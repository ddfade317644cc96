package main

import (
	"context"
	"errors"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/hupe1980/sentinel"
	"github.com/hupe1980/sentinel/artifact"
	"github.com/hupe1980/sentinel/core"
	"github.com/hupe1980/sentinel/engine"
	"github.com/hupe1980/sentinel/internal/config"
	"github.com/hupe1980/sentinel/logging"
	"github.com/hupe1980/sentinel/model"
	"github.com/hupe1980/sentinel/model/anthropic"
	"github.com/hupe1980/sentinel/model/gemini"
	"github.com/hupe1980/sentinel/model/openai"
	"github.com/hupe1980/sentinel/policy"
	"github.com/hupe1980/sentinel/sqlite"
)

// app is built once per invocation in PersistentPreRunE.
type app struct {
	cfg    config.Config
	logger *logging.SentinelLogger
	s      *sentinel.Sentinel
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var (
		dbPath   string
		provider string
		logLevel string
	)

	root := &cobra.Command{
		Use:           "sentinel",
		Short:         "Talk to ranked agents that can act on your roster",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			if cmd.Flags().Changed("provider") {
				cfg.Provider = provider
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return a.init(cmd.Context(), cfg)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.s == nil {
				return nil
			}
			return a.s.Close()
		},
	}

	root.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default: in-memory)")
	root.PersistentFlags().StringVar(&provider, "provider", "", "model provider: mock, openai, anthropic, gemini")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newChatCmd(a),
		newAgentsCmd(a),
		newKnowledgeCmd(a),
		newMemoryCmd(a),
		newProjectCmd(a),
	)
	return root
}

func (a *app) init(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.cfg = cfg
	a.logger = logging.NewSlogLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, false)

	m, err := newModel(ctx, cfg, a.logger)
	if err != nil {
		return err
	}

	var authz policy.Authorizer = policy.DefaultTable()
	if cfg.PolicyFile != "" {
		t, err := policy.LoadTable(cfg.PolicyFile)
		if err != nil {
			return err
		}
		authz = t
	}

	var store core.EntityStore
	if cfg.DBPath != "" {
		db, err := sqlite.Open(ctx, cfg.DBPath)
		if err != nil {
			return err
		}
		store = db
	}

	a.s = sentinel.New(m, func(o *sentinel.Options) {
		o.EngineConfig = engine.Config{
			ResearchTrigger: cfg.ResearchTrigger,
			HistoryScan:     cfg.HistoryScan,
			HistoryWindow:   cfg.HistoryWindow,
			KnowledgeBudget: cfg.KnowledgeBudget,
		}
		if store != nil {
			o.Store = store
		}
		o.Files = artifact.NewInMemoryStore(func(ao *artifact.Options) { ao.MaxSize = int(cfg.MaxUploadBytes) })
		o.Authorizer = authz
		o.Logger = a.logger
	})
	return nil
}

func newModel(ctx context.Context, cfg config.Config, logger logging.Logger) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderMock:
		return model.NewMockModel("mock"), nil
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.APIKey = cfg.APIKey
			o.Temperature = cfg.Temperature
			o.Logger = logger
		}), nil
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
			o.APIKey = cfg.APIKey
			o.Temperature = cfg.Temperature
			o.Logger = logger
		}), nil
	case config.ProviderGemini:
		m, err := gemini.NewModel(ctx, func(o *gemini.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.APIKey = cfg.APIKey
			o.Temperature = float32(cfg.Temperature)
			o.Logger = logger
		})
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		return m, nil
	default:
		return nil, errors.New("unknown provider " + cfg.Provider)
	}
}
