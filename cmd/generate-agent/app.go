package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Lewis121025/Generate-Agent/budget"
	"github.com/Lewis121025/Generate-Agent/config"
	"github.com/Lewis121025/Generate-Agent/creative"
	"github.com/Lewis121025/Generate-Agent/general"
	"github.com/Lewis121025/Generate-Agent/logging"
	"github.com/Lewis121025/Generate-Agent/media"
	"github.com/Lewis121025/Generate-Agent/model"
	"github.com/Lewis121025/Generate-Agent/model/anthropic"
	"github.com/Lewis121025/Generate-Agent/model/openai"
	"github.com/Lewis121025/Generate-Agent/provider"
	"github.com/Lewis121025/Generate-Agent/quality"
	"github.com/Lewis121025/Generate-Agent/queue"
	"github.com/Lewis121025/Generate-Agent/sandbox"
	"github.com/Lewis121025/Generate-Agent/store"
	"github.com/Lewis121025/Generate-Agent/telemetry"
	"github.com/Lewis121025/Generate-Agent/tool"
)

// app holds the wired engine for one command invocation.
type app struct {
	settings *config.Settings
	logger   logging.Logger
	db       *sql.DB
	jobs     *queue.Queue

	creative *creative.Orchestrator
	general  *general.Orchestrator
}

// newApp wires the full engine from settings.
func newApp(settings *config.Settings) (*app, error) {
	logger := logging.New(logging.ParseLevel(settings.LogLevel), settings.LogFormat, os.Stderr)

	if dir := filepath.Dir(settings.DBPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	db, err := store.Open(settings.DBPath)
	if err != nil {
		return nil, err
	}

	sink := telemetry.NewLoggerSink(logger)
	tracker, err := budget.NewTracker(func(o *budget.Options) {
		o.DefaultLimitUSD = settings.Budget.DefaultLimitUSD
		o.AlertPercentages = settings.Budget.AlertPercentages
		o.Sink = sink
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	registry := buildRegistry(settings)
	sb, err := buildSandbox(settings)
	if err != nil {
		db.Close()
		return nil, err
	}
	limits := sandbox.Limits{
		Timeout:        time.Duration(settings.Sandbox.TimeoutSeconds) * time.Second,
		MaxOutputBytes: settings.Sandbox.MaxOutputKB * 1024,
		MaxMemoryMB:    settings.Sandbox.MaxMemoryMB,
	}

	runtime := tool.NewRuntime(func(o *tool.RuntimeOptions) {
		o.Sink = sink
		o.Logger = logger
	})
	tool.RegisterDefaults(runtime, sb, limits, registry)

	rules := quality.DefaultRules()
	if settings.QualityRules != "" {
		rules, err = quality.LoadRules(settings.QualityRules)
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	llm := buildModel(settings)
	jobs := queue.New(func(o *queue.Options) { o.Logger = logger })

	creativeOrch := creative.NewOrchestrator(
		store.NewSQLiteProjects(db),
		creative.NewAgent(llm),
		quality.NewGate(llm, func(o *quality.GateOptions) {
			o.Rules = rules
			o.Logger = logger
		}),
		tracker,
		runtime,
		func(o *creative.OrchestratorOptions) {
			o.Jobs = jobs
			o.Assets = media.NewStore()
			o.Sink = sink
			o.Logger = logger
			o.AutoPauseEnabled = settings.Budget.AutoPauseEnabled
			o.AutoPauseRatio = settings.Budget.AutoPauseRatio
		},
	)
	generalOrch := general.NewOrchestrator(
		store.NewSQLiteSessions(db), llm, runtime, tracker,
		func(o *general.OrchestratorOptions) {
			o.Sink = sink
			o.Logger = logger
		},
	)

	return &app{
		settings: settings,
		logger:   logger,
		db:       db,
		jobs:     jobs,
		creative: creativeOrch,
		general:  generalOrch,
	}, nil
}

// Close releases the queue workers and the database.
func (a *app) Close() {
	a.jobs.Close()
	a.db.Close()
}

func buildModel(settings *config.Settings) model.Provider {
	switch settings.Providers.Model {
	case "openai":
		return openai.New(func(o *openai.Options) { o.APIKey = settings.Providers.OpenAIKey })
	case "anthropic":
		return anthropic.New(func(o *anthropic.Options) { o.APIKey = settings.Providers.AnthropicKey })
	default:
		return model.NewMock("This is a mock completion. Configure providers.model for real output.")
	}
}

func buildRegistry(settings *config.Settings) *provider.Registry {
	registry := provider.NewRegistry()
	if key := settings.Providers.TavilyKey; key != "" {
		registry.RegisterSearch("tavily", provider.NewTavilySearch(key))
	}
	if key := settings.Providers.FirecrawlKey; key != "" {
		registry.RegisterScrape("firecrawl", provider.NewFirecrawlScrape(key))
	}
	if key := settings.Providers.RunwayKey; key != "" {
		registry.RegisterVideo("runway", provider.NewRunwayVideo(key))
	}
	if key := settings.Providers.ElevenLabsKey; key != "" {
		registry.RegisterTTS("elevenlabs", provider.NewElevenLabsTTS(key))
	}
	registry.SetDefaults(
		settings.Providers.Search,
		settings.Providers.Scrape,
		settings.Providers.Video,
		settings.Providers.TTS,
	)
	return registry
}

func buildSandbox(settings *config.Settings) (sandbox.Sandbox, error) {
	switch settings.Sandbox.Tier {
	case "local":
		return sandbox.NewLocal(settings.Environment), nil
	case "process":
		return sandbox.NewProcess("python3"), nil
	case "remote":
		return sandbox.NewRemote(settings.Sandbox.RemoteURL, settings.Sandbox.RemoteAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown sandbox tier %q", settings.Sandbox.Tier)
	}
}
