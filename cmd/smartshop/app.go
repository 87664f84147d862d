package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bububa/smart-shop/agents"
	"github.com/bububa/smart-shop/catalog"
	"github.com/bububa/smart-shop/components"
	"github.com/bububa/smart-shop/config"
	"github.com/bububa/smart-shop/inventory"
	"github.com/bububa/smart-shop/llm"
	"github.com/bububa/smart-shop/matcher"
	"github.com/bububa/smart-shop/receipt"
	"github.com/bububa/smart-shop/reconcile"
	"github.com/bububa/smart-shop/schema"
)

// app holds the wired components for one command run
type app struct {
	store *catalog.Store
	svc   *inventory.Service
}

func (a *app) Close() {
	a.store.Close()
}

// newApp wires the store, agents and service from cfg. Agents whose provider has
// no api key are left out: the matcher then resolves exact names only and
// receipt extraction reports a failure.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	tpl, err := catalog.LoadTemplate(cfg.Catalog.TemplatePath)
	if err != nil {
		return nil, err
	}
	store := catalog.NewStore(
		catalog.NewFile(cfg.Catalog.Path),
		tpl,
		catalog.WithQueueTimeout(cfg.Catalog.QueueTimeout),
		catalog.WithLogger(logger.Named("catalog")),
	)

	counter := components.NewTokenCounter("")
	var oracle matcher.Oracle
	if opts, err := agentOptions(ctx, cfg, cfg.LLM.Match, cfg.LLM.MatchTimeout, counter, logger); err != nil {
		logger.Warn("item matcher runs without llm", zap.Error(err))
	} else {
		agent := matcher.NewMatchAgent(opts...)
		withHooks(agent, logger)
		oracle = matcher.NewAgentOracle(agent)
	}
	m := matcher.New(oracle, matcher.WithTimeout(cfg.LLM.MatchTimeout), matcher.WithLogger(logger.Named("matcher")))
	reconciler := reconcile.New(store, m, reconcile.WithLogger(logger.Named("reconcile")))

	svcOpts := []inventory.Option{
		inventory.WithMaxImageSize(cfg.Server.MaxUploadSize),
		inventory.WithLogger(logger.Named("inventory")),
	}
	if opts, err := agentOptions(ctx, cfg, cfg.LLM.Extract, cfg.LLM.Timeout, counter, logger); err != nil {
		logger.Warn("receipt extraction disabled", zap.Error(err))
	} else {
		agent := receipt.NewExtractAgent(opts...)
		withHooks(agent, logger)
		svcOpts = append(svcOpts, inventory.WithExtractor(receipt.NewAgentExtractor(agent)))
	}
	archive, err := newArchive(cfg.Archive)
	if err != nil {
		store.Close()
		return nil, err
	}
	svcOpts = append(svcOpts, inventory.WithArchive(archive))

	return &app{
		store: store,
		svc:   inventory.New(store, reconciler, svcOpts...),
	}, nil
}

func agentOptions(ctx context.Context, cfg *config.Config, role config.RoleConfig, timeout time.Duration, counter components.TokenCounter, logger *zap.Logger) ([]agents.Option, error) {
	provider, err := llm.ParseProvider(role.Provider)
	if err != nil {
		return nil, err
	}
	clt, err := llm.New(ctx, provider, cfg.LLM.Credentials(provider))
	if err != nil {
		return nil, err
	}
	return []agents.Option{
		clt.AgentOption(),
		agents.WithModel(role.Model),
		agents.WithTemperature(cfg.LLM.Temperature),
		agents.WithMaxTokens(cfg.LLM.MaxTokens),
		agents.WithTimeout(timeout),
		agents.WithTokenCounter(counter),
		agents.WithLogger(logger.Named("agent")),
	}, nil
}

// withHooks logs every agent call with its token usage
func withHooks[I schema.Schema, O schema.Schema](agent *agents.Agent[I, O], logger *zap.Logger) {
	agent.SetStartHook(func(_ context.Context, a *agents.Agent[I, O], _ *I) {
		logger.Debug("agent start", zap.String("agent", a.Name()), zap.String("model", a.Model()))
	})
	agent.SetEndHook(func(_ context.Context, a *agents.Agent[I, O], _ *I, _ *O, resp *components.ApiResponse) {
		fields := []zap.Field{zap.String("agent", a.Name()), zap.String("model", a.Model())}
		if resp != nil && resp.Usage != nil {
			fields = append(fields, zap.Int("input_tokens", resp.Usage.InputTokens), zap.Int("output_tokens", resp.Usage.OutputTokens))
		}
		logger.Info("agent done", fields...)
	})
	agent.SetErrorHook(func(_ context.Context, a *agents.Agent[I, O], _ *I, _ *components.ApiResponse, err error) {
		logger.Warn("agent failed", zap.String("agent", a.Name()), zap.Error(err))
	})
}

func newArchive(cfg config.ArchiveConfig) (receipt.Archive, error) {
	switch cfg.Backend {
	case config.ArchiveS3:
		return receipt.NewS3(
			receipt.WithS3Bucket(cfg.S3.Bucket),
			receipt.WithS3Prefix(cfg.S3.Prefix),
			receipt.WithS3Client(receipt.NewS3Client(cfg.S3.ReceiptS3())),
		)
	case config.ArchiveNone:
		return receipt.Discard{}, nil
	case config.ArchiveDir, "":
		return receipt.NewDir(cfg.Dir), nil
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}
}
