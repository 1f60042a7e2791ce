// Command triage routes employee queries to domain agents and prints their
// grounded answers.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/ahrav/go-triage/infrastructure/index"
	"github.com/ahrav/go-triage/infrastructure/llm"
	"github.com/ahrav/go-triage/infrastructure/middleware"
	"github.com/ahrav/go-triage/infrastructure/trace"
	"github.com/ahrav/go-triage/internal/agent"
	"github.com/ahrav/go-triage/internal/application"
	"github.com/ahrav/go-triage/internal/domain"
	"github.com/ahrav/go-triage/internal/ports"
	"github.com/ahrav/go-triage/internal/prompt"
)

func main() {
	configPath := flag.String("config", "configs/triage.yaml", "path to the triage configuration file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(*configPath, logger); err != nil {
		logger.Error("triage failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(configPath string, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := application.LoadConfig(configPath)
	if err != nil {
		return err
	}

	metrics := middleware.NewPrometheusMetrics(prometheus.NewRegistry())
	sink := trace.Safe(
		trace.NewOtelSink(otel.Tracer("triage"), logger, nil),
		logger,
	)
	defer sink.Flush(context.Background())

	registry, err := buildProviderRegistry(cfg, metrics)
	if err != nil {
		return err
	}

	router, err := buildRouter(ctx, cfg, registry, sink, metrics, logger)
	if err != nil {
		return err
	}

	return interact(ctx, router, logger)
}

// buildProviderRegistry configures one client factory per provider named in
// the config, with retry and metrics middleware applied to every client.
func buildProviderRegistry(cfg *application.Config, metrics ports.MetricsCollector) (*llm.Registry, error) {
	registry := llm.NewRegistry()
	for name, provider := range cfg.Providers {
		registry.Configure(name, llm.ClientConfig{
			APIKey:  provider.APIKey,
			BaseURL: provider.BaseURL,
			Timeout: provider.Timeout(),
			Middleware: []llm.Middleware{
				llm.TracingMiddleware(otel.Tracer("triage.llm")),
				llm.MetricsMiddleware(metrics),
				llm.RetryMiddleware(2, 500*time.Millisecond, 5*time.Second),
			},
		})
	}
	return registry, nil
}

// buildRouter assembles the full pipeline: embedder, index opener, agents,
// answerer, registry, scorer, and the router on top.
func buildRouter(
	ctx context.Context,
	cfg *application.Config,
	providers *llm.Registry,
	sink ports.TraceSink,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
) (*agent.Router, error) {
	embedder, err := buildEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opener, err := index.NewSQLiteOpener(embedder, logger)
	if err != nil {
		return nil, err
	}

	answerLLM, err := providers.Resolve(cfg.Answerer.Model)
	if err != nil {
		return nil, fmt.Errorf("answerer model: %w", err)
	}
	groundingTmpl, err := prompt.LoadGrounding(cfg.Answerer.PromptPath)
	if err != nil {
		return nil, err
	}
	answerer, err := agent.NewAnswerer(answerLLM, groundingTmpl, agent.AnswererConfig{
		TopK:        cfg.Answerer.TopK,
		MaxTokens:   cfg.Answerer.MaxTokens,
		Temperature: cfg.Answerer.Temperature,
	}, logger)
	if err != nil {
		return nil, err
	}

	registry, err := agent.NewRegistry(answerer, logger, metrics)
	if err != nil {
		return nil, err
	}
	for _, agentCfg := range cfg.Agents {
		agentType, err := domain.ParseAgentType(agentCfg.Domain)
		if err != nil {
			return nil, err
		}
		ag, err := agent.NewDomainAgent(agentType, agentCfg.IndexPath, opener)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(ag); err != nil {
			return nil, err
		}
	}
	if unavailable := registry.WarmUp(ctx); len(unavailable) > 0 {
		logger.Warn("some agents will serve degraded answers",
			zap.Int("count", len(unavailable)))
	}

	routerLLM, err := providers.Resolve(cfg.Router.Model)
	if err != nil {
		return nil, fmt.Errorf("router model: %w", err)
	}
	policy, err := prompt.LoadRoutingPolicy(cfg.Router.PromptPath)
	if err != nil {
		return nil, err
	}

	opts := []agent.RouterOption{
		agent.WithTraceSink(sink),
		agent.WithMetrics(metrics),
	}
	if cfg.Scorer != nil {
		judgeLLM, err := providers.Resolve(cfg.Scorer.Model)
		if err != nil {
			return nil, fmt.Errorf("scorer model: %w", err)
		}
		scorer, err := agent.NewQualityScorer(judgeLLM, sink, logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, agent.WithScorer(scorer))
	}

	return agent.NewRouter(routerLLM, registry, policy, logger, opts...)
}

// buildEmbedder constructs the query embedder from the embedding model
// string. Only the google provider serves embeddings today.
func buildEmbedder(ctx context.Context, cfg *application.Config) (ports.Embedder, error) {
	providerType, model, err := llm.ParseModelString(cfg.Embedding.Model)
	if err != nil {
		return nil, err
	}
	if providerType != "google" {
		return nil, fmt.Errorf("embedding provider %q is not supported", providerType)
	}
	provider, ok := cfg.Providers[providerType]
	if !ok {
		return nil, fmt.Errorf("embedding provider %q is not configured", providerType)
	}
	return index.NewGoogleEmbedder(ctx, provider.APIKey, model)
}

// interact runs the read-route-print loop until the user exits or the
// context is cancelled.
func interact(ctx context.Context, router *agent.Router, logger *zap.Logger) error {
	fmt.Println("Ask a question (exit, quit, or q to leave):")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch strings.ToLower(line) {
		case "exit", "quit", "q":
			fmt.Println("Goodbye.")
			return nil
		}

		router.SetQuery(line)
		answer, err := router.Run(ctx)
		if err != nil {
			logger.Error("routing failed", zap.Error(err))
			fmt.Println("Something went wrong answering that; please try again.")
			continue
		}
		fmt.Println(answer)
	}
}
