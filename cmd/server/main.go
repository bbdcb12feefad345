// Command server runs the gpt-oss-mcp server: web search, session-scoped
// document browsing, and per-session LLM delegation over MCP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/buyo-io/gpt-oss-mcp/internal/adapter/llm"
	"github.com/buyo-io/gpt-oss-mcp/internal/adapter/mcpserver"
	"github.com/buyo-io/gpt-oss-mcp/internal/adapter/search"
	"github.com/buyo-io/gpt-oss-mcp/internal/infra/config"
	"github.com/buyo-io/gpt-oss-mcp/internal/infra/logger"
	"github.com/buyo-io/gpt-oss-mcp/internal/infra/tracer"
	"github.com/buyo-io/gpt-oss-mcp/internal/usecase/browse"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to config file")
	transport := flag.String("transport", "", "override transport: stdio or http")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *transport != "" {
		cfg.Server.Transport = *transport
		if err := config.Validate(cfg); err != nil {
			return err
		}
	}

	log, closeLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer closeLogger()

	ctx := context.Background()
	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			log.Warn("tracer shutdown", "error", err)
		}
	}()

	backend, err := buildBackend(cfg, log)
	if err != nil {
		return err
	}

	registry := browse.NewRegistry(cfg.Sessions, log)
	defer registry.Stop()

	engine := browse.NewEngine(registry, backend, browse.EngineConfig{
		DefaultTopN:   cfg.Browse.DefaultTopN,
		MaxTopN:       cfg.Browse.MaxTopN,
		MaxPageLines:  cfg.Browse.MaxPageLines,
		SearchTimeout: cfg.Search.Timeout,
		FetchTimeout:  cfg.Search.FetchTimeout,
	}, log)

	provider := llm.NewOpenAIProvider(cfg.LLM.Timeout, log)
	bridge := browse.NewBridge(registry, engine, provider, browse.BridgeConfig{
		Timeout:         cfg.LLM.Timeout,
		MaxContextBytes: cfg.LLM.MaxContextBytes,
	}, log)

	srv := mcpserver.New(cfg.Server.Name, cfg.Server.Version, engine, bridge, registry, log)

	log.Info("server starting",
		"transport", cfg.Server.Transport,
		"search_backend", backend.Name(),
	)

	switch cfg.Server.Transport {
	case "stdio":
		return srv.ServeStdio()
	case "http":
		return serveHTTP(srv, cfg.Server.Addr, log)
	default:
		return fmt.Errorf("unsupported transport: %s", cfg.Server.Transport)
	}
}

// buildBackend constructs the configured search backend and wraps it with
// rate limiting and circuit breaker protection.
func buildBackend(cfg *config.Config, log *slog.Logger) (search.Backend, error) {
	var inner search.Backend
	switch cfg.Search.Backend {
	case "searxng":
		inner = search.NewSearXNGBackend(search.SearXNGConfig{
			InstanceURL:   cfg.Search.SearXNGURL,
			Timeout:       cfg.Search.Timeout,
			FetchTimeout:  cfg.Search.FetchTimeout,
			MaxFetchBytes: cfg.Search.MaxFetchBytes,
		}, log)
	case "exa":
		inner = search.NewExaBackend(search.ExaConfig{
			BaseURL: cfg.Search.ExaBaseURL,
			APIKey:  cfg.Search.ExaAPIKey,
			Timeout: cfg.Search.Timeout,
		}, log)
	default:
		return nil, fmt.Errorf("unsupported search backend: %s", cfg.Search.Backend)
	}
	return search.NewGuardedBackend(inner, cfg.Search, log), nil
}

func serveHTTP(srv *mcpserver.Server, addr string, log *slog.Logger) error {
	httpSrv := srv.NewHTTPServer()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.Start(addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
