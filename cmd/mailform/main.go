// Package main is the entry point for the mailform server.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shineum/mailform/internal/compose"
	"github.com/shineum/mailform/internal/config"
	"github.com/shineum/mailform/internal/draft"
	"github.com/shineum/mailform/internal/provider"
	"github.com/shineum/mailform/internal/provider/graph"
	natsprovider "github.com/shineum/mailform/internal/provider/nats"
	"github.com/shineum/mailform/internal/provider/ses"
	"github.com/shineum/mailform/internal/provider/stdout"
	mftls "github.com/shineum/mailform/internal/tls"
	"github.com/shineum/mailform/internal/web"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (optional)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Logging.Level)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		slog.Info("received signal, initiating shutdown", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("mailform stopped")
}

// run wires the components together and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	prov, closeProvider, err := selectProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeProvider()

	store, closeStore, err := selectStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	tlsConfig, tlsMode, err := setupTLS(cfg)
	if err != nil {
		return err
	}

	server, err := web.New(web.Config{
		CookieName:    cfg.Server.CookieName,
		DraftTTL:      cfg.Draft.TTL,
		SecureCookie:  tlsConfig != nil,
		Username:      cfg.Server.Username,
		Password:      cfg.Server.Password,
		ImportMaxSize: cfg.Import.MaxFileSize,
	}, store, compose.New(prov, cfg.Submit.Delay))
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	slog.Info("starting mailform",
		"listen", cfg.Server.Listen,
		"provider", prov.Name(),
		"draft_store", cfg.Draft.Store,
		"auth_enabled", cfg.AuthEnabled(),
		"tls_mode", tlsMode,
		"submit_delay", cfg.Submit.Delay,
	)

	return server.ListenAndServe(ctx, cfg.Server.Listen, tlsConfig)
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(level string) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupTLS returns nil when TLS is disabled.
func setupTLS(cfg *config.Config) (*tls.Config, string, error) {
	if !cfg.TLS.Enabled {
		return nil, "disabled", nil
	}

	tlsConfig, err := mftls.LoadOrGenerateTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile, mftls.HostFromListen(cfg.Server.Listen))
	if err != nil {
		return nil, "", fmt.Errorf("failed to setup TLS: %w", err)
	}

	if cfg.TLS.CertFile != "" {
		return tlsConfig, "file", nil
	}
	return tlsConfig, "self-signed", nil
}

// selectProvider builds the delivery backend named by cfg.Provider. The
// returned func releases its resources.
func selectProvider(ctx context.Context, cfg *config.Config) (provider.Provider, func(), error) {
	noop := func() {}

	switch cfg.Provider {
	case "", "stdout":
		slog.Info("using stdout provider, messages are simulated and not delivered")
		return stdout.New(), noop, nil

	case "ses":
		slog.Info("using AWS SES provider",
			"region", cfg.SES.Region,
			"sender", cfg.SES.Sender,
		)
		p, err := ses.New(ctx, ses.Config{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
			Sender:          cfg.SES.Sender,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create SES provider: %w", err)
		}
		return p, noop, nil

	case "graph":
		slog.Info("using Microsoft Graph provider",
			"sender", cfg.Graph.Sender,
		)
		return graph.New(graph.Config{
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
			Sender:       cfg.Graph.Sender,
		}), noop, nil

	case "nats":
		p, err := natsprovider.New(natsprovider.Config{
			URL:     cfg.NATS.URL,
			Stream:  cfg.NATS.Stream,
			Subject: cfg.NATS.Subject,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create NATS provider: %w", err)
		}
		slog.Info("using NATS JetStream provider", "url", cfg.NATS.URL)
		return p, func() {
			if err := p.Close(); err != nil {
				slog.Warn("failed to drain NATS connection", "error", err)
			}
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// selectStore builds the draft store named by cfg.Draft.Store.
func selectStore(ctx context.Context, cfg *config.Config) (draft.Store, func(), error) {
	switch cfg.Draft.Store {
	case "", "memory":
		return draft.NewMemoryStore(cfg.Draft.TTL), func() {}, nil

	case "redis":
		client, err := draft.NewRedisClient(ctx, cfg.Draft.RedisAddr, cfg.Draft.RedisPassword)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using redis draft store", "addr", cfg.Draft.RedisAddr)
		return draft.NewRedisStore(client, cfg.Draft.TTL), func() { client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown draft store %q", cfg.Draft.Store)
	}
}
