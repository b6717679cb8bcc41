package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jira-mcp-server/internal/application"
	"jira-mcp-server/internal/domain"
	"jira-mcp-server/internal/infrastructure"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// Exit codes.
const (
	exitFailure       = 1
	exitConfiguration = 2
)

type options struct {
	configPath string
	transport  string
	logLevel   string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var cfgErr *domain.ConfigurationError
		if errors.As(err, &cfgErr) {
			os.Exit(exitConfiguration)
		}
		os.Exit(exitFailure)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "jira-mcp-server",
		Short: "MCP server exposing Jira issue operations",
		Long: `jira-mcp-server exposes Jira issue operations (get, create, search, project keys,
current user) to MCP clients over stdio or HTTP+SSE.

Configuration is read from a YAML or TOML file and may be overridden with
JIRA_URL, JIRA_USERNAME, JIRA_PAT and JIRA_PROJECT_KEYS.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML or TOML configuration file")
	cmd.Flags().StringVar(&opts.transport, "transport", "", "transport override: stdio or http")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "log level override: debug, info, warn, error")

	return cmd
}

// loadConfig loads the file and applies command-line overrides.
func loadConfig(opts *options) (*domain.Config, error) {
	config, err := domain.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	if opts.transport == "" && opts.logLevel == "" {
		return config, nil
	}
	if opts.transport != "" {
		config.Transport.Type = opts.transport
	}
	if opts.logLevel != "" {
		config.Logging.Level = opts.logLevel
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func run(ctx context.Context, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	config, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger, err := application.NewLogger(config.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	observer, shutdownTelemetry, err := application.SetupTelemetry(ctx, config.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	transport, err := newTransport(config, logger)
	if err != nil {
		return err
	}

	server, err := buildServer(config, transport, observer, logger)
	if err != nil {
		return err
	}

	if err := server.Start(ctx); err != nil {
		return err
	}
	logger.Info("mcp server ready",
		zap.String("transport", config.Transport.Type),
		zap.String("version", version))

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case <-server.Done():
	}

	if err := server.Close(); err != nil {
		return fmt.Errorf("error during server shutdown: %w", err)
	}
	logger.Info("server shutdown complete")
	return nil
}

// buildServer wires configuration into the dispatch stack.
func buildServer(config *domain.Config, transport domain.Transport, observer *application.DispatchObserver, logger *zap.Logger) (*application.Server, error) {
	creds, err := config.CredentialContext()
	if err != nil {
		return nil, err
	}

	httpClient := domain.NewAuthenticatedClient(creds, domain.ClientOptions{
		RequestsPerSecond: config.Jira.RateLimit.RequestsPerSecond,
		Burst:             config.Jira.RateLimit.Burst,
	})
	backend := infrastructure.NewJiraClient(creds.BaseURL(), httpClient)

	adapter, err := application.NewAdapter(creds, backend, application.AdapterOptions{
		ProjectKeys: config.Jira.ProjectKeys,
		Timeout:     config.Jira.TimeoutDuration(),
		MaxResults:  config.Jira.MaxResults,
	})
	if err != nil {
		return nil, err
	}

	registry, err := application.NewRegistry(
		application.JiraTools(adapter, config.Jira.Priorities),
		application.JiraResources(adapter),
	)
	if err != nil {
		return nil, err
	}

	logger.Info("jira backend configured",
		zap.Strings("project_keys", config.Jira.ProjectKeys),
		zap.Int("tools", len(registry.ListTools())))

	dispatcher := application.NewDispatcher(registry, domain.NewResponseMapper(), observer, logger)
	return application.NewServer(transport, dispatcher, logger, config.Server.MaxConcurrent, version), nil
}

func newTransport(config *domain.Config, logger *zap.Logger) (domain.Transport, error) {
	switch config.Transport.Type {
	case "stdio":
		return domain.NewStdioTransport(logger), nil
	case "http":
		logger.Info("starting http transport",
			zap.String("host", config.Transport.HTTP.Host),
			zap.Int("port", config.Transport.HTTP.Port))
		return domain.NewHTTPTransport(config.Transport.HTTP.Host, config.Transport.HTTP.Port, logger), nil
	default:
		return nil, domain.NewConfigurationError(fmt.Sprintf("invalid transport type '%s'", config.Transport.Type))
	}
}
