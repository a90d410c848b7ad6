// Package main provides the player daemon entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/melodybox/internal/api/connect"
	"github.com/osa030/melodybox/internal/api/playerapi"
	"github.com/osa030/melodybox/internal/app/filter"
	"github.com/osa030/melodybox/internal/app/persist"
	"github.com/osa030/melodybox/internal/app/session"
	"github.com/osa030/melodybox/internal/infra/audio"
	"github.com/osa030/melodybox/internal/infra/catalog"
	"github.com/osa030/melodybox/internal/infra/config"
	"github.com/osa030/melodybox/internal/infra/kv"
	"github.com/osa030/melodybox/internal/infra/logger"
)

var (
	app        = kingpin.New("melodybox-server", "melodybox player daemon")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	logJSON    = app.Flag("log-json", "Write JSON log lines").Bool()

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available filters and exit")
)

func init() {
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
		JSON:   *logJSON,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	closeLog, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closeLog()

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	// Run server (defer ensures shutdown hook is called)
	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	if err := validateFilterConfig(cfg); err != nil {
		return fmt.Errorf("invalid filter config: %w", err)
	}

	ctx := context.Background()

	store, err := kv.New(ctx, cfg.Storage.Type, cfg.Storage.Settings)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			zlog.Warn().Msgf("Failed to close storage: %v", err)
		}
	}()
	persister := persist.New(store, cfg.Storage.Namespace)

	output := newOutput(cfg)

	var cat session.Catalog
	if cfg.Catalog.BaseURL != "" {
		client, err := catalog.New(catalog.Config{
			BaseURL:      cfg.Catalog.BaseURL,
			MediaBaseURL: cfg.Catalog.MediaBaseURL,
			Token:        cfg.Catalog.Token,
			Timeout:      cfg.CatalogTimeout(),
			RetryMax:     cfg.Catalog.RetryMax,
			CacheTTL:     time.Duration(cfg.Catalog.CacheTTLSec) * time.Second,
		})
		if err != nil {
			return fmt.Errorf("failed to create catalog client: %w", err)
		}
		if err := validateCatalog(ctx, client); err != nil {
			zlog.Warn().Msgf("Catalog is not reachable yet: %v", err)
		}
		cat = client
	} else {
		zlog.Info().Msg("Catalog not configured, tracks must be supplied by clients")
	}

	sessionMgr, err := session.NewManager(cfg, output, persister, cat)
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}
	if err := sessionMgr.Start(ctx); err != nil {
		sessionMgr.Close()
		return fmt.Errorf("failed to start session: %w", err)
	}

	playerService := apiconnect.NewPlayerService(sessionMgr, cfg)

	mux := http.NewServeMux()
	playerPath, playerHandler := playerapi.NewPlayerServiceHandler(
		playerService,
		connect.WithInterceptors(apiconnect.NewControlAuthInterceptor(cfg)),
	)
	mux.Handle(playerPath, playerHandler)

	serverAddr := cfg.Server.Addr
	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:    serverAddr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	go func() {
		zlog.Info().Msgf("Starting server: addr=%s output=%s storage=%s", serverAddr, cfg.Output.Type, cfg.Storage.Type)
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case <-sessionMgr.Done():
		zlog.Info().Msg("Session ended, shutting down...")
	case err := <-serverErrCh:
		sessionMgr.Close()
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close session manager first to terminate active streams
	sessionMgr.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

// newOutput creates the audio output named by the config.
func newOutput(cfg *config.Config) audio.Output {
	if cfg.Output.Type == "remote" {
		return audio.NewRemote(cfg.Output.RemoteBuffer)
	}

	vc := audio.VirtualConfig{
		TickInterval:    cfg.TickInterval(),
		DefaultDuration: time.Duration(cfg.Output.DefaultDurationSec) * time.Second,
		RequireGesture:  cfg.Output.RequireGesture,
	}
	if cfg.Output.Probe {
		vc.Probe = audio.NewHTTPProbe(cfg.Output.ProbeRetryMax, time.Duration(cfg.Output.ProbeTimeoutMs)*time.Millisecond)
	}
	return audio.NewVirtual(vc)
}

// printFilters prints available filters.
func printFilters() {
	registered := filter.GetRegistered()
	names := make([]string, 0, len(registered))
	for name := range registered {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Available Filters:")
	for _, name := range names {
		f := registered[name]()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}

// validateFilterConfig validates filter configurations.
func validateFilterConfig(cfg *config.Config) error {
	registry := filter.GetRegistered()

	for filterName, filterCfg := range cfg.Filters {
		factory, exists := registry[filterName]
		if !exists {
			return fmt.Errorf("unknown filter: %s", filterName)
		}
		if !filterCfg.Enabled {
			continue
		}

		f := factory()
		if err := f.ValidateConfig(filterCfg.Settings); err != nil {
			return fmt.Errorf("filter %s: %w", filterName, err)
		}
	}

	return nil
}

// validateCatalog checks that the catalog answers. It retries with a
// backoff to ride out a backend that starts alongside the player.
func validateCatalog(ctx context.Context, client *catalog.Client) error {
	maxRetries := 3
	baseDelay := 1 * time.Second

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			delay := baseDelay * time.Duration(1<<uint(i-1))
			zlog.Info().Msgf("Retrying catalog check in %v...", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		medias, err := client.ListMedia(ctx)
		if err != nil {
			lastErr = err
			zlog.Warn().Msgf("Catalog check failed (attempt %d/%d): %v", i+1, maxRetries, err)
			continue
		}

		zlog.Info().Msgf("Catalog reachable: media=%d", len(medias))
		return nil
	}
	return fmt.Errorf("failed after %d attempts: %v", maxRetries, lastErr)
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
