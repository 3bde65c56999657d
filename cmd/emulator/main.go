package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/raywall/psn-session-emulator/pkg/clock"
	"github.com/raywall/psn-session-emulator/pkg/config"
	"github.com/raywall/psn-session-emulator/pkg/dispatcher"
	"github.com/raywall/psn-session-emulator/pkg/logger"
	"github.com/raywall/psn-session-emulator/pkg/match"
	"github.com/raywall/psn-session-emulator/pkg/metrics"
	"github.com/raywall/psn-session-emulator/pkg/npsession"
	"github.com/raywall/psn-session-emulator/pkg/observability"
	"github.com/raywall/psn-session-emulator/pkg/playersession"
	"github.com/rs/zerolog"
)

const (
	defaultConfigPath = "emulator.conf"
	shutdownTimeout   = 5 * time.Second
)

// Injetável para testes
var serverStarter = startServer

func main() {
	path := flag.String("config", "", "arquivo de configuração (key=value ou .yaml)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, configPath(*path)); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

// configPath escolhe o arquivo: flag, depois PSNEMU_CONFIG, depois o default.
func configPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("PSNEMU_CONFIG"); env != "" {
		return env
	}
	return defaultConfigPath
}

// loadConfig lê o arquivo; um arquivo ausente não é erro e o emulador sobe com
// os defaults (mais o ambiente).
func loadConfig(path string) (config.EmulatorConfig, bool, error) {
	cfg, err := config.LoadFile(path)
	if err == nil {
		return cfg, true, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return cfg, false, err
	}

	cfg = config.Defaults()
	if err := config.ApplyEnv(&cfg); err != nil {
		return cfg, false, err
	}
	if err := config.NewValidator().Validate(&cfg); err != nil {
		return cfg, false, err
	}
	return cfg, false, nil
}

// run contém a orquestração testável: config, logger, métricas, módulos e servidor.
func run(ctx context.Context, path string) error {
	cfg, found, err := loadConfig(path)
	if err != nil {
		return fmt.Errorf("configuração inválida: %w", err)
	}

	lg, closer, err := logger.Configure(cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()

	if !found {
		lg.Warn().Str("path", path).Msg("arquivo de configuração não encontrado, usando defaults")
	}

	provider, err := observability.SetupMetrics(cfg.Metrics)
	if err != nil {
		return err
	}
	if c, ok := provider.(interface{ Close() error }); ok {
		defer c.Close()
	}

	var stubs []dispatcher.StubRoute
	if cfg.StubRoutes != "" {
		if stubs, err = dispatcher.LoadStubs(cfg.StubRoutes); err != nil {
			return err
		}
		lg.Info().Int("count", len(stubs)).Str("path", cfg.StubRoutes).Msg("stubs carregados")
	}

	counters := metrics.NewCounters()
	clk := clock.System{}
	modules := dispatcher.Modules{
		NPSession:     npsession.NewModule(npsession.NewStore(), clk, counters, lg),
		PlayerSession: playersession.NewModule(playersession.NewStore(), clk, counters, lg),
		Match: match.NewModule(match.NewStore(), match.Options{
			Activities:     cfg.Activities,
			ConflictWindow: cfg.GetMatchConflictWindow(),
		}, clk, counters, lg),
	}

	d := dispatcher.New(modules, counters, dispatcher.Options{
		FakeAuthExpiry: cfg.FakeAuthExpiry,
		FakeRateLimit:  cfg.FakeRateLimit,
		LogHTTP:        cfg.Logging.HTTP,
		CORS:           cfg.CORS,
		Stubs:          stubs,
	}, lg)

	reporterCtx, cancelReporter := context.WithCancel(ctx)
	defer cancelReporter()
	go metrics.NewReporter(counters, provider, cfg.GetReportInterval(), lg).Run(reporterCtx)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           d.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	lg.Info().Int("port", cfg.Port).Int("activities", len(cfg.Activities)).Msg("emulador PSN iniciado")
	return serverStarter(ctx, srv, lg)
}

// startServer atende até ctx ser cancelado e então encerra com graceful shutdown.
func startServer(ctx context.Context, srv *http.Server, lg zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	lg.Info().Msg("encerrando servidor")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("falha no shutdown: %w", err)
	}
	return nil
}
