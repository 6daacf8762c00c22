package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fundra-network/fundra/internal/api"
	"github.com/fundra-network/fundra/internal/app/engine"
	"github.com/fundra-network/fundra/internal/app/scheduler"
	"github.com/fundra-network/fundra/internal/daemon"
	"github.com/fundra-network/fundra/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("config", "", "Path to config file (default ~/.fundra/config.toml)")
	serveCmd.Flags().Bool("debug", false, "Enable debug logging")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the fundra daemon",
	Long: `Start the funding engine, restore state from the sqlite store,
and serve the HTTP API until interrupted.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	debug, _ := cmd.Flags().GetBool("debug")
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	if debug {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath == "" {
		var err error
		cfgPath, err = daemon.ConfigPath()
		if err != nil {
			return err
		}
	}
	cfg, err := daemon.Load(cfgPath)
	if err != nil {
		return err
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return err
	}
	db, err := sqlite.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database %s: %w", dbPath, err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	ecfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	eng := engine.New(ecfg, db, log)
	if err := eng.Boot(); err != nil {
		return fmt.Errorf("restore state: %w", err)
	}
	log.Info().Str("db", dbPath).Int("campaigns", len(eng.ListCampaigns())).Msg("state restored")

	sched, err := scheduler.New(cfg.Scheduler, eng, log)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	sched.Start()

	srv := api.NewServer(eng)
	srv.SetKeys(cfg.API.Keys)
	if cfg.API.Metrics {
		srv.EnableMetrics()
	}

	addr := net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port))
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE connections stay open
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("api listening")
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		log.Error().Err(err).Msg("api server failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sched.Stop(ctx)
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("forced shutdown")
	}
	return nil
}
