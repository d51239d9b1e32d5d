package cmd

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-widget-api/internal/config"
	httpapi "github.com/tbourn/go-widget-api/internal/http"
	"github.com/tbourn/go-widget-api/internal/repo"
	"github.com/tbourn/go-widget-api/internal/services"
	"github.com/tbourn/go-widget-api/internal/supervisor"
	"github.com/tbourn/go-widget-api/internal/sysutil"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server and the background janitor.

SIGINT or SIGTERM drains in-flight requests for at most DRAIN_TIMEOUT and
exits cleanly. A failed background job or a panic outside request handling
stops the process with exit status 1.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address (default \":$PORT\")")
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	gin.SetMode(cfg.GinMode)

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, db, cfg)

	addr := sysutil.FirstNonEmpty(listenAddr, ":"+cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	sup := supervisor.New(newHTTPServer(r, cfg), ln, supervisor.Options{DrainTimeout: cfg.DrainTimeout})
	defer sup.Guard()

	janitor := &services.Janitor{DB: db, Interval: cfg.JanitorInterval, RetainFor: cfg.PurgeAfter}
	sup.Go("janitor", janitor.Run)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("addr", addr).
		Str("app_env", cfg.AppEnv).
		Bool("verbose_errors", cfg.Verbose()).
		Msg("starting widget-api")
	return sup.Serve(ctx)
}

func newHTTPServer(h http.Handler, cfg config.Config) *http.Server {
	return &http.Server{
		Handler:           h,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}
