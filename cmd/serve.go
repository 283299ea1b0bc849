package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/school-reports/internal/config"
	"github.com/kozaktomas/school-reports/internal/database/postgres"
	"github.com/kozaktomas/school-reports/internal/storage"
	"github.com/kozaktomas/school-reports/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the School Reports web server.
The server exposes the JSON API used by the browser front-end: report
authoring, template settings, HTML preview and PDF export.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies")
}

// applyServeFlags overrides the web config with flags that were set explicitly.
func applyServeFlags(cmd *cobra.Command, cfg *config.WebConfig) {
	if cmd.Flags().Changed("port") {
		cfg.Port = mustGetInt(cmd, "port")
	}
	if cmd.Flags().Changed("host") {
		cfg.Host = mustGetString(cmd, "host")
	}
	if secret := mustGetString(cmd, "session-secret"); secret != "" {
		cfg.SessionSecret = secret
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyServeFlags(cmd, &cfg.Web)

	pool, err := connectDatabase(cfg)
	if err != nil {
		return err
	}

	svc, err := buildServices(cfg, pool, "")
	if err != nil {
		pool.Close()
		return err
	}
	defer svc.Close()

	uploader := storage.NewUploader(cfg.Storage)
	if cfg.Storage.Enabled() {
		fmt.Printf("Image uploads stored in bucket %s\n", cfg.Storage.Bucket)
	} else {
		fmt.Printf("Object storage not configured, uploads are embedded as data URLs\n")
	}

	sessionRepo := postgres.NewSessionRepository(pool)
	fmt.Printf("Session persistence enabled (PostgreSQL)\n")

	server := web.NewServer(cfg, web.Deps{
		Pipeline: svc.pipeline,
		Renderer: svc.renderer,
		Exporter: svc.exporter,
		Uploader: uploader,
	}, sessionRepo)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		fmt.Println("\nShutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting School Reports on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	settings := svc.exporter.Settings()
	fmt.Printf("Export engines: %v (scale %.1f, quality %.2f)\n", svc.exporter.Engines(), settings.Scale, settings.Quality)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	<-shutdownDone
	return nil
}
