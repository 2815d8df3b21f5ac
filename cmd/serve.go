package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tresinky/gallery/handlers"
)

var syncOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gallery HTTP server.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&syncOnStart, "sync", true, "reconcile the database with the gallery tree before serving")
}

func runServe() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if syncOnStart {
		report, err := a.syncer.Run(ctx)
		if err != nil {
			log.Printf("Startup sync failed: %v", err)
		} else if report.Changed() {
			log.Printf("Startup sync: %d images and %d albums removed, %d albums created",
				report.DeletedImages, report.DeletedAlbums, len(report.CreatedAlbums))
		}
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		DB:             a.db,
		Service:        a.service,
		Hub:            a.hub,
		Converter:      a.converter,
		StaticFs:       a.fs,
		StaticRoot:     a.cfg.StaticRoot,
		AdminKeyHash:   a.cfg.AdminKeyHash,
		AllowedOrigins: a.cfg.AllowedOrigins,
		MaxUploadBytes: a.cfg.MaxUploadBytes,
		UploadTimeout:  a.cfg.TranscodeTimeout + 5*time.Minute,
	})

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on port %s", a.cfg.Port)
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

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Println("Server stopped")
	return nil
}
