package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/kittclouds/usergrid/internal/backend"
)

var (
	serveListen string
	serveBulk   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the users REST backend",
	Long: `Run the users REST backend over the configured SQL store.

Routes:
  GET /users
  PUT /users/:id
  PUT /users/bulk   (only with --bulk or backend.bulkEndpoint)`,
	Example: `  # Serve on the configured address
  usergrid serve

  # Serve with the bulk endpoint mounted
  usergrid serve --bulk --listen :8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default: backend.listen)")
	serveCmd.Flags().BoolVar(&serveBulk, "bulk", false, "Mount PUT /users/bulk")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveListen != "" {
		cfg.Backend.Listen = serveListen
	}
	if serveBulk {
		cfg.Backend.BulkEndpoint = true
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.Backend.Listen,
		Handler:           backend.NewRouter(s, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("backend listening", "addr", srv.Addr, "bulk", s.BulkEnabled())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
