package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/chxlky/trello-quickcard/api"
	"github.com/chxlky/trello-quickcard/integrations"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay backend",
	Long: `Run the HTTP relay that forwards Trello calls on behalf of clients which
cannot reach Trello directly. It is the transport used for card creation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port := servePort
		if port == "" {
			port = cfg.Server.Port
		}
		return serve(port)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func serve(port string) error {
	gin.SetMode(gin.ReleaseMode)

	upstream := integrations.NewTrelloClient(cfg.Trello.BaseURL, cfg.Trello.Labels.Delay)
	router := api.NewRouter(&api.Handler{Upstream: upstream}, zap.L())

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	zap.L().Info("Starting relay server", zap.String("port", port), zap.String("upstream", cfg.Trello.BaseURL))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	var once sync.Once

	cleanup := func(reason string) {
		zap.L().Info("Shutdown initiated", zap.String("reason", reason))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		zap.L().Info("Shutting down HTTP server...")
		if err := srv.Shutdown(ctx); err != nil {
			zap.L().Error("Error shutting down server", zap.Error(err))
		} else {
			zap.L().Info("HTTP server shut down gracefully.")
		}
		close(done)
	}

	go func() {
		sig := <-sigCh
		once.Do(func() {
			cleanup(sig.String())
		})

		// if a second signal is caught, exit immediately
		go func() {
			<-sigCh
			zap.L().Info("Second interrupt signal received. Exiting immediately.")
			os.Exit(1)
		}()
	}()

	select {
	case err := <-errCh:
		zap.L().Error("Server error", zap.Error(err))
		return err
	case <-done:
	}
	zap.L().Info("Exiting...")
	return nil
}
