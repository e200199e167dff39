package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bm-camera-control/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the control panel API and live updates to browsers",
	Long: `Starts an HTTP server exposing every panel operation as a JSON API under /api
and streaming camera state to browser panels over /ws. Remembered cameras are
reconnected on start and the current camera is polled every refresh_interval.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p := setupPanel(ctx, os.Stderr)
		defer p.Close()

		hub := server.NewHub(p.logger)
		defer hub.Stop()
		p.session.SetProjector(hub)

		res := p.session.ConnectRemembered(ctx)
		p.logger.Info("remembered cameras connected", "result", res.String())

		srv := server.New(p.session, p.presets, hub, p.logger)
		go srv.RefreshLoop(ctx, p.settings.RefreshInterval)

		addr := viper.GetString("server.addr")
		httpServer := &http.Server{
			Addr:              addr,
			Handler:           srv.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			p.logger.Info("control panel server listening", "addr", addr)
			serverErrors <- httpServer.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				fail("Server error: %v", err)
			}
		case <-ctx.Done():
			p.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				fmt.Printf("Server forced to shutdown: %v\n", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from server.addr)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}
