package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/kardianos/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bm-camera-control/internal/exporter"
)

var (
	expPort       string
	serviceAction string // "install", "uninstall", "start", "stop"
)

// --- SERVICE WRAPPER ---

// program implements the kardianos/service interface
type program struct {
	exit   chan struct{}
	server *http.Server
	panel  *panel
	logger *slog.Logger
}

func (p *program) Start(s service.Service) error {
	// Start should not block. Do the actual work async.
	p.exit = make(chan struct{})
	go p.run()
	return nil
}

func (p *program) run() {
	ctx := context.Background()
	p.panel = setupPanel(ctx, os.Stderr)
	p.logger = p.panel.logger

	res := p.panel.session.ConnectRemembered(ctx)
	p.logger.Info("remembered cameras connected", "result", res.String())

	registry := prometheus.NewRegistry()
	registry.MustRegister(exporter.NewCollector(p.panel.session, p.panel.settings.Client.Timeout*2, p.logger))

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorLog: log.Default(),
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	addr := fmt.Sprintf(":%s", viper.GetString("exporter.port"))
	p.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	p.logger.Info("camera exporter listening", "addr", addr)

	if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		p.logger.Error("HTTP server error", "error", err)
	}
}

func (p *program) Stop(s service.Service) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if p.server != nil {
		if err := p.server.Shutdown(ctx); err != nil && p.logger != nil {
			p.logger.Warn("server forced to shutdown", "error", err)
		}
	}
	if p.panel != nil {
		p.panel.Close()
	}
	close(p.exit)
	return nil
}

// --- COMMAND ---

var exporterCmd = &cobra.Command{
	Use:   "exporter",
	Short: "Start Prometheus exporter service",
	Long: `Starts a long-running HTTP server that exposes the live settings of every
remembered camera as Prometheus metrics. Can be installed as a system service.`,
	Run: func(cmd *cobra.Command, args []string) {
		svcConfig := &service.Config{
			Name:        "bm-camera-exporter",
			DisplayName: "Camera Control Prometheus Exporter",
			Description: "Exposes camera exposure, lens and color settings to Prometheus",
			// Arguments passed to the binary when run as a service
			Arguments: []string{"exporter", "--port", viper.GetString("exporter.port")},
		}
		if used := viper.ConfigFileUsed(); used != "" {
			svcConfig.Arguments = append(svcConfig.Arguments, "--config", used)
		}

		prg := &program{}

		s, err := service.New(prg, svcConfig)
		if err != nil {
			log.Fatal(err)
		}

		if serviceAction != "" {
			if err := service.Control(s, serviceAction); err != nil {
				log.Fatalf("Failed to %s service: %v", serviceAction, err)
			}
			fmt.Printf("Service action '%s' completed successfully.\n", serviceAction)
			return
		}

		// Runs under the service manager, or interactively when no action is given
		logger, err := s.Logger(nil)
		if err != nil {
			log.Fatal(err)
		}
		if err = s.Run(); err != nil {
			logger.Error(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(exporterCmd)
	exporterCmd.Flags().StringVar(&expPort, "port", "", "Port to listen on (default from exporter.port)")
	_ = viper.BindPFlag("exporter.port", exporterCmd.Flags().Lookup("port"))

	exporterCmd.Flags().StringVar(&serviceAction, "service", "", "Service action: install, uninstall, start, stop")
}
