package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"bm-camera-control/internal/camera"
	"bm-camera-control/internal/client"
	"bm-camera-control/internal/config"
	"bm-camera-control/internal/preset"
	"bm-camera-control/internal/store"
)

// panel bundles everything a command needs to talk to cameras
type panel struct {
	settings *config.Settings
	logger   *slog.Logger
	kv       store.KV
	session  *camera.Session
	presets  *preset.Engine
	closers  []io.Closer
}

func (p *panel) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i].Close()
	}
}

// setupPanel builds the session from config. logOut receives log output when
// no log file is configured.
func setupPanel(ctx context.Context, logOut io.Writer) *panel {
	settings, err := config.Load(viper.GetViper())
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser, err := config.NewLogger(settings, logOut)
	if err != nil {
		fmt.Printf("Error opening log: %v\n", err)
		os.Exit(1)
	}

	kv, err := store.Open(ctx, settings.Store.Driver, settings.StoreLocation())
	if err != nil {
		fmt.Printf("Error opening %s store: %v\n", settings.Store.Driver, err)
		os.Exit(1)
	}

	api := client.New(client.ClientConfig{
		Timeout:     settings.Client.Timeout,
		Origin:      settings.Client.Origin,
		InsecureTLS: settings.Client.InsecureTLS,
	})

	session := camera.NewSession(camera.Options{
		Transport: api,
		Store:     kv,
		Logger:    logger,
	})

	return &panel{
		settings: settings,
		logger:   logger,
		kv:       kv,
		session:  session,
		presets:  preset.NewEngine(session, settings.Presets, settings.SettleDelay, logger),
		closers:  []io.Closer{logCloser, kv},
	}
}

// connectSlot reconnects a remembered camera at index and makes it current
func (p *panel) connectSlot(ctx context.Context, index int) error {
	host, secure, err := p.session.Remembered(ctx, index)
	if err != nil {
		return err
	}
	if host == "" {
		return fmt.Errorf("slot %d has no remembered camera; run 'bm-camera-control connect --index %d --host <hostname>'", index+1, index+1)
	}
	if err := p.session.SwitchCurrent(ctx, index); err != nil {
		return err
	}
	return p.session.Connect(ctx, index, host, secure)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Printf("Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}

func fail(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
	os.Exit(1)
}
