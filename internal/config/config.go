package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"bm-camera-control/internal/preset"
)

const envPrefix = "BMCC"

// InitConfig reads in config file and ENV variables if set.
func InitConfig(cfgFile string) {
	SetDefaults(viper.GetViper())

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".bm-camera-control" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".bm-camera-control")
	}

	BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			fmt.Fprintln(os.Stderr, "config:", err)
		}
	}
}

// BindEnv maps store.path to BMCC_STORE_PATH and so on
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func SetDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", home+string(os.PathSeparator)+".bm-camera-control.db")
	v.SetDefault("store.dsn", "")

	v.SetDefault("client.timeout", 5*time.Second)
	v.SetDefault("client.origin", "")
	v.SetDefault("client.insecure_tls", false)

	v.SetDefault("refresh_interval", 2*time.Second)
	v.SetDefault("settle_delay", preset.DefaultSettleDelay)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("exporter.port", "9200")

	sel := preset.DefaultSelection()
	v.SetDefault("presets.include.focus", sel.Focus)
	v.SetDefault("presets.include.autoFocus", sel.AutoFocus)
	v.SetDefault("presets.include.iris", sel.Iris)
	v.SetDefault("presets.include.gain", sel.Gain)
	v.SetDefault("presets.include.shutter", sel.Shutter)
	v.SetDefault("presets.include.whiteBalance", sel.WhiteBalance)
	v.SetDefault("presets.include.ndFilter", sel.NDFilter)
	v.SetDefault("presets.include.colorCorrection.lift", sel.ColorCorrection.Lift)
	v.SetDefault("presets.include.colorCorrection.gamma", sel.ColorCorrection.Gamma)
	v.SetDefault("presets.include.colorCorrection.gain", sel.ColorCorrection.Gain)
	v.SetDefault("presets.include.colorCorrection.offset", sel.ColorCorrection.Offset)
	v.SetDefault("presets.include.contrast", sel.Contrast)
	v.SetDefault("presets.include.color", sel.Color)
	v.SetDefault("presets.include.autoExposure", sel.AutoExposure)
}

type StoreSettings struct {
	Driver string
	Path   string
	DSN    string
}

type ClientSettings struct {
	Timeout     time.Duration
	Origin      string
	InsecureTLS bool
}

// Settings is the resolved configuration for one run
type Settings struct {
	Store           StoreSettings
	Client          ClientSettings
	RefreshInterval time.Duration
	SettleDelay     time.Duration
	LogLevel        string
	LogFile         string
	ServerAddr      string
	ExporterPort    string
	Presets         preset.Selection
}

// Load resolves Settings from v. The preset inclusion set is read here once
// and not re-read while running.
func Load(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		Store: StoreSettings{
			Driver: strings.ToLower(v.GetString("store.driver")),
			Path:   v.GetString("store.path"),
			DSN:    v.GetString("store.dsn"),
		},
		Client: ClientSettings{
			Timeout:     v.GetDuration("client.timeout"),
			Origin:      v.GetString("client.origin"),
			InsecureTLS: v.GetBool("client.insecure_tls"),
		},
		RefreshInterval: v.GetDuration("refresh_interval"),
		SettleDelay:     v.GetDuration("settle_delay"),
		LogLevel:        v.GetString("log_level"),
		LogFile:         v.GetString("log_file"),
		ServerAddr:      v.GetString("server.addr"),
		ExporterPort:    v.GetString("exporter.port"),
	}

	s.Presets = loadSelection(v)

	switch s.Store.Driver {
	case "sqlite", "postgres", "memory":
	default:
		return nil, fmt.Errorf("store.driver: unknown driver %q", s.Store.Driver)
	}
	if s.Store.Driver == "postgres" && s.Store.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required for the postgres driver")
	}
	if s.RefreshInterval <= 0 {
		return nil, fmt.Errorf("refresh_interval must be positive, got %s", s.RefreshInterval)
	}
	return s, nil
}

// loadSelection reads flag by flag; keys missing from a partial
// presets.include block keep their defaults
func loadSelection(v *viper.Viper) preset.Selection {
	const p = "presets.include."
	return preset.Selection{
		Focus:        v.GetBool(p + "focus"),
		AutoFocus:    v.GetBool(p + "autoFocus"),
		Iris:         v.GetBool(p + "iris"),
		Gain:         v.GetBool(p + "gain"),
		Shutter:      v.GetBool(p + "shutter"),
		WhiteBalance: v.GetBool(p + "whiteBalance"),
		NDFilter:     v.GetBool(p + "ndFilter"),
		ColorCorrection: preset.ColorCorrectionSelection{
			Lift:   v.GetBool(p + "colorCorrection.lift"),
			Gamma:  v.GetBool(p + "colorCorrection.gamma"),
			Gain:   v.GetBool(p + "colorCorrection.gain"),
			Offset: v.GetBool(p + "colorCorrection.offset"),
		},
		Contrast:     v.GetBool(p + "contrast"),
		Color:        v.GetBool(p + "color"),
		AutoExposure: v.GetBool(p + "autoExposure"),
	}
}

// StoreLocation is the path or DSN handed to store.Open
func (s *Settings) StoreLocation() string {
	if s.Store.Driver == "postgres" {
		return s.Store.DSN
	}
	return s.Store.Path
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger. With a log file set, output goes there
// and the returned closer must be called on exit.
func NewLogger(s *Settings, fallback io.Writer) (*slog.Logger, io.Closer, error) {
	w, closer := fallback, io.Closer(nopCloser{})
	if s.LogFile != "" {
		f, err := os.OpenFile(s.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w, closer = f, f
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(s.LogLevel)})
	return slog.New(h), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
