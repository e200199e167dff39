package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"bm-camera-control/internal/tui"
)

var presetDir string

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Interactive terminal control panel",
	Long: `Opens a full-screen panel for up to 8 cameras. Remembered cameras are
reconnected on start. Logs go to log_file when set, otherwise they are discarded
so they do not draw over the panel.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		p := setupPanel(ctx, io.Discard)
		defer p.Close()

		proj := tui.NewProjector()
		p.session.SetProjector(proj)

		m := tui.New(tui.Options{
			Session:         p.session,
			Presets:         p.presets,
			Projector:       proj,
			RefreshInterval: p.settings.RefreshInterval,
			RequestTimeout:  p.settings.Client.Timeout * 4,
			PresetDir:       presetDir,
		})

		if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
			fmt.Printf("Error running panel: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(panelCmd)
	panelCmd.Flags().StringVar(&presetDir, "preset-dir", ".", "Directory for saved preset files")
}
