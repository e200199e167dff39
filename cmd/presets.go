package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"bm-camera-control/internal/preset"
)

var (
	presetIndex  int
	presetName   string
	presetOutput string
)

// Parent Command
var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "Capture and replay camera presets",
	Long: `Save the settings of one camera to a JSON preset file, or apply a preset file
to a camera. Which settings are included is configured under presets.include.`,
}

var presetsSaveCmd = &cobra.Command{
	Use:     "save",
	Short:   "Capture a camera's settings into a preset file",
	Example: `  bm-camera-control presets save --index 1 --name "Studio A"`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		p := setupPanel(ctx, os.Stderr)
		defer p.Close()

		if err := p.connectSlot(ctx, presetIndex-1); err != nil {
			fail("Error: %v", err)
		}

		out := presetOutput
		if out == "" {
			out = preset.FileName(presetName)
		}
		f, err := os.Create(out)
		if err != nil {
			fail("Error creating %s: %v", out, err)
		}
		if err := p.presets.Export(ctx, f, presetName); err != nil {
			f.Close()
			os.Remove(out)
			fail("Error capturing preset: %v", err)
		}
		if err := f.Close(); err != nil {
			fail("Error writing %s: %v", out, err)
		}
		fmt.Printf("Preset saved to %s\n", out)
	},
}

var presetsApplyCmd = &cobra.Command{
	Use:     "apply <file>",
	Short:   "Apply a preset file to a camera",
	Example: `  bm-camera-control presets apply Studio_A.json --index 4`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		p := setupPanel(ctx, os.Stderr)
		defer p.Close()

		f, err := os.Open(args[0])
		if err != nil {
			fail("Error opening preset: %v", err)
		}
		defer f.Close()

		if err := p.connectSlot(ctx, presetIndex-1); err != nil {
			fail("Error: %v", err)
		}

		file, err := p.presets.ApplyFile(ctx, f)
		if err != nil {
			fail("Error applying %s: %v", filepath.Base(args[0]), err)
		}
		fmt.Printf("Applied preset %q (%s) to slot %d.\n", file.Name, strings.Join(file.Settings.Keys(), ", "), presetIndex)
	},
}

var presetsShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Show the contents of a preset file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		f, err := os.Open(args[0])
		if err != nil {
			fail("Error opening preset: %v", err)
		}
		defer f.Close()

		file, err := preset.ReadFile(f)
		if err != nil {
			fail("Error: %v", err)
		}

		if jsonOutput {
			printJSON(file)
			return
		}

		fmt.Printf("Name:    %s\n", file.Name)
		fmt.Printf("Saved:   %s\n", file.Timestamp.Local().Format("2006-01-02 15:04:05"))
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "SETTING\tINCLUDED")
		fmt.Fprintln(w, "-------\t--------")
		have := make(map[string]bool)
		for _, k := range file.Settings.Keys() {
			have[k] = true
		}
		for _, k := range preset.AllKeys() {
			fmt.Fprintf(w, "%s\t%t\n", k, have[k])
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)

	presetsCmd.AddCommand(presetsSaveCmd)
	presetsCmd.AddCommand(presetsApplyCmd)
	presetsCmd.AddCommand(presetsShowCmd)

	presetsCmd.PersistentFlags().IntVar(&presetIndex, "index", 1, "Camera slot (1-8)")
	presetsSaveCmd.Flags().StringVar(&presetName, "name", "preset", "Preset name stored in the file")
	presetsSaveCmd.Flags().StringVarP(&presetOutput, "output", "o", "", "Output file (default derived from --name)")
}
