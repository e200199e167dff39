package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"bm-camera-control/internal/camera"
)

var (
	camIndex int
	camProbe bool
)

// Parent Command
var camerasCmd = &cobra.Command{
	Use:   "cameras",
	Short: "Inspect camera slots",
	Long:  `List remembered camera slots or show the current values of one camera.`,
}

// List Command
var camerasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the 8 camera slots",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		p := setupPanel(ctx, os.Stderr)
		defer p.Close()

		if camProbe {
			p.session.ConnectRemembered(ctx)
		}

		slots := make([]camera.SlotView, 0, camera.Slots)
		for i := 0; i < camera.Slots; i++ {
			slot, _ := p.session.Slot(i)
			if slot.Hostname == "" {
				host, secure, err := p.session.Remembered(ctx, i)
				if err != nil {
					fail("Error reading slot %d: %v", i+1, err)
				}
				slot.Hostname, slot.Secure = host, secure
			}
			slots = append(slots, slot)
		}

		if jsonOutput {
			printJSON(slots)
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "SLOT\tHOSTNAME\tSECURE\tSTATUS")
		fmt.Fprintln(w, "----\t--------\t------\t------")
		for _, s := range slots {
			status := "-"
			switch {
			case s.Connected:
				status = "CONNECTED"
			case camProbe && s.Hostname != "":
				status = "UNREACHABLE"
			}
			host := s.Hostname
			if host == "" {
				host = "-"
			}
			fmt.Fprintf(w, "%d\t%s\t%t\t%s\n", s.Index+1, host, s.Secure, status)
		}
		w.Flush()
	},
}

// Show Command
var camerasShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current values of a camera",
	Example: `  bm-camera-control cameras show --index 2`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		p := setupPanel(ctx, os.Stderr)
		defer p.Close()

		if err := p.connectSlot(ctx, camIndex-1); err != nil {
			fail("Error: %v", err)
		}
		if err := p.session.Refresh(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}

		display := camera.NewDisplay()
		display.Apply(p.session.Snapshot(ctx))

		if jsonOutput {
			out := make(map[string]string)
			for _, f := range camera.Fields() {
				out[f.String()] = display.Value(f)
			}
			printJSON(out)
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "FIELD\tVALUE")
		fmt.Fprintln(w, "-----\t-----")
		for _, f := range camera.Fields() {
			v := display.Value(f)
			if v == "" {
				v = "n/a"
			}
			fmt.Fprintf(w, "%s\t%s\n", f, v)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(camerasCmd)

	camerasCmd.AddCommand(camerasListCmd)
	camerasCmd.AddCommand(camerasShowCmd)

	camerasListCmd.Flags().BoolVar(&camProbe, "probe", false, "Reconnect remembered cameras to report their status")
	camerasShowCmd.Flags().IntVar(&camIndex, "index", 1, "Camera slot (1-8)")
}
