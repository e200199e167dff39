package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"bm-camera-control/internal/camera"
)

var (
	connIndex  int
	connHost   string
	connSecure bool
	connAll    bool
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect a camera to a slot and remember it",
	Long: `Probes the camera's system endpoint. On success the slot (1-8) remembers the
hostname for later commands. With --all, camera1.local .. camera8.local are tried
on slots 1..8.`,
	Example: `  bm-camera-control connect --index 1 --host camera1.local
  bm-camera-control connect --index 2 --host 10.0.0.12 --secure
  bm-camera-control connect --all`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		p := setupPanel(ctx, os.Stderr)
		defer p.Close()

		if connAll {
			res := p.session.BulkConnect(ctx, connSecure)
			if jsonOutput {
				printJSON(bulkJSON(res))
				return
			}
			idx := make([]int, 0, len(res.Errors))
			for i := range res.Errors {
				idx = append(idx, i)
			}
			sort.Ints(idx)
			for _, i := range idx {
				fmt.Printf("Slot %d: %v\n", i+1, res.Errors[i])
			}
			fmt.Println(res.String())
			return
		}

		if connHost == "" {
			fail("Error: --host is required unless --all is given.")
		}
		if err := p.session.SwitchCurrent(ctx, connIndex-1); err != nil {
			fail("Error: %v", err)
		}
		if err := p.session.Connect(ctx, connIndex-1, connHost, connSecure); err != nil {
			fail("Error connecting to %s: %v", connHost, err)
		}

		if jsonOutput {
			slot, _ := p.session.Slot(connIndex - 1)
			printJSON(slot)
			return
		}
		fmt.Printf("Connected slot %d to %s.\n", connIndex, connHost)
	},
}

type bulkOutput struct {
	Connected int               `json:"connected"`
	Attempted int               `json:"attempted"`
	Summary   string            `json:"summary"`
	Errors    map[string]string `json:"errors,omitempty"`
}

func bulkJSON(res camera.BulkResult) bulkOutput {
	out := bulkOutput{Connected: res.Connected, Attempted: res.Attempted, Summary: res.String()}
	if len(res.Errors) > 0 {
		out.Errors = make(map[string]string, len(res.Errors))
		for i, err := range res.Errors {
			out.Errors[fmt.Sprint(i+1)] = err.Error()
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().IntVar(&connIndex, "index", 1, "Camera slot (1-8)")
	connectCmd.Flags().StringVar(&connHost, "host", "", "Camera hostname or IP address")
	connectCmd.Flags().BoolVar(&connSecure, "secure", false, "Use HTTPS")
	connectCmd.Flags().BoolVar(&connAll, "all", false, "Try camera1.local .. camera8.local on every slot")
}
