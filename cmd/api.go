package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiIndex int
	apiBody  string
)

var apiCmd = &cobra.Command{
	Use:   "api <GET|PUT> <path>",
	Short: "Send a raw request to a camera's control API",
	Long: `Sends one request to /control/api/v1<path> on the camera in the given slot and
prints the status and body. Successful GET responses also refresh the cached value.`,
	Example: `  bm-camera-control api GET /video/iso
  bm-camera-control api PUT /video/gain --body '{"gain": 6}' --index 3`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		p := setupPanel(ctx, os.Stderr)
		defer p.Close()

		var body json.RawMessage
		if apiBody != "" {
			if !json.Valid([]byte(apiBody)) {
				fail("Error: --body is not valid JSON.")
			}
			body = json.RawMessage(apiBody)
		}

		if err := p.connectSlot(ctx, apiIndex-1); err != nil {
			fail("Error: %v", err)
		}

		resp, err := p.session.Request(ctx, args[0], args[1], body)
		if err != nil {
			fail("Error: %v", err)
		}

		if jsonOutput {
			printJSON(resp)
			return
		}
		fmt.Printf("%d %s\n", resp.Status, resp.StatusText)
		if len(resp.Body) > 0 {
			var pretty any
			if json.Unmarshal(resp.Body, &pretty) == nil {
				printJSON(pretty)
			} else {
				fmt.Println(string(resp.Body))
			}
		}
		if resp.IsError() {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().IntVar(&apiIndex, "index", 1, "Camera slot (1-8)")
	apiCmd.Flags().StringVar(&apiBody, "body", "", "JSON body for PUT")
}
