package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bm-camera-control/internal/config"
)

var cfgFile string
var jsonOutput bool
var storeDriver string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bm-camera-control",
	Short: "Control panel for networked cameras speaking the REST control API",
	Long: `Connect up to 8 cameras by hostname, read and adjust exposure, lens and
color settings, and capture or replay presets across cameras.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() { config.InitConfig(cfgFile) })

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.bm-camera-control.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "", "Settings store: sqlite, postgres or memory")
	_ = viper.BindPFlag("store.driver", rootCmd.PersistentFlags().Lookup("store"))
}
