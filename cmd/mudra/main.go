// Command mudra is a webcam sign-language tutor.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	version    = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "mudra",
	Short: "Webcam sign-language tutor",
	Long: `Mudra asks you to perform a sign, watches the webcam and scores you
once the sign has been held steadily for long enough.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default $MUDRA_CONFIG)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(signsCmd)
	rootCmd.AddCommand(replayCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
