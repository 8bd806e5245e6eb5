package main

import (
	"fmt"
	"os"

	"codeberg.org/mutker/powerhintd/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "powerhintd",
	Short: "Power hint coordinator",
	Long: `powerhintd turns power modes and boosts into hint activations on the
device, honouring sustained-performance and battery-saver suppression.

Run "powerhintd serve" to start the daemon; the other commands talk to a
running daemon.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
