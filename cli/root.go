// Package cli provides the mosaicme command-line interface
package cli

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/mosaicme/mosaicme/server"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "mosaicme",
	Short: "Turn photographs into buildable brick mosaics",
	Long: `Mosaicme converts a photograph into a brick mosaic built from a
constrained color palette, along with building instructions and a
parts shopping list.

Run "mosaicme serve" to start the HTTP API, or "mosaicme generate"
to convert a single image from the command line.`,
	SilenceUsage: true,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(palettesCmd)
}

func newLogger(name string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:  name,
		Level: hclog.LevelFromString(logLevel),
	})
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("mosaicme", server.Version)
	},
}
