// fiveserver is the legacy football-game matchmaking and session server of
// spec.md: one process hosting a handful of framed TCP listeners (News,
// Login, NetworkMenu, Main, one pair per protocol dialect) plus an HTTP
// admin/registration surface.
//
// Usage:
//
//	fiveserver serve --config fiveserver.yaml
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flagConfigPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fiveserver",
	Short: "Legacy football-game matchmaking and session server",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "fiveserver.yaml", "path to the YAML configuration file")
	rootCmd.AddCommand(serveCmd)
}
