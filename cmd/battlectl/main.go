package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "battlectl",
	Short: "Arena battle client",
	Long: `battlectl drives arena battles against the battle server and exposes them
to local UIs over HTTP and a view socket.

  serve    run the local control surface
  replay   print the archived turn log of a finished battle`,
	SilenceUsage: true,
}

var envFiles []string

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files to load before the environment")
	rootCmd.AddCommand(serveCmd, replayCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
