package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"Playly/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the HTTP server",
	Long:  `Starts the Playly HTTP server, serving the catalog and playlist API plus the object store proxy.`,
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

func runServer() {
	cfg := loadConfig()
	if err := server.Start(cfg); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
