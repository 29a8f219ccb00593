package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"Playly/config"
	"Playly/logger"
)

var rootCmd = &cobra.Command{
	Use:   "playly",
	Short: "Playly is a media library backend.",
	Long:  `Playly serves a song catalog with per-user playlists, backed by MySQL for metadata and MinIO for audio files.`,
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads configuration and initializes logging for a command.
func loadConfig() *config.Config {
	cfg := config.Load()
	logger.InitLogger(logger.Config{
		Level:      logger.InfoLevel,
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})
	return cfg
}
