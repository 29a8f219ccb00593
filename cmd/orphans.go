package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"Playly/db"
	"Playly/model"
	"Playly/repository"
)

var orphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "List songs whose ingestion never completed",
	Long:  `Lists catalog rows still in the pending or failed state. These are metadata rows whose audio upload did not finish; they are hidden from trending and playlist resolution.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		if err := db.ConnectDB(cfg); err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer db.DB.Close()

		songs, err := repository.NewMySQLSongRepository(db.DB).GetAllSongs(context.Background())
		if err != nil {
			log.Fatalf("failed to list songs: %v", err)
		}

		var count int
		for _, song := range songs {
			if song.Status == model.SongStatusReady {
				continue
			}
			count++
			fmt.Printf("%6d  %-8s  %s - %s (uploaded %s)\n",
				song.ID, song.Status, song.Artist, song.Title,
				song.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("\n%d orphaned songs\n", count)
	},
}

func init() {
	rootCmd.AddCommand(orphansCmd)
}
