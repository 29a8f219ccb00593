package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"Playly/storage"
)

var (
	minioPrefix string
	minioStats  bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Inspect the object store bucket",
	Long:  `Lists objects in the MinIO bucket and reports per-prefix size statistics, so the stored files can be checked against the catalog.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		store, err := storage.NewStore(cfg)
		if err != nil {
			log.Fatalf("failed to connect to MinIO: %v", err)
		}

		objects, stats, err := store.ListObjects(context.Background(), minioPrefix)
		if err != nil {
			log.Fatalf("failed to list objects: %v", err)
		}

		if minioStats {
			fmt.Printf("Objects: %d, total size: %s\n", stats.TotalObjects, storage.FormatSize(stats.TotalSize))
			for prefix, size := range stats.ByPrefix {
				fmt.Printf("  %-20s %s\n", prefix, storage.FormatSize(size))
			}
			return
		}

		for _, obj := range objects {
			fmt.Printf("%-60s %10s  %s\n", obj.Key, storage.FormatSize(obj.Size), obj.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("\n%d objects, %s total\n", stats.TotalObjects, storage.FormatSize(stats.TotalSize))
	},
}

func init() {
	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "only list objects under this prefix")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "print per-prefix statistics instead of the object list")
	rootCmd.AddCommand(minioCmd)
}
