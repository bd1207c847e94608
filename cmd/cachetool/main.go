package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"connectdeck/internal/cache"
	"connectdeck/internal/config"
)

func main() {
	// Define subcommands
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	pruneCmd := flag.NewFlagSet("prune", flag.ExitOnError)

	// Export flags
	exportOutput := exportCmd.String("output", "", "Output file path (default: snapshots_YYYYMMDD_HHMMSS.json)")

	// Prune flags
	pruneOlderThan := pruneCmd.Duration("older-than", 7*24*time.Hour, "Prune completed sessions older than this")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Load configuration
	cfg := config.Load()

	// Open the snapshot cache
	db, err := cache.Open(cfg.CacheDialect, cache.DialectConfig{
		Path: cfg.CachePath,
		URL:  cfg.CacheURL,
	})
	if err != nil {
		log.Fatalf("Failed to open snapshot cache: %v", err)
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	store := cache.NewSnapshotStore(db)

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		handleExport(store, *exportOutput)

	case "prune":
		pruneCmd.Parse(os.Args[2:])
		handlePrune(store, *pruneOlderThan)

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleExport(store *cache.SnapshotStore, outputPath string) {
	// Generate default filename if not provided
	if outputPath == "" {
		timestamp := time.Now().Format("20060102_150405")
		outputPath = fmt.Sprintf("snapshots_%s.json", timestamp)
	}

	// Ensure directory exists
	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}

	sessions, err := store.ExportAll()
	if err != nil {
		log.Fatalf("Failed to export snapshots: %v", err)
	}

	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode snapshots: %v", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", outputPath, err)
	}

	fmt.Printf("Exported %d session snapshots to %s\n", len(sessions), outputPath)
}

func handlePrune(store *cache.SnapshotStore, olderThan time.Duration) {
	pruned, err := store.PruneCompleted(time.Now().Add(-olderThan))
	if err != nil {
		log.Fatalf("Failed to prune snapshots: %v", err)
	}
	fmt.Printf("Pruned %d completed session snapshots\n", pruned)
}

func printUsage() {
	fmt.Println("Usage: cachetool <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  export    Write every cached session snapshot to a JSON file")
	fmt.Println("  prune     Remove old completed sessions from the cache")
	fmt.Println()
	fmt.Println("Run 'cachetool <command> -h' for command flags")
}
