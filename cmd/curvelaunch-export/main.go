// ====================================
// File: cmd/curvelaunch-export/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvelaunch/internal/config"
	"github.com/rovshanmuradov/curvelaunch/internal/export"
	"github.com/rovshanmuradov/curvelaunch/internal/storage/sqlite"
)

// Reads the trade log from the daemon's database and writes it out as a
// CSV or JSON file. Meant to be run offline, against the same config the
// daemon uses.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	format := flag.String("format", "csv", "export format: csv or json")
	mint := flag.String("mint", "", "only export trades for this mint")
	direction := flag.String("direction", "", "only export buys or sells")
	since := flag.String("since", "", "only export trades at or after this time (RFC3339)")
	until := flag.String("until", "", "only export trades before this time (RFC3339)")
	outDir := flag.String("out", "exports", "output directory")
	limit := flag.Int("limit", 100000, "maximum number of trades to read")
	flag.Parse()

	if err := run(*configPath, *format, *mint, *direction, *since, *until, *outDir, *limit); err != nil {
		fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, format, mint, direction, since, until, outDir string, limit int) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	options := export.Options{
		Format:          export.Format(format),
		MintFilter:      mint,
		DirectionFilter: direction,
		OutputDir:       outDir,
	}
	if since != "" {
		options.StartTime, err = time.Parse(time.RFC3339, since)
		if err != nil {
			return fmt.Errorf("parse -since: %w", err)
		}
	}
	if until != "" {
		options.EndTime, err = time.Parse(time.RFC3339, until)
		if err != nil {
			return fmt.Errorf("parse -until: %w", err)
		}
	}

	store, err := sqlite.NewStorage(cfg.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	trades, err := store.ListTrades(ctx, mint, limit, 0)
	if err != nil {
		return fmt.Errorf("list trades: %w", err)
	}

	exporter := export.NewTradeExporter(logger)
	path, err := exporter.ExportTrades(trades, options)
	if err != nil {
		return err
	}

	fmt.Println(path)
	return nil
}
