package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/campusevents/internal/app"
	"github.com/shrimpsizemoose/campusevents/internal/export"
)

func main() {
	var configPath = flag.String("config", "config.toml", "Path to config file")
	flag.Parse()

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to start service: %v", err)
	}
	defer service.Close()

	exporter, err := export.NewGSheetExporter(service.Config, service)
	if err != nil {
		logger.Error.Fatalf("Failed to initialize Google Sheets exporter: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	if err := exporter.ExportAll(ctx); err != nil {
		logger.Error.Printf("Initial export failed: %v", err)
	}
	cancel()

	exporter.Start()
	defer exporter.Stop()

	logger.Info.Printf("Exporting reports to %d spreadsheet target(s)", len(service.Config.GSheet))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info.Println("Exporter stopped")
}
