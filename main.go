package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tcaflow/config"
	"tcaflow/logger"
	"tcaflow/processor"
	"tcaflow/reader"
	"tcaflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if cfg.Logging.Format == "" {
		cfg.Logging.Format = config.DefaultLogFormat(config.AppEnvironment())
	}
	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Tcaflow.Name,
		"version": cfg.Tcaflow.Version,
	}).Info("starting tcaflow")

	if cfg.Storage.S3.Enabled {
		logger.InitCloudWatch(cfg.Storage.S3.Region, "")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()

	datasets, err := reader.Load(cfg)
	if err != nil {
		log.WithError(err).Error("failed to load input datasets")
		os.Exit(1)
	}

	catalog, err := processor.NewCatalog(datasets.Instruments)
	if err != nil {
		log.WithError(err).Error("reference data failed integrity checks")
		os.Exit(1)
	}

	observations := processor.FilterObservations(datasets.Observations, cfg.Engine.MarketStateFilter)
	series, err := processor.NewSeriesIndex(observations, cfg.Engine.Tolerance.Std())
	if err != nil {
		log.WithError(err).Error("market data failed integrity checks")
		os.Exit(1)
	}

	engine := processor.NewEngine(cfg, catalog, series)
	result, err := engine.Run(ctx, datasets.Executions)
	if err != nil {
		log.WithError(err).Error("metric computation failed")
		os.Exit(1)
	}

	reportWriter, err := writer.NewReportWriter(cfg)
	if err != nil {
		log.WithError(err).Error("failed to create report writer")
		os.Exit(1)
	}
	if err := reportWriter.Write(ctx, result.Records, result.Rows, result.Skipped); err != nil {
		log.WithError(err).Error("failed to write report")
		os.Exit(1)
	}

	logger.RunReport(ctx, log, time.Since(start))
	log.Info("tcaflow finished")
}
