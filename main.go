package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mitchwire/config"
	"mitchwire/feed"
	"mitchwire/ingest"
	"mitchwire/internal/channel"
	"mitchwire/logger"
	"mitchwire/writer"
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

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Mitchwire.Name,
		"version": cfg.Mitchwire.Version,
	}).Info("starting mitchwire")

	if cfg.Metrics.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channels := channel.NewChannels(cfg.Channels.Buffer)
	defer channels.Close()

	go channels.StartMetricsReporting(ctx, cfg.Channels.MetricsInterval)

	server := feed.NewServer(cfg, channels)

	var captureWriter *writer.CaptureWriter
	if cfg.Capture.Enabled {
		captureWriter, err = writer.NewCaptureWriter(cfg, channels)
		if err != nil {
			log.WithError(err).Error("failed to create capture writer")
			os.Exit(1)
		}
	} else {
		log.WithComponent("main").Info("capture disabled; skipping writer")
	}

	var binanceReader *ingest.BinanceReader
	var binancePub *feed.Publisher

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Start(ctx); err != nil {
			log.WithError(err).Error("feed server failed to start")
			cancel()
		}
	}()

	if captureWriter != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := captureWriter.Start(ctx); err != nil {
				log.WithError(err).Warn("capture writer failed to start")
			}
		}()
	}

	if cfg.Ingest.Binance.Enabled {
		target := cfg.Ingest.Binance.Target
		if target == "" {
			target = cfg.Server.Listen
		}
		binancePub, err = feed.Dial(target, cfg.Ingest.Binance.ProviderID)
		if err != nil {
			log.WithError(err).Error("failed to connect binance ingest to feed server")
			os.Exit(1)
		}
		binanceReader = ingest.NewBinanceReader(cfg, binancePub)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := binanceReader.Start(ctx); err != nil {
				log.WithError(err).Warn("binance ingest failed to start")
			}
		}()
	}

	log.Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	log.Info("starting graceful shutdown")
	cancel()

	if binanceReader != nil {
		log.Info("stopping binance ingest")
		binanceReader.Stop()
		binancePub.Close()
	}

	log.Info("stopping feed server")
	server.Stop()

	if captureWriter != nil {
		log.Info("stopping capture writer")
		captureWriter.Stop()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("graceful shutdown completed")
	case <-time.After(30 * time.Second):
		log.Warn("graceful shutdown timeout exceeded")
	}

	log.Info("mitchwire stopped")
}
