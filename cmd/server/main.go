package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"darjacollect/pkg/api"
	"darjacollect/pkg/collector"
	"darjacollect/pkg/config"
	"darjacollect/pkg/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yml", "path to YAML config file")
	port := flag.String("port", "8080", "HTTP listen port")
	flag.Parse()

	_ = godotenv.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	var archiver collector.Archiver
	if cfg.Database.URL != "" {
		if err := storage.ApplyMigrations(cfg.Database.URL, "./migrations", logger); err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
		st, err := storage.New(cfg.Database.URL, logger)
		if err != nil {
			logger.Fatal("Failed to create storage", zap.Error(err))
		}
		defer st.Close()
		archiver = st
	}

	server := api.NewAPIServer(cfg, archiver, logger)
	if err := server.Start(*port); err != nil {
		logger.Fatal("API server failed", zap.Error(err))
	}
}
