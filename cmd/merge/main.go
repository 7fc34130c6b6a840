package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"darjacollect/pkg/config"
	"darjacollect/pkg/dataset"
)

func main() {
	collectedDir := flag.String("collected-dir", "", "directory of collected batch files")
	excelPath := flag.String("excel", "", "path to the pre-labeled emotion spreadsheet")
	arsasURL := flag.String("arsas-url", "", "URL of the hosted ArSAS corpus")
	tsacURL := flag.String("tsac-url", "", "URL of the hosted TSAC corpus")
	output := flag.String("output", "", "path of the merged spreadsheet")
	configPath := flag.String("config", "configs/config.yml", "path to YAML config file")
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
	if *collectedDir == "" {
		*collectedDir = cfg.Collection.OutputDir
	}
	if *excelPath == "" {
		*excelPath = cfg.Merge.ExcelPath
	}
	if *arsasURL == "" {
		*arsasURL = cfg.Merge.ArSASURL
	}
	if *tsacURL == "" {
		*tsacURL = cfg.Merge.TSACURL
	}
	if *output == "" {
		*output = cfg.Merge.Output
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := &http.Client{Timeout: 2 * time.Minute}
	origins := dataset.BuildOrigins(ctx, client, dataset.Inputs{
		CollectedDir: *collectedDir,
		ExcelPath:    *excelPath,
		ArSASURL:     *arsasURL,
		TSACURL:      *tsacURL,
	}, logger)

	rows, _, err := dataset.Merge(origins, logger)
	if err != nil {
		if errors.Is(err, dataset.ErrNoData) {
			logger.Error("No data was processed, nothing to save")
			os.Exit(1)
		}
		logger.Fatal("Merge failed", zap.Error(err))
	}

	path, err := dataset.WriteTable(*output, rows, logger)
	if err != nil {
		logger.Fatal("Failed to save merged dataset", zap.Error(err))
	}
	logger.Info("Merged dataset saved", zap.String("path", path), zap.Int("rows", len(rows)))
}
