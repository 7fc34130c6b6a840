package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"darjacollect/pkg/collector"
	"darjacollect/pkg/config"
	"darjacollect/pkg/sources"
	"darjacollect/pkg/storage"
)

func main() {
	platform := flag.String("platform", "all", "platform to collect from: youtube, twitter, reddit or all")
	mode := flag.String("mode", "id", "collection mode: id or keywords")
	limit := flag.Int("limit", 100, "maximum items per platform")
	format := flag.String("output-format", "jsonl", "batch format: jsonl, csv or parquet")
	videoID := flag.String("video-id", "", "YouTube video ID (id mode)")
	username := flag.String("username", "", "Twitter username (id mode)")
	tweetID := flag.String("tweet-id", "", "Twitter tweet ID (id mode)")
	postID := flag.String("post-id", "", "Reddit post ID (id mode)")
	keywords := flag.String("keywords", "", "comma-separated search keywords (keywords mode)")
	subreddit := flag.String("subreddit", "", "subreddit to search (keywords mode)")
	outputDir := flag.String("output-dir", "", "directory for batch files")
	configPath := flag.String("config", "configs/config.yml", "path to YAML config file")
	flag.Parse()

	// Missing .env is fine; credentials may come from the environment itself.
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
	if *outputDir == "" {
		*outputDir = cfg.Collection.OutputDir
	}
	if *subreddit == "" {
		*subreddit = cfg.Collection.Subreddit
	}

	req := collector.Request{
		Mode:      collector.Mode(*mode),
		Limit:     *limit,
		Format:    *format,
		VideoID:   *videoID,
		Username:  *username,
		TweetID:   *tweetID,
		PostID:    *postID,
		Keywords:  splitKeywords(*keywords),
		Subreddit: *subreddit,
	}

	names, problems := validate(*platform, req)
	if len(problems) > 0 {
		for _, problem := range problems {
			logger.Error("Invalid arguments", zap.String("problem", problem))
		}
		os.Exit(1)
	}

	if err := cfg.ValidateCredentials(names); err != nil {
		logger.Error("Missing credentials", zap.Error(err))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var archiver collector.Archiver
	if cfg.Database.URL != "" {
		st, err := openArchive(cfg.Database.URL, logger)
		if err != nil {
			logger.Warn("Archive database unavailable, continuing without it", zap.Error(err))
		} else {
			defer st.Close()
			archiver = st
		}
	}

	adapters, err := sources.Build(cfg, *platform, logger)
	if err != nil {
		logger.Fatal("Failed to build platform adapters", zap.Error(err))
	}

	session := collector.NewSession(adapters, *outputDir, archiver, logger)
	if _, err := session.Run(ctx, req); err != nil {
		logger.Fatal("Collection run failed", zap.Error(err))
	}
}

func openArchive(databaseURL string, logger *zap.Logger) (*storage.Storage, error) {
	if err := storage.ApplyMigrations(databaseURL, "./migrations", logger); err != nil {
		return nil, err
	}
	return storage.New(databaseURL, logger)
}

// validate expands the platform selector and reports every argument problem
// at once.
func validate(platform string, req collector.Request) ([]string, []string) {
	var problems []string

	names, err := sources.Expand(platform)
	if err != nil {
		problems = append(problems, err.Error())
	}

	if req.Mode != collector.ModeID && req.Mode != collector.ModeKeywords {
		problems = append(problems, fmt.Sprintf("invalid mode: %s", req.Mode))
	}
	if req.Limit <= 0 {
		problems = append(problems, "limit must be positive")
	}
	switch req.Format {
	case collector.FormatJSONL, collector.FormatCSV, collector.FormatParquet:
	default:
		problems = append(problems, fmt.Sprintf("invalid output format: %s", req.Format))
	}

	switch req.Mode {
	case collector.ModeKeywords:
		if len(req.Keywords) == 0 {
			problems = append(problems, "keywords mode requires --keywords")
		}
	case collector.ModeID:
		for _, name := range names {
			switch name {
			case "youtube":
				if req.VideoID == "" {
					problems = append(problems, "youtube id mode requires --video-id")
				}
			case "twitter":
				if req.Username == "" && req.TweetID == "" {
					problems = append(problems, "twitter id mode requires --username or --tweet-id")
				}
			case "reddit":
				if req.PostID == "" {
					problems = append(problems, "reddit id mode requires --post-id")
				}
			}
		}
	}

	return names, problems
}

func splitKeywords(raw string) []string {
	var keywords []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			keywords = append(keywords, part)
		}
	}
	return keywords
}
