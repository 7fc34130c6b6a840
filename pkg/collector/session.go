package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Collection modes.
type Mode string

const (
	ModeID       Mode = "id"
	ModeKeywords Mode = "keywords"
)

// Request describes one collection run.
type Request struct {
	Mode   Mode
	Limit  int
	Format string

	// ID-mode identifiers; each platform reads its own.
	VideoID  string
	Username string
	TweetID  string
	PostID   string

	// Keyword-mode parameters.
	Keywords  []string
	Subreddit string
}

// Archiver persists a saved batch to secondary storage. Archive failures
// are contained by the session; they never fail the run.
type Archiver interface {
	ArchiveBatch(ctx context.Context, batchFile string, records []Record) error
}

// Session drives one collection run across one or more source adapters.
// Each adapter runs independently: an authentication or retrieval failure
// on one platform is reported and the loop continues with the next.
type Session struct {
	sources   []Source
	outputDir string
	archiver  Archiver
	logger    *zap.Logger
	now       func() time.Time
}

// NewSession creates a session over the given adapters. The archiver may be
// nil.
func NewSession(sources []Source, outputDir string, archiver Archiver, logger *zap.Logger) *Session {
	return &Session{
		sources:   sources,
		outputDir: outputDir,
		archiver:  archiver,
		logger:    logger,
		now:       time.Now,
	}
}

// Run executes the request against every adapter, persists non-empty
// results to timestamped batch files, and returns per-platform statistics
// for the platforms that produced data. Platform failures are logged, not
// returned; only an unusable output directory fails the run.
func (s *Session) Run(ctx context.Context, req Request) ([]Stats, error) {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", s.outputDir, err)
	}

	var allStats []Stats
	for _, source := range s.sources {
		platform := source.Platform()
		s.logger.Info("Collecting",
			zap.String("platform", platform),
			zap.String("mode", string(req.Mode)))

		records, err := s.collect(ctx, source, req)
		if err != nil {
			s.logger.Error("Collection failed for platform, continuing with the rest",
				zap.String("platform", platform), zap.Error(err))
			continue
		}
		if len(records) == 0 {
			s.logger.Warn("No data collected", zap.String("platform", platform))
			continue
		}

		name := batchFileName(platform, req, s.now())
		path := filepath.Join(s.outputDir, name)
		if err := SaveRecords(path, req.Format, records); err != nil {
			s.logger.Error("Failed to save batch",
				zap.String("platform", platform), zap.String("path", path), zap.Error(err))
			continue
		}
		s.logger.Info("Saved batch",
			zap.String("path", path), zap.Int("records", len(records)))

		if s.archiver != nil {
			if err := s.archiver.ArchiveBatch(ctx, name, records); err != nil {
				s.logger.Warn("Failed to archive batch",
					zap.String("batch", name), zap.Error(err))
			}
		}

		stats := source.Stats()
		allStats = append(allStats, stats)
		s.logger.Info("Platform done",
			zap.String("platform", stats.Platform),
			zap.Int("total_collected", stats.TotalCollected),
			zap.Int("unique_sources", stats.UniqueSources))
	}

	s.summarize(allStats)
	return allStats, nil
}

func (s *Session) collect(ctx context.Context, source Source, req Request) ([]Record, error) {
	if req.Mode == ModeKeywords {
		return source.CollectByKeywords(ctx, req.Keywords, req.Limit, KeywordOptions{
			Subreddit: req.Subreddit,
		})
	}

	switch source.Platform() {
	case PlatformYouTube:
		return source.CollectByID(ctx, req.VideoID, req.Limit, KindDefault)
	case PlatformTwitter:
		if req.Username != "" {
			return source.CollectByID(ctx, req.Username, req.Limit, KindUsername)
		}
		return source.CollectByID(ctx, req.TweetID, req.Limit, KindTweetID)
	case PlatformReddit:
		return source.CollectByID(ctx, req.PostID, req.Limit, KindDefault)
	}
	return nil, fmt.Errorf("unknown platform: %s", source.Platform())
}

func (s *Session) summarize(allStats []Stats) {
	if len(allStats) == 0 {
		s.logger.Warn("No data was collected from any platform")
		return
	}

	total := 0
	for _, st := range allStats {
		total += st.TotalCollected
	}
	s.logger.Info("Collection summary", zap.Int("total_items", total))
	for _, st := range allStats {
		s.logger.Info("Platform summary",
			zap.String("platform", st.Platform),
			zap.Int("items", st.TotalCollected))
	}
}

// batchFileName builds data_<platform>_<mode>_<identifier>_<timestamp>.<ext>.
// ID-mode identifiers are truncated to eight characters except usernames;
// keyword mode joins the first two keywords and, for reddit, prefixes the
// subreddit.
func batchFileName(platform string, req Request, now time.Time) string {
	identifier := "unknown"
	if req.Mode == ModeID {
		switch {
		case platform == PlatformYouTube && req.VideoID != "":
			identifier = truncate(req.VideoID, 8)
		case platform == PlatformTwitter && req.Username != "":
			identifier = req.Username
		case platform == PlatformTwitter && req.TweetID != "":
			identifier = truncate(req.TweetID, 8)
		case platform == PlatformReddit && req.PostID != "":
			identifier = truncate(req.PostID, 8)
		}
	} else {
		identifier = "search"
		if len(req.Keywords) > 0 {
			n := len(req.Keywords)
			if n > 2 {
				n = 2
			}
			identifier = strings.Join(req.Keywords[:n], "_")
		}
		if platform == PlatformReddit && req.Subreddit != "" {
			identifier = req.Subreddit + "_" + identifier
		}
	}

	timestamp := now.Format("20060102_150405")
	return fmt.Sprintf("data_%s_%s_%s_%s.%s", platform, req.Mode, identifier, timestamp, req.Format)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
