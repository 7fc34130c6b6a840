package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"darjacollect/pkg/collector"
	"darjacollect/pkg/config"
	"darjacollect/pkg/dataset"
	"darjacollect/pkg/sources"
)

// APIServer exposes collection runs and dataset merges over HTTP.
type APIServer struct {
	router   *gin.Engine
	cfg      *config.Config
	archiver collector.Archiver
	logger   *zap.Logger
}

// NewAPIServer creates a new API server instance. The archiver may be nil
// when no database is configured.
func NewAPIServer(cfg *config.Config, archiver collector.Archiver, logger *zap.Logger) *APIServer {
	router := gin.Default()

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	server := &APIServer{
		router:   router,
		cfg:      cfg,
		archiver: archiver,
		logger:   logger,
	}
	server.setupRoutes()
	return server
}

func (s *APIServer) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.POST("/collect", s.handleCollect)
	s.router.POST("/merge", s.handleMerge)
}

func (s *APIServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type collectRequest struct {
	Platform  string   `json:"platform"`
	Mode      string   `json:"mode" binding:"required"`
	Limit     int      `json:"limit"`
	Format    string   `json:"format"`
	VideoID   string   `json:"video_id"`
	Username  string   `json:"username"`
	TweetID   string   `json:"tweet_id"`
	PostID    string   `json:"post_id"`
	Keywords  []string `json:"keywords"`
	Subreddit string   `json:"subreddit"`
	OutputDir string   `json:"output_dir"`
}

func (s *APIServer) handleCollect(c *gin.Context) {
	var req collectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Error("Failed to bind JSON for collect", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Platform == "" {
		req.Platform = "all"
	}
	if req.Limit <= 0 {
		req.Limit = 100
	}
	if req.Format == "" {
		req.Format = collector.FormatJSONL
	}
	if req.Subreddit == "" {
		req.Subreddit = s.cfg.Collection.Subreddit
	}
	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = s.cfg.Collection.OutputDir
	}

	mode := collector.Mode(req.Mode)
	if mode != collector.ModeID && mode != collector.ModeKeywords {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid mode: %s", req.Mode)})
		return
	}
	if mode == collector.ModeKeywords && len(req.Keywords) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "keywords are required in keywords mode"})
		return
	}

	names, err := sources.Expand(req.Platform)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.cfg.ValidateCredentials(names); err != nil {
		var missing *config.MissingCredentialsError
		if errors.As(err, &missing) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "missing": missing.Vars})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	adapters, err := sources.Build(s.cfg, req.Platform, s.logger)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Minute)
	defer cancel()

	session := collector.NewSession(adapters, outputDir, s.archiver, s.logger)
	stats, err := session.Run(ctx, collector.Request{
		Mode:      mode,
		Limit:     req.Limit,
		Format:    req.Format,
		VideoID:   req.VideoID,
		Username:  req.Username,
		TweetID:   req.TweetID,
		PostID:    req.PostID,
		Keywords:  req.Keywords,
		Subreddit: req.Subreddit,
	})
	if err != nil {
		s.logger.Error("Collection run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run collection"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

type mergeRequest struct {
	CollectedDir string `json:"collected_dir"`
	ExcelPath    string `json:"excel_path"`
	ArSASURL     string `json:"arsas_url"`
	TSACURL      string `json:"tsac_url"`
	Output       string `json:"output"`
}

func (s *APIServer) handleMerge(c *gin.Context) {
	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Error("Failed to bind JSON for merge", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.CollectedDir == "" {
		req.CollectedDir = s.cfg.Collection.OutputDir
	}
	if req.ExcelPath == "" {
		req.ExcelPath = s.cfg.Merge.ExcelPath
	}
	if req.ArSASURL == "" {
		req.ArSASURL = s.cfg.Merge.ArSASURL
	}
	if req.TSACURL == "" {
		req.TSACURL = s.cfg.Merge.TSACURL
	}
	if req.Output == "" {
		req.Output = s.cfg.Merge.Output
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Minute)
	defer cancel()

	client := &http.Client{Timeout: 2 * time.Minute}
	origins := dataset.BuildOrigins(ctx, client, dataset.Inputs{
		CollectedDir: req.CollectedDir,
		ExcelPath:    req.ExcelPath,
		ArSASURL:     req.ArSASURL,
		TSACURL:      req.TSACURL,
	}, s.logger)

	rows, stats, err := dataset.Merge(origins, s.logger)
	if err != nil {
		if errors.Is(err, dataset.ErrNoData) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		s.logger.Error("Merge failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to merge dataset"})
		return
	}

	path, err := dataset.WriteTable(req.Output, rows, s.logger)
	if err != nil {
		s.logger.Error("Failed to write merged table", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write merged table"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"output": path,
		"rows":   stats.Total,
		"stats":  stats,
	})
}

// Start runs the API server on the specified address.
func (s *APIServer) Start(port string) error {
	addr := fmt.Sprintf(":%s", port)
	s.logger.Info("API server starting", zap.String("address", addr))
	return s.router.Run(addr)
}
