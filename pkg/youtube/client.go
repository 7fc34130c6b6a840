package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"darjacollect/pkg/collector"
)

const (
	defaultBaseURL = "https://www.googleapis.com/youtube/v3"

	// Platform cap on commentThreads page size.
	maxPageSize = 100

	// Keyword mode never inspects more than this many candidate videos.
	maxSearchVideos = 10
)

// Collector retrieves top-level video comments through the YouTube Data
// API. Comment listing paginates with an opaque continuation token and
// pauses between pages to stay under the quota.
type Collector struct {
	*collector.Buffer

	apiKey        string
	baseURL       string
	pageDelay     time.Duration
	httpClient    *http.Client
	logger        *zap.Logger
	authenticated bool
}

// NewCollector creates a YouTube collector. An empty baseURL selects the
// public API endpoint.
func NewCollector(apiKey, baseURL string, pageDelay time.Duration, logger *zap.Logger) *Collector {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Collector{
		Buffer:    collector.NewBuffer(collector.PlatformYouTube),
		apiKey:    apiKey,
		baseURL:   baseURL,
		pageDelay: pageDelay,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Authenticate validates that an API key is available. The Data API is
// key-based, so there is no handshake; the call is idempotent.
func (c *Collector) Authenticate(ctx context.Context) error {
	if c.authenticated {
		return nil
	}
	if c.apiKey == "" {
		return &collector.AuthError{
			Platform: collector.PlatformYouTube,
			Err:      errors.New("API key not found in configuration"),
		}
	}
	c.authenticated = true
	c.logger.Info("YouTube API authenticated")
	return nil
}

// CollectByID fetches up to limit top-level comments from one video. Videos
// with disabled comments or missing videos degrade to an empty result with
// a logged notice.
func (c *Collector) CollectByID(ctx context.Context, videoID string, limit int, _ collector.IDKind) ([]collector.Record, error) {
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}

	c.logger.Info("YouTube direct mode", zap.String("video_id", videoID))
	comments := c.videoComments(ctx, videoID, limit)
	c.Extend(comments)
	return comments, nil
}

// CollectByKeywords searches for candidate videos and spreads the limit
// roughly evenly across them, stopping once the cumulative total reaches
// limit.
func (c *Collector) CollectByKeywords(ctx context.Context, keywords []string, limit int, _ collector.KeywordOptions) ([]collector.Record, error) {
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}

	c.logger.Info("YouTube search mode", zap.Strings("keywords", keywords))
	videoIDs := c.searchVideos(ctx, keywords, maxSearchVideos)
	if len(videoIDs) == 0 {
		c.logger.Warn("No videos found with the given keywords")
		return nil, nil
	}

	perVideo := limit / len(videoIDs)
	if perVideo < 1 {
		perVideo = 1
	}

	var comments []collector.Record
	for _, videoID := range videoIDs {
		if len(comments) >= limit {
			break
		}
		videoComments := c.videoComments(ctx, videoID, perVideo)
		for i := range videoComments {
			videoComments[i].CollectionMethod = collector.MethodKeywordSearch
			videoComments[i].SearchKeywords = keywords
		}
		comments = append(comments, videoComments...)
		c.logger.Info("Collected comments from video",
			zap.String("video_id", videoID), zap.Int("count", len(videoComments)))
	}

	c.Extend(comments)
	return comments, nil
}

// videoComments pages through the commentThreads listing for one video.
// All retrieval failures are contained: the comments gathered so far are
// returned with a logged notice.
func (c *Collector) videoComments(ctx context.Context, videoID string, limit int) []collector.Record {
	var comments []collector.Record
	pageToken := ""

	for len(comments) < limit {
		remaining := limit - len(comments)
		pageSize := remaining
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		params := url.Values{}
		params.Set("part", "snippet")
		params.Set("videoId", videoID)
		params.Set("maxResults", strconv.Itoa(pageSize))
		params.Set("textFormat", "plainText")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var resp commentThreadsResponse
		if err := c.apiGet(ctx, "commentThreads", params, &resp); err != nil {
			var apiErr *apiError
			switch {
			case errors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden:
				c.logger.Warn("Comments disabled for video", zap.String("video_id", videoID))
			case errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound:
				c.logger.Warn("Video not found", zap.String("video_id", videoID))
			default:
				c.logger.Warn("Error getting comments for video",
					zap.String("video_id", videoID), zap.Error(err))
			}
			return comments
		}

		if len(resp.Items) == 0 {
			break
		}

		for _, item := range resp.Items {
			snippet := item.Snippet.TopLevelComment.Snippet
			likes := snippet.LikeCount
			replyCount := item.Snippet.TotalReplyCount
			comments = append(comments, collector.Record{
				Source:              collector.PlatformYouTube,
				ID:                  item.ID,
				VideoID:             videoID,
				TextRaw:             snippet.TextDisplay,
				User:                snippet.AuthorDisplayName,
				CreatedAt:           snippet.PublishedAt,
				Likes:               &likes,
				ReplyCount:          &replyCount,
				CollectionMethod:    collector.MethodDirectID,
				CollectionTimestamp: float64(time.Now().UnixNano()) / 1e9,
			})
			if len(comments) >= limit {
				break
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
		if !c.pause(ctx) {
			return comments
		}
	}

	return comments
}

// searchVideos runs a bounded, region- and language-biased video search per
// keyword and returns candidate video IDs. Per-keyword failures are logged
// and skipped.
func (c *Collector) searchVideos(ctx context.Context, keywords []string, maxVideos int) []string {
	var videoIDs []string

	for _, keyword := range keywords {
		if len(videoIDs) >= maxVideos {
			break
		}

		c.logger.Info("Searching YouTube", zap.String("keyword", keyword))
		params := url.Values{}
		params.Set("part", "id,snippet")
		params.Set("q", keyword)
		params.Set("type", "video")
		params.Set("maxResults", strconv.Itoa(min(50, maxVideos-len(videoIDs))))
		params.Set("regionCode", "TN")
		params.Set("relevanceLanguage", "ar")

		var resp searchResponse
		if err := c.apiGet(ctx, "search", params, &resp); err != nil {
			c.logger.Warn("Error searching for keyword",
				zap.String("keyword", keyword), zap.Error(err))
			continue
		}

		for _, item := range resp.Items {
			if item.ID.VideoID == "" {
				continue
			}
			videoIDs = append(videoIDs, item.ID.VideoID)
			c.logger.Info("Found video",
				zap.String("video_id", item.ID.VideoID),
				zap.String("title", item.Snippet.Title))
			if len(videoIDs) >= maxVideos {
				break
			}
		}

		if !c.pause(ctx) {
			break
		}
	}

	return videoIDs
}

// pause sleeps the configured inter-page delay; returns false when the
// context is cancelled.
func (c *Collector) pause(ctx context.Context) bool {
	if c.pageDelay <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.pageDelay):
		return true
	}
}

func (c *Collector) apiGet(ctx context.Context, method string, params url.Values, out any) error {
	params.Set("key", c.apiKey)
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, method, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &apiError{Code: resp.StatusCode}
		var wrapper errorResponse
		if json.Unmarshal(body, &wrapper) == nil && wrapper.Error.Message != "" {
			apiErr.Message = wrapper.Error.Message
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// apiError is a non-2xx reply from the Data API.
type apiError struct {
	Code    int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("YouTube API error %d: %s", e.Code, e.Message)
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type commentThreadsResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			TotalReplyCount int `json:"totalReplyCount"`
			TopLevelComment struct {
				Snippet struct {
					TextDisplay       string `json:"textDisplay"`
					AuthorDisplayName string `json:"authorDisplayName"`
					PublishedAt       string `json:"publishedAt"`
					LikeCount         int    `json:"likeCount"`
				} `json:"snippet"`
			} `json:"topLevelComment"`
		} `json:"snippet"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}
