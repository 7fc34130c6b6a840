package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"darjacollect/pkg/collector"
)

const (
	defaultBaseURL = "https://oauth.reddit.com"
	defaultAuthURL = "https://www.reddit.com"

	// Batch size for a single morechildren expansion call.
	moreBatchSize = 100
)

// Bodies and selftexts with these sentinels mark content deleted upstream.
var deletedSentinels = map[string]bool{
	"[deleted]": true,
	"[removed]": true,
}

// Credentials holds script-app keys for the OAuth client-credentials flow.
// Reddit requires a descriptive User-Agent on every request.
type Credentials struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
}

func (c Credentials) complete() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.UserAgent != ""
}

// Collector retrieves post comments through the Reddit OAuth API. Comment
// trees are flattened depth-first and every "more" continuation is expanded
// eagerly before the result is truncated to the requested limit.
type Collector struct {
	*collector.Buffer

	creds      Credentials
	baseURL    string
	authURL    string
	pageDelay  time.Duration
	httpClient *http.Client
	logger     *zap.Logger
	token      string
}

// NewCollector creates a Reddit collector. Empty baseURL/authURL select the
// public endpoints.
func NewCollector(creds Credentials, baseURL, authURL string, pageDelay time.Duration, logger *zap.Logger) *Collector {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if authURL == "" {
		authURL = defaultAuthURL
	}
	return &Collector{
		Buffer:    collector.NewBuffer(collector.PlatformReddit),
		creds:     creds,
		baseURL:   baseURL,
		authURL:   authURL,
		pageDelay: pageDelay,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Authenticate obtains an application-only token via the client-credentials
// grant. Idempotent; collect methods call it lazily.
func (c *Collector) Authenticate(ctx context.Context) error {
	if c.token != "" {
		return nil
	}
	if !c.creds.complete() {
		return &collector.AuthError{
			Platform: collector.PlatformReddit,
			Err:      errors.New("API credentials incomplete"),
		}
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.authURL+"/api/v1/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return &collector.AuthError{Platform: collector.PlatformReddit, Err: err}
	}
	req.SetBasicAuth(c.creds.ClientID, c.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.creds.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &collector.AuthError{Platform: collector.PlatformReddit, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &collector.AuthError{Platform: collector.PlatformReddit, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &collector.AuthError{
			Platform: collector.PlatformReddit,
			Err:      fmt.Errorf("token request returned %d: %s", resp.StatusCode, string(body)),
		}
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return &collector.AuthError{Platform: collector.PlatformReddit, Err: err}
	}
	if tokenResp.AccessToken == "" {
		return &collector.AuthError{
			Platform: collector.PlatformReddit,
			Err:      errors.New("token request rejected by the remote service"),
		}
	}

	c.token = tokenResp.AccessToken
	c.logger.Info("Reddit API authenticated (read-only)")
	return nil
}

// CollectByID fetches up to limit comments from one post. Posts flagged
// removed or restricted by the platform are discarded with a non-fatal
// notice.
func (c *Collector) CollectByID(ctx context.Context, postID string, limit int, _ collector.IDKind) ([]collector.Record, error) {
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}

	c.logger.Info("Reddit direct mode", zap.String("post_id", postID))

	post, comments, err := c.fetchThread(ctx, postID, limit)
	if err != nil {
		c.logger.Warn("Error getting comments for post",
			zap.String("post_id", postID), zap.Error(err))
		return nil, nil
	}
	if post.RemovedByCategory != "" {
		c.logger.Warn("Post is removed or restricted, skipping",
			zap.String("post_id", postID))
		return nil, nil
	}

	records := c.records(postID, comments, limit, collector.MethodDirectPostID)
	c.Extend(records)
	return records, nil
}

// CollectByKeywords searches the given community for each keyword, keeps
// posts whose selftext is not a deleted sentinel, and spreads the limit
// evenly across surviving posts.
func (c *Collector) CollectByKeywords(ctx context.Context, keywords []string, limit int, opts collector.KeywordOptions) ([]collector.Record, error) {
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}

	subreddit := opts.Subreddit
	if subreddit == "" {
		subreddit = "all"
	}
	c.logger.Info("Reddit search mode",
		zap.String("subreddit", subreddit), zap.Strings("keywords", keywords))

	posts := c.searchPosts(ctx, subreddit, keywords, max(1, limit/10))
	c.logger.Info("Found posts matching keywords", zap.Int("count", len(posts)))
	if len(posts) == 0 {
		return nil, nil
	}

	perPost := limit / len(posts)
	if perPost < 1 {
		perPost = 1
	}

	var records []collector.Record
	for _, post := range posts {
		if len(records) >= limit {
			break
		}
		_, comments, err := c.fetchThread(ctx, post.ID, perPost)
		if err != nil {
			c.logger.Warn("Error getting comments for post",
				zap.String("post_id", post.ID), zap.Error(err))
			continue
		}
		postRecords := c.records(post.ID, comments, perPost, collector.MethodKeywordSearch)
		for i := range postRecords {
			postRecords[i].SearchKeywords = keywords
			postRecords[i].SearchSubreddit = subreddit
		}
		records = append(records, postRecords...)
		c.logger.Info("Collected comments from post",
			zap.String("post_id", post.ID), zap.Int("count", len(postRecords)))
	}

	c.Extend(records)
	return records, nil
}

// fetchThread retrieves a post and its fully expanded comment tree. Every
// "more" continuation is resolved through api/morechildren; expansion stops
// early only once enough comments exist to satisfy the limit.
func (c *Collector) fetchThread(ctx context.Context, postID string, limit int) (postData, []commentData, error) {
	var listings []listing
	params := url.Values{}
	params.Set("raw_json", "1")
	if err := c.apiGet(ctx, "/comments/"+postID+".json", params, &listings); err != nil {
		return postData{}, nil, err
	}
	if len(listings) < 2 || len(listings[0].Data.Children) == 0 {
		return postData{}, nil, fmt.Errorf("unexpected thread shape for post %s", postID)
	}

	var post postData
	if err := json.Unmarshal(listings[0].Data.Children[0].Data, &post); err != nil {
		return postData{}, nil, fmt.Errorf("failed to parse post: %w", err)
	}

	comments, moreIDs := flatten(listings[1].Data.Children)

	for len(moreIDs) > 0 && len(comments) < limit {
		batch := moreIDs
		if len(batch) > moreBatchSize {
			batch = batch[:moreBatchSize]
		}
		moreIDs = moreIDs[len(batch):]

		expanded, nested, err := c.moreChildren(ctx, postID, batch)
		if err != nil {
			c.logger.Warn("Error expanding comment continuation",
				zap.String("post_id", postID), zap.Error(err))
			break
		}
		comments = append(comments, expanded...)
		moreIDs = append(moreIDs, nested...)
	}

	return post, comments, nil
}

func (c *Collector) moreChildren(ctx context.Context, postID string, ids []string) ([]commentData, []string, error) {
	params := url.Values{}
	params.Set("api_type", "json")
	params.Set("link_id", "t3_"+postID)
	params.Set("children", strings.Join(ids, ","))
	params.Set("limit_children", "false")
	params.Set("raw_json", "1")

	var resp moreChildrenResponse
	if err := c.apiGet(ctx, "/api/morechildren", params, &resp); err != nil {
		return nil, nil, err
	}
	expanded, nested := flatten(resp.JSON.Data.Things)
	return expanded, nested, nil
}

// records maps filtered comments into the common schema, truncated to
// limit. Deleted and removed comments are dropped; anonymized authors get
// the [deleted] placeholder.
func (c *Collector) records(postID string, comments []commentData, limit int, method string) []collector.Record {
	var records []collector.Record
	for _, comment := range comments {
		if len(records) >= limit {
			break
		}
		if comment.Body == "" || deletedSentinels[comment.Body] {
			continue
		}
		author := comment.Author
		if author == "" {
			author = "[deleted]"
		}
		score := comment.Score
		isSubmitter := comment.IsSubmitter
		records = append(records, collector.Record{
			Source:              collector.PlatformReddit,
			ID:                  comment.ID,
			TextRaw:             comment.Body,
			User:                author,
			CreatedAt:           comment.CreatedUTC,
			Score:               &score,
			ThreadID:            postID,
			ParentID:            comment.ParentID,
			IsSubmitter:         &isSubmitter,
			Subreddit:           comment.Subreddit,
			CollectionMethod:    method,
			CollectionTimestamp: float64(time.Now().UnixNano()) / 1e9,
		})
	}
	return records
}

// searchPosts runs one search per keyword against the community, capped at
// maxPosts candidates in total, discarding posts with sentinel selftexts.
func (c *Collector) searchPosts(ctx context.Context, subreddit string, keywords []string, maxPosts int) []postData {
	var posts []postData

	perKeyword := maxPosts / len(keywords)
	if perKeyword < 1 {
		perKeyword = 1
	}

	for _, keyword := range keywords {
		if len(posts) >= maxPosts {
			break
		}
		c.logger.Info("Searching subreddit",
			zap.String("subreddit", subreddit), zap.String("keyword", keyword))

		params := url.Values{}
		params.Set("q", keyword)
		params.Set("restrict_sr", "1")
		params.Set("limit", strconv.Itoa(perKeyword))
		params.Set("raw_json", "1")

		var resp listing
		if err := c.apiGet(ctx, "/r/"+subreddit+"/search.json", params, &resp); err != nil {
			c.logger.Warn("Error searching subreddit",
				zap.String("subreddit", subreddit), zap.String("keyword", keyword), zap.Error(err))
			continue
		}

		for _, child := range resp.Data.Children {
			if child.Kind != "t3" {
				continue
			}
			var post postData
			if err := json.Unmarshal(child.Data, &post); err != nil {
				c.logger.Warn("Malformed post in search results", zap.Error(err))
				continue
			}
			if deletedSentinels[post.Selftext] {
				continue
			}
			posts = append(posts, post)
			c.logger.Info("Found post", zap.String("title", post.Title))
			if len(posts) >= maxPosts {
				break
			}
		}

		if !c.pause(ctx) {
			break
		}
	}

	return posts
}

func (c *Collector) apiGet(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", c.creds.UserAgent)

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
		return fmt.Errorf("Reddit API error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

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

// flatten walks a comment forest depth-first, returning comments in tree
// order plus the IDs of any "more" continuations encountered.
func flatten(children []thing) ([]commentData, []string) {
	var comments []commentData
	var moreIDs []string

	for _, child := range children {
		switch child.Kind {
		case "t1":
			var comment commentData
			if err := json.Unmarshal(child.Data, &comment); err != nil {
				continue
			}
			replies := comment.replyChildren()
			comments = append(comments, comment)
			nested, nestedMore := flatten(replies)
			comments = append(comments, nested...)
			moreIDs = append(moreIDs, nestedMore...)
		case "more":
			var more moreData
			if err := json.Unmarshal(child.Data, &more); err != nil {
				continue
			}
			moreIDs = append(moreIDs, more.Children...)
		}
	}

	return comments, moreIDs
}

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listing struct {
	Data struct {
		Children []thing `json:"children"`
	} `json:"data"`
}

type postData struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	Selftext          string  `json:"selftext"`
	Author            string  `json:"author"`
	Subreddit         string  `json:"subreddit"`
	CreatedUTC        float64 `json:"created_utc"`
	Score             int     `json:"score"`
	NumComments       int     `json:"num_comments"`
	RemovedByCategory string  `json:"removed_by_category"`
}

type commentData struct {
	ID          string          `json:"id"`
	Body        string          `json:"body"`
	Author      string          `json:"author"`
	CreatedUTC  float64         `json:"created_utc"`
	Score       int             `json:"score"`
	ParentID    string          `json:"parent_id"`
	IsSubmitter bool            `json:"is_submitter"`
	Subreddit   string          `json:"subreddit"`
	Replies     json.RawMessage `json:"replies"`
}

// replyChildren decodes the nested reply listing; the API sends an empty
// string instead of a listing when a comment has no replies.
func (c commentData) replyChildren() []thing {
	if len(c.Replies) == 0 || string(c.Replies) == `""` {
		return nil
	}
	var l listing
	if err := json.Unmarshal(c.Replies, &l); err != nil {
		return nil
	}
	return l.Data.Children
}

type moreData struct {
	Children []string `json:"children"`
}

type moreChildrenResponse struct {
	JSON struct {
		Data struct {
			Things []thing `json:"things"`
		} `json:"data"`
	} `json:"json"`
}
