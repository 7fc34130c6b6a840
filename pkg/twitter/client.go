package twitter

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

	"github.com/dghubble/oauth1"
	"go.uber.org/zap"

	"darjacollect/pkg/collector"
)

const (
	defaultBaseURL = "https://api.twitter.com/1.1"

	// Search and timeline page size cap on the v1.1 API.
	maxPageSize = 100
)

// Credentials holds the OAuth1 user-context keys.
type Credentials struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

func (c Credentials) complete() bool {
	return c.APIKey != "" && c.APISecret != "" && c.AccessToken != "" && c.AccessSecret != ""
}

// Collector retrieves tweets and replies through the v1.1 REST API with
// OAuth1 request signing. When waitOnRateLimit is set, a 429 reply makes
// the client sleep until the window resets and retry once, mirroring the
// automatic wait capability of common API clients.
type Collector struct {
	*collector.Buffer

	creds           Credentials
	baseURL         string
	pageDelay       time.Duration
	waitOnRateLimit bool
	httpClient      *http.Client
	logger          *zap.Logger
}

// NewCollector creates a Twitter collector. An empty baseURL selects the
// public v1.1 endpoint.
func NewCollector(creds Credentials, baseURL string, pageDelay time.Duration, logger *zap.Logger) *Collector {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Collector{
		Buffer:          collector.NewBuffer(collector.PlatformTwitter),
		creds:           creds,
		baseURL:         baseURL,
		pageDelay:       pageDelay,
		waitOnRateLimit: true,
		logger:          logger,
	}
}

// Authenticate builds the signing HTTP client. Idempotent; collect methods
// call it lazily.
func (c *Collector) Authenticate(ctx context.Context) error {
	if c.httpClient != nil {
		return nil
	}
	if !c.creds.complete() {
		return &collector.AuthError{
			Platform: collector.PlatformTwitter,
			Err:      errors.New("API credentials incomplete"),
		}
	}

	oauthConfig := oauth1.NewConfig(c.creds.APIKey, c.creds.APISecret)
	token := oauth1.NewToken(c.creds.AccessToken, c.creds.AccessSecret)
	c.httpClient = oauthConfig.Client(oauth1.NoContext, token)
	c.httpClient.Timeout = 30 * time.Second
	c.logger.Info("Twitter API authenticated")
	return nil
}

// CollectByID resolves either a username (recent timeline, retweets
// excluded) or a tweet ID (reply reconstruction via a conversation query).
func (c *Collector) CollectByID(ctx context.Context, id string, limit int, kind collector.IDKind) ([]collector.Record, error) {
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}

	var tweets []collector.Record
	switch kind {
	case collector.KindUsername:
		c.logger.Info("Twitter user mode", zap.String("username", id))
		tweets = c.userTweets(ctx, id, limit)
		for i := range tweets {
			tweets[i].CollectionMethod = collector.MethodDirectUsername
		}
	case collector.KindTweetID:
		c.logger.Info("Twitter tweet mode", zap.String("tweet_id", id))
		tweets = c.tweetReplies(ctx, id, limit)
		for i := range tweets {
			tweets[i].CollectionMethod = collector.MethodDirectTweetID
		}
	default:
		c.logger.Error("Invalid Twitter ID kind", zap.String("kind", string(kind)))
		return nil, nil
	}

	c.Extend(tweets)
	return tweets, nil
}

// CollectByKeywords searches tweets per keyword with an Arabic language
// filter. The limit applies globally: each keyword receives an even share
// of the budget and collection stops once the cumulative total reaches
// limit.
func (c *Collector) CollectByKeywords(ctx context.Context, keywords []string, limit int, _ collector.KeywordOptions) ([]collector.Record, error) {
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}
	if len(keywords) == 0 {
		return nil, nil
	}

	c.logger.Info("Twitter search mode", zap.Strings("keywords", keywords))
	perKeyword := limit / len(keywords)
	if perKeyword < 1 {
		perKeyword = 1
	}

	var tweets []collector.Record
	for _, keyword := range keywords {
		if len(tweets) >= limit {
			break
		}
		budget := perKeyword
		if remaining := limit - len(tweets); budget > remaining {
			budget = remaining
		}

		c.logger.Info("Searching Twitter", zap.String("keyword", keyword))
		found := c.searchTweets(ctx, keyword, budget, true)
		tweets = append(tweets, found...)
	}

	for i := range tweets {
		tweets[i].CollectionMethod = collector.MethodKeywordSearch
		tweets[i].SearchKeywords = keywords
	}

	c.Extend(tweets)
	return tweets, nil
}

// userTweets pages through a user's recent timeline via max_id, excluding
// retweets. Failures are contained: tweets gathered so far are returned.
func (c *Collector) userTweets(ctx context.Context, username string, limit int) []collector.Record {
	var tweets []collector.Record
	maxID := ""

	for len(tweets) < limit {
		params := url.Values{}
		params.Set("screen_name", username)
		params.Set("count", strconv.Itoa(pageSize(limit-len(tweets))))
		params.Set("tweet_mode", "extended")
		params.Set("include_rts", "false")
		if maxID != "" {
			params.Set("max_id", maxID)
		}

		var page []tweet
		if err := c.apiGet(ctx, "/statuses/user_timeline.json", params, &page); err != nil {
			c.logger.Warn("Error getting tweets from user",
				zap.String("username", username), zap.Error(err))
			return tweets
		}
		if len(page) == 0 {
			break
		}

		for _, t := range page {
			isReply := t.InReplyToStatusIDStr != ""
			tweets = append(tweets, c.record(t, "", &isReply))
			if len(tweets) >= limit {
				break
			}
		}

		next, ok := nextMaxID(page)
		if !ok {
			break
		}
		maxID = next
		if !c.pause(ctx) {
			break
		}
	}

	return tweets
}

// tweetReplies reconstructs replies to one tweet by searching its
// conversation, since the v1.1 API has no native replies endpoint. A tweet
// counts as a reply when it answers the original status or addresses its
// author.
func (c *Collector) tweetReplies(ctx context.Context, tweetID string, limit int) []collector.Record {
	params := url.Values{}
	params.Set("id", tweetID)
	params.Set("tweet_mode", "extended")

	var original tweet
	if err := c.apiGet(ctx, "/statuses/show.json", params, &original); err != nil {
		c.logger.Warn("Error getting replies for tweet",
			zap.String("tweet_id", tweetID), zap.Error(err))
		return nil
	}

	c.logger.Info("Searching for replies", zap.String("tweet_id", tweetID))

	var replies []collector.Record
	maxID := ""
	for len(replies) < limit {
		params := url.Values{}
		params.Set("q", "conversation_id:"+tweetID)
		params.Set("count", strconv.Itoa(pageSize(limit-len(replies))))
		params.Set("tweet_mode", "extended")
		if maxID != "" {
			params.Set("max_id", maxID)
		}

		var resp searchResponse
		if err := c.apiGet(ctx, "/search/tweets.json", params, &resp); err != nil {
			c.logger.Warn("Error searching conversation",
				zap.String("tweet_id", tweetID), zap.Error(err))
			return replies
		}
		if len(resp.Statuses) == 0 {
			break
		}

		for _, t := range resp.Statuses {
			if t.InReplyToStatusIDStr != tweetID && t.InReplyToUserIDStr != original.User.IDStr {
				continue
			}
			isReply := true
			replies = append(replies, c.record(t, tweetID, &isReply))
			if len(replies) >= limit {
				break
			}
		}

		next, ok := nextMaxID(resp.Statuses)
		if !ok {
			break
		}
		maxID = next
		if !c.pause(ctx) {
			break
		}
	}

	return replies
}

// searchTweets collects up to limit tweets matching one query. arabicOnly
// adds the lang=ar filter used by keyword collection.
func (c *Collector) searchTweets(ctx context.Context, query string, limit int, arabicOnly bool) []collector.Record {
	var tweets []collector.Record
	maxID := ""

	for len(tweets) < limit {
		params := url.Values{}
		params.Set("q", query)
		params.Set("count", strconv.Itoa(pageSize(limit-len(tweets))))
		params.Set("tweet_mode", "extended")
		if arabicOnly {
			params.Set("lang", "ar")
		}
		if maxID != "" {
			params.Set("max_id", maxID)
		}

		var resp searchResponse
		if err := c.apiGet(ctx, "/search/tweets.json", params, &resp); err != nil {
			c.logger.Warn("Error searching tweets",
				zap.String("query", query), zap.Error(err))
			return tweets
		}
		if len(resp.Statuses) == 0 {
			break
		}

		for _, t := range resp.Statuses {
			isReply := false
			tweets = append(tweets, c.record(t, "", &isReply))
			if len(tweets) >= limit {
				break
			}
		}

		next, ok := nextMaxID(resp.Statuses)
		if !ok {
			break
		}
		maxID = next
		if !c.pause(ctx) {
			break
		}
	}

	return tweets
}

func (c *Collector) record(t tweet, parentTweetID string, isReply *bool) collector.Record {
	likes := t.FavoriteCount
	retweets := t.RetweetCount
	replyCount := t.ReplyCount
	return collector.Record{
		Source:              collector.PlatformTwitter,
		ID:                  t.IDStr,
		TweetID:             parentTweetID,
		TextRaw:             t.FullText,
		User:                t.User.ScreenName,
		CreatedAt:           isoCreatedAt(t.CreatedAt),
		Likes:               &likes,
		Retweets:            &retweets,
		ReplyCount:          &replyCount,
		IsReply:             isReply,
		CollectionTimestamp: float64(time.Now().UnixNano()) / 1e9,
	}
}

func (c *Collector) apiGet(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := c.baseURL + path + "?" + params.Encode()

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to make request: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests && c.waitOnRateLimit && attempt == 0 {
			wait := rateLimitWait(resp.Header.Get("x-rate-limit-reset"))
			c.logger.Warn("Rate limited, waiting for window reset",
				zap.Duration("wait", wait))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("Twitter API error %d: %s", resp.StatusCode, string(body))
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		return nil
	}
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

func pageSize(remaining int) int {
	if remaining > maxPageSize {
		return maxPageSize
	}
	return remaining
}

// nextMaxID computes the max_id for the next page: one below the smallest
// ID seen so far.
func nextMaxID(page []tweet) (string, bool) {
	last := page[len(page)-1].IDStr
	id, err := strconv.ParseInt(last, 10, 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatInt(id-1, 10), true
}

// isoCreatedAt converts the v1.1 timestamp format ("Wed Oct 10 20:19:24
// +0000 2018") to ISO-8601; unparseable values pass through unchanged.
func isoCreatedAt(s string) string {
	t, err := time.Parse(time.RubyDate, s)
	if err != nil {
		return s
	}
	return t.Format(time.RFC3339)
}

func rateLimitWait(reset string) time.Duration {
	epoch, err := strconv.ParseInt(reset, 10, 64)
	if err != nil {
		return 15 * time.Second
	}
	wait := time.Until(time.Unix(epoch, 0))
	if wait <= 0 {
		wait = time.Second
	}
	return wait
}

type tweet struct {
	IDStr                string `json:"id_str"`
	FullText             string `json:"full_text"`
	CreatedAt            string `json:"created_at"`
	FavoriteCount        int    `json:"favorite_count"`
	RetweetCount         int    `json:"retweet_count"`
	ReplyCount           int    `json:"reply_count"`
	InReplyToStatusIDStr string `json:"in_reply_to_status_id_str"`
	InReplyToUserIDStr   string `json:"in_reply_to_user_id_str"`
	User                 struct {
		IDStr      string `json:"id_str"`
		ScreenName string `json:"screen_name"`
	} `json:"user"`
}

type searchResponse struct {
	Statuses []tweet `json:"statuses"`
}
