package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"darjacollect/pkg/collector"
)

var testCreds = Credentials{
	APIKey:       "key",
	APISecret:    "secret",
	AccessToken:  "token",
	AccessSecret: "token-secret",
}

func timelinePage(startID, count int) []map[string]any {
	page := make([]map[string]any, count)
	for i := range page {
		page[i] = map[string]any{
			"id_str":     strconv.Itoa(startID - i),
			"full_text":  fmt.Sprintf("tweet %d", startID-i),
			"created_at": "Wed Oct 10 20:19:24 +0000 2018",
			"user":       map[string]any{"id_str": "42", "screen_name": "someone"},
		}
	}
	return page
}

func TestAuthenticateRequiresCompleteCredentials(t *testing.T) {
	c := NewCollector(Credentials{APIKey: "key"}, "http://localhost", 0, zap.NewNop())

	err := c.Authenticate(context.Background())
	require.Error(t, err)

	var authErr *collector.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, collector.PlatformTwitter, authErr.Platform)
}

func TestUserTimelinePaginatesWithMaxID(t *testing.T) {
	var maxIDs []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/statuses/user_timeline.json", r.URL.Path)
		assert.Equal(t, "someone", r.URL.Query().Get("screen_name"))
		assert.Equal(t, "false", r.URL.Query().Get("include_rts"))
		maxIDs = append(maxIDs, r.URL.Query().Get("max_id"))

		if len(maxIDs) == 1 {
			json.NewEncoder(w).Encode(timelinePage(1000, 100))
			return
		}
		json.NewEncoder(w).Encode(timelinePage(800, 50))
	}))
	defer srv.Close()

	c := NewCollector(testCreds, srv.URL, 0, zap.NewNop())
	records, err := c.CollectByID(context.Background(), "someone", 150, collector.KindUsername)
	require.NoError(t, err)

	assert.Len(t, records, 150)
	// Second page resumes one below the smallest ID of the first page.
	assert.Equal(t, []string{"", "900"}, maxIDs)

	first := records[0]
	assert.Equal(t, collector.PlatformTwitter, first.Source)
	assert.Equal(t, collector.MethodDirectUsername, first.CollectionMethod)
	assert.Equal(t, "2018-10-10T20:19:24Z", first.CreatedAt)
	require.NotNil(t, first.IsReply)
	assert.False(t, *first.IsReply)
}

func TestTweetRepliesFiltersConversation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/statuses/show.json":
			assert.Equal(t, "500", r.URL.Query().Get("id"))
			json.NewEncoder(w).Encode(map[string]any{
				"id_str": "500",
				"user":   map[string]any{"id_str": "42", "screen_name": "author"},
			})
		case "/search/tweets.json":
			assert.Equal(t, "conversation_id:500", r.URL.Query().Get("q"))
			json.NewEncoder(w).Encode(map[string]any{
				"statuses": []map[string]any{
					{
						"id_str": "503", "full_text": "direct reply",
						"created_at":                "Wed Oct 10 20:19:24 +0000 2018",
						"in_reply_to_status_id_str": "500",
						"user":                      map[string]any{"id_str": "7", "screen_name": "u1"},
					},
					{
						"id_str": "502", "full_text": "reply to author",
						"created_at":              "Wed Oct 10 20:19:24 +0000 2018",
						"in_reply_to_user_id_str": "42",
						"user":                    map[string]any{"id_str": "8", "screen_name": "u2"},
					},
					{
						"id_str": "not-a-number", "full_text": "unrelated",
						"created_at": "Wed Oct 10 20:19:24 +0000 2018",
						"user":       map[string]any{"id_str": "9", "screen_name": "u3"},
					},
				},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewCollector(testCreds, srv.URL, 0, zap.NewNop())
	records, err := c.CollectByID(context.Background(), "500", 10, collector.KindTweetID)
	require.NoError(t, err)

	require.Len(t, records, 2)
	for _, record := range records {
		assert.Equal(t, collector.MethodDirectTweetID, record.CollectionMethod)
		assert.Equal(t, "500", record.TweetID)
		require.NotNil(t, record.IsReply)
		assert.True(t, *record.IsReply)
	}
}

func TestInvalidIDKindReturnsNothing(t *testing.T) {
	c := NewCollector(testCreds, "http://localhost", 0, zap.NewNop())
	records, err := c.CollectByID(context.Background(), "x", 10, collector.KindDefault)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestKeywordSearchAppliesGlobalLimit(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search/tweets.json", r.URL.Path)
		assert.Equal(t, "ar", r.URL.Query().Get("lang"))
		queries = append(queries, r.URL.Query().Get("q"))

		count, _ := strconv.Atoi(r.URL.Query().Get("count"))
		json.NewEncoder(w).Encode(map[string]any{
			"statuses": timelinePage(9000-1000*len(queries), count),
		})
	}))
	defer srv.Close()

	c := NewCollector(testCreds, srv.URL, 0, zap.NewNop())
	records, err := c.CollectByKeywords(context.Background(), []string{"برشا", "مزيان", "باهي"}, 7, collector.KeywordOptions{})
	require.NoError(t, err)

	// 7/3 rounds down to 2 per keyword; the final keyword is capped by the
	// remaining budget so the global limit holds.
	assert.Len(t, records, 6)
	assert.Equal(t, []string{"برشا", "مزيان", "باهي"}, queries)
	for _, record := range records {
		assert.Equal(t, collector.MethodKeywordSearch, record.CollectionMethod)
		assert.Equal(t, []string{"برشا", "مزيان", "باهي"}, record.SearchKeywords)
	}
}

func TestRateLimitedRequestRetriesOnce(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("x-rate-limit-reset", strconv.FormatInt(0, 10))
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(timelinePage(100, 3))
	}))
	defer srv.Close()

	c := NewCollector(testCreds, srv.URL, 0, zap.NewNop())
	records, err := c.CollectByID(context.Background(), "someone", 3, collector.KindUsername)
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, 2, calls)
}

func TestIsoCreatedAt(t *testing.T) {
	assert.Equal(t, "2018-10-10T20:19:24Z", isoCreatedAt("Wed Oct 10 20:19:24 +0000 2018"))
	assert.Equal(t, "garbage", isoCreatedAt("garbage"))
}

func TestNextMaxID(t *testing.T) {
	next, ok := nextMaxID([]tweet{{IDStr: "100"}, {IDStr: "90"}})
	require.True(t, ok)
	assert.Equal(t, "89", next)

	_, ok = nextMaxID([]tweet{{IDStr: "not-a-number"}})
	assert.False(t, ok)
}
