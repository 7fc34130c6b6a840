package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"darjacollect/pkg/collector"
)

func commentPage(prefix string, count int, nextToken string) map[string]any {
	items := make([]map[string]any, count)
	for i := range items {
		items[i] = map[string]any{
			"id": fmt.Sprintf("%s-%d", prefix, i),
			"snippet": map[string]any{
				"totalReplyCount": 1,
				"topLevelComment": map[string]any{
					"snippet": map[string]any{
						"textDisplay":       fmt.Sprintf("comment %s-%d", prefix, i),
						"authorDisplayName": "someone",
						"publishedAt":       "2024-03-01T10:00:00Z",
						"likeCount":         i,
					},
				},
			},
		}
	}
	page := map[string]any{"items": items}
	if nextToken != "" {
		page["nextPageToken"] = nextToken
	}
	return page
}

func TestAuthenticateRequiresAPIKey(t *testing.T) {
	c := NewCollector("", "http://localhost", 0, zap.NewNop())

	err := c.Authenticate(context.Background())
	require.Error(t, err)

	var authErr *collector.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, collector.PlatformYouTube, authErr.Platform)
}

func TestCollectByIDPaginatesUpToLimit(t *testing.T) {
	var maxResults []string
	var pageTokens []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/commentThreads", r.URL.Path)
		assert.Equal(t, "vid123", r.URL.Query().Get("videoId"))
		maxResults = append(maxResults, r.URL.Query().Get("maxResults"))
		pageTokens = append(pageTokens, r.URL.Query().Get("pageToken"))

		if len(maxResults) == 1 {
			json.NewEncoder(w).Encode(commentPage("p1", 100, "tok-2"))
			return
		}
		json.NewEncoder(w).Encode(commentPage("p2", 50, ""))
	}))
	defer srv.Close()

	c := NewCollector("key", srv.URL, 0, zap.NewNop())
	records, err := c.CollectByID(context.Background(), "vid123", 150, collector.KindDefault)
	require.NoError(t, err)

	assert.Len(t, records, 150)
	assert.Equal(t, []string{"100", "50"}, maxResults)
	assert.Equal(t, []string{"", "tok-2"}, pageTokens)

	first := records[0]
	assert.Equal(t, collector.PlatformYouTube, first.Source)
	assert.Equal(t, "vid123", first.VideoID)
	assert.Equal(t, collector.MethodDirectID, first.CollectionMethod)
	assert.Equal(t, "comment p1-0", first.TextRaw)
}

func TestCollectByIDStopsMidPageAtLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Server over-delivers relative to maxResults.
		json.NewEncoder(w).Encode(commentPage("p", 30, "more"))
	}))
	defer srv.Close()

	c := NewCollector("key", srv.URL, 0, zap.NewNop())
	records, err := c.CollectByID(context.Background(), "vid", 7, collector.KindDefault)
	require.NoError(t, err)
	assert.Len(t, records, 7)
}

func TestCollectByIDCommentsDisabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 403, "message": "commentsDisabled"},
		})
	}))
	defer srv.Close()

	c := NewCollector("key", srv.URL, 0, zap.NewNop())
	records, err := c.CollectByID(context.Background(), "vid", 10, collector.KindDefault)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCollectByIDVideoNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 404, "message": "videoNotFound"},
		})
	}))
	defer srv.Close()

	c := NewCollector("key", srv.URL, 0, zap.NewNop())
	records, err := c.CollectByID(context.Background(), "missing", 10, collector.KindDefault)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCollectByKeywordsSpreadsLimitAcrossVideos(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			assert.Equal(t, "TN", r.URL.Query().Get("regionCode"))
			assert.Equal(t, "ar", r.URL.Query().Get("relevanceLanguage"))
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{
					{"id": map[string]any{"videoId": "vidA"}, "snippet": map[string]any{"title": "a"}},
					{"id": map[string]any{"videoId": "vidB"}, "snippet": map[string]any{"title": "b"}},
				},
			})
		case "/commentThreads":
			vid := r.URL.Query().Get("videoId")
			json.NewEncoder(w).Encode(commentPage(vid, 5, ""))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewCollector("key", srv.URL, 0, zap.NewNop())
	records, err := c.CollectByKeywords(context.Background(), []string{"برشا", "مزيان"}, 10, collector.KeywordOptions{})
	require.NoError(t, err)

	assert.Len(t, records, 10)
	for _, record := range records {
		assert.Equal(t, collector.MethodKeywordSearch, record.CollectionMethod)
		assert.Equal(t, []string{"برشا", "مزيان"}, record.SearchKeywords)
	}

	stats := c.Stats()
	assert.Equal(t, collector.PlatformYouTube, stats.Platform)
	assert.Equal(t, 10, stats.TotalCollected)
	assert.Equal(t, 2, stats.UniqueSources)
}

func TestCollectByKeywordsNoVideosFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"items": []map[string]any{}})
	}))
	defer srv.Close()

	c := NewCollector("key", srv.URL, 0, zap.NewNop())
	records, err := c.CollectByKeywords(context.Background(), []string{"nothing"}, 10, collector.KeywordOptions{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCollectByKeywordsSearchErrorIsContained(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{
					{"id": map[string]any{"videoId": "vidC"}, "snippet": map[string]any{"title": "c"}},
				},
			})
		case "/commentThreads":
			json.NewEncoder(w).Encode(commentPage("vidC", 3, ""))
		}
	}))
	defer srv.Close()

	c := NewCollector("key", srv.URL, 0, zap.NewNop())
	records, err := c.CollectByKeywords(context.Background(), []string{"bad", "good"}, 3, collector.KeywordOptions{})
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, "vidC", records[0].VideoID)
}

func TestAPIErrorMessage(t *testing.T) {
	err := &apiError{Code: 403, Message: "quotaExceeded"}
	assert.True(t, errors.As(error(err), new(*apiError)))
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "quotaExceeded")
}
