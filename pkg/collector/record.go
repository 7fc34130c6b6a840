package collector

// Platform identifiers for the three supported sources.
const (
	PlatformYouTube = "youtube"
	PlatformTwitter = "twitter"
	PlatformReddit  = "reddit"
)

// Collection method tags recorded on every item.
const (
	MethodDirectID       = "direct_id"
	MethodDirectUsername = "direct_username"
	MethodDirectTweetID  = "direct_tweet_id"
	MethodDirectPostID   = "direct_post_id"
	MethodKeywordSearch  = "keyword_search"
)

// Record is the common schema emitted by every source adapter. The shared
// fields are always present; platform extras carry pointer or omitempty
// types so only the originating platform's keys appear in the serialized
// form.
//
// CreatedAt keeps the platform-native timestamp representation: ISO-8601
// strings for youtube and twitter, epoch seconds for reddit. Downstream
// consumers must not assume a single type.
type Record struct {
	Source  string `json:"source"`
	ID      string `json:"id"`
	TextRaw string `json:"text_raw"`
	User    string `json:"user"`

	CreatedAt any `json:"created_at"`

	// YouTube extras.
	VideoID string `json:"video_id,omitempty"`
	Likes   *int   `json:"likes,omitempty"`

	// Twitter extras.
	TweetID  string `json:"tweet_id,omitempty"`
	Retweets *int   `json:"retweets,omitempty"`
	IsReply  *bool  `json:"is_reply,omitempty"`

	// Shared by YouTube and Twitter.
	ReplyCount *int `json:"reply_count,omitempty"`

	// Reddit extras.
	ThreadID    string `json:"thread_id,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`
	Subreddit   string `json:"subreddit,omitempty"`
	Score       *int   `json:"score,omitempty"`
	NumComments *int   `json:"num_comments,omitempty"`
	IsSubmitter *bool  `json:"is_submitter,omitempty"`
	IsPost      *bool  `json:"is_post,omitempty"`

	// Keyword-search provenance.
	SearchKeywords  []string `json:"search_keywords,omitempty"`
	SearchSubreddit string   `json:"search_subreddit,omitempty"`

	CollectionMethod    string  `json:"collection_method"`
	CollectionTimestamp float64 `json:"collection_timestamp"`
}

// sourceKey returns the upstream object this record was rooted at, used for
// the unique-sources statistic.
func (r Record) sourceKey() string {
	switch {
	case r.VideoID != "":
		return r.VideoID
	case r.TweetID != "":
		return r.TweetID
	case r.ThreadID != "":
		return r.ThreadID
	}
	return "unknown"
}
