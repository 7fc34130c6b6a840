package collector

import (
	"context"
	"fmt"
	"time"
)

// IDKind selects which identifier CollectByID resolves. Only the twitter
// adapter distinguishes kinds; the others accept KindDefault.
type IDKind string

const (
	KindDefault  IDKind = ""
	KindUsername IDKind = "username"
	KindTweetID  IDKind = "tweet_id"
)

// KeywordOptions carries platform-specific knobs for keyword collection.
type KeywordOptions struct {
	// Subreddit names the community to search; only the reddit adapter
	// reads it.
	Subreddit string
}

// Source is the contract every platform adapter implements.
//
// Authenticate is idempotent and is called lazily by the collect methods if
// needed. CollectByID and CollectByKeywords return at most limit records,
// each with a non-empty ID and non-empty TextRaw; "not found" and
// "forbidden" conditions degrade to an empty result plus a logged notice
// rather than an error.
type Source interface {
	Platform() string
	Authenticate(ctx context.Context) error
	CollectByID(ctx context.Context, id string, limit int, kind IDKind) ([]Record, error)
	CollectByKeywords(ctx context.Context, keywords []string, limit int, opts KeywordOptions) ([]Record, error)
	Collected() []Record
	ClearData()
	Stats() Stats
}

// AuthError reports failed platform authentication: missing credentials or
// a rejection from the remote service. It is fatal to that platform's run
// but never to sibling platforms.
type AuthError struct {
	Platform string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %v", e.Platform, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Stats summarizes one adapter's accumulation buffer.
type Stats struct {
	Platform       string    `json:"platform"`
	TotalCollected int       `json:"total_collected"`
	UniqueSources  int       `json:"unique_sources"`
	Timestamp      time.Time `json:"timestamp"`
}

// Buffer is the in-memory accumulation each adapter owns for the lifetime
// of one run. It is the only state shared between successive collect calls.
type Buffer struct {
	platform string
	records  []Record
}

// NewBuffer creates an accumulation buffer tagged with the platform name.
func NewBuffer(platform string) *Buffer {
	return &Buffer{platform: platform}
}

// Platform returns the source tag set at construction.
func (b *Buffer) Platform() string { return b.platform }

// Extend appends records collected by one operation.
func (b *Buffer) Extend(records []Record) {
	b.records = append(b.records, records...)
}

// Collected returns the accumulated records.
func (b *Buffer) Collected() []Record { return b.records }

// ClearData drops the accumulated records.
func (b *Buffer) ClearData() { b.records = nil }

// Stats computes the run summary for this buffer.
func (b *Buffer) Stats() Stats {
	sources := make(map[string]struct{}, len(b.records))
	for _, record := range b.records {
		sources[record.sourceKey()] = struct{}{}
	}
	return Stats{
		Platform:       b.platform,
		TotalCollected: len(b.records),
		UniqueSources:  len(sources),
		Timestamp:      time.Now(),
	}
}
