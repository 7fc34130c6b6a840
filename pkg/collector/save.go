package collector

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// Supported persisted batch formats.
const (
	FormatJSONL   = "jsonl"
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// SaveRecords writes one collected batch to path in the given format. JSONL
// is one record per physical line, UTF-8, with non-ASCII characters left
// unescaped. CSV and parquet are straight serializations of the same record
// set with no schema transformation.
func SaveRecords(path, format string, records []Record) error {
	switch format {
	case FormatJSONL:
		return saveJSONL(path, records)
	case FormatCSV:
		return saveCSV(path, records)
	case FormatParquet:
		return saveParquet(path, records)
	}
	return fmt.Errorf("unsupported format: %s", format)
}

func saveJSONL(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, record := range records {
		if err := enc.Encode(record); err != nil {
			return fmt.Errorf("failed to encode record %s: %w", record.ID, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return nil
}

var csvHeader = []string{
	"source", "id", "text_raw", "user", "created_at",
	"collection_method", "collection_timestamp",
	"video_id", "tweet_id", "thread_id", "parent_id", "subreddit",
	"likes", "retweets", "reply_count", "score", "num_comments",
	"is_reply", "is_submitter", "is_post",
	"search_keywords", "search_subreddit",
}

func saveCSV(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Source, r.ID, r.TextRaw, r.User, formatCreatedAt(r.CreatedAt),
			r.CollectionMethod, strconv.FormatFloat(r.CollectionTimestamp, 'f', -1, 64),
			r.VideoID, r.TweetID, r.ThreadID, r.ParentID, r.Subreddit,
			intField(r.Likes), intField(r.Retweets), intField(r.ReplyCount),
			intField(r.Score), intField(r.NumComments),
			boolField(r.IsReply), boolField(r.IsSubmitter), boolField(r.IsPost),
			strings.Join(r.SearchKeywords, " "), r.SearchSubreddit,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write record %s: %w", r.ID, err)
		}
	}
	w.Flush()
	return w.Error()
}

// parquetRecord flattens Record for columnar serialization; the optional
// extras degrade to empty strings and zeros.
type parquetRecord struct {
	Source              string  `parquet:"source"`
	ID                  string  `parquet:"id"`
	TextRaw             string  `parquet:"text_raw"`
	User                string  `parquet:"user"`
	CreatedAt           string  `parquet:"created_at"`
	CollectionMethod    string  `parquet:"collection_method"`
	CollectionTimestamp float64 `parquet:"collection_timestamp"`
	VideoID             string  `parquet:"video_id"`
	TweetID             string  `parquet:"tweet_id"`
	ThreadID            string  `parquet:"thread_id"`
	ParentID            string  `parquet:"parent_id"`
	Subreddit           string  `parquet:"subreddit"`
	Likes               string  `parquet:"likes"`
	Retweets            string  `parquet:"retweets"`
	ReplyCount          string  `parquet:"reply_count"`
	Score               string  `parquet:"score"`
	NumComments         string  `parquet:"num_comments"`
	IsReply             string  `parquet:"is_reply"`
	IsSubmitter         string  `parquet:"is_submitter"`
	IsPost              string  `parquet:"is_post"`
	SearchKeywords      string  `parquet:"search_keywords"`
	SearchSubreddit     string  `parquet:"search_subreddit"`
}

func saveParquet(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	rows := make([]parquetRecord, 0, len(records))
	for _, r := range records {
		rows = append(rows, parquetRecord{
			Source:              r.Source,
			ID:                  r.ID,
			TextRaw:             r.TextRaw,
			User:                r.User,
			CreatedAt:           formatCreatedAt(r.CreatedAt),
			CollectionMethod:    r.CollectionMethod,
			CollectionTimestamp: r.CollectionTimestamp,
			VideoID:             r.VideoID,
			TweetID:             r.TweetID,
			ThreadID:            r.ThreadID,
			ParentID:            r.ParentID,
			Subreddit:           r.Subreddit,
			Likes:               intField(r.Likes),
			Retweets:            intField(r.Retweets),
			ReplyCount:          intField(r.ReplyCount),
			Score:               intField(r.Score),
			NumComments:         intField(r.NumComments),
			IsReply:             boolField(r.IsReply),
			IsSubmitter:         boolField(r.IsSubmitter),
			IsPost:              boolField(r.IsPost),
			SearchKeywords:      strings.Join(r.SearchKeywords, " "),
			SearchSubreddit:     r.SearchSubreddit,
		})
	}

	w := parquet.NewGenericWriter[parquetRecord](f)
	if _, err := w.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// CreatedAtString renders the platform-native timestamp for consumers that
// need a single textual form (CSV, parquet, the archive).
func (r Record) CreatedAtString() string {
	return formatCreatedAt(r.CreatedAt)
}

func formatCreatedAt(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return fmt.Sprint(v)
}

func intField(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func boolField(p *bool) string {
	if p == nil {
		return ""
	}
	return strconv.FormatBool(*p)
}
