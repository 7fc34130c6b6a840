package dataset

import (
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Minimum trimmed text length (in runes) a row must exceed to survive the
// merge.
const minTextLength = 5

// ErrNoData is returned when every origin failed to load or produced
// nothing; the merge writes no output in that case.
var ErrNoData = errors.New("no data was processed from any origin")

// Origin is one contributor to the merged table: a labeled corpus or the
// normalized collected batches.
type Origin struct {
	Name string
	Load func() ([]Row, error)
}

// MergeStats reports what happened at each stage of the merge.
type MergeStats struct {
	OriginRows        map[string]int `json:"origin_rows"`
	DuplicatesRemoved int            `json:"duplicates_removed"`
	ShortRemoved      int            `json:"short_removed"`
	LabelCounts       map[int]int    `json:"label_counts"`
	SourceCounts      map[string]int `json:"source_counts"`
	Total             int            `json:"total"`
}

// Merge loads every origin, concatenates their rows in origin order,
// deduplicates by exact trim-normalized text (first occurrence wins), and
// drops rows whose trimmed text is at most five runes long. An origin that
// fails to load is skipped with a warning; ErrNoData is returned only when
// nothing at all was loaded.
func Merge(origins []Origin, logger *zap.Logger) ([]Row, MergeStats, error) {
	stats := MergeStats{
		OriginRows:   make(map[string]int),
		LabelCounts:  make(map[int]int),
		SourceCounts: make(map[string]int),
	}

	var all []Row
	for _, origin := range origins {
		rows, err := origin.Load()
		if err != nil {
			logger.Warn("Origin failed to load, skipping",
				zap.String("origin", origin.Name), zap.Error(err))
			continue
		}
		logger.Info("Origin loaded",
			zap.String("origin", origin.Name), zap.Int("rows", len(rows)))
		stats.OriginRows[origin.Name] = len(rows)
		all = append(all, rows...)
	}

	if len(all) == 0 {
		return nil, stats, ErrNoData
	}

	deduped := dedupeByText(all)
	stats.DuplicatesRemoved = len(all) - len(deduped)
	logger.Info("Removed duplicate texts", zap.Int("count", stats.DuplicatesRemoved))

	final := dropShortTexts(deduped)
	stats.ShortRemoved = len(deduped) - len(final)
	logger.Info("Removed short texts", zap.Int("count", stats.ShortRemoved))

	stats.Total = len(final)
	for _, row := range final {
		stats.LabelCounts[row.Label]++
		stats.SourceCounts[row.Source]++
	}

	logger.Info("Merge complete", zap.Int("rows", stats.Total))
	labelNames := map[int]string{
		LabelNeutral:  "Unknown/Neutral",
		LabelPositive: "Positive",
		LabelNegative: "Negative",
	}
	for label := LabelNeutral; label <= LabelNegative; label++ {
		logger.Info("Label distribution",
			zap.Int("label", label),
			zap.String("name", labelNames[label]),
			zap.Int("rows", stats.LabelCounts[label]))
	}
	for source, count := range stats.SourceCounts {
		logger.Info("Source distribution",
			zap.String("source", source), zap.Int("rows", count))
	}

	return final, stats, nil
}

// dedupeByText keeps the first occurrence of every trim-normalized text in
// concatenation order.
func dedupeByText(rows []Row) []Row {
	seen := make(map[string]bool, len(rows))
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		key := strings.TrimSpace(row.Text)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, row)
	}
	return out
}

func dropShortTexts(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if utf8.RuneCountInString(strings.TrimSpace(row.Text)) <= minTextLength {
			continue
		}
		out = append(out, row)
	}
	return out
}
