package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// LoadSpreadsheetCorpus reads the pre-labeled emotion spreadsheet. The
// first sheet must carry a header row; text is read from the "post" column
// and the native emotion label from "label". Rows with missing or unknown
// labels land on class 0.
func LoadSpreadsheetCorpus(path string, logger *zap.Logger) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet %s has no sheets", path)
	}
	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("spreadsheet %s is empty", path)
	}

	header := cells[0]
	logger.Info("Loaded spreadsheet corpus",
		zap.String("path", path), zap.Strings("columns", header))

	textCol := fieldIndex(header, "post")
	labelCol := fieldIndex(header, "label")
	if textCol < 0 {
		return nil, fmt.Errorf("spreadsheet %s has no post column", path)
	}

	var rows []Row
	for _, record := range cells[1:] {
		rows = append(rows, Row{
			Source: "youtube",
			Text:   cell(record, textCol),
			Label:  emotionLabels.Map(cell(record, labelCol)),
		})
	}
	return rows, nil
}

// LoadArSASCorpus fetches the hosted ArSAS-style sentiment corpus as
// delimited text. Field names are looked up best-effort with the fallbacks
// the published copies use.
func LoadArSASCorpus(ctx context.Context, client *http.Client, url string, logger *zap.Logger) ([]Row, error) {
	header, records, err := fetchTable(ctx, client, url)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded ArSAS corpus", zap.String("url", url), zap.Strings("columns", header))

	idCol := fieldIndex(header, "Tweet_ID", "tweet_id", "id")
	textCol := fieldIndex(header, "Tweet_text", "tweet_text", "text")
	labelCol := fieldIndex(header, "label", "sentiment", "Sentiment_label_confidence")
	if textCol < 0 {
		return nil, fmt.Errorf("ArSAS corpus at %s has no text column", url)
	}

	var rows []Row
	for _, record := range records {
		rows = append(rows, Row{
			Source:   "twitter",
			SourceID: cell(record, idCol),
			Text:     cell(record, textCol),
			Label:    arsasLabels.Map(cell(record, labelCol)),
		})
	}
	return rows, nil
}

// LoadTSACCorpus fetches the hosted TSAC-style sentiment corpus. Its rows
// originate from Facebook comments, hence the source tag.
func LoadTSACCorpus(ctx context.Context, client *http.Client, url string, logger *zap.Logger) ([]Row, error) {
	header, records, err := fetchTable(ctx, client, url)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded TSAC corpus", zap.String("url", url), zap.Strings("columns", header))

	textCol := fieldIndex(header, "sentence", "text", "content")
	labelCol := fieldIndex(header, "label", "sentiment")
	if textCol < 0 {
		return nil, fmt.Errorf("TSAC corpus at %s has no text column", url)
	}

	var rows []Row
	for _, record := range records {
		rows = append(rows, Row{
			Source: "facebook",
			Text:   cell(record, textCol),
			Label:  tsacLabels.Map(cell(record, labelCol)),
		})
	}
	return rows, nil
}

// fetchTable downloads a delimited table and returns its header and data
// records. URLs ending in .tsv are read tab-separated.
func fetchTable(ctx context.Context, client *http.Client, url string) ([]string, [][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("fetching %s returned %d", url, resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	if strings.HasSuffix(strings.ToLower(url), ".tsv") {
		reader.Comma = '\t'
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse table from %s: %w", url, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("table from %s is empty", url)
	}
	return all[0], all[1:], nil
}

// fieldIndex finds the first matching column, case-insensitively.
func fieldIndex(header []string, names ...string) int {
	for _, name := range names {
		for i, col := range header {
			if strings.EqualFold(strings.TrimSpace(col), name) {
				return i
			}
		}
	}
	return -1
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}
