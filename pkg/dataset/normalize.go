package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Row is the normalized projection of one collected or corpus item: the
// row type of the final merged table. Label is one of the scheme labels;
// SourceID may be empty for corpora without native identifiers.
type Row struct {
	Source   string
	SourceID string
	Text     string
	Label    int
}

// batchLine mirrors the fields the normalizer projects out of a persisted
// record; everything else on the line is ignored.
type batchLine struct {
	Source   string `json:"source"`
	ID       any    `json:"id"`
	SourceID any    `json:"source_id"`
	TextRaw  string `json:"text_raw"`
	Text     string `json:"text"`
	Content  string `json:"content"`
}

// LoadCollectedDir walks a directory of line-delimited batch files and
// projects every parseable line to a Row with label 0. Each line is parsed
// independently: malformed JSON is logged with file and line number and
// skipped without aborting the file or the walk. Files without the .jsonl
// suffix are ignored, and a missing directory yields an empty result with
// a warning.
func LoadCollectedDir(dir string, logger *zap.Logger) []Row {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("Collected-data directory does not exist", zap.String("dir", dir))
		return nil
	}

	var rows []Row
	found := false
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		found = true
		logger.Info("Processing batch file", zap.String("file", entry.Name()))
		rows = append(rows, loadBatchFile(filepath.Join(dir, entry.Name()), logger)...)
	}

	if !found {
		logger.Warn("No batch files found", zap.String("dir", dir))
	} else {
		logger.Info("Processed collected batches", zap.Int("rows", len(rows)))
	}
	return rows
}

func loadBatchFile(path string, logger *zap.Logger) []Row {
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("Failed to open batch file", zap.String("file", path), zap.Error(err))
		return nil
	}
	defer f.Close()

	var rows []Row
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var record batchLine
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			logger.Warn("Error parsing JSON line",
				zap.String("file", filepath.Base(path)),
				zap.Int("line", lineNum),
				zap.Error(err))
			continue
		}

		text := record.TextRaw
		if text == "" {
			text = record.Text
		}
		if text == "" {
			text = record.Content
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		source := record.Source
		if source == "" {
			source = "unknown"
		}
		sourceID := stringify(record.ID)
		if sourceID == "" {
			sourceID = stringify(record.SourceID)
		}

		rows = append(rows, Row{
			Source:   source,
			SourceID: sourceID,
			Text:     text,
			Label:    LabelNeutral,
		})
	}

	if err := scanner.Err(); err != nil {
		logger.Warn("Error reading batch file", zap.String("file", path), zap.Error(err))
	}
	return rows
}

// stringify renders identifiers that may arrive as JSON strings or numbers.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	}
	return fmt.Sprintf("%v", v)
}
