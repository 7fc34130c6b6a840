package dataset

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

// Inputs names the data the merge pulls together. Empty fields are skipped,
// so a merge over just the collected batches is valid.
type Inputs struct {
	CollectedDir string
	ExcelPath    string
	ArSASURL     string
	TSACURL      string
}

// BuildOrigins turns the configured inputs into merge origins. The collected
// directory never fails to load; corpus origins may, and Merge contains
// those failures per origin.
func BuildOrigins(ctx context.Context, client *http.Client, in Inputs, logger *zap.Logger) []Origin {
	var origins []Origin
	if in.ExcelPath != "" {
		origins = append(origins, Origin{
			Name: "emotion spreadsheet",
			Load: func() ([]Row, error) { return LoadSpreadsheetCorpus(in.ExcelPath, logger) },
		})
	}
	if in.ArSASURL != "" {
		origins = append(origins, Origin{
			Name: "ArSAS",
			Load: func() ([]Row, error) { return LoadArSASCorpus(ctx, client, in.ArSASURL, logger) },
		})
	}
	if in.TSACURL != "" {
		origins = append(origins, Origin{
			Name: "TSAC",
			Load: func() ([]Row, error) { return LoadTSACCorpus(ctx, client, in.TSACURL, logger) },
		})
	}
	if in.CollectedDir != "" {
		origins = append(origins, Origin{
			Name: "collected batches",
			Load: func() ([]Row, error) { return LoadCollectedDir(in.CollectedDir, logger), nil },
		})
	}
	return origins
}
