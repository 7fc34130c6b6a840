package dataset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func TestLoadSpreadsheetCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emotions.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetList()[0]
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"post", "label"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"تعليق غاضب برشا", "anger"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"تعليق فرحان برشا", "happiness"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"تعليق عادي", "surprise"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	rows, err := LoadSpreadsheetCorpus(path, zap.NewNop())
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, "youtube", rows[0].Source)
	assert.Equal(t, LabelNegative, rows[0].Label)
	assert.Equal(t, LabelPositive, rows[1].Label)
	assert.Equal(t, LabelNeutral, rows[2].Label)
}

func TestLoadSpreadsheetCorpusMissingTextColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow(f.GetSheetList()[0], "A1", &[]any{"wrong", "columns"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, err := LoadSpreadsheetCorpus(path, zap.NewNop())
	require.Error(t, err)
}

func TestLoadArSASCorpusTSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Tweet_ID\tTweet_text\tlabel\n" +
			"100\tتغريدة إيجابية هنا\tPositive\n" +
			"101\tتغريدة سلبية هنا\tNegative\n" +
			"102\tتغريدة مختلطة هنا\tMixed\n"))
	}))
	defer srv.Close()

	rows, err := LoadArSASCorpus(context.Background(), srv.Client(), srv.URL+"/arsas.tsv", zap.NewNop())
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, "twitter", rows[0].Source)
	assert.Equal(t, "100", rows[0].SourceID)
	assert.Equal(t, LabelPositive, rows[0].Label)
	assert.Equal(t, LabelNegative, rows[1].Label)
	assert.Equal(t, LabelNeutral, rows[2].Label)
}

func TestLoadTSACCorpusCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("sentence,label\n" +
			"تعليق فايسبوك باهي,positive\n" +
			"تعليق فايسبوك خايب,negative\n"))
	}))
	defer srv.Close()

	rows, err := LoadTSACCorpus(context.Background(), srv.Client(), srv.URL+"/tsac.csv", zap.NewNop())
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "facebook", rows[0].Source)
	assert.Equal(t, LabelPositive, rows[0].Label)
	assert.Equal(t, LabelNegative, rows[1].Label)
}

func TestFetchTableNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, _, err := fetchTable(context.Background(), srv.Client(), srv.URL+"/missing.csv")
	require.Error(t, err)
}

func TestFieldIndexPrefersEarlierNames(t *testing.T) {
	header := []string{"id", "text", "tweet_id"}
	assert.Equal(t, 2, fieldIndex(header, "Tweet_ID", "id"))
	assert.Equal(t, 0, fieldIndex(header, "id"))
	assert.Equal(t, -1, fieldIndex(header, "missing"))
}
