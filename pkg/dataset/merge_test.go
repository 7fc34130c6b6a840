package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func staticOrigin(name string, rows []Row) Origin {
	return Origin{Name: name, Load: func() ([]Row, error) { return rows, nil }}
}

func TestMergeDeduplicatesKeepingFirst(t *testing.T) {
	rows, stats, err := Merge([]Origin{
		staticOrigin("first", []Row{
			{Source: "twitter", Text: "نفس الجملة تتكرر هنا", Label: LabelPositive},
			{Source: "twitter", Text: "جملة أخرى مختلفة تماما", Label: LabelNegative},
		}),
		staticOrigin("second", []Row{
			{Source: "facebook", Text: "  نفس الجملة تتكرر هنا  ", Label: LabelNegative},
		}),
	}, zap.NewNop())
	require.NoError(t, err)

	require.Len(t, rows, 2)
	// The duplicate from the second origin loses; the first occurrence keeps
	// its source and label.
	assert.Equal(t, "twitter", rows[0].Source)
	assert.Equal(t, LabelPositive, rows[0].Label)
	assert.Equal(t, 1, stats.DuplicatesRemoved)
}

func TestMergeDropsShortTextsByRuneCount(t *testing.T) {
	rows, stats, err := Merge([]Origin{
		staticOrigin("only", []Row{
			{Source: "twitter", Text: "خمسة!"},       // 5 runes, dropped
			{Source: "twitter", Text: "ستة أح"},      // 6 runes, kept
			{Source: "twitter", Text: "  برشا  "},    // 4 runes after trim, dropped
			{Source: "twitter", Text: "كلام طويل شوية"},
		}),
	}, zap.NewNop())
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "ستة أح", rows[0].Text)
	assert.Equal(t, 2, stats.ShortRemoved)
}

func TestMergeSkipsFailedOrigins(t *testing.T) {
	rows, stats, err := Merge([]Origin{
		{Name: "broken", Load: func() ([]Row, error) { return nil, errors.New("fetch failed") }},
		staticOrigin("good", []Row{{Source: "twitter", Text: "جملة سليمة وطويلة"}}),
	}, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.NotContains(t, stats.OriginRows, "broken")
}

func TestMergeAllOriginsFailed(t *testing.T) {
	_, _, err := Merge([]Origin{
		{Name: "broken", Load: func() ([]Row, error) { return nil, errors.New("fetch failed") }},
	}, zap.NewNop())
	require.ErrorIs(t, err, ErrNoData)

	_, _, err = Merge(nil, zap.NewNop())
	require.ErrorIs(t, err, ErrNoData)
}

func TestMergeCountsLabelsAndSources(t *testing.T) {
	_, stats, err := Merge([]Origin{
		staticOrigin("only", []Row{
			{Source: "twitter", Text: "جملة إيجابية طويلة", Label: LabelPositive},
			{Source: "facebook", Text: "جملة سلبية طويلة هنا", Label: LabelNegative},
			{Source: "facebook", Text: "جملة محايدة طويلة هنا", Label: LabelNeutral},
		}),
	}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.LabelCounts[LabelPositive])
	assert.Equal(t, 1, stats.LabelCounts[LabelNegative])
	assert.Equal(t, 1, stats.LabelCounts[LabelNeutral])
	assert.Equal(t, 2, stats.SourceCounts["facebook"])
}

func TestMergeFromCollectedBatches(t *testing.T) {
	dir := t.TempDir()
	logger := zap.NewNop()

	batch1 := `{"source":"youtube","id":"y1","text_raw":"تعليق أول طويل بما يكفي"}
{"source":"youtube","id":"y2","text_raw":"تعليق ثان طويل بما يكفي"}
{broken line that is not json
{"source":"youtube","id":"y3","text_raw":"تعليق ثالث طويل بما يكفي"}
`
	batch2 := `{"source":"reddit","id":"r1","text_raw":"تعليق أول طويل بما يكفي"}
{"source":"reddit","id":"r2","text_raw":"تعليق رابع مختلف وطويل"}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data_youtube_id_a_1.jsonl"), []byte(batch1), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data_reddit_id_b_1.jsonl"), []byte(batch2), 0o644))

	origin := Origin{
		Name: "collected batches",
		Load: func() ([]Row, error) { return LoadCollectedDir(dir, logger), nil },
	}
	rows, stats, err := Merge([]Origin{origin}, logger)
	require.NoError(t, err)

	// Five valid rows load (the malformed line is skipped); the cross-file
	// duplicate drops during the merge.
	assert.Equal(t, 5, stats.OriginRows["collected batches"])
	assert.Equal(t, 1, stats.DuplicatesRemoved)
	assert.Equal(t, 0, stats.ShortRemoved)
	require.Len(t, rows, 4)
	for _, row := range rows {
		assert.Equal(t, LabelNeutral, row.Label)
	}
}
