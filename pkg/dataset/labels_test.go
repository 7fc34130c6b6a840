package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelMapIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, LabelPositive, arsasLabels.Map("Positive"))
	assert.Equal(t, LabelPositive, arsasLabels.Map("POS"))
	assert.Equal(t, LabelNegative, arsasLabels.Map("  negative "))
	assert.Equal(t, LabelNeutral, arsasLabels.Map("Mixed"))
}

func TestLabelMapUnknownFallsBackToNeutral(t *testing.T) {
	assert.Equal(t, LabelNeutral, arsasLabels.Map("sarcastic"))
	assert.Equal(t, LabelNeutral, tsacLabels.Map(""))
	assert.Equal(t, LabelNeutral, emotionLabels.Map("nonsense"))
}

func TestEmotionVocabularyPolarity(t *testing.T) {
	for _, negative := range []string{"anger", "disgust", "fear", "pessimism", "sadness"} {
		assert.Equal(t, LabelNegative, emotionLabels.Map(negative), negative)
	}
	for _, positive := range []string{"happiness", "optimism"} {
		assert.Equal(t, LabelPositive, emotionLabels.Map(positive), positive)
	}
	for _, neutral := range []string{"anticipation", "confusion", "neutral", "surprise"} {
		assert.Equal(t, LabelNeutral, emotionLabels.Map(neutral), neutral)
	}
}
