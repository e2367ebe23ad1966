package scorer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelevance_AllSignals(t *testing.T) {
	res, err := NewRelevance(uniform()).Score(context.Background(), input(genuineReview, productCopy, commutePrompt))
	require.NoError(t, err)

	assert.InDelta(t, 0.7362, res.Value, 1e-3)
	assert.Equal(t, "engages directly with the topic", res.Interpretation)
	assert.InDelta(t, 0.8333, res.Breakdown["content_similarity"], 1e-4)
	assert.InDelta(t, 0.8333, res.Breakdown["prompt_similarity"], 1e-4)
	assert.InDelta(t, 0.3478, res.Breakdown["keyword_overlap"], 1e-4)
	assert.InDelta(t, 0.8333, res.Breakdown["topic_coherence"], 1e-4)
}

func TestRelevance_RenormalizesMissingInputs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		prompt  string
		want    float64
		keys    []string
	}{
		{"content only", productCopy, "", 0.6946, []string{"content_similarity", "keyword_overlap", "topic_coherence"}},
		{"prompt only", "", commutePrompt, 0.5769, []string{"prompt_similarity", "keyword_overlap", "topic_coherence"}},
		{"neither", "", "", 0.8333, []string{"topic_coherence"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewRelevance(uniform()).Score(context.Background(), input(genuineReview, tt.content, tt.prompt))
			require.NoError(t, err)
			assert.InDelta(t, tt.want, res.Value, 1e-3)
			assert.Len(t, res.Breakdown, len(tt.keys))
			for _, k := range tt.keys {
				assert.Contains(t, res.Breakdown, k)
			}
		})
	}
}

func TestRelevance_SingleSentenceTopicDefault(t *testing.T) {
	res, err := NewRelevance(uniform()).Score(context.Background(), input("These headphones block the train noise well", productCopy, ""))
	require.NoError(t, err)
	assert.Equal(t, 0.7, res.Breakdown["topic_coherence"])
}

func TestRelevance_EmbeddingError(t *testing.T) {
	_, err := NewRelevance(failingEmbedder{}).Score(context.Background(), input(genuineReview, productCopy, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relevance: embed")
}

func TestKeywordOverlap(t *testing.T) {
	// Every response keyword appears in the content: the coefficient is 1.
	assert.Equal(t, 1.0, keywordOverlap(input("noise cancellation battery", productCopy, "")))
	// One of four response keywords matches: 0.25 / 0.5.
	assert.InDelta(t, 0.5, keywordOverlap(input("battery grandmother kitchen honey", productCopy, "")), 1e-9)
	assert.Zero(t, keywordOverlap(input("bees honey barn", productCopy, "")))
	assert.Zero(t, keywordOverlap(input("a an the", productCopy, "")))
}
