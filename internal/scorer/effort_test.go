package scorer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/aid/internal/model"
)

func withMetadata(in *Input, md *model.Metadata) *Input {
	in.Metadata = md
	return in
}

func seconds(v float64) *float64 { return &v }
func revisions(v int) *int       { return &v }

func TestEffort_SignalWeights(t *testing.T) {
	// Reading 1221 characters and writing 297 takes about 175 seconds, so
	// 180 seconds lands in the 0.9 band.
	tests := []struct {
		name    string
		md      *model.Metadata
		want    float64
		signals string
	}{
		{"complexity only", nil, 0.7308, "(from complexity)"},
		{"time only", &model.Metadata{ElapsedSeconds: seconds(180)}, 0.8238, "(from time, complexity)"},
		{"revisions only", &model.Metadata{RevisionCount: revisions(1)}, 0.7815, "(from complexity, revisions)"},
		{"time and revisions", &model.Metadata{ElapsedSeconds: seconds(180), RevisionCount: revisions(1)}, 0.8408, "(from time, complexity, revisions)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewEffort(DefaultLexicon()).Score(context.Background(), withMetadata(input(genuineReview, productCopy, ""), tt.md))
			require.NoError(t, err)
			assert.InDelta(t, tt.want, res.Value, 1e-3)
			assert.Contains(t, res.Interpretation, tt.signals)
		})
	}
}

func TestEffort_StartedAt(t *testing.T) {
	in := input(genuineReview, productCopy, "")
	started := in.Now.Add(-3 * time.Minute)
	in.Metadata = &model.Metadata{StartedAt: &started}

	res, err := NewEffort(DefaultLexicon()).Score(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 0.9, res.Breakdown["time"])
}

func TestEffort_ZeroElapsedIgnored(t *testing.T) {
	res, err := NewEffort(DefaultLexicon()).Score(context.Background(),
		withMetadata(input(genuineReview, productCopy, ""), &model.Metadata{ElapsedSeconds: seconds(0)}))
	require.NoError(t, err)
	assert.NotContains(t, res.Breakdown, "time")
}

func TestEffort_EmptyResponse(t *testing.T) {
	res, err := NewEffort(DefaultLexicon()).Score(context.Background(), input("", productCopy, ""))
	require.NoError(t, err)
	assert.Zero(t, res.Value)
	assert.Contains(t, res.Interpretation, "minimal effort")
}

func TestTimeScore(t *testing.T) {
	// 500 response characters at 35 wpm is about 171 seconds of writing.
	tests := []struct {
		elapsed float64
		want    float64
	}{
		{10, 0.2},
		{60, 0.45},
		{171, 0.9},
		{400, 0.75},
		{3600, 0.5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, timeScore(tt.elapsed, 500, 0), "%.0fs", tt.elapsed)
	}
}

func TestRevisionScore(t *testing.T) {
	assert.Equal(t, 0.6, revisionScore(0, 800))
	assert.Equal(t, 0.9, revisionScore(4, 800))
	assert.Equal(t, 0.7, revisionScore(10, 800))
	assert.Equal(t, 0.5, revisionScore(11, 800))
	assert.Equal(t, 0.9, revisionScore(1, 50), "short responses allow one revision")
	assert.Equal(t, 0.7, revisionScore(3, 50))
}
