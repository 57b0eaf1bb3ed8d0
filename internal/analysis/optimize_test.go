package analysis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/journeyd/internal/events"
	"github.com/fyrsmithlabs/journeyd/internal/touchpoint"
)

func TestOptimizationGenerator_FindsFrictionAndLowValueSteps(t *testing.T) {
	results := NewResults()
	recorder := &events.Recorder{}

	results.ReplaceConversionPaths([]*ConversionPath{
		{
			ID:           "path-1",
			Key:          "page_view_web>form_submission_web",
			Frequency:    4,
			TotalRevenue: 1000,
			Steps: []PathStep{
				{Type: touchpoint.TypePageView, Channel: touchpoint.ChannelWeb, Value: 50, TimeToNext: 90 * time.Second},
				{Type: touchpoint.TypeFormSubmission, Channel: touchpoint.ChannelWeb, Value: 10},
			},
		},
	})

	gen := NewOptimizationGenerator(results, recorder, zap.NewNop())
	require.NoError(t, gen.Run(context.Background()))

	opts := results.TopOptimizations(0)
	require.Len(t, opts, 1)

	o := opts[0]
	assert.Equal(t, "path-1", o.PathID)
	require.Len(t, o.Opportunities, 2)

	friction := o.Opportunities[0]
	assert.Equal(t, KindReduceFriction, friction.Kind)
	assert.Equal(t, 0, friction.StepIndex)
	assert.Equal(t, 15.0, friction.ExpectedImprovement)

	content := o.Opportunities[1]
	assert.Equal(t, KindImproveContent, content.Kind)
	assert.Equal(t, 1, content.StepIndex)
	assert.Equal(t, 20.0, content.ExpectedImprovement)

	assert.InDelta(t, 35.0, o.Projected.ConversionIncrease, 1e-9)
	assert.InDelta(t, 350.0, o.Projected.RevenueImpact, 1e-9)
	assert.Equal(t, 4, o.Projected.AffectedJourneys)
	assert.NotEmpty(t, o.Recommendations.Immediate)
	assert.NotEmpty(t, o.Recommendations.ShortTerm)
	assert.NotEmpty(t, o.Recommendations.LongTerm)

	assert.Equal(t, []string{events.OptimizationsGenerated}, recorder.Names())
}

func TestOptimizationGenerator_SkipsPathsWithoutOpportunities(t *testing.T) {
	results := NewResults()

	results.ReplaceConversionPaths([]*ConversionPath{
		{
			ID:  "clean",
			Key: "page_view_web>demo_request_direct",
			Steps: []PathStep{
				{Type: touchpoint.TypePageView, Channel: touchpoint.ChannelWeb, Value: 50, TimeToNext: 30 * time.Second},
				{Type: touchpoint.TypeDemoRequest, Channel: touchpoint.ChannelDirect, Value: 80},
			},
		},
	})

	gen := NewOptimizationGenerator(results, events.NopPublisher{}, zap.NewNop())
	require.NoError(t, gen.Run(context.Background()))

	assert.Empty(t, results.TopOptimizations(0))
}

func TestOptimizationGenerator_InspectsOnlyTopPaths(t *testing.T) {
	results := NewResults()

	var paths []*ConversionPath
	for i := 1; i <= 7; i++ {
		paths = append(paths, &ConversionPath{
			ID:        fmt.Sprintf("path-%d", i),
			Key:       fmt.Sprintf("key-%d", i),
			Frequency: i,
			Steps: []PathStep{
				{Type: touchpoint.TypePageView, Channel: touchpoint.ChannelWeb, Value: 5},
			},
		})
	}
	results.ReplaceConversionPaths(paths)

	gen := NewOptimizationGenerator(results, events.NopPublisher{}, zap.NewNop())
	require.NoError(t, gen.Run(context.Background()))

	opts := results.TopOptimizations(0)
	require.Len(t, opts, topPathCount)

	seen := make(map[string]bool)
	for _, o := range opts {
		seen[o.PathID] = true
	}
	assert.False(t, seen["path-1"], "lowest-frequency paths are outside the inspection window")
	assert.False(t, seen["path-2"])
	assert.True(t, seen["path-7"])
}

func TestOptimizationGenerator_OverwritesWithFreshIDs(t *testing.T) {
	results := NewResults()
	results.ReplaceConversionPaths([]*ConversionPath{
		{
			ID:  "path-1",
			Key: "key-1",
			Steps: []PathStep{
				{Type: touchpoint.TypePageView, Channel: touchpoint.ChannelWeb, Value: 5},
			},
		},
	})

	gen := NewOptimizationGenerator(results, events.NopPublisher{}, zap.NewNop())
	require.NoError(t, gen.Run(context.Background()))
	first := results.TopOptimizations(0)
	require.Len(t, first, 1)

	require.NoError(t, gen.Run(context.Background()))
	second := results.TopOptimizations(0)
	require.Len(t, second, 1)
	assert.NotEqual(t, first[0].ID, second[0].ID, "no history is retained across cycles")
}
