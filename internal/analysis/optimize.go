package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/journeyd/internal/events"
)

const (
	// topPathCount is how many mined paths the generator inspects per cycle.
	topPathCount = 5

	// frictionStepGap is the time-to-next-step above which a step yields a
	// reduce-friction opportunity.
	frictionStepGap = 60 * time.Second

	// lowValueStep is the step value below which a step yields an
	// improve-content opportunity.
	lowValueStep = 30.0
)

// Opportunity kinds.
const (
	KindReduceFriction = "reduce_friction"
	KindImproveContent = "improve_content"
)

// staticRecommendations are the tiered recommendation buckets attached to
// every optimization. Static text, not computed.
var staticRecommendations = RecommendationTiers{
	Immediate: []string{
		"Tighten the slowest step transitions in this path",
		"Verify tracking covers every step of the path",
	},
	ShortTerm: []string{
		"A/B test content variants on low-value steps",
		"Add progressive profiling to shorten forms on this path",
	},
	LongTerm: []string{
		"Personalize the path entry point by acquisition channel",
		"Automate nurture for identities that stall mid-path",
	},
}

// OptimizationGenerator is the periodic job that turns the top mined
// conversion paths into ranked improvement opportunities.
type OptimizationGenerator struct {
	store     resultsReader
	results   *Results
	publisher events.Publisher
	logger    *zap.Logger
	nowFn     func() time.Time
}

// resultsReader is the slice of Results the generator consumes.
type resultsReader interface {
	TopConversionPaths(limit int) []*ConversionPath
}

// NewOptimizationGenerator creates the optimization job. It reads mined paths
// from and writes optimizations back to the same result store.
func NewOptimizationGenerator(results *Results, publisher events.Publisher, logger *zap.Logger) *OptimizationGenerator {
	return &OptimizationGenerator{
		store:     results,
		results:   results,
		publisher: publisher,
		logger:    logger,
		nowFn:     time.Now,
	}
}

// Run executes one generation cycle over the top paths by frequency. A path
// producing zero opportunities yields no optimization. Emitted optimizations
// overwrite prior ones under freshly generated ids; no history is retained.
func (g *OptimizationGenerator) Run(ctx context.Context) error {
	paths := g.store.TopConversionPaths(topPathCount)

	optimizations := make([]*JourneyOptimization, 0, len(paths))
	for _, p := range paths {
		opportunities := stepOpportunities(p)
		if len(opportunities) == 0 {
			continue
		}

		var increase float64
		for _, op := range opportunities {
			increase += op.ExpectedImprovement
		}

		optimizations = append(optimizations, &JourneyOptimization{
			ID:            uuid.New().String(),
			PathID:        p.ID,
			PathKey:       p.Key,
			Opportunities: opportunities,
			Projected: ProjectedImpact{
				ConversionIncrease: increase,
				RevenueImpact:      p.TotalRevenue * increase / 100,
				AffectedJourneys:   p.Frequency,
			},
			Recommendations: staticRecommendations,
			GeneratedAt:     g.nowFn().UTC(),
		})
	}

	g.results.ReplaceOptimizations(optimizations)

	g.logger.Info("optimization generation completed",
		zap.Int("paths_inspected", len(paths)),
		zap.Int("optimizations", len(optimizations)),
	)

	if err := g.publisher.Publish(ctx, events.OptimizationsGenerated, map[string]any{
		"count": len(optimizations),
	}); err != nil {
		g.logger.Warn("optimization event publish failed", zap.Error(err))
	}

	return nil
}

// stepOpportunities scans a path's step breakdown for friction and
// low-content-value steps.
func stepOpportunities(p *ConversionPath) []Opportunity {
	var out []Opportunity
	for i, step := range p.Steps {
		if step.TimeToNext > frictionStepGap {
			out = append(out, Opportunity{
				StepIndex: i,
				Type:      step.Type,
				Channel:   step.Channel,
				Kind:      KindReduceFriction,
				Description: fmt.Sprintf("Visitors take %s to move past the %s step; shorten the transition",
					step.TimeToNext.Round(time.Second), step.Type),
				ExpectedImprovement: 15,
				Confidence:          70,
				Effort:              "medium",
				Priority:            7,
			})
		}
		if step.Value < lowValueStep {
			out = append(out, Opportunity{
				StepIndex: i,
				Type:      step.Type,
				Channel:   step.Channel,
				Kind:      KindImproveContent,
				Description: fmt.Sprintf("The %s step carries low value (%.0f); strengthen its content",
					step.Type, step.Value),
				ExpectedImprovement: 20,
				Confidence:          60,
				Effort:              "high",
				Priority:            5,
			})
		}
	}
	return out
}
