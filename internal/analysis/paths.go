package analysis

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/journeyd/internal/events"
	"github.com/fyrsmithlabs/journeyd/internal/journey"
)

// PathMiner is the periodic job that groups converted journeys by their
// ordered (type, channel) signature and maintains frequency, revenue, and
// efficiency statistics per pattern.
type PathMiner struct {
	store     journey.Store
	results   *Results
	publisher events.Publisher
	logger    *zap.Logger
}

// NewPathMiner creates the conversion-path mining job.
func NewPathMiner(store journey.Store, results *Results, publisher events.Publisher, logger *zap.Logger) *PathMiner {
	return &PathMiner{store: store, results: results, publisher: publisher, logger: logger}
}

// Run executes one mining cycle. The path collection is replaced with the
// freshly computed map; overwrite semantics, same as the drop-off job.
//
// Pattern keys require an exact ordered match of the full path; there is no
// fuzzy or prefix matching.
func (m *PathMiner) Run(ctx context.Context) error {
	snapshot := m.store.Snapshot()

	mined := make(map[string]*ConversionPath)
	converted := 0

	for _, j := range snapshot {
		if !j.Converted {
			continue
		}
		converted++

		signature := pathSignature(j)
		key := strings.Join(signature, ">")

		existing, ok := mined[key]
		if !ok {
			mined[key] = seedConversionPath(key, signature, j)
			continue
		}
		observeJourney(existing, j)
	}

	paths := make([]*ConversionPath, 0, len(mined))
	for _, p := range mined {
		paths = append(paths, p)
	}
	m.results.ReplaceConversionPaths(paths)

	m.logger.Info("conversion-path mining completed",
		zap.Int("journeys", len(snapshot)),
		zap.Int("converted", converted),
		zap.Int("patterns", len(paths)),
	)

	if err := m.publisher.Publish(ctx, events.ConversionPathsAnalyzed, map[string]any{
		"patterns":  len(paths),
		"converted": converted,
	}); err != nil {
		m.logger.Warn("path event publish failed", zap.Error(err))
	}

	return nil
}

// seedConversionPath creates a pattern from its first observed journey.
func seedConversionPath(key string, signature []string, j *journey.Journey) *ConversionPath {
	return &ConversionPath{
		ID:               uuid.New().String(),
		Key:              key,
		Signature:        signature,
		Frequency:        1,
		TotalConversions: 1,
		ConversionRate:   100, // mined only from converted journeys
		AvgDuration:      j.Duration,
		AvgTouchpoints:   float64(len(j.Path)),
		Efficiency:       j.Efficiency,
		Satisfaction:     j.Satisfaction,
		TotalRevenue:     j.ConversionValue,
		AvgOrderValue:    j.ConversionValue,
		Steps:            pathSteps(j),
	}
}

// observeJourney folds another matching journey into the pattern.
//
// The four quality statistics are each replaced by (old + new) / 2: a running
// average of the last two samples rather than a true mean. This mirrors the
// source behavior and is intentionally not corrected here.
func observeJourney(p *ConversionPath, j *journey.Journey) {
	p.Frequency++
	p.TotalConversions++
	p.TotalRevenue += j.ConversionValue
	p.AvgOrderValue = p.TotalRevenue / float64(p.TotalConversions)

	p.AvgDuration = (p.AvgDuration + j.Duration) / 2
	p.AvgTouchpoints = (p.AvgTouchpoints + float64(len(j.Path))) / 2
	p.Efficiency = (p.Efficiency + j.Efficiency) / 2
	p.Satisfaction = (p.Satisfaction + j.Satisfaction) / 2
}

// pathSignature returns the ordered type_channel elements of a journey path.
func pathSignature(j *journey.Journey) []string {
	sig := make([]string, len(j.Path))
	for i, tp := range j.Path {
		sig[i] = string(tp.Type) + "_" + string(tp.Channel)
	}
	return sig
}

// pathSteps builds the step-by-step breakdown, including the time to the
// next step (zero for the final step).
func pathSteps(j *journey.Journey) []PathStep {
	steps := make([]PathStep, len(j.Path))
	for i, tp := range j.Path {
		step := PathStep{
			Type:    tp.Type,
			Channel: tp.Channel,
			Value:   tp.Value,
		}
		if i < len(j.Path)-1 {
			step.TimeToNext = j.Path[i+1].Timestamp.Sub(tp.Timestamp)
		}
		steps[i] = step
	}
	return steps
}
