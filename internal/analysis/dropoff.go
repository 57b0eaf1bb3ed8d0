package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/journeyd/internal/events"
	"github.com/fyrsmithlabs/journeyd/internal/journey"
	"github.com/fyrsmithlabs/journeyd/internal/touchpoint"
)

// DropOffThreshold is the minimum drop-off rate for a signature to be
// materialized.
const DropOffThreshold = 0.3

// Heuristic fixed distributions attached to every drop-off analysis. These
// are not measured from the data; they are reproduced source behavior.
var (
	deviceDistribution = map[string]float64{
		"desktop": 0.55,
		"mobile":  0.35,
		"tablet":  0.10,
	}
	timeOfDayDistribution = map[string]float64{
		"morning":   0.25,
		"afternoon": 0.35,
		"evening":   0.30,
		"night":     0.10,
	}
	sourceDistribution = map[string]float64{
		"organic":  0.40,
		"direct":   0.30,
		"paid":     0.20,
		"referral": 0.10,
	}
)

// dropOffRule maps a signature substring to likely reasons and
// recommendations.
type dropOffRule struct {
	match           string
	reasons         []string
	recommendations []string
}

var dropOffRules = []dropOffRule{
	{
		match: "form",
		reasons: []string{
			"Form is too long or asks for sensitive information too early",
			"Value of submitting the form is unclear",
		},
		recommendations: []string{
			"Reduce the form to essential fields",
			"State what happens after submission next to the button",
		},
	},
	{
		match: "pricing",
		reasons: []string{
			"Price sensitivity or missing plan comparison",
			"No low-commitment next step from the pricing page",
		},
		recommendations: []string{
			"Add a free-tier or trial call to action on the pricing page",
			"Show a plan comparison with the most popular option highlighted",
		},
	},
	{
		match: "demo",
		reasons: []string{
			"Scheduling friction in the demo booking flow",
		},
		recommendations: []string{
			"Offer an instant self-serve demo alongside the booked one",
		},
	},
}

var genericDropOffRule = dropOffRule{
	reasons: []string{
		"Content did not answer the visitor's next question",
	},
	recommendations: []string{
		"Add a clear next-step call to action to this page",
	},
}

// DropOffAnalyzer is the periodic job that scans all journeys, groups
// terminal non-converted touchpoints by signature, and materializes
// drop-off analyses for signatures above the threshold.
type DropOffAnalyzer struct {
	store     journey.Store
	results   *Results
	publisher events.Publisher
	logger    *zap.Logger
}

// NewDropOffAnalyzer creates the drop-off job.
func NewDropOffAnalyzer(store journey.Store, results *Results, publisher events.Publisher, logger *zap.Logger) *DropOffAnalyzer {
	return &DropOffAnalyzer{store: store, results: results, publisher: publisher, logger: logger}
}

// Run executes one analysis cycle against a store snapshot. Each run
// recomputes from scratch and overwrites the prior collection; entries are
// not merged across runs.
func (a *DropOffAnalyzer) Run(ctx context.Context) error {
	snapshot := a.store.Snapshot()

	totals := make(map[string]int)
	dropOffs := make(map[string]int)
	lastSeen := make(map[string]touchpoint.Touchpoint)

	for _, j := range snapshot {
		for i, tp := range j.Path {
			sig := dropOffSignature(tp)
			totals[sig]++
			lastSeen[sig] = tp

			terminal := i == len(j.Path)-1
			if terminal && !j.Converted {
				dropOffs[sig]++
			}
		}
	}

	analyses := make([]*DropOffAnalysis, 0)
	for sig, dropped := range dropOffs {
		rate := float64(dropped) / float64(totals[sig])
		if rate <= DropOffThreshold {
			continue
		}
		analyses = append(analyses, buildDropOffAnalysis(sig, lastSeen[sig], dropped, totals[sig], rate))
	}

	a.results.ReplaceDropOffs(analyses)

	a.logger.Info("drop-off analysis completed",
		zap.Int("journeys", len(snapshot)),
		zap.Int("signatures", len(totals)),
		zap.Int("materialized", len(analyses)),
	)

	if len(analyses) > 0 {
		if err := a.publisher.Publish(ctx, events.DropOffIdentified, map[string]any{
			"count": len(analyses),
		}); err != nil {
			a.logger.Warn("dropoff event publish failed", zap.Error(err))
		}
	}

	return nil
}

// buildDropOffAnalysis materializes one analysis for a signature.
func buildDropOffAnalysis(sig string, tp touchpoint.Touchpoint, dropped, total int, rate float64) *DropOffAnalysis {
	impact := 70*rate + 10*math.Log(float64(dropped))
	if impact > 100 {
		impact = 100
	}

	rule := genericDropOffRule
	for _, candidate := range dropOffRules {
		if strings.Contains(sig, candidate.match) {
			rule = candidate
			break
		}
	}

	return &DropOffAnalysis{
		ID:                 uuid.New().String(),
		Signature:          sig,
		Type:               tp.Type,
		Channel:            tp.Channel,
		Page:               tp.Page,
		Frequency:          dropped,
		Occurrences:        total,
		DropOffRate:        rate,
		ImpactScore:        impact,
		DeviceBreakdown:    deviceDistribution,
		TimeOfDayBreakdown: timeOfDayDistribution,
		SourceBreakdown:    sourceDistribution,
		LikelyReasons:      rule.reasons,
		Recommendations:    rule.recommendations,
	}
}

// dropOffSignature keys a touchpoint by type, channel, and page.
func dropOffSignature(tp touchpoint.Touchpoint) string {
	return fmt.Sprintf("%s_%s_%s", tp.Type, tp.Channel, tp.Page)
}
