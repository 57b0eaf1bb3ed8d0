// Package analysis contains the periodic batch jobs that mine journeys for
// conversion paths, drop-off hotspots, and optimization opportunities, plus
// the derived-result store they write into and the scheduler that drives
// them.
//
// All three jobs recompute from a store snapshot and overwrite their prior
// output wholesale each cycle. That is deliberate: stale-but-valid data is
// preferred over partial incremental state, and a failed cycle simply leaves
// the previous results in place until the next tick.
package analysis

import (
	"time"

	"github.com/fyrsmithlabs/journeyd/internal/touchpoint"
)

// PathStep is one step of a mined conversion path.
type PathStep struct {
	Type       touchpoint.Type    `json:"type"`
	Channel    touchpoint.Channel `json:"channel"`
	Value      float64            `json:"value"`
	TimeToNext time.Duration      `json:"time_to_next"`
}

// ConversionPath is a mined pattern keyed by the ordered (type, channel)
// sequence of a converted journey's full path.
//
// AvgDuration, AvgTouchpoints, Efficiency, and Satisfaction are each updated
// as (old + new) / 2 on every observation after the first: a running average
// of the last two samples, not a true mean. That is reproduced source
// behavior, kept for fidelity.
type ConversionPath struct {
	ID        string   `json:"id"`
	Key       string   `json:"key"`
	Signature []string `json:"signature"`

	Frequency        int     `json:"frequency"`
	TotalConversions int     `json:"total_conversions"`
	ConversionRate   float64 `json:"conversion_rate"`

	AvgDuration    time.Duration `json:"avg_duration"`
	AvgTouchpoints float64       `json:"avg_touchpoints"`
	Efficiency     float64       `json:"efficiency"`
	Satisfaction   float64       `json:"satisfaction"`

	TotalRevenue  float64 `json:"total_revenue"`
	AvgOrderValue float64 `json:"avg_order_value"`

	Steps []PathStep `json:"steps"`
}

// DropOffAnalysis describes a terminal non-converted touchpoint signature
// with an elevated drop-off rate.
type DropOffAnalysis struct {
	ID        string             `json:"id"`
	Signature string             `json:"signature"`
	Type      touchpoint.Type    `json:"type"`
	Channel   touchpoint.Channel `json:"channel"`
	Page      string             `json:"page"`

	Frequency   int     `json:"frequency"`
	Occurrences int     `json:"occurrences"`
	DropOffRate float64 `json:"drop_off_rate"`
	ImpactScore float64 `json:"impact_score"`

	// Heuristic fixed distributions, not measured.
	DeviceBreakdown    map[string]float64 `json:"device_breakdown"`
	TimeOfDayBreakdown map[string]float64 `json:"time_of_day_breakdown"`
	SourceBreakdown    map[string]float64 `json:"source_breakdown"`

	LikelyReasons   []string `json:"likely_reasons"`
	Recommendations []string `json:"recommendations"`
}

// Opportunity is a single improvement opportunity on a conversion-path step.
type Opportunity struct {
	StepIndex           int                `json:"step_index"`
	Type                touchpoint.Type    `json:"type"`
	Channel             touchpoint.Channel `json:"channel"`
	Kind                string             `json:"kind"`
	Description         string             `json:"description"`
	ExpectedImprovement float64            `json:"expected_improvement"`
	Confidence          float64            `json:"confidence"`
	Effort              string             `json:"effort"`
	Priority            int                `json:"priority"`
}

// ProjectedImpact aggregates the expected effect of applying every
// opportunity on a path.
type ProjectedImpact struct {
	ConversionIncrease float64 `json:"conversion_increase"`
	RevenueImpact      float64 `json:"revenue_impact"`
	AffectedJourneys   int     `json:"affected_journeys"`
}

// RecommendationTiers buckets static recommendation text by time horizon.
type RecommendationTiers struct {
	Immediate []string `json:"immediate"`
	ShortTerm []string `json:"short_term"`
	LongTerm  []string `json:"long_term"`
}

// JourneyOptimization is derived from one top-ranked conversion path.
type JourneyOptimization struct {
	ID              string              `json:"id"`
	PathID          string              `json:"path_id"`
	PathKey         string              `json:"path_key"`
	Opportunities   []Opportunity       `json:"opportunities"`
	Projected       ProjectedImpact     `json:"projected"`
	Recommendations RecommendationTiers `json:"recommendations"`
	GeneratedAt     time.Time           `json:"generated_at"`
}
