package engine

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/journeyd/internal/analysis"
	"github.com/fyrsmithlabs/journeyd/internal/journey"
	"github.com/fyrsmithlabs/journeyd/internal/touchpoint"
)

// VisualizationNode is one touchpoint in a journey graph.
type VisualizationNode struct {
	ID        string             `json:"id"`
	Type      touchpoint.Type    `json:"type"`
	Channel   touchpoint.Channel `json:"channel"`
	Page      string             `json:"page,omitempty"`
	Stage     touchpoint.Stage   `json:"stage"`
	Value     float64            `json:"value"`
	Timestamp time.Time          `json:"timestamp"`
}

// VisualizationEdge connects two consecutive touchpoints and carries the
// inter-touchpoint duration.
type VisualizationEdge struct {
	From     string        `json:"from"`
	To       string        `json:"to"`
	Duration time.Duration `json:"duration"`
}

// StageSummary reports a stage's touchpoint count and conversion rate.
type StageSummary struct {
	Touchpoints    int     `json:"touchpoints"`
	ConversionRate float64 `json:"conversion_rate"`
}

// Visualization is the node/edge rendering of one journey.
type Visualization struct {
	JourneyID string                            `json:"journey_id"`
	Converted bool                              `json:"converted"`
	Nodes     []VisualizationNode               `json:"nodes"`
	Edges     []VisualizationEdge               `json:"edges"`
	Stages    map[touchpoint.Stage]StageSummary `json:"stages"`
}

// HealthStatus values.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Health is the engine health report.
type Health struct {
	Status        string               `json:"status"`
	Journeys      int                  `json:"journeys"`
	Touchpoints   int                  `json:"touchpoints"`
	Paths         int                  `json:"conversion_paths"`
	DropOffs      int                  `json:"drop_off_analyses"`
	Optimizations int                  `json:"optimizations"`
	LastAnalysis  time.Time            `json:"last_analysis,omitempty"`
	Jobs          []analysis.JobStatus `json:"jobs"`
	Issues        []string             `json:"issues,omitempty"`
}

// JourneysForIdentity returns all journeys, open or closed, for an identity.
func (e *Engine) JourneysForIdentity(identity string) []*journey.Journey {
	return e.store.JourneysForIdentity(identity)
}

// JourneyVisualization builds the node/edge graph for one journey, plus
// per-stage touchpoint counts and conversion rates.
func (e *Engine) JourneyVisualization(journeyID string) (*Visualization, error) {
	j, err := e.store.Journey(journeyID)
	if err != nil {
		return nil, fmt.Errorf("visualize journey %s: %w", journeyID, err)
	}

	vis := &Visualization{
		JourneyID: j.ID,
		Converted: j.Converted,
		Nodes:     make([]VisualizationNode, 0, len(j.Path)),
		Edges:     make([]VisualizationEdge, 0, max(len(j.Path)-1, 0)),
		Stages:    make(map[touchpoint.Stage]StageSummary, len(j.Stages)),
	}

	for i, tp := range j.Path {
		vis.Nodes = append(vis.Nodes, VisualizationNode{
			ID:        tp.ID,
			Type:      tp.Type,
			Channel:   tp.Channel,
			Page:      tp.Page,
			Stage:     tp.Stage,
			Value:     tp.Value,
			Timestamp: tp.Timestamp,
		})
		if i > 0 {
			prev := j.Path[i-1]
			vis.Edges = append(vis.Edges, VisualizationEdge{
				From:     prev.ID,
				To:       tp.ID,
				Duration: tp.Timestamp.Sub(prev.Timestamp),
			})
		}
	}

	for stage, bucket := range j.Stages {
		vis.Stages[stage] = StageSummary{
			Touchpoints:    len(bucket.Touchpoints),
			ConversionRate: bucket.ConversionRate,
		}
	}

	return vis, nil
}

// TopConversionPaths returns the top mined paths by frequency descending.
func (e *Engine) TopConversionPaths(limit int) []*analysis.ConversionPath {
	return e.results.TopConversionPaths(limit)
}

// TopDropOffs returns the top drop-off analyses by impact score descending.
func (e *Engine) TopDropOffs(limit int) []*analysis.DropOffAnalysis {
	return e.results.TopDropOffs(limit)
}

// TopOptimizations returns the top optimizations by projected conversion
// increase descending.
func (e *Engine) TopOptimizations(limit int) []*analysis.JourneyOptimization {
	return e.results.TopOptimizations(limit)
}

// HealthCheck derives the engine status:
//
//   - unhealthy: zero journeys tracked
//   - degraded:  an analysis cycle is in flight, or no cycle has completed
//     within the stale window
//   - healthy:   otherwise
func (e *Engine) HealthCheck() Health {
	now := e.nowFn()
	jobs := e.scheduler.Status()
	paths, dropOffs, optimizations := e.results.Counts()

	h := Health{
		Journeys:      e.store.JourneyCount(),
		Touchpoints:   e.store.TouchpointCount(),
		Paths:         paths,
		DropOffs:      dropOffs,
		Optimizations: optimizations,
		Jobs:          jobs,
	}

	// Most recent completion across jobs; the engine start time is the
	// baseline before anything has completed.
	lastAnalysis := e.started
	inFlight := false
	for _, job := range jobs {
		if job.InFlight {
			inFlight = true
		}
		if job.LastCompleted.After(lastAnalysis) {
			lastAnalysis = job.LastCompleted
		}
	}
	h.LastAnalysis = lastAnalysis

	if inFlight {
		h.Issues = append(h.Issues, "analysis cycle in flight")
	}
	if now.Sub(lastAnalysis) > e.staleAfter {
		h.Issues = append(h.Issues, fmt.Sprintf("no analysis cycle completed in %s", e.staleAfter))
	}
	if h.Journeys == 0 {
		h.Issues = append(h.Issues, "no journeys tracked")
	}

	switch {
	case h.Journeys == 0:
		h.Status = StatusUnhealthy
	case len(h.Issues) > 0:
		h.Status = StatusDegraded
	default:
		h.Status = StatusHealthy
	}

	return h
}
