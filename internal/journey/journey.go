// Package journey owns customer journeys: the mutable aggregates stitched
// from touchpoints, the store that holds them, and the stitcher that decides
// whether an incoming touchpoint extends an existing journey or starts a new
// one.
package journey

import (
	"time"

	"github.com/fyrsmithlabs/journeyd/internal/touchpoint"
)

// StageBucket groups a journey's touchpoints by stage and tracks the
// stage-local conversion rate (conversions / touchpoints in the stage).
type StageBucket struct {
	Touchpoints    []touchpoint.Touchpoint `json:"touchpoints"`
	Conversions    int                     `json:"conversions"`
	ConversionRate float64                 `json:"conversion_rate"`
}

// Journey is a bounded customer journey: an ordered sequence of touchpoints
// from one identity, with aggregates recomputed on every append.
type Journey struct {
	ID         string   `json:"id"`
	IdentityID string   `json:"identity_id"`
	SessionIDs []string `json:"session_ids"`

	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Duration  time.Duration `json:"duration"`

	Path     []touchpoint.Touchpoint           `json:"path"`
	Channels []touchpoint.Channel              `json:"channels"`
	Sources  []string                          `json:"sources"`
	Stages   map[touchpoint.Stage]*StageBucket `json:"stages"`

	Converted       bool                      `json:"converted"`
	ConversionType  touchpoint.ConversionType `json:"conversion_type,omitempty"`
	ConversionValue float64                   `json:"conversion_value"`

	JourneyValue float64 `json:"journey_value"`
	Efficiency   float64 `json:"efficiency"`
	Engagement   float64 `json:"engagement"`
	Intent       float64 `json:"intent"`
	Satisfaction float64 `json:"satisfaction"`

	FirstTouch *touchpoint.Touchpoint  `json:"first_touch,omitempty"`
	LastTouch  *touchpoint.Touchpoint  `json:"last_touch,omitempty"`
	Assisting  []touchpoint.Touchpoint `json:"assisting,omitempty"`
}

// ActiveAt reports whether the journey is still open for stitching at the
// given instant: a journey is active iff now - EndedAt < window.
func (j *Journey) ActiveAt(now time.Time, window time.Duration) bool {
	return now.Sub(j.EndedAt) < window
}

// Clone returns a deep copy of the journey. The stitcher mutates a clone and
// commits it by pointer swap, so journeys already handed out in snapshots are
// never observed half-updated.
func (j *Journey) Clone() *Journey {
	c := *j

	c.SessionIDs = append([]string(nil), j.SessionIDs...)
	c.Path = append([]touchpoint.Touchpoint(nil), j.Path...)
	c.Channels = append([]touchpoint.Channel(nil), j.Channels...)
	c.Sources = append([]string(nil), j.Sources...)
	c.Assisting = append([]touchpoint.Touchpoint(nil), j.Assisting...)

	c.Stages = make(map[touchpoint.Stage]*StageBucket, len(j.Stages))
	for stage, bucket := range j.Stages {
		c.Stages[stage] = &StageBucket{
			Touchpoints:    append([]touchpoint.Touchpoint(nil), bucket.Touchpoints...),
			Conversions:    bucket.Conversions,
			ConversionRate: bucket.ConversionRate,
		}
	}

	if j.FirstTouch != nil {
		ft := *j.FirstTouch
		c.FirstTouch = &ft
	}
	if j.LastTouch != nil {
		lt := *j.LastTouch
		c.LastTouch = &lt
	}

	return &c
}
