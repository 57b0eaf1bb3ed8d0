package analysis

import (
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/journeyd/internal/journey"
	"github.com/fyrsmithlabs/journeyd/internal/touchpoint"
)

// pathSpec describes one touchpoint of a fixture journey.
type pathSpec struct {
	typ     touchpoint.Type
	channel touchpoint.Channel
	page    string
	value   float64
	offset  time.Duration
}

// fixtureJourney builds a stored journey from a path description. Only the
// fields the analysis jobs read are populated.
func fixtureJourney(start time.Time, converted bool, conversionValue float64, specs ...pathSpec) *journey.Journey {
	j := &journey.Journey{
		ID:         uuid.New().String(),
		IdentityID: uuid.New().String(),
		StartedAt:  start,
		Converted:  converted,
		Stages:     make(map[touchpoint.Stage]*journey.StageBucket),
	}
	if converted {
		j.ConversionValue = conversionValue
	}

	for _, ps := range specs {
		ts := start.Add(ps.offset)
		j.Path = append(j.Path, touchpoint.Touchpoint{
			ID:        uuid.New().String(),
			Type:      ps.typ,
			Channel:   ps.channel,
			Page:      ps.page,
			Value:     ps.value,
			Timestamp: ts,
		})
		if ts.After(j.EndedAt) {
			j.EndedAt = ts
		}
	}
	j.Duration = j.EndedAt.Sub(j.StartedAt)
	return j
}
