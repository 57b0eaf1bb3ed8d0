package journey

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/journeyd/internal/touchpoint"
)

// DefaultWindow is the active-journey stitching window: a journey accepts new
// touchpoints only while the gap since its last touchpoint stays under this.
const DefaultWindow = 30 * time.Minute

// ErrInvalidTouchpoint is returned when a touchpoint reaches the stitcher
// without an id or timestamp, which means it skipped scoring.
var ErrInvalidTouchpoint = errors.New("touchpoint missing id or timestamp")

// Stitcher decides, per incoming touchpoint, whether it extends the
// identity's active journey or starts a new one, and recomputes journey-level
// aggregates. All mutation goes through the store; the stitcher itself holds
// no journey state, only its configuration and the ingest lock.
type Stitcher struct {
	store  Store
	window time.Duration
	logger *zap.Logger
	nowFn  func() time.Time

	// mu serializes Ingest. The find-clone-commit sequence is a
	// read-modify-write across two store calls; without serialization two
	// concurrent ingests for one identity clone the same active journey and
	// the second commit drops the first touchpoint from every path.
	mu sync.Mutex
}

// StitcherOption configures a Stitcher.
type StitcherOption func(*Stitcher)

// WithWindow overrides the active-journey window.
func WithWindow(window time.Duration) StitcherOption {
	return func(s *Stitcher) { s.window = window }
}

// WithClock overrides the wall clock, for tests.
func WithClock(nowFn func() time.Time) StitcherOption {
	return func(s *Stitcher) { s.nowFn = nowFn }
}

// NewStitcher creates a stitcher over the given store.
func NewStitcher(store Store, logger *zap.Logger, opts ...StitcherOption) *Stitcher {
	s := &Stitcher{
		store:  store,
		window: DefaultWindow,
		logger: logger,
		nowFn:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Window returns the configured active-journey window.
func (s *Stitcher) Window() time.Duration {
	return s.window
}

// Ingest stitches one touchpoint. It resolves the identity, finds the active
// journey (latest end time, inside the window), and either extends it or
// creates a new one. Mutation is atomic per touchpoint: the updated journey
// is built on a local clone and nothing is committed until it succeeds.
// Ingest calls are serialized, so every touchpoint lands in exactly one
// journey path even under concurrent callers.
func (s *Stitcher) Ingest(tp touchpoint.Touchpoint) (*Journey, error) {
	if tp.ID == "" || tp.Timestamp.IsZero() {
		return nil, ErrInvalidTouchpoint
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	identity := tp.Identity()
	now := s.nowFn()

	var updated *Journey
	if active, ok := s.store.ActiveJourney(identity, now, s.window); ok {
		updated = active.Clone()
		extend(updated, tp)
		s.logger.Debug("journey extended",
			zap.String("journey_id", updated.ID),
			zap.String("identity", identity),
			zap.Int("touchpoints", len(updated.Path)),
		)
	} else {
		updated = newJourney(identity, tp)
		s.logger.Debug("journey created",
			zap.String("journey_id", updated.ID),
			zap.String("identity", identity),
		)
	}

	// Commit: the touchpoint list and the journey are updated together, and
	// the pre-update journey version is left untouched for snapshot readers.
	s.store.AppendTouchpoint(identity, tp)
	s.store.PutJourney(updated)

	return updated, nil
}

// newJourney creates a journey from its first touchpoint.
func newJourney(identity string, tp touchpoint.Touchpoint) *Journey {
	j := &Journey{
		ID:         uuid.New().String(),
		IdentityID: identity,
		StartedAt:  tp.Timestamp,
		EndedAt:    tp.Timestamp,
		Stages:     make(map[touchpoint.Stage]*StageBucket),
	}
	extend(j, tp)
	return j
}

// extend appends a touchpoint to the journey path and recomputes every
// journey-level aggregate.
func extend(j *Journey, tp touchpoint.Touchpoint) {
	if tp.Timestamp.After(j.EndedAt) {
		j.EndedAt = tp.Timestamp
	}
	j.Duration = j.EndedAt.Sub(j.StartedAt)

	j.Path = append(j.Path, tp)
	j.SessionIDs = appendUniqueString(j.SessionIDs, tp.SessionID)
	j.Channels = appendUniqueChannel(j.Channels, tp.Channel)
	j.Sources = appendUniqueString(j.Sources, tp.Source)

	bucket, ok := j.Stages[tp.Stage]
	if !ok {
		bucket = &StageBucket{}
		j.Stages[tp.Stage] = bucket
	}
	bucket.Touchpoints = append(bucket.Touchpoints, tp)
	if tp.IsConversion {
		bucket.Conversions++
	}
	bucket.ConversionRate = float64(bucket.Conversions) / float64(len(bucket.Touchpoints))

	// Converted is sticky; the first converting touchpoint sets the type.
	if tp.IsConversion {
		j.Converted = true
		if j.ConversionType == "" {
			j.ConversionType = tp.ConversionType
		}
	}
	j.ConversionValue += tp.ConversionValue
	j.JourneyValue += tp.Value

	first := j.Path[0]
	last := j.Path[len(j.Path)-1]
	j.FirstTouch = &first
	j.LastTouch = &last
	if len(j.Path) > 2 {
		j.Assisting = append([]touchpoint.Touchpoint(nil), j.Path[1:len(j.Path)-1]...)
	} else {
		j.Assisting = nil
	}

	recomputeScores(j)
}

// recomputeScores recalculates the four aggregate scores:
//
//	efficiency   = max(10, 100 - 10*(touchpoints - optimalLength))
//	engagement   = mean of touchpoint engagement scores
//	intent       = max of touchpoint intent scores
//	satisfaction = 0.4*efficiency + 0.6*engagement
//
// where optimalLength is 2 for converted journeys and 1 otherwise.
func recomputeScores(j *Journey) {
	optimal := 1
	if j.Converted {
		optimal = 2
	}
	j.Efficiency = 100 - 10*float64(len(j.Path)-optimal)
	if j.Efficiency < 10 {
		j.Efficiency = 10
	}

	var engagementSum, intentMax float64
	for _, tp := range j.Path {
		engagementSum += tp.Engagement
		if tp.Intent > intentMax {
			intentMax = tp.Intent
		}
	}
	j.Engagement = engagementSum / float64(len(j.Path))
	j.Intent = intentMax
	j.Satisfaction = 0.4*j.Efficiency + 0.6*j.Engagement
}

func appendUniqueString(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func appendUniqueChannel(list []touchpoint.Channel, v touchpoint.Channel) []touchpoint.Channel {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
