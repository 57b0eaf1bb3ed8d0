package touchpoint

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxScore caps every derived score.
const maxScore = 100

// Score validates the raw input and returns a fully-populated Touchpoint.
//
// Score is deterministic over the input: identity fields (id, timestamp when
// absent from the input) are freshly assigned, but every derived field is a
// pure function of the raw event. Unknown types or channels are rejected
// before any state is touched.
func Score(in Input) (Touchpoint, error) {
	if !in.Type.Valid() {
		return Touchpoint{}, fmt.Errorf("%w: %q", ErrUnknownType, in.Type)
	}
	if !in.Channel.Valid() {
		return Touchpoint{}, fmt.Errorf("%w: %q", ErrUnknownChannel, in.Channel)
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	tp := Touchpoint{
		ID:              uuid.New().String(),
		Timestamp:       ts,
		SessionID:       in.SessionID,
		UserID:          in.UserID,
		Type:            in.Type,
		Channel:         in.Channel,
		Source:          in.Source,
		Medium:          in.Medium,
		Campaign:        in.Campaign,
		Page:            in.Page,
		Content:         in.Content,
		Element:         in.Element,
		ConversionValue: in.ConversionValue,
	}

	text := strings.ToLower(in.Page + " " + in.Content)

	tp.Category = categorize(text)
	tp.Value = valueScore(in.Type, in.Channel, text)
	tp.Engagement = engagementScore(in.Type, in.SessionID)
	tp.Intent = intentScore(in.Type, text)
	tp.Stage = classifyStage(in.Type, text)
	tp.IsConversion = isConversion(in.Type, in.ConversionValue)
	if tp.IsConversion {
		tp.ConversionType = conversionType(in.Type, in.ConversionValue)
	}

	return tp, nil
}

// valueScore computes interaction-type base + channel bonus + page-keyword
// bonuses, capped at 100.
func valueScore(t Type, c Channel, text string) float64 {
	score := valueByType[t] + channelBonus[c]
	for _, kb := range pageValueBonus {
		if strings.Contains(text, kb.keyword) {
			score += kb.bonus
		}
	}
	return clamp(score)
}

// engagementScore computes the interaction-type bonus with a flat increment
// when session context is present, capped at 100.
func engagementScore(t Type, sessionID string) float64 {
	score := engagementByType[t]
	if sessionID != "" {
		score += sessionContextBonus
	}
	return clamp(score)
}

// intentScore combines high-intent-type and high-intent-page bonuses, capped
// at 100.
func intentScore(t Type, text string) float64 {
	score := intentByType[t]
	for _, kb := range intentPageBonus {
		if strings.Contains(text, kb.keyword) {
			score += kb.bonus
		}
	}
	return clamp(score)
}

// classifyStage decides the journey stage by priority order: purchase
// triggers outrank evaluation triggers outrank consideration triggers;
// awareness is the default.
func classifyStage(t Type, text string) Stage {
	if t == TypeDemoRequest || containsAny(text, purchaseKeywords) {
		return StagePurchase
	}
	if containsAny(text, evaluationKeywords) {
		return StageEvaluation
	}
	if containsAny(text, considerationKeywords) {
		return StageConsideration
	}
	return StageAwareness
}

// categorize derives the content category by keyword matching, first matching
// rule wins.
func categorize(text string) Category {
	for _, rule := range categoryRules {
		if strings.Contains(text, rule.keyword) {
			return rule.category
		}
	}
	return CategoryOther
}

func isConversion(t Type, conversionValue float64) bool {
	switch t {
	case TypeFormSubmission, TypeDemoRequest, TypeCallRequest:
		return true
	}
	return conversionValue > 0
}

// conversionType is evaluated in priority order: trial, then lead, then
// purchase. A call request without an attached conversion value converts
// without a conversion type.
func conversionType(t Type, conversionValue float64) ConversionType {
	switch {
	case t == TypeDemoRequest:
		return ConversionTrial
	case t == TypeFormSubmission:
		return ConversionLead
	case conversionValue > 0:
		return ConversionPurchase
	}
	return ""
}

func clamp(score float64) float64 {
	if score > maxScore {
		return maxScore
	}
	if score < 0 {
		return 0
	}
	return score
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
