// Package touchpoint defines the immutable customer-interaction record and
// the scoring heuristics that populate its derived fields.
//
// A touchpoint is created once at ingestion time and never mutated. All
// derived fields (value, engagement, intent, stage, category, conversion
// flags) are computed by pure functions over the raw input, so scoring the
// same input twice always yields identical derived fields.
package touchpoint

import (
	"errors"
	"time"
)

// Errors for touchpoint validation.
var (
	ErrUnknownType    = errors.New("invalid touchpoint type")
	ErrUnknownChannel = errors.New("invalid touchpoint channel")
)

// Type enumerates the supported interaction types.
type Type string

const (
	TypePageView       Type = "page_view"
	TypeClick          Type = "click"
	TypeFormSubmission Type = "form_submission"
	TypeDownload       Type = "download"
	TypeVideoPlay      Type = "video_play"
	TypeScroll         Type = "scroll"
	TypeEmailOpen      Type = "email_open"
	TypeEmailClick     Type = "email_click"
	TypeSocialShare    Type = "social_share"
	TypeChatStart      Type = "chat_start"
	TypeCallRequest    Type = "call_request"
	TypeDemoRequest    Type = "demo_request"
)

// Channel enumerates the acquisition channels.
type Channel string

const (
	ChannelWeb      Channel = "web"
	ChannelEmail    Channel = "email"
	ChannelSocial   Channel = "social"
	ChannelPaid     Channel = "paid"
	ChannelOrganic  Channel = "organic"
	ChannelDirect   Channel = "direct"
	ChannelReferral Channel = "referral"
	ChannelChat     Channel = "chat"
	ChannelPhone    Channel = "phone"
)

// Stage is the journey stage a touchpoint is classified into.
type Stage string

const (
	StageAwareness     Stage = "awareness"
	StageConsideration Stage = "consideration"
	StageEvaluation    Stage = "evaluation"
	StagePurchase      Stage = "purchase"
)

// ConversionType identifies what kind of conversion a touchpoint triggered.
type ConversionType string

const (
	ConversionTrial    ConversionType = "trial"
	ConversionLead     ConversionType = "lead"
	ConversionPurchase ConversionType = "purchase"
)

// Category is the derived content category of a touchpoint.
type Category string

const (
	CategoryBlog          Category = "blog"
	CategoryDemo          Category = "demo"
	CategoryPricing       Category = "pricing"
	CategoryFeatures      Category = "features"
	CategoryCaseStudy     Category = "case_study"
	CategoryDocumentation Category = "documentation"
	CategorySupport       Category = "support"
	CategoryCompany       Category = "company"
	CategoryOther         Category = "other"
)

// Input carries the raw event fields supplied by the tracking layer.
type Input struct {
	SessionID       string    `json:"session_id"`
	UserID          string    `json:"user_id,omitempty"`
	Type            Type      `json:"type"`
	Channel         Channel   `json:"channel"`
	Source          string    `json:"source"`
	Medium          string    `json:"medium"`
	Campaign        string    `json:"campaign,omitempty"`
	Page            string    `json:"page,omitempty"`
	Content         string    `json:"content,omitempty"`
	Element         string    `json:"element,omitempty"`
	ConversionValue float64   `json:"conversion_value,omitempty"`
	Timestamp       time.Time `json:"timestamp,omitempty"`
}

// Touchpoint is an immutable record of one customer interaction with all
// derived scores populated.
type Touchpoint struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id,omitempty"`

	Type     Type    `json:"type"`
	Channel  Channel `json:"channel"`
	Source   string  `json:"source"`
	Medium   string  `json:"medium"`
	Campaign string  `json:"campaign,omitempty"`

	Page     string   `json:"page,omitempty"`
	Content  string   `json:"content,omitempty"`
	Element  string   `json:"element,omitempty"`
	Category Category `json:"category"`

	Value      float64 `json:"value"`
	Engagement float64 `json:"engagement"`
	Intent     float64 `json:"intent"`
	Stage      Stage   `json:"stage"`

	IsConversion    bool           `json:"is_conversion"`
	ConversionType  ConversionType `json:"conversion_type,omitempty"`
	ConversionValue float64        `json:"conversion_value,omitempty"`
}

// Valid reports whether t is a known interaction type.
func (t Type) Valid() bool {
	_, ok := valueByType[t]
	return ok
}

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	_, ok := channelBonus[c]
	return ok
}

// Identity returns the identity a touchpoint belongs to for stitching.
// Touchpoints without a user id are attributed to the shared anonymous
// identity.
func (tp Touchpoint) Identity() string {
	if tp.UserID == "" {
		return AnonymousIdentity
	}
	return tp.UserID
}

// AnonymousIdentity is the identity assigned to touchpoints without a user id.
const AnonymousIdentity = "anonymous"
