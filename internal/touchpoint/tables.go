package touchpoint

// Scoring tables for the weighted heuristics. The numbers are tuned for
// behavioral fidelity, not statistical validity; keep them in one place so a
// recalibration touches a single file.

// valueByType is the base value contribution per interaction type. It also
// doubles as the set of known types for validation.
var valueByType = map[Type]float64{
	TypePageView:       5,
	TypeClick:          3,
	TypeFormSubmission: 25,
	TypeDownload:       15,
	TypeVideoPlay:      10,
	TypeScroll:         2,
	TypeEmailOpen:      5,
	TypeEmailClick:     8,
	TypeSocialShare:    12,
	TypeChatStart:      20,
	TypeCallRequest:    35,
	TypeDemoRequest:    40,
}

// channelBonus is the value bonus per channel. It also doubles as the set of
// known channels for validation.
var channelBonus = map[Channel]float64{
	ChannelWeb:      2,
	ChannelEmail:    6,
	ChannelSocial:   4,
	ChannelPaid:     3,
	ChannelOrganic:  8,
	ChannelDirect:   5,
	ChannelReferral: 7,
	ChannelChat:     10,
	ChannelPhone:    15,
}

// keywordBonus pairs a case-insensitive page/content substring with a score
// bonus. Every matching keyword contributes.
type keywordBonus struct {
	keyword string
	bonus   float64
}

// pageValueBonus rewards touchpoints on high-value pages.
var pageValueBonus = []keywordBonus{
	{"pricing", 15},
	{"demo", 20},
	{"trial", 18},
	{"contact", 12},
	{"features", 8},
}

// engagementByType is the engagement contribution per interaction type.
var engagementByType = map[Type]float64{
	TypePageView:       12,
	TypeClick:          15,
	TypeFormSubmission: 35,
	TypeDownload:       25,
	TypeVideoPlay:      30,
	TypeScroll:         10,
	TypeEmailOpen:      8,
	TypeEmailClick:     20,
	TypeSocialShare:    28,
	TypeChatStart:      40,
	TypeCallRequest:    38,
	TypeDemoRequest:    45,
}

// sessionContextBonus is the flat engagement increment applied when the
// touchpoint arrives with session context.
const sessionContextBonus = 10

// intentByType rewards high-intent interaction types. Types absent from the
// table contribute nothing.
var intentByType = map[Type]float64{
	TypeDemoRequest:    50,
	TypeCallRequest:    45,
	TypeFormSubmission: 35,
	TypeChatStart:      30,
	TypeDownload:       20,
	TypeEmailClick:     10,
}

// intentPageBonus rewards visits to high-intent pages.
var intentPageBonus = []keywordBonus{
	{"demo", 30},
	{"trial", 28},
	{"pricing", 25},
	{"comparison", 20},
	{"contact", 15},
}

// categoryRule maps a page/content keyword to a content category. Rules are
// evaluated in order; the first match wins.
type categoryRule struct {
	keyword  string
	category Category
}

var categoryRules = []categoryRule{
	{"blog", CategoryBlog},
	{"demo", CategoryDemo},
	{"pricing", CategoryPricing},
	{"features", CategoryFeatures},
	{"case-study", CategoryCaseStudy},
	{"case_study", CategoryCaseStudy},
	{"docs", CategoryDocumentation},
	{"documentation", CategoryDocumentation},
	{"support", CategorySupport},
	{"about", CategoryCompany},
	{"company", CategoryCompany},
}

// Stage classification keywords, checked against page and content text.
// Purchase triggers outrank evaluation triggers which outrank consideration
// triggers; awareness is the default.
var (
	purchaseKeywords      = []string{"trial", "purchase"}
	evaluationKeywords    = []string{"pricing", "comparison", "case-study", "case_study"}
	considerationKeywords = []string{"features", "product", "guide"}
)
