package api

import "fmt"

// Source is a content source
type Source string

const (
	SourceTwitter Source = "twitter"
	SourceYouTube Source = "youtube"
	SourceBlog    Source = "blog"
)

// Sources lists every known source in display order
var Sources = []Source{SourceTwitter, SourceYouTube, SourceBlog}

func (s Source) Valid() bool {
	switch s {
	case SourceTwitter, SourceYouTube, SourceBlog:
		return true
	}
	return false
}

// SubscriptionType is what a subscription tracks
type SubscriptionType string

const (
	SubscriptionKeyword SubscriptionType = "keyword"
	SubscriptionAuthor  SubscriptionType = "author"
	SubscriptionTopic   SubscriptionType = "topic"
	SubscriptionFeed    SubscriptionType = "feed"
)

func (t SubscriptionType) Valid() bool {
	switch t {
	case SubscriptionKeyword, SubscriptionAuthor, SubscriptionTopic, SubscriptionFeed:
		return true
	}
	return false
}

// SubscriptionStatus is the lifecycle state of a subscription
type SubscriptionStatus string

const (
	StatusActive  SubscriptionStatus = "active"
	StatusPaused  SubscriptionStatus = "paused"
	StatusDeleted SubscriptionStatus = "deleted"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusDeleted:
		return true
	}
	return false
}

// FetchLogStatus is the outcome of a collection run
type FetchLogStatus string

const (
	FetchSuccess FetchLogStatus = "success"
	FetchFailed  FetchLogStatus = "failed"
	FetchPartial FetchLogStatus = "partial"
)

// CreditOperation is a billable backend operation
type CreditOperation string

const (
	CreditTrends         CreditOperation = "trends"
	CreditAdvancedSearch CreditOperation = "advanced_search"
	CreditKeywordSearch  CreditOperation = "keyword_search"
	CreditAuthorSearch   CreditOperation = "author_search"
	CreditSubscription   CreditOperation = "subscription"
)

// CreditContext is why credits were spent
type CreditContext string

const (
	ContextExplore      CreditContext = "explore"
	ContextSubscription CreditContext = "subscription"
	ContextManual       CreditContext = "manual"
)

// NotifyMode controls how new content is pushed
type NotifyMode string

const (
	NotifyIncremental NotifyMode = "incremental"
	NotifyTopList     NotifyMode = "top_list"
	NotifyFullReport  NotifyMode = "full_report"
)

// UserMode selects between the shared feed and a user's own subscriptions
type UserMode string

const (
	ModeGlobal UserMode = "global"
	ModeCustom UserMode = "custom"
)

func (m UserMode) Valid() bool {
	return m == ModeGlobal || m == ModeCustom
}

// Role is a user's authorization level
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Platform is a push notification platform
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

func (p Platform) Valid() bool {
	return p == PlatformIOS || p == PlatformAndroid
}

// SubscriptionScope says whether a user subscription is shared
type SubscriptionScope string

const (
	ScopeGlobal SubscriptionScope = "global"
	ScopeUser   SubscriptionScope = "user"
)

// ParseSource validates s as a Source
func ParseSource(s string) (Source, error) {
	if v := Source(s); v.Valid() {
		return v, nil
	}
	return "", fmt.Errorf("invalid source %q (want twitter, youtube or blog)", s)
}

// ParseSubscriptionType validates s as a SubscriptionType
func ParseSubscriptionType(s string) (SubscriptionType, error) {
	if v := SubscriptionType(s); v.Valid() {
		return v, nil
	}
	return "", fmt.Errorf("invalid subscription type %q (want keyword, author, topic or feed)", s)
}

// ParseSubscriptionStatus validates s as a SubscriptionStatus
func ParseSubscriptionStatus(s string) (SubscriptionStatus, error) {
	if v := SubscriptionStatus(s); v.Valid() {
		return v, nil
	}
	return "", fmt.Errorf("invalid status %q (want active, paused or deleted)", s)
}

// ParseUserMode validates s as a UserMode
func ParseUserMode(s string) (UserMode, error) {
	if v := UserMode(s); v.Valid() {
		return v, nil
	}
	return "", fmt.Errorf("invalid mode %q (want global or custom)", s)
}

// ParsePlatform validates s as a Platform
func ParsePlatform(s string) (Platform, error) {
	if v := Platform(s); v.Valid() {
		return v, nil
	}
	return "", fmt.Errorf("invalid platform %q (want ios or android)", s)
}
