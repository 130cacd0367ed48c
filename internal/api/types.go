package api

// --- Subscriptions ---

// SubscriptionCreate is the body of POST /api/subscriptions
type SubscriptionCreate struct {
	Name                string           `json:"name"`
	Source              Source           `json:"source"`
	Type                SubscriptionType `json:"type"`
	Target              string           `json:"target"`
	Filters             map[string]any   `json:"filters,omitempty"`
	FetchInterval       int              `json:"fetch_interval,omitempty"`
	AIAnalysisEnabled   *bool            `json:"ai_analysis_enabled,omitempty"`
	NotificationEnabled *bool            `json:"notification_enabled,omitempty"`
}

// SubscriptionUpdate is the body of PUT /api/subscriptions/{id}; nil fields are left unchanged
type SubscriptionUpdate struct {
	Name                *string             `json:"name,omitempty"`
	Target              *string             `json:"target,omitempty"`
	Filters             map[string]any      `json:"filters,omitempty"`
	FetchInterval       *int                `json:"fetch_interval,omitempty"`
	AIAnalysisEnabled   *bool               `json:"ai_analysis_enabled,omitempty"`
	NotificationEnabled *bool               `json:"notification_enabled,omitempty"`
	Status              *SubscriptionStatus `json:"status,omitempty"`
}

type Subscription struct {
	ID                  int64              `json:"id"`
	Name                string             `json:"name"`
	Source              Source             `json:"source"`
	Type                SubscriptionType   `json:"type"`
	Target              string             `json:"target"`
	Filters             map[string]any     `json:"filters"`
	FetchInterval       int                `json:"fetch_interval"`
	AIAnalysisEnabled   bool               `json:"ai_analysis_enabled"`
	NotificationEnabled bool               `json:"notification_enabled"`
	Status              SubscriptionStatus `json:"status"`
	LastFetchedAt       Time               `json:"last_fetched_at"`
	CreatedAt           Time               `json:"created_at"`
	UpdatedAt           Time               `json:"updated_at"`
}

// SubscriptionFilter narrows GET /api/subscriptions; zero fields are omitted
type SubscriptionFilter struct {
	Source Source
	Type   SubscriptionType
	Status SubscriptionStatus
}

// --- Contents ---

type ContentMetrics struct {
	Views     *int64 `json:"views,omitempty"`
	Likes     *int64 `json:"likes,omitempty"`
	Retweets  *int64 `json:"retweets,omitempty"`
	Replies   *int64 `json:"replies,omitempty"`
	Comments  *int64 `json:"comments,omitempty"`
	Bookmarks *int64 `json:"bookmarks,omitempty"`
}

// AIAnalysis is the model's assessment of a content item. Unknown keys are kept in Extra.
type AIAnalysis struct {
	Summary    string         `json:"summary,omitempty"`
	KeyPoints  []string       `json:"key_points,omitempty"`
	Sentiment  string         `json:"sentiment,omitempty"`
	Importance *float64       `json:"importance,omitempty"`
	Topics     []string       `json:"topics,omitempty"`
	Insights   string         `json:"insights,omitempty"`
	Extra      map[string]any `json:"-"`
}

type ContentItem struct {
	ID           int64           `json:"id"`
	ContentID    string          `json:"content_id"`
	Source       Source          `json:"source"`
	Author       *string         `json:"author"`
	AuthorID     *string         `json:"author_id"`
	Title        *string         `json:"title"`
	Content      *string         `json:"content"`
	URL          *string         `json:"url"`
	Metrics      *ContentMetrics `json:"metrics"`
	AIAnalysis   *AIAnalysis     `json:"ai_analysis"`
	QualityScore *float64        `json:"quality_score"`
	PostedAt     Time            `json:"posted_at"`
	CreatedAt    Time            `json:"created_at"`
}

// Content is the full record returned by detail endpoints
type Content struct {
	ContentItem
	SubscriptionID *int64   `json:"subscription_id"`
	Transcript     *string  `json:"transcript"`
	AIAnalyzedAt   Time     `json:"ai_analyzed_at"`
	RelevanceScore *float64 `json:"relevance_score"`
	Notified       bool     `json:"notified"`
}

type ContentPage struct {
	Items    []ContentItem `json:"items"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// ContentFilter narrows GET /api/contents; zero fields are omitted
type ContentFilter struct {
	SubscriptionID int64
	Source         Source
	Page           int
	PageSize       int
}

// --- Triggers ---

type TriggerResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// --- Stats ---

type HealthResponse struct {
	Status          string `json:"status"`
	Subscriptions   int    `json:"subscriptions"`
	Contents        int    `json:"contents"`
	TwitterContents int    `json:"twitter_contents"`
	YouTubeContents int    `json:"youtube_contents"`
	BlogContents    int    `json:"blog_contents"`
}

type SubscriptionStats struct {
	Total    int            `json:"total"`
	Active   int            `json:"active"`
	Paused   int            `json:"paused"`
	BySource map[string]int `json:"by_source"`
}

type ContentStats struct {
	Total      int            `json:"total"`
	Analyzed   int            `json:"analyzed"`
	Unanalyzed int            `json:"unanalyzed"`
	BySource   map[string]int `json:"by_source"`
	Recent24h  int            `json:"recent_24h"`
}

type NotificationStats struct {
	TotalNotified int `json:"total_notified"`
	Pending       int `json:"pending"`
}

type StatsResponse struct {
	Subscriptions  SubscriptionStats `json:"subscriptions"`
	Contents       ContentStats      `json:"contents"`
	Notifications  NotificationStats `json:"notifications"`
	Modules        map[string]any    `json:"modules"`
	Explore        map[string]any    `json:"explore"`
	Schedule       map[string]any    `json:"schedule"`
	TwitterCredits map[string]any    `json:"twitter_credits"`
}

// --- Credits ---

type CreditSummary struct {
	PeriodDays   int                `json:"period_days"`
	TotalCredits float64            `json:"total_credits"`
	BySource     map[string]float64 `json:"by_source"`
	ByOperation  map[string]float64 `json:"by_operation"`
	ByContext    map[string]float64 `json:"by_context"`
	DailyAverage float64            `json:"daily_average"`
}

type CreditRecord struct {
	ID        int64   `json:"id"`
	Source    string  `json:"source"`
	Operation string  `json:"operation"`
	Credits   float64 `json:"credits"`
	Detail    *string `json:"detail"`
	Context   string  `json:"context"`
	CreatedAt Time    `json:"created_at"`
}

// CreditRecordFilter narrows GET /api/credits/records
type CreditRecordFilter struct {
	Limit  int
	Source string
}

// CreditRangeFilter narrows GET /api/credits/daily and /api/credits/breakdown
type CreditRangeFilter struct {
	Days   int
	Source string
}

// CreditRow is one row of the daily or breakdown reports. Their shape varies
// by backend version, so rows are kept as generic objects.
type CreditRow map[string]any

// --- Fetch logs ---

type FetchLogRecord struct {
	ID              int64    `json:"id"`
	SubscriptionID  *int64   `json:"subscription_id"`
	Source          string   `json:"source"`
	Status          string   `json:"status"`
	TotalFetched    int      `json:"total_fetched"`
	NewItems        int      `json:"new_items"`
	FilteredItems   int      `json:"filtered_items"`
	ErrorMessage    *string  `json:"error_message"`
	StartedAt       Time     `json:"started_at"`
	DurationSeconds *float64 `json:"duration_seconds"`
}

// FetchLogFilter narrows GET /api/logs/fetch
type FetchLogFilter struct {
	Limit          int
	SubscriptionID int64
}

// --- System config ---

type SystemConfig struct {
	Key         string         `json:"key"`
	Value       map[string]any `json:"value"`
	Description *string        `json:"description"`
	UpdatedAt   Time           `json:"updated_at"`
}

type ConfigUpdate struct {
	Value       map[string]any `json:"value"`
	Description string         `json:"description,omitempty"`
}

type ConfigUpdateResponse struct {
	SystemConfig
	Status string `json:"status"`
}

// --- Analyze ---

type AnalyzeURLRequest struct {
	URL string `json:"url"`
}

type AnalyzeURLResponse struct {
	URL      string         `json:"url"`
	Source   string         `json:"source"`
	Content  map[string]any `json:"content"`
	Analysis map[string]any `json:"analysis"`
	Error    *string        `json:"error"`
}

type AnalyzeAuthorRequest struct {
	AuthorID string `json:"author_id"`
	Source   Source `json:"source,omitempty"`
}

type AnalyzeAuthorResponse struct {
	AuthorID       string           `json:"author_id"`
	Source         string           `json:"source"`
	Profile        map[string]any   `json:"profile"`
	RecentContents []map[string]any `json:"recent_contents"`
	Analysis       map[string]any   `json:"analysis"`
	Error          *string          `json:"error"`
}

// --- Auth ---

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type User struct {
	ID        int64    `json:"id"`
	Username  string   `json:"username"`
	Role      Role     `json:"role"`
	Mode      UserMode `json:"mode"`
	CreatedAt Time     `json:"created_at"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	User         User   `json:"user"`
}

type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// --- User feed ---

type FeedPage struct {
	Items    []ContentItem `json:"items"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Mode     UserMode      `json:"mode"`
}

// FeedFilter narrows GET /api/user/feed
type FeedFilter struct {
	Page       int
	PageSize   int
	UnreadOnly bool
}

type ModeResponse struct {
	Status string   `json:"status"`
	Mode   UserMode `json:"mode"`
}

// --- Devices ---

type DeviceRegistration struct {
	DeviceID   string   `json:"device_id"`
	Platform   Platform `json:"platform"`
	PushToken  string   `json:"push_token"`
	AppVersion string   `json:"app_version,omitempty"`
}

type DeviceRegistered struct {
	Status   string `json:"status"`
	DeviceID string `json:"device_id"`
}

type Device struct {
	DeviceID  string `json:"device_id"`
	Platform  string `json:"platform"`
	PushToken string `json:"push_token"`
}

type DeviceList struct {
	Devices []Device `json:"devices"`
	Total   int      `json:"total"`
}

// --- User subscriptions ---

type UserSubscription struct {
	ID            int64              `json:"id"`
	Name          string             `json:"name"`
	Source        Source             `json:"source"`
	Type          SubscriptionType   `json:"type"`
	Target        string             `json:"target"`
	Status        SubscriptionStatus `json:"status"`
	LastFetchedAt Time               `json:"last_fetched_at"`
	Scope         SubscriptionScope  `json:"scope"`
	IsMine        bool               `json:"is_mine"`
}

type UserSubscriptionCreate struct {
	Name   string           `json:"name"`
	Source Source           `json:"source"`
	Type   SubscriptionType `json:"type"`
	Target string           `json:"target"`
}

// UserSubscriptionCreated reports whether the backend created a new
// subscription, reused a global one, or found the user already subscribed.
type UserSubscriptionCreated struct {
	Status         string `json:"status"` // created, reused, exists
	Message        string `json:"message"`
	SubscriptionID int64  `json:"subscription_id"`
}

// --- Push ---

type PushTestRequest struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
}

type PushTestResponse struct {
	Status string `json:"status"`
	Sent   int    `json:"sent"`
}

// StatusResponse is the {"status": ...} acknowledgement most mutations return
type StatusResponse struct {
	Status string `json:"status"`
}
