package api

import (
	"encoding/json"
	"strings"

	"github.com/devilmonastery/infohunter/internal/pkg/format"
)

// DefaultAppVersion is reported when registering a device without an explicit version
const DefaultAppVersion = "0.3.0"

var analysisKeys = []string{"summary", "key_points", "sentiment", "importance", "topics", "insights"}

func (a *AIAnalysis) UnmarshalJSON(data []byte) error {
	type plain AIAnalysis
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range analysisKeys {
		delete(raw, k)
	}
	if len(raw) > 0 {
		p.Extra = raw
	}

	*a = AIAnalysis(p)
	return nil
}

func (a AIAnalysis) MarshalJSON() ([]byte, error) {
	type plain AIAnalysis
	known, err := json.Marshal(plain(a))
	if err != nil || len(a.Extra) == 0 {
		return known, err
	}

	merged := make(map[string]any, len(a.Extra)+len(analysisKeys))
	for k, v := range a.Extra {
		merged[k] = v
	}
	var fields map[string]any
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// ImportanceLabel is the display label for the item's importance score
func (c ContentItem) ImportanceLabel() string {
	if c.AIAnalysis == nil {
		return format.ImportanceLabel(nil)
	}
	return format.ImportanceLabel(c.AIAnalysis.Importance)
}

// DisplayTitle returns the title, falling back to the first line of the body
func (c ContentItem) DisplayTitle() string {
	if c.Title != nil && *c.Title != "" {
		return *c.Title
	}
	if c.Content != nil {
		line, _, _ := strings.Cut(strings.TrimSpace(*c.Content), "\n")
		return format.Truncate(line, 80)
	}
	return c.ContentID
}

// AuthorName returns the author's display name, falling back to the author ID
func (c ContentItem) AuthorName() string {
	if name := deref(c.Author); name != "" {
		return name
	}
	return deref(c.AuthorID)
}

// DefaultDeviceID derives a stable device ID from the platform and push token
func DefaultDeviceID(platform Platform, pushToken string) string {
	suffix := pushToken
	if len(suffix) > 12 {
		suffix = suffix[len(suffix)-12:]
	}
	return string(platform) + "-" + suffix
}

// DefaultSubscriptionName returns the name used when the user does not give one,
// e.g. "Twitter - golang"
func DefaultSubscriptionName(source Source, target string) string {
	return format.SourceLabel(string(source)) + " - " + target
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
