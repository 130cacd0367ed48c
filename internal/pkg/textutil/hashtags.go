package textutil

import (
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// hashtagRegex matches #tag, #my-tag, #tag_name, #標籤. A tag must start with a
// letter and must not follow a word character, '<', '&' or '/', which skips
// channel mentions, HTML entities and URL fragments.
var hashtagRegex = regexp.MustCompile(`(?:^|[^\w<&/])#(\p{L}[\p{L}\p{N}_-]*)`)

// wordRegex splits URL path segments into candidate topic words
var wordRegex = regexp.MustCompile(`\p{L}[\p{L}\p{N}]+`)

// ExtractHashtags returns the sorted, lowercased, unique hashtags in text
func ExtractHashtags(text string) []string {
	seen := make(map[string]struct{})
	for _, m := range hashtagRegex.FindAllStringSubmatch(text, -1) {
		seen[strings.ToLower(m[1])] = struct{}{}
	}
	return sortedKeys(seen)
}

// FormatHashtags renders tags as "#a #b"
func FormatHashtags(tags []string) string {
	var b strings.Builder
	for i, t := range tags {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte('#')
		b.WriteString(t)
	}
	return b.String()
}

// URLTopics derives topic tags from a link: hashtags in its decoded query
// plus words of three or more letters in its path. Hosts are ignored.
func URLTopics(raw string) []string {
	u, err := url.Parse(raw)
	if err != nil {
		return []string{}
	}

	seen := make(map[string]struct{})
	if q, err := url.QueryUnescape(u.RawQuery); err == nil {
		for _, tag := range ExtractHashtags(" " + q) {
			seen[tag] = struct{}{}
		}
	}
	for _, w := range wordRegex.FindAllString(u.Path, -1) {
		if len([]rune(w)) >= 3 {
			seen[strings.ToLower(w)] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
