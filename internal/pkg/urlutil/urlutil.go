package urlutil

import (
	"net/url"
	"strings"
)

// Join resolves an API path against base, keeping any path prefix base carries.
// path must already be escaped. A query string embedded in path is merged with
// query; query wins on conflicts.
// Returns a URL like: {base}/{path}?{query}
func Join(base *url.URL, path string, query url.Values) string {
	u := *base

	rawQuery := ""
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path, rawQuery = path[:i], path[i+1:]
	}

	escaped := strings.TrimRight(base.EscapedPath(), "/") + "/" + strings.TrimLeft(path, "/")
	if unescaped, err := url.PathUnescape(escaped); err == nil {
		u.Path, u.RawPath = unescaped, escaped
	} else {
		u.Path, u.RawPath = escaped, ""
	}

	merged, _ := url.ParseQuery(rawQuery)
	for k, vs := range query {
		merged[k] = vs
	}
	u.RawQuery = merged.Encode()
	u.Fragment = ""

	return u.String()
}

// AuthorProfileURL builds the public profile URL for an author on a content source.
// Returns "" for sources without per-author pages.
func AuthorProfileURL(source, authorID string) string {
	if authorID == "" {
		return ""
	}
	switch source {
	case "twitter":
		return "https://x.com/" + url.PathEscape(strings.TrimPrefix(authorID, "@"))
	case "youtube":
		if strings.HasPrefix(authorID, "@") {
			return "https://www.youtube.com/" + url.PathEscape(authorID)
		}
		return "https://www.youtube.com/channel/" + url.PathEscape(authorID)
	default:
		return ""
	}
}
