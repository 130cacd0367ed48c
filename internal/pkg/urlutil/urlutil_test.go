package urlutil

import (
	"net/url"
	"testing"
)

func TestJoin(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		path  string
		query url.Values
		want  string
	}{
		{
			name: "root base",
			base: "https://api.test",
			path: "/api/stats",
			want: "https://api.test/api/stats",
		},
		{
			name: "base with trailing slash",
			base: "https://api.test/",
			path: "/api/stats",
			want: "https://api.test/api/stats",
		},
		{
			name: "base with path prefix",
			base: "https://gateway.test/infohunter",
			path: "api/health",
			want: "https://gateway.test/infohunter/api/health",
		},
		{
			name: "escaped segment is kept",
			base: "http://localhost:8000",
			path: "/api/config/a%20b%2Fc",
			want: "http://localhost:8000/api/config/a%20b%2Fc",
		},
		{
			name:  "query values are encoded",
			base:  "http://localhost:8000",
			path:  "/api/contents",
			query: url.Values{"page": {"2"}, "source": {"twitter"}},
			want:  "http://localhost:8000/api/contents?page=2&source=twitter",
		},
		{
			name:  "query merged with inline query",
			base:  "http://localhost:8000",
			path:  "/api/credits/records?limit=5",
			query: url.Values{"source": {"twitter"}},
			want:  "http://localhost:8000/api/credits/records?limit=5&source=twitter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, err := url.Parse(tt.base)
			if err != nil {
				t.Fatalf("url.Parse(%q) error = %v", tt.base, err)
			}
			got := Join(base, tt.path, tt.query)
			if got != tt.want {
				t.Errorf("Join() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthorProfileURL(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		authorID string
		want     string
	}{
		{name: "twitter handle", source: "twitter", authorID: "@golang", want: "https://x.com/golang"},
		{name: "twitter bare", source: "twitter", authorID: "golang", want: "https://x.com/golang"},
		{name: "youtube channel", source: "youtube", authorID: "UC123", want: "https://www.youtube.com/channel/UC123"},
		{name: "youtube handle", source: "youtube", authorID: "@golang", want: "https://www.youtube.com/@golang"},
		{name: "blog has no profile", source: "blog", authorID: "someone", want: ""},
		{name: "empty author", source: "twitter", authorID: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AuthorProfileURL(tt.source, tt.authorID); got != tt.want {
				t.Errorf("AuthorProfileURL() = %v, want %v", got, tt.want)
			}
		})
	}
}
