package textutil

import (
	"reflect"
	"testing"
)

func TestExtractHashtags(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "single hashtag",
			text: "New release of #golang",
			want: []string{"golang"},
		},
		{
			name: "multiple hashtags sorted",
			text: "Thread on #rust vs #go for #ai agents",
			want: []string{"ai", "go", "rust"},
		},
		{
			name: "hyphens and underscores",
			text: "#open-source and #machine_Learning",
			want: []string{"machine_learning", "open-source"},
		},
		{
			name: "duplicates are folded",
			text: "#LLM #llm #Llm",
			want: []string{"llm"},
		},
		{
			name: "non-latin tags",
			text: "今日 #人工智能 新闻",
			want: []string{"人工智能"},
		},
		{
			name: "numeric tags are ignored",
			text: "fixed in #1234",
			want: []string{},
		},
		{
			name: "url fragments are ignored",
			text: "see https://example.com/post#section and #real",
			want: []string{"real"},
		},
		{
			name: "html entities are ignored",
			text: "it&#39;s #fine",
			want: []string{"fine"},
		},
		{
			name: "markdown heading is not a tag",
			text: "# Heading\n\nbody with #tag1",
			want: []string{"tag1"},
		},
		{
			name: "empty string",
			text: "",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractHashtags(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractHashtags(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestFormatHashtags(t *testing.T) {
	if got := FormatHashtags([]string{"ai", "go"}); got != "#ai #go" {
		t.Errorf("FormatHashtags() = %q", got)
	}
	if got := FormatHashtags(nil); got != "" {
		t.Errorf("FormatHashtags(nil) = %q, want empty", got)
	}
}

func TestURLTopics(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "path words",
			raw:  "https://blog.example.com/2024/golang-generics-explained",
			want: []string{"explained", "generics", "golang"},
		},
		{
			name: "query hashtags",
			raw:  "https://x.com/search?q=%23OpenAI%20%23gpt",
			want: []string{"gpt", "openai", "search"},
		},
		{
			name: "short words dropped",
			raw:  "https://youtube.com/watch?v=abc",
			want: []string{"watch"},
		},
		{
			name: "invalid url",
			raw:  "http://[::1",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := URLTopics(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("URLTopics(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
