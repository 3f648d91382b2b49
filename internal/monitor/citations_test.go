package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geowatch/geowatch/internal/domain"
)

func TestIsExcludedDomain(t *testing.T) {
	assert.True(t, isExcludedDomain("chatgpt.com"))
	assert.True(t, isExcludedDomain("openai.com"))
	assert.True(t, isExcludedDomain("cdn.oaiusercontent.com"))
	assert.True(t, isExcludedDomain("tenant.auth0.com"))
	assert.True(t, isExcludedDomain("accounts.google.com"))

	assert.False(t, isExcludedDomain("example.com"))
	assert.False(t, isExcludedDomain("google.com"))
	assert.False(t, isExcludedDomain("notchatgpt.com"))
}

func TestStripTrackingParams(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips utm params",
			in:   "https://example.com/post?utm_source=chatgpt.com&utm_medium=referral",
			want: "https://example.com/post",
		},
		{
			name: "keeps meaningful params",
			in:   "https://example.com/search?q=acme&utm_campaign=x",
			want: "https://example.com/search?q=acme",
		},
		{
			name: "strips fragment",
			in:   "https://example.com/docs#section-2",
			want: "https://example.com/docs",
		},
		{
			name: "strips click ids",
			in:   "https://example.com/?gclid=abc&fbclid=def",
			want: "https://example.com/",
		},
		{
			name: "clean url unchanged",
			in:   "https://example.com/a/b",
			want: "https://example.com/a/b",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripTrackingParams(tt.in))
		})
	}
}

func TestDedupeLinks(t *testing.T) {
	links := []domain.Link{
		{URL: "https://a.com/1", Domain: "a.com"},
		{URL: "https://a.com/2", Domain: "a.com"},
		{URL: "https://b.com/1", Domain: "b.com"},
		{URL: "https://a.com/1", Domain: "a.com"},
	}

	t.Run("by domain", func(t *testing.T) {
		out := dedupeLinksByDomain(links)
		require.Len(t, out, 2)
		assert.Equal(t, "https://a.com/1", out[0].URL)
		assert.Equal(t, "https://b.com/1", out[1].URL)
	})

	t.Run("by url", func(t *testing.T) {
		out := dedupeLinksByURL(links)
		require.Len(t, out, 3)
	})

	t.Run("skips empties", func(t *testing.T) {
		assert.Empty(t, dedupeLinksByDomain([]domain.Link{{URL: "https://x", Domain: ""}}))
		assert.Empty(t, dedupeLinksByURL([]domain.Link{{URL: "", Domain: "x.com"}}))
	})
}

func TestFaviconTargetDomain(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "domain param",
			src:  "https://www.google.com/s2/favicons?domain=www.example.com&sz=32",
			want: "example.com",
		},
		{
			name: "url param",
			src:  "https://t0.gstatic.com/faviconV2?url=https%3A%2F%2Fdocs.example.com%2Fguide",
			want: "docs.example.com",
		},
		{
			name: "no target",
			src:  "https://example.com/favicon.ico",
			want: "",
		},
		{
			name: "garbage",
			src:  "::::",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, faviconTargetDomain(tt.src))
		})
	}
}

func TestNormalizeSourceLink(t *testing.T) {
	t.Run("cleans and accepts external url", func(t *testing.T) {
		link, ok := normalizeSourceLink("https://www.example.com/post?utm_source=chatgpt.com")
		require.True(t, ok)
		assert.Equal(t, "https://www.example.com/post", link.URL)
		assert.Equal(t, "example.com", link.Domain)
	})

	t.Run("rejects platform url", func(t *testing.T) {
		_, ok := normalizeSourceLink("https://chatgpt.com/c/abc123")
		assert.False(t, ok)
	})

	t.Run("rejects auth provider", func(t *testing.T) {
		_, ok := normalizeSourceLink("https://accounts.google.com/signin")
		assert.False(t, ok)
	})
}

func TestGroupCitations(t *testing.T) {
	links := []domain.Link{
		{URL: "https://a.com/1", Domain: "a.com"},
		{URL: "https://b.com/1", Domain: "b.com"},
		{URL: "https://a.com/2", Domain: "a.com"},
	}

	citations := groupCitations(links)
	require.Len(t, citations, 2)
	assert.Equal(t, "a.com", citations[0].Text)
	assert.Equal(t, []string{"https://a.com/1", "https://a.com/2"}, citations[0].URLs)
	assert.Equal(t, "b.com", citations[1].Text)

	assert.Empty(t, groupCitations(nil))
}
