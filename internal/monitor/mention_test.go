package monitor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectMention(t *testing.T) {
	t.Run("case insensitive match", func(t *testing.T) {
		m := DetectMention("We recommend NOTION for team wikis", "notion")
		require.True(t, m.Found)
		assert.Equal(t, 13, m.Index)
		assert.Contains(t, m.Context, "NOTION")
	})

	t.Run("no match", func(t *testing.T) {
		m := DetectMention("Slack and Teams dominate this space", "Notion")
		assert.False(t, m.Found)
		assert.Empty(t, m.Context)
	})

	t.Run("empty text", func(t *testing.T) {
		assert.False(t, DetectMention("", "Notion").Found)
	})

	t.Run("empty brand", func(t *testing.T) {
		assert.False(t, DetectMention("some answer text", "").Found)
		assert.False(t, DetectMention("some answer text", "   ").Found)
	})

	t.Run("first occurrence wins", func(t *testing.T) {
		text := "Notion is great. Many teams pick Notion twice."
		m := DetectMention(text, "Notion")
		require.True(t, m.Found)
		assert.Equal(t, 0, m.Index)
	})

	t.Run("context clamped at start", func(t *testing.T) {
		m := DetectMention("Acme wins here", "Acme")
		require.True(t, m.Found)
		assert.Equal(t, "Acme wins here", m.Context)
	})

	t.Run("context clamped at end", func(t *testing.T) {
		text := strings.Repeat("x", 300) + " Acme"
		m := DetectMention(text, "Acme")
		require.True(t, m.Found)
		assert.True(t, strings.HasSuffix(m.Context, "Acme"))
		// 100 before + the brand itself
		assert.Len(t, m.Context, 100+len("Acme"))
	})

	t.Run("context window radius", func(t *testing.T) {
		text := strings.Repeat("a", 500) + "Acme" + strings.Repeat("b", 500)
		m := DetectMention(text, "Acme")
		require.True(t, m.Found)
		assert.Len(t, m.Context, 100+len("Acme")+100)
		assert.Contains(t, m.Context, "Acme")
	})

	t.Run("multibyte case pairs keep the index aligned", func(t *testing.T) {
		// 'İ' lowercases to plain 'i' and loses a byte, shifting every
		// offset after it in the lowered text.
		text := "İzmir İzmir İzmir teams often recommend Acme Notes for planning"
		m := DetectMention(text, "acme notes")
		require.True(t, m.Found)
		assert.Equal(t, strings.Index(text, "Acme Notes"), m.Index)
		assert.Contains(t, m.Context, "Acme Notes")
	})

	t.Run("brand with surrounding whitespace", func(t *testing.T) {
		m := DetectMention("try Acme today", "  Acme  ")
		require.True(t, m.Found)
		assert.Equal(t, 4, m.Index)
	})
}
