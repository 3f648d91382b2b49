package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandQueries(t *testing.T) {
	t.Run("expands all templates", func(t *testing.T) {
		queries := ExpandQueries("project management tool")
		require.Len(t, queries, 5)
		assert.Equal(t, []string{
			"what is project management tool",
			"project management tool vs alternatives",
			"project management tool features and benefits",
			"best project management tool",
			"project management tool reviews",
		}, queries)
	})

	t.Run("trims whitespace", func(t *testing.T) {
		queries := ExpandQueries("  crm  ")
		require.Len(t, queries, 5)
		assert.Equal(t, "what is crm", queries[0])
	})

	t.Run("empty keyword yields nothing", func(t *testing.T) {
		assert.Nil(t, ExpandQueries(""))
		assert.Nil(t, ExpandQueries("   "))
	})

	t.Run("stable order across calls", func(t *testing.T) {
		assert.Equal(t, ExpandQueries("x"), ExpandQueries("x"))
	})
}
