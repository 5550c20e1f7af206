package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadValidatesEmbeddedCatalog(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)
	require.Equal(t, 1, cat.Version())
}

func TestRecognizedPairs(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)

	require.True(t, cat.Recognized("story", "story start"))
	require.True(t, cat.Recognized("moderation", "sanction apply"))
	require.True(t, cat.Recognized("admin", "export sheet"))

	require.False(t, cat.Recognized("story", "sanction apply"))
	require.False(t, cat.Recognized("story", "story teleport"))
	require.False(t, cat.Recognized("payment", "charge"))
}
