package guid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewProducesUniqueNonEmptyValues(t *testing.T) {
	a := New()
	b := New()

	require.NotEqual(t, a, b)
	require.False(t, a.IsEmpty())
	require.False(t, b.IsEmpty())
}

func TestParseRoundTripsString(t *testing.T) {
	g := New()

	parsed, err := Parse(g.String())
	require.NoError(t, err)
	require.Equal(t, g, parsed)
}

func TestParseRejectsMalformedInput(t *testing.T) {
	_, err := Parse("not-a-guid")
	require.Error(t, err)
}

func TestEmptyIsEmpty(t *testing.T) {
	require.True(t, Empty.IsEmpty())
	require.Equal(t, "00000000-0000-0000-0000-000000000000", Empty.String())
}
