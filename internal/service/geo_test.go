package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeoBucket(t *testing.T) {
	require.Equal(t, "51.50,-0.13", GeoBucket(51.5009, -0.1338, 2))

	// deterministic
	require.Equal(t, GeoBucket(51.5009, -0.1338, 2), GeoBucket(51.5009, -0.1338, 2))

	// coordinates inside the same rounding bin share a key
	require.Equal(t, GeoBucket(51.5001, -0.1301, 2), GeoBucket(51.4999, -0.1299, 2))

	// different bins differ
	require.NotEqual(t, GeoBucket(51.50, -0.13, 2), GeoBucket(51.60, -0.13, 2))
}

func TestGeoBucketNonFinite(t *testing.T) {
	require.Empty(t, GeoBucket(math.NaN(), 0, 2))
	require.Empty(t, GeoBucket(0, math.Inf(1), 2))
	require.Empty(t, GeoBucket(math.Inf(-1), math.NaN(), 2))
}

func TestGeoBucketPrecisionPrefix(t *testing.T) {
	// a coarser bucket is a prefix of the finer one for the same point,
	// which is what the community-lane prefix filter relies on
	fine := GeoBucket(51.5009, 0.1338, 3)
	require.Equal(t, "51.501,0.134", fine)
	require.Equal(t, "52,0", GeoBucket(51.5009, 0.1338, 0))
}
