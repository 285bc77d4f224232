package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func TestFrontKey(t *testing.T) {
	key, err := FrontKey(nil)
	require.NoError(t, err)
	require.Equal(t, int64(1000), key)

	key, err = FrontKey(ptr(1000))
	require.NoError(t, err)
	require.Equal(t, int64(0), key)

	key, err = FrontKey(ptr(-500))
	require.NoError(t, err)
	require.Equal(t, int64(-1500), key)

	_, err = FrontKey(ptr(math.MinInt64 + 10))
	require.ErrorIs(t, err, ErrKeySpaceExhausted)
}

func TestEndKey(t *testing.T) {
	key, err := EndKey(nil)
	require.NoError(t, err)
	require.Equal(t, int64(100), key)

	key, err = EndKey(ptr(5000))
	require.NoError(t, err)
	require.Equal(t, int64(6000), key)

	_, err = EndKey(ptr(math.MaxInt64 - 10))
	require.ErrorIs(t, err, ErrKeySpaceExhausted)
}

func TestReindexKey(t *testing.T) {
	require.Equal(t, int64(1001), ReindexKey(0))
	require.Equal(t, int64(2001), ReindexKey(1))
	require.Equal(t, int64(1000001), ReindexKey(999))
}

func TestMidpoint_FloorsLikeIntegerDivision(t *testing.T) {
	cases := []struct {
		a, b, want int64
	}{
		{1000, 2000, 1500},
		{2000, 1000, 1500},
		{1, 4, 2},
		{-3, 0, -2},
		{-5, 2, -2},
		{-4, -1, -3},
		{math.MaxInt64 - 2, math.MaxInt64, math.MaxInt64 - 1},
		{math.MinInt64, 0, math.MinInt64 / 2},
		{math.MinInt64, math.MaxInt64, -1},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Midpoint(tc.a, tc.b), "midpoint(%d, %d)", tc.a, tc.b)
	}
}

func TestAdjacent(t *testing.T) {
	require.True(t, Adjacent(1000, 1001))
	require.True(t, Adjacent(1001, 1000))
	require.True(t, Adjacent(7, 7))
	require.True(t, Adjacent(-1, 0))
	require.False(t, Adjacent(1000, 1002))
	require.False(t, Adjacent(math.MinInt64, math.MaxInt64))
	require.False(t, Adjacent(math.MinInt64, 0))
}
