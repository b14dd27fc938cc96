package ticks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestToTimeAtUnixEpoch(t *testing.T) {
	epoch, err := ParseEpoch("")
	require.NoError(t, err)
	require.Equal(t, UnixEpoch, "1970-01-01")

	got := ToTime(1_000_000_000, 1, 1_000_000_000, epoch)
	require.Equal(t, epoch.Add(time.Second), got)
}

func TestToTimeZeroDenominatorReturnsEpoch(t *testing.T) {
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got := ToTime(42, 1, 0, epoch)
	require.Equal(t, epoch, got)
}

func TestFromTimeInvertsToTime(t *testing.T) {
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	want := Tick(5_000)

	wall := ToTime(want, 1, 1000, epoch)
	got := FromTime(wall, 1, 1000, epoch)

	require.Equal(t, want, got)
}

func TestFromTimeZeroNumeratorReturnsZero(t *testing.T) {
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got := FromTime(epoch.Add(time.Hour), 0, 1000, epoch)
	require.Equal(t, Tick(0), got)
}

func TestParseEpochDefaultsToUnixEpoch(t *testing.T) {
	got, err := ParseEpoch("")
	require.NoError(t, err)
	require.Equal(t, time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestParseEpochAcceptsExplicitDate(t *testing.T) {
	got, err := ParseEpoch("2024-06-01")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestParseEpochRejectsGarbage(t *testing.T) {
	_, err := ParseEpoch("not a date at all!!")
	require.Error(t, err)
}
