package airports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearbyCapsAlternates(t *testing.T) {
	alts := Nearby("lhr")
	assert.Equal(t, []string{"LGW", "STN", "LTN"}, alts)
	assert.LessOrEqual(t, len(Nearby("LAX")), MaxAlternates)
	assert.Empty(t, Nearby("XXX"))
}

func TestNearbyReturnsCopy(t *testing.T) {
	alts := Nearby("JFK")
	alts[0] = "ZZZ"
	assert.Equal(t, "EWR", Nearby("JFK")[0])
}

func TestIsInternational(t *testing.T) {
	assert.True(t, IsInternational("LHR", "CDG"))
	assert.False(t, IsInternational("JFK", "LAX"))
	assert.True(t, IsInternational("JFK", "QQQ"))
}

func TestParseTimeWithOffset(t *testing.T) {
	ts, err := ParseTimeWithOffset("2024-06-15T08:30:00+01:00", "")
	require.NoError(t, err)
	assert.Equal(t, 7, ts.UTC().Hour())

	local, err := ParseTimeWithOffset("2024-06-15T08:30:00", "CDG")
	require.NoError(t, err)
	assert.Equal(t, 6, local.UTC().Hour())

	_, err = ParseTimeWithOffset("tomorrow", "CDG")
	assert.Error(t, err)
}

func TestConvertToTimezone(t *testing.T) {
	ts := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 21, ConvertToTimezone(ts, "NRT").Hour())
	assert.Equal(t, 12, ConvertToTimezone(ts, "XXX").Hour())
}
