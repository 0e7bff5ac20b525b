package display

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestSelect_ByIndex verifies a monitor is found by index.
func TestSelect_ByIndex(t *testing.T) {
	list := []Monitor{
		{Index: 1, W: 100, H: 100, Primary: true},
		{Index: 2, W: 200, H: 200},
	}
	m, ok := Select(list, 2)
	require.True(t, ok)
	require.Equal(t, 2, m.Index)

	_, ok = Select(list, 3)
	require.False(t, ok)
}

// TestSelect_Primary verifies index 0 picks the primary monitor.
func TestSelect_Primary(t *testing.T) {
	list := []Monitor{{Index: 1, W: 100}, {Index: 2, W: 200, Primary: true}}
	m, ok := Select(list, 0)
	require.True(t, ok)
	require.Equal(t, 2, m.Index)

	m, ok = Select([]Monitor{{Index: 1}}, 0)
	require.True(t, ok)
	require.Equal(t, 1, m.Index)
}

// TestQuery_DisplayInfo verifies natural size follows rotation.
func TestQuery_DisplayInfo(t *testing.T) {
	q := NewQuery(func() ([]Monitor, error) {
		return []Monitor{{Index: 1, W: 1920, H: 1080, Primary: true}}, nil
	}, 0, 0)

	info, err := q.DisplayInfo()
	require.NoError(t, err)
	require.Equal(t, 0, info.Rotation)
	require.Equal(t, int32(1920), info.NaturalWidth)
	require.Equal(t, int32(1080), info.NaturalHeight)

	q = NewQuery(func() ([]Monitor, error) {
		return []Monitor{{Index: 1, W: 1920, H: 1080, Primary: true}}, nil
	}, 0, -1)
	info, err = q.DisplayInfo()
	require.NoError(t, err)
	require.Equal(t, 3, info.Rotation)
	require.Equal(t, int32(1080), info.NaturalWidth)
	require.Equal(t, int32(1920), info.NaturalHeight)
}

// TestQuery_CachesMonitorList verifies enumeration happens at most once per TTL.
func TestQuery_CachesMonitorList(t *testing.T) {
	calls := 0
	now := time.Unix(0, 0)
	q := NewQuery(func() ([]Monitor, error) {
		calls++
		return []Monitor{{Index: 1, W: 10, H: 10}}, nil
	}, 1, 0)
	q.SetNowFunc(func() time.Time { return now })

	_, err := q.DisplayInfo()
	require.NoError(t, err)
	_, err = q.DisplayInfo()
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	now = now.Add(2 * monitorCacheTTL)
	_, err = q.DisplayInfo()
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

// TestQuery_Errors verifies listing failures and missing monitors surface.
func TestQuery_Errors(t *testing.T) {
	boom := errors.New("boom")
	q := NewQuery(func() ([]Monitor, error) { return nil, boom }, 0, 0)
	_, err := q.DisplayInfo()
	require.ErrorIs(t, err, boom)

	q = NewQuery(func() ([]Monitor, error) { return []Monitor{{Index: 1}}, nil }, 4, 0)
	_, err = q.DisplayInfo()
	require.Error(t, err)
}
