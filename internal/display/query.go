// Package display describes monitor geometry and reports the controlled display state.
package display

import (
	"fmt"
	"sync"
	"time"

	"github.com/frudas24/mirroragent/internal/device"
)

// monitorCacheTTL bounds how long an enumerated monitor list is reused.
const monitorCacheTTL = time.Second

// Lister enumerates monitors.
type Lister func() ([]Monitor, error)

// Query implements device.DisplayQuery for one monitor.
// Motion events query it on every message, so the monitor list is cached briefly.
type Query struct {
	mu       sync.Mutex
	list     Lister
	index    int
	rotation int
	cached   Monitor
	cachedAt time.Time
	now      func() time.Time
}

// Ensure Query implements the interface.
var _ device.DisplayQuery = (*Query)(nil)

// NewQuery returns a query for the monitor at index (primary when <= 0).
// rotation is the fixed display rotation in quarter turns.
func NewQuery(list Lister, index, rotation int) *Query {
	return &Query{list: list, index: index, rotation: ((rotation % 4) + 4) % 4, now: time.Now}
}

// SetNowFunc overrides the clock used for cache expiry.
func (q *Query) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		q.now = fn
	}
}

// Monitor returns the selected monitor.
func (q *Query) Monitor() (Monitor, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.monitorLocked()
}

// DisplayInfo reports the rotation and natural size of the selected monitor.
func (q *Query) DisplayInfo() (device.DisplayInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	m, err := q.monitorLocked()
	if err != nil {
		return device.DisplayInfo{}, err
	}
	w, h := m.NaturalSize(q.rotation)
	return device.DisplayInfo{
		Rotation:      q.rotation,
		NaturalWidth:  int32(w),
		NaturalHeight: int32(h),
	}, nil
}

// monitorLocked returns the cached monitor or enumerates again once the cache expired.
func (q *Query) monitorLocked() (Monitor, error) {
	now := q.now()
	if !q.cachedAt.IsZero() && now.Sub(q.cachedAt) < monitorCacheTTL {
		return q.cached, nil
	}
	list, err := q.list()
	if err != nil {
		return Monitor{}, err
	}
	m, ok := Select(list, q.index)
	if !ok {
		return Monitor{}, fmt.Errorf("monitor %d not found", q.index)
	}
	q.cached = m
	q.cachedAt = now
	return m, nil
}
