// Package display describes monitor geometry and reports the controlled display state.
package display

// Monitor describes a display and its bounds on the virtual desktop.
type Monitor struct {
	Index   int
	X       int
	Y       int
	W       int
	H       int
	Primary bool
}

// NaturalSize returns the monitor size at rotation 0 given its current rotation.
func (m Monitor) NaturalSize(rotation int) (int, int) {
	if rotation%2 != 0 {
		return m.H, m.W
	}
	return m.W, m.H
}

// Select returns the monitor matching the 1-based index, or the primary monitor when idx <= 0.
func Select(list []Monitor, idx int) (Monitor, bool) {
	for _, m := range list {
		if idx > 0 && m.Index == idx {
			return m, true
		}
		if idx <= 0 && m.Primary {
			return m, true
		}
	}
	if idx <= 0 && len(list) > 0 {
		return list[0], true
	}
	return Monitor{}, false
}
