// Package testutil provides fakes and frame builders shared by package tests.
package testutil

import (
	"maps"
	"sync"

	"github.com/frudas24/mirroragent/internal/device"
)

// MotionCall records a single injected motion event.
type MotionCall struct {
	Action    int32
	DisplayID int32
	Mode      device.InjectMode
	Event     device.MotionEvent
	Pointers  []device.PointerCoords
}

// KeyCall records a single injected key event.
type KeyCall struct {
	Event device.KeyEvent
	Mode  device.InjectMode
}

// FakeInjector implements device.InputSink and records calls for tests.
type FakeInjector struct {
	mu        sync.Mutex
	Motions   []MotionCall
	Keys      []KeyCall
	MotionErr error
	KeyErr    error
}

// Ensure FakeInjector implements the interface.
var _ device.InputSink = (*FakeInjector)(nil)

// InjectMotion records a deep copy of the motion event.
func (f *FakeInjector) InjectMotion(event *device.MotionEvent, mode device.InjectMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	pointers := make([]device.PointerCoords, len(event.Pointers))
	for i, p := range event.Pointers {
		pointers[i] = p
		pointers[i].Axes = maps.Clone(p.Axes)
	}
	snapshot := *event
	snapshot.Pointers = pointers
	f.Motions = append(f.Motions, MotionCall{
		Action:    event.Action,
		DisplayID: event.DisplayID,
		Mode:      mode,
		Event:     snapshot,
		Pointers:  pointers,
	})
	return f.MotionErr
}

// InjectKey records a key event.
func (f *FakeInjector) InjectKey(event device.KeyEvent, mode device.InjectMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Keys = append(f.Keys, KeyCall{Event: event, Mode: mode})
	return f.KeyErr
}

// MotionCalls returns a copy of the recorded motion events.
func (f *FakeInjector) MotionCalls() []MotionCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]MotionCall(nil), f.Motions...)
}

// KeyCalls returns a copy of the recorded key events.
func (f *FakeInjector) KeyCalls() []KeyCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]KeyCall(nil), f.Keys...)
}
