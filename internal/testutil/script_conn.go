// Package testutil provides fakes and frame builders shared by package tests.
package testutil

import (
	"bytes"
	"io"
	"net"
	"os"
	"sync"
	"time"
)

// Step is one scripted event on the read side of a ScriptConn.
type Step struct {
	// Data is delivered to readers, possibly across several Read calls.
	Data []byte
	// Timeout makes the read fail with os.ErrDeadlineExceeded when a deadline is armed.
	Timeout bool
	// Do runs before the step is delivered.
	Do func()
}

// ScriptConn is a deterministic connection that replays scripted reads and records writes.
// Once the script is exhausted reads return io.EOF.
type ScriptConn struct {
	mu        sync.Mutex
	steps     []Step
	pending   []byte
	deadline  time.Time
	closed    bool
	out       bytes.Buffer
	Deadlines []time.Time
}

// NewScriptConn returns a connection replaying steps.
func NewScriptConn(steps ...Step) *ScriptConn {
	return &ScriptConn{steps: steps}
}

// Read delivers scripted data, timeouts and hooks in order.
func (c *ScriptConn) Read(p []byte) (int, error) {
	for {
		c.mu.Lock()
		if len(c.pending) > 0 {
			n := copy(p, c.pending)
			c.pending = c.pending[n:]
			c.mu.Unlock()
			return n, nil
		}
		if c.closed {
			c.mu.Unlock()
			return 0, net.ErrClosed
		}
		if len(c.steps) == 0 {
			c.mu.Unlock()
			return 0, io.EOF
		}
		step := c.steps[0]
		c.steps = c.steps[1:]
		armed := !c.deadline.IsZero()
		c.mu.Unlock()

		if step.Do != nil {
			step.Do()
		}
		if step.Timeout {
			if armed {
				return 0, os.ErrDeadlineExceeded
			}
			continue
		}
		c.mu.Lock()
		c.pending = step.Data
		c.mu.Unlock()
	}
}

// Write records outbound bytes.
func (c *ScriptConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, net.ErrClosed
	}
	return c.out.Write(p)
}

// SetReadDeadline records and arms the read deadline.
func (c *ScriptConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = t
	c.Deadlines = append(c.Deadlines, t)
	return nil
}

// Close marks the connection closed.
func (c *ScriptConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Written returns a copy of everything written so far.
func (c *ScriptConn) Written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bytes.Clone(c.out.Bytes())
}
