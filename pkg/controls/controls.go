// Package controls holds the user-facing overlay state: debug flag,
// selected creature and subject-count mode.
package controls

import (
	"fmt"
	"sync"

	"github.com/teslashibe/go-creatures/pkg/creature"
	"github.com/teslashibe/go-creatures/pkg/estimator"
	"github.com/teslashibe/go-creatures/pkg/pose"
)

// Estimator is the part of the lifecycle the controls drive.
type Estimator interface {
	RequestMode(mode pose.Mode) error
	Retry() error
	Status() estimator.Status
}

// State is a snapshot for the dashboard.
type State struct {
	Debug     bool             `json:"debug"`
	Creature  string           `json:"creature"`
	Creatures []string         `json:"creatures"`
	Mode      pose.Mode        `json:"mode"`
	Status    string           `json:"status"`
	Estimator estimator.Status `json:"estimator"`
}

// Controls is safe for concurrent use. It implements the scheduler's
// Selection.
type Controls struct {
	mu       sync.RWMutex
	debug    bool
	creature string

	creatures *creature.Registry
	estimator Estimator

	onChange func(State)
}

// New creates controls with the registry's default creature selected.
func New(creatures *creature.Registry, est Estimator) *Controls {
	return &Controls{
		creature:  creatures.Default(),
		creatures: creatures,
		estimator: est,
	}
}

// OnChange registers a callback invoked after every user change.
func (c *Controls) OnChange(fn func(State)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Debug reports whether the debug overlay is on.
func (c *Controls) Debug() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.debug
}

// SetDebug turns the debug overlay on or off.
func (c *Controls) SetDebug(on bool) {
	c.mu.Lock()
	c.debug = on
	c.mu.Unlock()
	c.notify()
}

// ToggleDebug flips the debug overlay and returns the new value.
func (c *Controls) ToggleDebug() bool {
	c.mu.Lock()
	c.debug = !c.debug
	on := c.debug
	c.mu.Unlock()
	c.notify()
	return on
}

// Creature returns the selected creature name.
func (c *Controls) Creature() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creature
}

// SetCreature selects a registered creature.
func (c *Controls) SetCreature(name string) error {
	if _, err := c.creatures.Get(name); err != nil {
		return err
	}
	c.mu.Lock()
	c.creature = name
	c.mu.Unlock()
	c.notify()
	return nil
}

// NextCreature selects the creature after the current one, wrapping
// around, and returns its name.
func (c *Controls) NextCreature() string {
	c.mu.Lock()
	c.creature = c.creatures.Next(c.creature)
	name := c.creature
	c.mu.Unlock()
	c.notify()
	return name
}

// Mode returns the latest requested subject-count mode.
func (c *Controls) Mode() pose.Mode {
	return c.estimator.Status().RequestedMode
}

// SetMode asks the estimator for mode.
func (c *Controls) SetMode(mode pose.Mode) error {
	if err := c.estimator.RequestMode(mode); err != nil {
		return fmt.Errorf("set mode %s: %w", mode, err)
	}
	c.notify()
	return nil
}

// ToggleMode switches between single and multi pose and returns the
// mode requested.
func (c *Controls) ToggleMode() (pose.Mode, error) {
	mode := c.Mode().Other()
	if err := c.SetMode(mode); err != nil {
		return mode, err
	}
	return mode, nil
}

// Retry asks the estimator to rebuild after a construction failure.
func (c *Controls) Retry() error {
	if err := c.estimator.Retry(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	c.notify()
	return nil
}

// State returns a snapshot of the controls and estimator status.
func (c *Controls) State() State {
	st := c.estimator.Status()

	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{
		Debug:     c.debug,
		Creature:  c.creature,
		Creatures: c.creatures.List(),
		Mode:      st.RequestedMode,
		Status:    st.Message,
		Estimator: st,
	}
}

func (c *Controls) notify() {
	c.mu.RLock()
	fn := c.onChange
	c.mu.RUnlock()
	if fn != nil {
		fn(c.State())
	}
}
