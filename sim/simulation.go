/*
Copyright © 2025 the FungiSim authors.
This file is part of FungiSim.

FungiSim is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

FungiSim is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with FungiSim.  If not, see <http://www.gnu.org/licenses/>.
*/

package sim

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Module is one field or population in the simulation. Modules are
// advanced strictly in registration order within a tick; a module may
// read state written by modules before it in the same tick. Each
// module must serialize its own state for snapshots.
type Module interface {
	// Name identifies the module; it keys snapshots and must be
	// unique within a simulation.
	Name() string

	// Initialize prepares the module's state before the first tick.
	Initialize(s *State) error

	// Advance advances the module's state by a single time step.
	// s.Time is the new time; previousTime the time before the tick.
	Advance(s *State, previousTime float64) error

	// MarshalBinary serializes the module state into a byte array.
	MarshalBinary() ([]byte, error)

	// UnmarshalBinary initializes the module state from a byte array.
	UnmarshalBinary([]byte) error
}

// Simulation drives registered modules through the per-tick pipeline.
// Execution is single-threaded and synchronous: the fixed module order
// within a tick is deliberate coupling, not incidental.
type Simulation struct {
	State       *State
	modules     []Module
	byName      map[string]Module
	initialized bool
}

// New returns a simulation over the given state with no modules.
func New(state *State) *Simulation {
	return &Simulation{State: state, byName: make(map[string]Module)}
}

// Register appends m to the per-tick pipeline. Registration order is
// execution order.
func (s *Simulation) Register(m Module) error {
	if _, ok := s.byName[m.Name()]; ok {
		return fmt.Errorf("sim: duplicate module %q", m.Name())
	}
	s.byName[m.Name()] = m
	s.modules = append(s.modules, m)
	return nil
}

// Module returns the registered module with the given name, or nil.
func (s *Simulation) Module(name string) Module { return s.byName[name] }

// Initialize runs every module's Initialize hook in registration
// order.
func (s *Simulation) Initialize() error {
	for _, m := range s.modules {
		if err := m.Initialize(s.State); err != nil {
			return fmt.Errorf("sim: initializing %s: %w", m.Name(), err)
		}
	}
	s.initialized = true
	return nil
}

// Tick advances the simulation clock by one step and every module with
// it. The first module error aborts the tick and the run: module-level
// failures are hard stops, not retried.
func (s *Simulation) Tick() error {
	previous := s.State.Time
	s.State.Time += s.State.Step
	for _, m := range s.modules {
		if err := m.Advance(s.State, previous); err != nil {
			return fmt.Errorf("sim: advancing %s at t=%g: %w", m.Name(), s.State.Time, err)
		}
	}
	return nil
}

// RunUntil ticks until the simulation clock reaches target (minutes).
// If onTick is non-nil it runs after every tick; an error from it also
// aborts the run.
func (s *Simulation) RunUntil(target float64, onTick func(*Simulation) error) error {
	for s.State.Time < target {
		if err := s.Tick(); err != nil {
			return err
		}
		if onTick != nil {
			if err := onTick(s); err != nil {
				return err
			}
		}
	}
	log.WithFields(log.Fields{"time": s.State.Time, "modules": len(s.modules)}).
		Info("simulation finished")
	return nil
}
