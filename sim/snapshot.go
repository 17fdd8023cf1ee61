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
	"encoding/gob"
	"fmt"
	"io"
)

// Snapshot is the serializable per-tick image of the simulation:
// every module's state keyed by module name, plus the simulation time.
// Writing and re-reading a snapshot restores field arrays and agent
// tables exactly.
type Snapshot struct {
	Time    float64
	Modules map[string][]byte
}

// Snapshot captures the current state of every registered module.
func (s *Simulation) Snapshot() (*Snapshot, error) {
	snap := &Snapshot{
		Time:    s.State.Time,
		Modules: make(map[string][]byte, len(s.modules)),
	}
	for _, m := range s.modules {
		b, err := m.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("sim: snapshotting %s: %w", m.Name(), err)
		}
		snap.Modules[m.Name()] = b
	}
	return snap, nil
}

// Restore loads module state from a snapshot taken from an identically
// configured simulation. The simulation must have been Initialized
// first: restoring writes over grids and populations the Initialize
// hooks allocate. Modules present in the snapshot but not registered
// are an error; registered modules missing from the snapshot are left
// untouched.
func (s *Simulation) Restore(snap *Snapshot) error {
	if !s.initialized {
		return fmt.Errorf("sim: restore before Initialize")
	}
	for name, b := range snap.Modules {
		m, ok := s.byName[name]
		if !ok {
			return fmt.Errorf("sim: snapshot contains unregistered module %q", name)
		}
		if err := m.UnmarshalBinary(b); err != nil {
			return fmt.Errorf("sim: restoring %s: %w", name, err)
		}
	}
	s.State.Time = snap.Time
	return nil
}

// WriteSnapshot gob-encodes snap to w.
func WriteSnapshot(w io.Writer, snap *Snapshot) error {
	if err := gob.NewEncoder(w).Encode(snap); err != nil {
		return fmt.Errorf("sim: writing snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot decodes a snapshot written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	snap := new(Snapshot)
	if err := gob.NewDecoder(r).Decode(snap); err != nil {
		return nil, fmt.Errorf("sim: reading snapshot: %w", err)
	}
	return snap, nil
}
