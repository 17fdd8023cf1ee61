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

package fungisimutil

import (
	"bytes"
	"testing"

	"github.com/fungisim/fungisim/modules"
	"github.com/fungisim/fungisim/sim"
)

func loadTestConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadConfig("testdata/test_config.toml")
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestLoadConfig(t *testing.T) {
	cfg := loadTestConfig(t)
	if cfg.Grid.Nx != 4 || cfg.Grid.Dz != 10 {
		t.Errorf("grid = %+v", cfg.Grid)
	}
	if cfg.Run.Step != 2 || cfg.Run.Duration != 10 || cfg.Run.Seed != 7 {
		t.Errorf("run = %+v", cfg.Run)
	}
	if len(cfg.Geometry.Layers) != 3 {
		t.Fatalf("layers = %d; want 3", len(cfg.Geometry.Layers))
	}
	if cfg.Geometry.Layers[1].Tissue != "epithelium" {
		t.Errorf("layer 1 = %+v", cfg.Geometry.Layers[1])
	}
	p := cfg.params("macrophage")
	if got := p.int("init_num"); got != 10 {
		t.Errorf("macrophage.init_num = %d; want 10", got)
	}
	if got := p.float("drift_bias"); got != 0.5 {
		t.Errorf("macrophage.drift_bias = %g; want 0.5", got)
	}
	if p.err != nil {
		t.Fatal(p.err)
	}
	// Missing keys read as zero without error.
	if got := p.float("no_such_key"); got != 0 || p.err != nil {
		t.Errorf("missing key: %g, %v", got, p.err)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	if _, err := LoadConfig("testdata/does_not_exist.toml"); err == nil {
		t.Error("want error for missing file")
	}
}

func TestOverride(t *testing.T) {
	cfg := loadTestConfig(t)
	if err := cfg.Override("macrophage.recruit_rate=3.5"); err != nil {
		t.Fatal(err)
	}
	p := cfg.params("macrophage")
	if got := p.float("recruit_rate"); got != 3.5 {
		t.Errorf("recruit_rate = %g; want 3.5", got)
	}
	if p.err != nil {
		t.Fatal(p.err)
	}

	if err := cfg.Override("no-dots"); err == nil {
		t.Error("want error for malformed override")
	}
	if err := cfg.Override("a.b.c"); err == nil {
		t.Error("want error for override without value")
	}

	// A non-numeric override surfaces as a typed conversion error.
	if err := cfg.Override("macrophage.recruit_rate=lots"); err != nil {
		t.Fatal(err)
	}
	p = cfg.params("macrophage")
	p.float("recruit_rate")
	if p.err == nil {
		t.Error("want conversion error for non-numeric value")
	}
}

func TestBuildGeometry(t *testing.T) {
	cfg := loadTestConfig(t)
	s, err := cfg.BuildSimulation()
	if err != nil {
		t.Fatal(err)
	}
	geo := s.State.Geo
	g := s.State.Grid
	counts := make(map[sim.TissueType]int)
	for _, tt := range geo.Tissue {
		counts[tt]++
	}
	perLayer := g.Nx * g.Ny
	if counts[sim.Blood] != perLayer {
		t.Errorf("blood voxels = %d; want %d", counts[sim.Blood], perLayer)
	}
	if counts[sim.Epithelium] != 2*perLayer {
		t.Errorf("epithelium voxels = %d; want %d", counts[sim.Epithelium], 2*perLayer)
	}
	if counts[sim.Surfactant] != perLayer {
		t.Errorf("surfactant voxels = %d; want %d", counts[sim.Surfactant], perLayer)
	}
	if counts[sim.Air] != 0 {
		t.Errorf("air voxels = %d; want 0", counts[sim.Air])
	}
}

func TestBuildGeometryBadLayer(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.Geometry.Layers[0].Tissue = "bone"
	if _, err := cfg.BuildSimulation(); err == nil {
		t.Error("want error for unknown tissue")
	}

	cfg = loadTestConfig(t)
	cfg.Geometry.Layers[0].To = 99
	if _, err := cfg.BuildSimulation(); err == nil {
		t.Error("want error for out-of-range layer")
	}
}

func TestEndToEndRun(t *testing.T) {
	cfg := loadTestConfig(t)
	s, err := cfg.BuildSimulation()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Initialize(); err != nil {
		t.Fatal(err)
	}

	fungus := s.Module("afumigatus").(*modules.FungusModule)
	if got, want := fungus.Cells.Len(), 5; got != want {
		t.Fatalf("seeded %d conidia; want %d", got, want)
	}
	mac := s.Module("macrophage").(*modules.MacrophageModule)
	if got, want := mac.Cells.Len(), 10; got != want {
		t.Fatalf("seeded %d macrophages; want %d", got, want)
	}

	if err := s.RunUntil(cfg.Run.Duration, nil); err != nil {
		t.Fatal(err)
	}
	if s.State.Time != cfg.Run.Duration {
		t.Errorf("time = %g; want %g", s.State.Time, cfg.Run.Duration)
	}

	// Fields must stay nonnegative through a full run.
	iron := s.Module("iron").(*modules.IronModule)
	for i, v := range iron.Grid.Elements {
		if v < 0 {
			t.Errorf("iron[%d] = %g", i, v)
		}
	}

	// Snapshot the finished run and restore it into a fresh build.
	snap, err := s.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := sim.WriteSnapshot(&buf, snap); err != nil {
		t.Fatal(err)
	}
	read, err := sim.ReadSnapshot(&buf)
	if err != nil {
		t.Fatal(err)
	}

	s2, err := cfg.BuildSimulation()
	if err != nil {
		t.Fatal(err)
	}
	if err := s2.Initialize(); err != nil {
		t.Fatal(err)
	}
	if err := s2.Restore(read); err != nil {
		t.Fatal(err)
	}
	if s2.State.Time != s.State.Time {
		t.Errorf("restored time = %g; want %g", s2.State.Time, s.State.Time)
	}
	iron2 := s2.Module("iron").(*modules.IronModule)
	for i := range iron.Grid.Elements {
		if iron2.Grid.Elements[i] != iron.Grid.Elements[i] {
			t.Fatalf("iron[%d] = %g after restore; want %g", i, iron2.Grid.Elements[i], iron.Grid.Elements[i])
		}
	}
	fungus2 := s2.Module("afumigatus").(*modules.FungusModule)
	if fungus2.Cells.Len() != fungus.Cells.Len() {
		t.Errorf("restored %d fungal cells; want %d", fungus2.Cells.Len(), fungus.Cells.Len())
	}
}
