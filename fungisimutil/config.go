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

// Package fungisimutil holds the configuration loading and command
// wiring for the fungisim executable.
package fungisimutil

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cast"

	"github.com/fungisim/fungisim/diffusion"
	"github.com/fungisim/fungisim/grid"
	"github.com/fungisim/fungisim/modules"
	"github.com/fungisim/fungisim/sim"
)

// Config is the TOML run configuration. Module parameters live in
// free-form tables under [modules.<name>] so that command-line
// overrides can address them by dotted key.
type Config struct {
	Grid struct {
		Nx, Ny, Nz int
		Dx, Dy, Dz float64
	}
	Geometry struct {
		// VoxelVolume is the volume of one voxel in liters.
		VoxelVolume float64 `toml:"voxel_volume"`

		// Layers assign tissue types to half-open z-slabs [From, To).
		// Voxels not covered by any layer default to air.
		Layers []struct {
			Tissue   string
			From, To int
		} `toml:"layer"`
	}
	Run struct {
		Step          float64 // minutes per tick
		Duration      float64 // minutes
		Seed          uint64
		Snapshot      string  // output path for the final state
		SnapshotEvery float64 `toml:"snapshot_every"` // minutes, 0 disables
		Series        string  // output path for the CSV time series
	}
	Molecules struct {
		TurnoverRate    float64 `toml:"turnover_rate"`
		RelCytBindUnitT float64 `toml:"rel_cyt_bind_unit_t"`
		Tolerance       float64
	}
	Modules map[string]map[string]interface{}
}

// LoadConfig reads and validates a TOML configuration file.
func LoadConfig(path string) (*Config, error) {
	cfg := new(Config)
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("loading configuration %s: %w", path, err)
	}
	if cfg.Run.Step <= 0 {
		return nil, fmt.Errorf("%s: run.step must be positive", path)
	}
	if cfg.Run.Duration <= 0 {
		return nil, fmt.Errorf("%s: run.duration must be positive", path)
	}
	return cfg, nil
}

// Override applies a dotted-key assignment such as
// "macrophage.recruit_rate=2" on top of the loaded configuration.
// Only module parameters can be overridden this way.
func (cfg *Config) Override(assignment string) error {
	kv := strings.SplitN(assignment, "=", 2)
	if len(kv) != 2 {
		return fmt.Errorf("override %q: want module.key=value", assignment)
	}
	mk := strings.SplitN(kv[0], ".", 2)
	if len(mk) != 2 {
		return fmt.Errorf("override %q: want module.key=value", assignment)
	}
	if cfg.Modules == nil {
		cfg.Modules = make(map[string]map[string]interface{})
	}
	if cfg.Modules[mk[0]] == nil {
		cfg.Modules[mk[0]] = make(map[string]interface{})
	}
	cfg.Modules[mk[0]][mk[1]] = kv[1]
	return nil
}

// params wraps one module's parameter table with typed, error-tracking
// accessors. The first conversion failure is retained and reported
// once.
type params struct {
	module string
	table  map[string]interface{}
	err    error
}

func (cfg *Config) params(module string) *params {
	return &params{module: module, table: cfg.Modules[module]}
}

func (p *params) float(key string) float64 {
	raw, ok := p.table[key]
	if !ok {
		return 0
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("modules.%s.%s: %w", p.module, key, err)
	}
	return v
}

func (p *params) int(key string) int {
	raw, ok := p.table[key]
	if !ok {
		return 0
	}
	v, err := cast.ToIntE(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("modules.%s.%s: %w", p.module, key, err)
	}
	return v
}

// buildGeometry realizes the layered tissue description on g.
func (cfg *Config) buildGeometry(g *grid.Grid) (*sim.Geometry, error) {
	tissue := make([]sim.TissueType, g.Len())
	for _, layer := range cfg.Geometry.Layers {
		t, err := sim.ParseTissue(layer.Tissue)
		if err != nil {
			return nil, err
		}
		if layer.From < 0 || layer.To > g.Nz || layer.From >= layer.To {
			return nil, fmt.Errorf("geometry layer %s: bad z range [%d, %d)", layer.Tissue, layer.From, layer.To)
		}
		for z := layer.From; z < layer.To; z++ {
			for y := 0; y < g.Ny; y++ {
				for x := 0; x < g.Nx; x++ {
					tissue[g.FlatIndex(grid.Voxel{X: x, Y: y, Z: z})] = t
				}
			}
		}
	}
	return sim.NewGeometry(g, tissue, cfg.Geometry.VoxelVolume)
}

// BuildSimulation assembles the grid, geometry, diffusion operators,
// and the full module set described by the configuration.
func (cfg *Config) BuildSimulation() (*sim.Simulation, error) {
	g, err := grid.NewUniform(cfg.Grid.Nx, cfg.Grid.Ny, cfg.Grid.Nz,
		cfg.Grid.Dx, cfg.Grid.Dy, cfg.Grid.Dz)
	if err != nil {
		return nil, err
	}
	geo, err := cfg.buildGeometry(g)
	if err != nil {
		return nil, err
	}
	state, err := sim.NewState(g, geo, cfg.Run.Step, cfg.Run.Seed)
	if err != nil {
		return nil, err
	}

	// Molecules diffuse through everything except open air.
	lap, err := diffusion.Laplacian(g, geo.MaskNot(sim.Air))
	if err != nil {
		return nil, err
	}

	shared := modules.Shared{
		TurnoverRate:    cfg.Molecules.TurnoverRate,
		RelCytBindUnitT: cfg.Molecules.RelCytBindUnitT,
		Tolerance:       cfg.Molecules.Tolerance,
	}

	fp := cfg.params("afumigatus")
	fungus := modules.NewFungus(modules.FungusParams{
		InitNum:       fp.int("init_num"),
		PrSwell:       fp.float("pr_swell"),
		SwellDwell:    fp.int("swell_dwell"),
		GermDwell:     fp.int("germ_dwell"),
		IronThreshold: fp.float("iron_threshold"),
		IronUse:       fp.float("iron_use"),
	})

	ip := cfg.params("iron")
	iron := modules.NewIron(modules.IronParams{
		Diffusivity: ip.float("diffusivity"),
		InitAmount:  ip.float("init_amount"),
	}, shared, lap)

	mp := cfg.params("macrophage")
	macrophage := modules.NewMacrophage(modules.MacrophageParams{
		InitNum:        mp.int("init_num"),
		UptakeFraction: mp.float("uptake_fraction"),
		TFEnhance:      mp.float("tf_enhance"),
		KmIron:         mp.float("km_iron"),
		DriftScale:     mp.float("drift_scale"),
		DriftBias:      mp.float("drift_bias"),
		RecruitRate:    mp.float("recruit_rate"),
		PrPhag:         mp.float("pr_phag"),
		MaxDwell:       mp.int("max_dwell"),
		PrEgress:       mp.float("pr_egress"),
	}, iron, fungus)

	tp := cfg.params("transferrin")
	transferrin := modules.NewTransferrin(modules.TransferrinParams{
		Diffusivity: tp.float("diffusivity"),
		P1:          tp.float("p1"),
		P2:          tp.float("p2"),
		P3:          tp.float("p3"),
		SystemTf:    tp.float("system_tf"),
		SystemTfFe:  tp.float("system_tffe"),
	}, shared, lap, iron)

	ap := cfg.params("tafc")
	tafc := modules.NewTAFC(modules.TAFCParams{
		Diffusivity:    ap.float("diffusivity"),
		KmTfTAFC:       ap.float("km_tf_tafc"),
		UptakeFraction: ap.float("uptake_fraction"),
		SecretionRate:  ap.float("secretion_rate"),
	}, shared, lap, iron, transferrin, fungus)

	bp := cfg.params("hemoglobin")
	hemoglobin := modules.NewHemoglobin(modules.HemoglobinParams{
		Diffusivity:     bp.float("diffusivity"),
		DegradeFraction: bp.float("degrade_fraction"),
	}, shared, lap, iron)

	lp := cfg.params("hemolysin")
	hemolysin := modules.NewHemolysin(modules.HemolysinParams{
		Diffusivity:   lp.float("diffusivity"),
		SecretionRate: lp.float("secretion_rate"),
	}, shared, lap, fungus)

	ep := cfg.params("erythrocyte")
	erythrocyte := modules.NewErythrocyte(modules.ErythrocyteParams{
		InitCount:         ep.float("init_count"),
		ReplenishRate:     ep.float("replenish_rate"),
		HemoglobinPerCell: ep.float("hemoglobin_per_cell"),
		KdHemolysin:       ep.float("kd_hemolysin"),
		PrPhagocytosis:    ep.float("pr_phagocytosis"),
	}, shared, hemoglobin, hemolysin, fungus, macrophage)

	np := cfg.params("tnfa")
	tnf := modules.NewTNF(modules.TNFParams{
		Diffusivity:    np.float("diffusivity"),
		HalfLife:       np.float("half_life"),
		SecretionRate:  np.float("secretion_rate"),
		Kd:             np.float("kd"),
		ReactionKm:     np.float("reaction_km"),
		ReactionKCat:   np.float("reaction_kcat"),
		SystemAntiTNFa: np.float("system_antitnfa"),
		SystemHalfLife: np.float("system_half_life"),
	}, shared, lap, macrophage)

	gp := cfg.params("tgfb")
	tgfb := modules.NewTGFB(modules.TGFBParams{
		Diffusivity:   gp.float("diffusivity"),
		HalfLife:      gp.float("half_life"),
		SecretionRate: gp.float("secretion_rate"),
		Kd:            gp.float("kd"),
	}, shared, lap, macrophage)

	for _, p := range []*params{fp, ip, mp, tp, ap, bp, lp, ep, np, gp} {
		if p.err != nil {
			return nil, p.err
		}
	}

	s := sim.New(state)
	order := []sim.Module{
		fungus, macrophage, erythrocyte,
		iron, transferrin, tafc, hemoglobin, hemolysin, tnf, tgfb,
	}
	for _, m := range order {
		if err := s.Register(m); err != nil {
			return nil, err
		}
	}
	return s, nil
}
