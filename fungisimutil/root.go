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
	"fmt"
	"os"
	"sort"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fungisim/fungisim/modules"
	"github.com/fungisim/fungisim/plot"
	"github.com/fungisim/fungisim/sim"
)

// Root returns the top-level fungisim command.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:           "fungisim",
		Short:         "Spatial simulation of invasive aspergillosis in lung tissue",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd(), inspectCmd())
	return root
}

func runCmd() *cobra.Command {
	var configPath string
	var overrides []string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation described by a TOML configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			for _, o := range overrides {
				if err := cfg.Override(o); err != nil {
					return err
				}
			}
			return run(cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "fungisim.toml", "path to the run configuration")
	cmd.Flags().StringArrayVar(&overrides, "set", nil, "override a module parameter, e.g. macrophage.recruit_rate=2")
	return cmd
}

func run(cfg *Config) error {
	s, err := cfg.BuildSimulation()
	if err != nil {
		return err
	}
	if err := s.Initialize(); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"voxels":   s.State.Grid.Len(),
		"step":     cfg.Run.Step,
		"duration": cfg.Run.Duration,
		"seed":     cfg.Run.Seed,
	}).Info("starting simulation")

	series := plot.NewSeries()
	lastSnapshot := 0.0
	err = s.RunUntil(cfg.Run.Duration, func(s *sim.Simulation) error {
		record(s, series)
		if cfg.Run.Snapshot != "" && cfg.Run.SnapshotEvery > 0 &&
			s.State.Time-lastSnapshot >= cfg.Run.SnapshotEvery {
			lastSnapshot = s.State.Time
			if err := writeSnapshot(s, cfg.Run.Snapshot); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if cfg.Run.Snapshot != "" {
		if err := writeSnapshot(s, cfg.Run.Snapshot); err != nil {
			return err
		}
	}
	if cfg.Run.Series != "" {
		f, err := os.Create(cfg.Run.Series)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := series.WriteCSV(f); err != nil {
			return err
		}
	}
	return nil
}

// record samples the headline state of each population and field.
func record(s *sim.Simulation, series *plot.Series) {
	t := s.State.Time
	if m, ok := s.Module("afumigatus").(*modules.FungusModule); ok {
		series.Record("fungus", t, float64(len(m.Cells.Alive())))
	}
	if m, ok := s.Module("macrophage").(*modules.MacrophageModule); ok {
		series.Record("macrophage", t, float64(len(m.Cells.Alive())))
	}
	if m, ok := s.Module("iron").(*modules.IronModule); ok {
		series.Record("iron", t, m.Grid.Sum())
	}
	if m, ok := s.Module("tnfa").(*modules.TNFModule); ok {
		series.Record("tnfa", t, m.TNFa.Sum())
	}
	if m, ok := s.Module("tafc").(*modules.TAFCModule); ok {
		series.Record("tafc", t, m.TAFC.Sum())
	}
	if m, ok := s.Module("erythrocyte").(*modules.ErythrocyteModule); ok {
		series.Record("erythrocyte", t, m.Count.Sum())
	}
}

func writeSnapshot(s *sim.Simulation, path string) error {
	snap, err := s.Snapshot()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := sim.WriteSnapshot(f, snap); err != nil {
		return err
	}
	return f.Close()
}

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect snapshot.gob",
		Short: "Summarize a saved simulation snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			snap, err := sim.ReadSnapshot(f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "time: %g minutes\n", snap.Time)
			names := make([]string, 0, len(snap.Modules))
			for name := range snap.Modules {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %d bytes\n", name, len(snap.Modules[name]))
			}
			return nil
		},
	}
	return cmd
}
