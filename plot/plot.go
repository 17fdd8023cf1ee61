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

// Package plot collects simulation time series for plotting and CSV
// export.
package plot

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// XYs implements the gonum.org/v1/plot/plotter.XYer interface.
type XYs []XY

// XY is an x and y value.
type XY struct{ X, Y float64 }

// Len returns the number of X,Y pairs.
func (xys XYs) Len() int {
	return len(xys)
}

// XY return the x and y values at index i, where i < Len()
func (xys XYs) XY(i int) (float64, float64) {
	return xys[i].X, xys[i].Y
}

// Series accumulates named time series sampled at simulation ticks.
// All series share the time axis of the samples they were recorded at.
type Series struct {
	data map[string]XYs
}

// NewSeries creates an empty recorder.
func NewSeries() *Series {
	return &Series{data: make(map[string]XYs)}
}

// Record appends a sample to the named series.
func (s *Series) Record(name string, t, v float64) {
	s.data[name] = append(s.data[name], XY{X: t, Y: v})
}

// Get returns the named series, or nil if nothing was recorded
// under that name.
func (s *Series) Get(name string) XYs {
	return s.data[name]
}

// Names returns the recorded series names in sorted order.
func (s *Series) Names() []string {
	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WriteCSV writes all series as a table with a shared time column.
// It requires every series to have been sampled at the same times.
func (s *Series) WriteCSV(w io.Writer) error {
	names := s.Names()
	if len(names) == 0 {
		return nil
	}
	n := s.data[names[0]].Len()
	for _, name := range names {
		if s.data[name].Len() != n {
			return fmt.Errorf("plot: series %s has %d samples; want %d", name, s.data[name].Len(), n)
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"time"}, names...)); err != nil {
		return err
	}
	row := make([]string, len(names)+1)
	for i := 0; i < n; i++ {
		t, _ := s.data[names[0]].XY(i)
		row[0] = strconv.FormatFloat(t, 'g', -1, 64)
		for j, name := range names {
			_, v := s.data[name].XY(i)
			row[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
