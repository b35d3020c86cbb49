package dataset

import (
	"math"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/autotab/frame"
)

// FeatureStats summarizes one numeric feature.
type FeatureStats struct {
	Count int
	NaN   int
	Mean  float64
	Std   float64
	Min   float64
	Max   float64
}

// Describe computes summary statistics for every numeric-role feature. NaN
// cells are counted but excluded from the moments.
func Describe(d Dataset) (map[string]FeatureStats, error) {
	cols, err := numericFeatureValues(d)
	if err != nil {
		return nil, err
	}

	out := make(map[string]FeatureStats, len(cols))
	for f, vals := range cols {
		s := FeatureStats{Count: len(vals), Min: math.NaN(), Max: math.NaN()}
		clean := make([]float64, 0, len(vals))
		for _, v := range vals {
			if math.IsNaN(v) {
				s.NaN++
				continue
			}
			clean = append(clean, v)
			if math.IsNaN(s.Min) || v < s.Min {
				s.Min = v
			}
			if math.IsNaN(s.Max) || v > s.Max {
				s.Max = v
			}
		}
		if len(clean) > 0 {
			s.Mean = stat.Mean(clean, nil)
			s.Std = stat.StdDev(clean, nil)
		}
		out[f] = s
	}
	return out, nil
}

// SaveHistograms renders one histogram image per numeric-role feature into
// dir, named <feature>.png. NaN cells are dropped before binning.
func SaveHistograms(d Dataset, dir string, bins int) error {
	cols, err := numericFeatureValues(d)
	if err != nil {
		return err
	}
	if bins <= 0 {
		bins = 16
	}

	features := make([]string, 0, len(cols))
	for f := range cols {
		features = append(features, f)
	}
	sort.Strings(features)

	for _, f := range features {
		values := make(plotter.Values, 0, len(cols[f]))
		for _, v := range cols[f] {
			if !math.IsNaN(v) {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}

		p := plot.New()
		p.Title.Text = f
		h, err := plotter.NewHist(values, bins)
		if err != nil {
			return err
		}
		p.Add(h)
		if err := p.Save(4*vg.Inch, 3*vg.Inch, filepath.Join(dir, f+".png")); err != nil {
			return err
		}
	}
	return nil
}

// numericFeatureValues materializes every numeric-role feature as float64
// values, regardless of backend.
func numericFeatureValues(d Dataset) (map[string][]float64, error) {
	if s, ok := d.(*CSR); ok {
		dense, err := s.ToDense()
		if err != nil {
			return nil, err
		}
		d = dense
	}

	out := make(map[string][]float64)
	roles := d.Roles()

	if dense, ok := d.(*Dense); ok {
		if dense.Data() == nil {
			return out, nil
		}
		rows, _ := dense.Shape()
		for j, f := range dense.Features() {
			vals := make([]float64, rows)
			mat.Col(vals, j, dense.Data())
			out[f] = vals
		}
		return out, nil
	}

	t, err := d.ToTable()
	if err != nil {
		return nil, err
	}
	for _, f := range t.Features() {
		if roles[f].Name != RoleNumeric {
			continue
		}
		col, err := t.Column(f)
		if err != nil {
			return nil, err
		}
		vals, err := frame.NumericColumn(col)
		if err != nil {
			return nil, err
		}
		out[f] = vals
	}
	return out, nil
}
