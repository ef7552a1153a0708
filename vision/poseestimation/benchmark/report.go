package benchmark

import (
	"fmt"
	"io"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"go.viam.com/posebench/rimage"
)

// SummaryTable renders one row per estimator.
func SummaryTable(results []Result) string {
	t := table.NewWriter()
	t.SetTitle("root mean square error per estimator")
	t.AppendHeader(table.Row{
		"Name", "Heading", "X", "Z", "Position", "Position p95", "Bearing", "Range", "Rate (Hz)", "Failures", "Samples",
	})
	for _, r := range results {
		s := r.Summary
		t.AppendRow(table.Row{
			s.Name,
			fmt.Sprintf("%.4f", s.PanRMSE),
			fmt.Sprintf("%.4f", s.XRMSE),
			fmt.Sprintf("%.4f", s.ZRMSE),
			fmt.Sprintf("%.4f", s.PositionRMSE),
			fmt.Sprintf("%.4f", s.PositionP95),
			fmt.Sprintf("%.4f", s.BearingRMSE),
			fmt.Sprintf("%.4f", s.RangeRMSE),
			fmt.Sprintf("%.1f", s.Rate),
			s.Failures,
			s.Samples,
		})
	}
	return t.Render()
}

// SamplesTable renders every sample of r with its truth, estimate and errors.
func SamplesTable(r Result) string {
	t := table.NewWriter()
	t.SetTitle(r.Summary.Name)
	t.AppendHeader(table.Row{
		"#", "pan", "x", "y", "z", "rbear", "range",
		"ppan", "px", "py", "pz", "prbear", "prange",
		"panErr", "xErr", "zErr", "posErr", "rbearErr", "rangeErr",
	})
	f := func(v float64) string { return fmt.Sprintf("%.2f", v) }
	for _, s := range r.Samples {
		t.AppendRow(table.Row{
			s.Index,
			f(s.Truth.Pan), f(s.Truth.X), f(s.Truth.Y), f(s.Truth.Z), f(s.Truth.RelativeBearing()), f(s.Truth.Range()),
			f(s.Estimate.Pan), f(s.Estimate.X), f(s.Estimate.Y), f(s.Estimate.Z),
			f(s.Estimate.RelativeBearing()), f(s.Estimate.Range()),
			f(s.PanError()), f(s.XError()), f(s.ZError()), f(s.PositionError()),
			fmt.Sprintf("%.4f", s.BearingError()), f(s.RangeError()),
		})
	}
	return t.Render()
}

// ErrorHistogram prints a text histogram of r's position errors with the given number of bins.
func ErrorHistogram(w io.Writer, r Result, bins int) error {
	if _, err := fmt.Fprintf(w, "%s position error (m)\n", r.Summary.Name); err != nil {
		return err
	}
	if len(r.Samples) == 0 {
		_, err := fmt.Fprintln(w, "no samples")
		return err
	}
	if bins < 1 {
		return errors.Errorf("histogram needs at least one bin, got %d", bins)
	}
	errs := lo.Map(r.Samples, func(s Sample, _ int) float64 { return s.PositionError() })
	if lo.Min(errs) == lo.Max(errs) {
		_, err := fmt.Fprintf(w, "all %d samples at %.4f\n", len(errs), errs[0])
		return err
	}
	return histogram.Fprint(w, histogram.Hist(bins, errs), histogram.Linear(histogramWidth))
}

// histogramWidth is the length of the longest histogram bar.
const histogramWidth = 40

// WritePlot saves a scatter of position error against range, one series per estimator, as an
// image whose format follows the file extension.
func WritePlot(results []Result, path string) error {
	p := plot.New()
	p.Title.Text = "Position error vs range"
	p.X.Label.Text = "Range (m)"
	p.Y.Label.Text = "Position error (m)"

	colors := rimage.Palette(len(results))
	for i, r := range results {
		if len(r.Samples) == 0 {
			continue
		}
		pts := lo.Map(r.Samples, func(s Sample, _ int) plotter.XY {
			return plotter.XY{X: s.Truth.Range(), Y: s.PositionError()}
		})
		scatter, err := plotter.NewScatter(plotter.XYs(pts))
		if err != nil {
			return errors.Wrapf(err, "plotting %s", r.Summary.Name)
		}
		scatter.GlyphStyle.Color = colors[i]
		scatter.GlyphStyle.Radius = vg.Points(2)
		p.Add(scatter)
		p.Legend.Add(r.Summary.Name, scatter)
	}
	p.Legend.Top = true
	p.Legend.Left = true

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "saving plot to %s", path)
	}
	return nil
}
