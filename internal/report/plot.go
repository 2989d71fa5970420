package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"ascbundler/internal/bundle"
)

const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 5 * vg.Inch
)

// SpectrumPlot builds a line plot of normalized intensity against
// wavelength with one line per appended file.
func SpectrumPlot(b *bundle.Bundle) (*plot.Plot, error) {
	wavelengths := b.Wavelengths()
	xs := make([]float64, len(wavelengths))
	for i, wl := range wavelengths {
		x, err := bundle.ParseDecimal(wl)
		if err != nil {
			return nil, &bundle.Error{
				Type:    bundle.NumericParseError,
				Line:    i + 1,
				Message: fmt.Sprintf("wavelength %q is not a decimal number", wl),
			}
		}
		xs[i] = x
	}

	values, err := bundle.NormalizeValues(b)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = "Normalized spectra"
	p.X.Label.Text = WavelengthHeader
	p.Y.Label.Text = "Intensity / Exposure Time"
	p.Add(plotter.NewGrid())

	names := b.FileNames()
	for j, name := range names {
		pts := make(plotter.XYs, len(xs))
		for i := range xs {
			pts[i].X = xs[i]
			pts[i].Y = values[i][j]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("plot %s: %w", name, err)
		}
		line.Color = plotutil.Color(j)
		line.Dashes = plotutil.Dashes(j / len(plotutil.DefaultColors))
		p.Add(line)
		p.Legend.Add(name, line)
	}
	p.Legend.Top = true
	return p, nil
}

// WritePlot renders the spectrum plot to w in the given format ("png",
// "svg", "pdf", ...).
func WritePlot(w io.Writer, b *bundle.Bundle, format string) error {
	p, err := SpectrumPlot(b)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// WritePlotFile renders the spectrum plot to path; the format follows the
// file extension.
func WritePlotFile(path string, b *bundle.Bundle) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	p, err := SpectrumPlot(b)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, format)
	if err != nil {
		return &bundle.Error{Type: bundle.FormatError, Path: path, Err: err}
	}
	return writeFile(path, func(w io.Writer) error {
		_, err := wt.WriteTo(w)
		return err
	})
}
