package field

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// maxHistogramSamples bounds the number of values binned by SaveHistogram.
const maxHistogramSamples = 1 << 20

// SaveHistogram plots the distribution of the field values with the
// iso-level marked and saves it to filename. The image format is chosen
// from the file extension (png, svg, pdf...). Large fields are subsampled.
func SaveHistogram(filename string, f *Field, iso float64, bins int) error {
	if len(f.Values) == 0 {
		return fmt.Errorf("histogram of empty field")
	}
	stride := 1 + len(f.Values)/maxHistogramSamples
	values := make(plotter.Values, 0, len(f.Values)/stride+1)
	for i := 0; i < len(f.Values); i += stride {
		values = append(values, f.Values[i])
	}
	hist, err := plotter.NewHist(values, bins)
	if err != nil {
		return err
	}
	top := 0.0
	for _, bin := range hist.Bins {
		if bin.Weight > top {
			top = bin.Weight
		}
	}
	isoLine, err := plotter.NewLine(plotter.XYs{{X: iso, Y: 0}, {X: iso, Y: top}})
	if err != nil {
		return err
	}
	isoLine.Color = color.RGBA{R: 0xb6, G: 0x49, B: 0x26, A: 0xff}
	isoLine.Width = vg.Points(2)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Distance field (%d nodes)", len(f.Values))
	p.X.Label.Text = "distance to nearest point"
	p.Y.Label.Text = "nodes"
	p.Add(hist, isoLine)
	p.Legend.Add(fmt.Sprintf("iso-level %.4g", iso), isoLine)
	return p.Save(6*vg.Inch, 4*vg.Inch, filename)
}
