// Package report renders training progress and the fitted line as PNG charts.
package report

import (
	"image/color"
	"io"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/pricefit/dataset"
	"github.com/YuminosukeSato/pricefit/linear"
	"github.com/YuminosukeSato/pricefit/pkg/errors"
)

// Chart size.
const (
	Width  = 6 * vg.Inch
	Height = 4 * vg.Inch
)

var (
	trainColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	valColor   = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	pointColor = color.RGBA{R: 70, G: 130, B: 180, A: 120}
	lineColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// LossChart draws training and validation loss per epoch and writes a PNG to w.
func LossChart(w io.Writer, history []linear.EpochStats) error {
	if len(history) == 0 {
		return errors.NewDataUnavailableError("report.LossChart", "no epochs recorded")
	}
	p := plot.New()
	p.Title.Text = "Training performance"
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "MSE"

	train := make(plotter.XYs, len(history))
	var val plotter.XYs
	for i, h := range history {
		train[i] = plotter.XY{X: float64(h.Epoch), Y: h.TrainLoss}
		if h.Validated {
			val = append(val, plotter.XY{X: float64(h.Epoch), Y: h.ValLoss})
		}
	}

	l, err := plotter.NewLine(train)
	if err != nil {
		return errors.Wrap(err, "loss line")
	}
	l.Color = trainColor
	p.Add(l)
	p.Legend.Add("loss", l)

	if len(val) > 0 {
		vl, err := plotter.NewLine(val)
		if err != nil {
			return errors.Wrap(err, "val_loss line")
		}
		vl.Color = valColor
		vl.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(vl)
		p.Legend.Add("val_loss", vl)
	}
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	return writePNG(w, p)
}

// ScatterChart draws the raw points and, when fitted is true, the line
// y = slope*x + intercept across the x range of the points.
func ScatterChart(w io.Writer, points []dataset.Point, fitted bool, slope, intercept float64) error {
	if len(points) == 0 {
		return errors.NewDataUnavailableError("report.ScatterChart", "no points")
	}
	p := plot.New()
	p.Title.Text = "Square feet vs house price"
	p.X.Label.Text = "sqft_living"
	p.Y.Label.Text = "price"

	xys := make(plotter.XYs, len(points))
	xs := make([]float64, len(points))
	for i, pt := range points {
		xys[i] = plotter.XY{X: pt.X, Y: pt.Y}
		xs[i] = pt.X
	}
	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return errors.Wrap(err, "scatter")
	}
	sc.GlyphStyle.Color = pointColor
	sc.GlyphStyle.Radius = vg.Points(1.5)
	p.Add(sc)

	if fitted {
		lo, hi := floats.Min(xs), floats.Max(xs)
		l, err := plotter.NewLine(plotter.XYs{
			{X: lo, Y: slope*lo + intercept},
			{X: hi, Y: slope*hi + intercept},
		})
		if err != nil {
			return errors.Wrap(err, "fitted line")
		}
		l.Color = lineColor
		l.Width = vg.Points(2)
		p.Add(l)
		p.Legend.Add("prediction", l)
	}
	return writePNG(w, p)
}

func writePNG(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(Width, Height, "png")
	if err != nil {
		return errors.Wrap(err, "render chart")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "write chart")
	}
	return nil
}
