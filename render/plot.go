package render

import (
	"fmt"
	"image/color"

	"github.com/soypat/sdfray/march"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// TrajectoryPlot returns a plot of the positions sampled by ray's last march
// ending at the point where it stopped, along with its target.
func TrajectoryPlot(ray *march.Ray, title string) (*plot.Plot, error) {
	steps := ray.Steps()
	pts := make(plotter.XYs, 0, len(steps)+1)
	for _, step := range steps {
		pts = append(pts, plotter.XY{X: float64(step.Pos.X), Y: float64(step.Pos.Y)})
	}
	end := ray.End()
	pts = append(pts, plotter.XY{X: float64(end.X), Y: float64(end.Y)})

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, err
	}
	line.Color = color.RGBA{R: 0xd9, G: 0x26, B: 0x1c, A: 255}
	points.Shape = draw.CircleGlyph{}
	points.Radius = vg.Points(2)
	target := ray.Target()
	tgt, err := plotter.NewScatter(plotter.XYs{{X: float64(target.X), Y: float64(target.Y)}})
	if err != nil {
		return nil, err
	}
	tgt.Shape = draw.CrossGlyph{}
	tgt.Radius = vg.Points(4)
	p.Add(plotter.NewGrid(), line, points, tgt)
	p.Legend.Add(fmt.Sprintf("%s after %d steps", ray.Termination(), len(steps)), line, points)
	p.Legend.Add("target", tgt)
	return p, nil
}

// RadiusPlot returns a plot of the clearance radius at each step of ray's
// last march.
func RadiusPlot(ray *march.Ray, title string) (*plot.Plot, error) {
	steps := ray.Steps()
	pts := make(plotter.XYs, len(steps))
	for i, step := range steps {
		pts[i].X = float64(i)
		pts[i].Y = float64(step.Radius)
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "step"
	p.Y.Label.Text = "radius"
	p.Add(plotter.NewGrid())
	if len(pts) == 0 {
		return p, nil
	}
	bars, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	bars.StepStyle = plotter.PostStep
	p.Add(bars)
	return p, nil
}

// SavePlot writes p to path. The format is inferred from the extension.
func SavePlot(p *plot.Plot, path string) error {
	err := p.Save(6*vg.Inch, 6*vg.Inch, path)
	if err != nil {
		return fmt.Errorf("saving plot %s: %w", path, err)
	}
	return nil
}
