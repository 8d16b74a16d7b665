package infrastructure

import (
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"go.uber.org/zap"

	"ikneed/internal/domain"
	"ikneed/pkg/kneed"
)

var (
	colorCurve     = drawing.Color{R: 100, G: 149, B: 237, A: 255} // cornflowerblue
	colorCandidate = drawing.Color{R: 255, G: 165, B: 0, A: 255}   // orange
	colorKnee      = drawing.Color{R: 255, G: 69, B: 0, A: 255}    // orangered
	colorAxis      = drawing.Color{R: 204, G: 204, B: 204, A: 255}
	colorNone      = drawing.Color{A: 0}
)

// markerStyle renders points only, without a connecting line.
func markerStyle(col drawing.Color, width float64) chart.Style {
	return chart.Style{
		StrokeColor: colorNone,
		StrokeWidth: 1,
		DotWidth:    width,
		DotColor:    col,
	}
}

func axisStyle() chart.Style {
	return chart.Style{
		StrokeColor: colorAxis,
		StrokeWidth: 4,
		FontSize:    12,
	}
}

type ChartRenderer struct {
	logger        *zap.Logger
	width, height int
}

func NewChartRenderer(logger *zap.Logger, width, height int) *ChartRenderer {
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 500
	}
	return &ChartRenderer{logger: logger, width: width, height: height}
}

// Render draws the curve, the candidate knees when requested, and the knee
// point as a PNG.
func (r *ChartRenderer) Render(w io.Writer, plot domain.Plot) error {
	if len(plot.X) < 2 {
		return fmt.Errorf("cannot plot %d points", len(plot.X))
	}

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "input data",
			XValues: plot.X,
			YValues: plot.Y,
			Style: chart.Style{
				StrokeColor: colorCurve,
				StrokeWidth: 6,
			},
		},
	}
	if plot.ShowAllKnees && len(plot.AllKnees) > 0 {
		series = append(series, chart.ContinuousSeries{
			Name:    "potential knee",
			XValues: plot.AllKnees,
			YValues: plot.AllKneesY,
			Style:   markerStyle(colorCandidate, 6),
		})
	}
	if plot.Knee != nil && plot.KneeY != nil {
		series = append(series, chart.ContinuousSeries{
			Name:    "knee point",
			XValues: []float64{*plot.Knee},
			YValues: []float64{*plot.KneeY},
			Style:   markerStyle(colorKnee, 8),
		})
	}

	return r.draw(w, "Knee/Elbow(s) in Your Data", "x", "y", series)
}

// RenderNormalized draws the adjusted normalized curve next to its
// difference curve and marks the thresholds of the local maxima.
func (r *ChartRenderer) RenderNormalized(w io.Writer, kl *kneed.KneeLocator) error {
	if kl.Len() < 2 {
		return fmt.Errorf("cannot plot %d points", kl.Len())
	}
	xd := kl.XDifference()
	yd := kl.YDifference()

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "normalized curve",
			XValues: kl.XNormalized(),
			YValues: kl.YNormalized(),
			Style:   chart.Style{StrokeColor: colorCurve, StrokeWidth: 3},
		},
		chart.ContinuousSeries{
			Name:    "difference curve",
			XValues: xd,
			YValues: yd,
			Style:   chart.Style{StrokeColor: colorCandidate, StrokeWidth: 3},
		},
	}

	maxima := kl.MaximaIndices()
	if len(maxima) > 0 {
		mx := make([]float64, len(maxima))
		for i, k := range maxima {
			mx[i] = xd[k]
		}
		series = append(series, chart.ContinuousSeries{
			Name:    "threshold",
			XValues: mx,
			YValues: kl.Thresholds(),
			Style:   markerStyle(chart.ColorRed, 5),
		})
	}
	if nk, ok := kl.NormKnee(); ok {
		nky, _ := kl.NormKneeY()
		series = append(series, chart.ContinuousSeries{
			Name:    "knee point",
			XValues: []float64{nk},
			YValues: []float64{nky},
			Style:   markerStyle(colorKnee, 8),
		})
	}

	return r.draw(w, "Normalized Knee Point", "normalized x", "normalized y", series)
}

func (r *ChartRenderer) draw(w io.Writer, title, xName, yName string, series []chart.Series) error {
	ch := chart.Chart{
		Title:      title,
		Width:      r.width,
		Height:     r.height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      chart.XAxis{Name: xName, Style: axisStyle()},
		YAxis:      chart.YAxis{Name: yName, Style: axisStyle()},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(chart.PNG, w); err != nil {
		r.logger.Warn("Chart render failed", zap.String("title", title), zap.Error(err))
		return err
	}
	return nil
}
