// Package plot renders plot requests emitted by test scripts into PNG files
// in the run directory.
package plot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"github.com/wcharczuk/go-chart/v2"

	"github.com/testexec/testexec/types"
)

// Renderer writes plots into a directory with sequential file names. A run
// produces plot-001.png, plot-002.png and so on, in the order the payloads
// were emitted.
type Renderer struct {
	logger log.Logger
	dir    string
	seq    int
}

// NewRenderer creates a renderer writing into dir, creating it if needed.
func NewRenderer(logger log.Logger, dir string) (*Renderer, error) {
	if logger == nil {
		logger = log.Root()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating plot directory: %w", err)
	}
	return &Renderer{logger: logger, dir: dir}, nil
}

// Dir returns the output directory.
func (r *Renderer) Dir() string {
	return r.dir
}

// Render draws one payload and returns the path of the written file.
func (r *Renderer) Render(p types.PlotPayload) (string, error) {
	xs, ys := normalizeSeries(p.X, p.Y)
	if len(ys) == 0 {
		return "", fmt.Errorf("plot %q has no data points", p.Title)
	}

	graph := chart.Chart{
		Title: p.Title,
		XAxis: chart.XAxis{Name: p.XLabel},
		YAxis: chart.YAxis{Name: p.YLabel},
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: xs,
				YValues: ys,
			},
		},
	}
	if p.Grid {
		gridStyle := chart.Style{
			StrokeColor: chart.ColorAlternateGray,
			StrokeWidth: 1.0,
		}
		graph.XAxis.GridMajorStyle = gridStyle
		graph.YAxis.GridMajorStyle = gridStyle
	}

	r.seq++
	path := filepath.Join(r.dir, fmt.Sprintf("plot-%03d.png", r.seq))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating plot file: %w", err)
	}
	renderErr := graph.Render(chart.PNG, f)
	closeErr := f.Close()
	if renderErr != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("rendering plot %q: %w", p.Title, renderErr)
	}
	if closeErr != nil {
		return "", closeErr
	}

	r.logger.Debug("Rendered plot", "title", p.Title, "path", path, "points", len(ys))
	return path, nil
}

// normalizeSeries aligns the x and y vectors. Missing x values become
// indices, mismatched lengths truncate to the shorter vector, and a single
// point is padded so the chart has a drawable range.
func normalizeSeries(xs, ys []float64) ([]float64, []float64) {
	if len(xs) == 0 {
		xs = make([]float64, len(ys))
		for i := range xs {
			xs[i] = float64(i)
		}
	}
	if len(xs) > len(ys) {
		xs = xs[:len(ys)]
	}
	if len(ys) > len(xs) {
		ys = ys[:len(xs)]
	}
	if len(ys) == 1 {
		xs = append(xs, xs[0]+1)
		ys = append(ys, ys[0])
	}
	return xs, ys
}
