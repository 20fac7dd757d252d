package types

// PlotPayload carries one plot request emitted by a running test. Payloads
// travel from the test subprocess through the plot queue to the renderer,
// so everything here is plain data.
type PlotPayload struct {
	Title  string    `json:"title,omitempty"`
	XLabel string    `json:"xlabel,omitempty"`
	YLabel string    `json:"ylabel,omitempty"`
	Grid   bool      `json:"grid,omitempty"`
	X      []float64 `json:"x"`
	Y      []float64 `json:"y"`
}
