package visualizer

// Visualizer renders channel windows as text.
type Visualizer interface {
	Name() string
	Update(windows [][]float64, width, height int)
	View() string
	Reset()
}

// Modes returns all available visualizers. fullScale is the sample
// magnitude treated as 0 dBFS by level meters.
func Modes(fullScale float64) []Visualizer {
	return []Visualizer{
		NewTrace(),
		NewMeter(fullScale),
		NewXY(),
	}
}
