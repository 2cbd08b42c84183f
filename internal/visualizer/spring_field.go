package visualizer

import "github.com/charmbracelet/harmonica"

// springRow eases one value per column toward its target.
type springRow struct {
	spring harmonica.Spring
	pos    []float64
	vel    []float64
}

func newSpringRow(fps int, frequency, damping float64) springRow {
	return springRow{spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, damping)}
}

// fit resizes the row to n columns, resampling current positions so a
// terminal resize keeps the trace shape. Velocities restart at zero.
func (s *springRow) fit(n int) {
	if len(s.pos) == n {
		return
	}
	old := s.pos
	s.pos = make([]float64, n)
	s.vel = make([]float64, n)
	if len(old) == 0 {
		return
	}
	for i := range s.pos {
		s.pos[i] = old[i*len(old)/n]
	}
}

func (s *springRow) settle() {
	clear(s.pos)
	clear(s.vel)
}

func (s *springRow) ease(i int, target float64) float64 {
	s.pos[i], s.vel[i] = s.spring.Update(s.pos[i], s.vel[i], target)
	return s.pos[i]
}
