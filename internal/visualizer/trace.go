package visualizer

import (
	"math"
	"strings"
)

const (
	maskEmpty   uint8 = 0
	maskOverlap uint8 = 254
	maskAxis    uint8 = 255
)

// Trace renders one spring-smoothed line per channel over a shared,
// auto-scaled amplitude axis. Oldest samples are on the left.
type Trace struct {
	fields  []springRow
	output  string
	profile colorProfile

	lo, hi float64 // amplitude range of the last update
}

// NewTrace creates a new trace visualizer.
func NewTrace() *Trace {
	return &Trace{profile: currentColorProfile()}
}

func (t *Trace) Name() string { return "trace" }

// Range returns the amplitude range mapped to the top and bottom rows in
// the last update.
func (t *Trace) Range() (lo, hi float64) { return t.lo, t.hi }

func (t *Trace) Update(windows [][]float64, width, height int) {
	if len(windows) == 0 || len(windows[0]) < 2 || width < 4 || height < 1 {
		t.output = ""
		return
	}

	cols := width - 2
	if cols < 8 {
		cols = 8
	}

	if len(t.fields) != len(windows) {
		t.fields = make([]springRow, len(windows))
		for ch := range t.fields {
			t.fields[ch] = newSpringRow(20, 14.0, 0.8)
		}
	}

	t.lo, t.hi = amplitudeRange(windows)
	mid := (t.hi + t.lo) / 2
	half := (t.hi - t.lo) / 2

	for ch, w := range windows {
		f := &t.fields[ch]
		f.fit(cols)
		spc := float64(len(w)) / float64(cols)
		for c := range cols {
			lo := int(float64(c) * spc)
			hi := int(float64(c+1) * spc)
			if hi > len(w) {
				hi = len(w)
			}
			if hi <= lo {
				continue
			}
			var sum float64
			for _, v := range w[lo:hi] {
				sum += v
			}
			target := (sum/float64(hi-lo) - mid) / half
			f.ease(c, target)
		}
	}

	mask := make([][]uint8, height)
	for r := range height {
		mask[r] = make([]uint8, cols)
	}

	axis := ampToRow(0, height)
	for c := range cols {
		mask[axis][c] = maskAxis
	}

	for ch := range windows {
		pos := t.fields[ch].pos
		bit := uint8(ch + 1)
		prev := ampToRow(pos[0], height)
		for c := 1; c < cols; c++ {
			y := ampToRow(pos[c], height)
			drawLineMask(mask, c-1, prev, c, y, bit)
			prev = y
		}
	}

	var out strings.Builder
	ink := newPen(t.profile)
	den := float64(max(cols-1, 1))
	axisDim, axisLit := rgb{R: 38, G: 40, B: 52}, rgb{R: 70, G: 76, B: 96}

	for r := range height {
		if r > 0 {
			out.WriteByte('\n')
		}
		for c := range cols {
			switch m := mask[r][c]; m {
			case maskEmpty:
				out.WriteByte(' ')
			case maskOverlap:
				ink.color(&out, rgb{R: 255, G: 248, B: 190})
				out.WriteRune('✦')
			case maskAxis:
				ink.color(&out, mix(axisDim, axisLit, float64(c)/den))
				out.WriteRune('·')
			default:
				ink.color(&out, channelColor(int(m)-1, len(windows)))
				out.WriteRune('●')
			}
		}
		ink.done(&out)
	}

	t.output = out.String()
}

// amplitudeRange returns a symmetric-enough range covering every sample.
// A flat signal gets a unit range around its level.
func amplitudeRange(windows [][]float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, w := range windows {
		for _, v := range w {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if hi-lo < 1e-9 {
		return lo - 1, hi + 1
	}
	return lo, hi
}

func ampToRow(amp float64, height int) int {
	if height <= 1 {
		return 0
	}
	amp = clamp01((amp + 1) / 2)
	span := height - 1
	row := int(math.Round((1 - amp) * float64(span)))
	if row < 0 {
		row = 0
	}
	if row >= height {
		row = height - 1
	}
	return row
}

func drawLineMask(mask [][]uint8, x0, y0, x1, y1 int, bit uint8) {
	maxY := len(mask)
	if maxY == 0 {
		return
	}
	maxX := len(mask[0])

	dx := absInt(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -absInt(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy

	for {
		if y0 >= 0 && y0 < maxY && x0 >= 0 && x0 < maxX {
			cur := mask[y0][x0]
			switch {
			case cur == maskEmpty || cur == maskAxis || cur == bit:
				mask[y0][x0] = bit
			default:
				mask[y0][x0] = maskOverlap
			}
		}

		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (t *Trace) Reset() {
	for i := range t.fields {
		t.fields[i].settle()
	}
	t.output = ""
}

func (t *Trace) View() string {
	return t.output
}
