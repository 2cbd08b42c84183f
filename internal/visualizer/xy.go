package visualizer

import (
	"math"
	"strings"

	"github.com/charmbracelet/harmonica"
)

var xyTrail = []rune{'·', '•', '✶', '✹'}

type xyPoint struct {
	x, y float64 // 0..1
}

// XY plots channel 0 against channel 1 with a fading trail. Both axes
// share one auto-scaled range so equal signals fall on the diagonal.
type XY struct {
	trail   []xyPoint
	spring  harmonica.Spring
	cx, cy  float64
	vx, vy  float64
	output  string
	profile colorProfile
}

func NewXY() *XY {
	return &XY{
		spring:  harmonica.NewSpring(harmonica.FPS(20), 10.0, 0.7),
		profile: currentColorProfile(),
	}
}

func (p *XY) Name() string { return "xy" }

func (p *XY) Reset() {
	p.trail = p.trail[:0]
	p.cx, p.cy, p.vx, p.vy = 0, 0, 0, 0
	p.output = ""
}

func (p *XY) Update(windows [][]float64, width, height int) {
	if len(windows) < 2 {
		p.output = " xy needs two channels"
		return
	}
	frames := min(len(windows[0]), len(windows[1]))
	if frames < 2 || width < 6 || height < 2 {
		p.output = ""
		return
	}

	cols := max(width-2, 8)
	rows := height
	maxTrail := max(cols*4, 32)

	lo, hi := amplitudeRange(windows[:2])
	span := hi - lo
	step := max(frames/(cols*2), 1)

	for i := 0; i < frames; i += step {
		tx := (windows[0][i] - lo) / span
		ty := (windows[1][i] - lo) / span
		p.cx, p.vx = p.spring.Update(p.cx, p.vx, tx)
		p.cy, p.vy = p.spring.Update(p.cy, p.vy, ty)
		p.trail = append(p.trail, xyPoint{x: p.cx, y: p.cy})
	}
	if len(p.trail) > maxTrail {
		p.trail = append(p.trail[:0], p.trail[len(p.trail)-maxTrail:]...)
	}

	chars := make([][]rune, rows)
	ages := make([][]float64, rows)
	for r := range rows {
		chars[r] = make([]rune, cols)
		ages[r] = make([]float64, cols)
		for c := range cols {
			chars[r][c] = ' '
			ages[r][c] = 1
		}
	}

	last := max(1, len(p.trail)-1)
	for i, pt := range p.trail {
		x := int(clamp01(pt.x) * float64(cols-1))
		y := int((1 - clamp01(pt.y)) * float64(rows-1))
		age := float64(len(p.trail)-1-i) / float64(last)
		glyph := int((1 - age) * float64(len(xyTrail)-1))
		chars[y][x] = xyTrail[min(glyph, len(xyTrail)-1)]
		ages[y][x] = math.Min(ages[y][x], age)
	}

	var out strings.Builder
	ink := newPen(p.profile)
	for r := range rows {
		if r > 0 {
			out.WriteByte('\n')
		}
		for c := range cols {
			ch := chars[r][c]
			if ch == ' ' {
				out.WriteRune(ch)
				continue
			}
			fresh := clamp01(1 - ages[r][c])
			base := mix(channelColor(0, 2), channelColor(1, 2), float64(r)/float64(max(1, rows-1)))
			ink.color(&out, mix(rgb{R: 30, G: 34, B: 48}, base, 0.3+0.7*fresh))
			out.WriteRune(ch)
		}
		ink.done(&out)
	}

	p.output = out.String()
}

func (p *XY) View() string {
	return p.output
}
