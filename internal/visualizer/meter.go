package visualizer

import (
	"fmt"
	"math"
	"strings"
)

const (
	meterAttack    = 0.6
	meterRelease   = 0.15
	meterPeakDecay = 0.02
	meterDBFloor   = -60.0
)

// Meter renders one horizontal level bar per channel with peak hold. The
// level is the RMS of the window after removing its mean, so a constant
// offset on a channel reads as silence.
type Meter struct {
	fullScale float64
	rms       []float64
	peak      []float64
	output    string
	profile   colorProfile
}

// NewMeter creates a level meter. Values of magnitude fullScale read as
// 0 dB; a non-positive fullScale is treated as 1.
func NewMeter(fullScale float64) *Meter {
	if fullScale <= 0 {
		fullScale = 1
	}
	return &Meter{fullScale: fullScale, profile: currentColorProfile()}
}

func (m *Meter) Name() string { return "meter" }

// Levels returns the smoothed per-channel RMS as a fraction of full scale.
func (m *Meter) Levels() []float64 {
	return append([]float64(nil), m.rms...)
}

func (m *Meter) Reset() {
	clear(m.rms)
	clear(m.peak)
	m.output = ""
}

func (m *Meter) Update(windows [][]float64, width, height int) {
	if len(windows) == 0 {
		m.output = ""
		return
	}
	if len(m.rms) != len(windows) {
		m.rms = make([]float64, len(windows))
		m.peak = make([]float64, len(windows))
	}

	for ch, w := range windows {
		level := acRMS(w) / m.fullScale
		if level > m.rms[ch] {
			m.rms[ch] = m.rms[ch]*(1-meterAttack) + level*meterAttack
		} else {
			m.rms[ch] = m.rms[ch]*(1-meterRelease) + level*meterRelease
		}

		if m.rms[ch] > m.peak[ch] {
			m.peak[ch] = m.rms[ch]
		} else {
			m.peak[ch] = math.Max(0, m.peak[ch]-meterPeakDecay)
		}
	}

	barWidth := width - 12 // " 1  " prefix and " -xx dB" suffix
	if barWidth < 10 {
		barWidth = 10
	}
	spaced := height >= 2*len(windows)

	var sb strings.Builder
	for ch := range windows {
		if ch > 0 {
			sb.WriteByte('\n')
			if spaced {
				sb.WriteByte('\n')
			}
		}
		fmt.Fprintf(&sb, "%2d  %s %s", ch+1, renderMeterBar(m.rms[ch], m.peak[ch], barWidth, m.profile), formatDB(m.rms[ch]))
	}
	m.output = sb.String()
}

func acRMS(w []float64) float64 {
	if len(w) == 0 {
		return 0
	}
	var mean float64
	for _, v := range w {
		mean += v
	}
	mean /= float64(len(w))
	var sum float64
	for _, v := range w {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(w)))
}

func toDB(rms float64) float64 {
	if rms < 1e-9 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}

// rmsToLevel maps an RMS fraction onto 0..1 of the bar using a dB scale
// from meterDBFloor to 0 dB.
func rmsToLevel(rms float64) float64 {
	db := toDB(rms)
	if db < meterDBFloor {
		return 0
	}
	return clamp01((db - meterDBFloor) / -meterDBFloor)
}

func formatDB(rms float64) string {
	db := toDB(rms)
	if db < meterDBFloor {
		return "  -∞ dB"
	}
	return fmt.Sprintf("%4.0f dB", db)
}

func renderMeterBar(rms, peak float64, width int, profile colorProfile) string {
	filled := int(rmsToLevel(rms) * float64(width))
	peakPos := int(rmsToLevel(peak) * float64(width))
	if peakPos >= width {
		peakPos = width - 1
	}

	bar := make([]rune, width)
	for i := range width {
		switch {
		case i < filled:
			bar[i] = '█'
		case i == peakPos && peakPos > 0:
			bar[i] = '│'
		default:
			bar[i] = '─'
		}
	}

	if profile == colorNone {
		return string(bar)
	}

	var sb strings.Builder
	ink := newPen(profile)
	green := rgb{R: 60, G: 224, B: 116}
	amber := rgb{R: 240, G: 198, B: 72}
	red := rgb{R: 242, G: 96, B: 86}
	for i, r := range bar {
		pos := float64(i) / float64(width)
		switch {
		case r == '│':
			ink.color(&sb, rgb{R: 255, G: 252, B: 210})
		case r == '─':
			ink.color(&sb, rgb{R: 70, G: 74, B: 90})
		case pos < 0.7:
			ink.color(&sb, mix(green, amber, pos/0.7))
		default:
			ink.color(&sb, mix(amber, red, (pos-0.7)/0.3))
		}
		sb.WriteRune(r)
	}
	ink.done(&sb)
	return sb.String()
}

func (m *Meter) View() string {
	return m.output
}
