package visualizer

import (
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
)

type colorProfile uint8

const (
	colorNone colorProfile = iota
	color16
	color256
	colorTrue
)

type rgb struct {
	R, G, B uint8
}

var (
	profileOnce sync.Once
	detected    colorProfile
)

func currentColorProfile() colorProfile {
	profileOnce.Do(func() {
		detected = detectColorProfile(os.LookupEnv)
	})
	return detected
}

// detectColorProfile maps NO_COLOR, COLORTERM and TERM to a profile.
func detectColorProfile(lookup func(string) (string, bool)) colorProfile {
	if _, off := lookup("NO_COLOR"); off {
		return colorNone
	}
	env := func(key string) string {
		v, _ := lookup(key)
		return strings.ToLower(v)
	}
	colorTerm, term := env("COLORTERM"), env("TERM")
	switch {
	case strings.Contains(colorTerm, "truecolor"), strings.Contains(colorTerm, "24bit"):
		return colorTrue
	case strings.Contains(term, "256color"):
		return color256
	case term == "", term == "dumb":
		return colorNone
	}
	return color16
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

// mix blends a toward b; t is clamped to 0..1.
func mix(a, b rgb, t float64) rgb {
	t = clamp01(t)
	ch := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return rgb{R: ch(a.R, b.R), G: ch(a.G, b.G), B: ch(a.B, b.B)}
}

// Bench-scope trace colors: channel 1 yellow, 2 cyan, 3 magenta, 4 blue.
var scopePalette = []rgb{
	{R: 255, G: 214, B: 10},
	{R: 0, G: 214, B: 255},
	{R: 255, G: 64, B: 200},
	{R: 64, G: 140, B: 255},
	{R: 80, G: 230, B: 120},
	{R: 255, G: 140, B: 40},
	{R: 240, G: 80, B: 80},
	{R: 200, G: 200, B: 210},
}

var hueAnchors = []rgb{
	{R: 255, G: 80, B: 80},
	{R: 255, G: 214, B: 10},
	{R: 80, G: 230, B: 120},
	{R: 0, G: 214, B: 255},
	{R: 64, G: 140, B: 255},
	{R: 255, G: 64, B: 200},
}

// hueColor walks the anchor ring; h wraps at 1.
func hueColor(h float64) rgb {
	h -= math.Floor(h)
	pos := h * float64(len(hueAnchors))
	i := int(pos)
	return mix(hueAnchors[i%len(hueAnchors)], hueAnchors[(i+1)%len(hueAnchors)], pos-float64(i))
}

// channelColor uses the fixed scope palette while it lasts and spreads
// larger channel counts around the hue ring.
func channelColor(ch, n int) rgb {
	if n <= len(scopePalette) {
		return scopePalette[ch%len(scopePalette)]
	}
	return hueColor(float64(ch) / float64(n))
}

// ChannelHex returns the trace color of channel ch as "#rrggbb", for
// legends drawn outside this package.
func ChannelHex(ch, n int) string {
	c := channelColor(ch, n)
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// basic16 holds the standard and bright ANSI foreground colors.
var basic16 = [16]rgb{
	{R: 0, G: 0, B: 0}, {R: 205, G: 49, B: 49}, {R: 13, G: 188, B: 121}, {R: 229, G: 229, B: 16},
	{R: 36, G: 114, B: 200}, {R: 188, G: 63, B: 188}, {R: 17, G: 168, B: 205}, {R: 229, G: 229, B: 229},
	{R: 102, G: 102, B: 102}, {R: 241, G: 76, B: 76}, {R: 35, G: 209, B: 139}, {R: 245, G: 245, B: 67},
	{R: 59, G: 142, B: 234}, {R: 214, G: 112, B: 214}, {R: 41, G: 184, B: 219}, {R: 255, G: 255, B: 255},
}

// nearest16 returns the SGR foreground code closest to c.
func nearest16(c rgb) int {
	best, bestDist := 0, math.MaxFloat64
	for i, p := range basic16 {
		dr := float64(c.R) - float64(p.R)
		dg := float64(c.G) - float64(p.G)
		db := float64(c.B) - float64(p.B)
		if d := dr*dr + dg*dg + db*db; d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 8 {
		return 30 + best
	}
	return 90 + best - 8
}

func cube256(c rgb) int {
	q := func(v uint8) int { return int(v) * 5 / 255 }
	return 16 + 36*q(c.R) + 6*q(c.G) + q(c.B)
}

type escapeKey struct {
	profile colorProfile
	c       rgb
}

var escapes sync.Map // escapeKey -> string

func escape(profile colorProfile, c rgb) string {
	key := escapeKey{profile: profile, c: c}
	if s, ok := escapes.Load(key); ok {
		return s.(string)
	}
	var s string
	switch profile {
	case colorTrue:
		s = fmt.Sprintf("\x1b[38;2;%d;%d;%dm", c.R, c.G, c.B)
	case color256:
		s = fmt.Sprintf("\x1b[38;5;%dm", cube256(c))
	case color16:
		s = fmt.Sprintf("\x1b[%dm", nearest16(c))
	}
	escapes.Store(key, s)
	return s
}

// pen writes a color change only when the color actually changes.
type pen struct {
	profile colorProfile
	last    rgb
	active  bool
}

func newPen(profile colorProfile) pen {
	return pen{profile: profile}
}

func (p *pen) color(sb *strings.Builder, c rgb) {
	if p.profile == colorNone || (p.active && c == p.last) {
		return
	}
	sb.WriteString(escape(p.profile, c))
	p.last, p.active = c, true
}

func (p *pen) done(sb *strings.Builder) {
	if !p.active {
		return
	}
	sb.WriteString("\x1b[0m")
	p.active = false
}
