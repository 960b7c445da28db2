// Package colors assigns stable display colors to label numbers.
//
// The first fifty labels draw from a fixed high-contrast palette; later labels
// receive generated colors spread by golden-angle hue stepping that avoid
// sitting too close to the palette in hue or RGB distance. Assignment is a
// pure function of the label number, so colors survive reloads without being
// stored.
package colors

import (
	"fmt"
	"math"
)

// Palette is the fixed set of high-contrast colors assigned to the first
// fifty label numbers, in order.
var Palette = [50]string{
	"#E6194B", "#3CB44B", "#FFE119", "#4363D8", "#F58231",
	"#911EB4", "#46F0F0", "#F032E6", "#BCF60C", "#FABEBE",
	"#008080", "#E6BEFF", "#9A6324", "#FFFAC8", "#800000",
	"#AAFFC3", "#808000", "#FFD8B1", "#000075", "#808080",
	"#000000", "#FF4500", "#1E90FF", "#32CD32", "#FFD700",
	"#8A2BE2", "#00CED1", "#FF1493", "#7FFF00", "#FFB6C1",
	"#20B2AA", "#BA55D3", "#B8860B", "#F0E68C", "#A52A2A",
	"#2E8B57", "#BDB76B", "#D2691E", "#4169E1", "#DC143C",
	"#00FA9A", "#9400D3", "#FF8C00", "#2F4F4F", "#ADFF2F",
	"#C71585", "#00BFFF", "#228B22", "#FF6347", "#6A5ACD",
}

// Golden angle in degrees; disperses generated hues evenly on the circle.
const goldenAngle = 137.50776405003785

// ForLabel returns the hex color for a label number. Numbers 1..50 map
// directly into the palette; higher numbers get generated colors. Numbers
// below 1 fall back to the first palette entry.
func ForLabel(number int) string {
	if number < 1 {
		return Palette[0]
	}
	if number <= len(Palette) {
		return Palette[number-1]
	}
	return generated(number - len(Palette) - 1)
}

type rgb struct {
	r, g, b int
}

func (c rgb) hex() string {
	return fmt.Sprintf("#%02X%02X%02X", clampByte(c.r), clampByte(c.g), clampByte(c.b))
}

func clampByte(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// generated produces a vivid, deterministic color for generation index >= 0,
// keeping a minimum hue and RGB distance from the fixed palette.
func generated(genIndex int) string {
	baseHues, baseRGBs := paletteMetrics()

	minHue := 18.0
	minRGB := 85.0
	base := (float64(genIndex) + 1.0) * goldenAngle

	var best rgb
	bestScore := -1.0

	for attempt := 0; attempt < 220; attempt++ {
		hue := math.Mod(base+float64(attempt)*(goldenAngle/3.0), 360.0)

		// Small deterministic S/V variation keeps candidates vivid but distinct.
		satCycle := float64((genIndex + attempt*7) % 3)
		valCycle := float64((genIndex + attempt*11) % 3)
		s := 0.74 + 0.08*(satCycle/2.0)
		v := 0.88 + 0.07*(valCycle/2.0)

		candidate := hsvToRGB(hue, s, v)

		hueDist := 360.0
		for _, h := range baseHues {
			if d := hueDistance(hue, h); d < hueDist {
				hueDist = d
			}
		}
		rgbDist := minRGBDistance(candidate, baseRGBs)

		if hueDist >= minHue && rgbDist >= minRGB {
			return candidate.hex()
		}

		score := hueDist*2.0 + rgbDist/2.0
		if score > bestScore {
			bestScore = score
			best = candidate
		}

		switch attempt {
		case 60, 120, 180:
			minHue = math.Max(12.0, minHue-2.0)
			minRGB = math.Max(60.0, minRGB-5.0)
		}
	}
	return best.hex()
}

var (
	cachedHues []float64
	cachedRGBs []rgb
)

func paletteMetrics() ([]float64, []rgb) {
	if cachedHues != nil {
		return cachedHues, cachedRGBs
	}
	rgbs := make([]rgb, 0, len(Palette))
	hues := make([]float64, 0, len(Palette))
	for _, hex := range Palette {
		c := hexToRGB(hex)
		rgbs = append(rgbs, c)
		h, s, _ := rgbToHSV(c)
		// Near-grayscale palette entries are ignored for hue avoidance.
		if s >= 0.18 {
			hues = append(hues, h)
		}
	}
	cachedHues, cachedRGBs = hues, rgbs
	return cachedHues, cachedRGBs
}

func hexToRGB(hex string) rgb {
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "#%02X%02X%02X", &r, &g, &b); err != nil {
		return rgb{}
	}
	return rgb{r, g, b}
}

func rgbToHSV(c rgb) (h, s, v float64) {
	rf := float64(c.r) / 255.0
	gf := float64(c.g) / 255.0
	bf := float64(c.b) / 255.0

	mx := math.Max(rf, math.Max(gf, bf))
	mn := math.Min(rf, math.Min(gf, bf))
	diff := mx - mn

	switch {
	case diff <= 1e-12:
		h = 0
	case mx == rf:
		h = math.Mod(60.0*((gf-bf)/diff)+360.0, 360.0)
	case mx == gf:
		h = math.Mod(60.0*((bf-rf)/diff)+120.0, 360.0)
	default:
		h = math.Mod(60.0*((rf-gf)/diff)+240.0, 360.0)
	}

	if mx > 1e-12 {
		s = diff / mx
	}
	v = mx
	return h, s, v
}

func hsvToRGB(h, s, v float64) rgb {
	h = math.Mod(h, 360.0)
	s = math.Max(0, math.Min(s, 1))
	v = math.Max(0, math.Min(v, 1))

	c := v * s
	x := c * (1.0 - math.Abs(math.Mod(h/60.0, 2.0)-1.0))
	m := v - c

	var rp, gp, bp float64
	switch {
	case h < 60:
		rp, gp, bp = c, x, 0
	case h < 120:
		rp, gp, bp = x, c, 0
	case h < 180:
		rp, gp, bp = 0, c, x
	case h < 240:
		rp, gp, bp = 0, x, c
	case h < 300:
		rp, gp, bp = x, 0, c
	default:
		rp, gp, bp = c, 0, x
	}

	return rgb{
		r: int(math.Round((rp + m) * 255.0)),
		g: int(math.Round((gp + m) * 255.0)),
		b: int(math.Round((bp + m) * 255.0)),
	}
}

func hueDistance(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360.0)
	return math.Min(d, 360.0-d)
}

func minRGBDistance(c rgb, others []rgb) float64 {
	best := math.Inf(1)
	for _, o := range others {
		dr := float64(c.r - o.r)
		dg := float64(c.g - o.g)
		db := float64(c.b - o.b)
		if d := math.Sqrt(dr*dr + dg*dg + db*db); d < best {
			best = d
		}
	}
	if math.IsInf(best, 1) {
		return 0
	}
	return best
}
