package colorize

import (
	"math"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

// Palette names
const (
	PaletteJet  = "jet"
	PaletteHSV  = "hsv"
	PaletteGray = "gray"
)

// Palette maps a byte intensity to an RGB triple.
type Palette [256][3]uint8

var palettes = map[string]*Palette{
	PaletteJet:  jetPalette(),
	PaletteHSV:  hsvPalette(),
	PaletteGray: grayPalette(),
}

// PaletteNames returns the sorted list of palette names.
func PaletteNames() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named palette, or nil if unknown.
func Lookup(name string) *Palette {
	return palettes[name]
}

// jetPalette is the classic rainbow: dark blue at 0, through cyan, yellow,
// to dark red at 255.
func jetPalette() *Palette {
	var p Palette
	for i := range p {
		x := float64(i) / 255
		p[i] = [3]uint8{
			unit8(1.5 - math.Abs(4*x-3)),
			unit8(1.5 - math.Abs(4*x-2)),
			unit8(1.5 - math.Abs(4*x-1)),
		}
	}
	return &p
}

// hsvPalette sweeps hue from 240 (blue, near) to 0 (red, far) at full
// saturation and value.
func hsvPalette() *Palette {
	var p Palette
	for i := range p {
		hue := 240 * (1 - float64(i)/255)
		r, g, b := colorful.Hsv(hue, 1, 1).Clamped().RGB255()
		p[i] = [3]uint8{r, g, b}
	}
	return &p
}

func grayPalette() *Palette {
	var p Palette
	for i := range p {
		v := uint8(i)
		p[i] = [3]uint8{v, v, v}
	}
	return &p
}

// unit8 clamps f to [0,1] and scales to a byte.
func unit8(f float64) uint8 {
	if f <= 0 {
		return 0
	}
	if f >= 1 {
		return 255
	}
	return uint8(math.Round(f * 255))
}
