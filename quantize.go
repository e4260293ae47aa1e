package stamp

import (
	"fmt"
	"image/color"
	"sort"
	"strings"
)

// MaxPaletteSize is the largest color table a GIF stream can carry.
const MaxPaletteSize = 256

// Palette is an ordered color table. An entry with zero alpha is the transparent
// sentinel; every other entry is treated as an opaque RGB color.
type Palette []color.NRGBA

// PalettePolicy selects how the colors of an animation are reduced.
type PalettePolicy int

const (
	// PaletteGlobal pools the pixels of every frame into one shared palette.
	PaletteGlobal PalettePolicy = iota
	// PalettePerFrame quantizes every frame on its own. The first frame's palette
	// becomes the global color table, the others ship a local color table.
	PalettePerFrame
)

func (p PalettePolicy) String() string {
	switch p {
	case PaletteGlobal:
		return "global"
	case PalettePerFrame:
		return "frame"
	}
	return fmt.Sprintf("PalettePolicy(%d)", int(p))
}

// ParsePalettePolicy returns the palette policy with the given name.
func ParsePalettePolicy(name string) (PalettePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "global":
		return PaletteGlobal, nil
	case "frame", "per-frame", "local":
		return PalettePerFrame, nil
	}
	return PaletteGlobal, fmt.Errorf("unsupported palette policy: %q", name)
}

// TransparentIndex returns the position of the transparent sentinel, if any.
func (p Palette) TransparentIndex() (uint8, bool) {
	for i, c := range p {
		if c.A == 0 {
			return uint8(i), true
		}
	}
	return 0, false
}

// Validate checks the palette size and the uniqueness of the transparent sentinel.
func (p Palette) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("%w: empty palette", ErrPaletteOverflow)
	}
	if len(p) > MaxPaletteSize {
		return fmt.Errorf("%w: %d entries", ErrPaletteOverflow, len(p))
	}
	transparent := 0
	for _, c := range p {
		if c.A == 0 {
			transparent++
		}
	}
	if transparent > 1 {
		return fmt.Errorf("%w: %d transparent entries", ErrPaletteOverflow, transparent)
	}
	return nil
}

// ColorPalette converts the palette to the standard library representation,
// matching what image/gif decodes from the color table.
func (p Palette) ColorPalette() color.Palette {
	cp := make(color.Palette, len(p))
	for i, c := range p {
		if c.A == 0 {
			cp[i] = color.RGBA{}
			continue
		}
		cp[i] = color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
	}
	return cp
}

// colorCount is a histogram bucket of an opaque color.
type colorCount struct {
	key uint32
	n   int
}

func (c colorCount) channel(ch int) uint8 {
	return uint8(c.key >> (16 - 8*uint(ch)))
}

// Quantize reduces the colors of all the buffers to a single palette of at most 256
// entries using median cut. Pixels with alpha below AlphaThreshold are transparent
// regardless of their RGB value; when there is at least one, the palette reserves
// index 0 for the transparent sentinel. The output is stable for a constant input.
func Quantize(buffers []*PixelBuffer) Palette {
	colors, transparent := histogram(buffers)

	maxColors := MaxPaletteSize
	var p Palette
	if transparent {
		p = append(p, color.NRGBA{})
		maxColors--
	}
	p = append(p, medianCut(colors, maxColors)...)

	if len(p) == 0 {
		// Nothing to encode: keep a valid single entry table.
		p = Palette{{A: 0xff}}
	}
	return p
}

// QuantizeFrames returns the palette of every buffer under the given policy. With
// PaletteGlobal all the entries share one palette pooled from every buffer.
func QuantizeFrames(buffers []*PixelBuffer, policy PalettePolicy) []Palette {
	palettes := make([]Palette, len(buffers))
	if policy == PalettePerFrame {
		for i, buf := range buffers {
			palettes[i] = Quantize([]*PixelBuffer{buf})
		}
		return palettes
	}
	p := Quantize(buffers)
	for i := range palettes {
		palettes[i] = p
	}
	return palettes
}

// histogram collects the opaque colors of every buffer, sorted by color key.
func histogram(buffers []*PixelBuffer) ([]colorCount, bool) {
	var transparent bool
	counts := make(map[uint32]int)

	for _, buf := range buffers {
		if buf == nil {
			continue
		}
		for i := 0; i+3 < len(buf.Pix); i += 4 {
			if buf.Pix[i+3] < AlphaThreshold {
				transparent = true
				continue
			}
			key := uint32(buf.Pix[i])<<16 | uint32(buf.Pix[i+1])<<8 | uint32(buf.Pix[i+2])
			counts[key]++
		}
	}

	colors := make([]colorCount, 0, len(counts))
	for k, n := range counts {
		colors = append(colors, colorCount{key: k, n: n})
	}
	sort.Slice(colors, func(i, j int) bool {
		return colors[i].key < colors[j].key
	})
	return colors, transparent
}

// box is a median cut partition of the color histogram.
type box struct {
	colors []colorCount
	total  int
	// channel with the widest spread and its extent
	axis   int
	extent int
}

func newBox(colors []colorCount) box {
	b := box{colors: colors}
	var lo, hi [3]int
	for ch := 0; ch < 3; ch++ {
		lo[ch], hi[ch] = 255, 0
	}
	for _, c := range colors {
		b.total += c.n
		for ch := 0; ch < 3; ch++ {
			v := int(c.channel(ch))
			if v < lo[ch] {
				lo[ch] = v
			}
			if v > hi[ch] {
				hi[ch] = v
			}
		}
	}
	for ch := 0; ch < 3; ch++ {
		if e := hi[ch] - lo[ch]; e > b.extent {
			b.axis, b.extent = ch, e
		}
	}
	return b
}

// split divides the box at the weighted median of its widest channel.
func (b box) split() (box, box) {
	colors := b.colors
	axis := b.axis
	sort.Slice(colors, func(i, j int) bool {
		ci, cj := colors[i].channel(axis), colors[j].channel(axis)
		if ci != cj {
			return ci < cj
		}
		return colors[i].key < colors[j].key
	})

	half := b.total / 2
	sum, m := 0, 1
	for i, c := range colors {
		sum += c.n
		if sum >= half {
			m = i + 1
			break
		}
	}
	if m >= len(colors) {
		m = len(colors) - 1
	}
	if m < 1 {
		m = 1
	}
	return newBox(colors[:m]), newBox(colors[m:])
}

// mean returns the population weighted average color of the box.
func (b box) mean() color.NRGBA {
	var sum [3]int
	for _, c := range b.colors {
		for ch := 0; ch < 3; ch++ {
			sum[ch] += int(c.channel(ch)) * c.n
		}
	}
	half := b.total / 2
	return color.NRGBA{
		R: uint8((sum[0] + half) / b.total),
		G: uint8((sum[1] + half) / b.total),
		B: uint8((sum[2] + half) / b.total),
		A: 0xff,
	}
}

// medianCut reduces the histogram to at most maxColors representative colors,
// ordered by decreasing population.
func medianCut(colors []colorCount, maxColors int) []color.NRGBA {
	if len(colors) == 0 || maxColors <= 0 {
		return nil
	}

	boxes := []box{newBox(colors)}
	if len(colors) > maxColors {
		for len(boxes) < maxColors {
			idx := -1
			for i, b := range boxes {
				if len(b.colors) < 2 {
					continue
				}
				if idx < 0 || b.extent > boxes[idx].extent ||
					(b.extent == boxes[idx].extent && b.total > boxes[idx].total) {
					idx = i
				}
			}
			if idx < 0 {
				break
			}
			lo, hi := boxes[idx].split()
			boxes[idx] = lo
			boxes = append(boxes, hi)
		}
	} else {
		boxes = boxes[:0]
		for _, c := range colors {
			boxes = append(boxes, newBox([]colorCount{c}))
		}
	}

	type entry struct {
		c color.NRGBA
		n int
	}
	entries := make([]entry, 0, len(boxes))
	for _, b := range boxes {
		entries = append(entries, entry{c: b.mean(), n: b.total})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].n != entries[j].n {
			return entries[i].n > entries[j].n
		}
		ki := uint32(entries[i].c.R)<<16 | uint32(entries[i].c.G)<<8 | uint32(entries[i].c.B)
		kj := uint32(entries[j].c.R)<<16 | uint32(entries[j].c.G)<<8 | uint32(entries[j].c.B)
		return ki < kj
	})

	out := make([]color.NRGBA, len(entries))
	for i, e := range entries {
		out[i] = e.c
	}
	return out
}
