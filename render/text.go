// Package render produces the still 128×128 stamp image handed to the animation
// pipeline, either by rasterizing a text message or by cropping and resampling a photo.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/esimov/stamp"
	"github.com/esimov/stamp/imop"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	// DefaultFontSize is the font size used when none is given, in pixels.
	DefaultFontSize = 48
	// fitRatio is the share of the canvas the text block may cover.
	fitRatio    = 0.85
	lineSpacing = 1.2
)

// Direction is the axis of a linear gradient.
type Direction string

const (
	Horizontal Direction = "horizontal"
	Vertical   Direction = "vertical"
	Diagonal   Direction = "diagonal"
)

// ParseDirection returns the gradient direction with the given name.
func ParseDirection(name string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(name))); d {
	case Horizontal, Vertical, Diagonal:
		return d, nil
	case "":
		return Horizontal, nil
	}
	return Horizontal, fmt.Errorf("unsupported gradient direction: %q", name)
}

// Gradient is a two stop linear gradient replacing the solid text color.
// Vertical and diagonal gradients also paint the background, unless it is transparent.
type Gradient struct {
	Enabled   bool
	Start     color.NRGBA
	End       color.NRGBA
	Direction Direction
}

// Shadow is a blurred drop shadow cast by the lettering.
type Shadow struct {
	Enabled bool
	Color   color.NRGBA
	Blur    float64
	OffsetX int
	OffsetY int
}

// Stroke outlines the lettering.
type Stroke struct {
	Enabled bool
	Color   color.NRGBA
	Width   int
}

// Text renders a centered, possibly multi-line text message.
type Text struct {
	Text string
	// FontPath points to a TrueType or OpenType font file.
	// The built-in Go Bold font is used when empty.
	FontPath string
	// FontSize is the requested font size in pixels. The text is scaled down
	// until it fits into 85% of the canvas.
	FontSize              float64
	Color                 color.NRGBA
	BackgroundColor       color.NRGBA
	BackgroundTransparent bool
	Gradient              Gradient
	Shadow                Shadow
	Stroke                Stroke
	// Rotation of the lettering around the canvas center, in degrees.
	Rotation float64
}

// NewText returns a text stamp with the default styling: black lettering
// on a transparent background.
func NewText(s string) *Text {
	black := color.NRGBA{A: 0xff}
	white := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

	return &Text{
		Text:                  s,
		FontSize:              DefaultFontSize,
		Color:                 black,
		BackgroundColor:       white,
		BackgroundTransparent: true,
		Gradient: Gradient{
			Start:     color.NRGBA{R: 0xff, A: 0xff},
			End:       color.NRGBA{B: 0xff, A: 0xff},
			Direction: Horizontal,
		},
		Shadow: Shadow{
			Color:   black,
			Blur:    4,
			OffsetX: 2,
			OffsetY: 2,
		},
		Stroke: Stroke{
			Color: white,
			Width: 2,
		},
	}
}

// Render rasterizes the text stamp.
func (t *Text) Render() (*stamp.PixelBuffer, error) {
	size := stamp.OutputSize
	out := stamp.NewPixelBuffer(size)
	if !t.BackgroundTransparent {
		t.paintBackground(out)
	}
	if t.Text == "" {
		return out, nil
	}

	f, err := t.loadFont()
	if err != nil {
		return nil, &stamp.SourceError{Op: "font", Err: err}
	}

	lines := strings.Split(t.Text, "\n")
	fontSize := t.FontSize
	if fontSize <= 0 {
		fontSize = DefaultFontSize
	}

	face, err := newFace(f, fontSize)
	if err != nil {
		return nil, &stamp.SourceError{Op: "font", Err: err}
	}
	// Auto-fit the text block.
	maxExtent := float64(size) * fitRatio
	scale := 1.0
	if w := maxLineWidth(face, lines); w > maxExtent {
		scale = maxExtent / w
	}
	if h := fontSize * float64(len(lines)) * lineSpacing; h > maxExtent {
		scale = math.Min(scale, maxExtent/h)
	}
	if scale < 1 {
		face.Close()
		fontSize *= scale
		if face, err = newFace(f, fontSize); err != nil {
			return nil, &stamp.SourceError{Op: "font", Err: err}
		}
	}
	defer face.Close()

	glyphs := glyphMask(face, lines, fontSize, size)
	silhouette := glyphs
	if t.Stroke.Enabled && t.Stroke.Width > 0 {
		silhouette = dilate(glyphs, t.Stroke.Width)
	}

	layer := stamp.NewPixelBuffer(size)
	if t.Shadow.Enabled {
		shadow := shift(silhouette, t.Shadow.OffsetX, t.Shadow.OffsetY)
		shadowImg := tint(shadow, solid(t.Shadow.Color))
		if t.Shadow.Blur > 0 {
			shadowImg = imaging.Blur(shadowImg, t.Shadow.Blur/2)
		}
		over(layer.Image(), shadowImg)
	}
	if t.Stroke.Enabled && t.Stroke.Width > 0 {
		over(layer.Image(), tint(silhouette, solid(t.Stroke.Color)))
	}

	fill := solid(t.Color)
	if t.Gradient.Enabled {
		c := float64(size) / 2
		switch t.Gradient.Direction {
		case Vertical:
			fill = linearGradient(c, 0, c, float64(size), t.Gradient.Start, t.Gradient.End)
		case Diagonal:
			fill = linearGradient(0, 0, float64(size), float64(size), t.Gradient.Start, t.Gradient.End)
		default:
			fill = linearGradient(0, c, float64(size), c, t.Gradient.Start, t.Gradient.End)
		}
	}
	over(layer.Image(), tint(glyphs, fill))

	if math.Mod(t.Rotation, 360) != 0 {
		layer = stamp.Composite(layer, stamp.FrameTransform{
			Rotation: t.Rotation,
			Scale:    1,
			Opacity:  1,
		}, stamp.Transparent())
	}
	over(out.Image(), layer.Image())

	return out, nil
}

func (t *Text) paintBackground(buf *stamp.PixelBuffer) {
	size := float64(buf.Side)
	if t.Gradient.Enabled && (t.Gradient.Direction == Vertical || t.Gradient.Direction == Diagonal) {
		x1 := 0.0
		if t.Gradient.Direction == Diagonal {
			x1 = size
		}
		paint := linearGradient(0, 0, x1, size, t.Gradient.Start, t.Gradient.End)
		for y := 0; y < buf.Side; y++ {
			for x := 0; x < buf.Side; x++ {
				buf.Set(x, y, paint(x, y))
			}
		}
		return
	}
	buf.Fill(t.BackgroundColor)
}

func (t *Text) loadFont() (*opentype.Font, error) {
	data := gobold.TTF
	if t.FontPath != "" {
		b, err := os.ReadFile(t.FontPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read the font file: %w", err)
		}
		data = b
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("unable to parse the font: %w", err)
	}
	return f, nil
}

func newFace(f *opentype.Font, size float64) (font.Face, error) {
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

func maxLineWidth(face font.Face, lines []string) float64 {
	var w float64
	for _, line := range lines {
		w = math.Max(w, fixedToFloat(font.MeasureString(face, line)))
	}
	return w
}

// glyphMask draws the lines centered on the canvas, each one vertically centered
// on its own line box.
func glyphMask(face font.Face, lines []string, fontSize float64, size int) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, size, size))
	m := face.Metrics()
	ascent, descent := fixedToFloat(m.Ascent), fixedToFloat(m.Descent)

	center := float64(size) / 2
	lineHeight := fontSize * lineSpacing
	startY := center - float64(len(lines)-1)*lineHeight/2

	d := &font.Drawer{Dst: mask, Src: image.Opaque, Face: face}
	for i, line := range lines {
		w := fixedToFloat(font.MeasureString(face, line))
		baseline := startY + float64(i)*lineHeight + (ascent-descent)/2
		d.Dot = fixed.Point26_6{
			X: floatToFixed(center - w/2),
			Y: floatToFixed(baseline),
		}
		d.DrawString(line)
	}
	return mask
}

// dilate grows the mask by a disk of radius r.
func dilate(src *image.Alpha, r int) *image.Alpha {
	b := src.Bounds()
	dst := image.NewAlpha(b)

	var disk []image.Point
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				disk = append(disk, image.Point{X: dx, Y: dy})
			}
		}
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var a uint8
			for _, p := range disk {
				px, py := x+p.X, y+p.Y
				if px < b.Min.X || py < b.Min.Y || px >= b.Max.X || py >= b.Max.Y {
					continue
				}
				if v := src.Pix[src.PixOffset(px, py)]; v > a {
					a = v
					if a == 0xff {
						break
					}
				}
			}
			dst.Pix[dst.PixOffset(x, y)] = a
		}
	}
	return dst
}

// shift translates the mask by (dx, dy).
func shift(src *image.Alpha, dx, dy int) *image.Alpha {
	b := src.Bounds()
	dst := image.NewAlpha(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sx, sy := x-dx, y-dy
			if sx < b.Min.X || sy < b.Min.Y || sx >= b.Max.X || sy >= b.Max.Y {
				continue
			}
			dst.Pix[dst.PixOffset(x, y)] = src.Pix[src.PixOffset(sx, sy)]
		}
	}
	return dst
}

// paintFn returns the paint color at a pixel.
type paintFn func(x, y int) color.NRGBA

func solid(c color.NRGBA) paintFn {
	return func(int, int) color.NRGBA { return c }
}

// linearGradient interpolates between start and end along the (x0, y0) -> (x1, y1) axis.
func linearGradient(x0, y0, x1, y1 float64, start, end color.NRGBA) paintFn {
	dx, dy := x1-x0, y1-y0
	length := dx*dx + dy*dy

	return func(x, y int) color.NRGBA {
		var t float64
		if length > 0 {
			px, py := float64(x)+0.5-x0, float64(y)+0.5-y0
			t = math.Max(0, math.Min(1, (px*dx+py*dy)/length))
		}
		lerp := func(a, b uint8) uint8 {
			return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
		}
		return color.NRGBA{
			R: lerp(start.R, end.R),
			G: lerp(start.G, end.G),
			B: lerp(start.B, end.B),
			A: lerp(start.A, end.A),
		}
	}
}

// tint colors the mask with the given paint.
func tint(mask *image.Alpha, paint paintFn) *image.NRGBA {
	b := mask.Bounds()
	dst := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			m := mask.Pix[mask.PixOffset(x, y)]
			if m == 0 {
				continue
			}
			c := paint(x, y)
			i := dst.PixOffset(x, y)
			dst.Pix[i+0] = c.R
			dst.Pix[i+1] = c.G
			dst.Pix[i+2] = c.B
			dst.Pix[i+3] = uint8((uint32(c.A)*uint32(m) + 127) / 255)
		}
	}
	return dst
}

// over lays src over dst in place.
func over(dst, src *image.NRGBA) {
	op := imop.InitOp()
	op.Draw(&imop.Bitmap{Img: dst}, src, dst, 1)
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func floatToFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}
