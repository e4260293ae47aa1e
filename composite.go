package stamp

import (
	"image"
	"image/color"
	"math"

	"github.com/esimov/stamp/imop"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Backing is the fill placed underneath every composited frame.
type Backing struct {
	Color color.NRGBA
	Solid bool
}

// Transparent returns a fully transparent backing.
func Transparent() Backing {
	return Backing{}
}

// Solid returns an opaque backing of the given color.
func Solid(c color.NRGBA) Backing {
	c.A = 0xff
	return Backing{Color: c, Solid: true}
}

// Fill returns the backing color, which is fully transparent for a transparent backing.
func (b Backing) Fill() color.NRGBA {
	if !b.Solid {
		return color.NRGBA{}
	}
	return b.Color
}

// Composite draws src, transformed by t, over the backing fill and returns the result
// as a new buffer of the same size. The source is rotated and scaled around the buffer
// center, then moved by the transform offset. Samples falling outside the source
// reveal the backing. Bilinear interpolation is used for every non trivial transform.
func Composite(src *PixelBuffer, t FrameTransform, backing Backing) *PixelBuffer {
	out := NewPixelBuffer(src.Side)
	bg := NewPixelBuffer(src.Side)
	bg.Fill(backing.Fill())

	// The hue shift only affects the stamp, never the backing.
	if t.HueRotate != 0 {
		src = HueRotate(src, t.HueRotate)
	}
	layer := transformLayer(src, t)

	op := imop.InitOp()
	op.Draw(&imop.Bitmap{Img: out.Image()}, layer, bg.Image(), t.Opacity)

	return out
}

// transformLayer returns the geometrically transformed source on a transparent layer.
func transformLayer(src *PixelBuffer, t FrameTransform) *image.NRGBA {
	img := src.Image()
	if t.OffsetX == 0 && t.OffsetY == 0 && t.Scale == 1 && t.Rotation == 0 {
		return img
	}
	if t.Scale <= 0 || math.IsNaN(t.Scale) {
		return image.NewNRGBA(img.Bounds())
	}

	dst := image.NewRGBA(img.Bounds())
	draw.BiLinear.Transform(dst, affine(t, float64(src.Side)/2), img, img.Bounds(), draw.Src, nil)

	return rgbaToNRGBA(dst)
}

// affine builds the source to destination matrix of a frame transform:
//
//	dst = c + R(θ)·s·(p - c + o)
//
// where c is the center, s the uniform scale and o the frame offset.
// A positive rotation turns clockwise on the y-down raster.
func affine(t FrameTransform, center float64) f64.Aff3 {
	rad := t.Rotation * math.Pi / 180
	sin, cos := math.Sincos(rad)
	a, b := t.Scale*cos, -t.Scale*sin
	d, e := t.Scale*sin, t.Scale*cos

	px := t.OffsetX - center
	py := t.OffsetY - center

	return f64.Aff3{
		a, b, center + a*px + b*py,
		d, e, center + d*px + e*py,
	}
}

// HueRotate returns a copy of buf with the hue of every visible pixel rotated
// by the given degrees in HSL space. Fully transparent pixels are left untouched.
func HueRotate(buf *PixelBuffer, degrees float64) *PixelBuffer {
	out := buf.Clone()
	degrees = math.Mod(degrees, 360)
	if degrees == 0 {
		return out
	}

	cache := make(map[[3]uint8][3]uint8)
	for i := 0; i < len(out.Pix); i += 4 {
		if out.Pix[i+3] == 0 {
			continue
		}
		key := [3]uint8{out.Pix[i], out.Pix[i+1], out.Pix[i+2]}
		rgb, ok := cache[key]
		if !ok {
			rgb = rotateHue(key, degrees)
			cache[key] = rgb
		}
		out.Pix[i+0] = rgb[0]
		out.Pix[i+1] = rgb[1]
		out.Pix[i+2] = rgb[2]
	}
	return out
}

func rotateHue(rgb [3]uint8, degrees float64) [3]uint8 {
	c := colorful.Color{
		R: float64(rgb[0]) / 255,
		G: float64(rgb[1]) / 255,
		B: float64(rgb[2]) / 255,
	}
	h, s, l := c.Hsl()
	if s == 0 {
		return rgb
	}
	h = math.Mod(h+degrees, 360)
	if h < 0 {
		h += 360
	}
	r, g, b := colorful.Hsl(h, s, l).Clamped().RGB255()

	return [3]uint8{r, g, b}
}
