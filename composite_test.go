package stamp

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	red   = color.NRGBA{R: 0xff, A: 0xff}
	green = color.NRGBA{G: 0xff, A: 0xff}
	white = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// squareStamp returns a transparent stamp with an opaque square of color c.
func squareStamp(c color.NRGBA, x0, y0, x1, y1 int) *PixelBuffer {
	buf := NewPixelBuffer(OutputSize)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			buf.Set(x, y, c)
		}
	}
	return buf
}

func TestComposite_PreservesDimensions(t *testing.T) {
	src := squareStamp(red, 32, 32, 96, 96)
	for _, s := range Styles() {
		for i := 0; i < DefaultFrameCount; i++ {
			out := Composite(src, Transform(s, i, DefaultFrameCount), Solid(white))
			assert.Equal(t, OutputSize, out.Side)
			assert.True(t, out.Valid())
		}
	}
}

func TestComposite_IdentityCopiesSource(t *testing.T) {
	src := squareStamp(red, 10, 10, 50, 50)
	src.Set(60, 60, color.NRGBA{R: 0x20, G: 0x40, B: 0x60, A: 0x80})

	out := Composite(src, Identity(), Transparent())
	assert.Equal(t, src.Pix, out.Pix)
	// the source is left untouched
	assert.Equal(t, red, src.At(10, 10))
}

func TestComposite_SolidBacking(t *testing.T) {
	src := squareStamp(red, 0, 0, 64, 128)

	out := Composite(src, Identity(), Solid(white))
	assert.Equal(t, red, out.At(10, 10))
	assert.Equal(t, white, out.At(100, 10))
	assert.False(t, out.HasTransparency())

	faded := Composite(src, FrameTransform{Scale: 1, Opacity: 0}, Solid(white))
	assert.Equal(t, white, faded.At(10, 10))

	blank := Composite(src, FrameTransform{Scale: 0, Opacity: 1}, Solid(white))
	assert.Equal(t, white, blank.At(10, 10))
}

func TestComposite_Offset(t *testing.T) {
	assert := assert.New(t)
	src := squareStamp(red, 10, 10, 20, 20)

	out := Composite(src, FrameTransform{OffsetX: 10, Scale: 1, Opacity: 1}, Transparent())

	moved := out.At(25, 15)
	assert.True(moved.R > 200 && moved.A > 200, "expected a red pixel, got %v", moved)
	assert.True(out.At(12, 15).A < 50, "expected a transparent pixel, got %v", out.At(12, 15))
}

func TestComposite_RotateKeepsCenter(t *testing.T) {
	src := squareStamp(red, 54, 54, 74, 74)

	for _, deg := range []float64{15, 45, 90, 180} {
		out := Composite(src, FrameTransform{Rotation: deg, Scale: 1, Opacity: 1}, Transparent())
		assert.Equal(t, red, out.At(64, 64))
		assert.Equal(t, uint8(0), out.At(5, 5).A)
	}
}

func TestComposite_HueRotate(t *testing.T) {
	assert := assert.New(t)

	buf := NewPixelBuffer(2)
	buf.Set(0, 0, red)
	buf.Set(1, 0, color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff})
	buf.Set(0, 1, color.NRGBA{R: 0xff, A: 0x00})

	out := HueRotate(buf, 120)
	assert.Equal(green, out.At(0, 0))
	assert.Equal(color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}, out.At(1, 0))
	assert.Equal(color.NRGBA{R: 0xff, A: 0x00}, out.At(0, 1))
	assert.Equal(red, buf.At(0, 0))

	assert.Equal(buf.Pix, HueRotate(buf, 360).Pix)

	rainbow := Composite(squareStamp(red, 0, 0, 128, 128), FrameTransform{Scale: 1, Opacity: 1, HueRotate: 120}, Transparent())
	assert.Equal(green, rainbow.At(64, 64))

	// a solid backing keeps its color while the stamp cycles through the hues
	blue := color.NRGBA{B: 0xff, A: 0xff}
	framed := Composite(squareStamp(red, 32, 32, 96, 96), Transform(Rainbow, 4, DefaultFrameCount), Solid(blue))
	assert.Equal(green, framed.At(64, 64))
	assert.Equal(blue, framed.At(5, 5))
}
