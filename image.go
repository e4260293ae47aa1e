package stamp

import (
	"fmt"
	"image"
	"image/color"
)

// OutputSize is the side length of every generated stamp.
const OutputSize = 128

// AlphaThreshold is the alpha value below which a pixel counts as transparent
// once the colors are reduced to a palette.
const AlphaThreshold = 128

// PixelBuffer is a square RGBA raster with straight (non-premultiplied) alpha.
// Pixels are stored row-major starting from the top-left corner, four bytes per pixel.
type PixelBuffer struct {
	Pix  []uint8
	Side int
}

// NewPixelBuffer returns a fully transparent buffer of the given side length.
func NewPixelBuffer(side int) *PixelBuffer {
	if side < 0 {
		side = 0
	}
	return &PixelBuffer{
		Pix:  make([]uint8, 4*side*side),
		Side: side,
	}
}

// FromImage converts a square image of any type into a PixelBuffer.
func FromImage(img image.Image) (*PixelBuffer, error) {
	b := img.Bounds()
	if b.Dx() != b.Dy() {
		return nil, fmt.Errorf("source image must be square, got %dx%d", b.Dx(), b.Dy())
	}
	nrgba := imgToNRGBA(img)
	buf := NewPixelBuffer(b.Dx())
	copy(buf.Pix, nrgba.Pix)

	return buf, nil
}

// Image exposes the buffer as an *image.NRGBA sharing the same pixel slice.
func (b *PixelBuffer) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Pix,
		Stride: 4 * b.Side,
		Rect:   image.Rect(0, 0, b.Side, b.Side),
	}
}

// Clone returns a deep copy of the buffer.
func (b *PixelBuffer) Clone() *PixelBuffer {
	dst := &PixelBuffer{
		Pix:  make([]uint8, len(b.Pix)),
		Side: b.Side,
	}
	copy(dst.Pix, b.Pix)
	return dst
}

// Valid reports whether the pixel slice matches the declared side length.
func (b *PixelBuffer) Valid() bool {
	return b != nil && b.Side >= 0 && len(b.Pix) == 4*b.Side*b.Side
}

// At returns the color of the pixel at (x, y).
func (b *PixelBuffer) At(x, y int) color.NRGBA {
	i := 4 * (y*b.Side + x)
	return color.NRGBA{R: b.Pix[i], G: b.Pix[i+1], B: b.Pix[i+2], A: b.Pix[i+3]}
}

// Set changes the color of the pixel at (x, y).
func (b *PixelBuffer) Set(x, y int, c color.NRGBA) {
	i := 4 * (y*b.Side + x)
	b.Pix[i+0] = c.R
	b.Pix[i+1] = c.G
	b.Pix[i+2] = c.B
	b.Pix[i+3] = c.A
}

// Fill paints every pixel with c.
func (b *PixelBuffer) Fill(c color.NRGBA) {
	for i := 0; i < len(b.Pix); i += 4 {
		b.Pix[i+0] = c.R
		b.Pix[i+1] = c.G
		b.Pix[i+2] = c.B
		b.Pix[i+3] = c.A
	}
}

// HasTransparency reports whether any pixel falls below AlphaThreshold.
func (b *PixelBuffer) HasTransparency() bool {
	for i := 3; i < len(b.Pix); i += 4 {
		if b.Pix[i] < AlphaThreshold {
			return true
		}
	}
	return false
}

// imgToNRGBA converts any image type to *image.NRGBA with min-point at (0, 0).
func imgToNRGBA(img image.Image) *image.NRGBA {
	srcBounds := img.Bounds()
	srcMinX := srcBounds.Min.X
	srcMinY := srcBounds.Min.Y

	dstBounds := srcBounds.Sub(srcBounds.Min)
	dstW := dstBounds.Dx()
	dstH := dstBounds.Dy()
	dst := image.NewNRGBA(dstBounds)

	switch src := img.(type) {
	case *image.NRGBA:
		rowSize := dstW * 4
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.PixOffset(0, dstY)
			si := src.PixOffset(srcMinX, srcMinY+dstY)
			copy(dst.Pix[di:di+rowSize], src.Pix[si:si+rowSize])
		}
	case *image.YCbCr:
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.PixOffset(0, dstY)
			for dstX := 0; dstX < dstW; dstX++ {
				srcX := srcMinX + dstX
				srcY := srcMinY + dstY
				siy := src.YOffset(srcX, srcY)
				sic := src.COffset(srcX, srcY)
				r, g, b := color.YCbCrToRGB(src.Y[siy], src.Cb[sic], src.Cr[sic])
				dst.Pix[di+0] = r
				dst.Pix[di+1] = g
				dst.Pix[di+2] = b
				dst.Pix[di+3] = 0xff
				di += 4
			}
		}
	default:
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.PixOffset(0, dstY)
			for dstX := 0; dstX < dstW; dstX++ {
				c := color.NRGBAModel.Convert(img.At(srcMinX+dstX, srcMinY+dstY)).(color.NRGBA)
				dst.Pix[di+0] = c.R
				dst.Pix[di+1] = c.G
				dst.Pix[di+2] = c.B
				dst.Pix[di+3] = c.A
				di += 4
			}
		}
	}

	return dst
}

// rgbaToNRGBA converts a premultiplied RGBA image into a new straight alpha image.
func rgbaToNRGBA(src *image.RGBA) *image.NRGBA {
	dst := image.NewNRGBA(src.Bounds())
	for i := 0; i < len(src.Pix); i += 4 {
		a := src.Pix[i+3]
		if a == 0 {
			continue
		}
		if a == 0xff {
			copy(dst.Pix[i:i+4], src.Pix[i:i+4])
			continue
		}
		dst.Pix[i+0] = unpremultiply(src.Pix[i+0], a)
		dst.Pix[i+1] = unpremultiply(src.Pix[i+1], a)
		dst.Pix[i+2] = unpremultiply(src.Pix[i+2], a)
		dst.Pix[i+3] = a
	}
	return dst
}

func unpremultiply(c, a uint8) uint8 {
	v := (uint32(c)*0xff + uint32(a)/2) / uint32(a)
	if v > 0xff {
		v = 0xff
	}
	return uint8(v)
}
