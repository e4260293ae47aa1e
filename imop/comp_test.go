package imop

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComp_Basic(t *testing.T) {
	assert := assert.New(t)

	op := InitOp()
	assert.Equal(SrcOver, op.Get())

	assert.NoError(op.Set(Clear))
	assert.Equal(Clear, op.Get())

	err := op.Set("unsupported_composite_operation")
	assert.Error(err)
	assert.Equal(Clear, op.Get())

	assert.NoError(op.Set(Dst))
	assert.Equal(Dst, op.Get())
}

func TestComp_Ops(t *testing.T) {
	transparent := color.NRGBA{R: 0, G: 0, B: 0, A: 0}
	cyan := color.NRGBA{R: 33, G: 150, B: 243, A: 255}
	magenta := color.NRGBA{R: 233, G: 30, B: 99, A: 255}

	rect := image.Rect(0, 0, 10, 10)
	source := image.NewNRGBA(rect)
	backdrop := image.NewNRGBA(rect)

	draw.Draw(source, image.Rect(0, 4, 6, 10), &image.Uniform{cyan}, image.Point{}, draw.Src)
	draw.Draw(backdrop, image.Rect(4, 0, 10, 6), &image.Uniform{magenta}, image.Point{}, draw.Src)

	// Pick three representative points/pixels from the generated image output.
	// Depending on the applied composition operation the colors of the
	// selected pixels should be the source color, the destination color or transparent.
	testCases := []struct {
		op         Op
		topRight   color.NRGBA
		bottomLeft color.NRGBA
		center     color.NRGBA
	}{
		{Clear, transparent, transparent, transparent},
		{Copy, transparent, cyan, cyan},
		{Dst, magenta, transparent, magenta},
		{SrcOver, magenta, cyan, cyan},
		{DstOver, magenta, cyan, magenta},
		{SrcIn, transparent, transparent, cyan},
		{DstIn, transparent, transparent, magenta},
		{SrcOut, transparent, cyan, transparent},
		{DstOut, magenta, transparent, transparent},
		{SrcAtop, magenta, transparent, cyan},
		{DstAtop, transparent, cyan, magenta},
		{Xor, magenta, cyan, transparent},
	}

	for _, tc := range testCases {
		t.Run(string(tc.op), func(t *testing.T) {
			assert := assert.New(t)
			op := InitOp()
			assert.NoError(op.Set(tc.op))

			bmp := op.Draw(nil, source, backdrop, 1)

			assert.EqualValues(tc.topRight, bmp.Img.At(9, 0))
			assert.EqualValues(tc.bottomLeft, bmp.Img.At(0, 9))
			assert.EqualValues(tc.center, bmp.Img.At(5, 5))
		})
	}
}

func TestComp_Opacity(t *testing.T) {
	assert := assert.New(t)

	rect := image.Rect(0, 0, 1, 1)
	source := image.NewNRGBA(rect)
	backdrop := image.NewNRGBA(rect)
	draw.Draw(source, rect, &image.Uniform{color.NRGBA{R: 255, G: 255, B: 255, A: 255}}, image.Point{}, draw.Src)
	draw.Draw(backdrop, rect, &image.Uniform{color.NRGBA{A: 255}}, image.Point{}, draw.Src)

	op := InitOp()
	bmp := NewBitmap(rect)

	op.Draw(bmp, source, backdrop, 0.5)
	assert.EqualValues([]uint8{128, 128, 128, 255}, bmp.Img.Pix)

	op.Draw(bmp, source, backdrop, 0)
	assert.EqualValues([]uint8{0, 0, 0, 255}, bmp.Img.Pix)

	// Fading over a transparent backdrop keeps the color but lowers the alpha.
	op.Draw(bmp, source, image.NewNRGBA(rect), 0.2)
	assert.EqualValues([]uint8{255, 255, 255, 51}, bmp.Img.Pix)
}
