package stamp

import (
	"bytes"
	"image/color"
	"image/gif"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGIF_FrameDelay(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		speed, ms, cs int
	}{
		{1, 200, 20},
		{5, 120, 12},
		{10, 20, 2},
		{0, 200, 20},
		{-3, 200, 20},
		{42, 20, 2},
	}
	for _, c := range cases {
		assert.Equal(c.ms, FrameDelay(c.speed), "speed %d", c.speed)
		assert.Equal(c.cs, DelayCentiseconds(c.speed), "speed %d", c.speed)
	}
}

func TestGIF_RoundTripRed(t *testing.T) {
	assert := assert.New(t)

	buf := NewPixelBuffer(OutputSize)
	buf.Fill(red)
	p := Quantize([]*PixelBuffer{buf})

	data, err := Mux([]IndexedFrame{{
		Pix:      Index(buf, p),
		Delay:    DelayCentiseconds(1),
		Disposal: DisposalBackground,
	}}, p, OutputSize, OutputSize)
	if !assert.NoError(err) {
		return
	}

	g, err := gif.DecodeAll(bytes.NewReader(data))
	if !assert.NoError(err) {
		return
	}
	assert.Len(g.Image, 1)
	assert.Equal(0, g.LoopCount)
	assert.Equal([]int{20}, g.Delay)
	assert.Equal([]byte{gif.DisposalBackground}, g.Disposal)
	assert.Equal(OutputSize, g.Config.Width)
	assert.Equal(OutputSize, g.Config.Height)
	assert.Equal(p.ColorPalette(), g.Image[0].Palette[:len(p)])

	r, gg, b, a := g.Image[0].At(64, 64).RGBA()
	assert.Equal([4]uint32{0xffff, 0, 0, 0xffff}, [4]uint32{r, gg, b, a})
}

func TestGIF_LoopDirective(t *testing.T) {
	buf := NewPixelBuffer(4)
	buf.Fill(green)
	p := Palette{green}

	data, err := Mux([]IndexedFrame{{Pix: Index(buf, p)}}, p, 4, 4)
	assert.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("GIF89a")))
	assert.True(t, bytes.HasSuffix(data, []byte{0x3B}))

	loop := []byte("NETSCAPE2.0\x03\x01\x00\x00\x00")
	assert.Equal(t, 1, bytes.Count(data, loop))
	// the directive precedes the first graphic control extension
	assert.Less(t, bytes.Index(data, loop), bytes.Index(data, []byte{0x21, 0xF9}))
}

func TestGIF_Transparency(t *testing.T) {
	assert := assert.New(t)

	buf := squareStamp(red, 0, 0, 64, 128)
	p := Quantize([]*PixelBuffer{buf})
	data, err := Mux([]IndexedFrame{{Pix: Index(buf, p), Disposal: DisposalBackground}}, p, OutputSize, OutputSize)
	if !assert.NoError(err) {
		return
	}

	g, err := gif.DecodeAll(bytes.NewReader(data))
	if !assert.NoError(err) {
		return
	}
	img := g.Image[0]
	assert.Equal(p.ColorPalette(), img.Palette[:len(p)])
	_, _, _, a := img.At(100, 10).RGBA()
	assert.Equal(uint32(0), a)
	assert.Equal(color.RGBA{R: 0xff, A: 0xff}, color.RGBAModel.Convert(img.At(10, 10)))
	assert.Equal(uint8(0), g.BackgroundIndex)
}

func TestGIF_LargeNoisyFrames(t *testing.T) {
	assert := assert.New(t)
	rnd := rand.New(rand.NewSource(7))

	p := make(Palette, 200)
	for i := range p {
		p[i] = color.NRGBA{R: uint8(i), G: uint8(255 - i), B: uint8(i * 3), A: 0xff}
	}
	frames := make([]IndexedFrame, 3)
	for i := range frames {
		pix := make([]uint8, OutputSize*OutputSize)
		for j := range pix {
			pix[j] = uint8(rnd.Intn(len(p)))
		}
		frames[i] = IndexedFrame{Pix: pix, Delay: 7, Disposal: DisposalBackground}
	}

	data, err := Mux(frames, p, OutputSize, OutputSize)
	if !assert.NoError(err) {
		return
	}
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if !assert.NoError(err) {
		return
	}
	assert.Len(g.Image, 3)
	for i, img := range g.Image {
		assert.Equal(frames[i].Pix, img.Pix)
		assert.Equal(7, g.Delay[i])
	}
}

func TestGIF_LocalPalette(t *testing.T) {
	assert := assert.New(t)

	a := NewPixelBuffer(8)
	a.Fill(red)
	b := NewPixelBuffer(8)
	b.Fill(green)

	pa, pb := Palette{red}, Palette{white, green}
	data, err := Mux([]IndexedFrame{
		{Pix: Index(a, pa)},
		{Pix: Index(b, pb), Palette: pb},
	}, pa, 8, 8)
	if !assert.NoError(err) {
		return
	}

	g, err := gif.DecodeAll(bytes.NewReader(data))
	if !assert.NoError(err) {
		return
	}
	assert.Equal(color.RGBA{R: 0xff, A: 0xff}, color.RGBAModel.Convert(g.Image[0].At(1, 1)))
	assert.Equal(color.RGBA{G: 0xff, A: 0xff}, color.RGBAModel.Convert(g.Image[1].At(1, 1)))
}

func TestGIF_EncodeErrors(t *testing.T) {
	assert := assert.New(t)
	p := Palette{red, green}

	cases := map[string]*GIFStream{
		"no frames":      {Palette: p, Width: 2, Height: 2},
		"pixel count":    {Palette: p, Width: 2, Height: 2, Frames: []IndexedFrame{{Pix: []uint8{0, 1}}}},
		"index range":    {Palette: p, Width: 1, Height: 1, Frames: []IndexedFrame{{Pix: []uint8{5}}}},
		"canvas size":    {Palette: p, Width: 0, Height: 2, Frames: []IndexedFrame{{}}},
		"negative delay": {Palette: p, Width: 1, Height: 1, Frames: []IndexedFrame{{Pix: []uint8{0}, Delay: -1}}},
	}
	for name, s := range cases {
		var out bytes.Buffer
		err := s.Encode(&out)
		assert.ErrorIs(err, ErrEncodeFailure, name)
		assert.Equal(0, out.Len(), name)
	}

	s := &GIFStream{
		Palette: Palette{{}, red, {}},
		Width:   1,
		Height:  1,
		Frames:  []IndexedFrame{{Pix: []uint8{1}}},
	}
	var out bytes.Buffer
	assert.ErrorIs(s.Encode(&out), ErrPaletteOverflow)
	assert.Equal(0, out.Len())
}
