package stamp

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndex_NearestColor(t *testing.T) {
	assert := assert.New(t)

	p := Palette{{}, red, green, white}
	buf := NewPixelBuffer(2)
	buf.Set(0, 0, color.NRGBA{R: 0xf0, G: 0x10, A: 0xff})
	buf.Set(1, 0, color.NRGBA{R: 0x10, G: 0xe0, B: 0x10, A: 0xff})
	buf.Set(0, 1, color.NRGBA{R: 0xee, G: 0xee, B: 0xee, A: AlphaThreshold})
	buf.Set(1, 1, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: AlphaThreshold - 1})

	assert.Equal([]uint8{1, 2, 3, 0}, Index(buf, p))
}

func TestIndex_TiesGoToLowestIndex(t *testing.T) {
	p := Palette{{R: 10, A: 0xff}, {G: 10, A: 0xff}}
	buf := NewPixelBuffer(1)
	buf.Set(0, 0, color.NRGBA{R: 5, G: 5, A: 0xff})

	assert.Equal(t, []uint8{0}, Index(buf, p))
}

func TestIndex_TransparentWithoutSentinel(t *testing.T) {
	p := Palette{red, green}
	buf := NewPixelBuffer(1)
	buf.Set(0, 0, color.NRGBA{G: 0xff, A: 0x10})

	assert.Equal(t, []uint8{1}, Index(buf, p))
}

func TestIndex_TransparencyPreserved(t *testing.T) {
	assert := assert.New(t)

	buf := gradientStamp(true)
	p := Quantize([]*PixelBuffer{buf})
	idx := Index(buf, p)
	ti, ok := p.TransparentIndex()
	assert.True(ok)

	for i, v := range idx {
		if buf.Pix[i*4+3] < AlphaThreshold {
			assert.Equal(ti, v)
		} else {
			assert.NotEqual(ti, v)
		}
	}
}
