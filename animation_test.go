package stamp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnimation_ParseStyles(t *testing.T) {
	assert := assert.New(t)

	for _, s := range Styles() {
		parsed, err := ParseStyle(s.String())
		assert.NoError(err)
		assert.Equal(s, parsed)
	}

	styles, err := ParseStyles("bounce, Rainbow")
	assert.NoError(err)
	assert.Equal([]AnimationStyle{Bounce, Rainbow}, styles)

	_, err = ParseStyle("wobble")
	assert.Error(err)
}

func TestAnimation_Deterministic(t *testing.T) {
	for _, s := range Styles() {
		for i := 0; i < DefaultFrameCount; i++ {
			assert.Equal(t, Transform(s, i, DefaultFrameCount), Transform(s, i, DefaultFrameCount))
		}
	}
}

func TestAnimation_Periodic(t *testing.T) {
	for _, s := range Styles() {
		t.Run(s.String(), func(t *testing.T) {
			for _, n := range []int{1, 5, 12, 24} {
				for i := 0; i < n; i++ {
					assert.Equal(t, Transform(s, i, n), Transform(s, i+n, n))
					assert.Equal(t, Transform(s, i, n), Transform(s, i+3*n, n))
				}
			}
		})
	}
}

func TestAnimation_NoneIsIdentity(t *testing.T) {
	for i := 0; i < 30; i++ {
		tr := Transform(None, i, DefaultFrameCount)
		assert.True(t, tr.IsIdentity())
		assert.Equal(t, FrameTransform{Scale: 1, Opacity: 1}, tr)
	}
}

func TestAnimation_ZeroFramesTreatedAsOne(t *testing.T) {
	assert.Equal(t, Transform(Bounce, 0, 1), Transform(Bounce, 7, 0))
}

func TestAnimation_Values(t *testing.T) {
	assert := assert.New(t)
	const n = DefaultFrameCount

	assert.InDelta(0, Transform(Bounce, 0, n).OffsetY, 1e-9)
	assert.InDelta(-15, Transform(Bounce, 3, n).OffsetY, 1e-9)
	assert.InDelta(0, Transform(Bounce, 6, n).OffsetY, 1e-9)
	assert.InDelta(-15, Transform(Bounce, 9, n).OffsetY, 1e-9)

	assert.InDelta(10, Transform(Slide, 3, n).OffsetX, 1e-9)
	assert.InDelta(-10, Transform(Slide, 9, n).OffsetX, 1e-9)

	assert.InDelta(90, Transform(Rotate, 3, n).Rotation, 1e-9)
	assert.InDelta(15, Transform(Swing, 3, n).Rotation, 1e-9)
	assert.InDelta(180, Transform(Rainbow, 6, n).HueRotate, 1e-9)

	assert.Equal(1.0, Transform(Blink, 0, n).Opacity)
	assert.Equal(0.2, Transform(Blink, 1, n).Opacity)

	assert.InDelta(0.65, Transform(Fade, 0, n).Opacity, 1e-9)
	assert.InDelta(1.0, Transform(Fade, 3, n).Opacity, 1e-9)
	assert.InDelta(0.3, Transform(Fade, 9, n).Opacity, 1e-9)

	assert.InDelta(0.95, Transform(Zoom, 0, n).Scale, 1e-9)
	assert.InDelta(1.1, Transform(Zoom, 3, n).Scale, 1e-9)
	assert.InDelta(0.8, Transform(Zoom, 9, n).Scale, 1e-9)

	assert.InDelta(0, Transform(Shake, 0, n).OffsetX, 1e-9)
	assert.InDelta(5*math.Sin(math.Pi/6*4), Transform(Shake, 1, n).OffsetX, 1e-9)

	sparkle := Transform(Sparkle, 0, n)
	assert.Equal(1.0, sparkle.Opacity)
	assert.InDelta(0.95, sparkle.Scale, 1e-9)
	assert.Equal(0.6, Transform(Sparkle, 2, n).Opacity)
}

func TestAnimation_Compose(t *testing.T) {
	assert := assert.New(t)

	a := FrameTransform{OffsetX: 2, Scale: 0.5, Rotation: 10, Opacity: 0.5, HueRotate: 300}
	b := FrameTransform{OffsetX: 3, OffsetY: -1, Scale: 2, Rotation: 5, Opacity: 0.5, HueRotate: 90}
	c := Compose(a, b)

	assert.Equal(5.0, c.OffsetX)
	assert.Equal(-1.0, c.OffsetY)
	assert.Equal(1.0, c.Scale)
	assert.Equal(15.0, c.Rotation)
	assert.Equal(0.25, c.Opacity)
	assert.Equal(30.0, c.HueRotate)

	assert.Equal(Transform(Bounce, 3, 12), TransformAll([]AnimationStyle{Bounce}, 3, 12))
	assert.Equal(Identity(), TransformAll(nil, 3, 12))

	assert.False(IsAnimated([]AnimationStyle{None, None}))
	assert.True(IsAnimated([]AnimationStyle{None, Fade}))
}
