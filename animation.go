package stamp

import (
	"fmt"
	"math"
	"strings"
)

// AnimationStyle enumerates the supported stamp animations.
type AnimationStyle int

const (
	None AnimationStyle = iota
	Blink
	Bounce
	Slide
	Rotate
	Shake
	Fade
	Zoom
	Swing
	Rainbow
	Sparkle
)

// DefaultFrameCount is the number of frames generated for one animation loop.
const DefaultFrameCount = 12

var styleNames = [...]string{
	None:    "none",
	Blink:   "blink",
	Bounce:  "bounce",
	Slide:   "slide",
	Rotate:  "rotate",
	Shake:   "shake",
	Fade:    "fade",
	Zoom:    "zoom",
	Swing:   "swing",
	Rainbow: "rainbow",
	Sparkle: "sparkle",
}

// Styles returns every supported animation style in declaration order.
func Styles() []AnimationStyle {
	styles := make([]AnimationStyle, len(styleNames))
	for i := range styleNames {
		styles[i] = AnimationStyle(i)
	}
	return styles
}

func (s AnimationStyle) String() string {
	if s < 0 || int(s) >= len(styleNames) {
		return fmt.Sprintf("AnimationStyle(%d)", int(s))
	}
	return styleNames[s]
}

// ParseStyle returns the animation style with the given (case insensitive) name.
func ParseStyle(name string) (AnimationStyle, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range styleNames {
		if n == name {
			return AnimationStyle(i), nil
		}
	}
	return None, fmt.Errorf("unsupported animation style: %q", name)
}

// ParseStyles parses a comma separated list of animation styles.
func ParseStyles(list string) ([]AnimationStyle, error) {
	var styles []AnimationStyle
	for _, name := range strings.Split(list, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		s, err := ParseStyle(name)
		if err != nil {
			return nil, err
		}
		styles = append(styles, s)
	}
	return styles, nil
}

// FrameTransform holds the geometric and visual parameters of one animation frame.
// Rotation and HueRotate are expressed in degrees.
type FrameTransform struct {
	OffsetX   float64
	OffsetY   float64
	Scale     float64
	Rotation  float64
	Opacity   float64
	HueRotate float64
}

// Identity returns the transform which leaves the source unchanged.
func Identity() FrameTransform {
	return FrameTransform{Scale: 1, Opacity: 1}
}

// IsIdentity reports whether t leaves the source unchanged.
func (t FrameTransform) IsIdentity() bool {
	return t == Identity()
}

// Transform computes the frame transform of the given style at frameIndex out of
// totalFrames. The result depends only on frameIndex modulo totalFrames.
func Transform(style AnimationStyle, frameIndex, totalFrames int) FrameTransform {
	if totalFrames < 1 {
		totalFrames = 1
	}
	i := frameIndex % totalFrames
	if i < 0 {
		i += totalFrames
	}
	n := float64(totalFrames)
	progress := float64(i) / n
	angle := progress * 2 * math.Pi

	t := Identity()

	switch style {
	case None:
	case Blink:
		if i%2 != 0 {
			t.Opacity = 0.2
		}
	case Bounce:
		t.OffsetY = -math.Abs(math.Sin(angle)) * 15
	case Slide:
		t.OffsetX = math.Sin(angle) * 10
	case Rotate:
		t.Rotation = progress * 360
	case Shake:
		t.OffsetX = math.Sin(angle*4) * 5
	case Fade:
		t.Opacity = 0.3 + 0.7*(math.Sin(angle)+1)/2
	case Zoom:
		t.Scale = 0.8 + (math.Sin(angle)+1)*0.15
	case Swing:
		t.Rotation = math.Sin(angle) * 15
	case Rainbow:
		t.HueRotate = progress * 360
	case Sparkle:
		if float64((i*3)%totalFrames) >= n/2 {
			t.Opacity = 0.6
		}
		t.Scale = 0.95 + math.Sin(angle*2)*0.05
	}
	return t
}

// Compose merges two frame transforms: offsets and rotations add up,
// scales and opacities multiply and hue rotations add up modulo 360.
func Compose(a, b FrameTransform) FrameTransform {
	return FrameTransform{
		OffsetX:   a.OffsetX + b.OffsetX,
		OffsetY:   a.OffsetY + b.OffsetY,
		Scale:     a.Scale * b.Scale,
		Rotation:  a.Rotation + b.Rotation,
		Opacity:   a.Opacity * b.Opacity,
		HueRotate: math.Mod(a.HueRotate+b.HueRotate, 360),
	}
}

// TransformAll combines the transforms of several simultaneous styles.
func TransformAll(styles []AnimationStyle, frameIndex, totalFrames int) FrameTransform {
	t := Identity()
	for _, s := range styles {
		t = Compose(t, Transform(s, frameIndex, totalFrames))
	}
	return t
}

// IsAnimated reports whether any of the styles produces motion or visual change.
func IsAnimated(styles []AnimationStyle) bool {
	for _, s := range styles {
		if s != None {
			return true
		}
	}
	return false
}
