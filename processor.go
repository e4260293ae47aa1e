package stamp

import (
	"errors"
	"io"

	"github.com/esimov/stamp/utils"
)

// Source supplies the still stamp image to animate.
type Source interface {
	Render() (*PixelBuffer, error)
}

// SourceFunc adapts an ordinary function to the Source interface.
type SourceFunc func() (*PixelBuffer, error)

// Render calls f.
func (f SourceFunc) Render() (*PixelBuffer, error) { return f() }

// Processor options
type Processor struct {
	// Styles are applied simultaneously to every frame.
	Styles []AnimationStyle
	// Speed ranges from 1 (slowest) to 10 (fastest). Zero selects DefaultSpeed.
	Speed int
	// FrameCount is the number of frames of one loop. Zero selects DefaultFrameCount.
	FrameCount int
	Background Backing
	Palette    PalettePolicy
	Format     Format
}

func (p *Processor) speed() int {
	if p.Speed == 0 {
		return DefaultSpeed
	}
	return utils.Clamp(p.Speed, MinSpeed, MaxSpeed)
}

func (p *Processor) frameCount() int {
	if p.FrameCount <= 0 {
		return DefaultFrameCount
	}
	return p.FrameCount
}

// Frames composites every animation frame of src over the processor background.
// A processor without any animated style yields a single frame.
func (p *Processor) Frames(src *PixelBuffer) []*PixelBuffer {
	if !IsAnimated(p.Styles) {
		return []*PixelBuffer{Composite(src, Identity(), p.Background)}
	}

	n := p.frameCount()
	frames := make([]*PixelBuffer, n)
	for i := 0; i < n; i++ {
		frames[i] = Composite(src, TransformAll(p.Styles, i, n), p.Background)
	}
	return frames
}

// EncodeGIF animates src and returns the complete looping GIF stream.
func (p *Processor) EncodeGIF(src *PixelBuffer) ([]byte, error) {
	if src == nil || !src.Valid() {
		return nil, encodeError(errors.New("invalid source pixel buffer"))
	}

	frames := p.Frames(src)
	palettes := QuantizeFrames(frames, p.Palette)
	for _, pal := range palettes {
		if err := pal.Validate(); err != nil {
			return nil, err
		}
	}

	delay := DelayCentiseconds(p.speed())
	indexed := make([]IndexedFrame, len(frames))
	for i, f := range frames {
		indexed[i] = IndexedFrame{
			Pix:      Index(f, palettes[i]),
			Delay:    delay,
			Disposal: DisposalBackground,
		}
		if p.Palette == PalettePerFrame && i > 0 {
			indexed[i].Palette = palettes[i]
		}
	}
	return Mux(indexed, palettes[0], src.Side, src.Side)
}

// Export encodes src into w using the processor format. GIF output is animated,
// every other format receives the still stamp laid over the background.
func (p *Processor) Export(src *PixelBuffer, w io.Writer) error {
	if p.Format == FormatGIF {
		data, err := p.EncodeGIF(src)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return encodeError(err)
		}
		return nil
	}

	if src == nil || !src.Valid() {
		return encodeError(errors.New("invalid source pixel buffer"))
	}
	return EncodeStatic(w, Composite(src, Identity(), p.Background), p.Format)
}

// Process renders the source stamp and exports it into w.
// We are using the io package, since we can provide different output types,
// as long as they implement the io.Writer interface.
func (p *Processor) Process(src Source, w io.Writer) error {
	buf, err := src.Render()
	if err != nil {
		var se *SourceError
		if errors.As(err, &se) {
			return err
		}
		return &SourceError{Op: "render", Err: err}
	}
	if buf == nil || !buf.Valid() {
		return &SourceError{Op: "render", Err: errors.New("invalid pixel buffer")}
	}
	return p.Export(buf, w)
}
