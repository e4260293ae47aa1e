package stamp

import (
	"bytes"
	"compress/lzw"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/esimov/stamp/utils"
)

// Disposal is the GIF frame disposal method.
type Disposal byte

// Disposal methods.
const (
	DisposalUnspecified Disposal = 0x00
	DisposalNone        Disposal = 0x01
	DisposalBackground  Disposal = 0x02
	DisposalPrevious    Disposal = 0x03
)

// Speed bounds and the delays they map to.
const (
	MinSpeed     = 1
	MaxSpeed     = 10
	DefaultSpeed = 5

	slowestDelay = 200 // ms at MinSpeed
	delayStep    = 20  // ms removed per speed step
)

// Section indicators and extension labels.
const (
	sExtension       = 0x21
	sImageDescriptor = 0x2C
	sTrailer         = 0x3B

	gcLabel     = 0xF9
	gcBlockSize = 0x04
	appLabel    = 0xFF

	fColorTable = 1 << 7
)

var log2Lookup = [8]int{2, 4, 8, 16, 32, 64, 128, 256}

// log2 returns n such that 2^(n+1) is the smallest table size holding x entries.
func log2(x int) int {
	for i, v := range log2Lookup {
		if x <= v {
			return i
		}
	}
	return -1
}

// FrameDelay returns the per frame delay in milliseconds for an animation speed.
// The speed is clamped to the [MinSpeed, MaxSpeed] range.
func FrameDelay(speed int) int {
	speed = utils.Clamp(speed, MinSpeed, MaxSpeed)
	return int(math.Round(float64(slowestDelay - (speed-1)*delayStep)))
}

// DelayCentiseconds returns the frame delay of an animation speed in the
// hundredths of a second unit used by the GIF graphic control extension.
func DelayCentiseconds(speed int) int {
	return int(math.Round(float64(FrameDelay(speed)) / 10))
}

// IndexedFrame is a single palette indexed animation frame.
type IndexedFrame struct {
	// Pix holds one palette index per pixel, in row major order.
	Pix []uint8
	// Delay is the display time in hundredths of a second.
	Delay    int
	Disposal Disposal
	// Palette is the local color table of the frame. A nil palette selects
	// the global color table of the stream.
	Palette Palette
}

// GIFStream describes a complete animated GIF.
type GIFStream struct {
	Frames  []IndexedFrame
	Palette Palette
	Width   int
	Height  int
	// LoopCount is the number of repetitions, with 0 meaning forever.
	LoopCount int
}

// Mux encodes the frames into a looping GIF stream of the given dimensions
// sharing the global palette p.
func Mux(frames []IndexedFrame, p Palette, width, height int) ([]byte, error) {
	s := &GIFStream{
		Frames:  frames,
		Palette: p,
		Width:   width,
		Height:  height,
	}
	var buf bytes.Buffer
	if err := s.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes the GIF stream into w. The stream is fully assembled in memory
// first, so nothing is written to w when the encoding fails.
func (s *GIFStream) Encode(w io.Writer) error {
	if err := s.validate(); err != nil {
		return encodeError(err)
	}

	e := &encoder{w: &bytes.Buffer{}, s: s}
	e.writeHeader()
	for i := range s.Frames {
		e.writeFrame(&s.Frames[i])
	}
	e.writeByte(sTrailer)
	if e.err != nil {
		return encodeError(e.err)
	}

	if _, err := w.Write(e.w.Bytes()); err != nil {
		return encodeError(err)
	}
	return nil
}

func (s *GIFStream) validate() error {
	if len(s.Frames) == 0 {
		return errors.New("gif: no frames to encode")
	}
	if s.Width <= 0 || s.Height <= 0 || s.Width >= 1<<16 || s.Height >= 1<<16 {
		return fmt.Errorf("gif: invalid canvas size %dx%d", s.Width, s.Height)
	}
	if s.LoopCount < 0 || s.LoopCount >= 1<<16 {
		return fmt.Errorf("gif: invalid loop count %d", s.LoopCount)
	}
	if err := s.Palette.Validate(); err != nil {
		return err
	}
	for i, f := range s.Frames {
		p := s.Palette
		if f.Palette != nil {
			if err := f.Palette.Validate(); err != nil {
				return err
			}
			p = f.Palette
		}
		if len(f.Pix) != s.Width*s.Height {
			return fmt.Errorf("gif: frame %d has %d pixels, expected %d", i, len(f.Pix), s.Width*s.Height)
		}
		if f.Delay < 0 || f.Delay >= 1<<16 {
			return fmt.Errorf("gif: frame %d has an invalid delay %d", i, f.Delay)
		}
		for _, idx := range f.Pix {
			if int(idx) >= len(p) {
				return fmt.Errorf("gif: frame %d references color %d of a %d entry palette", i, idx, len(p))
			}
		}
	}
	return nil
}

// encoder writes a GIF stream. err is the first error encountered during
// writing. All attempted writes after the first error become no-ops.
type encoder struct {
	w   *bytes.Buffer
	err error
	s   *GIFStream
	// buf is a scratch buffer. It must be at least 256 for the blockWriter.
	buf        [256]byte
	colorTable [3 * 256]byte
}

// blockWriter splits the LZW output into sub-blocks of at most 255 bytes,
// each prefixed by its length.
type blockWriter struct {
	e *encoder
}

func (b blockWriter) setup() {
	b.e.buf[0] = 0
}

func (b blockWriter) WriteByte(c byte) error {
	if b.e.err != nil {
		return b.e.err
	}
	b.e.buf[0]++
	b.e.buf[b.e.buf[0]] = c
	if b.e.buf[0] < 255 {
		return nil
	}
	b.e.write(b.e.buf[:256])
	b.e.buf[0] = 0

	return b.e.err
}

func (b blockWriter) Write(data []byte) (int, error) {
	for i, c := range data {
		if err := b.WriteByte(c); err != nil {
			return i, err
		}
	}
	return len(data), nil
}

// close writes the pending sub-block, if any, and the block terminator.
func (b blockWriter) close() {
	if b.e.buf[0] == 0 {
		b.e.writeByte(0)
		return
	}
	n := uint(b.e.buf[0])
	b.e.buf[n+1] = 0
	b.e.write(b.e.buf[:n+2])
}

func (e *encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

func (e *encoder) writeByte(b byte) {
	if e.err != nil {
		return
	}
	e.err = e.w.WriteByte(b)
}

// Little-endian.
func writeUint16(b []uint8, u uint16) {
	b[0] = uint8(u)
	b[1] = uint8(u >> 8)
}

func (e *encoder) writeHeader() {
	e.write([]byte("GIF89a"))

	// Logical screen descriptor.
	writeUint16(e.buf[0:2], uint16(e.s.Width))
	writeUint16(e.buf[2:4], uint16(e.s.Height))

	paddedSize := log2(len(e.s.Palette))
	e.buf[4] = fColorTable | uint8(paddedSize)
	e.buf[5] = 0x00 // Background color index.
	if ti, ok := e.s.Palette.TransparentIndex(); ok {
		e.buf[5] = ti
	}
	e.buf[6] = 0x00 // Pixel aspect ratio.
	e.write(e.buf[:7])
	e.write(e.encodeColorTable(e.s.Palette, paddedSize))

	// NETSCAPE2.0 application extension.
	e.buf[0] = sExtension
	e.buf[1] = appLabel
	e.buf[2] = 0x0b // Block size.
	e.write(e.buf[:3])
	e.write([]byte("NETSCAPE2.0"))
	e.buf[0] = 0x03 // Block size.
	e.buf[1] = 0x01 // Sub-block index.
	writeUint16(e.buf[2:4], uint16(e.s.LoopCount))
	e.buf[4] = 0x00 // Block terminator.
	e.write(e.buf[:5])
}

// encodeColorTable serializes p, padded with black up to 2^(size+1) entries.
// The transparent sentinel is written as black.
func (e *encoder) encodeColorTable(p Palette, size int) []byte {
	n := log2Lookup[size]
	dst := e.colorTable[:3*n]
	for i := range dst {
		dst[i] = 0
	}
	for i, c := range p {
		if c.A == 0 {
			continue
		}
		dst[3*i+0] = c.R
		dst[3*i+1] = c.G
		dst[3*i+2] = c.B
	}
	return dst
}

func (e *encoder) writeFrame(f *IndexedFrame) {
	if e.err != nil {
		return
	}

	p := e.s.Palette
	if f.Palette != nil {
		p = f.Palette
	}
	ti, transparent := p.TransparentIndex()

	// Graphic control extension.
	e.buf[0] = sExtension
	e.buf[1] = gcLabel
	e.buf[2] = gcBlockSize
	e.buf[3] = byte(f.Disposal&0x07) << 2
	if transparent {
		e.buf[3] |= 0x01
	}
	writeUint16(e.buf[4:6], uint16(f.Delay))
	e.buf[6] = ti
	e.buf[7] = 0x00 // Block terminator.
	e.write(e.buf[:8])

	// Image descriptor covering the whole canvas.
	e.buf[0] = sImageDescriptor
	writeUint16(e.buf[1:3], 0)
	writeUint16(e.buf[3:5], 0)
	writeUint16(e.buf[5:7], uint16(e.s.Width))
	writeUint16(e.buf[7:9], uint16(e.s.Height))
	e.write(e.buf[:9])

	paddedSize := log2(len(p))
	if f.Palette != nil {
		e.writeByte(fColorTable | uint8(paddedSize))
		e.write(e.encodeColorTable(f.Palette, paddedSize))
	} else {
		e.writeByte(0x00)
	}

	litWidth := paddedSize + 1
	if litWidth < 2 {
		litWidth = 2
	}
	e.writeByte(uint8(litWidth)) // LZW minimum code size.

	bw := blockWriter{e: e}
	bw.setup()
	lzww := lzw.NewWriter(bw, lzw.LSB, litWidth)
	if _, err := lzww.Write(f.Pix); err != nil && e.err == nil {
		e.err = err
	}
	if err := lzww.Close(); err != nil && e.err == nil {
		e.err = err
	}
	bw.close()
}
