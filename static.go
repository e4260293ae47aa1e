package stamp

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/esimov/stamp/imop"
	"golang.org/x/image/bmp"
)

// Format is an output image format.
type Format int

const (
	FormatPNG Format = iota
	FormatGIF
	FormatBMP
	FormatJPEG
)

var formatExts = map[Format]string{
	FormatPNG:  "png",
	FormatGIF:  "gif",
	FormatBMP:  "bmp",
	FormatJPEG: "jpg",
}

func (f Format) String() string {
	if ext, ok := formatExts[f]; ok {
		return ext
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Ext returns the file extension of the format, including the leading dot.
func (f Format) Ext() string {
	return "." + f.String()
}

// Animated reports whether the format can hold more than one frame.
func (f Format) Animated() bool {
	return f == FormatGIF
}

// FormatFromPath returns the output format matching the extension of path.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		return FormatPNG, nil
	case ".gif":
		return FormatGIF, nil
	case ".bmp":
		return FormatBMP, nil
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	default:
		return FormatPNG, fmt.Errorf("%v file type not supported", ext)
	}
}

// EncodeStatic writes buf as a single frame image. Formats without an alpha
// channel get the transparent areas flattened onto white.
func EncodeStatic(w io.Writer, buf *PixelBuffer, f Format) error {
	img := buf.Image()

	var err error
	switch f {
	case FormatPNG:
		err = png.Encode(w, img)
	case FormatBMP:
		err = bmp.Encode(w, img)
	case FormatJPEG:
		err = jpeg.Encode(w, flatten(img, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}), &jpeg.Options{Quality: 100})
	case FormatGIF:
		p := Quantize([]*PixelBuffer{buf})
		var data []byte
		data, err = Mux([]IndexedFrame{{Pix: Index(buf, p)}}, p, buf.Side, buf.Side)
		if err == nil {
			_, err = w.Write(data)
		}
	default:
		err = fmt.Errorf("unsupported format: %v", f)
	}
	return encodeError(err)
}

// flatten composites img over an opaque backdrop.
func flatten(img *image.NRGBA, bg color.NRGBA) *image.NRGBA {
	backdrop := image.NewNRGBA(img.Bounds())
	for i := 0; i < len(backdrop.Pix); i += 4 {
		backdrop.Pix[i+0] = bg.R
		backdrop.Pix[i+1] = bg.G
		backdrop.Pix[i+2] = bg.B
		backdrop.Pix[i+3] = bg.A
	}
	op := imop.InitOp()
	return op.Draw(nil, img, backdrop, 1).Img
}
