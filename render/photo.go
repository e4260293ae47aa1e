package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/esimov/stamp"
	"github.com/esimov/stamp/utils"
	pigo "github.com/esimov/pigo/core"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MaxSourceBytes is the largest accepted photo file.
const MaxSourceBytes = 5 << 20

// minFaceScore is the detection score above which a pigo detection counts as a face.
const minFaceScore = 5.0

// Photo turns a photo into a stamp: the picture is cropped to a square and
// resampled to the output size with a Lanczos filter.
type Photo struct {
	// Path is the photo file. It is ignored when Reader is set.
	Path   string
	Reader io.Reader
	// Crop selects the region of the photo to keep. The region is stretched to
	// the output size when it is not square.
	Crop *image.Rectangle
	// FaceDetect centers the square crop on the most prominent face.
	// It needs a pigo cascade classifier in Cascade.
	FaceDetect bool
	Cascade    []byte
}

// Render decodes, crops and resamples the photo.
func (p *Photo) Render() (*stamp.PixelBuffer, error) {
	r := p.Reader
	if r == nil {
		f, err := os.Open(p.Path)
		if err != nil {
			return nil, &stamp.SourceError{Op: "open", Err: err}
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxSourceBytes+1))
	if err != nil {
		return nil, &stamp.SourceError{Op: "read", Err: err}
	}
	if len(data) > MaxSourceBytes {
		return nil, &stamp.SourceError{
			Op:  "read",
			Err: fmt.Errorf("the photo exceeds the %d bytes limit", MaxSourceBytes),
		}
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &stamp.SourceError{Op: "decode", Err: err}
	}

	img, err := p.crop(src)
	if err != nil {
		return nil, &stamp.SourceError{Op: "crop", Err: err}
	}
	dst := imaging.Resize(img, stamp.OutputSize, stamp.OutputSize, imaging.Lanczos)

	return stamp.FromImage(dst)
}

// crop returns the region of the photo to resample.
func (p *Photo) crop(img image.Image) (image.Image, error) {
	b := img.Bounds()
	if p.Crop != nil {
		rect := p.Crop.Add(b.Min).Intersect(b)
		if rect.Empty() {
			return nil, errors.New("the crop area lies outside of the photo")
		}
		return imaging.Crop(img, rect), nil
	}

	side := utils.Min(b.Dx(), b.Dy())
	if side == 0 {
		return nil, errors.New("empty photo")
	}
	if p.FaceDetect {
		center, ok, err := detectFace(img, p.Cascade)
		if err != nil {
			return nil, err
		}
		if ok {
			return imaging.Crop(img, squareAround(center, side, b)), nil
		}
	}
	return imaging.CropCenter(img, side, side), nil
}

// squareAround returns the side×side square centered on c, kept inside bounds.
func squareAround(c image.Point, side int, bounds image.Rectangle) image.Rectangle {
	x0 := utils.Clamp(c.X-side/2, bounds.Min.X, bounds.Max.X-side)
	y0 := utils.Clamp(c.Y-side/2, bounds.Min.Y, bounds.Max.Y-side)

	return image.Rect(x0, y0, x0+side, y0+side)
}

// detectFace runs the pigo face detector over the photo and returns the center of
// the face with the highest detection score.
func detectFace(img image.Image, cascade []byte) (image.Point, bool, error) {
	if len(cascade) == 0 {
		return image.Point{}, false, errors.New("face detection requires a cascade classifier")
	}

	// Unpack the binary file. This will return the number of cascade trees,
	// the tree depth, the threshold and the prediction from tree's leaf nodes.
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return image.Point{}, false, fmt.Errorf("error unpacking the cascade file: %v", err)
	}

	b := img.Bounds()
	dx, dy := b.Dx(), b.Dy()
	// The grayscale conversion expects the image origin at (0, 0).
	pixels := pigo.RgbToGrayscale(imaging.Clone(img))

	cParams := pigo.CascadeParams{
		MinSize:     utils.Max(20, utils.Min(dx, dy)/10),
		MaxSize:     utils.Max(dx, dy),
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,

		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   dy,
			Cols:   dx,
			Dim:    dx,
		},
	}

	// Run the classifier over the obtained leaf nodes and return the detection results.
	// The result contains quadruplets representing the row, column, scale and detection score.
	faces := classifier.RunCascade(cParams, 0.0)

	// Calculate the intersection over union (IoU) of two clusters.
	faces = classifier.ClusterDetections(faces, 0.2)

	best := -1
	for i, face := range faces {
		if face.Q > minFaceScore && (best < 0 || face.Q > faces[best].Q) {
			best = i
		}
	}
	if best < 0 {
		return image.Point{}, false, nil
	}
	return image.Pt(b.Min.X+faces[best].Col, b.Min.Y+faces[best].Row), true, nil
}
