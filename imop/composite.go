// Package imop implements the Porter-Duff composition operations
// used for mixing a graphic element with its backdrop.
// Porter and Duff presented in their paper 12 different composition operation,
// but the image/draw core package implements only the source-over-destination and source.
// This package is aimed to overcome the missing composite operations.
//
// It is used to lay every transformed animation frame over its backing fill
// and to flatten transparent stamps before encoding them in formats without alpha support.
// The source layer can be faded through a global opacity factor, similar to the
// globalAlpha property of a 2D canvas context.
package imop

import (
	"fmt"
	"image"

	"github.com/esimov/stamp/utils"
)

// Op is a Porter-Duff composition operation.
type Op string

const (
	Clear   Op = "clear"
	Copy    Op = "copy"
	Dst     Op = "dst"
	SrcOver Op = "src_over"
	DstOver Op = "dst_over"
	SrcIn   Op = "src_in"
	DstIn   Op = "dst_in"
	SrcOut  Op = "src_out"
	DstOut  Op = "dst_out"
	SrcAtop Op = "src_atop"
	DstAtop Op = "dst_atop"
	Xor     Op = "xor"
)

// Bitmap holds the result of a composition.
type Bitmap struct {
	Img *image.NRGBA
}

// Composite holds the currently active composition operation.
type Composite struct {
	current Op
	ops     []Op
}

// NewBitmap allocates a new transparent bitmap.
func NewBitmap(rect image.Rectangle) *Bitmap {
	return &Bitmap{
		Img: image.NewNRGBA(rect),
	}
}

// InitOp initializes a new composition with SrcOver as the default operation.
func InitOp() *Composite {
	return &Composite{
		current: SrcOver,
		ops: []Op{
			Clear,
			Copy,
			Dst,
			SrcOver,
			DstOver,
			SrcIn,
			DstIn,
			SrcOut,
			DstOut,
			SrcAtop,
			DstAtop,
			Xor,
		},
	}
}

// Set activates one of the supported composition operations.
func (op *Composite) Set(cop Op) error {
	if !utils.Contains(op.ops, cop) {
		return fmt.Errorf("unsupported composite operation: %v", cop)
	}
	op.current = cop
	return nil
}

// Get returns the currently active composition operation.
func (op *Composite) Get() Op {
	return op.current
}

// Draw composites the src layer, faded by opacity, against the dst backdrop and
// stores the result into bitmap. All three images must share the same bounds.
// A nil bitmap is allocated on the fly. The result is returned for convenience.
func (op *Composite) Draw(bitmap *Bitmap, src, dst *image.NRGBA, opacity float64) *Bitmap {
	if bitmap == nil {
		bitmap = NewBitmap(src.Bounds())
	}
	opacity = utils.Clamp(opacity, 0, 1)

	var rn, gn, bn, an float64
	out := bitmap.Img.Pix

	for i := 0; i+3 < len(src.Pix) && i+3 < len(dst.Pix) && i+3 < len(out); i += 4 {
		rs := float64(src.Pix[i+0]) / 255
		gs := float64(src.Pix[i+1]) / 255
		bs := float64(src.Pix[i+2]) / 255
		as := float64(src.Pix[i+3]) / 255 * opacity

		rb := float64(dst.Pix[i+0]) / 255
		gb := float64(dst.Pix[i+1]) / 255
		bb := float64(dst.Pix[i+2]) / 255
		ab := float64(dst.Pix[i+3]) / 255

		// Premultiplied results of the composition formula.
		switch op.current {
		case Clear:
			rn, gn, bn, an = 0, 0, 0, 0
		case Copy:
			rn, gn, bn, an = as*rs, as*gs, as*bs, as
		case Dst:
			rn, gn, bn, an = ab*rb, ab*gb, ab*bb, ab
		case SrcOver:
			rn = as*rs + ab*rb*(1-as)
			gn = as*gs + ab*gb*(1-as)
			bn = as*bs + ab*bb*(1-as)
			an = as + ab*(1-as)
		case DstOver:
			rn = as*rs*(1-ab) + ab*rb
			gn = as*gs*(1-ab) + ab*gb
			bn = as*bs*(1-ab) + ab*bb
			an = as*(1-ab) + ab
		case SrcIn:
			rn = as * rs * ab
			gn = as * gs * ab
			bn = as * bs * ab
			an = as * ab
		case DstIn:
			rn = ab * rb * as
			gn = ab * gb * as
			bn = ab * bb * as
			an = ab * as
		case SrcOut:
			rn = as * rs * (1 - ab)
			gn = as * gs * (1 - ab)
			bn = as * bs * (1 - ab)
			an = as * (1 - ab)
		case DstOut:
			rn = ab * rb * (1 - as)
			gn = ab * gb * (1 - as)
			bn = ab * bb * (1 - as)
			an = ab * (1 - as)
		case SrcAtop:
			rn = as*rs*ab + (1-as)*ab*rb
			gn = as*gs*ab + (1-as)*ab*gb
			bn = as*bs*ab + (1-as)*ab*bb
			an = ab
		case DstAtop:
			rn = as*rs*(1-ab) + ab*rb*as
			gn = as*gs*(1-ab) + ab*gb*as
			bn = as*bs*(1-ab) + ab*bb*as
			an = as
		case Xor:
			rn = as*rs*(1-ab) + ab*rb*(1-as)
			gn = as*gs*(1-ab) + ab*gb*(1-as)
			bn = as*bs*(1-ab) + ab*bb*(1-as)
			an = as*(1-ab) + ab*(1-as)
		}

		if an <= 0 {
			out[i+0], out[i+1], out[i+2], out[i+3] = 0, 0, 0, 0
			continue
		}
		// Back to straight alpha.
		out[i+0] = toByte(rn / an)
		out[i+1] = toByte(gn / an)
		out[i+2] = toByte(bn / an)
		out[i+3] = toByte(an)
	}
	return bitmap
}

func toByte(v float64) uint8 {
	return uint8(utils.Clamp(v*255+0.5, 0, 255))
}
