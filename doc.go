/*
Package stamp turns a small square raster (rendered text or a cropped photo) into a 128x128
stamp, either as a single static image or as a looping animated GIF.

The animated path runs every frame through the same pipeline:

	Transform -> Composite -> Quantize -> Index -> Mux

Transform computes the geometric and visual parameters of a frame for the selected animation
style, Composite applies them to the source pixel buffer, Quantize reduces the colors of the
whole sequence to a shared palette and Mux writes the GIF89a byte stream.

The source buffer itself is produced by an external renderer (see the render subpackage).
A simple usage example:

	package main

	import (
		"image/color"
		"log"
		"os"

		"github.com/esimov/stamp"
		"github.com/esimov/stamp/render"
	)

	func main() {
		p := &stamp.Processor{
			Styles: []stamp.AnimationStyle{stamp.Bounce},
			Speed:  5,
			Format: stamp.FormatGIF,
		}

		src := render.NewText("OK!")
		src.Color = color.NRGBA{R: 0xe5, G: 0x39, B: 0x35, A: 0xff}
		if err := p.Process(src, os.Stdout); err != nil {
			log.Fatalf("could not create the stamp: %v", err)
		}
	}
*/
package stamp
