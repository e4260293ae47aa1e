package stamp

// Index maps every pixel of buf to a palette position. Pixels with alpha below
// AlphaThreshold map to the transparent sentinel when the palette has one. All the
// others map to the opaque entry closest in squared RGB distance; ties go to the
// lowest index.
func Index(buf *PixelBuffer, p Palette) []uint8 {
	out := make([]uint8, len(buf.Pix)/4)
	ti, hasTransparent := p.TransparentIndex()

	cache := make(map[uint32]uint8)
	for i := range out {
		pix := buf.Pix[i*4 : i*4+4 : i*4+4]
		if pix[3] < AlphaThreshold && hasTransparent {
			out[i] = ti
			continue
		}
		key := uint32(pix[0])<<16 | uint32(pix[1])<<8 | uint32(pix[2])
		idx, ok := cache[key]
		if !ok {
			idx = nearest(p, pix[0], pix[1], pix[2], ti, hasTransparent)
			cache[key] = idx
		}
		out[i] = idx
	}
	return out
}

// nearest returns the index of the opaque palette entry closest to the given color.
// A palette made only of the transparent sentinel resolves to the sentinel.
func nearest(p Palette, r, g, b uint8, ti uint8, hasTransparent bool) uint8 {
	best, bestDist := -1, 0
	for i, c := range p {
		if c.A == 0 {
			continue
		}
		dr := int(c.R) - int(r)
		dg := int(c.G) - int(g)
		db := int(c.B) - int(b)
		dist := dr*dr + dg*dg + db*db
		if best < 0 || dist < bestDist {
			best, bestDist = i, dist
			if dist == 0 {
				break
			}
		}
	}
	if best < 0 {
		if hasTransparent {
			return ti
		}
		return 0
	}
	return uint8(best)
}
