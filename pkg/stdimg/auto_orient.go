package stdimg

import (
	"image"
)

// AutoOrient applies an EXIF orientation (1..8) and returns an upright
// image. Orientation 1 or an unknown value returns img unchanged.
func AutoOrient(img image.Image, orientation int) image.Image {
	if img == nil || orientation <= 1 || orientation > 8 {
		return img
	}
	src := ToNRGBA(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()

	// map a source pixel to its destination; orientations 5..8 swap axes
	var mapXY func(x, y int) (int, int)
	dw, dh := w, h
	switch orientation {
	case 2: // mirror horizontal
		mapXY = func(x, y int) (int, int) { return w - 1 - x, y }
	case 3: // rotate 180
		mapXY = func(x, y int) (int, int) { return w - 1 - x, h - 1 - y }
	case 4: // mirror vertical
		mapXY = func(x, y int) (int, int) { return x, h - 1 - y }
	case 5: // transpose
		dw, dh = h, w
		mapXY = func(x, y int) (int, int) { return y, x }
	case 6: // rotate 90 CW
		dw, dh = h, w
		mapXY = func(x, y int) (int, int) { return h - 1 - y, x }
	case 7: // transverse
		dw, dh = h, w
		mapXY = func(x, y int) (int, int) { return h - 1 - y, w - 1 - x }
	case 8: // rotate 90 CCW
		dw, dh = h, w
		mapXY = func(x, y int) (int, int) { return y, w - 1 - x }
	}

	out := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := mapXY(x, y)
			si := src.PixOffset(x, y)
			di := out.PixOffset(dx, dy)
			copy(out.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
	return out
}
