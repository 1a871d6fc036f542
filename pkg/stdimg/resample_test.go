package stdimg

import (
	"image"
	"image/color"
	"testing"
)

func makeSolidNRGBA(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestResampleLanczosSizes(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			src.SetNRGBA(x, y, color.NRGBA{uint8(x * 32), uint8(y * 64), 0, 255})
		}
	}
	cases := []struct{ w, h int }{{4, 2}, {16, 8}, {1, 1}, {8, 4}, {3, 7}}
	for _, c := range cases {
		out := ResampleLanczos(src, c.w, c.h, 3.0)
		if out.Bounds().Dx() != c.w || out.Bounds().Dy() != c.h {
			t.Fatalf("ResampleLanczos to %dx%d gave %v", c.w, c.h, out.Bounds())
		}
	}
	if out := ResampleLanczos(src, 0, 5, 3.0); out.Bounds().Dx() != 0 {
		t.Fatalf("expected empty image, got %v", out.Bounds())
	}
	if ResampleLanczos(nil, 4, 4, 3.0) != nil {
		t.Fatal("expected nil for nil source")
	}
}

func TestResamplePreservesSolidColor(t *testing.T) {
	c := color.NRGBA{R: 200, G: 100, B: 50, A: 255}
	src := makeSolidNRGBA(37, 23, c)
	out := ResampleLanczos(src, 10, 6, 3.0)
	for y := 0; y < 6; y++ {
		for x := 0; x < 10; x++ {
			if got := out.NRGBAAt(x, y); got != c {
				t.Fatalf("pixel (%d,%d) = %v; want %v", x, y, got, c)
			}
		}
	}
}

func TestCropResampleReadsOnlyTheRect(t *testing.T) {
	// left half red, right half blue
	src := image.NewNRGBA(image.Rect(0, 0, 40, 20))
	red := color.NRGBA{255, 0, 0, 255}
	blue := color.NRGBA{0, 0, 255, 255}
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			if x < 20 {
				src.SetNRGBA(x, y, red)
			} else {
				src.SetNRGBA(x, y, blue)
			}
		}
	}

	out := CropResample(src, image.Rect(20, 0, 40, 20), 10, 10, 3.0)
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if got := out.NRGBAAt(x, y); got != blue {
				t.Fatalf("pixel (%d,%d) = %v; expected only blue from the cropped half", x, y, got)
			}
		}
	}

	// a rect outside the image is clipped away
	empty := CropResample(src, image.Rect(100, 100, 120, 120), 5, 5, 3.0)
	if empty.Bounds().Dx() != 5 || empty.NRGBAAt(0, 0).A != 0 {
		t.Fatalf("expected transparent 5x5 output, got %v", empty.Bounds())
	}
}

func TestToNRGBASubImage(t *testing.T) {
	src := makeSolidNRGBA(10, 10, color.NRGBA{1, 2, 3, 255})
	src.SetNRGBA(5, 5, color.NRGBA{9, 9, 9, 255})
	sub := src.SubImage(image.Rect(5, 5, 8, 8))
	out := ToNRGBA(sub)
	if out.Bounds() != image.Rect(0, 0, 3, 3) {
		t.Fatalf("unexpected bounds %v", out.Bounds())
	}
	if got := out.NRGBAAt(0, 0); got != (color.NRGBA{9, 9, 9, 255}) {
		t.Fatalf("origin pixel = %v", got)
	}
	out.SetNRGBA(0, 0, color.NRGBA{})
	if src.NRGBAAt(5, 5).R != 9 {
		t.Fatal("ToNRGBA aliased its source")
	}
}

func TestAutoOrient(t *testing.T) {
	// 3x2 image with a marker in the top-left corner
	src := makeSolidNRGBA(3, 2, color.NRGBA{0, 0, 0, 255})
	mark := color.NRGBA{255, 255, 255, 255}
	src.SetNRGBA(0, 0, mark)

	cases := []struct {
		orientation int
		w, h        int
		markX       int
		markY       int
	}{
		{1, 3, 2, 0, 0},
		{2, 3, 2, 2, 0},
		{3, 3, 2, 2, 1},
		{4, 3, 2, 0, 1},
		{5, 2, 3, 0, 0},
		{6, 2, 3, 1, 0},
		{7, 2, 3, 1, 2},
		{8, 2, 3, 0, 2},
	}
	for _, c := range cases {
		out := ToNRGBA(AutoOrient(src, c.orientation))
		b := out.Bounds()
		if b.Dx() != c.w || b.Dy() != c.h {
			t.Fatalf("orientation %d: size %dx%d; want %dx%d", c.orientation, b.Dx(), b.Dy(), c.w, c.h)
		}
		if got := out.NRGBAAt(c.markX, c.markY); got != mark {
			t.Fatalf("orientation %d: marker not at (%d,%d)", c.orientation, c.markX, c.markY)
		}
	}
}
