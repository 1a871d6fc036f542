package subsize

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fepozopo/subsize/pkg/dims"
	"github.com/Fepozopo/subsize/pkg/sizes"
)

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x), uint8(y), 96, 255})
		}
	}
	return img
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gradient(w, h)))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

// writeOrientedJPEG writes a w x h JPEG carrying an EXIF orientation tag.
func writeOrientedJPEG(t *testing.T, path string, w, h int, orientation uint16) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, gradient(w, h), &jpeg.Options{Quality: 90}))
	enc := buf.Bytes()

	// little-endian TIFF with a single IFD0 entry
	tiff := []byte{'I', 'I', 0x2A, 0x00, 0x08, 0x00, 0x00, 0x00, 0x01, 0x00}
	entry := make([]byte, 12)
	binary.LittleEndian.PutUint16(entry[0:], 0x0112)
	binary.LittleEndian.PutUint16(entry[2:], 3)
	binary.LittleEndian.PutUint32(entry[4:], 1)
	binary.LittleEndian.PutUint16(entry[8:], orientation)
	tiff = append(tiff, entry...)
	tiff = append(tiff, 0, 0, 0, 0)

	payload := append([]byte("Exif\x00\x00"), tiff...)
	seg := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	seg = append(seg, payload...)

	out := append([]byte{}, enc[:2]...)
	out = append(out, seg...)
	out = append(out, enc[2:]...)
	require.NoError(t, os.WriteFile(path, out, 0o644))
}

func imageSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func TestGenerateDefaultSizes(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.png")
	writePNG(t, src, 640, 480)

	g := &Generator{Backend: "imaging"}
	md, err := g.Generate(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, 640, md.Width)
	assert.Equal(t, 480, md.Height)
	assert.Equal(t, "photo.png", md.File)
	assert.Empty(t, md.OriginalImage)
	assert.Positive(t, md.Filesize)

	// everything from medium_large up would enlarge a 640x480 source
	require.Len(t, md.Sizes, 2)
	thumb := md.Sizes["thumbnail"]
	assert.Equal(t, "photo-150x150.png", thumb.File)
	assert.Equal(t, "image/png", thumb.MimeType)
	medium := md.Sizes["medium"]
	assert.Equal(t, "photo-300x225.png", medium.File)

	for _, sm := range md.Sizes {
		w, h := imageSize(t, filepath.Join(dir, sm.File))
		assert.Equal(t, sm.Width, w, sm.File)
		assert.Equal(t, sm.Height, h, sm.File)
		fi, err := os.Stat(filepath.Join(dir, sm.File))
		require.NoError(t, err)
		assert.Equal(t, fi.Size(), sm.Filesize)
	}

	stored, err := ReadMetadata(filepath.Join(dir, "photo.png.meta.json"))
	require.NoError(t, err)
	assert.Equal(t, md, stored)
}

func TestGenerateBigImageThreshold(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.png")
	writePNG(t, src, 640, 480)

	g := &Generator{Backend: "imaging", Threshold: 320}
	md, err := g.Generate(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, "photo-scaled.png", md.File)
	assert.Equal(t, "photo.png", md.OriginalImage)
	assert.Equal(t, 320, md.Width)
	assert.Equal(t, 240, md.Height)
	w, h := imageSize(t, filepath.Join(dir, "photo-scaled.png"))
	assert.Equal(t, 320, w)
	assert.Equal(t, 240, h)

	assert.Equal(t, "photo-150x150.png", md.Sizes["thumbnail"].File)
	assert.Equal(t, "photo-300x225.png", md.Sizes["medium"].File)
	assert.Equal(t, []string{"photo-scaled.png", "photo-300x225.png", "photo-150x150.png"}, md.Files())
}

func TestGenerateReusesIdenticalResults(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.png")
	writePNG(t, src, 640, 480)

	reg := sizes.New()
	require.NoError(t, reg.Add(sizes.Size{Name: "a", Width: 100, Height: 100}))
	require.NoError(t, reg.Add(sizes.Size{Name: "b", Width: 100}))

	g := &Generator{Registry: reg, Backend: "stdimg"}
	md, err := g.Generate(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, md.Sizes["a"], md.Sizes["b"])
	assert.Equal(t, "photo-100x75.png", md.Sizes["a"].File)

	matches, err := filepath.Glob(filepath.Join(dir, "photo-*"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestGenerateAutoOrients(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.jpg")
	writeOrientedJPEG(t, src, 40, 20, 6)

	reg := sizes.New()
	require.NoError(t, reg.Add(sizes.Size{Name: "small", Width: 10}))

	g := &Generator{Registry: reg, Backend: "imaging", Quality: 90}
	md, err := g.Generate(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, "photo-rotated.jpg", md.File)
	assert.Equal(t, "photo.jpg", md.OriginalImage)
	assert.Equal(t, 20, md.Width)
	assert.Equal(t, 40, md.Height)
	assert.Equal(t, 1, md.ImageMeta.Orientation)

	small := md.Sizes["small"]
	assert.Equal(t, "photo-10x20.jpg", small.File)
	assert.Equal(t, "image/jpeg", small.MimeType)
	w, h := imageSize(t, filepath.Join(dir, small.File))
	assert.Equal(t, 10, w)
	assert.Equal(t, 20, h)
}

func TestGenerateMalformedEXIF(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.jpg")
	writeOrientedJPEG(t, src, 40, 20, 6)

	// corrupt the TIFF byte order mark behind the Exif header
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	i := bytes.Index(data, []byte("Exif\x00\x00"))
	require.Positive(t, i)
	copy(data[i+6:], "XX")
	require.NoError(t, os.WriteFile(src, data, 0o644))

	reg := sizes.New()
	require.NoError(t, reg.Add(sizes.Size{Name: "small", Width: 10}))
	md, err := (&Generator{Registry: reg, Backend: "imaging"}).Generate(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, "photo.jpg", md.File)
	assert.Empty(t, md.OriginalImage)
	assert.Equal(t, "photo-10x5.jpg", md.Sizes["small"].File)
}

func TestGenerateSameStemSeparateSidecars(t *testing.T) {
	dir := t.TempDir()
	reg := sizes.New()
	require.NoError(t, reg.Add(sizes.Size{Name: "small", Width: 10}))
	g := &Generator{Registry: reg, Backend: "imaging"}

	pngPath := filepath.Join(dir, "photo.png")
	writePNG(t, pngPath, 40, 20)
	jpgPath := filepath.Join(dir, "photo.jpg")
	writeOrientedJPEG(t, jpgPath, 40, 40, 1)

	_, err := g.Generate(context.Background(), pngPath)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "photo.png.meta.json"))

	// photo.jpg would write photo-10x10.jpg, which nothing claims
	_, err = g.Generate(context.Background(), jpgPath)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "photo.jpg.meta.json"))

	stored, err := ReadMetadata(filepath.Join(dir, "photo.png.meta.json"))
	require.NoError(t, err)
	assert.Equal(t, "photo.png", stored.File)
	assert.Equal(t, "photo-10x5.png", stored.Sizes["small"].File)
}

func TestGenerateRefusesClaimedNames(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.png")
	writePNG(t, src, 640, 480)

	other := &Metadata{
		File:  "photo.gif",
		Sizes: map[string]SizeMeta{"thumbnail": {File: "photo-150x150.png", Width: 150, Height: 150}},
	}
	require.NoError(t, other.WriteFile(filepath.Join(dir, "photo.gif.meta.json")))

	_, err := (&Generator{Backend: "imaging"}).Generate(context.Background(), src)
	assert.ErrorIs(t, err, ErrNameConflict)
	assert.NoFileExists(t, SidecarName(src))
	assert.NoFileExists(t, filepath.Join(dir, "photo-150x150.png"))

	// regenerating over files listed in its own sidecar is fine
	require.NoError(t, os.Remove(filepath.Join(dir, "photo.gif.meta.json")))
	g := &Generator{Backend: "imaging"}
	_, err = g.Generate(context.Background(), src)
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), src)
	assert.NoError(t, err)
}

func TestGenerateSmartCrop(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.png")
	writePNG(t, src, 640, 480)

	reg := sizes.New()
	require.NoError(t, reg.Add(sizes.Size{Name: "thumbnail", Width: 150, Height: 150, Crop: dims.Centered()}))

	g := &Generator{Registry: reg, Backend: "imaging", SmartCrop: true}
	md, err := g.Generate(context.Background(), src)
	require.NoError(t, err)

	w, h := imageSize(t, filepath.Join(dir, md.Sizes["thumbnail"].File))
	assert.Equal(t, 150, w)
	assert.Equal(t, 150, h)
}

func TestGenerateRejectsNonImages(t *testing.T) {
	src := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello world, not a picture"), 0o644))

	_, err := (&Generator{}).Generate(context.Background(), src)
	assert.ErrorIs(t, err, ErrNotImage)
	assert.NoFileExists(t, SidecarName(src))
}

func TestGenerateCancelled(t *testing.T) {
	src := filepath.Join(t.TempDir(), "photo.png")
	writePNG(t, src, 64, 48)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Generator{}).Generate(ctx, src)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, SidecarName(src))
}

func TestGenerateMissingFile(t *testing.T) {
	_, err := (&Generator{}).Generate(context.Background(), filepath.Join(t.TempDir(), "nope.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRecentre(t *testing.T) {
	r := dims.Result{SrcX: 80, SrcW: 480, SrcH: 480, DstW: 150, DstH: 150}

	got := recentre(r, image.Rect(500, 0, 640, 480), 640, 480)
	assert.Equal(t, 160, got.SrcX)
	assert.Equal(t, 0, got.SrcY)

	got = recentre(r, image.Rect(0, 0, 100, 100), 640, 480)
	assert.Equal(t, 0, got.SrcX)

	got = recentre(r, image.Rect(240, 100, 400, 300), 640, 480)
	assert.Equal(t, 80, got.SrcX)

	assert.Equal(t, r, recentre(r, image.Rectangle{}, 640, 480))
}

func TestWatchGeneratesNewImages(t *testing.T) {
	dir := t.TempDir()
	reg := sizes.New()
	require.NoError(t, reg.Add(sizes.Size{Name: "small", Width: 32}))
	g := &Generator{Registry: reg, Backend: "imaging", Debounce: 50 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Watch(ctx, dir) }()

	// give the watcher time to register the directory
	time.Sleep(200 * time.Millisecond)
	src := filepath.Join(dir, "upload.png")
	writePNG(t, src, 64, 48)

	require.Eventually(t, func() bool {
		_, err := os.Stat(SidecarName(src))
		return err == nil
	}, 5*time.Second, 25*time.Millisecond)
	assert.FileExists(t, filepath.Join(dir, "upload-32x24.png"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchProcessesUserFilesWithSizeSuffix(t *testing.T) {
	dir := t.TempDir()
	reg := sizes.New()
	require.NoError(t, reg.Add(sizes.Size{Name: "small", Width: 32}))
	g := &Generator{Registry: reg, Backend: "imaging", Debounce: 50 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = g.Watch(ctx, dir) }()

	time.Sleep(200 * time.Millisecond)
	src := filepath.Join(dir, "wallpaper-64x48.png")
	writePNG(t, src, 64, 48)

	require.Eventually(t, func() bool {
		_, err := os.Stat(SidecarName(src))
		return err == nil
	}, 5*time.Second, 25*time.Millisecond)
	assert.FileExists(t, filepath.Join(dir, "wallpaper-64x48-32x24.png"))
	assert.True(t, IsGenerated(filepath.Join(dir, "wallpaper-64x48-32x24.png")))
	assert.False(t, IsGenerated(src))
}

func TestWatchMissingDir(t *testing.T) {
	err := (&Generator{}).Watch(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
