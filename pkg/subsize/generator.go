// Package subsize generates the registered sub-sizes of an image file and
// records them in a JSON sidecar next to the source.
package subsize

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/Fepozopo/subsize/pkg/dims"
	"github.com/Fepozopo/subsize/pkg/editor"
	"github.com/Fepozopo/subsize/pkg/sizes"
	"github.com/Fepozopo/subsize/pkg/stdimg"
)

// ErrNotImage is returned by Generate for files that are not supported
// images.
var ErrNotImage = editor.ErrNotImage

// ErrNameConflict is returned when a file Generate would write is already
// listed in the sidecar of another source with the same base name, such as
// photo.jpg and photo.png.
var ErrNameConflict = errors.New("name claimed by another source")

// DefaultThreshold is the big-image threshold in pixels.
const DefaultThreshold = 2560

// Generator creates sub-size files for source images.
type Generator struct {
	// Registry holds the sizes to generate. Nil means sizes.Default().
	Registry *sizes.Registry
	// Backend names the editor backend. Empty selects editor.Default().
	Backend string
	// Threshold is the big-image threshold. Zero or less disables scaling.
	Threshold int
	// Quality is the JPEG output quality.
	Quality        int
	ForceIdentical bool
	SmartCrop      bool
	// Debounce is the quiet period Watch waits for before generating.
	Debounce time.Duration
	Logger   hclog.Logger
}

func (g *Generator) logger() hclog.Logger {
	if g.Logger == nil {
		return hclog.NewNullLogger()
	}
	return g.Logger
}

func (g *Generator) registry() *sizes.Registry {
	if g.Registry == nil {
		return sizes.Default()
	}
	return g.Registry
}

// Generate writes every applicable sub-size of the image at path and
// returns the metadata it stored in the sidecar.
func (g *Generator) Generate(ctx context.Context, path string) (*Metadata, error) {
	log := g.logger().With("file", filepath.Base(path))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	mime, err := editor.DetectMime(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	src, _, err := editor.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	imageMeta, err := stdimg.ReadImageMeta(data)
	if err != nil {
		log.Warn("Failed to read image meta", "error", err)
	}
	rotated := false
	if mime == "image/jpeg" {
		if o, err := stdimg.JPEGOrientation(data); err == nil && o > 1 {
			log.Debug("Auto-orient", "orientation", o)
			src = stdimg.AutoOrient(src, o)
			imageMeta.Orientation = 1
			rotated = true
		}
	}

	outMime, ext := editor.OutputMime(mime)
	sidecar := SidecarName(path)
	claimed := claimedFiles(filepath.Dir(path), stem(filepath.Base(path)), sidecar)
	checkTarget := func(target string) error {
		if owner, ok := claimed[filepath.Base(target)]; ok {
			return fmt.Errorf("%w: %s belongs to %s", ErrNameConflict, filepath.Base(target), filepath.Base(owner))
		}
		return nil
	}
	md := &Metadata{
		File:      filepath.Base(path),
		Sizes:     map[string]SizeMeta{},
		ImageMeta: imageMeta,
	}

	ed, err := editor.Open(g.Backend, src)
	if err != nil {
		return nil, err
	}
	defer func() { ed.Close() }()
	w, h := ed.Size()

	switch {
	case g.Threshold > 0 && (w > g.Threshold || h > g.Threshold):
		nw, nh := dims.Constrain(w, h, g.Threshold, g.Threshold)
		log.Info("Scaling big image", "from", fmt.Sprintf("%dx%d", w, h), "to", fmt.Sprintf("%dx%d", nw, nh))
		if err := checkTarget(ScaledName(path, ext)); err != nil {
			return nil, err
		}
		scaled, err := ed.Resample(dims.Result{DstW: nw, DstH: nh, SrcW: w, SrcH: h})
		if err != nil {
			return nil, fmt.Errorf("scaling: %w", err)
		}
		if err := g.replaceSource(md, &ed, &src, scaled, ScaledName(path, ext), outMime); err != nil {
			return nil, err
		}
		w, h = nw, nh
	case rotated:
		if err := checkTarget(RotatedName(path, ext)); err != nil {
			return nil, err
		}
		if err := g.replaceSource(md, &ed, &src, src, RotatedName(path, ext), outMime); err != nil {
			return nil, err
		}
	}
	md.Width, md.Height = w, h
	if md.OriginalImage == "" {
		fi, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		md.Filesize = fi.Size()
	}

	produced := map[dims.Result]SizeMeta{}
	opts := dims.Options{ForceIdentical: g.ForceIdentical}
	for _, size := range g.registry().All() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := dims.Resize(w, h, size.Width, size.Height, size.Crop, opts)
		if dims.IsNoOp(err) {
			log.Debug("Skipping size", "size", size.Name, "reason", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("size %s: %w", size.Name, err)
		}
		if g.SmartCrop && size.Crop.Enabled() {
			if r, err = smartCrop(ctx, src, r); err != nil {
				return nil, fmt.Errorf("size %s: %w", size.Name, err)
			}
		}
		if sm, ok := produced[r]; ok {
			log.Debug("Reusing file", "size", size.Name, "target", sm.File)
			md.Sizes[size.Name] = sm
			continue
		}

		target := SizedName(path, r.DstW, r.DstH, ext)
		if err := checkTarget(target); err != nil {
			return nil, err
		}
		out, err := ed.Resample(r)
		if err != nil {
			return nil, fmt.Errorf("size %s: %w", size.Name, err)
		}
		n, err := writeImage(target, out, outMime, g.Quality)
		if err != nil {
			return nil, err
		}
		log.Debug("Wrote size", "size", size.Name, "target", target, "result", r)
		sm := SizeMeta{
			File:     filepath.Base(target),
			Width:    r.DstW,
			Height:   r.DstH,
			MimeType: outMime,
			Filesize: n,
		}
		produced[r] = sm
		md.Sizes[size.Name] = sm
	}

	if err := md.WriteFile(sidecar); err != nil {
		return nil, err
	}
	log.Info("Generated sizes", "count", len(md.Sizes))
	return md, nil
}

// replaceSource writes img as the new attachment file and reopens the
// editor on it so sub-sizes are made from the replacement.
func (g *Generator) replaceSource(md *Metadata, ed *editor.Editor, src *image.Image, img image.Image, target, mime string) error {
	n, err := writeImage(target, img, mime, g.Quality)
	if err != nil {
		return err
	}
	next, err := editor.Open(g.Backend, img)
	if err != nil {
		return err
	}
	(*ed).Close()
	*ed, *src = next, img

	md.OriginalImage = md.File
	md.File = filepath.Base(target)
	md.Filesize = n
	return nil
}

// writeImage encodes img to path and returns the file size.
func writeImage(path string, img image.Image, mime string, quality int) (n int64, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	bw := bufio.NewWriter(f)
	if err := editor.Encode(bw, img, mime, quality); err != nil {
		return 0, fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// isNotImage reports whether err means the file was skipped as a non-image.
func isNotImage(err error) bool {
	return errors.Is(err, ErrNotImage)
}
