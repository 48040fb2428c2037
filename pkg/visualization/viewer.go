// Package visualization renders slices of registration inputs and results
// as grayscale pictures.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/floats"

	"simpleelastix/pkg/raster"
)

// Viewer extracts 2D slices from a 2D or 3D image. Intensities are mapped
// linearly from the image's range onto the full 16-bit gray range.
type Viewer struct {
	img *raster.Image

	width  int
	height int
	depth  int

	lo, hi float64
}

// NewViewer creates a viewer for img.
func NewViewer(img *raster.Image) (*Viewer, error) {
	if raster.IsEmpty(img) || img.NumberOfPixels() == 0 {
		return nil, fmt.Errorf("cannot view an empty image")
	}
	if d := img.Dimension(); d != 2 && d != 3 {
		return nil, fmt.Errorf("cannot view a %d-D image", d)
	}
	return &Viewer{
		img:    img,
		width:  img.Width(),
		height: img.Height(),
		depth:  img.Depth(),
		lo:     floats.Min(img.Data()),
		hi:     floats.Max(img.Data()),
	}, nil
}

func (v *Viewer) gray(idx int) color.Gray16 {
	if v.hi <= v.lo {
		return color.Gray16{}
	}
	n := (v.img.Data()[idx] - v.lo) / (v.hi - v.lo)
	return color.Gray16{Y: uint16(math.Round(n * math.MaxUint16))}
}

// ExtractSlice extracts the plane at position along axis ("x", "y" or "z").
// A 2D image has a single z slice.
func (v *Viewer) ExtractSlice(axis string, position int) (*image.Gray16, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	var img *image.Gray16

	switch strings.ToLower(axis) {
	case "x":
		// YZ plane
		if position >= v.width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, v.width)
		}
		img = image.NewGray16(image.Rect(0, 0, v.depth, v.height))
		for y := 0; y < v.height; y++ {
			for z := 0; z < v.depth; z++ {
				img.SetGray16(z, y, v.gray(z*v.width*v.height+y*v.width+position))
			}
		}

	case "y":
		// XZ plane
		if position >= v.height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, v.height)
		}
		img = image.NewGray16(image.Rect(0, 0, v.width, v.depth))
		for z := 0; z < v.depth; z++ {
			for x := 0; x < v.width; x++ {
				img.SetGray16(x, z, v.gray(z*v.width*v.height+position*v.width+x))
			}
		}

	case "z":
		// XY plane
		if position >= v.depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, v.depth)
		}
		img = image.NewGray16(image.Rect(0, 0, v.width, v.height))
		for y := 0; y < v.height; y++ {
			for x := 0; x < v.width; x++ {
				img.SetGray16(x, y, v.gray(position*v.width*v.height+y*v.width+x))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// SaveSlice saves an extracted slice. The format follows the file
// extension: .jpg/.jpeg for JPEG, anything else for PNG.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	default:
		return png.Encode(file, img)
	}
}

// SaveSliceSequence saves every slice along axis as a PNG file in outputDir.
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch strings.ToLower(axis) {
	case "x":
		maxPos = v.width
	case "y":
		maxPos = v.height
	case "z":
		maxPos = v.depth
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", strings.ToLower(axis), pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}

// Preview returns the middle z slice, resampled to physical proportions
// and shrunk so that its longer side is at most maxSize pixels. A
// non-positive maxSize keeps the physical size in pixels.
func (v *Viewer) Preview(maxSize int) (image.Image, error) {
	slice, err := v.ExtractSlice("z", v.depth/2)
	if err != nil {
		return nil, err
	}

	spacing := v.img.Spacing()
	w := float64(v.width) * spacing[0] / math.Min(spacing[0], spacing[1])
	h := float64(v.height) * spacing[1] / math.Min(spacing[0], spacing[1])
	if maxSize > 0 {
		if scale := float64(maxSize) / math.Max(w, h); scale < 1 {
			w *= scale
			h *= scale
		}
	}

	bounds := image.Rect(0, 0, max(1, int(math.Round(w))), max(1, int(math.Round(h))))
	if bounds == slice.Bounds() {
		return slice, nil
	}
	dst := image.NewGray16(bounds)
	draw.CatmullRom.Scale(dst, bounds, slice, slice.Bounds(), draw.Src, nil)
	return dst, nil
}

// SavePreview writes Preview(maxSize) to filename.
func (v *Viewer) SavePreview(filename string, maxSize int) error {
	img, err := v.Preview(maxSize)
	if err != nil {
		return err
	}
	return v.SaveSlice(img, filename)
}
