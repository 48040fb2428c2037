// Package raster provides the N-dimensional typed image handle that is
// passed between a registration session and its engine.
package raster

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Image is an N-dimensional raster with physical geometry.
//
// Pixels are stored in a flat row-major buffer where the first axis varies
// fastest, the same layout the MetaImage format uses on disk. Values are
// kept as float64 and restricted to the value set of the pixel type.
type Image struct {
	// pixelID is the element type of the image
	pixelID PixelID

	// size holds the number of pixels along each axis
	size []int

	// spacing is the physical distance between pixel centers per axis
	spacing []float64

	// origin is the physical position of the first pixel
	origin []float64

	// direction is the dim x dim direction cosine matrix
	direction *mat.Dense

	// data is the pixel buffer, len == product of size
	data []float64
}

// New allocates a zero-filled image with unit spacing, zero origin and
// identity direction.
func New(pixelID PixelID, size ...int) *Image {
	n := 1
	for _, s := range size {
		if s < 0 {
			s = 0
		}
		n *= s
	}
	if len(size) == 0 {
		n = 0
	}

	dim := len(size)
	img := &Image{
		pixelID: pixelID,
		size:    append([]int(nil), size...),
		spacing: make([]float64, dim),
		origin:  make([]float64, dim),
		data:    make([]float64, n),
	}
	for i := range img.spacing {
		img.spacing[i] = 1
	}
	if dim > 0 {
		img.direction = identity(dim)
	}
	return img
}

// NewFromData builds an image around data. The values are converted to
// the value set of pixelID in place.
func NewFromData(pixelID PixelID, size []int, data []float64) (*Image, error) {
	img := New(pixelID, size...)
	if len(data) != len(img.data) {
		return nil, fmt.Errorf("data length %d does not match image size %v (%d pixels)", len(data), size, len(img.data))
	}
	for i, v := range data {
		data[i] = pixelID.convert(v)
	}
	img.data = data
	return img, nil
}

func identity(dim int) *mat.Dense {
	d := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		d.Set(i, i, 1)
	}
	return d
}

// PixelID returns the element type.
func (img *Image) PixelID() PixelID { return img.pixelID }

// Dimension returns the number of axes.
func (img *Image) Dimension() int { return len(img.size) }

// Size returns a copy of the per-axis pixel counts.
func (img *Image) Size() []int { return append([]int(nil), img.size...) }

// Width is the size of the first axis, or 0 for an image with no axes.
func (img *Image) Width() int {
	if len(img.size) < 1 {
		return 0
	}
	return img.size[0]
}

// Height is the size of the second axis, or 0 for an image with fewer than
// two axes.
func (img *Image) Height() int {
	if len(img.size) < 2 {
		return 0
	}
	return img.size[1]
}

// Depth is the size of the third axis, 1 for 2-D images.
func (img *Image) Depth() int {
	if len(img.size) < 3 {
		return 1
	}
	return img.size[2]
}

// NumberOfPixels returns the length of the pixel buffer.
func (img *Image) NumberOfPixels() int { return len(img.data) }

// Spacing returns a copy of the pixel spacing.
func (img *Image) Spacing() []float64 { return append([]float64(nil), img.spacing...) }

// SetSpacing replaces the pixel spacing.
func (img *Image) SetSpacing(spacing ...float64) error {
	if len(spacing) != img.Dimension() {
		return fmt.Errorf("spacing has %d components, image has dimension %d", len(spacing), img.Dimension())
	}
	for i, s := range spacing {
		if s <= 0 {
			return fmt.Errorf("spacing component %d must be positive, got %g", i, s)
		}
	}
	img.spacing = append([]float64(nil), spacing...)
	return nil
}

// Origin returns a copy of the physical origin.
func (img *Image) Origin() []float64 { return append([]float64(nil), img.origin...) }

// SetOrigin replaces the physical origin.
func (img *Image) SetOrigin(origin ...float64) error {
	if len(origin) != img.Dimension() {
		return fmt.Errorf("origin has %d components, image has dimension %d", len(origin), img.Dimension())
	}
	img.origin = append([]float64(nil), origin...)
	return nil
}

// Direction returns a copy of the direction cosine matrix.
func (img *Image) Direction() *mat.Dense {
	if img.direction == nil {
		return nil
	}
	return mat.DenseCopyOf(img.direction)
}

// SetDirection replaces the direction cosine matrix. It must be square
// with the image dimension and non-singular.
func (img *Image) SetDirection(direction mat.Matrix) error {
	r, c := direction.Dims()
	if r != img.Dimension() || c != img.Dimension() {
		return fmt.Errorf("direction is %dx%d, image has dimension %d", r, c, img.Dimension())
	}
	if mat.Det(direction) == 0 {
		return fmt.Errorf("direction matrix is singular")
	}
	img.direction = mat.DenseCopyOf(direction)
	return nil
}

// Data exposes the pixel buffer. Writes through the returned slice are
// not converted to the pixel type.
func (img *Image) Data() []float64 { return img.data }

func (img *Image) offset(idx []int) (int, error) {
	if len(idx) != len(img.size) {
		return 0, fmt.Errorf("index has %d components, image has dimension %d", len(idx), len(img.size))
	}
	off, stride := 0, 1
	for i, v := range idx {
		if v < 0 || v >= img.size[i] {
			return 0, fmt.Errorf("index %v outside image of size %v", idx, img.size)
		}
		off += v * stride
		stride *= img.size[i]
	}
	return off, nil
}

// At returns the pixel value at idx.
func (img *Image) At(idx ...int) (float64, error) {
	off, err := img.offset(idx)
	if err != nil {
		return 0, err
	}
	return img.data[off], nil
}

// Set stores v, converted to the pixel type, at idx.
func (img *Image) Set(v float64, idx ...int) error {
	off, err := img.offset(idx)
	if err != nil {
		return err
	}
	img.data[off] = img.pixelID.convert(v)
	return nil
}

// String summarizes the image as "<dim>-D <type> <size>".
func (img *Image) String() string {
	return fmt.Sprintf("%d-D %s %v", img.Dimension(), img.pixelID, img.size)
}

// IsEmpty reports whether img holds no raster. Width and height are what
// decide emptiness, not the pixel buffer.
func IsEmpty(img *Image) bool {
	return img == nil || (img.Width() == 0 && img.Height() == 0)
}

// Cast returns a copy of img with pixel type pixelID. Geometry is copied;
// values are converted to the new value set (rounded and clamped for
// integer types).
func Cast(img *Image, pixelID PixelID) *Image {
	out := &Image{
		pixelID: pixelID,
		size:    img.Size(),
		spacing: img.Spacing(),
		origin:  img.Origin(),
		data:    make([]float64, len(img.data)),
	}
	if img.direction != nil {
		out.direction = mat.DenseCopyOf(img.direction)
	}
	for i, v := range img.data {
		out.data[i] = pixelID.convert(v)
	}
	return out
}
