package visualization

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"simpleelastix/pkg/raster"
)

// newVolume returns a width x height x depth image where every z slice
// holds the value z.
func newVolume(t *testing.T, width, height, depth int) *raster.Image {
	t.Helper()
	img := raster.New(raster.Float32, width, height, depth)
	for z := 0; z < depth; z++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				if err := img.Set(float64(z), x, y, z); err != nil {
					t.Fatalf("Failed to set voxel: %v", err)
				}
			}
		}
	}
	return img
}

func TestNewViewer(t *testing.T) {
	viewer, err := NewViewer(newVolume(t, 10, 8, 5))
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}
	if viewer.width != 10 || viewer.height != 8 || viewer.depth != 5 {
		t.Errorf("Expected 10x8x5, got %dx%dx%d", viewer.width, viewer.height, viewer.depth)
	}
	if viewer.lo != 0 || viewer.hi != 4 {
		t.Errorf("Expected range [0, 4], got [%f, %f]", viewer.lo, viewer.hi)
	}

	if _, err := NewViewer(raster.New(raster.Float32, 0, 0)); err == nil {
		t.Error("Expected error for empty image, got nil")
	}
	if _, err := NewViewer(raster.New(raster.Float32, 5, 0)); err == nil {
		t.Error("Expected error for image without pixels, got nil")
	}
	if _, err := NewViewer(raster.New(raster.Float32, 2, 2, 2, 2)); err == nil {
		t.Error("Expected error for 4-D image, got nil")
	}
}

// TestExtractSlice verifies that slices are correctly extracted from the volume
func TestExtractSlice(t *testing.T) {
	width, height, depth := 10, 10, 5
	viewer, err := NewViewer(newVolume(t, width, height, depth))
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	for z := 0; z < depth; z++ {
		img, err := viewer.ExtractSlice("z", z)
		if err != nil {
			t.Fatalf("Failed to extract Z slice at position %d: %v", z, err)
		}

		bounds := img.Bounds()
		if bounds.Dx() != width || bounds.Dy() != height {
			t.Errorf("Expected Z slice dimensions %dx%d, got %dx%d",
				width, height, bounds.Dx(), bounds.Dy())
		}

		expected := uint16(math.Round(float64(z) / float64(depth-1) * math.MaxUint16))
		if got := img.Gray16At(width/2, height/2).Y; got != expected {
			t.Errorf("Expected Z slice value %d at center, got %d", expected, got)
		}
	}

	imgX, err := viewer.ExtractSlice("X", width/2)
	if err != nil {
		t.Fatalf("Failed to extract X slice: %v", err)
	}
	if b := imgX.Bounds(); b.Dx() != depth || b.Dy() != height {
		t.Errorf("Expected X slice dimensions %dx%d, got %dx%d", depth, height, b.Dx(), b.Dy())
	}
	if got := imgX.Gray16At(depth-1, 0).Y; got != math.MaxUint16 {
		t.Errorf("Expected last column of X slice to be white, got %d", got)
	}

	imgY, err := viewer.ExtractSlice("y", height/2)
	if err != nil {
		t.Fatalf("Failed to extract Y slice: %v", err)
	}
	if b := imgY.Bounds(); b.Dx() != width || b.Dy() != depth {
		t.Errorf("Expected Y slice dimensions %dx%d, got %dx%d", width, depth, b.Dx(), b.Dy())
	}

	if _, err := viewer.ExtractSlice("invalid", 0); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
	if _, err := viewer.ExtractSlice("z", depth); err == nil {
		t.Error("Expected error for out of bounds position, got nil")
	}
	if _, err := viewer.ExtractSlice("x", -1); err == nil {
		t.Error("Expected error for negative position, got nil")
	}
}

func TestExtractSliceConstantImage(t *testing.T) {
	img := raster.New(raster.UInt8, 4, 4)
	for i := range img.Data() {
		img.Data()[i] = 7
	}
	viewer, err := NewViewer(img)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}
	slice, err := viewer.ExtractSlice("z", 0)
	if err != nil {
		t.Fatalf("Failed to extract slice: %v", err)
	}
	if got := slice.Gray16At(1, 1).Y; got != 0 {
		t.Errorf("Expected black for a constant image, got %d", got)
	}
}

func TestSaveSlice(t *testing.T) {
	tempDir := t.TempDir()
	viewer, err := NewViewer(newVolume(t, 10, 10, 5))
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	img, err := viewer.ExtractSlice("z", 0)
	if err != nil {
		t.Fatalf("Failed to extract slice: %v", err)
	}

	for _, name := range []string{"slice.jpg", "slice.png"} {
		filename := filepath.Join(tempDir, name)
		if err := viewer.SaveSlice(img, filename); err != nil {
			t.Fatalf("Failed to save slice: %v", err)
		}
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			t.Errorf("Saved file does not exist: %s", filename)
		}
	}
}

func TestSaveSliceSequence(t *testing.T) {
	tempDir := t.TempDir()
	depth := 3
	viewer, err := NewViewer(newVolume(t, 5, 5, depth))
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	outputDir := filepath.Join(tempDir, "slices")
	if err := viewer.SaveSliceSequence("Z", outputDir); err != nil {
		t.Fatalf("Failed to save slice sequence: %v", err)
	}

	for z := 0; z < depth; z++ {
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_z_%03d.png", z))
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			t.Errorf("Expected slice file does not exist: %s", filename)
		}
	}

	if err := viewer.SaveSliceSequence("invalid", outputDir); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
}

func TestPreview(t *testing.T) {
	img := newVolume(t, 40, 20, 3)
	if err := img.SetSpacing(1, 2, 1); err != nil {
		t.Fatalf("Failed to set spacing: %v", err)
	}
	viewer, err := NewViewer(img)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	tests := []struct {
		maxSize int
		want    image.Point
	}{
		{0, image.Pt(40, 40)},
		{100, image.Pt(40, 40)},
		{20, image.Pt(20, 20)},
	}
	for _, tt := range tests {
		preview, err := viewer.Preview(tt.maxSize)
		if err != nil {
			t.Fatalf("Preview(%d) failed: %v", tt.maxSize, err)
		}
		if got := preview.Bounds().Size(); got != tt.want {
			t.Errorf("Preview(%d) size = %v, want %v", tt.maxSize, got, tt.want)
		}
	}
}

func TestSavePreview(t *testing.T) {
	viewer, err := NewViewer(newVolume(t, 64, 32, 1))
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	filename := filepath.Join(t.TempDir(), "preview.png")
	if err := viewer.SavePreview(filename, 16); err != nil {
		t.Fatalf("Failed to save preview: %v", err)
	}

	f, err := os.Open(filename)
	if err != nil {
		t.Fatalf("Failed to open preview: %v", err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Failed to decode preview: %v", err)
	}
	if got := decoded.Bounds().Size(); got != image.Pt(16, 8) {
		t.Errorf("Expected 16x8 preview, got %v", got)
	}
}
