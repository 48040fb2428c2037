// Package quality scores a registration result against the fixed image.
package quality

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"simpleelastix/pkg/raster"
)

// ErrGeometryMismatch is returned when the images do not share a size.
var ErrGeometryMismatch = errors.New("images differ in size")

// histogramBins is the number of bins used for entropy estimates.
const histogramBins = 256

// maxCorrelation caps the squared correlation so identical images get a
// finite mutual information.
const maxCorrelation = 1 - 1e-12

// Metrics holds similarity scores between a fixed image and a result.
type Metrics struct {
	// RMSE is the root mean square intensity difference. Lower is better.
	RMSE float64

	// SSIM is the global structural similarity index in [-1, 1], with 1
	// for identical images.
	SSIM float64

	// MI is the mutual information under a joint Gaussian assumption, in
	// nats. It is 0 for uncorrelated images and grows with dependency.
	MI float64

	// EntropyDiff is the absolute difference of the intensity entropies,
	// in bits.
	EntropyDiff float64
}

func (m Metrics) String() string {
	return fmt.Sprintf("RMSE=%.4f SSIM=%.4f MI=%.4f EntropyDiff=%.4f", m.RMSE, m.SSIM, m.MI, m.EntropyDiff)
}

// Compare scores result against fixed. Both images must have the same
// size; pixel types may differ.
func Compare(fixed, result *raster.Image) (Metrics, error) {
	if raster.IsEmpty(fixed) || raster.IsEmpty(result) ||
		fixed.NumberOfPixels() == 0 || result.NumberOfPixels() == 0 {
		return Metrics{}, fmt.Errorf("cannot compare empty images")
	}
	if !slices.Equal(fixed.Size(), result.Size()) {
		return Metrics{}, fmt.Errorf("%w: %v and %v", ErrGeometryMismatch, fixed.Size(), result.Size())
	}

	x, y := fixed.Data(), result.Data()
	return Metrics{
		RMSE:        rmse(x, y),
		SSIM:        ssim(x, y),
		MI:          mutualInformation(x, y),
		EntropyDiff: math.Abs(entropy(x) - entropy(y)),
	}, nil
}

func rmse(x, y []float64) float64 {
	return floats.Distance(x, y, 2) / math.Sqrt(float64(len(x)))
}

// ssim is computed over the whole image, with the dynamic range taken
// from x.
func ssim(x, y []float64) float64 {
	const k1, k2 = 0.01, 0.03

	l := floats.Max(x) - floats.Min(x)
	if l == 0 {
		l = 1
	}
	c1 := (k1 * l) * (k1 * l)
	c2 := (k2 * l) * (k2 * l)

	muX, varX := stat.MeanVariance(x, nil)
	muY, varY := stat.MeanVariance(y, nil)
	if len(x) < 2 {
		varX, varY = 0, 0
	}
	covXY := 0.0
	if len(x) > 1 {
		covXY = stat.Covariance(x, y, nil)
	}

	num := (2*muX*muY + c1) * (2*covXY + c2)
	den := (muX*muX + muY*muY + c1) * (varX + varY + c2)
	return num / den
}

func mutualInformation(x, y []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		// a constant image
		return 0
	}
	r2 := math.Min(r*r, maxCorrelation)
	return -0.5 * math.Log(1-r2)
}

// entropy is the Shannon entropy of the intensity histogram, in bits.
func entropy(data []float64) float64 {
	lo, hi := floats.Min(data), floats.Max(data)
	if hi <= lo {
		return 0
	}

	p := make([]float64, histogramBins)
	width := (hi - lo) / histogramBins
	for _, v := range data {
		bin := int((v - lo) / width)
		if bin >= histogramBins {
			bin = histogramBins - 1
		}
		p[bin]++
	}
	floats.Scale(1/float64(len(data)), p)
	return stat.Entropy(p) / math.Ln2
}
