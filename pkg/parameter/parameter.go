// Package parameter models registration parameter maps and the text file
// format the registration engine reads them from.
//
// A parameter file holds one stage of a registration pipeline:
//
//	// comment
//	(Transform "AffineTransform")
//	(NumberOfResolutions 4)
//	(GridSpacingSchedule 8 4 2 1)
//
// Values that parse as numbers are written bare, everything else quoted.
package parameter

import (
	"fmt"
	"sort"
	"strconv"
)

// NoInitialTransform is the InitialTransformParametersFileName value for a
// stage that does not start from a previous transform.
const NoInitialTransform = "NoInitialTransform"

// Well-known keys the registration session reads or forces.
const (
	KeyInitialTransformParametersFileName = "InitialTransformParametersFileName"
	KeyFixedInternalImagePixelType        = "FixedInternalImagePixelType"
	KeyMovingInternalImagePixelType       = "MovingInternalImagePixelType"
	KeyRegistration                       = "Registration"
	KeyMetric                             = "Metric"
	KeyImageSampler                       = "ImageSampler"
	KeyTransform                          = "Transform"
)

// Map is one stage's configuration. A key may carry several values.
type Map map[string][]string

// Stack is an ordered pipeline of stages.
type Stack []Map

// Clone returns a deep copy of m.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Keys returns the keys of m in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// First returns the first value for key, or "" when absent.
func (m Map) First(key string) string {
	if v := m[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Clone returns a deep copy of s.
func (s Stack) Clone() Stack {
	if s == nil {
		return nil
	}
	out := make(Stack, len(s))
	for i, m := range s {
		out[i] = m.Clone()
	}
	return out
}

// Default values of the template parameters.
const (
	DefaultNumberOfResolutions = 4
	DefaultFinalGridSpacing    = 10.0
)

// Default returns the built-in template for transformName: "translation",
// "rigid", "affine", "bspline" (alias "nonrigid"), "spline" or
// "groupwise". The grid spacing only applies to B-spline based templates.
func Default(transformName string, numberOfResolutions int, finalGridSpacing float64) (Map, error) {
	if numberOfResolutions < 1 {
		return nil, fmt.Errorf("number of resolutions must be at least 1, got %d", numberOfResolutions)
	}

	m := Map{
		"FixedImagePyramid":              {"FixedSmoothingImagePyramid"},
		"MovingImagePyramid":             {"MovingSmoothingImagePyramid"},
		"Interpolator":                   {"LinearInterpolator"},
		"Optimizer":                      {"AdaptiveStochasticGradientDescent"},
		"Resampler":                      {"DefaultResampler"},
		"ResampleInterpolator":           {"FinalBSplineInterpolator"},
		"FinalBSplineInterpolationOrder": {"3"},
		"NumberOfResolutions":            {strconv.Itoa(numberOfResolutions)},
		"WriteIterationInfo":             {"false"},

		KeyImageSampler:                   {"RandomCoordinate"},
		"NumberOfSpatialSamples":          {"2048"},
		"CheckNumberOfSamples":            {"true"},
		"MaximumNumberOfSamplingAttempts": {"8"},
		"NewSamplesEveryIteration":        {"true"},

		"NumberOfSamplesForExactGradient": {"4096"},
		"DefaultPixelValue":               {"0.0"},
		"AutomaticParameterEstimation":    {"true"},
		"MaximumNumberOfIterations":       {"256"},

		"WriteResultImage":  {"true"},
		"ResultImageFormat": {"nii"},
	}

	switch transformName {
	case "translation":
		m[KeyRegistration] = []string{"MultiResolutionRegistration"}
		m[KeyTransform] = []string{"TranslationTransform"}
		m[KeyMetric] = []string{"AdvancedMattesMutualInformation"}
		m["AutomaticTransformInitialization"] = []string{"true"}
	case "rigid":
		m[KeyRegistration] = []string{"MultiResolutionRegistration"}
		m[KeyTransform] = []string{"EulerTransform"}
		m[KeyMetric] = []string{"AdvancedMattesMutualInformation"}
	case "affine":
		m[KeyRegistration] = []string{"MultiResolutionRegistration"}
		m[KeyTransform] = []string{"AffineTransform"}
		m[KeyMetric] = []string{"AdvancedMattesMutualInformation"}
	case "bspline", "nonrigid":
		m[KeyRegistration] = []string{"MultiMetricMultiResolutionRegistration"}
		m[KeyTransform] = []string{"BSplineTransform"}
		m[KeyMetric] = []string{"AdvancedMattesMutualInformation", "TransformBendingEnergyPenalty"}
		m["Metric0Weight"] = []string{"1.0"}
		m["Metric1Weight"] = []string{"1.0"}
	case "spline":
		m[KeyRegistration] = []string{"MultiResolutionRegistration"}
		m[KeyTransform] = []string{"SplineKernelTransform"}
		m[KeyMetric] = []string{"AdvancedMattesMutualInformation"}
	case "groupwise":
		m[KeyRegistration] = []string{"MultiResolutionRegistration"}
		m[KeyTransform] = []string{"BSplineStackTransform"}
		m[KeyMetric] = []string{"VarianceOverLastDimensionMetric"}
		m["Interpolator"] = []string{"ReducedDimensionBSplineInterpolator"}
		m["ResampleInterpolator"] = []string{"FinalReducedDimensionBSplineInterpolator"}
	default:
		return nil, fmt.Errorf("no default parameter map %q", transformName)
	}

	switch transformName {
	case "bspline", "nonrigid", "groupwise":
		// coarsest level first: 2^(n-1) ... 2 1
		schedule := make([]string, numberOfResolutions)
		for i := 0; i < numberOfResolutions; i++ {
			schedule[numberOfResolutions-1-i] = strconv.Itoa(1 << i)
		}
		m["GridSpacingSchedule"] = schedule
		m["FinalGridSpacingInPhysicalUnits"] = []string{strconv.FormatFloat(finalGridSpacing, 'f', -1, 64)}
	}

	return m, nil
}
