package registration

import (
	"simpleelastix/pkg/parameter"
	"simpleelastix/pkg/raster"
)

// Job is everything the engine needs for one registration run. Images
// are already cast to the internal pixel type; masks are passed as is.
type Job struct {
	// Dimension of every image and mask in the job
	Dimension int

	FixedImages  []*raster.Image
	MovingImages []*raster.Image
	FixedMasks   []*raster.Image
	MovingMasks  []*raster.Image

	// InitialTransformParameterFileName is the parameter file of a
	// transform to start from, empty for none.
	InitialTransformParameterFileName string

	FixedPointSetFileName  string
	MovingPointSetFileName string

	// OutputDirectory is where the engine may write its own files.
	OutputDirectory string

	LogFileName  string
	LogToFile    bool
	LogToConsole bool

	// ParameterMaps is the stage pipeline to run. The session hands the
	// engine its own copy.
	ParameterMaps parameter.Stack
}

// Output holds what a finished run produced.
type Output struct {
	// Image is the moving image resampled onto the fixed image
	Image *raster.Image

	// TransformParameterMaps has one entry per stage, each encoding the
	// transform the stage found.
	TransformParameterMaps parameter.Stack
}

// Engine runs a registration. Run blocks until the engine is done.
type Engine interface {
	Run(job *Job) (*Output, error)
}

// EngineFactory constructs the engine specialization for one image
// dimension.
type EngineFactory func(dimension int) (Engine, error)
