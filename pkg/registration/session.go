// Package registration provides Session, a facade that collects images,
// masks and parameter maps, validates them, and runs the registration
// engine specialization that matches the fixed image.
//
// A Session is not safe for concurrent use. Execute and ExecuteInverse
// block until the engine returns.
package registration

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"simpleelastix/internal/logging"
	"simpleelastix/pkg/dispatch"
	"simpleelastix/pkg/parameter"
	"simpleelastix/pkg/raster"
)

const (
	// InternalPixelID is the pixel type every image is cast to before it
	// reaches the engine.
	InternalPixelID = raster.Float32

	// MaskPixelID is the only pixel type accepted for masks.
	MaskPixelID = raster.UInt8

	// DefaultOutputDirectory is the output directory of a new Session.
	DefaultOutputDirectory = "."
)

// DefaultTransforms are the template stages of a new Session.
var DefaultTransforms = []string{"translation", "affine", "bspline"}

// Session holds the configuration and results of a registration.
type Session struct {
	fixedImages  imageList
	movingImages imageList
	fixedMasks   imageList
	movingMasks  imageList

	// parameterMaps is the stage pipeline handed to the engine
	parameterMaps parameter.Stack

	fixedPointSetFileName             string
	movingPointSetFileName            string
	initialTransformParameterFileName string
	outputDirectory                   string
	logFileName                       string
	logToFile                         bool
	logToConsole                      bool

	// results, empty until the corresponding run succeeds
	resultImage                   *raster.Image
	transformParameterMaps        parameter.Stack
	inverseTransformParameterMaps parameter.Stack

	engines    EngineFactory
	dispatcher *dispatch.Dispatcher[*raster.Image]
	log        zerolog.Logger

	// removeFile deletes temporary parameter files after ExecuteInverse
	removeFile func(name string) error
}

// Option configures a Session at construction.
type Option func(*Session)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) {
		s.log = logging.Component(l, "registration")
	}
}

// NewSession creates a Session with no images and the default
// translation, affine and bspline stages. engines builds the engine for
// the dimension of the fixed images when Execute runs.
func NewSession(engines EngineFactory, opts ...Option) *Session {
	s := &Session{
		fixedImages:     imageList{name: "fixed image"},
		movingImages:    imageList{name: "moving image"},
		fixedMasks:      imageList{name: "fixed mask", mask: true},
		movingMasks:     imageList{name: "moving mask", mask: true},
		outputDirectory: DefaultOutputDirectory,
		engines:         engines,
		log:             zerolog.Nop(),
		removeFile:      os.Remove,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.dispatcher = dispatch.New[*raster.Image]()
	s.dispatcher.RegisterCrossProduct([]raster.PixelID{InternalPixelID}, SupportedDimensions,
		func(k dispatch.Key) dispatch.Handler[*raster.Image] {
			return func() (*raster.Image, error) {
				return s.executeInternal(k.Dimension)
			}
		})

	for _, name := range DefaultTransforms {
		m, err := parameter.Default(name, parameter.DefaultNumberOfResolutions, parameter.DefaultFinalGridSpacing)
		if err != nil {
			panic(err)
		}
		s.parameterMaps = append(s.parameterMaps, m)
	}
	return s
}

// Execute validates the configuration and runs the registration. On
// success the result image is returned and also kept, together with the
// transform parameter maps, for later retrieval.
func (s *Session) Execute() (*raster.Image, error) {
	if s.fixedImages.len() == 0 {
		return nil, fmt.Errorf("%w: fixed image not set", ErrMissingInput)
	}
	if s.movingImages.len() == 0 {
		return nil, fmt.Errorf("%w: moving image not set", ErrMissingInput)
	}

	fixed := s.fixedImages.items[0]
	dim := fixed.Dimension()
	movingDim := s.movingImages.items[0].Dimension()

	for i := 1; i < s.fixedImages.len(); i++ {
		if d := s.fixedImages.items[i].Dimension(); d != dim {
			return nil, fmt.Errorf("%w: fixed images must be of same dimension (fixed image at index 0 is of dimension %d, fixed image at index %d is of dimension %d)",
				ErrDimensionMismatch, dim, i, d)
		}
	}
	for i, img := range s.movingImages.items {
		if d := img.Dimension(); d != dim {
			return nil, fmt.Errorf("%w: moving images must be of same dimension as fixed images (fixed image at index 0 is of dimension %d, moving image at index %d is of dimension %d)",
				ErrDimensionMismatch, dim, i, d)
		}
	}
	for i, img := range s.fixedMasks.items {
		if d := img.Dimension(); d != dim {
			return nil, fmt.Errorf("%w: fixed masks must be of same dimension as fixed images (fixed images are of dimension %d, fixed mask at index %d is of dimension %d)",
				ErrDimensionMismatch, dim, i, d)
		}
	}
	for i, img := range s.movingMasks.items {
		if d := img.Dimension(); d != movingDim {
			return nil, fmt.Errorf("%w: moving masks must be of same dimension as moving images (moving images are of dimension %d, moving mask at index %d is of dimension %d)",
				ErrDimensionMismatch, movingDim, i, d)
		}
	}
	if err := s.fixedMasks.checkMaskTypes(); err != nil {
		return nil, err
	}
	if err := s.movingMasks.checkMaskTypes(); err != nil {
		return nil, err
	}

	// every image is cast to the internal type, so only the dimension
	// selects the path
	if !s.dispatcher.HasHandler(InternalPixelID, dim) {
		return nil, fmt.Errorf("%w: %d-dimensional %s fixed image and %d-dimensional %s moving image",
			ErrUnsupportedCombination, dim, fixed.PixelID(), movingDim, s.movingImages.items[0].PixelID())
	}

	s.log.Debug().
		Int("dimension", dim).
		Str("pixel_type", fixed.PixelID().String()).
		Int("stages", len(s.parameterMaps)).
		Msg("dispatching registration")
	return s.dispatcher.Dispatch(InternalPixelID, dim)
}

// executeInternal is the execution path for one dimension.
func (s *Session) executeInternal(dim int) (*raster.Image, error) {
	engine, err := s.engines(dim)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegistrationFailure, err)
	}

	job := &Job{
		Dimension:                         dim,
		FixedMasks:                        s.fixedMasks.all(),
		MovingMasks:                       s.movingMasks.all(),
		InitialTransformParameterFileName: s.initialTransformParameterFileName,
		FixedPointSetFileName:             s.fixedPointSetFileName,
		MovingPointSetFileName:            s.movingPointSetFileName,
		OutputDirectory:                   s.outputDirectory,
		LogFileName:                       s.logFileName,
		LogToFile:                         s.logToFile,
		LogToConsole:                      s.logToConsole,
		ParameterMaps:                     s.parameterMaps.Clone(),
	}
	for _, img := range s.fixedImages.items {
		job.FixedImages = append(job.FixedImages, raster.Cast(img, InternalPixelID))
	}
	for _, img := range s.movingImages.items {
		job.MovingImages = append(job.MovingImages, raster.Cast(img, InternalPixelID))
	}
	for _, m := range job.ParameterMaps {
		m[parameter.KeyFixedInternalImagePixelType] = []string{InternalPixelID.String()}
		m[parameter.KeyMovingInternalImagePixelType] = []string{InternalPixelID.String()}
	}

	out, err := engine.Run(job)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegistrationFailure, err)
	}
	if out == nil || raster.IsEmpty(out.Image) {
		return nil, fmt.Errorf("%w: engine produced no result image", ErrRegistrationFailure)
	}

	s.resultImage = out.Image
	s.transformParameterMaps = out.TransformParameterMaps

	s.log.Info().
		Int("dimension", dim).
		Int("transform_stages", len(out.TransformParameterMaps)).
		Msg("registration finished")
	return s.resultImage, nil
}

// ResultImage returns the image produced by the last successful Execute.
func (s *Session) ResultImage() (*raster.Image, error) {
	if raster.IsEmpty(s.resultImage) {
		return nil, fmt.Errorf("%w: no result image found, run registration with Execute", ErrNotYetComputed)
	}
	return s.resultImage, nil
}

// TransformParameterMaps returns the transform stages found by the last
// successful Execute.
func (s *Session) TransformParameterMaps() (parameter.Stack, error) {
	if len(s.transformParameterMaps) == 0 {
		return nil, fmt.Errorf("%w: number of transform parameter maps is 0, run registration with Execute", ErrNotYetComputed)
	}
	return s.transformParameterMaps.Clone(), nil
}

// TransformParameterMapAt returns one transform stage.
func (s *Session) TransformParameterMapAt(index int) (parameter.Map, error) {
	if len(s.transformParameterMaps) == 0 {
		return nil, fmt.Errorf("%w: number of transform parameter maps is 0, run registration with Execute", ErrNotYetComputed)
	}
	if index < 0 || index >= len(s.transformParameterMaps) {
		return nil, fmt.Errorf("%w: index %d, number of transform parameter maps %d", ErrIndexOutOfRange, index, len(s.transformParameterMaps))
	}
	return s.transformParameterMaps[index].Clone(), nil
}

// InverseTransformParameterMaps returns the stages found by the last
// successful ExecuteInverse.
func (s *Session) InverseTransformParameterMaps() (parameter.Stack, error) {
	if len(s.inverseTransformParameterMaps) == 0 {
		return nil, fmt.Errorf("%w: number of inverse transform parameter maps is 0, run inverse registration with ExecuteInverse", ErrNotYetComputed)
	}
	return s.inverseTransformParameterMaps.Clone(), nil
}
