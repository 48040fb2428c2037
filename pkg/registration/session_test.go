package registration

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simpleelastix/pkg/parameter"
	"simpleelastix/pkg/raster"
)

// fakeEngine records every job and answers with the cast fixed image and
// one transform stage per parameter stage.
type fakeEngine struct {
	jobs []*Job
	err  error

	// onRun, when set, runs before the fake produces its output
	onRun func(job *Job) error
}

func (e *fakeEngine) Run(job *Job) (*Output, error) {
	e.jobs = append(e.jobs, job)
	if e.onRun != nil {
		if err := e.onRun(job); err != nil {
			return nil, err
		}
	}
	if e.err != nil {
		return nil, e.err
	}

	out := &Output{Image: raster.Cast(job.FixedImages[0], raster.Float32)}
	for i, m := range job.ParameterMaps {
		initial := job.InitialTransformParameterFileName
		if i > 0 {
			initial = fmt.Sprintf("TransformParameters.%d.txt", i-1)
		}
		if initial == "" {
			initial = parameter.NoInitialTransform
		}
		out.TransformParameterMaps = append(out.TransformParameterMaps, parameter.Map{
			parameter.KeyTransform:                          {m.First(parameter.KeyTransform)},
			"TransformParameters":                           {"1.5", "-2"},
			parameter.KeyInitialTransformParametersFileName: {initial},
		})
	}
	return out, nil
}

// newTestSession returns a session wired to a fake engine that remembers
// which dimensions it was built for.
func newTestSession(t *testing.T) (*Session, *fakeEngine, *[]int) {
	t.Helper()
	engine := &fakeEngine{}
	dims := []int{}
	s := NewSession(func(dim int) (Engine, error) {
		dims = append(dims, dim)
		return engine, nil
	})
	s.SetOutputDirectory(t.TempDir())
	return s, engine, &dims
}

func image2D() *raster.Image { return raster.New(raster.Int16, 8, 6) }
func image3D() *raster.Image { return raster.New(raster.Int16, 8, 6, 4) }
func mask2D() *raster.Image  { return raster.New(raster.UInt8, 8, 6) }

// TestNewSessionDefaults verifies the initial state of a session
func TestNewSessionDefaults(t *testing.T) {
	s, _, _ := newTestSession(t)

	require.Equal(t, 3, s.NumberOfParameterMaps())
	maps := s.ParameterMaps()
	assert.Equal(t, "TranslationTransform", maps[0].First(parameter.KeyTransform))
	assert.Equal(t, "AffineTransform", maps[1].First(parameter.KeyTransform))
	assert.Equal(t, "BSplineTransform", maps[2].First(parameter.KeyTransform))

	assert.Equal(t, DefaultOutputDirectory, NewSession(nil).OutputDirectory())
	assert.False(t, s.LogToFile())
	assert.False(t, s.LogToConsole())
	assert.Zero(t, s.NumberOfFixedImages())
	assert.Zero(t, s.NumberOfMovingImages())
}

func TestExecuteMissingInput(t *testing.T) {
	t.Run("NoFixed", func(t *testing.T) {
		s, engine, dims := newTestSession(t)
		require.NoError(t, s.SetMovingImage(image2D()))

		_, err := s.Execute()
		assert.ErrorIs(t, err, ErrMissingInput)
		assert.Empty(t, engine.jobs)
		assert.Empty(t, *dims)
	})

	t.Run("NoMoving", func(t *testing.T) {
		s, engine, _ := newTestSession(t)
		require.NoError(t, s.SetFixedImage(image2D()))

		_, err := s.Execute()
		assert.ErrorIs(t, err, ErrMissingInput)
		assert.Empty(t, engine.jobs)
	})
}

// TestExecuteScenario2D runs the default three stage pipeline on a pair
// of 2-D images
func TestExecuteScenario2D(t *testing.T) {
	s, _, dims := newTestSession(t)
	require.NoError(t, s.SetFixedImage(image2D()))
	require.NoError(t, s.SetMovingImage(image2D()))

	result, err := s.Execute()
	require.NoError(t, err)
	assert.Equal(t, []int{2}, *dims)

	got, err := s.ResultImage()
	require.NoError(t, err)
	assert.Same(t, result, got)
	assert.False(t, raster.IsEmpty(got))
	assert.Equal(t, 2, got.Dimension())

	stack, err := s.TransformParameterMaps()
	require.NoError(t, err)
	assert.Len(t, stack, 3)

	stage, err := s.TransformParameterMapAt(2)
	require.NoError(t, err)
	assert.Equal(t, "BSplineTransform", stage.First(parameter.KeyTransform))
	_, err = s.TransformParameterMapAt(3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

// TestExecuteJob checks what the engine receives
func TestExecuteJob(t *testing.T) {
	s, engine, _ := newTestSession(t)
	fixed := image2D()
	require.NoError(t, fixed.Set(7, 1, 1))
	require.NoError(t, s.SetFixedImage(fixed))
	require.NoError(t, s.AddFixedImage(image2D()))
	require.NoError(t, s.SetMovingImage(raster.New(raster.UInt8, 8, 6)))
	require.NoError(t, s.SetFixedMask(mask2D()))
	require.NoError(t, s.SetMovingMask(mask2D()))
	s.SetInitialTransformParameterFileName("init.txt")
	s.SetFixedPointSetFileName("fixed.pts")
	s.SetMovingPointSetFileName("moving.pts")
	s.SetLogFileName("run.log")
	s.LogToFileOn()
	s.LogToConsoleOn()

	_, err := s.Execute()
	require.NoError(t, err)
	require.Len(t, engine.jobs, 1)
	job := engine.jobs[0]

	assert.Equal(t, 2, job.Dimension)
	require.Len(t, job.FixedImages, 2)
	require.Len(t, job.MovingImages, 1)
	for _, img := range append(job.FixedImages, job.MovingImages...) {
		assert.Equal(t, raster.Float32, img.PixelID())
	}
	v, err := job.FixedImages[0].At(1, 1)
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)
	assert.Equal(t, raster.Int16, fixed.PixelID(), "session images are not modified")

	require.Len(t, job.FixedMasks, 1)
	assert.Equal(t, raster.UInt8, job.FixedMasks[0].PixelID())
	require.Len(t, job.MovingMasks, 1)

	assert.Equal(t, "init.txt", job.InitialTransformParameterFileName)
	assert.Equal(t, "fixed.pts", job.FixedPointSetFileName)
	assert.Equal(t, "moving.pts", job.MovingPointSetFileName)
	assert.Equal(t, s.OutputDirectory(), job.OutputDirectory)
	assert.Equal(t, "run.log", job.LogFileName)
	assert.True(t, job.LogToFile)
	assert.True(t, job.LogToConsole)

	require.Len(t, job.ParameterMaps, 3)
	for _, m := range job.ParameterMaps {
		assert.Equal(t, []string{"float"}, m[parameter.KeyFixedInternalImagePixelType])
		assert.Equal(t, []string{"float"}, m[parameter.KeyMovingInternalImagePixelType])
	}
	for _, m := range s.ParameterMaps() {
		assert.NotContains(t, m, parameter.KeyFixedInternalImagePixelType, "session stack is not modified")
	}
}

func TestExecuteDimensionMismatch(t *testing.T) {
	t.Run("FixedImages", func(t *testing.T) {
		s, engine, _ := newTestSession(t)
		require.NoError(t, s.SetFixedImages([]*raster.Image{image2D(), image2D(), image3D()}))
		require.NoError(t, s.SetMovingImage(image2D()))

		_, err := s.Execute()
		assert.ErrorIs(t, err, ErrDimensionMismatch)
		assert.ErrorContains(t, err, "fixed image at index 2 is of dimension 3")
		assert.Empty(t, engine.jobs)
	})

	t.Run("Fixed3DMoving2D", func(t *testing.T) {
		s, engine, _ := newTestSession(t)
		require.NoError(t, s.SetFixedImage(image3D()))
		require.NoError(t, s.SetMovingImage(image2D()))

		_, err := s.Execute()
		assert.ErrorIs(t, err, ErrDimensionMismatch)
		assert.ErrorContains(t, err, "fixed image at index 0 is of dimension 3")
		assert.ErrorContains(t, err, "moving image at index 0 is of dimension 2")
		assert.Empty(t, engine.jobs)
	})

	t.Run("FixedMask", func(t *testing.T) {
		s, _, _ := newTestSession(t)
		require.NoError(t, s.SetFixedImage(image2D()))
		require.NoError(t, s.SetMovingImage(image2D()))
		require.NoError(t, s.SetFixedMasks([]*raster.Image{mask2D(), raster.New(raster.UInt8, 2, 2, 2)}))

		_, err := s.Execute()
		assert.ErrorIs(t, err, ErrDimensionMismatch)
		assert.ErrorContains(t, err, "fixed mask at index 1")
	})

	t.Run("MovingMask", func(t *testing.T) {
		s, _, _ := newTestSession(t)
		require.NoError(t, s.SetFixedImage(image2D()))
		require.NoError(t, s.SetMovingImage(image2D()))
		require.NoError(t, s.SetMovingMask(raster.New(raster.UInt8, 2, 2, 2)))

		_, err := s.Execute()
		assert.ErrorIs(t, err, ErrDimensionMismatch)
		assert.ErrorContains(t, err, "moving mask at index 0")
	})
}

func TestExecuteUnsupportedDimension(t *testing.T) {
	s, engine, _ := newTestSession(t)
	require.NoError(t, s.SetFixedImage(raster.New(raster.Float64, 5)))
	require.NoError(t, s.SetMovingImage(raster.New(raster.Float64, 5)))

	_, err := s.Execute()
	assert.ErrorIs(t, err, ErrUnsupportedCombination)
	assert.ErrorContains(t, err, "1-dimensional double fixed image")
	assert.Empty(t, engine.jobs)
}

func TestExecuteEngineFailure(t *testing.T) {
	t.Run("Run", func(t *testing.T) {
		s, engine, _ := newTestSession(t)
		engine.err = errors.New("optimizer diverged")
		require.NoError(t, s.SetFixedImage(image2D()))
		require.NoError(t, s.SetMovingImage(image2D()))

		_, err := s.Execute()
		assert.ErrorIs(t, err, ErrRegistrationFailure)
		assert.ErrorIs(t, err, engine.err)
		assert.ErrorContains(t, err, "optimizer diverged")

		_, err = s.ResultImage()
		assert.ErrorIs(t, err, ErrNotYetComputed)
	})

	t.Run("Factory", func(t *testing.T) {
		s := NewSession(func(int) (Engine, error) { return nil, errors.New("no elastix binary") })
		require.NoError(t, s.SetFixedImage(image2D()))
		require.NoError(t, s.SetMovingImage(image2D()))

		_, err := s.Execute()
		assert.ErrorIs(t, err, ErrRegistrationFailure)
		assert.ErrorContains(t, err, "no elastix binary")
	})
}

// TestReExecuteOverwritesResults verifies a session can be run again with
// new inputs
func TestReExecuteOverwritesResults(t *testing.T) {
	s, engine, dims := newTestSession(t)
	require.NoError(t, s.SetFixedImage(image2D()))
	require.NoError(t, s.SetMovingImage(image2D()))
	_, err := s.Execute()
	require.NoError(t, err)

	require.NoError(t, s.SetFixedImage(image3D()))
	require.NoError(t, s.SetMovingImage(image3D()))
	require.NoError(t, s.SetDefaultParameterMap("rigid", 2, 0))
	_, err = s.Execute()
	require.NoError(t, err)

	assert.Equal(t, []int{2, 3}, *dims)
	assert.Len(t, engine.jobs, 2)
	img, err := s.ResultImage()
	require.NoError(t, err)
	assert.Equal(t, 3, img.Dimension())
	stack, err := s.TransformParameterMaps()
	require.NoError(t, err)
	assert.Len(t, stack, 1)
}

func TestResultsBeforeExecute(t *testing.T) {
	s, _, _ := newTestSession(t)

	_, err := s.ResultImage()
	assert.ErrorIs(t, err, ErrNotYetComputed)
	_, err = s.TransformParameterMaps()
	assert.ErrorIs(t, err, ErrNotYetComputed)
	_, err = s.TransformParameterMapAt(0)
	assert.ErrorIs(t, err, ErrNotYetComputed)
	_, err = s.InverseTransformParameterMaps()
	assert.ErrorIs(t, err, ErrNotYetComputed)
}

func TestPrintParameterMap(t *testing.T) {
	s, _, _ := newTestSession(t)
	var buf bytes.Buffer
	require.NoError(t, s.PrintParameterMap(&buf))
	assert.Contains(t, buf.String(), "ParameterMap 2:")
	assert.Contains(t, buf.String(), `(Transform "BSplineTransform")`)
}
