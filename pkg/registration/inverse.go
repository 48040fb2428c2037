package registration

import (
	"fmt"
	"path/filepath"

	"simpleelastix/pkg/parameter"
)

// Values forced on every stage of an inverse registration.
const (
	inverseRegistration = "MultiResolutionRegistration"
	inverseMetric       = "DisplacementMagnitudePenalty"

	// RandomSparseMask needs a mask, which an inverse run does not have
	maskedSampler   = "RandomSparseMask"
	unmaskedSampler = "RandomCoordinate"
)

// ExecuteInverse computes the inverse of the last forward transform using
// the session's own stage pipeline as the inverse configuration.
func (s *Session) ExecuteInverse() (parameter.Stack, error) {
	return s.ExecuteInverseWithStack(s.ParameterMaps())
}

// ExecuteInverseWithMap computes the inverse with a single stage.
func (s *Session) ExecuteInverseWithMap(m parameter.Map) (parameter.Stack, error) {
	return s.ExecuteInverseWithStack(parameter.Stack{m})
}

// ExecuteInverseWithStack computes the inverse of the last forward
// transform.
//
// The forward transform is written to the output directory as a chain of
// parameter files, and a second registration of the fixed image onto
// itself is run starting from it, with a metric that penalizes the
// displacement magnitude. The chain files are removed afterwards; removal
// failures are logged only. Stage 0 of the returned stack is detached
// from the chain (NoInitialTransform).
//
// The output geometry (origin, spacing, direction) stays that of the
// fixed image; it is not remapped to the moving image.
func (s *Session) ExecuteInverseWithStack(inverse parameter.Stack) (parameter.Stack, error) {
	if s.fixedImages.len() == 0 {
		return nil, fmt.Errorf("%w: no fixed images found, the fixed image of the forward registration is needed to compute the inverse transform", ErrMissingInput)
	}
	if s.movingImages.len() == 0 {
		return nil, fmt.Errorf("%w: no moving images found, the moving image of the forward registration is needed to compute the inverse transform", ErrMissingInput)
	}
	if len(s.transformParameterMaps) == 0 {
		return nil, fmt.Errorf("%w: no forward transform parameter map found, run forward registration before computing the inverse", ErrNotYetComputed)
	}

	chain, err := s.writeForwardChain()
	defer s.removeFiles(chain)
	if err != nil {
		return nil, err
	}

	child, err := s.newInverseSession(chain[0], inverseParameterMaps(inverse))
	if err != nil {
		return nil, err
	}
	if _, err := child.Execute(); err != nil {
		return nil, fmt.Errorf("inverse registration: %w", err)
	}

	result := child.transformParameterMaps.Clone()
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: inverse registration produced no transform parameter maps", ErrRegistrationFailure)
	}
	if result[0] == nil {
		result[0] = parameter.Map{}
	}
	result[0][parameter.KeyInitialTransformParametersFileName] = []string{parameter.NoInitialTransform}
	s.inverseTransformParameterMaps = result
	return result.Clone(), nil
}

// writeForwardChain writes the forward transform stages to disk, each
// stage pointing at the previous stage's file. It returns the files it
// managed to write.
func (s *Session) writeForwardChain() ([]string, error) {
	stages := s.transformParameterMaps.Clone()
	written := make([]string, 0, len(stages))

	for i, m := range stages {
		if m == nil {
			m = parameter.Map{}
			stages[i] = m
		}
		if i == 0 {
			m[parameter.KeyInitialTransformParametersFileName] = []string{parameter.NoInitialTransform}
		} else {
			m[parameter.KeyInitialTransformParametersFileName] = []string{written[i-1]}
		}

		path := filepath.Join(s.outputDirectory, fmt.Sprintf("forwardTransformParameterFile.%d.txt", i))
		if err := parameter.Write(m, path); err != nil {
			return written, fmt.Errorf("writing forward transform chain: %w", err)
		}
		written = append(written, path)
	}
	return written, nil
}

// removeFiles deletes files on a best-effort basis.
func (s *Session) removeFiles(files []string) {
	for _, f := range files {
		if err := s.removeFile(f); err != nil {
			s.log.Warn().Err(err).Str("file", f).Msg("could not remove forward transform parameter file, continuing")
		}
	}
}

// inverseParameterMaps copies stack and configures every stage for an
// inverse registration.
func inverseParameterMaps(stack parameter.Stack) parameter.Stack {
	out := stack.Clone()
	for i, m := range out {
		if m == nil {
			m = parameter.Map{}
			out[i] = m
		}
		m[parameter.KeyRegistration] = []string{inverseRegistration}
		m[parameter.KeyMetric] = []string{inverseMetric}
		if m.First(parameter.KeyImageSampler) == maskedSampler {
			m[parameter.KeyImageSampler] = []string{unmaskedSampler}
		}
	}
	return out
}

// newInverseSession builds the independent session that runs the inverse
// registration. Only scalar settings are copied; the fixed image is shared.
func (s *Session) newInverseSession(initialTransform string, stack parameter.Stack) (*Session, error) {
	child := NewSession(s.engines)
	child.log = s.log
	child.removeFile = s.removeFile

	child.SetInitialTransformParameterFileName(initialTransform)
	if err := child.SetParameterMaps(stack); err != nil {
		return nil, err
	}

	fixed := s.fixedImages.items[0]
	if err := child.SetFixedImage(fixed); err != nil {
		return nil, err
	}
	// the fixed image is the moving image of the inverse problem as well
	if err := child.SetMovingImage(fixed); err != nil {
		return nil, err
	}

	child.SetOutputDirectory(s.outputDirectory)
	child.SetLogFileName(s.logFileName)
	child.SetLogToFile(s.logToFile)
	child.SetLogToConsole(s.logToConsole)
	return child, nil
}
