package registration

import (
	"fmt"
	"io"

	"simpleelastix/pkg/parameter"
)

// SetParameterMap replaces the stage pipeline with the single stage m.
func (s *Session) SetParameterMap(m parameter.Map) error {
	return s.SetParameterMaps(parameter.Stack{m})
}

// SetParameterMaps replaces the stage pipeline.
func (s *Session) SetParameterMaps(stack parameter.Stack) error {
	if len(stack) == 0 {
		return fmt.Errorf("%w: cannot set parameter maps from empty list", ErrEmptyInput)
	}
	s.parameterMaps = stack.Clone()
	for i, m := range s.parameterMaps {
		if m == nil {
			s.parameterMaps[i] = parameter.Map{}
		}
	}
	return nil
}

// SetDefaultParameterMap replaces the stage pipeline with a single
// built-in template (see parameter.Default).
func (s *Session) SetDefaultParameterMap(transformName string, numberOfResolutions int, finalGridSpacing float64) error {
	m, err := parameter.Default(transformName, numberOfResolutions, finalGridSpacing)
	if err != nil {
		return err
	}
	return s.SetParameterMap(m)
}

// AddParameterMap appends a stage.
func (s *Session) AddParameterMap(m parameter.Map) {
	if m == nil {
		m = parameter.Map{}
	}
	s.parameterMaps = append(s.parameterMaps, m.Clone())
}

// ParameterMaps returns a copy of the stage pipeline.
func (s *Session) ParameterMaps() parameter.Stack { return s.parameterMaps.Clone() }

// ParameterMapAt returns a copy of one stage.
func (s *Session) ParameterMapAt(index int) (parameter.Map, error) {
	if err := s.checkStageIndex(index); err != nil {
		return nil, err
	}
	return s.parameterMaps[index].Clone(), nil
}

// NumberOfParameterMaps returns the number of stages.
func (s *Session) NumberOfParameterMaps() int { return len(s.parameterMaps) }

func (s *Session) checkStageIndex(index int) error {
	if index < 0 || index >= len(s.parameterMaps) {
		return fmt.Errorf("%w: parameter map index %d, number of parameter maps %d (indexes are zero-based)",
			ErrIndexOutOfRange, index, len(s.parameterMaps))
	}
	return nil
}

// SetParameterAt sets key to values in the stage at index, replacing any
// previous values.
func (s *Session) SetParameterAt(index int, key string, values ...string) error {
	if err := s.checkStageIndex(index); err != nil {
		return err
	}
	s.parameterMaps[index][key] = append([]string(nil), values...)
	return nil
}

// SetParameter sets key to values in every stage.
func (s *Session) SetParameter(key string, values ...string) error {
	for i := range s.parameterMaps {
		if err := s.SetParameterAt(i, key, values...); err != nil {
			return err
		}
	}
	return nil
}

// AddParameterAt appends values to key in the stage at index, creating
// the key when it is absent.
func (s *Session) AddParameterAt(index int, key string, values ...string) error {
	if err := s.checkStageIndex(index); err != nil {
		return err
	}
	if _, ok := s.parameterMaps[index][key]; !ok {
		return s.SetParameterAt(index, key, values...)
	}
	s.parameterMaps[index][key] = append(s.parameterMaps[index][key], values...)
	return nil
}

// AddParameter appends values to key in every stage.
func (s *Session) AddParameter(key string, values ...string) error {
	for i := range s.parameterMaps {
		if err := s.AddParameterAt(i, key, values...); err != nil {
			return err
		}
	}
	return nil
}

// ParameterAt returns the values of key in the stage at index. An absent
// key yields no values.
func (s *Session) ParameterAt(index int, key string) ([]string, error) {
	if err := s.checkStageIndex(index); err != nil {
		return nil, err
	}
	return append([]string(nil), s.parameterMaps[index][key]...), nil
}

// Parameter returns the values of key when there is exactly one stage.
func (s *Session) Parameter(key string) ([]string, error) {
	if len(s.parameterMaps) > 1 {
		return nil, fmt.Errorf("%w: %d parameter maps are present, use ParameterAt", ErrIndexRequired, len(s.parameterMaps))
	}
	return s.ParameterAt(0, key)
}

// RemoveParameterAt deletes key from the stage at index.
func (s *Session) RemoveParameterAt(index int, key string) error {
	if err := s.checkStageIndex(index); err != nil {
		return err
	}
	delete(s.parameterMaps[index], key)
	return nil
}

// RemoveParameter deletes key from every stage.
func (s *Session) RemoveParameter(key string) error {
	for i := range s.parameterMaps {
		if err := s.RemoveParameterAt(i, key); err != nil {
			return err
		}
	}
	return nil
}

// ReadParameterFile loads one stage from a parameter file. The stage is
// returned, not added to the session.
func (s *Session) ReadParameterFile(path string) (parameter.Map, error) {
	return parameter.Read(path)
}

// WriteParameterFile stores one stage in a parameter file.
func (s *Session) WriteParameterFile(m parameter.Map, path string) error {
	return parameter.Write(m, path)
}

// WriteParameterFiles stores stage i of stack in paths[i].
func (s *Session) WriteParameterFiles(stack parameter.Stack, paths []string) error {
	return parameter.WriteStack(stack, paths)
}

// PrintParameterMap lists the stage pipeline on w.
func (s *Session) PrintParameterMap(w io.Writer) error {
	if len(s.parameterMaps) == 0 {
		return fmt.Errorf("%w: cannot print parameter maps, number of parameter maps is 0", ErrEmptyInput)
	}
	return parameter.Print(w, s.parameterMaps)
}
