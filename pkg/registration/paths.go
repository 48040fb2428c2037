package registration

// SetFixedPointSetFileName sets the fixed point set passed to the engine.
func (s *Session) SetFixedPointSetFileName(name string) { s.fixedPointSetFileName = name }

// FixedPointSetFileName returns the fixed point set file, or "".
func (s *Session) FixedPointSetFileName() string { return s.fixedPointSetFileName }

// RemoveFixedPointSetFileName clears the fixed point set file.
func (s *Session) RemoveFixedPointSetFileName() { s.fixedPointSetFileName = "" }

// SetMovingPointSetFileName sets the moving point set passed to the engine.
func (s *Session) SetMovingPointSetFileName(name string) { s.movingPointSetFileName = name }

// MovingPointSetFileName returns the moving point set file, or "".
func (s *Session) MovingPointSetFileName() string { return s.movingPointSetFileName }

// RemoveMovingPointSetFileName clears the moving point set file.
func (s *Session) RemoveMovingPointSetFileName() { s.movingPointSetFileName = "" }

// SetInitialTransformParameterFileName makes the first stage start from the
// transform stored in the parameter file name.
func (s *Session) SetInitialTransformParameterFileName(name string) {
	s.initialTransformParameterFileName = name
}

// InitialTransformParameterFileName returns the initial transform file, or "".
func (s *Session) InitialTransformParameterFileName() string {
	return s.initialTransformParameterFileName
}

// RemoveInitialTransformParameterFileName clears the initial transform file.
func (s *Session) RemoveInitialTransformParameterFileName() {
	s.initialTransformParameterFileName = ""
}

// SetOutputDirectory sets where the engine and ExecuteInverse write
// files. It defaults to the working directory.
func (s *Session) SetOutputDirectory(dir string) { s.outputDirectory = dir }

// OutputDirectory returns the output directory.
func (s *Session) OutputDirectory() string { return s.outputDirectory }

// RemoveOutputDirectory clears the output directory.
func (s *Session) RemoveOutputDirectory() { s.outputDirectory = "" }

// SetLogFileName sets the engine log file name inside the output directory.
func (s *Session) SetLogFileName(name string) { s.logFileName = name }

// LogFileName returns the engine log file name, or "".
func (s *Session) LogFileName() string { return s.logFileName }

// RemoveLogFileName clears the engine log file name.
func (s *Session) RemoveLogFileName() { s.logFileName = "" }

// SetLogToFile turns engine logging to a file on or off.
func (s *Session) SetLogToFile(on bool) { s.logToFile = on }

// LogToFile reports whether the engine logs to a file.
func (s *Session) LogToFile() bool { return s.logToFile }

// LogToFileOn is SetLogToFile(true).
func (s *Session) LogToFileOn() { s.SetLogToFile(true) }

// LogToFileOff is SetLogToFile(false).
func (s *Session) LogToFileOff() { s.SetLogToFile(false) }

// SetLogToConsole turns engine console output on or off.
func (s *Session) SetLogToConsole(on bool) { s.logToConsole = on }

// LogToConsole reports whether the engine writes to the console.
func (s *Session) LogToConsole() bool { return s.logToConsole }

// LogToConsoleOn is SetLogToConsole(true).
func (s *Session) LogToConsoleOn() { s.SetLogToConsole(true) }

// LogToConsoleOff is SetLogToConsole(false).
func (s *Session) LogToConsoleOff() { s.SetLogToConsole(false) }
