// Package config provides configuration loading and management for selx.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"simpleelastix/pkg/parameter"
	"simpleelastix/pkg/registration"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Session settings
	Registration struct {
		// OutputDirectory is where elastix and the inverse chain write files
		OutputDirectory string `yaml:"outputDirectory"`

		// LogFile is the name of the copied elastix log, relative to OutputDirectory
		LogFile string `yaml:"logFile"`

		LogToFile    bool `yaml:"logToFile"`
		LogToConsole bool `yaml:"logToConsole"`
	} `yaml:"registration"`

	// Parameter map pipeline
	Parameters struct {
		// Transforms names the default parameter maps, one stage each.
		// Ignored when ParameterFiles is set.
		Transforms []string `yaml:"transforms"`

		NumberOfResolutions int     `yaml:"numberOfResolutions"`
		FinalGridSpacing    float64 `yaml:"finalGridSpacing"`

		// ParameterFiles are elastix parameter files, one stage each
		ParameterFiles []string `yaml:"parameterFiles"`
	} `yaml:"parameters"`

	// elastix executable settings
	Engine struct {
		Executable  string `yaml:"executable"`
		WorkDir     string `yaml:"workDir"`
		KeepWorkDir bool   `yaml:"keepWorkDir"`
	} `yaml:"engine"`

	Logging struct {
		// Level is one of trace, debug, info, warn, error
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Registration.OutputDirectory = registration.DefaultOutputDirectory
	cfg.Registration.LogFile = "elastix.log"
	cfg.Registration.LogToFile = false
	cfg.Registration.LogToConsole = false

	cfg.Parameters.Transforms = append([]string(nil), registration.DefaultTransforms...)
	cfg.Parameters.NumberOfResolutions = parameter.DefaultNumberOfResolutions
	cfg.Parameters.FinalGridSpacing = parameter.DefaultFinalGridSpacing

	cfg.Engine.Executable = "elastix"

	cfg.Logging.Level = "info"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// ParameterMaps builds the stage pipeline the configuration describes:
// the parameter files when any are listed, the default maps otherwise.
func (c *Config) ParameterMaps() (parameter.Stack, error) {
	var stack parameter.Stack

	if len(c.Parameters.ParameterFiles) > 0 {
		for _, path := range c.Parameters.ParameterFiles {
			m, err := parameter.Read(path)
			if err != nil {
				return nil, err
			}
			stack = append(stack, m)
		}
		return stack, nil
	}

	for _, name := range c.Parameters.Transforms {
		m, err := parameter.Default(name, c.Parameters.NumberOfResolutions, c.Parameters.FinalGridSpacing)
		if err != nil {
			return nil, fmt.Errorf("invalid parameters.transforms: %w", err)
		}
		stack = append(stack, m)
	}
	return stack, nil
}

// Apply copies the session settings of c onto s.
func (c *Config) Apply(s *registration.Session) error {
	s.SetOutputDirectory(c.Registration.OutputDirectory)
	s.SetLogFileName(c.Registration.LogFile)
	s.SetLogToFile(c.Registration.LogToFile)
	s.SetLogToConsole(c.Registration.LogToConsole)

	stack, err := c.ParameterMaps()
	if err != nil {
		return err
	}
	if len(stack) == 0 {
		return nil
	}
	return s.SetParameterMaps(stack)
}
