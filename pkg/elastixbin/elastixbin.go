// Package elastixbin implements registration.Engine on top of the elastix
// command line program. Each run gets a fresh work directory holding the
// MetaImage inputs, the parameter files and everything elastix writes.
package elastixbin

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"simpleelastix/internal/logging"
	"simpleelastix/internal/metaimage"
	"simpleelastix/pkg/parameter"
	"simpleelastix/pkg/raster"
	"simpleelastix/pkg/registration"
)

// DefaultExecutable is the program run when Options.Executable is empty.
const DefaultExecutable = "elastix"

// logName is the log file elastix writes into its output directory.
const logName = "elastix.log"

// Runner starts name with args and waits for it to finish, sending its
// standard output and error to out.
type Runner func(name string, args []string, out io.Writer) error

// Options configures the engines built by NewFactory.
type Options struct {
	// Executable is the elastix binary, looked up in PATH when it has no
	// directory component.
	Executable string

	// WorkDir is the parent of the per-run work directories. Empty means
	// the system temporary directory.
	WorkDir string

	// KeepWorkDir leaves the work directory in place after a run.
	KeepWorkDir bool

	// Console receives the program output of jobs with LogToConsole set.
	// Defaults to os.Stdout.
	Console io.Writer

	Logger zerolog.Logger
	Runner Runner
}

// Engine runs elastix for images of one dimension.
type Engine struct {
	dimension int
	opts      Options
	log       zerolog.Logger
}

// NewFactory returns an EngineFactory building elastix engines.
func NewFactory(opts Options) registration.EngineFactory {
	if opts.Executable == "" {
		opts.Executable = DefaultExecutable
	}
	if opts.Console == nil {
		opts.Console = os.Stdout
	}
	if opts.Runner == nil {
		opts.Runner = execRunner
	}
	log := logging.Component(opts.Logger, "elastixbin")

	return func(dimension int) (registration.Engine, error) {
		if dimension < 2 {
			return nil, fmt.Errorf("elastix does not register %d-D images", dimension)
		}
		return &Engine{dimension: dimension, opts: opts, log: log}, nil
	}
}

func execRunner(name string, args []string, out io.Writer) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = out
	cmd.Stderr = out
	return cmd.Run()
}

// Run writes the job to a work directory, runs elastix on it and reads
// back the result image and the transform parameter files.
func (e *Engine) Run(job *registration.Job) (*registration.Output, error) {
	if job.Dimension != e.dimension {
		return nil, fmt.Errorf("job of dimension %d sent to %d-D engine", job.Dimension, e.dimension)
	}
	if len(job.ParameterMaps) == 0 {
		return nil, fmt.Errorf("job has no parameter maps")
	}

	workDir, err := os.MkdirTemp(e.opts.WorkDir, "elastix-")
	if err != nil {
		return nil, fmt.Errorf("error creating work directory: %w", err)
	}
	if e.opts.KeepWorkDir {
		e.log.Info().Str("dir", workDir).Msg("keeping elastix work directory")
	} else {
		defer os.RemoveAll(workDir)
	}

	args, err := e.prepare(job, workDir)
	if err != nil {
		return nil, err
	}

	var output bytes.Buffer
	var out io.Writer = &output
	if job.LogToConsole {
		out = io.MultiWriter(&output, e.opts.Console)
	}

	e.log.Debug().Str("executable", e.opts.Executable).Strs("args", args).Msg("running elastix")
	runErr := e.opts.Runner(e.opts.Executable, args, out)

	if job.LogToFile {
		if err := copyLog(filepath.Join(workDir, logName), logPath(job)); err != nil {
			e.log.Warn().Err(err).Msg("could not copy elastix log")
		}
	}
	if runErr != nil {
		return nil, fmt.Errorf("elastix failed: %w\n%s", runErr, tail(output.String(), 20))
	}

	return e.collect(job, workDir)
}

// prepare writes the inputs of job into workDir and returns the elastix
// command line referring to them.
func (e *Engine) prepare(job *registration.Job, workDir string) ([]string, error) {
	var args []string

	inputs := []struct {
		flag   string
		images []*raster.Image
	}{
		{"-f", job.FixedImages},
		{"-m", job.MovingImages},
		{"-fMask", job.FixedMasks},
		{"-mMask", job.MovingMasks},
	}
	for _, in := range inputs {
		for i, img := range in.images {
			flag := in.flag
			if len(in.images) > 1 {
				flag += strconv.Itoa(i)
			}
			path := filepath.Join(workDir, fmt.Sprintf("%s%d.mha", strings.TrimPrefix(in.flag, "-"), i))
			if err := metaimage.Write(path, img); err != nil {
				return nil, fmt.Errorf("error writing %s input %d: %w", in.flag, i, err)
			}
			args = append(args, flag, path)
		}
	}

	if job.InitialTransformParameterFileName != "" {
		args = append(args, "-t0", job.InitialTransformParameterFileName)
	}
	if job.FixedPointSetFileName != "" {
		args = append(args, "-fp", job.FixedPointSetFileName)
	}
	if job.MovingPointSetFileName != "" {
		args = append(args, "-mp", job.MovingPointSetFileName)
	}

	stages := resultStages(job.ParameterMaps)
	for i, m := range stages {
		path := filepath.Join(workDir, fmt.Sprintf("parameters.%d.txt", i))
		if err := parameter.Write(m, path); err != nil {
			return nil, fmt.Errorf("error writing parameter map %d: %w", i, err)
		}
		args = append(args, "-p", path)
	}

	return append(args, "-out", workDir), nil
}

// resultStages copies stack and asks elastix for a MetaImage result of
// the last stage only.
func resultStages(stack parameter.Stack) parameter.Stack {
	out := stack.Clone()
	last := len(out) - 1
	for i, m := range out {
		if m == nil {
			m = parameter.Map{}
			out[i] = m
		}
		m["WriteResultImage"] = []string{strconv.FormatBool(i == last)}
		m["ResultImageFormat"] = []string{"mha"}
	}
	return out
}

// collect reads the files elastix left in workDir.
func (e *Engine) collect(job *registration.Job, workDir string) (*registration.Output, error) {
	n := len(job.ParameterMaps)

	img, err := metaimage.Read(filepath.Join(workDir, fmt.Sprintf("result.%d.mha", n-1)))
	if err != nil {
		return nil, fmt.Errorf("error reading result image: %w", err)
	}

	maps := make(parameter.Stack, n)
	for i := range maps {
		m, err := parameter.Read(filepath.Join(workDir, fmt.Sprintf("TransformParameters.%d.txt", i)))
		if err != nil {
			return nil, fmt.Errorf("error reading transform parameters of stage %d: %w", i, err)
		}
		maps[i] = m
	}

	e.log.Debug().Int("stages", n).Str("result", img.String()).Msg("elastix finished")
	return &registration.Output{Image: img, TransformParameterMaps: maps}, nil
}

func logPath(job *registration.Job) string {
	name := job.LogFileName
	if name == "" {
		name = logName
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(job.OutputDirectory, name)
}

func copyLog(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// tail returns the last n lines of s.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
