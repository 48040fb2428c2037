package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"simpleelastix/internal/metaimage"
	"simpleelastix/pkg/config"
	"simpleelastix/pkg/elastixbin"
	"simpleelastix/pkg/parameter"
	"simpleelastix/pkg/quality"
	"simpleelastix/pkg/raster"
	"simpleelastix/pkg/registration"
	"simpleelastix/pkg/visualization"
)

type registerOptions struct {
	fixed        []string
	moving       []string
	fixedMasks   []string
	movingMasks  []string
	params       []string
	transforms   []string
	initial      string
	out          string
	inverse      bool
	preview      string
	previewSize  int
	noQuality    bool
	logToConsole bool
}

func newRegisterCmd(g *globals) *cobra.Command {
	opts := &registerOptions{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register moving images onto fixed images",
		Long: "Register moving images onto fixed images. Images are read and written as MetaImage\n" +
			"(.mha/.mhd). The result image and the transform parameter files are written to the\n" +
			"output directory.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.load(cmd)
			if err != nil {
				return err
			}
			return runRegister(cmd, cfg, log, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVarP(&opts.fixed, "fixed", "f", nil, "Fixed images")
	flags.StringSliceVarP(&opts.moving, "moving", "m", nil, "Moving images")
	flags.StringSliceVar(&opts.fixedMasks, "fixed-mask", nil, "Fixed masks (unsigned char)")
	flags.StringSliceVar(&opts.movingMasks, "moving-mask", nil, "Moving masks (unsigned char)")
	flags.StringSliceVarP(&opts.params, "param", "p", nil, "Parameter files, one stage each")
	flags.StringSliceVarP(&opts.transforms, "transform", "t", nil, "Default parameter maps, one stage each (ignored with --param)")
	flags.StringVar(&opts.initial, "initial-transform", "", "Initial transform parameter file")
	flags.StringVarP(&opts.out, "out", "o", "", "Output directory (default from configuration)")
	flags.BoolVar(&opts.inverse, "inverse", false, "Also compute the inverse transform")
	flags.StringVar(&opts.preview, "preview", "", "Write a PNG preview of the result image")
	flags.IntVar(&opts.previewSize, "preview-size", 512, "Longest side of the preview in pixels")
	flags.BoolVar(&opts.noQuality, "no-quality", false, "Skip the similarity report")
	flags.BoolVar(&opts.logToConsole, "verbose-elastix", false, "Show elastix output")
	cmd.MarkFlagRequired("fixed")
	cmd.MarkFlagRequired("moving")

	return cmd
}

func runRegister(cmd *cobra.Command, cfg *config.Config, log zerolog.Logger, opts *registerOptions) error {
	if opts.out != "" {
		cfg.Registration.OutputDirectory = opts.out
	}
	if opts.logToConsole {
		cfg.Registration.LogToConsole = true
	}
	if len(opts.params) > 0 {
		cfg.Parameters.ParameterFiles = opts.params
	} else if len(opts.transforms) > 0 {
		cfg.Parameters.Transforms = opts.transforms
		cfg.Parameters.ParameterFiles = nil
	}
	outDir := cfg.Registration.OutputDirectory
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}

	engines := elastixbin.NewFactory(elastixbin.Options{
		Executable:  cfg.Engine.Executable,
		WorkDir:     cfg.Engine.WorkDir,
		KeepWorkDir: cfg.Engine.KeepWorkDir,
		Console:     cmd.OutOrStdout(),
		Logger:      log,
		Runner:      runner,
	})
	s := registration.NewSession(engines, registration.WithLogger(log))
	if err := cfg.Apply(s); err != nil {
		return err
	}
	if opts.initial != "" {
		s.SetInitialTransformParameterFileName(opts.initial)
	}

	inputs := []struct {
		paths []string
		set   func([]*raster.Image) error
	}{
		{opts.fixed, s.SetFixedImages},
		{opts.moving, s.SetMovingImages},
		{opts.fixedMasks, s.SetFixedMasks},
		{opts.movingMasks, s.SetMovingMasks},
	}
	for _, in := range inputs {
		if len(in.paths) == 0 {
			continue
		}
		imgs, err := readImages(in.paths)
		if err != nil {
			return err
		}
		if err := in.set(imgs); err != nil {
			return err
		}
	}

	start := time.Now()
	result, err := s.Execute()
	if err != nil {
		return err
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("registration done")

	resultPath := filepath.Join(outDir, "result.mha")
	if err := metaimage.Write(resultPath, result); err != nil {
		return err
	}
	cmd.Printf("Result image saved to: %s\n", resultPath)

	maps, err := s.TransformParameterMaps()
	if err != nil {
		return err
	}
	if err := writeStack(cmd, s, maps, outDir, "TransformParameters"); err != nil {
		return err
	}

	if opts.inverse {
		inverse, err := s.ExecuteInverse()
		if err != nil {
			return err
		}
		if err := writeStack(cmd, s, inverse, outDir, "InverseTransformParameters"); err != nil {
			return err
		}
	}

	if !opts.noQuality {
		fixed, err := s.FixedImage(0)
		if err != nil {
			return err
		}
		metrics, err := quality.Compare(fixed, result)
		if err != nil {
			log.Warn().Err(err).Msg("skipping similarity report")
		} else {
			cmd.Printf("\nSimilarity to fixed image:\n")
			cmd.Printf("Root Mean Square Error (RMSE): %.6f\n", metrics.RMSE)
			cmd.Printf("Structural Similarity Index (SSIM): %.3f\n", metrics.SSIM)
			cmd.Printf("Mutual Information (MI): %.3f\n", metrics.MI)
			cmd.Printf("Entropy Difference: %.3f\n", metrics.EntropyDiff)
		}
	}

	if opts.preview != "" {
		viewer, err := visualization.NewViewer(result)
		if err != nil {
			return err
		}
		if err := viewer.SavePreview(opts.preview, opts.previewSize); err != nil {
			return fmt.Errorf("error saving preview: %w", err)
		}
		cmd.Printf("Preview saved to: %s\n", opts.preview)
	}
	return nil
}

func readImages(paths []string) ([]*raster.Image, error) {
	imgs := make([]*raster.Image, 0, len(paths))
	for _, path := range paths {
		img, err := metaimage.Read(path)
		if err != nil {
			return nil, err
		}
		imgs = append(imgs, img)
	}
	return imgs, nil
}

// writeStack stores stage i of stack as <dir>/<prefix>.<i>.txt. Stage i
// starts from the file of stage i-1 so the saved files form a chain that
// outlives the engine's work directory.
func writeStack(cmd *cobra.Command, s *registration.Session, stack parameter.Stack, dir, prefix string) error {
	stages := stack.Clone()
	paths := make([]string, len(stages))
	for i := range stages {
		paths[i] = filepath.Join(dir, fmt.Sprintf("%s.%d.txt", prefix, i))
		if stages[i] == nil {
			stages[i] = parameter.Map{}
		}
		if i == 0 {
			stages[i][parameter.KeyInitialTransformParametersFileName] = []string{parameter.NoInitialTransform}
		} else {
			stages[i][parameter.KeyInitialTransformParametersFileName] = []string{paths[i-1]}
		}
	}
	if err := s.WriteParameterFiles(stages, paths); err != nil {
		return err
	}
	for _, path := range paths {
		cmd.Printf("Transform parameters saved to: %s\n", path)
	}
	return nil
}
