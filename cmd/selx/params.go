package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"simpleelastix/pkg/parameter"
)

func newParamsCmd() *cobra.Command {
	paramsCmd := &cobra.Command{
		Use:   "params",
		Short: "Create and inspect elastix parameter files",
	}

	var (
		resolutions int
		gridSpacing float64
		output      []string
	)
	defaultCmd := &cobra.Command{
		Use:   "default NAME [NAME...]",
		Short: "Print or write default parameter maps",
		Long: "Print or write default parameter maps. NAME is one of translation, rigid, affine,\n" +
			"bspline (or nonrigid), spline and groupwise.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var stack parameter.Stack
			for _, name := range args {
				m, err := parameter.Default(name, resolutions, gridSpacing)
				if err != nil {
					return err
				}
				stack = append(stack, m)
			}

			if len(output) == 0 {
				return parameter.Print(cmd.OutOrStdout(), stack)
			}
			if err := parameter.WriteStack(stack, output); err != nil {
				return err
			}
			for _, path := range output {
				cmd.Printf("Wrote %s\n", path)
			}
			return nil
		},
	}
	defaultCmd.Flags().IntVar(&resolutions, "resolutions", parameter.DefaultNumberOfResolutions, "Number of resolutions")
	defaultCmd.Flags().Float64Var(&gridSpacing, "grid", parameter.DefaultFinalGridSpacing, "Final B-spline grid spacing in physical units")
	defaultCmd.Flags().StringSliceVarP(&output, "output", "o", nil, "Output files, one per NAME")

	printCmd := &cobra.Command{
		Use:   "print FILE [FILE...]",
		Short: "Print parameter files as a stage pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack := make(parameter.Stack, 0, len(args))
			for _, path := range args {
				m, err := parameter.Read(path)
				if err != nil {
					return err
				}
				stack = append(stack, m)
			}
			if err := parameter.Print(cmd.OutOrStdout(), stack); err != nil {
				return fmt.Errorf("error printing parameter maps: %w", err)
			}
			return nil
		},
	}

	paramsCmd.AddCommand(defaultCmd, printCmd)
	return paramsCmd
}
