package main

import (
	"fmt"

	"github.com/spf13/cobra"

	cookielab "github.com/malumohit/cookie-lab-pipeline"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the matrix for missing extension packages and malformed links",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := cookielab.LoadMatrix(matrixPath)
		if err != nil {
			return err
		}
		jobs, err := m.Jobs(cookielab.ResumeOptions{})
		if err != nil {
			return err
		}
		problems := m.Validate()
		for _, p := range problems {
			fmt.Fprintf(cmd.OutOrStdout(), "PROBLEM: %s\n", p)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d browsers x %d extensions x %d links -> %d jobs\n",
			len(m.Browsers), len(m.Extensions), len(m.Links), len(jobs))
		if len(problems) > 0 {
			return fmt.Errorf("matrix has %d problems", len(problems))
		}
		fmt.Fprintln(cmd.OutOrStdout(), "matrix OK")
		return nil
	},
}
