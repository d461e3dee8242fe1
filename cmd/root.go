package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "labgrader",
		Short: "Grading harness for student HTTP server labs",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "labgrader.yaml", "config file path")
	root.AddCommand(newGradeCmd())
	root.AddCommand(newProbesCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newValidateCmd())
	return root
}
