package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/devflow/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize devflow configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure devflow for your documents and writes a .devflow.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
