package commands

import (
	"github.com/spf13/cobra"

	"github.com/dyluth/murdash/internal/printer"
	"github.com/dyluth/murdash/internal/scaffold"
)

var (
	initForce bool
	initDir   string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter murdash.yml",
	Long: `Write murdash.yml and .env.example with every setting at its default.

Use --force to overwrite existing files.`,
	Args: cobra.NoArgs,
	// The configuration being created may not exist or be valid yet
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE:              runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing files")
	initCmd.Flags().StringVar(&initDir, "dir", ".", "Directory to write into")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if initForce {
		printer.Warning("Overwriting existing configuration in %s\n", initDir)
	}

	if err := scaffold.Initialize(initDir, initForce); err != nil {
		return printer.Error("initialization failed", err.Error(), nil)
	}

	scaffold.PrintSuccess(printer.Out)
	return nil
}
