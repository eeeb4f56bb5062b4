package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/distill-ai/distill/pkg/schema/templates"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List available built-in templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := templates.NewRegistry()
		if err != nil {
			return err
		}

		descriptions := registry.Descriptions()
		fmt.Println("Available templates:")
		for _, name := range registry.Names() {
			fmt.Printf("  %-8s %s\n", name, descriptions[name])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
}
