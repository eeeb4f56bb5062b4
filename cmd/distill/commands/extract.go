package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/distill-ai/distill/internal/extractor"
	"github.com/distill-ai/distill/internal/logger"
	"github.com/distill-ai/distill/pkg/schema/templates"
)

var extractCmd = &cobra.Command{
	Use:   "extract <template>",
	Short: "Extract data using a built-in template",
	Long: `Extract structured data from text using a predefined template.

Run "distill templates" to list the available templates.

Examples:
  # Extract a recipe from a file
  distill extract recipe -i dinner.txt

  # Extract several job postings concurrently
  distill extract job -i a.txt -i b.txt -i c.txt -c 3 --format jsonl

  # Inline text, no auto-save
  distill extract review -t "Loved this blender, 5 stars..." --no-save`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	addCommonExtractFlags(extractCmd.Flags())
}

func runExtract(cmd *cobra.Command, args []string) error {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	templateID := args[0]

	registry, err := templates.NewRegistry()
	if err != nil {
		logError("failed to initialize templates: %v", err)
		return err
	}
	if _, ok := registry.Lookup(templateID); !ok {
		err := fmt.Errorf("unknown template %q (run \"distill templates\" to list)", templateID)
		logError("%v", err)
		return err
	}

	cfg, err := orchestratorConfig(cmd)
	if err != nil {
		logError("%v", err)
		return err
	}

	provider, err := buildProvider(cfg.RequestTimeout)
	if err != nil {
		logError("failed to create provider: %v", err)
		return err
	}
	logger.Debug("provider ready", "provider", provider.Name())

	orch := extractor.New(provider, registry, extractor.WithConfig(cfg))

	return runExtraction(ctx, cmd, orch, templateID, templateID, "")
}
