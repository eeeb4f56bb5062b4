package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/distill-ai/distill/internal/extractor"
	"github.com/distill-ai/distill/internal/logger"
	"github.com/distill-ai/distill/pkg/schema"
	"github.com/distill-ai/distill/pkg/schema/templates"
)

var extractCustomCmd = &cobra.Command{
	Use:   "extract-custom",
	Short: "Extract data using a custom schema",
	Long: `Extract structured data from text using a schema file you provide.

The schema can be JSON or YAML and should define field names, types,
and descriptions. An optional system prompt steers the extraction.

Examples:
  # Custom schema over a file
  distill extract-custom -s invoice.yaml -i invoice.txt

  # Custom schema with a system prompt file
  distill extract-custom -s memo.json --prompt-file style.txt -t "..."`,
	RunE: runExtractCustom,
}

func init() {
	rootCmd.AddCommand(extractCustomCmd)

	flags := extractCustomCmd.Flags()
	flags.StringP("schema", "s", "", "path to schema file (required)")
	flags.String("prompt-file", "", "system prompt file")
	flags.String("prompt", "", "system prompt text")
	addCommonExtractFlags(flags)

	_ = extractCustomCmd.MarkFlagRequired("schema")
}

func runExtractCustom(cmd *cobra.Command, args []string) error {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	schemaPath, _ := cmd.Flags().GetString("schema")
	s, err := schema.FromFile(schemaPath)
	if err != nil {
		logError("failed to load schema: %v", err)
		return err
	}
	logger.Debug("schema loaded", "name", s.Name, "fields", len(s.Fields))

	var systemPrompt string
	if promptFile, _ := cmd.Flags().GetString("prompt-file"); promptFile != "" {
		data, err := os.ReadFile(promptFile) //#nosec G304 -- CLI tool reads user-specified prompt file
		if err != nil {
			logError("failed to read prompt file: %v", err)
			return err
		}
		systemPrompt = string(data)
	} else if prompt, _ := cmd.Flags().GetString("prompt"); prompt != "" {
		systemPrompt = prompt
	}

	// Register the custom schema so the orchestrator can resolve it.
	registry, err := templates.NewRegistry()
	if err != nil {
		logError("failed to initialize templates: %v", err)
		return err
	}
	schemaID := s.Name
	if schemaID == "" {
		schemaID = "custom"
	}
	registry.Register(schemaID, s)

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

	return runExtraction(ctx, cmd, orch, schemaID, "custom", systemPrompt)
}
