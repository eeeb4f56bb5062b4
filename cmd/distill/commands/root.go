// Package commands implements the CLI commands for distill.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "distill",
	Short: "Extract structured data from free text using LLMs",
	Long: `Distill turns free text into validated structured data using LLMs.

Pick a built-in template or bring your own schema, feed it text, and
get structured output in JSON, JSONL, or YAML. Calls are rate limited,
cached, retried on transient failures, and cost-accounted per session.

Examples:
  # Extract a recipe from a text file
  distill extract recipe -i dinner.txt

  # Extract job postings from several files at once
  distill extract job -i posting1.txt -i posting2.txt --format jsonl

  # Use a custom schema with inline text
  distill extract-custom -s schema.yaml -t "Acme Corp is hiring..."

  # Use local Ollama
  distill extract review -i review.txt -p ollama -m llama3.2`,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.distill.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress output")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".distill")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("DISTILL")
	viper.AutomaticEnv()

	// Also check common API key env vars
	_ = viper.BindEnv("api_key", "ANTHROPIC_API_KEY", "OPENAI_API_KEY", "OPENROUTER_API_KEY")

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// logInfo prints an info message to stderr (unless quiet mode).
func logInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
