package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"astute/internal/buildconfig"
)

var rootCmd = &cobra.Command{
	Use:   "astute",
	Short: "Answer questions by consolidating model knowledge with retrieved passages",
	Long: "Astute answers questions by eliciting what the model already knows,\n" +
		"partitioning it together with retrieved passages into consistent clusters,\n" +
		"and finalizing a cited, confidence-scored answer.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.Version = buildconfig.String()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
