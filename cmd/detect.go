package main

import (
	"github.com/spf13/cobra"
)

var (
	detectText   string
	detectFile   string
	detectFormat string
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Score standalone text without separate source content",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readText(detectText, detectFile, cmd.InOrStdin())
		if err != nil {
			return err
		}

		env, err := initEngine(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		v, err := env.Engine.Detect(cmd.Context(), text)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), detectFormat, v)
	},
}

func init() {
	detectCmd.Flags().StringVar(&detectText, "text", "", "text to score")
	detectCmd.Flags().StringVar(&detectFile, "file", "", "read the text from a file (- for stdin)")
	detectCmd.Flags().StringVar(&detectFormat, "format", "json", "output format: json or yaml")
	rootCmd.AddCommand(detectCmd)
}
