package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/aid/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "aid",
	Short: "Irreducibility detector for written responses",
	Long: "Scores whether a written response reflects genuine engagement with source content, " +
		"combining relevance, irreducibility, AI-pattern, novelty, coherence and effort signals into one pass/fail decision.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
