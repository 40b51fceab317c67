package main

import (
	"fmt"
	"os"

	"github.com/shellward/shellward/internal/storage"
	"github.com/spf13/cobra"
)

var (
	flagDryRun  bool
	flagPrivacy bool
)

var rootCmd = &cobra.Command{
	Use:   "shellward",
	Short: "Natural-language shell assistant with a command safety pipeline",
	Long: "shellward turns natural language into a single shell command, validates it\n" +
		"against a safety pipeline, and executes it only after explicit confirmation.\n" +
		"Credentials are stored encrypted and unlocked with a local password.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := storage.InitConfig()
		return err
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		app, err := newApp(storage.GetConfig())
		if err != nil {
			return err
		}
		defer app.Close()
		return app.Run()
	},
}

func init() {
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "preview generated commands without executing them")
	rootCmd.Flags().BoolVar(&flagPrivacy, "privacy", false, "redact prompts, commands, and output in the activity log")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
