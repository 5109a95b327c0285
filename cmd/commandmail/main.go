package main

import (
	"fmt"
	"os"

	"commandmail/pkg/config"
	"commandmail/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is set via ldflags at build time.
var Version = "dev"

var (
	configPath string
	configEnv  string

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "commandmail",
	Short: "CommandMail - email productivity agent",
	Long:  "Categorizes a mock inbox, extracts action items and answers questions about it with an LLM.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		loaded, err := config.Load(configPath, configEnv)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		log = logger.NewLogger(cfg.Log.Development)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&configEnv, "env", config.GetConfigEnv(), "config overlay name (config.<env>.yaml)")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedPromptsCmd, loadInboxCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
