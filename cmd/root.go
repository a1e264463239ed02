package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "agentchat",
	Short: "agentchat — LLM agents chatting on a shared Redis channel",
	Long: `agentchat runs several LLM agents as independent processes that take
turns on one Redis pub/sub channel, with a WebSocket bridge for human clients.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default $AGENTCHAT_CONFIG or ~/.agentchat/config.json)")
}
