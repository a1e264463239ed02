package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dayuer/agentchat/internal/config"
	"github.com/dayuer/agentchat/internal/providers"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, Redis reachability and the current channel",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Println("🤖 agentchat Status")
	fmt.Println()
	fmt.Printf("Config: %s\n", firstNonEmpty(configPath, config.GetConfigPath()))
	fmt.Printf("Model: %s\n", cfg.Model.Name)
	if spec := providers.FindByModel(cfg.Model.Name); spec != nil {
		fmt.Printf("Provider: %s\n", spec.Label())
	}
	fmt.Printf("Bridge: %s\n", cfg.Gateway.BridgeAddr())

	reg, err := loadRegistry(cfg.Agents.RegistryFile)
	if err != nil {
		fmt.Printf("Agents: ✗ %v\n", err)
	} else {
		fmt.Printf("\nAgents (%s):\n", cfg.Agents.RegistryFile)
		for i, a := range reg.ActiveAgents() {
			fmt.Printf("  %s → port %d\n", a.Name, cfg.Gateway.AgentBasePort+i)
		}
	}

	ctx := cmd.Context()
	c, err := openContainer(ctx)
	if err != nil {
		fmt.Printf("\nRedis: ✗ %s (%v)\n", cfg.Redis.URL, err)
		return nil
	}
	defer c.Close()
	fmt.Printf("\nRedis: ✓ %s\n", cfg.Redis.URL)

	n, err := c.History().Len(ctx, c.Channel())
	if err != nil {
		return err
	}
	fmt.Printf("Channel: %s (%d history entries)\n", c.Channel(), n)
	if pids := getRunningPIDs(); len(pids) > 0 {
		fmt.Printf("Detached processes: %v\n", pids)
	}
	return nil
}
