package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dayuer/agentchat/internal/config"
	"github.com/dayuer/agentchat/internal/registry"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Write a default config and an example agents.yml",
	RunE:  runOnboard,
}

func init() {
	rootCmd.AddCommand(onboardCmd)
}

func runOnboard(cmd *cobra.Command, args []string) error {
	path := firstNonEmpty(configPath, config.GetConfigPath())

	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config already exists at %s\n", path)
	} else {
		if err := config.Save(config.DefaultConfig(), path); err != nil {
			return fmt.Errorf("creating config: %w", err)
		}
		fmt.Printf("✓ Created config at %s\n", path)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	regPath := cfg.Agents.RegistryFile
	if _, err := os.Stat(regPath); os.IsNotExist(err) {
		if err := os.WriteFile(regPath, []byte(registry.Template), 0644); err != nil {
			return fmt.Errorf("creating %s: %w", regPath, err)
		}
		fmt.Printf("✓ Created %s\n", regPath)
	} else {
		fmt.Printf("Agent registry already exists at %s\n", regPath)
	}

	fmt.Println("\n🤖 agentchat is ready!")
	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Add your API key to %s (or export ANTHROPIC_API_KEY)\n", path)
	fmt.Println("  2. Start Redis, then: agentchat start")
	fmt.Println("  3. Chat: agentchat chat")
	return nil
}
